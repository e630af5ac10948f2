// Package token mints short-lived capability tokens scoped to a media room.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/RommanNadeem/avatar-meet/internal/config"
	"github.com/RommanNadeem/avatar-meet/internal/domain"
)

// ParticipantTTL is the lifetime of a participant capability token. Short on
// purpose: the token is consumed immediately by the room connect.
const ParticipantTTL = 5 * time.Minute

// VideoGrant is the room-scoped rights block embedded in the token.
type VideoGrant struct {
	Room           string `json:"room,omitempty"`
	RoomJoin       bool   `json:"roomJoin,omitempty"`
	RoomAdmin      bool   `json:"roomAdmin,omitempty"`
	CanPublish     bool   `json:"canPublish,omitempty"`
	CanPublishData bool   `json:"canPublishData,omitempty"`
	CanSubscribe   bool   `json:"canSubscribe,omitempty"`
}

// Claims is the full capability-token claim set: standard JWT claims plus
// the participant display name, opaque metadata and the video grant.
type Claims struct {
	jwt.RegisteredClaims
	Name     string     `json:"name,omitempty"`
	Metadata string     `json:"metadata,omitempty"`
	Video    VideoGrant `json:"video"`
}

// Issuer turns a room name and participant identity into connection details.
// Stateless; all configuration is validated before it gets here.
type Issuer struct {
	cfg *config.Config
}

func NewIssuer(cfg *config.Config) *Issuer {
	return &Issuer{cfg: cfg}
}

// IssueRequest carries one token request. Suffix is the cookie-cached
// participant postfix; empty means generate a fresh one.
type IssueRequest struct {
	RoomName        string
	ParticipantName string
	Metadata        string
	Region          string
	Suffix          string
}

// Issue validates the request, composes the participant identity and mints
// the capability token. It returns the connection details plus the suffix
// that was used, so the caller can persist it in the browser session.
//
// Validation order is fixed: endpoint, signing key, signing secret (all via
// config.Ready), then roomName, then participantName.
func (i *Issuer) Issue(req IssueRequest) (*domain.ConnectionDetails, string, error) {
	if err := i.cfg.Ready(); err != nil {
		return nil, "", err
	}
	serverURL, err := i.cfg.EndpointForRegion(req.Region)
	if err != nil {
		return nil, "", err
	}
	if req.RoomName == "" {
		return nil, "", &domain.ValidationError{Param: "roomName"}
	}
	if req.ParticipantName == "" {
		return nil, "", &domain.ValidationError{Param: "participantName"}
	}

	suffix := req.Suffix
	if suffix == "" {
		suffix = domain.NewSuffix()
	}
	identity := domain.ComposeIdentity(req.ParticipantName, suffix)

	grant := VideoGrant{
		Room:           req.RoomName,
		RoomJoin:       true,
		CanPublish:     true,
		CanPublishData: true,
		CanSubscribe:   true,
	}
	tok, err := i.mint(string(identity), req.ParticipantName, req.Metadata, grant, ParticipantTTL)
	if err != nil {
		// Signing failure means bad credentials, not a transient fault.
		return nil, "", fmt.Errorf("failed to create access token; verify that LIVEKIT_API_KEY and LIVEKIT_API_SECRET are correct and match your media server: %w", err)
	}

	return &domain.ConnectionDetails{
		ServerURL:        serverURL,
		RoomName:         req.RoomName,
		ParticipantToken: tok,
		ParticipantName:  req.ParticipantName,
	}, suffix, nil
}

// IssueAdmin mints a room-admin token for server-to-server registry calls.
func (i *Issuer) IssueAdmin(room string, ttl time.Duration) (string, error) {
	if err := i.cfg.Ready(); err != nil {
		return "", err
	}
	return i.mint("dispatch-coordinator", "", "", VideoGrant{Room: room, RoomAdmin: true}, ttl)
}

func (i *Issuer) mint(identity, name, metadata string, grant VideoGrant, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.APIKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:     name,
		Metadata: metadata,
		Video:    grant,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.APISecret))
}
