package domain

import (
	"net/url"
	"strings"
)

// ConnectionDetails is everything a client needs to join a media room.
// Ephemeral: held in memory for the duration of one session, never stored.
type ConnectionDetails struct {
	ServerURL        string `json:"serverUrl"`
	RoomName         string `json:"roomName"`
	ParticipantToken string `json:"participantToken"`
	ParticipantName  string `json:"participantName"`
}

// IsPlaceholder reports whether a configuration value still looks like an
// unfilled template ("<your-api-key>", "wss://your-project.livekit.cloud").
func IsPlaceholder(s string) bool {
	return s == "" || strings.Contains(s, "<") || strings.Contains(s, "your-")
}

// ValidServerURL reports whether raw is a trustworthy media endpoint:
// non-placeholder and a parseable absolute URL.
func ValidServerURL(raw string) bool {
	if IsPlaceholder(raw) {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
