package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RommanNadeem/avatar-meet/internal/config"
	"github.com/RommanNadeem/avatar-meet/internal/token"
)

const adminTokenTTL = time.Minute

// registryClient talks to the dispatch registry's RPC surface over plain
// JSON POSTs, authorized with a short-lived room-admin capability token.
type registryClient struct {
	base   string
	httpc  *http.Client
	issuer *token.Issuer
}

// NewRegistryClient builds a Registry against the configured media server.
// The signaling endpoint is ws(s); the RPC surface lives on http(s).
func NewRegistryClient(cfg *config.Config, issuer *token.Issuer) Registry {
	return &registryClient{
		base:   HTTPURL(cfg.ServerURL),
		httpc:  &http.Client{Timeout: cfg.DispatchTimeout},
		issuer: issuer,
	}
}

// HTTPURL converts a signaling URL to the registry's HTTP base:
// wss:// becomes https://, ws:// becomes http://.
func HTTPURL(raw string) string {
	switch {
	case strings.HasPrefix(raw, "wss://"):
		return "https://" + strings.TrimPrefix(raw, "wss://")
	case strings.HasPrefix(raw, "ws://"):
		return "http://" + strings.TrimPrefix(raw, "ws://")
	}
	return raw
}

func (rc *registryClient) CreateDispatch(ctx context.Context, room, agentName, metadata string) (*AgentDispatch, error) {
	var out AgentDispatch
	err := rc.call(ctx, "CreateDispatch", room, map[string]string{
		"room":       room,
		"agent_name": agentName,
		"metadata":   metadata,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (rc *registryClient) ListDispatches(ctx context.Context, room string) ([]*AgentDispatch, error) {
	var out struct {
		AgentDispatches []*AgentDispatch `json:"agent_dispatches"`
	}
	err := rc.call(ctx, "ListDispatch", room, map[string]string{"room": room}, &out)
	if err != nil {
		return nil, err
	}
	return out.AgentDispatches, nil
}

func (rc *registryClient) DeleteDispatch(ctx context.Context, room, agentName string) error {
	dispatches, err := rc.ListDispatches(ctx, room)
	if err != nil {
		return err
	}
	for _, d := range dispatches {
		if d.AgentName != agentName {
			continue
		}
		var out AgentDispatch
		return rc.call(ctx, "DeleteDispatch", room, map[string]string{
			"dispatch_id": d.ID,
			"room":        room,
		}, &out)
	}
	// Nothing to delete: duplicate stops are naturally safe.
	return nil
}

func (rc *registryClient) call(ctx context.Context, method, room string, body any, out any) error {
	auth, err := rc.issuer.IssueAdmin(room, adminTokenTTL)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := rc.base + "/twirp/livekit.AgentDispatchService/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+auth)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := rc.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return classifyRegistryError(resp.StatusCode, raw)
	}
	return json.Unmarshal(raw, out)
}

// classifyRegistryError maps the registry's error envelope onto the two
// sentinel conditions the coordinator cares about.
func classifyRegistryError(status int, raw []byte) error {
	var e struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		e.Msg = string(raw)
	}
	msg := strings.ToLower(e.Msg)
	switch {
	case e.Code == "already_exists" || strings.Contains(msg, "already exists"):
		return fmt.Errorf("%w: %s", ErrAlreadyExists, e.Msg)
	case e.Code == "not_found" || strings.Contains(msg, "does not exist"):
		return fmt.Errorf("%w: %s", ErrRoomNotFound, e.Msg)
	}
	log.Debug().Str("module", "dispatch").Int("status", status).Str("code", e.Code).Msg("registry error")
	return fmt.Errorf("registry call failed (%d): %s", status, e.Msg)
}
