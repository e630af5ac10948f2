package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/RommanNadeem/avatar-meet/internal/domain"
)

// TokenClient fetches connection details from the token endpoint.
type TokenClient interface {
	ConnectionDetails(ctx context.Context, roomName, participantName, region, metadata string) (*domain.ConnectionDetails, error)
}

// AgentRequest is one agent-dispatch request from the client side.
type AgentRequest struct {
	Room        string `json:"room"`
	AgentName   string `json:"agentName,omitempty"`
	AvatarID    string `json:"avatarId,omitempty"`
	PersonaName string `json:"personaName,omitempty"`
	Ensure      bool   `json:"ensure,omitempty"`
}

// AgentClient asks the dispatch endpoint to attach an agent to a room.
type AgentClient interface {
	RequestAgent(ctx context.Context, req AgentRequest) error
}

type httpTokenClient struct {
	base  string
	httpc *http.Client
}

// NewTokenClient builds a TokenClient against our own HTTP service. The
// client carries a cookie jar so the suffix cookie round-trips.
func NewTokenClient(base string) TokenClient {
	return &httpTokenClient{
		base:  base,
		httpc: newCookieClient(),
	}
}

func (c *httpTokenClient) ConnectionDetails(ctx context.Context, roomName, participantName, region, metadata string) (*domain.ConnectionDetails, error) {
	q := url.Values{}
	q.Set("roomName", roomName)
	q.Set("participantName", participantName)
	if region != "" {
		q.Set("region", region)
	}
	if metadata != "" {
		q.Set("metadata", metadata)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/connection-details?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get connection details (%d): %s", resp.StatusCode, body)
	}
	var details domain.ConnectionDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

type httpAgentClient struct {
	base  string
	httpc *http.Client
}

// NewAgentClient builds an AgentClient against our own HTTP service.
func NewAgentClient(base string) AgentClient {
	return &httpAgentClient{
		base:  base,
		httpc: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *httpAgentClient) RequestAgent(ctx context.Context, areq AgentRequest) error {
	payload, err := json.Marshal(areq)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/request-agent", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		body, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("failed to request agent: %s", e.Error)
		}
		return fmt.Errorf("failed to request agent: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return nil
}

func newCookieClient() *http.Client {
	c := &http.Client{Timeout: 30 * time.Second}
	if jar, err := cookiejar.New(nil); err == nil {
		c.Jar = jar
	}
	return c
}
