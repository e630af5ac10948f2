package http

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/RommanNadeem/avatar-meet/internal/dispatch"
	"github.com/RommanNadeem/avatar-meet/internal/domain"
	"github.com/RommanNadeem/avatar-meet/internal/persona"
	"github.com/RommanNadeem/avatar-meet/internal/token"
)

type Handlers struct {
	Issuer      *token.Issuer
	Coordinator *dispatch.Coordinator
}

// ConnectionDetails serves GET /api/connection-details: validates config and
// parameters, mints the capability token and refreshes the suffix cookie so
// repeat calls in the same browser session compose the same identity.
func (h *Handlers) ConnectionDetails(c *gin.Context) {
	sess := sessions.Default(c)
	suffix, _ := sess.Get(suffixCookieName).(string)

	metadata := c.DefaultQuery("metadata", "")
	if metadata == "" {
		if avatarID := c.Query("avatarId"); avatarID != "" {
			metadata = persona.DispatchMetadata(&persona.Persona{
				ID:   avatarID,
				Name: c.Query("personaName"),
			})
		}
	}

	details, suffix, err := h.Issuer.Issue(token.IssueRequest{
		RoomName:        c.Query("roomName"),
		ParticipantName: c.Query("participantName"),
		Metadata:        metadata,
		Region:          c.Query("region"),
		Suffix:          suffix,
	})
	if err != nil {
		c.String(statusFor(err), err.Error())
		return
	}

	sess.Set(suffixCookieName, suffix)
	if err := sess.Save(); err != nil {
		log.Error().Str("module", "adapters.http").Err(err).Msg("failed to save suffix cookie")
	}
	c.JSON(http.StatusOK, details)
}

type agentRequest struct {
	Room        string `json:"room"`
	AgentName   string `json:"agentName"`
	AvatarID    string `json:"avatarId"`
	PersonaName string `json:"personaName"`
	Ensure      bool   `json:"ensure"`
}

type agentResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	DispatchID  string `json:"dispatchId,omitempty"`
	AgentName   string `json:"agentName"`
	AvatarID    string `json:"avatarId,omitempty"`
	PersonaName string `json:"personaName,omitempty"`
	Room        string `json:"room"`
}

// RequestAgent serves POST /api/request-agent. Idempotent: a dispatch that
// already exists for (room, agent) reports success.
func (h *Handlers) RequestAgent(c *gin.Context) {
	var req agentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Room == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room name is required"})
		return
	}

	var p *persona.Persona
	if req.AvatarID != "" {
		p = &persona.Persona{ID: req.AvatarID, Name: req.PersonaName}
	}
	metadata := persona.DispatchMetadata(p)

	var (
		res *dispatch.Result
		err error
	)
	if req.Ensure {
		res, err = h.Coordinator.EnsureDispatch(c.Request.Context(), req.Room, req.AgentName, metadata)
	} else {
		res, err = h.Coordinator.RequestDispatch(c.Request.Context(), req.Room, req.AgentName, metadata)
	}
	if err != nil {
		h.dispatchError(c, err)
		return
	}

	c.JSON(http.StatusOK, agentResponse{
		Success:     true,
		Message:     res.Message,
		DispatchID:  res.DispatchID,
		AgentName:   res.AgentName,
		AvatarID:    req.AvatarID,
		PersonaName: req.PersonaName,
		Room:        res.Room,
	})
}

// StopAgent serves DELETE /api/agent?room=. Duplicate stops are no-ops.
func (h *Handlers) StopAgent(c *gin.Context) {
	room := c.Query("room")
	if room == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room name is required"})
		return
	}
	if err := h.Coordinator.Stop(c.Request.Context(), room, c.Query("agentName")); err != nil {
		h.dispatchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room": room})
}

func (h *Handlers) dispatchError(c *gin.Context, err error) {
	var te *domain.TimeoutError
	if errors.As(err, &te) {
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error":      err.Error(),
			"livekitUrl": te.Endpoint,
		})
		return
	}
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// statusFor maps the error taxonomy onto HTTP statuses. Nothing crosses the
// handler boundary unconverted.
func statusFor(err error) int {
	var (
		ve *domain.ValidationError
		ce *domain.ConfigError
		ne *domain.NotFoundError
		te *domain.TimeoutError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &ne):
		return http.StatusNotFound
	case errors.As(err, &te):
		return http.StatusGatewayTimeout
	case errors.As(err, &ce):
		return http.StatusInternalServerError
	}
	log.Error().Str("module", "adapters.http").Err(err).Msg("unclassified error")
	return http.StatusInternalServerError
}
