package dispatch

import (
	"context"
	"errors"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/RommanNadeem/avatar-meet/internal/config"
	"github.com/RommanNadeem/avatar-meet/internal/domain"
)

// Coordinator ensures at most one effective agent of a given name is ever
// dispatched per room. It holds no lock of its own: the registry enforces
// (room, agent) uniqueness, and "already exists" is treated as success, so
// concurrent callers racing for the same room all converge on one dispatch.
type Coordinator struct {
	cfg      *config.Config
	registry Registry
}

func NewCoordinator(cfg *config.Config, registry Registry) *Coordinator {
	return &Coordinator{cfg: cfg, registry: registry}
}

// Result reports the outcome of a dispatch request. Created distinguishes a
// fresh dispatch from one that already existed; callers rarely care.
type Result struct {
	DispatchID string
	AgentName  string
	Room       string
	Created    bool
	Message    string
}

// RequestDispatch is the direct-create variant: attempt creation, treat an
// existing record as success. Idempotent and safe to call more than once
// per room. Not retried on timeout; the caller owns retry policy.
func (c *Coordinator) RequestDispatch(ctx context.Context, room, agentName, metadata string) (*Result, error) {
	if err := c.precheck(&room, &agentName); err != nil {
		return nil, err
	}
	return c.create(ctx, room, agentName, metadata)
}

// EnsureDispatch is the list-then-create variant: an existing dispatch with
// attached jobs short-circuits; a jobless dispatch is not yet effective and
// falls through to creation, as does a listing failure. A transient listing
// failure never blocks dispatch creation.
func (c *Coordinator) EnsureDispatch(ctx context.Context, room, agentName, metadata string) (*Result, error) {
	if err := c.precheck(&room, &agentName); err != nil {
		return nil, err
	}

	dispatches, err := c.registry.ListDispatches(ctx, room)
	if err != nil {
		log.Warn().Str("module", "dispatch").Str("room", room).Err(err).
			Msg("listing dispatches failed, attempting creation directly")
	} else {
		for _, d := range dispatches {
			if d.AgentName == agentName && d.JobCount() > 0 {
				log.Info().Str("module", "dispatch").Str("room", room).
					Str("agent", agentName).Str("dispatch_id", d.ID).
					Msg("agent already running")
				return &Result{
					DispatchID: d.ID,
					AgentName:  agentName,
					Room:       room,
					Message:    "agent already running",
				}, nil
			}
		}
	}
	return c.create(ctx, room, agentName, metadata)
}

// Stop removes the agent's dispatch from a room. Duplicate stops are no-ops.
func (c *Coordinator) Stop(ctx context.Context, room, agentName string) error {
	if err := c.precheck(&room, &agentName); err != nil {
		return err
	}
	err := c.registry.DeleteDispatch(ctx, room, agentName)
	if err != nil && !errors.Is(err, ErrRoomNotFound) {
		return c.classify(room, err)
	}
	return nil
}

func (c *Coordinator) precheck(room, agentName *string) error {
	if err := c.cfg.Ready(); err != nil {
		return err
	}
	if *room == "" {
		return &domain.ValidationError{Param: "room"}
	}
	if *agentName == "" {
		*agentName = c.cfg.AgentName
	}
	return nil
}

func (c *Coordinator) create(ctx context.Context, room, agentName, metadata string) (*Result, error) {
	log.Info().Str("module", "dispatch").Str("room", room).Str("agent", agentName).
		Msg("requesting agent dispatch")

	d, err := c.registry.CreateDispatch(ctx, room, agentName, metadata)
	switch {
	case err == nil:
		log.Info().Str("module", "dispatch").Str("room", room).
			Str("dispatch_id", d.ID).Msg("dispatch created")
		return &Result{
			DispatchID: d.ID,
			AgentName:  agentName,
			Room:       room,
			Created:    true,
			Message:    "agent requested",
		}, nil

	case errors.Is(err, ErrAlreadyExists):
		// The contract is "an agent is dispatched for this room", not
		// "this call created the dispatch".
		log.Info().Str("module", "dispatch").Str("room", room).
			Str("agent", agentName).Msg("dispatch already exists")
		return &Result{
			AgentName: agentName,
			Room:      room,
			Message:   "agent already requested",
		}, nil

	default:
		return nil, c.classify(room, err)
	}
}

func (c *Coordinator) classify(room string, err error) error {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return &domain.NotFoundError{Room: room}
	case isTimeout(err):
		return &domain.TimeoutError{Endpoint: c.cfg.ServerURL, Err: err}
	}
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
