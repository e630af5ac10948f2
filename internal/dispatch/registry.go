// Package dispatch implements the at-most-once agent-dispatch protocol
// against an external dispatch registry.
package dispatch

import (
	"context"
	"errors"
)

var (
	// ErrAlreadyExists means the registry already holds a dispatch for
	// this (room, agent) pair. Callers treat it as success.
	ErrAlreadyExists = errors.New("dispatch already exists")

	// ErrRoomNotFound means the target room has not been created yet.
	ErrRoomNotFound = errors.New("room does not exist")
)

// Job is an agent process attached to a dispatch.
type Job struct {
	ID string `json:"id"`
}

// DispatchState tracks the jobs spawned for a dispatch; empty until an
// agent process attaches.
type DispatchState struct {
	Jobs []Job `json:"jobs"`
}

// AgentDispatch is the registry's record requesting that an agent join a
// room, keyed by (room, agent name).
type AgentDispatch struct {
	ID        string         `json:"id"`
	AgentName string         `json:"agent_name"`
	Room      string         `json:"room"`
	Metadata  string         `json:"metadata,omitempty"`
	State     *DispatchState `json:"state,omitempty"`
}

// JobCount reports how many agent processes have attached. A dispatch with
// zero jobs is not yet effective.
func (d *AgentDispatch) JobCount() int {
	if d == nil || d.State == nil {
		return 0
	}
	return len(d.State.Jobs)
}

// Registry is the external dispatch-registry service. The registry enforces
// uniqueness per (room, agent name); CreateDispatch on an existing pair
// fails with ErrAlreadyExists rather than duplicating the record.
type Registry interface {
	CreateDispatch(ctx context.Context, room, agentName, metadata string) (*AgentDispatch, error)
	ListDispatches(ctx context.Context, room string) ([]*AgentDispatch, error)
	DeleteDispatch(ctx context.Context, room, agentName string) error
}
