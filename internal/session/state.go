// Package session drives the client-side session-establishment flow: token
// fetch, optional end-to-end-encryption bootstrap, the gated media connect,
// and the one-shot agent-dispatch trigger.
package session

// State is the bootstrapper's lifecycle position.
type State int

const (
	SelectingPersona State = iota
	Connecting
	Live
	Disconnected
	Errored
)

func (s State) String() string {
	switch s {
	case SelectingPersona:
		return "selecting_persona"
	case Connecting:
		return "connecting"
	case Live:
		return "live"
	case Disconnected:
		return "disconnected"
	case Errored:
		return "errored"
	}
	return "unknown"
}
