package domain

import (
	"errors"
	"fmt"
)

// ErrEncryptionUnsupported is reported when the local media engine cannot
// support the requested end-to-end encryption mode. Terminal and user-facing;
// never retried and never escalated further.
var ErrEncryptionUnsupported = errors.New("end-to-end encryption is not supported by this client")

// ConfigError marks missing or placeholder credentials/endpoints. Always
// fatal for the request it surfaces on, never retried; Hint tells the
// operator how to fix their environment.
type ConfigError struct {
	Field string
	Hint  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is not configured. %s", e.Field, e.Hint)
}

// ValidationError marks a missing required request field; the caller must
// correct its input.
type ValidationError struct {
	Param string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required parameter: %s", e.Param)
}

// NotFoundError marks a dispatch request against a room nobody has joined
// yet; the caller must connect to the room before requesting an agent.
type NotFoundError struct {
	Room string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("room %q does not exist; connect to the room before requesting an agent", e.Room)
}

// TimeoutError marks a downstream call that exceeded its deadline. Retry is
// owned by the caller; Endpoint is included for diagnostics.
type TimeoutError struct {
	Endpoint string
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out reaching media server at %s", e.Endpoint)
}

func (e *TimeoutError) Unwrap() error { return e.Err }
