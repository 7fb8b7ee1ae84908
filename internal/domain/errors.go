package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the engine.
var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("guest sessions cannot modify events")
	ErrForbidden        = errors.New("only the event creator can modify this event")
	ErrInvalidInput     = errors.New("invalid input")
	ErrMalformedMessage = errors.New("malformed message")
	ErrAlreadyActive    = errors.New("sync scope already active")
	ErrInactive         = errors.New("sync scope not active")
	ErrChannelActive    = errors.New("push channel already open")
)

// TransportError reports a failed call to the remote service. StatusCode is 0 when no
// response was received.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is or wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
