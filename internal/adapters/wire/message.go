package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"eventsync/internal/domain"
)

// Push message types broadcast by the service.
const (
	TypeEventCreated    = "eventCreated"
	TypeEventUpdated    = "eventUpdated"
	TypeEventDeleted    = "eventDeleted"
	TypeAttendeeUpdated = "attendeeUpdated"
)

// ErrUnknownType is returned for well-formed frames of a type this client ignores.
var ErrUnknownType = errors.New("unknown message type")

// Envelope is one push frame.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeMessage decodes a push frame into a typed message.
func DecodeMessage(frame []byte) (domain.Message, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return domain.Message{}, fmt.Errorf("decode envelope: %v: %w", err, domain.ErrMalformedMessage)
	}

	switch env.Type {
	case TypeEventDeleted:
		id, err := DecodeID(env.Data)
		if err != nil {
			return domain.Message{}, fmt.Errorf("%s: %w", env.Type, err)
		}
		return domain.Deleted(id), nil
	case TypeEventCreated, TypeEventUpdated, TypeAttendeeUpdated:
		e, err := DecodeEvent(env.Data)
		if err != nil {
			return domain.Message{}, fmt.Errorf("%s: %w", env.Type, err)
		}
		switch env.Type {
		case TypeEventCreated:
			return domain.Created(e), nil
		case TypeEventUpdated:
			return domain.Updated(e), nil
		default:
			return domain.AttendeesChanged(e), nil
		}
	default:
		return domain.Message{}, fmt.Errorf("%q: %w", env.Type, ErrUnknownType)
	}
}
