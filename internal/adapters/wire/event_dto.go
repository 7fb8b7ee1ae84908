// Package wire maps the remote service's JSON shapes to domain types.
//
// The service is document-store backed: ids arrive as "_id" (older payloads use "id"),
// "createdBy" and attendee entries are either a bare user id or a populated
// {_id, name} object, and dates are full timestamps.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"

	"eventsync/internal/domain"
)

// EventDTO is an event as sent by the remote service.
type EventDTO struct {
	MongoID     string            `json:"_id"`
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Date        string            `json:"date"`
	Category    string            `json:"category"`
	ImageURL    string            `json:"imageUrl"`
	CreatedBy   json.RawMessage   `json:"createdBy"`
	Attendees   []json.RawMessage `json:"attendees"`
}

// userRefDTO is a populated user reference.
type userRefDTO struct {
	MongoID string `json:"_id"`
	ID      string `json:"id"`
	Name    string `json:"name"`
}

func (u userRefDTO) id() string {
	if u.MongoID != "" {
		return u.MongoID
	}
	return u.ID
}

// EntityID returns the event id, preferring "_id".
func (d EventDTO) EntityID() string {
	if d.MongoID != "" {
		return d.MongoID
	}
	return d.ID
}

// ToDomain converts the DTO. A missing id returns domain.ErrMalformedMessage; fields that
// fail to parse are left empty.
func (d EventDTO) ToDomain() (*domain.Event, error) {
	id := d.EntityID()
	if id == "" {
		return nil, fmt.Errorf("event without id: %w", domain.ErrMalformedMessage)
	}
	e := &domain.Event{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Category:    domain.Category(d.Category),
		Attendees:   []domain.UserRef{},
	}
	if date, err := domain.ParseDate(d.Date); err == nil {
		e.Date = date
	}
	if d.ImageURL != "" {
		u := d.ImageURL
		e.ImageURL = &u
	}
	if ref, ok := decodeRef(d.CreatedBy); ok {
		e.CreatedBy = &ref
	}
	refs := make([]domain.UserRef, 0, len(d.Attendees))
	for _, raw := range d.Attendees {
		if ref, ok := decodeRef(raw); ok {
			refs = append(refs, ref)
		}
	}
	e.Attendees = domain.DedupeAttendees(refs)
	return e, nil
}

// decodeRef accepts a bare id string or a populated object. Null, empty and unreadable
// values report false.
func decodeRef(raw json.RawMessage) (domain.UserRef, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return domain.UserRef{}, false
	}
	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil || id == "" {
			return domain.UserRef{}, false
		}
		return domain.UserRef{ID: id}, true
	}
	var u userRefDTO
	if err := json.Unmarshal(raw, &u); err != nil || u.id() == "" {
		return domain.UserRef{}, false
	}
	return domain.UserRef{ID: u.id(), Name: u.Name}, true
}

// DecodeEvent decodes a single event payload.
func DecodeEvent(data []byte) (*domain.Event, error) {
	var dto EventDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("decode event: %v: %w", err, domain.ErrMalformedMessage)
	}
	return dto.ToDomain()
}

// DecodeID reads an id sent either as a JSON string or as an object with "_id" or "id".
func DecodeID(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return "", fmt.Errorf("decode id: %v: %w", err, domain.ErrMalformedMessage)
		}
		if id == "" {
			return "", fmt.Errorf("empty id: %w", domain.ErrMalformedMessage)
		}
		return id, nil
	}
	var u userRefDTO
	if err := json.Unmarshal(data, &u); err != nil {
		return "", fmt.Errorf("decode id: %v: %w", err, domain.ErrMalformedMessage)
	}
	if u.id() == "" {
		return "", fmt.Errorf("empty id: %w", domain.ErrMalformedMessage)
	}
	return u.id(), nil
}
