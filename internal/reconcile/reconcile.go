// Package reconcile folds change messages into the local event store.
//
// Messages are applied in arrival order with no revision comparison: the last message
// for an id wins. A Created that arrives after a Deleted for the same id brings the
// event back, while an Updated for an id that is not present is ignored.
package reconcile

import (
	"fmt"

	"eventsync/internal/domain"
)

// Store is the subset of the collection the fold writes to.
type Store interface {
	Has(id string) bool
	Upsert(e *domain.Event)
	Remove(id string)
}

// Apply folds msg into s and reports whether s changed. Messages without a target id
// return domain.ErrMalformedMessage and leave s untouched.
func Apply(s Store, msg domain.Message) (bool, error) {
	id := msg.EntityID()
	if id == "" {
		return false, fmt.Errorf("%s message without id: %w", msg.Kind, domain.ErrMalformedMessage)
	}

	switch msg.Kind {
	case domain.MessageCreated:
		// the creator sees its own create twice, once in the response and once as a broadcast
		if s.Has(id) {
			return false, nil
		}
		s.Upsert(normalize(msg.Event))
		return true, nil
	case domain.MessageUpdated, domain.MessageAttendeesChanged:
		if !s.Has(id) {
			return false, nil
		}
		s.Upsert(normalize(msg.Event))
		return true, nil
	case domain.MessageDeleted:
		if !s.Has(id) {
			return false, nil
		}
		s.Remove(id)
		return true, nil
	default:
		return false, fmt.Errorf("unknown message kind %d: %w", msg.Kind, domain.ErrMalformedMessage)
	}
}

// Hydrate folds a bulk-load result into s. Events already present keep their position.
// It returns the number of events applied.
func Hydrate(s Store, events []*domain.Event) int {
	n := 0
	for _, e := range events {
		if e == nil || e.ID == "" {
			continue
		}
		s.Upsert(normalize(e))
		n++
	}
	return n
}

func normalize(e *domain.Event) *domain.Event {
	c := e.Clone()
	c.Attendees = domain.DedupeAttendees(c.Attendees)
	return c
}
