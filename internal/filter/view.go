// Package filter projects the event collection for display.
package filter

import (
	"fmt"
	"strings"

	"eventsync/internal/domain"
)

// Criteria selects events by category and exact calendar date. Zero fields match all.
type Criteria struct {
	Category domain.Category
	Date     domain.Date
}

// ParseCriteria builds Criteria from raw query values. Empty values mean "any".
func ParseCriteria(category, date string) (Criteria, error) {
	var c Criteria
	if category = strings.TrimSpace(category); category != "" {
		c.Category = domain.Category(category)
		if !c.Category.Valid() {
			return Criteria{}, fmt.Errorf("unknown category %q: %w", category, domain.ErrInvalidInput)
		}
	}
	if date = strings.TrimSpace(date); date != "" {
		d, err := domain.ParseDate(date)
		if err != nil {
			return Criteria{}, fmt.Errorf("%v: %w", err, domain.ErrInvalidInput)
		}
		c.Date = d
	}
	return c, nil
}

// Match reports whether e satisfies c.
func (c Criteria) Match(e *domain.Event) bool {
	if c.Category != "" && e.Category != c.Category {
		return false
	}
	if !c.Date.IsZero() && e.Date != c.Date {
		return false
	}
	return true
}

// View returns the ordered subsequence of events matching c. The input is not modified.
func View(events []*domain.Event, c Criteria) []*domain.Event {
	out := make([]*domain.Event, 0, len(events))
	for _, e := range events {
		if e != nil && c.Match(e) {
			out = append(out, e)
		}
	}
	return out
}
