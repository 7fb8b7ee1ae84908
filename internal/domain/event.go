package domain

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Category classifies an event.
type Category string

// Known event categories.
const (
	CategoryConference Category = "Conference"
	CategoryWorkshop   Category = "Workshop"
	CategoryMeetup     Category = "Meetup"
)

// Categories lists every known category in display order.
var Categories = []Category{CategoryConference, CategoryWorkshop, CategoryMeetup}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// DateLayout is the canonical calendar-date format.
const DateLayout = "2006-01-02"

// Date is a calendar date without time-of-day, always formatted as YYYY-MM-DD.
type Date string

// ParseDate accepts a date-only value or an RFC 3339 timestamp and returns its date part.
// Timestamps keep the calendar date as written, they are not converted to local time.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty date")
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date(t.Format(DateLayout)), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Date(t.Format(DateLayout)), nil
	}
	return "", fmt.Errorf("invalid date %q", s)
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d == "" }

// Event is one record of the shared collection, as confirmed by the server.
// swagger:model Event
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        Date      `json:"date"`
	Category    Category  `json:"category"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	CreatedBy   *UserRef  `json:"createdBy,omitempty"`
	Attendees   []UserRef `json:"attendees"`
}

// UnknownCreator is shown when an event carries no usable creator name.
const UnknownCreator = "Unknown"

// CreatorName returns the creator's display name, or UnknownCreator.
func (e *Event) CreatorName() string {
	if e.CreatedBy == nil || e.CreatedBy.Name == "" {
		return UnknownCreator
	}
	return e.CreatedBy.Name
}

// OwnedBy reports whether the identity created the event.
func (e *Event) OwnedBy(id Identity) bool {
	return e.CreatedBy != nil && e.CreatedBy.ID != "" && e.CreatedBy.ID == id.ID
}

// HasAttendee reports whether the user is in the attendee list.
func (e *Event) HasAttendee(userID string) bool {
	for _, a := range e.Attendees {
		if a.ID == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	if e.ImageURL != nil {
		u := *e.ImageURL
		c.ImageURL = &u
	}
	if e.CreatedBy != nil {
		ref := *e.CreatedBy
		c.CreatedBy = &ref
	}
	c.Attendees = make([]UserRef, len(e.Attendees))
	copy(c.Attendees, e.Attendees)
	return &c
}

// ImageUpload is an optional image attached to a create or update request.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// EventFields holds the user-editable fields sent on create and update.
type EventFields struct {
	Title       string
	Description string
	Date        Date
	Category    Category
	Image       *ImageUpload
}

// Validate returns error messages for required and format rules; nil means valid.
func (f EventFields) Validate() []string {
	var errs []string
	if strings.TrimSpace(f.Title) == "" {
		errs = append(errs, "title is required")
	}
	if f.Date.IsZero() {
		errs = append(errs, "date is required")
	} else if _, err := ParseDate(string(f.Date)); err != nil {
		errs = append(errs, "date must be YYYY-MM-DD")
	}
	if !f.Category.Valid() {
		errs = append(errs, "category must be one of Conference, Workshop, Meetup")
	}
	return errs
}
