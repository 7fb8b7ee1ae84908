package filter

import (
	"errors"
	"testing"

	"eventsync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []*domain.Event {
	return []*domain.Event{
		{ID: "1", Category: domain.CategoryMeetup, Date: "2024-05-01"},
		{ID: "2", Category: domain.CategoryWorkshop, Date: "2024-05-01"},
		{ID: "3", Category: domain.CategoryMeetup, Date: "2024-06-10"},
	}
}

func viewIDs(events []*domain.Event) []string {
	out := []string{}
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestView(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"no filter", Criteria{}, []string{"1", "2", "3"}},
		{"category only", Criteria{Category: domain.CategoryMeetup}, []string{"1", "3"}},
		{"date only", Criteria{Date: "2024-05-01"}, []string{"1", "2"}},
		{"category and date", Criteria{Category: domain.CategoryMeetup, Date: "2024-05-01"}, []string{"1"}},
		{"no match", Criteria{Category: domain.CategoryConference}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, viewIDs(View(sample(), tt.criteria)))
		})
	}
}

func TestView_DoesNotMutateInput(t *testing.T) {
	in := sample()
	_ = View(in, Criteria{Category: domain.CategoryWorkshop})
	assert.Equal(t, []string{"1", "2", "3"}, viewIDs(in))
}

func TestParseCriteria(t *testing.T) {
	c, err := ParseCriteria("Meetup", "2024-05-01T00:00:00.000Z")
	require.NoError(t, err)
	assert.Equal(t, Criteria{Category: domain.CategoryMeetup, Date: "2024-05-01"}, c)

	c, err = ParseCriteria("", " ")
	require.NoError(t, err)
	assert.Equal(t, Criteria{}, c)

	_, err = ParseCriteria("Party", "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = ParseCriteria("", "tomorrow")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
