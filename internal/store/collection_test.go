package store

import (
	"sync"
	"testing"

	"eventsync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(events []*domain.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestCollection_UpsertPreservesPosition(t *testing.T) {
	c := NewCollection()
	c.Upsert(&domain.Event{ID: "a", Title: "A"})
	c.Upsert(&domain.Event{ID: "b", Title: "B"})
	c.Upsert(&domain.Event{ID: "c", Title: "C"})
	c.Upsert(&domain.Event{ID: "a", Title: "A2"})

	list := c.List()
	require.Equal(t, []string{"a", "b", "c"}, ids(list))
	assert.Equal(t, "A2", list[0].Title)
	assert.Equal(t, 3, c.Len())
}

func TestCollection_UpsertIgnoresMissingID(t *testing.T) {
	c := NewCollection()
	c.Upsert(nil)
	c.Upsert(&domain.Event{Title: "no id"})
	assert.Equal(t, 0, c.Len())
}

func TestCollection_Remove(t *testing.T) {
	c := NewCollection()
	for _, id := range []string{"a", "b", "c", "d"} {
		c.Upsert(&domain.Event{ID: id})
	}

	c.Remove("b")
	c.Remove("missing")
	require.Equal(t, []string{"a", "c", "d"}, ids(c.List()))

	// index must follow the shifted entries
	c.Upsert(&domain.Event{ID: "d", Title: "D2"})
	got, ok := c.Get("d")
	require.True(t, ok)
	assert.Equal(t, "D2", got.Title)
	assert.Equal(t, []string{"a", "c", "d"}, ids(c.List()))

	c.Remove("a")
	c.Remove("a")
	assert.Equal(t, []string{"c", "d"}, ids(c.List()))
	assert.False(t, c.Has("a"))
}

func TestCollection_ReturnsCopies(t *testing.T) {
	c := NewCollection()
	in := &domain.Event{ID: "a", Title: "A", Attendees: []domain.UserRef{{ID: "u1"}}}
	c.Upsert(in)
	in.Title = "mutated after upsert"

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "A", got.Title)

	got.Attendees[0].ID = "changed"
	list := c.List()
	list[0].Title = "changed"
	again, _ := c.Get("a")
	assert.Equal(t, "A", again.Title)
	assert.Equal(t, "u1", again.Attendees[0].ID)
}

func TestCollection_GetUnknown(t *testing.T) {
	c := NewCollection()
	got, ok := c.Get("nope")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestCollection_Reset(t *testing.T) {
	c := NewCollection()
	c.Upsert(&domain.Event{ID: "a"})
	c.Reset()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.List())
	c.Upsert(&domain.Event{ID: "b"})
	assert.Equal(t, []string{"b"}, ids(c.List()))
}

func TestCollection_ConcurrentReads(t *testing.T) {
	c := NewCollection()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c.Upsert(&domain.Event{ID: string(rune('a' + i%26))})
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = c.List()
				_, _ = c.Get("a")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 26, c.Len())
}
