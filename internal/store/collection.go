// Package store holds the local materialized view of the event collection.
package store

import (
	"sync"

	"eventsync/internal/domain"
)

// Collection is a keyed, order-preserving set of events. Reads may run concurrently;
// writes are expected to come from a single writer.
type Collection struct {
	mu    sync.RWMutex
	items []*domain.Event
	index map[string]int
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{index: make(map[string]int)}
}

// Upsert inserts e if its id is absent, otherwise replaces the existing entry in place.
// Events without an id are ignored.
func (c *Collection) Upsert(e *domain.Event) {
	if e == nil || e.ID == "" {
		return
	}
	e = e.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.index[e.ID]; ok {
		c.items[i] = e
		return
	}
	c.index[e.ID] = len(c.items)
	c.items = append(c.items, e)
}

// Remove deletes the event with the given id. Unknown ids are a no-op.
func (c *Collection) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[id]
	if !ok {
		return
	}
	copy(c.items[i:], c.items[i+1:])
	c.items[len(c.items)-1] = nil
	c.items = c.items[:len(c.items)-1]
	delete(c.index, id)
	for j := i; j < len(c.items); j++ {
		c.index[c.items[j].ID] = j
	}
}

// Get returns a copy of the event with the given id.
func (c *Collection) Get(id string) (*domain.Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.items[i].Clone(), true
}

// Has reports whether an event with the given id is present.
func (c *Collection) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[id]
	return ok
}

// List returns copies of all events in first-appearance order.
func (c *Collection) List() []*domain.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domain.Event, len(c.items))
	for i, e := range c.items {
		out[i] = e.Clone()
	}
	return out
}

// Len returns the number of events.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Reset removes every event.
func (c *Collection) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.index = make(map[string]int)
}
