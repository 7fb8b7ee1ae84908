package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"eventsync/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEventAPI is an in-memory EventAPI. users maps credentials to the user the server
// would resolve; the empty credential is the guest.
type fakeEventAPI struct {
	mu      sync.Mutex
	events  []*domain.Event
	users   map[string]domain.UserRef
	nextID  int
	calls   map[string]int
	listErr error
	err     error         // if set, every mutation returns it
	gate    chan struct{} // if set, mutations block until it is closed
}

func newFakeEventAPI(events ...*domain.Event) *fakeEventAPI {
	return &fakeEventAPI{
		events: events,
		users: map[string]domain.UserRef{
			"":       {ID: domain.GuestID, Name: domain.GuestName},
			"tok-u1": {ID: "u1", Name: "Ann"},
			"tok-u2": {ID: "u2", Name: "Bob"},
		},
		nextID: 100,
		calls:  make(map[string]int),
	}
}

func (f *fakeEventAPI) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeEventAPI) totalMutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for op, c := range f.calls {
		if op != "list" {
			n += c
		}
	}
	return n
}

func (f *fakeEventAPI) begin(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate, err := f.gate, f.err
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeEventAPI) find(id string) (int, *domain.Event) {
	for i, e := range f.events {
		if e.ID == id {
			return i, e
		}
	}
	return -1, nil
}

func (f *fakeEventAPI) List(ctx context.Context) ([]*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["list"]++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*domain.Event, len(f.events))
	for i, e := range f.events {
		out[i] = e.Clone()
	}
	return out, nil
}

func (f *fakeEventAPI) Create(ctx context.Context, credential string, fields domain.EventFields) (*domain.Event, error) {
	if err := f.begin(ctx, "create"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.users[credential]
	e := &domain.Event{
		ID:          fmt.Sprintf("ev-%d", f.nextID),
		Title:       fields.Title,
		Description: fields.Description,
		Date:        fields.Date,
		Category:    fields.Category,
		CreatedBy:   &user,
		Attendees:   []domain.UserRef{},
	}
	f.nextID++
	f.events = append(f.events, e)
	return e.Clone(), nil
}

func (f *fakeEventAPI) Update(ctx context.Context, credential, id string, fields domain.EventFields) (*domain.Event, error) {
	if err := f.begin(ctx, "update"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, e := f.find(id)
	if e == nil {
		return nil, &domain.TransportError{Op: "update event", StatusCode: 404, Err: domain.ErrNotFound}
	}
	e.Title, e.Description, e.Date, e.Category = fields.Title, fields.Description, fields.Date, fields.Category
	return e.Clone(), nil
}

func (f *fakeEventAPI) Delete(ctx context.Context, credential, id string) error {
	if err := f.begin(ctx, "delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i, e := f.find(id)
	if e == nil {
		return &domain.TransportError{Op: "delete event", StatusCode: 404, Err: domain.ErrNotFound}
	}
	f.events = append(f.events[:i], f.events[i+1:]...)
	return nil
}

func (f *fakeEventAPI) Join(ctx context.Context, credential, id string) (*domain.Event, error) {
	if err := f.begin(ctx, "join"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, e := f.find(id)
	if e == nil {
		return nil, &domain.TransportError{Op: "join event", StatusCode: 404, Err: domain.ErrNotFound}
	}
	user := f.users[credential]
	if !e.HasAttendee(user.ID) {
		e.Attendees = append(e.Attendees, user)
	}
	return e.Clone(), nil
}

func (f *fakeEventAPI) Leave(ctx context.Context, credential, id string) (*domain.Event, error) {
	if err := f.begin(ctx, "leave"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, e := f.find(id)
	if e == nil {
		return nil, &domain.TransportError{Op: "leave event", StatusCode: 404, Err: domain.ErrNotFound}
	}
	user := f.users[credential]
	kept := e.Attendees[:0]
	for _, a := range e.Attendees {
		if a.ID != user.ID {
			kept = append(kept, a)
		}
	}
	e.Attendees = kept
	return e.Clone(), nil
}

// fakeChannel is a PushChannel fed by the test through push.
type fakeChannel struct {
	mu      sync.Mutex
	state   domain.ChannelState
	stream  chan domain.Message
	opens   int
	openErr error
}

func newFakeChannel() *fakeChannel { return &fakeChannel{} }

func (c *fakeChannel) Open(ctx context.Context) (<-chan domain.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opens++
	if c.openErr != nil {
		return nil, c.openErr
	}
	if c.stream != nil {
		return nil, domain.ErrChannelActive
	}
	c.stream = make(chan domain.Message)
	c.state = domain.ChannelConnected
	return c.stream, nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		close(c.stream)
		c.stream = nil
	}
	c.state = domain.ChannelDisconnected
	return nil
}

func (c *fakeChannel) State() domain.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeChannel) connected() bool {
	return c.State() == domain.ChannelConnected
}

// push delivers msg and returns once the consumer has received it.
func (c *fakeChannel) push(msg domain.Message) {
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()
	if stream != nil {
		stream <- msg
	}
}

// drop simulates the server ending the connection.
func (c *fakeChannel) drop() {
	_ = c.Close()
}
