package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventsync/internal/domain"
	"eventsync/internal/filter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func kickoff() *domain.Event {
	return &domain.Event{
		ID:        "1",
		Title:     "Kickoff",
		Category:  domain.CategoryMeetup,
		Date:      "2024-05-01",
		Attendees: []domain.UserRef{},
	}
}

func activate(t *testing.T, api *fakeEventAPI, ch *fakeChannel) *SyncService {
	t.Helper()
	s := NewSyncService(discardLogger(), api, ch)
	require.NoError(t, s.Activate(context.Background()))
	t.Cleanup(s.Teardown)
	require.Eventually(t, ch.connected, waitFor, tick)
	return s
}

func storeLen(s *SyncService) func() bool {
	return func() bool { return len(s.View(filter.Criteria{})) > 0 }
}

func TestSyncService_HydrateThenDuplicateCreatedThenAttendees(t *testing.T) {
	api := newFakeEventAPI(kickoff())
	ch := newFakeChannel()
	s := activate(t, api, ch)
	require.Eventually(t, storeLen(s), waitFor, tick)

	ch.push(domain.Created(kickoff()))
	changed := kickoff()
	changed.Attendees = []domain.UserRef{{ID: "u9", Name: "Ann"}}
	ch.push(domain.AttendeesChanged(changed))

	require.Eventually(t, func() bool {
		e, ok := s.Get("1")
		return ok && len(e.Attendees) == 1
	}, waitFor, tick)

	events := s.View(filter.Criteria{})
	require.Len(t, events, 1)
	assert.Equal(t, []domain.UserRef{{ID: "u9", Name: "Ann"}}, events[0].Attendees)
	assert.Equal(t, "Kickoff", events[0].Title)
}

func TestSyncService_PushOrderingAndNoOps(t *testing.T) {
	api := newFakeEventAPI()
	ch := newFakeChannel()
	s := activate(t, api, ch)
	require.Eventually(t, func() bool { return api.callCount("list") == 1 }, waitFor, tick)

	// updates and deletes for unknown ids are ignored
	ghost := kickoff()
	ghost.ID = "ghost"
	ch.push(domain.Updated(ghost))
	ch.push(domain.Deleted("ghost"))
	ch.push(domain.Message{Kind: domain.MessageCreated})

	a := kickoff()
	a.ID, a.Title = "a", "First"
	b := kickoff()
	b.ID, b.Title = "b", "Second"
	ch.push(domain.Created(a))
	ch.push(domain.Created(b))

	renamed := a.Clone()
	renamed.Title = "First, renamed"
	ch.push(domain.Updated(renamed))
	ch.push(domain.Deleted("b"))

	require.Eventually(t, func() bool {
		_, hasB := s.Get("b")
		e, hasA := s.Get("a")
		return !hasB && hasA && e.Title == "First, renamed"
	}, waitFor, tick)

	events := s.View(filter.Criteria{})
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].ID)
	_, ok := s.Get("ghost")
	assert.False(t, ok)
}

func TestSyncService_ViewFilters(t *testing.T) {
	conf := &domain.Event{ID: "c", Title: "Conf", Category: domain.CategoryConference, Date: "2024-06-01"}
	shop := &domain.Event{ID: "w", Title: "Shop", Category: domain.CategoryWorkshop, Date: "2024-06-01"}
	meet := &domain.Event{ID: "m", Title: "Meet", Category: domain.CategoryMeetup, Date: "2024-06-02"}
	api := newFakeEventAPI(conf, shop, meet)
	s := activate(t, api, newFakeChannel())
	require.Eventually(t, func() bool { return len(s.View(filter.Criteria{})) == 3 }, waitFor, tick)

	byDate := s.View(filter.Criteria{Date: "2024-06-01"})
	require.Len(t, byDate, 2)
	assert.Equal(t, "c", byDate[0].ID)
	assert.Equal(t, "w", byDate[1].ID)

	both := s.View(filter.Criteria{Category: domain.CategoryWorkshop, Date: "2024-06-01"})
	require.Len(t, both, 1)
	assert.Equal(t, "w", both[0].ID)

	assert.Empty(t, s.View(filter.Criteria{Category: domain.CategoryMeetup, Date: "2024-06-01"}))
}

func TestSyncService_ActivateTwice(t *testing.T) {
	s := activate(t, newFakeEventAPI(), newFakeChannel())
	err := s.Activate(context.Background())
	assert.ErrorIs(t, err, domain.ErrAlreadyActive)
	assert.True(t, s.Active())
}

func TestSyncService_TeardownClosesChannelAndAllowsReactivation(t *testing.T) {
	api := newFakeEventAPI(kickoff())
	ch := newFakeChannel()
	s := NewSyncService(discardLogger(), api, ch)

	require.NoError(t, s.Activate(context.Background()))
	require.Eventually(t, ch.connected, waitFor, tick)
	require.Eventually(t, storeLen(s), waitFor, tick)

	s.Teardown()
	assert.False(t, s.Active())
	assert.Equal(t, domain.ChannelDisconnected, s.ChannelState())
	s.Teardown() // no-op

	require.NoError(t, s.Activate(context.Background()))
	defer s.Teardown()
	require.Eventually(t, ch.connected, waitFor, tick)
	require.Eventually(t, storeLen(s), waitFor, tick)
	assert.Equal(t, 2, api.callCount("list"))
	assert.Len(t, s.View(filter.Criteria{}), 1)
}

func TestSyncService_LoadAndSubscribeFailuresAreContained(t *testing.T) {
	api := newFakeEventAPI()
	api.listErr = &domain.TransportError{Op: "list events", StatusCode: 500, Err: errors.New("boom")}
	ch := newFakeChannel()
	ch.openErr = errors.New("dial refused")

	s := NewSyncService(discardLogger(), api, ch)
	require.NoError(t, s.Activate(context.Background()))
	defer s.Teardown()

	require.Eventually(t, func() bool { return api.callCount("list") == 1 }, waitFor, tick)
	assert.True(t, s.Active())
	assert.Empty(t, s.View(filter.Criteria{}))
	assert.Equal(t, domain.ChannelDisconnected, s.ChannelState())
}

func TestSyncService_ServerDropKeepsStore(t *testing.T) {
	api := newFakeEventAPI(kickoff())
	ch := newFakeChannel()
	s := activate(t, api, ch)
	require.Eventually(t, storeLen(s), waitFor, tick)

	ch.drop()
	assert.Equal(t, domain.ChannelDisconnected, s.ChannelState())
	assert.True(t, s.Active())
	_, ok := s.Get("1")
	assert.True(t, ok)
}
