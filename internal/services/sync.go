package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"eventsync/internal/domain"
	"eventsync/internal/filter"
	"eventsync/internal/reconcile"
	"eventsync/internal/store"
)

// SyncService owns the local event store for one activation at a time. Every store write
// runs on the scope's writer goroutine, in submission order.
type SyncService struct {
	logger  *slog.Logger
	api     domain.EventAPI
	channel domain.PushChannel
	store   *store.Collection

	mu    sync.Mutex
	scope *scope
}

// scope is one activation. Work submitted against a cancelled scope is discarded.
type scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	ops    chan func()
	wg     sync.WaitGroup
}

// NewSyncService returns an inactive service over api and channel.
func NewSyncService(logger *slog.Logger, api domain.EventAPI, channel domain.PushChannel) *SyncService {
	return &SyncService{
		logger:  logger,
		api:     api,
		channel: channel,
		store:   store.NewCollection(),
	}
}

// Activate starts a scope: it clears the store, hydrates it from the remote service and
// subscribes to push messages. Load and subscription failures are logged, not returned.
// Activating twice without Teardown returns domain.ErrAlreadyActive.
func (s *SyncService) Activate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scope != nil {
		return domain.ErrAlreadyActive
	}

	scopeCtx, cancel := context.WithCancel(ctx)
	sc := &scope{
		ctx:    scopeCtx,
		cancel: cancel,
		ops:    make(chan func()),
	}
	s.store.Reset()
	s.scope = sc

	sc.wg.Add(3)
	go func() {
		defer sc.wg.Done()
		sc.write()
	}()
	go func() {
		defer sc.wg.Done()
		s.hydrate(sc)
	}()
	go func() {
		defer sc.wg.Done()
		s.subscribe(sc)
	}()

	s.logger.Info("sync scope activated")
	return nil
}

// Teardown ends the active scope. The push connection is closed and every scope goroutine
// has exited when it returns; results still in flight are dropped. No-op when inactive.
func (s *SyncService) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.scope
	if sc == nil {
		return
	}
	s.scope = nil

	sc.cancel()
	if err := s.channel.Close(); err != nil {
		s.logger.Warn("closing push channel", "err", err)
	}
	sc.wg.Wait()
	s.logger.Info("sync scope torn down")
}

// Active reports whether a scope is live.
func (s *SyncService) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope != nil
}

// ChannelState reports the push channel state.
func (s *SyncService) ChannelState() domain.ChannelState {
	return s.channel.State()
}

// View returns the events matching c in store order.
func (s *SyncService) View(c filter.Criteria) []*domain.Event {
	return filter.View(s.store.List(), c)
}

// Get returns one event from the store.
func (s *SyncService) Get(id string) (*domain.Event, bool) {
	return s.store.Get(id)
}

func (s *SyncService) current() *scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope
}

// apply folds msg into the store on sc's writer goroutine and waits for it. It returns
// false when sc ended before the fold ran.
func (s *SyncService) apply(sc *scope, msg domain.Message, source string) bool {
	return sc.submit(func() {
		changed, err := reconcile.Apply(s.store, msg)
		if err != nil {
			s.logger.Warn("dropping message", "source", source, "err", err)
			return
		}
		s.logger.Debug("message applied", "source", source, "kind", msg.Kind.String(), "id", msg.EntityID(), "changed", changed)
	})
}

func (s *SyncService) hydrate(sc *scope) {
	events, err := s.api.List(sc.ctx)
	if err != nil {
		if sc.ctx.Err() == nil {
			s.logger.Error("initial load failed", "err", err)
		}
		return
	}
	sc.submit(func() {
		n := reconcile.Hydrate(s.store, events)
		s.logger.Info("store hydrated", "events", n)
	})
}

func (s *SyncService) subscribe(sc *scope) {
	stream, err := s.channel.Open(sc.ctx)
	if err != nil {
		if sc.ctx.Err() == nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("push channel unavailable", "err", err)
		}
		return
	}
	for msg := range stream {
		if !s.apply(sc, msg, "push") {
			// scope ended; the channel is being closed by Teardown
			for range stream {
			}
			return
		}
	}
	if sc.ctx.Err() == nil {
		s.logger.Warn("push channel disconnected; view will not receive updates until reactivated")
	}
}

func (sc *scope) write() {
	for {
		select {
		case <-sc.ctx.Done():
			return
		case op := <-sc.ops:
			if sc.ctx.Err() != nil {
				return
			}
			op()
		}
	}
}

func (sc *scope) submit(op func()) bool {
	if sc.ctx.Err() != nil {
		return false
	}
	done := make(chan struct{})
	select {
	case sc.ops <- func() { op(); close(done) }:
	case <-sc.ctx.Done():
		return false
	}
	select {
	case <-done:
		return true
	case <-sc.ctx.Done():
		// cancelled after handoff; the writer checks ctx before running
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}
