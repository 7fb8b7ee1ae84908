package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventsync/internal/domain"
)

// MutationGateway issues the local user's changes to the remote service and folds the
// server's answer into the store through the same path as push messages. Nothing is
// applied before the server responds.
type MutationGateway struct {
	logger         *slog.Logger
	api            domain.EventAPI
	sync           *SyncService
	session        *domain.Session
	contextTimeout time.Duration
}

// NewMutationGateway returns a gateway acting as session.
func NewMutationGateway(logger *slog.Logger, api domain.EventAPI, sync *SyncService, session *domain.Session, timeout time.Duration) *MutationGateway {
	if session == nil {
		session = domain.NewGuestSession()
	}
	return &MutationGateway{
		logger:         logger,
		api:            api,
		sync:           sync,
		session:        session,
		contextTimeout: timeout,
	}
}

// Identity returns the identity the gateway acts as.
func (g *MutationGateway) Identity() domain.Identity {
	return g.session.Identity
}

// Create asks the service to create an event.
func (g *MutationGateway) Create(ctx context.Context, fields domain.EventFields) (*domain.Event, error) {
	sc, err := g.begin(true)
	if err != nil {
		return nil, err
	}
	if err := validate(fields); err != nil {
		return nil, err
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	e, err := g.api.Create(ctx, g.session.BearerCredential(), fields)
	if err != nil {
		return nil, g.failed(ctx, "create", "", err)
	}
	g.fold(sc, domain.Created(e))
	return e, nil
}

// Update asks the service to replace an event's fields. Only the creator may update.
func (g *MutationGateway) Update(ctx context.Context, id string, fields domain.EventFields) (*domain.Event, error) {
	sc, err := g.begin(true)
	if err != nil {
		return nil, err
	}
	if err := g.checkOwner(id); err != nil {
		return nil, err
	}
	if err := validate(fields); err != nil {
		return nil, err
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	e, err := g.api.Update(ctx, g.session.BearerCredential(), id, fields)
	if err != nil {
		return nil, g.failed(ctx, "update", id, err)
	}
	g.fold(sc, domain.Updated(e))
	return e, nil
}

// Delete asks the service to remove an event. Only the creator may delete.
func (g *MutationGateway) Delete(ctx context.Context, id string) error {
	sc, err := g.begin(true)
	if err != nil {
		return err
	}
	if err := g.checkOwner(id); err != nil {
		return err
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	if err := g.api.Delete(ctx, g.session.BearerCredential(), id); err != nil {
		return g.failed(ctx, "delete", id, err)
	}
	g.fold(sc, domain.Deleted(id))
	return nil
}

// Join adds the current identity to the event's attendees. Guests may join.
func (g *MutationGateway) Join(ctx context.Context, id string) (*domain.Event, error) {
	return g.attendance(ctx, "join", id, g.api.Join)
}

// Leave removes the current identity from the event's attendees. Guests may leave.
func (g *MutationGateway) Leave(ctx context.Context, id string) (*domain.Event, error) {
	return g.attendance(ctx, "leave", id, g.api.Leave)
}

func (g *MutationGateway) attendance(ctx context.Context, op, id string, call func(context.Context, string, string) (*domain.Event, error)) (*domain.Event, error) {
	sc, err := g.begin(false)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("event id is required: %w", domain.ErrInvalidInput)
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	e, err := call(ctx, g.session.BearerCredential(), id)
	if err != nil {
		return nil, g.failed(ctx, op, id, err)
	}
	g.fold(sc, domain.AttendeesChanged(e))
	return e, nil
}

// begin checks the preconditions shared by every mutation and captures the scope the
// response must be applied to.
func (g *MutationGateway) begin(privileged bool) (*scope, error) {
	if privileged && g.session.Identity.IsGuest() {
		return nil, domain.ErrUnauthorized
	}
	sc := g.sync.current()
	if sc == nil {
		return nil, domain.ErrInactive
	}
	return sc, nil
}

func (g *MutationGateway) checkOwner(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("event id is required: %w", domain.ErrInvalidInput)
	}
	e, ok := g.sync.Get(id)
	if !ok {
		return domain.ErrNotFound
	}
	if !e.OwnedBy(g.session.Identity) {
		return domain.ErrForbidden
	}
	return nil
}

func validate(fields domain.EventFields) error {
	if errs := fields.Validate(); len(errs) > 0 {
		return fmt.Errorf("%s: %w", strings.Join(errs, "; "), domain.ErrInvalidInput)
	}
	return nil
}

func (g *MutationGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.contextTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.contextTimeout)
}

func (g *MutationGateway) failed(ctx context.Context, op, id string, err error) error {
	g.logger.ErrorContext(ctx, "mutation failed", "op", op, "id", id, "err", err)
	return fmt.Errorf("%s event: %w", op, err)
}

// fold applies the server's answer unless the scope it was issued in has ended.
func (g *MutationGateway) fold(sc *scope, msg domain.Message) {
	if !g.sync.apply(sc, msg, "mutation") {
		g.logger.Debug("discarding mutation response after teardown", "kind", msg.Kind.String(), "id", msg.EntityID())
	}
}
