package services

import (
	"context"
	"errors"
	"log/slog"

	"eventsync/internal/domain"
)

// SessionResolver builds the session the client runs as. It is used once at startup; the
// result is handed to the gateway and the view server.
type SessionResolver struct {
	logger *slog.Logger
	reader domain.CredentialReader
	repo   domain.SessionRepository // nil when no database is configured
}

func NewSessionResolver(logger *slog.Logger, reader domain.CredentialReader, repo domain.SessionRepository) *SessionResolver {
	return &SessionResolver{logger: logger, reader: reader, repo: repo}
}

// Resolve returns the session for key. A non-empty token wins and is persisted; otherwise
// the stored session is used. Any failure falls back to the guest session.
func (r *SessionResolver) Resolve(ctx context.Context, key, token string) *domain.Session {
	if token != "" {
		if s, ok := r.fromToken(ctx, key, token); ok {
			return s
		}
	}
	if r.repo != nil {
		s, err := r.repo.Get(ctx, key)
		switch {
		case err == nil:
			r.logger.Info("session restored", "key", key, "user_id", s.Identity.ID, "role", string(s.Identity.Role))
			return s
		case errors.Is(err, domain.ErrNotFound):
			r.logger.Info("no stored session", "key", key)
		default:
			r.logger.Warn("loading stored session", "key", key, "err", err)
		}
	}
	r.logger.Info("running as guest")
	return domain.NewGuestSession()
}

func (r *SessionResolver) fromToken(ctx context.Context, key, token string) (*domain.Session, bool) {
	id, err := r.reader.IdentityFromToken(token)
	if err != nil {
		r.logger.Warn("ignoring unreadable session token", "err", err)
		return nil, false
	}
	s := domain.NewAuthenticatedSession(id.ID, id.Name, token)
	if r.repo != nil {
		if err := r.repo.Save(ctx, key, s); err != nil {
			r.logger.Warn("persisting session", "key", key, "err", err)
		}
	}
	r.logger.Info("session from token", "user_id", id.ID)
	return s, true
}
