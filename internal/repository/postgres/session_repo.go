package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"eventsync/internal/domain"
)

// pq error code for a missing relation
const undefinedTable = "42P01"

// ErrSchemaMissing is returned when the client_sessions table has not been created.
var ErrSchemaMissing = errors.New("client_sessions table does not exist")

const createSessionsTable = `
	CREATE TABLE IF NOT EXISTS client_sessions (
		session_key TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		user_name   TEXT NOT NULL DEFAULT '',
		role        TEXT NOT NULL,
		credential  TEXT NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ NOT NULL
	)
`

type sessionRepository struct {
	DB  *sql.DB
	now func() time.Time
}

// NewSessionRepository returns a domain.SessionRepository implemented with Postgres.
func NewSessionRepository(db *sql.DB) domain.SessionRepository {
	return &sessionRepository{DB: db, now: time.Now}
}

// EnsureSchema creates the client_sessions table if it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createSessionsTable); err != nil {
		return fmt.Errorf("create client_sessions: %w", err)
	}
	return nil
}

func (r *sessionRepository) Get(ctx context.Context, key string) (*domain.Session, error) {
	query := `
		SELECT user_id, user_name, role, credential
		FROM client_sessions
		WHERE session_key = $1
	`
	var (
		s    domain.Session
		role string
	)
	err := r.DB.QueryRowContext(ctx, query, key).Scan(&s.Identity.ID, &s.Identity.Name, &role, &s.Credential)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, mapError(err)
	}
	s.Identity.Role = domain.Role(role)
	if s.Identity.Role != domain.RoleAuthenticated {
		// guests are never persisted with a credential
		s.Identity.Role = domain.RoleGuest
		s.Credential = ""
	}
	return &s, nil
}

func (r *sessionRepository) Save(ctx context.Context, key string, session *domain.Session) error {
	if session == nil {
		return fmt.Errorf("nil session: %w", domain.ErrInvalidInput)
	}
	if session.Identity.IsGuest() {
		return fmt.Errorf("guest sessions are not persisted: %w", domain.ErrInvalidInput)
	}
	query := `
		INSERT INTO client_sessions (session_key, user_id, user_name, role, credential, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_key) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			user_name = EXCLUDED.user_name,
			role = EXCLUDED.role,
			credential = EXCLUDED.credential,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.DB.ExecContext(ctx, query,
		key,
		session.Identity.ID,
		session.Identity.Name,
		string(session.Identity.Role),
		session.Credential,
		r.now().UTC(),
	)
	return mapError(err)
}

func (r *sessionRepository) Delete(ctx context.Context, key string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM client_sessions WHERE session_key = $1`, key)
	if err != nil {
		return mapError(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var perr *pq.Error
	if errors.As(err, &perr) && perr.Code == undefinedTable {
		return ErrSchemaMissing
	}
	return err
}
