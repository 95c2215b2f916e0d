package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/db"
)

// PostgresSessionStore persists hashed refresh tokens to PostgreSQL.
type PostgresSessionStore struct {
	q db.Querier
}

var _ auth.SessionStore = (*PostgresSessionStore)(nil)

// NewPostgresSessionStore constructs a session store bound to q.
func NewPostgresSessionStore(q db.Querier) *PostgresSessionStore {
	return &PostgresSessionStore{q: q}
}

// Save stores or updates a session record.
func (s *PostgresSessionStore) Save(ctx context.Context, session auth.Session) error {
	_, err := s.q.Exec(ctx, `
        INSERT INTO sessions (refresh_token_hash, account_id, expires_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (refresh_token_hash)
        DO UPDATE SET account_id = EXCLUDED.account_id, expires_at = EXCLUDED.expires_at
    `, session.TokenHash, session.AccountID, session.ExpiresAt.UTC())
	if err != nil {
		return mapWriteError("upsert session", err)
	}

	return nil
}

// Find loads a session by its refresh token hash.
func (s *PostgresSessionStore) Find(ctx context.Context, tokenHash string) (auth.Session, error) {
	row := s.q.QueryRow(ctx, `
        SELECT refresh_token_hash, account_id, expires_at
        FROM sessions
        WHERE refresh_token_hash = $1
    `, tokenHash)

	var session auth.Session
	var expiresAt time.Time
	if err := row.Scan(&session.TokenHash, &session.AccountID, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.Session{}, auth.ErrSessionNotFound
		}
		return auth.Session{}, fmt.Errorf("select session: %w", err)
	}

	session.ExpiresAt = expiresAt.UTC()
	return session, nil
}

// Delete removes a session by its refresh token hash.
func (s *PostgresSessionStore) Delete(ctx context.Context, tokenHash string) error {
	tag, err := s.q.Exec(ctx, `
        DELETE FROM sessions
        WHERE refresh_token_hash = $1
    `, tokenHash)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrSessionNotFound
	}

	return nil
}

// DeleteByAccount revokes every session held by accountID.
func (s *PostgresSessionStore) DeleteByAccount(ctx context.Context, accountID string) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM sessions WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("delete sessions for account: %w", err)
	}
	return nil
}

// DeleteExpired purges sessions whose refresh window has closed.
func (s *PostgresSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.q.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
