package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
)

// PostgresPendingAccountRepository stores registrations awaiting email verification.
// Expired rows are never returned and are purged by DeleteExpired.
type PostgresPendingAccountRepository struct {
	q db.Querier
}

// NewPostgresPendingAccountRepository constructs a pending account repository bound to q.
func NewPostgresPendingAccountRepository(q db.Querier) *PostgresPendingAccountRepository {
	return &PostgresPendingAccountRepository{q: q}
}

// Create persists a pending registration.
func (r *PostgresPendingAccountRepository) Create(ctx context.Context, p models.PendingAccount) error {
	_, err := r.q.Exec(ctx, `
        INSERT INTO pending_accounts (id, username, email, full_name, password_hash, avatar_url, avatar_key,
            cover_url, cover_key, verification_token_hash, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, p.ID, p.Username, p.Email, p.FullName, p.PasswordHash, p.Avatar.URL, p.Avatar.Key,
		p.CoverImage.URL, p.CoverImage.Key, p.VerificationTokenHash, p.ExpiresAt.UTC(), p.CreatedAt)
	if err != nil {
		return mapWriteError("insert pending account", err)
	}
	return nil
}

// DeleteByUsernameOrEmail removes earlier registrations that used either identifier
// and returns them so their uploaded media can be released.
func (r *PostgresPendingAccountRepository) DeleteByUsernameOrEmail(ctx context.Context, username, email string) ([]models.PendingAccount, error) {
	rows, err := r.q.Query(ctx, `
        DELETE FROM pending_accounts
        WHERE username = $1 OR email = $2
        RETURNING `+pendingColumns, username, email)
	if err != nil {
		return nil, fmt.Errorf("delete pending accounts: %w", err)
	}
	return collectPending(rows)
}

// FindByTokenHash returns the unexpired registration holding tokenHash.
func (r *PostgresPendingAccountRepository) FindByTokenHash(ctx context.Context, tokenHash string, now time.Time) (models.PendingAccount, error) {
	row := r.q.QueryRow(ctx, `
        SELECT `+pendingColumns+`
        FROM pending_accounts
        WHERE verification_token_hash = $1 AND expires_at > $2
    `, tokenHash, now.UTC())
	p, err := scanPending(row)
	if err != nil {
		return models.PendingAccount{}, mapReadError("select pending account", err)
	}
	return p, nil
}

// ExistsByLogin reports whether an unexpired registration uses login as username or email.
func (r *PostgresPendingAccountRepository) ExistsByLogin(ctx context.Context, login string, now time.Time) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM pending_accounts WHERE (username = $1 OR email = $1) AND expires_at > $2
        )
    `, login, now.UTC()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending account: %w", err)
	}
	return exists, nil
}

// Delete removes a pending registration.
func (r *PostgresPendingAccountRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM pending_accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pending account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired purges registrations whose verification window has closed and
// returns them so their uploaded media can be released.
func (r *PostgresPendingAccountRepository) DeleteExpired(ctx context.Context, now time.Time) ([]models.PendingAccount, error) {
	rows, err := r.q.Query(ctx, `
        DELETE FROM pending_accounts
        WHERE expires_at <= $1
        RETURNING `+pendingColumns, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("delete expired pending accounts: %w", err)
	}
	return collectPending(rows)
}

const pendingColumns = `id, username, email, full_name, password_hash, avatar_url, avatar_key,
        cover_url, cover_key, verification_token_hash, expires_at, created_at`

func collectPending(rows pgx.Rows) ([]models.PendingAccount, error) {
	defer rows.Close()

	var removed []models.PendingAccount
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending account: %w", err)
		}
		removed = append(removed, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending accounts: %w", err)
	}
	return removed, nil
}

func scanPending(row pgx.Row) (models.PendingAccount, error) {
	var p models.PendingAccount
	err := row.Scan(&p.ID, &p.Username, &p.Email, &p.FullName, &p.PasswordHash, &p.Avatar.URL, &p.Avatar.Key,
		&p.CoverImage.URL, &p.CoverImage.Key, &p.VerificationTokenHash, &p.ExpiresAt, &p.CreatedAt)
	if err != nil {
		return models.PendingAccount{}, err
	}
	p.ExpiresAt = p.ExpiresAt.UTC()
	return p, nil
}
