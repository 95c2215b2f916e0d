package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
)

const accountColumns = `id, username, email, full_name, password_hash, avatar_url, avatar_key,
        cover_url, cover_key, is_verified, reset_token_hash, reset_token_expires_at,
        watch_history, created_at, updated_at`

// PostgresAccountRepository provides PostgreSQL-backed persistence for verified accounts.
type PostgresAccountRepository struct {
	q db.Querier
}

// NewPostgresAccountRepository constructs an account repository bound to q.
func NewPostgresAccountRepository(q db.Querier) *PostgresAccountRepository {
	return &PostgresAccountRepository{q: q}
}

// Create persists a new verified account.
func (r *PostgresAccountRepository) Create(ctx context.Context, account models.Account) error {
	_, err := r.q.Exec(ctx, `
        INSERT INTO accounts (id, username, email, full_name, password_hash, avatar_url, avatar_key,
            cover_url, cover_key, is_verified, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, $10, $11)
    `, account.ID, account.Username, account.Email, account.FullName, account.PasswordHash,
		account.Avatar.URL, account.Avatar.Key, account.CoverImage.URL, account.CoverImage.Key,
		account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return mapWriteError("insert account", err)
	}
	return nil
}

// FindByID fetches an account by id.
func (r *PostgresAccountRepository) FindByID(ctx context.Context, id string) (models.Account, error) {
	row := r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	account, err := scanAccount(row)
	if err != nil {
		return models.Account{}, mapReadError("select account by id", err)
	}
	return account, nil
}

// FindByLogin fetches an account whose username or email equals login.
func (r *PostgresAccountRepository) FindByLogin(ctx context.Context, login string) (models.Account, error) {
	row := r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1 OR email = $1 LIMIT 1`, login)
	account, err := scanAccount(row)
	if err != nil {
		return models.Account{}, mapReadError("select account by login", err)
	}
	return account, nil
}

// FindByEmail fetches an account by email address.
func (r *PostgresAccountRepository) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	row := r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	account, err := scanAccount(row)
	if err != nil {
		return models.Account{}, mapReadError("select account by email", err)
	}
	return account, nil
}

// ExistsByUsernameOrEmail reports whether a verified account already holds either identifier.
func (r *PostgresAccountRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1 OR email = $2)
    `, username, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check account exists: %w", err)
	}
	return exists, nil
}

// UpdateProfile changes the account's full name and email.
func (r *PostgresAccountRepository) UpdateProfile(ctx context.Context, id, fullName, email string) error {
	tag, err := r.q.Exec(ctx, `
        UPDATE accounts SET full_name = $2, email = $3, updated_at = now() WHERE id = $1
    `, id, fullName, email)
	if err != nil {
		return mapWriteError("update account profile", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword stores a new password hash and invalidates any reset token.
func (r *PostgresAccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.q.Exec(ctx, `
        UPDATE accounts
        SET password_hash = $2, reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = now()
        WHERE id = $1
    `, id, passwordHash)
	if err != nil {
		return mapWriteError("update account password", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAvatar replaces the avatar reference.
func (r *PostgresAccountRepository) UpdateAvatar(ctx context.Context, id string, avatar models.Asset) error {
	tag, err := r.q.Exec(ctx, `
        UPDATE accounts SET avatar_url = $2, avatar_key = $3, updated_at = now() WHERE id = $1
    `, id, avatar.URL, avatar.Key)
	if err != nil {
		return mapWriteError("update account avatar", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateCoverImage replaces the cover image reference.
func (r *PostgresAccountRepository) UpdateCoverImage(ctx context.Context, id string, cover models.Asset) error {
	tag, err := r.q.Exec(ctx, `
        UPDATE accounts SET cover_url = $2, cover_key = $3, updated_at = now() WHERE id = $1
    `, id, cover.URL, cover.Key)
	if err != nil {
		return mapWriteError("update account cover image", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResetToken records a password reset token hash; an empty hash clears it.
func (r *PostgresAccountRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	var (
		hash    *string
		expires *time.Time
	)
	if tokenHash != "" {
		hash = &tokenHash
		utc := expiresAt.UTC()
		expires = &utc
	}

	tag, err := r.q.Exec(ctx, `
        UPDATE accounts SET reset_token_hash = $2, reset_token_expires_at = $3 WHERE id = $1
    `, id, hash, expires)
	if err != nil {
		return mapWriteError("set reset token", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByResetToken returns the account holding an unexpired reset token hash.
func (r *PostgresAccountRepository) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (models.Account, error) {
	row := r.q.QueryRow(ctx, `
        SELECT `+accountColumns+`
        FROM accounts
        WHERE reset_token_hash = $1 AND reset_token_expires_at > $2
    `, tokenHash, now.UTC())
	account, err := scanAccount(row)
	if err != nil {
		return models.Account{}, mapReadError("select account by reset token", err)
	}
	return account, nil
}

// RecordView moves videoID to the front of the account's watch history.
func (r *PostgresAccountRepository) RecordView(ctx context.Context, accountID, videoID string) error {
	_, err := r.q.Exec(ctx, `
        UPDATE accounts
        SET watch_history = array_prepend($2::TEXT, array_remove(watch_history, $2::TEXT))
        WHERE id = $1
    `, accountID, videoID)
	if err != nil {
		return fmt.Errorf("record watch history: %w", err)
	}
	return nil
}

// WatchHistory resolves the account's watch history into videos with owners,
// most recent first. Ids of videos that no longer exist are skipped.
func (r *PostgresAccountRepository) WatchHistory(ctx context.Context, accountID string) ([]models.VideoSummary, error) {
	rows, err := r.q.Query(ctx, `
        SELECT `+videoColumns+`, `+ownerColumns+`
        FROM accounts viewer
        CROSS JOIN LATERAL unnest(viewer.watch_history) WITH ORDINALITY AS h(video_id, pos)
        JOIN videos v ON v.id = h.video_id
        JOIN accounts a ON a.id = v.owner_id
        WHERE viewer.id = $1
        ORDER BY h.pos
    `, accountID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	videos := []models.VideoSummary{}
	for rows.Next() {
		summary, err := scanVideoSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watch history: %w", err)
		}
		videos = append(videos, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch history: %w", err)
	}
	return videos, nil
}

// ChannelProfile loads the public channel page for username as seen by viewerID.
func (r *PostgresAccountRepository) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	var profile models.ChannelProfile
	err := r.q.QueryRow(ctx, `
        SELECT a.id, a.username, a.full_name, a.email, a.avatar_url, a.cover_url,
            (SELECT count(*) FROM subscriptions s WHERE s.channel_id = a.id),
            (SELECT count(*) FROM subscriptions s WHERE s.subscriber_id = a.id),
            EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = a.id AND s.subscriber_id = $2)
        FROM accounts a
        WHERE a.username = $1
    `, username, viewerID).Scan(
		&profile.ID, &profile.Username, &profile.FullName, &profile.Email, &profile.Avatar,
		&profile.CoverImage, &profile.SubscribersCount, &profile.ChannelsSubscribedTo, &profile.IsSubscribed,
	)
	if err != nil {
		return models.ChannelProfile{}, mapReadError("select channel profile", err)
	}
	return profile, nil
}

// PullFromHistories removes videoIDs from every account's watch history.
func (r *PostgresAccountRepository) PullFromHistories(ctx context.Context, videoIDs []string) error {
	if len(videoIDs) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx, `
        UPDATE accounts
        SET watch_history = ARRAY(
            SELECT h.video_id
            FROM unnest(watch_history) WITH ORDINALITY AS h(video_id, pos)
            WHERE NOT (h.video_id = ANY($1::TEXT[]))
            ORDER BY h.pos
        )
        WHERE watch_history && $1::TEXT[]
    `, videoIDs)
	if err != nil {
		return fmt.Errorf("pull videos from watch histories: %w", err)
	}
	return nil
}

// Delete removes the account record.
func (r *PostgresAccountRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return mapWriteError("delete account", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var (
		account      models.Account
		resetHash    *string
		resetExpires *time.Time
	)
	if err := row.Scan(
		&account.ID, &account.Username, &account.Email, &account.FullName, &account.PasswordHash,
		&account.Avatar.URL, &account.Avatar.Key, &account.CoverImage.URL, &account.CoverImage.Key,
		&account.IsVerified, &resetHash, &resetExpires, &account.WatchHistory,
		&account.CreatedAt, &account.UpdatedAt,
	); err != nil {
		return models.Account{}, err
	}
	if resetHash != nil {
		account.ResetTokenHash = *resetHash
	}
	if resetExpires != nil {
		t := resetExpires.UTC()
		account.ResetTokenExpiresAt = &t
	}
	if account.WatchHistory == nil {
		account.WatchHistory = []string{}
	}
	return account, nil
}
