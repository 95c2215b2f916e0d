package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/db"
)

// Set bundles every repository bound to the same Querier, either the pool or
// an open transaction.
type Set struct {
	Accounts        *PostgresAccountRepository
	PendingAccounts *PostgresPendingAccountRepository
	Sessions        *PostgresSessionStore
	Videos          *PostgresVideoRepository
	Comments        *PostgresCommentRepository
	Likes           *PostgresLikeRepository
	Subscriptions   *PostgresSubscriptionRepository
	Notifications   *PostgresNotificationRepository
	Posts           *PostgresPostRepository
	Playlists       *PostgresPlaylistRepository
}

// NewSet binds every repository to q.
func NewSet(q db.Querier) Set {
	return Set{
		Accounts:        NewPostgresAccountRepository(q),
		PendingAccounts: NewPostgresPendingAccountRepository(q),
		Sessions:        NewPostgresSessionStore(q),
		Videos:          NewPostgresVideoRepository(q),
		Comments:        NewPostgresCommentRepository(q),
		Likes:           NewPostgresLikeRepository(q),
		Subscriptions:   NewPostgresSubscriptionRepository(q),
		Notifications:   NewPostgresNotificationRepository(q),
		Posts:           NewPostgresPostRepository(q),
		Playlists:       NewPostgresPlaylistRepository(q),
	}
}

// InTx runs fn with a Set bound to a single transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func InTx(ctx context.Context, pool db.Pool, fn func(ctx context.Context, set Set) error) error {
	return db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		return fn(ctx, NewSet(tx))
	})
}
