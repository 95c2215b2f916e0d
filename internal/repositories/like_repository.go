package repositories

import (
	"context"
	"fmt"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
)

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes.
type PostgresLikeRepository struct {
	q db.Querier
}

// NewPostgresLikeRepository constructs a like repository bound to q.
func NewPostgresLikeRepository(q db.Querier) *PostgresLikeRepository {
	return &PostgresLikeRepository{q: q}
}

// Find returns the like left by likedBy on the target.
func (r *PostgresLikeRepository) Find(ctx context.Context, likedBy string, kind models.LikeTarget, targetID string) (models.Like, error) {
	var like models.Like
	err := r.q.QueryRow(ctx, `
        SELECT id, liked_by, target_kind, target_id, created_at
        FROM likes
        WHERE liked_by = $1 AND target_kind = $2 AND target_id = $3
    `, likedBy, string(kind), targetID).Scan(&like.ID, &like.LikedBy, &like.TargetKind, &like.TargetID, &like.CreatedAt)
	if err != nil {
		return models.Like{}, mapReadError("select like", err)
	}
	return like, nil
}

// Create persists a like. A duplicate (likedBy, kind, target) returns ErrConflict.
func (r *PostgresLikeRepository) Create(ctx context.Context, like models.Like) error {
	_, err := r.q.Exec(ctx, `
        INSERT INTO likes (id, liked_by, target_kind, target_id, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, like.ID, like.LikedBy, string(like.TargetKind), like.TargetID, like.CreatedAt)
	if err != nil {
		return mapWriteError("insert like", err)
	}
	return nil
}

// Delete removes a like by id.
func (r *PostgresLikeRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM likes WHERE id = $1`, id)
	if err != nil {
		return mapWriteError("delete like", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByAccount removes every like made by accountID.
func (r *PostgresLikeRepository) DeleteByAccount(ctx context.Context, accountID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM likes WHERE liked_by = $1`, accountID); err != nil {
		return fmt.Errorf("delete likes by account: %w", err)
	}
	return nil
}

// DeleteForTargets removes every like on the given targets of one kind.
func (r *PostgresLikeRepository) DeleteForTargets(ctx context.Context, kind models.LikeTarget, targetIDs []string) error {
	if len(targetIDs) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx, `
        DELETE FROM likes WHERE target_kind = $1 AND target_id = ANY($2::TEXT[])
    `, string(kind), targetIDs)
	if err != nil {
		return fmt.Errorf("delete %s likes: %w", kind, err)
	}
	return nil
}

// CountForTarget returns the number of likes on a single target.
func (r *PostgresLikeRepository) CountForTarget(ctx context.Context, kind models.LikeTarget, targetID string) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx, `
        SELECT count(*) FROM likes WHERE target_kind = $1 AND target_id = $2
    `, string(kind), targetID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return count, nil
}
