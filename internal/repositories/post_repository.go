package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
)

// PostgresPostRepository provides PostgreSQL-backed persistence for posts.
type PostgresPostRepository struct {
	q db.Querier
}

// NewPostgresPostRepository constructs a post repository bound to q.
func NewPostgresPostRepository(q db.Querier) *PostgresPostRepository {
	return &PostgresPostRepository{q: q}
}

// Create persists a new post.
func (r *PostgresPostRepository) Create(ctx context.Context, post models.Post) error {
	_, err := r.q.Exec(ctx, `
        INSERT INTO posts (id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, post.ID, post.OwnerID, post.Content, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		return mapWriteError("insert post", err)
	}
	return nil
}

// FindByID fetches a post by id.
func (r *PostgresPostRepository) FindByID(ctx context.Context, id string) (models.Post, error) {
	var post models.Post
	err := r.q.QueryRow(ctx, `
        SELECT id, owner_id, content, created_at, updated_at FROM posts WHERE id = $1
    `, id).Scan(&post.ID, &post.OwnerID, &post.Content, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return models.Post{}, mapReadError("select post", err)
	}
	return post, nil
}

// UpdateContent replaces the text of a post.
func (r *PostgresPostRepository) UpdateContent(ctx context.Context, id, content string) error {
	tag, err := r.q.Exec(ctx, `UPDATE posts SET content = $2, updated_at = now() WHERE id = $1`, id, content)
	if err != nil {
		return mapWriteError("update post", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a single post.
func (r *PostgresPostRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return mapWriteError("delete post", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IDsByOwner returns the ids of posts owned by ownerID.
func (r *PostgresPostRepository) IDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	ids, err := collectIDs(ctx, r.q, `SELECT id FROM posts WHERE owner_id = $1`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("select post ids by owner: %w", err)
	}
	return ids, nil
}

// DeleteByOwner removes every post owned by ownerID.
func (r *PostgresPostRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM posts WHERE owner_id = $1`, ownerID); err != nil {
		return mapWriteError("delete posts by owner", err)
	}
	return nil
}

// ListByOwner returns one page of ownerID's posts with like information for viewerID.
func (r *PostgresPostRepository) ListByOwner(ctx context.Context, ownerID, viewerID string, req PageRequest) (Page[models.PostView], error) {
	page, err := paginate(ctx, r.q, listQuery{
		columns: `p.id, p.owner_id, p.content, p.created_at, p.updated_at, ` + ownerColumns + `,
            (SELECT count(*) FROM likes l WHERE l.target_kind = 'post' AND l.target_id = p.id),
            EXISTS (SELECT 1 FROM likes l WHERE l.target_kind = 'post' AND l.target_id = p.id AND l.liked_by = $2)`,
		from:        "posts p JOIN accounts a ON a.id = p.owner_id WHERE p.owner_id = $1 AND $2::TEXT IS NOT NULL",
		args:        []any{ownerID, viewerID},
		sortColumns: map[string]string{"createdAt": "p.created_at", "updatedAt": "p.updated_at"},
		defaultSort: "createdAt",
		tieBreak:    "p.id",
	}, req, scanPostView)
	if err != nil {
		return Page[models.PostView]{}, fmt.Errorf("list posts: %w", err)
	}
	return page, nil
}

func scanPostView(row pgx.Row) (models.PostView, error) {
	var view models.PostView
	p := &view.Post
	dest := []any{&p.ID, &p.OwnerID, &p.Content, &p.CreatedAt, &p.UpdatedAt}
	dest = append(dest, ownerDest(&view.Owner)...)
	dest = append(dest, &view.LikesCount, &view.IsLiked)
	if err := row.Scan(dest...); err != nil {
		return models.PostView{}, err
	}
	return view, nil
}
