package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
)

const commentColumns = `c.id, c.content, c.owner_id, COALESCE(c.video_id, ''), COALESCE(c.post_id, ''),
        c.created_at, c.updated_at`

// PostgresCommentRepository provides PostgreSQL-backed persistence for comments.
type PostgresCommentRepository struct {
	q db.Querier
}

// NewPostgresCommentRepository constructs a comment repository bound to q.
func NewPostgresCommentRepository(q db.Querier) *PostgresCommentRepository {
	return &PostgresCommentRepository{q: q}
}

// Create persists a new comment attached to a video or a post.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) error {
	_, err := r.q.Exec(ctx, `
        INSERT INTO comments (id, content, owner_id, video_id, post_id, created_at, updated_at)
        VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
    `, comment.ID, comment.Content, comment.OwnerID, comment.VideoID, comment.PostID,
		comment.CreatedAt, comment.UpdatedAt)
	if err != nil {
		return mapWriteError("insert comment", err)
	}
	return nil
}

// FindByID fetches a comment by id.
func (r *PostgresCommentRepository) FindByID(ctx context.Context, id string) (models.Comment, error) {
	var comment models.Comment
	err := r.q.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments c WHERE c.id = $1`, id).
		Scan(commentDest(&comment)...)
	if err != nil {
		return models.Comment{}, mapReadError("select comment", err)
	}
	return comment, nil
}

// UpdateContent replaces the text of a comment.
func (r *PostgresCommentRepository) UpdateContent(ctx context.Context, id, content string) error {
	tag, err := r.q.Exec(ctx, `UPDATE comments SET content = $2, updated_at = now() WHERE id = $1`, id, content)
	if err != nil {
		return mapWriteError("update comment", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a single comment.
func (r *PostgresCommentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return mapWriteError("delete comment", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByIDs removes every comment in ids.
func (r *PostgresCommentRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM comments WHERE id = ANY($1::TEXT[])`, ids); err != nil {
		return mapWriteError("delete comments", err)
	}
	return nil
}

// IDsByOwner returns the ids of comments written by ownerID.
func (r *PostgresCommentRepository) IDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	ids, err := collectIDs(ctx, r.q, `SELECT id FROM comments WHERE owner_id = $1`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("select comment ids by owner: %w", err)
	}
	return ids, nil
}

// IDsForVideos returns the ids of comments attached to any of videoIDs.
func (r *PostgresCommentRepository) IDsForVideos(ctx context.Context, videoIDs []string) ([]string, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}
	ids, err := collectIDs(ctx, r.q, `SELECT id FROM comments WHERE video_id = ANY($1::TEXT[])`, videoIDs)
	if err != nil {
		return nil, fmt.Errorf("select comment ids by video: %w", err)
	}
	return ids, nil
}

// IDsForPosts returns the ids of comments attached to any of postIDs.
func (r *PostgresCommentRepository) IDsForPosts(ctx context.Context, postIDs []string) ([]string, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	ids, err := collectIDs(ctx, r.q, `SELECT id FROM comments WHERE post_id = ANY($1::TEXT[])`, postIDs)
	if err != nil {
		return nil, fmt.Errorf("select comment ids by post: %w", err)
	}
	return ids, nil
}

// ListForVideo returns one page of comments on videoID, newest first by default.
func (r *PostgresCommentRepository) ListForVideo(ctx context.Context, videoID, viewerID string, req PageRequest) (Page[models.CommentView], error) {
	return r.list(ctx, "c.video_id = $1", videoID, viewerID, req)
}

// ListForPost returns one page of comments on postID.
func (r *PostgresCommentRepository) ListForPost(ctx context.Context, postID, viewerID string, req PageRequest) (Page[models.CommentView], error) {
	return r.list(ctx, "c.post_id = $1", postID, viewerID, req)
}

func (r *PostgresCommentRepository) list(ctx context.Context, predicate, targetID, viewerID string, req PageRequest) (Page[models.CommentView], error) {
	page, err := paginate(ctx, r.q, listQuery{
		columns: commentColumns + ", " + ownerColumns + `,
            (SELECT count(*) FROM likes l WHERE l.target_kind = 'comment' AND l.target_id = c.id),
            EXISTS (SELECT 1 FROM likes l WHERE l.target_kind = 'comment' AND l.target_id = c.id AND l.liked_by = $2)`,
		// $2 is the viewer id. The count query shares args, so the predicate must reference it too.
		from:        "comments c JOIN accounts a ON a.id = c.owner_id WHERE " + predicate + " AND $2::TEXT IS NOT NULL",
		args:        []any{targetID, viewerID},
		sortColumns: map[string]string{"createdAt": "c.created_at", "updatedAt": "c.updated_at"},
		defaultSort: "createdAt",
		tieBreak:    "c.id",
	}, req, scanCommentView)
	if err != nil {
		return Page[models.CommentView]{}, fmt.Errorf("list comments: %w", err)
	}
	return page, nil
}

func commentDest(c *models.Comment) []any {
	return []any{&c.ID, &c.Content, &c.OwnerID, &c.VideoID, &c.PostID, &c.CreatedAt, &c.UpdatedAt}
}

func scanCommentView(row pgx.Row) (models.CommentView, error) {
	var view models.CommentView
	dest := append(commentDest(&view.Comment), ownerDest(&view.Owner)...)
	dest = append(dest, &view.LikesCount, &view.IsLiked)
	if err := row.Scan(dest...); err != nil {
		return models.CommentView{}, err
	}
	return view, nil
}
