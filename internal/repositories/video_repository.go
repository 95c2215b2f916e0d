package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
)

const (
	videoColumns = `v.id, v.owner_id, v.video_url, v.video_key, v.thumbnail_url, v.thumbnail_key,
        v.title, v.description, v.duration, v.views, v.is_published, v.created_at, v.updated_at`
	ownerColumns = `a.id, a.username, a.full_name, a.avatar_url`
)

var videoSortColumns = map[string]string{
	"createdAt": "v.created_at",
	"updatedAt": "v.updated_at",
	"views":     "v.views",
	"duration":  "v.duration",
	"title":     "v.title",
}

// VideoFilter narrows a video listing.
type VideoFilter struct {
	// Query matches title or description case-insensitively.
	Query   string
	OwnerID string
	// IncludeUnpublished lists drafts too; only the owner's dashboard sets it.
	IncludeUnpublished bool
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	q db.Querier
}

// NewPostgresVideoRepository constructs a video repository bound to q.
func NewPostgresVideoRepository(q db.Querier) *PostgresVideoRepository {
	return &PostgresVideoRepository{q: q}
}

// Create persists a new video.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	_, err := r.q.Exec(ctx, `
        INSERT INTO videos (id, owner_id, video_url, video_key, thumbnail_url, thumbnail_key,
            title, description, duration, views, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `, video.ID, video.OwnerID, video.VideoFile.URL, video.VideoFile.Key, video.Thumbnail.URL,
		video.Thumbnail.Key, video.Title, video.Description, video.Duration, video.Views,
		video.IsPublished, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		return mapWriteError("insert video", err)
	}
	return nil
}

// FindByID fetches a video by id.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	row := r.q.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos v WHERE v.id = $1`, id)
	video, err := scanVideo(row)
	if err != nil {
		return models.Video{}, mapReadError("select video", err)
	}
	return video, nil
}

// Detail loads a video with its owner, like count and the viewer's like and
// subscription state. An empty viewerID yields false flags.
func (r *PostgresVideoRepository) Detail(ctx context.Context, id, viewerID string) (models.VideoDetail, error) {
	var detail models.VideoDetail
	err := r.q.QueryRow(ctx, `
        SELECT `+videoColumns+`, `+ownerColumns+`,
            (SELECT count(*) FROM subscriptions s WHERE s.channel_id = a.id),
            EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = a.id AND s.subscriber_id = $2),
            (SELECT count(*) FROM likes l WHERE l.target_kind = 'video' AND l.target_id = v.id),
            EXISTS (SELECT 1 FROM likes l WHERE l.target_kind = 'video' AND l.target_id = v.id AND l.liked_by = $2)
        FROM videos v
        JOIN accounts a ON a.id = v.owner_id
        WHERE v.id = $1
    `, id, viewerID).Scan(append(videoDest(&detail.Video),
		&detail.Owner.ID, &detail.Owner.Username, &detail.Owner.FullName, &detail.Owner.Avatar,
		&detail.Owner.SubscribersCount, &detail.Owner.IsSubscribed, &detail.LikesCount, &detail.IsLiked)...)
	if err != nil {
		return models.VideoDetail{}, mapReadError("select video detail", err)
	}
	return detail, nil
}

// Update stores the editable fields of a video.
func (r *PostgresVideoRepository) Update(ctx context.Context, video models.Video) error {
	tag, err := r.q.Exec(ctx, `
        UPDATE videos
        SET title = $2, description = $3, thumbnail_url = $4, thumbnail_key = $5, updated_at = now()
        WHERE id = $1
    `, video.ID, video.Title, video.Description, video.Thumbnail.URL, video.Thumbnail.Key)
	if err != nil {
		return mapWriteError("update video", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPublished changes a video's visibility.
func (r *PostgresVideoRepository) SetPublished(ctx context.Context, id string, published bool) error {
	tag, err := r.q.Exec(ctx, `
        UPDATE videos SET is_published = $2, updated_at = now() WHERE id = $1
    `, id, published)
	if err != nil {
		return mapWriteError("update video visibility", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementViews adds one view to the video.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment video views: %w", err)
	}
	return nil
}

// ListByOwner returns every video owned by ownerID, drafts included.
func (r *PostgresVideoRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error) {
	rows, err := r.q.Query(ctx, `SELECT `+videoColumns+` FROM videos v WHERE v.owner_id = $1`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query videos by owner: %w", err)
	}
	videos, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Video, error) {
		return scanVideo(row)
	})
	if err != nil {
		return nil, fmt.Errorf("collect videos by owner: %w", err)
	}
	return videos, nil
}

// IDsByOwner returns the ids of every video owned by ownerID.
func (r *PostgresVideoRepository) IDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	ids, err := collectIDs(ctx, r.q, `SELECT id FROM videos WHERE owner_id = $1`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("select video ids by owner: %w", err)
	}
	return ids, nil
}

// Delete removes a single video.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return mapWriteError("delete video", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByIDs removes every video in ids.
func (r *PostgresVideoRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM videos WHERE id = ANY($1::TEXT[])`, ids); err != nil {
		return mapWriteError("delete videos", err)
	}
	return nil
}

// List returns one page of videos joined with their owners.
func (r *PostgresVideoRepository) List(ctx context.Context, filter VideoFilter, req PageRequest) (Page[models.VideoSummary], error) {
	var (
		where []string
		args  []any
	)
	if !filter.IncludeUnpublished {
		where = append(where, "v.is_published = TRUE")
	}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		where = append(where, fmt.Sprintf("v.owner_id = $%d", len(args)))
	}
	if query := strings.TrimSpace(filter.Query); query != "" {
		args = append(args, "%"+escapeLike(query)+"%")
		where = append(where, fmt.Sprintf("(v.title ILIKE $%[1]d OR v.description ILIKE $%[1]d)", len(args)))
	}

	from := "videos v JOIN accounts a ON a.id = v.owner_id"
	if len(where) > 0 {
		from += " WHERE " + strings.Join(where, " AND ")
	}

	page, err := paginate(ctx, r.q, listQuery{
		columns:     videoColumns + ", " + ownerColumns,
		from:        from,
		args:        args,
		sortColumns: videoSortColumns,
		defaultSort: "createdAt",
		tieBreak:    "v.id",
	}, req, scanVideoSummary)
	if err != nil {
		return Page[models.VideoSummary]{}, fmt.Errorf("list videos: %w", err)
	}
	return page, nil
}

// LikedBy returns one page of videos liked by accountID, most recently liked first.
func (r *PostgresVideoRepository) LikedBy(ctx context.Context, accountID string, req PageRequest) (Page[models.VideoSummary], error) {
	page, err := paginate(ctx, r.q, listQuery{
		columns: videoColumns + ", " + ownerColumns,
		from: `likes l
            JOIN videos v ON l.target_kind = 'video' AND v.id = l.target_id
            JOIN accounts a ON a.id = v.owner_id
            WHERE l.liked_by = $1 AND v.is_published = TRUE`,
		args:        []any{accountID},
		sortColumns: map[string]string{"createdAt": "l.created_at"},
		defaultSort: "createdAt",
		tieBreak:    "l.id",
	}, req, scanVideoSummary)
	if err != nil {
		return Page[models.VideoSummary]{}, fmt.Errorf("list liked videos: %w", err)
	}
	return page, nil
}

// ChannelStats aggregates the dashboard counters for ownerID.
func (r *PostgresVideoRepository) ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error) {
	var stats models.ChannelStats
	err := r.q.QueryRow(ctx, `
        SELECT
            (SELECT count(*) FROM videos WHERE owner_id = $1),
            (SELECT COALESCE(sum(views), 0)::BIGINT FROM videos WHERE owner_id = $1),
            (SELECT count(*) FROM subscriptions WHERE channel_id = $1),
            (SELECT count(*) FROM likes l JOIN videos v ON l.target_kind = 'video' AND v.id = l.target_id
                WHERE v.owner_id = $1)
    `, ownerID).Scan(&stats.TotalVideos, &stats.TotalViews, &stats.TotalSubscribers, &stats.TotalLikes)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("select channel stats: %w", err)
	}
	return stats, nil
}

func videoDest(v *models.Video) []any {
	return []any{
		&v.ID, &v.OwnerID, &v.VideoFile.URL, &v.VideoFile.Key, &v.Thumbnail.URL, &v.Thumbnail.Key,
		&v.Title, &v.Description, &v.Duration, &v.Views, &v.IsPublished, &v.CreatedAt, &v.UpdatedAt,
	}
}

func ownerDest(o *models.Owner) []any {
	return []any{&o.ID, &o.Username, &o.FullName, &o.Avatar}
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var video models.Video
	if err := row.Scan(videoDest(&video)...); err != nil {
		return models.Video{}, err
	}
	return video, nil
}

func scanVideoSummary(row pgx.Row) (models.VideoSummary, error) {
	var summary models.VideoSummary
	if err := row.Scan(append(videoDest(&summary.Video), ownerDest(&summary.Owner)...)...); err != nil {
		return models.VideoSummary{}, err
	}
	return summary, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
