package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
)

const playlistColumns = `p.id, p.owner_id, p.name, p.description, p.video_ids, p.created_at, p.updated_at`

// PostgresPlaylistRepository provides PostgreSQL-backed persistence for playlists.
type PostgresPlaylistRepository struct {
	q db.Querier
}

// NewPostgresPlaylistRepository constructs a playlist repository bound to q.
func NewPostgresPlaylistRepository(q db.Querier) *PostgresPlaylistRepository {
	return &PostgresPlaylistRepository{q: q}
}

// Create persists a new playlist.
func (r *PostgresPlaylistRepository) Create(ctx context.Context, playlist models.Playlist) error {
	videoIDs := playlist.VideoIDs
	if videoIDs == nil {
		videoIDs = []string{}
	}
	_, err := r.q.Exec(ctx, `
        INSERT INTO playlists (id, owner_id, name, description, video_ids, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, videoIDs,
		playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		return mapWriteError("insert playlist", err)
	}
	return nil
}

// FindByID fetches a playlist by id.
func (r *PostgresPlaylistRepository) FindByID(ctx context.Context, id string) (models.Playlist, error) {
	row := r.q.QueryRow(ctx, `SELECT `+playlistColumns+` FROM playlists p WHERE p.id = $1`, id)
	playlist, err := scanPlaylist(row)
	if err != nil {
		return models.Playlist{}, mapReadError("select playlist", err)
	}
	return playlist, nil
}

// Videos resolves a playlist's video ids into published videos with owners, in
// playlist order.
func (r *PostgresPlaylistRepository) Videos(ctx context.Context, playlistID string) ([]models.VideoSummary, error) {
	rows, err := r.q.Query(ctx, `
        SELECT `+videoColumns+`, `+ownerColumns+`
        FROM playlists p
        CROSS JOIN LATERAL unnest(p.video_ids) WITH ORDINALITY AS pv(video_id, pos)
        JOIN videos v ON v.id = pv.video_id
        JOIN accounts a ON a.id = v.owner_id
        WHERE p.id = $1 AND v.is_published = TRUE
        ORDER BY pv.pos
    `, playlistID)
	if err != nil {
		return nil, fmt.Errorf("query playlist videos: %w", err)
	}
	videos, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.VideoSummary, error) {
		return scanVideoSummary(row)
	})
	if err != nil {
		return nil, fmt.Errorf("collect playlist videos: %w", err)
	}
	return videos, nil
}

// Update stores a playlist's name and description.
func (r *PostgresPlaylistRepository) Update(ctx context.Context, id, name, description string) error {
	tag, err := r.q.Exec(ctx, `
        UPDATE playlists SET name = $2, description = $3, updated_at = now() WHERE id = $1
    `, id, name, description)
	if err != nil {
		return mapWriteError("update playlist", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddVideo appends videoID unless the playlist already holds it. It reports
// whether the list changed.
func (r *PostgresPlaylistRepository) AddVideo(ctx context.Context, playlistID, videoID string) (bool, error) {
	tag, err := r.q.Exec(ctx, `
        UPDATE playlists
        SET video_ids = array_append(video_ids, $2::TEXT), updated_at = now()
        WHERE id = $1 AND NOT ($2::TEXT = ANY(video_ids))
    `, playlistID, videoID)
	if err != nil {
		return false, fmt.Errorf("add playlist video: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveVideo pulls videoID from the playlist and reports whether it was present.
func (r *PostgresPlaylistRepository) RemoveVideo(ctx context.Context, playlistID, videoID string) (bool, error) {
	tag, err := r.q.Exec(ctx, `
        UPDATE playlists
        SET video_ids = array_remove(video_ids, $2::TEXT), updated_at = now()
        WHERE id = $1 AND $2::TEXT = ANY(video_ids)
    `, playlistID, videoID)
	if err != nil {
		return false, fmt.Errorf("remove playlist video: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// PullVideos removes videoIDs from every playlist, preserving order.
func (r *PostgresPlaylistRepository) PullVideos(ctx context.Context, videoIDs []string) error {
	if len(videoIDs) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx, `
        UPDATE playlists
        SET video_ids = ARRAY(
            SELECT pv.video_id
            FROM unnest(video_ids) WITH ORDINALITY AS pv(video_id, pos)
            WHERE NOT (pv.video_id = ANY($1::TEXT[]))
            ORDER BY pv.pos
        ), updated_at = now()
        WHERE video_ids && $1::TEXT[]
    `, videoIDs)
	if err != nil {
		return fmt.Errorf("pull videos from playlists: %w", err)
	}
	return nil
}

// Delete removes a playlist.
func (r *PostgresPlaylistRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return mapWriteError("delete playlist", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByOwner removes every playlist owned by ownerID.
func (r *PostgresPlaylistRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM playlists WHERE owner_id = $1`, ownerID); err != nil {
		return mapWriteError("delete playlists by owner", err)
	}
	return nil
}

// ListByOwner returns one page of ownerID's playlists.
func (r *PostgresPlaylistRepository) ListByOwner(ctx context.Context, ownerID string, req PageRequest) (Page[models.Playlist], error) {
	page, err := paginate(ctx, r.q, listQuery{
		columns:     playlistColumns,
		from:        "playlists p WHERE p.owner_id = $1",
		args:        []any{ownerID},
		sortColumns: map[string]string{"createdAt": "p.created_at", "updatedAt": "p.updated_at", "name": "p.name"},
		defaultSort: "createdAt",
		tieBreak:    "p.id",
	}, req, scanPlaylist)
	if err != nil {
		return Page[models.Playlist]{}, fmt.Errorf("list playlists: %w", err)
	}
	return page, nil
}

func scanPlaylist(row pgx.Row) (models.Playlist, error) {
	var p models.Playlist
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.VideoIDs, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return models.Playlist{}, err
	}
	if p.VideoIDs == nil {
		p.VideoIDs = []string{}
	}
	return p, nil
}
