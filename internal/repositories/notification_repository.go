package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
)

// DefaultNotificationPageLimit is the page size for notification listings.
const DefaultNotificationPageLimit = 20

// PostgresNotificationRepository provides PostgreSQL-backed persistence for notifications.
type PostgresNotificationRepository struct {
	q db.Querier
}

// NewPostgresNotificationRepository constructs a notification repository bound to q.
func NewPostgresNotificationRepository(q db.Querier) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{q: q}
}

// Create persists a notification.
func (r *PostgresNotificationRepository) Create(ctx context.Context, n models.Notification) error {
	_, err := r.q.Exec(ctx, `
        INSERT INTO notifications (id, recipient_id, sender_id, type, video_id, comment_id, message, is_read, created_at)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9)
    `, n.ID, n.RecipientID, n.SenderID, string(n.Type), n.VideoID, n.CommentID, n.Message, n.IsRead, n.CreatedAt)
	if err != nil {
		return mapWriteError("insert notification", err)
	}
	return nil
}

// List returns one page of recipientID's notifications, newest first.
func (r *PostgresNotificationRepository) List(ctx context.Context, recipientID string, req PageRequest) (Page[models.NotificationView], error) {
	page, err := paginate(ctx, r.q, listQuery{
		columns: `n.id, n.recipient_id, n.sender_id, n.type, COALESCE(n.video_id, ''), COALESCE(n.comment_id, ''),
            n.message, n.is_read, n.created_at, ` + ownerColumns,
		from:        "notifications n JOIN accounts a ON a.id = n.sender_id WHERE n.recipient_id = $1",
		args:        []any{recipientID},
		sortColumns: map[string]string{"createdAt": "n.created_at"},
		defaultSort: "createdAt",
		tieBreak:    "n.id",
	}, req, scanNotificationView)
	if err != nil {
		return Page[models.NotificationView]{}, fmt.Errorf("list notifications: %w", err)
	}
	return page, nil
}

// UnreadCount returns the number of unread notifications for recipientID.
func (r *PostgresNotificationRepository) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx, `
        SELECT count(*) FROM notifications WHERE recipient_id = $1 AND is_read = FALSE
    `, recipientID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flags one of recipientID's notifications as read.
func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	tag, err := r.q.Exec(ctx, `
        UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2
    `, id, recipientID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flags every notification of recipientID as read and returns how many changed.
func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `
        UPDATE notifications SET is_read = TRUE WHERE recipient_id = $1 AND is_read = FALSE
    `, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes one of recipientID's notifications.
func (r *PostgresNotificationRepository) Delete(ctx context.Context, id, recipientID string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every notification of recipientID and returns how many were removed.
func (r *PostgresNotificationRepository) DeleteAll(ctx context.Context, recipientID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM notifications WHERE recipient_id = $1`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("delete all notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteForAccount removes notifications sent or received by accountID.
func (r *PostgresNotificationRepository) DeleteForAccount(ctx context.Context, accountID string) error {
	_, err := r.q.Exec(ctx, `
        DELETE FROM notifications WHERE recipient_id = $1 OR sender_id = $1
    `, accountID)
	if err != nil {
		return fmt.Errorf("delete notifications for account: %w", err)
	}
	return nil
}

// DeleteForVideos removes notifications referencing any of videoIDs.
func (r *PostgresNotificationRepository) DeleteForVideos(ctx context.Context, videoIDs []string) error {
	if len(videoIDs) == 0 {
		return nil
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM notifications WHERE video_id = ANY($1::TEXT[])`, videoIDs); err != nil {
		return fmt.Errorf("delete notifications for videos: %w", err)
	}
	return nil
}

// DeleteForComments removes notifications referencing any of commentIDs.
func (r *PostgresNotificationRepository) DeleteForComments(ctx context.Context, commentIDs []string) error {
	if len(commentIDs) == 0 {
		return nil
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM notifications WHERE comment_id = ANY($1::TEXT[])`, commentIDs); err != nil {
		return fmt.Errorf("delete notifications for comments: %w", err)
	}
	return nil
}

func scanNotificationView(row pgx.Row) (models.NotificationView, error) {
	var view models.NotificationView
	n := &view.Notification
	dest := []any{&n.ID, &n.RecipientID, &n.SenderID, &n.Type, &n.VideoID, &n.CommentID, &n.Message, &n.IsRead, &n.CreatedAt}
	dest = append(dest, ownerDest(&view.Sender)...)
	if err := row.Scan(dest...); err != nil {
		return models.NotificationView{}, err
	}
	return view, nil
}
