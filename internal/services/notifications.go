package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

// Notification actions appended to the sender's username.
const (
	ActionLikedVideo     = "liked your video"
	ActionLikedComment   = "liked your comment"
	ActionLikedPost      = "liked your post"
	ActionCommentedVideo = "commented on your video"
	ActionCommentedPost  = "commented on your post"
	ActionSubscribed     = "subscribed to your channel"
)

const defaultNotifyDeadline = 10 * time.Second

// Notice describes an event that may produce a notification.
type Notice struct {
	SenderID    string
	RecipientID string
	Type        models.NotificationType
	VideoID     string
	CommentID   string
	Action      string
}

// Notifier writes notifications in the background. Failures are logged and
// never reach the request that triggered them.
type Notifier struct {
	accounts      AccountStore
	notifications NotificationStore
	timeout       time.Duration

	wg  sync.WaitGroup
	now func() time.Time
}

// NewNotifier constructs a Notifier. Each write gets its own timeout.
func NewNotifier(accounts AccountStore, notifications NotificationStore, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = defaultNotifyDeadline
	}
	return &Notifier{
		accounts:      accounts,
		notifications: notifications,
		timeout:       timeout,
		now:           time.Now,
	}
}

// Notify schedules a notification for n.RecipientID. Self-notifications are dropped.
func (n *Notifier) Notify(ctx context.Context, notice Notice) {
	if n == nil || notice.SenderID == "" || notice.RecipientID == "" || notice.SenderID == notice.RecipientID {
		return
	}

	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		writeCtx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()

		if err := n.write(writeCtx, notice); err != nil {
			logging.FromContext(ctx).Warn("failed to create notification",
				slog.String("type", string(notice.Type)),
				slog.String("recipient_id", notice.RecipientID),
				slog.Any("error", err),
			)
		}
	}()
}

// Wait blocks until every scheduled notification has been written or abandoned.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

func (n *Notifier) write(ctx context.Context, notice Notice) error {
	sender, err := n.accounts.FindByID(ctx, notice.SenderID)
	if err != nil {
		return fmt.Errorf("load sender: %w", err)
	}

	return n.notifications.Create(ctx, models.Notification{
		ID:          uuid.NewString(),
		RecipientID: notice.RecipientID,
		SenderID:    notice.SenderID,
		Type:        notice.Type,
		VideoID:     notice.VideoID,
		CommentID:   notice.CommentID,
		Message:     sender.Username + " " + notice.Action,
		CreatedAt:   n.now().UTC(),
	})
}

// NotificationService exposes the recipient's inbox.
type NotificationService struct {
	notifications NotificationStore
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(notifications NotificationStore) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// List returns one page of the recipient's notifications, newest first by default.
func (s *NotificationService) List(ctx context.Context, recipientID string, req repositories.PageRequest) (repositories.Page[models.NotificationView], error) {
	page, err := s.notifications.List(ctx, recipientID, req)
	if err != nil {
		return repositories.Page[models.NotificationView]{}, apperr.Internal("failed to fetch notifications", err)
	}
	return page, nil
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	count, err := s.notifications.UnreadCount(ctx, recipientID)
	if err != nil {
		return 0, apperr.Internal("failed to count notifications", err)
	}
	return count, nil
}

// MarkRead marks one of the recipient's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID string) error {
	if !validID(id) {
		return apperr.Validation("invalid notification id")
	}
	if err := s.notifications.MarkRead(ctx, id, recipientID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("notification not found")
		}
		return apperr.Internal("failed to update notification", err)
	}
	return nil
}

// MarkAllRead marks every notification of the recipient as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	updated, err := s.notifications.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, apperr.Internal("failed to update notifications", err)
	}
	return updated, nil
}

// Delete removes one of the recipient's notifications.
func (s *NotificationService) Delete(ctx context.Context, id, recipientID string) error {
	if !validID(id) {
		return apperr.Validation("invalid notification id")
	}
	if err := s.notifications.Delete(ctx, id, recipientID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("notification not found")
		}
		return apperr.Internal("failed to delete notification", err)
	}
	return nil
}

// Clear removes all of the recipient's notifications.
func (s *NotificationService) Clear(ctx context.Context, recipientID string) (int64, error) {
	deleted, err := s.notifications.DeleteAll(ctx, recipientID)
	if err != nil {
		return 0, apperr.Internal("failed to clear notifications", err)
	}
	return deleted, nil
}
