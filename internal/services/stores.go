// Package services implements the VideoTube use cases on top of the
// repository interfaces declared here.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

// AccountStore persists verified accounts.
type AccountStore interface {
	Create(ctx context.Context, account models.Account) error
	FindByID(ctx context.Context, id string) (models.Account, error)
	FindByLogin(ctx context.Context, login string) (models.Account, error)
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	UpdateProfile(ctx context.Context, id, fullName, email string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateAvatar(ctx context.Context, id string, avatar models.Asset) error
	UpdateCoverImage(ctx context.Context, id string, cover models.Asset) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (models.Account, error)
	RecordView(ctx context.Context, accountID, videoID string) error
	WatchHistory(ctx context.Context, accountID string) ([]models.VideoSummary, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	PullFromHistories(ctx context.Context, videoIDs []string) error
	Delete(ctx context.Context, id string) error
}

// PendingAccountStore persists registrations awaiting verification.
type PendingAccountStore interface {
	Create(ctx context.Context, pending models.PendingAccount) error
	DeleteByUsernameOrEmail(ctx context.Context, username, email string) ([]models.PendingAccount, error)
	FindByTokenHash(ctx context.Context, tokenHash string, now time.Time) (models.PendingAccount, error)
	ExistsByLogin(ctx context.Context, login string, now time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) ([]models.PendingAccount, error)
}

// SessionCleaner removes refresh sessions in bulk.
type SessionCleaner interface {
	DeleteByAccount(ctx context.Context, accountID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// VideoStore persists videos and their aggregate projections.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	Detail(ctx context.Context, id, viewerID string) (models.VideoDetail, error)
	Update(ctx context.Context, video models.Video) error
	SetPublished(ctx context.Context, id string, published bool) error
	IncrementViews(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
	IDsByOwner(ctx context.Context, ownerID string) ([]string, error)
	Delete(ctx context.Context, id string) error
	DeleteByIDs(ctx context.Context, ids []string) error
	List(ctx context.Context, filter repositories.VideoFilter, req repositories.PageRequest) (repositories.Page[models.VideoSummary], error)
	LikedBy(ctx context.Context, accountID string, req repositories.PageRequest) (repositories.Page[models.VideoSummary], error)
	ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error)
}

// CommentStore persists comments on videos and posts.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
	DeleteByIDs(ctx context.Context, ids []string) error
	IDsByOwner(ctx context.Context, ownerID string) ([]string, error)
	IDsForVideos(ctx context.Context, videoIDs []string) ([]string, error)
	IDsForPosts(ctx context.Context, postIDs []string) ([]string, error)
	ListForVideo(ctx context.Context, videoID, viewerID string, req repositories.PageRequest) (repositories.Page[models.CommentView], error)
	ListForPost(ctx context.Context, postID, viewerID string, req repositories.PageRequest) (repositories.Page[models.CommentView], error)
}

// LikeStore persists like join records.
type LikeStore interface {
	Find(ctx context.Context, likedBy string, kind models.LikeTarget, targetID string) (models.Like, error)
	Create(ctx context.Context, like models.Like) error
	Delete(ctx context.Context, id string) error
	DeleteByAccount(ctx context.Context, accountID string) error
	DeleteForTargets(ctx context.Context, kind models.LikeTarget, targetIDs []string) error
	CountForTarget(ctx context.Context, kind models.LikeTarget, targetID string) (int64, error)
}

// SubscriptionStore persists subscriber to channel edges.
type SubscriptionStore interface {
	Find(ctx context.Context, subscriberID, channelID string) (models.Subscription, error)
	Create(ctx context.Context, sub models.Subscription) error
	Delete(ctx context.Context, id string) error
	DeleteForAccount(ctx context.Context, accountID string) error
	Subscribers(ctx context.Context, channelID string, req repositories.PageRequest) (repositories.Page[models.SubscriptionView], error)
	Channels(ctx context.Context, subscriberID string, req repositories.PageRequest) (repositories.Page[models.SubscriptionView], error)
}

// NotificationStore persists notifications scoped to their recipient.
type NotificationStore interface {
	Create(ctx context.Context, n models.Notification) error
	List(ctx context.Context, recipientID string, req repositories.PageRequest) (repositories.Page[models.NotificationView], error)
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	Delete(ctx context.Context, id, recipientID string) error
	DeleteAll(ctx context.Context, recipientID string) (int64, error)
	DeleteForAccount(ctx context.Context, accountID string) error
	DeleteForVideos(ctx context.Context, videoIDs []string) error
	DeleteForComments(ctx context.Context, commentIDs []string) error
}

// PostStore persists posts.
type PostStore interface {
	Create(ctx context.Context, post models.Post) error
	FindByID(ctx context.Context, id string) (models.Post, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
	IDsByOwner(ctx context.Context, ownerID string) ([]string, error)
	DeleteByOwner(ctx context.Context, ownerID string) error
	ListByOwner(ctx context.Context, ownerID, viewerID string, req repositories.PageRequest) (repositories.Page[models.PostView], error)
}

// PlaylistStore persists playlists and their ordered video lists.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	Videos(ctx context.Context, playlistID string) ([]models.VideoSummary, error)
	Update(ctx context.Context, id, name, description string) error
	AddVideo(ctx context.Context, playlistID, videoID string) (bool, error)
	RemoveVideo(ctx context.Context, playlistID, videoID string) (bool, error)
	PullVideos(ctx context.Context, videoIDs []string) error
	Delete(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, ownerID string) error
	ListByOwner(ctx context.Context, ownerID string, req repositories.PageRequest) (repositories.Page[models.Playlist], error)
}

// Stores groups every store bound to the same connection or transaction.
type Stores struct {
	Accounts        AccountStore
	PendingAccounts PendingAccountStore
	Sessions        SessionCleaner
	Videos          VideoStore
	Comments        CommentStore
	Likes           LikeStore
	Subscriptions   SubscriptionStore
	Notifications   NotificationStore
	Posts           PostStore
	Playlists       PlaylistStore
}

// UnitOfWork runs fn against stores bound to one transaction. Every mutation
// made through those stores commits together or not at all.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

// MediaStore moves uploaded files into object storage.
type MediaStore interface {
	Upload(ctx context.Context, localPath string, kind media.Kind) (media.Upload, error)
	Delete(ctx context.Context, key string) error
}

// Mailer delivers account mail.
type Mailer interface {
	SendVerification(ctx context.Context, to, name, token string) error
	SendPasswordReset(ctx context.Context, to, name, resetURL string) error
}

func isNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound)
}

// lookupError converts a repository read failure into a client-facing error.
func lookupError(err error, notFound string) error {
	if isNotFound(err) {
		return apperr.NotFound(notFound)
	}
	return apperr.Internal("something went wrong", err)
}

// visibleVideo loads a video the viewer may see: published, or owned by the
// viewer. Hidden drafts read as not found.
func visibleVideo(ctx context.Context, videos VideoStore, videoID, viewerID string) (models.Video, error) {
	video, err := videos.FindByID(ctx, videoID)
	if err != nil {
		return models.Video{}, lookupError(err, "video not found")
	}
	if !video.IsPublished && video.OwnerID != viewerID {
		return models.Video{}, apperr.NotFound("video not found")
	}
	return video, nil
}
