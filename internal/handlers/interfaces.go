package handlers

import (
	"context"

	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
	"github.com/videotube/backend/internal/services"
)

// AccountService captures registration, session and profile workflows.
type AccountService interface {
	Register(ctx context.Context, in services.RegisterInput) error
	VerifyEmail(ctx context.Context, token string) (models.Account, error)
	Login(ctx context.Context, login, password string) (models.Account, models.SessionTokens, error)
	Logout(ctx context.Context, refreshToken string)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	CurrentUser(ctx context.Context, accountID string) (models.Account, error)
	ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error
	UpdateAccount(ctx context.Context, accountID, fullName, email string) (models.Account, error)
	UpdateAvatar(ctx context.Context, accountID, path string) (models.Account, error)
	UpdateCoverImage(ctx context.Context, accountID, path string) (models.Account, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, accountID string) ([]models.VideoSummary, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// CascadeDeleter removes accounts and videos together with everything that references them.
type CascadeDeleter interface {
	DeleteAccount(ctx context.Context, accountID string) error
	DeleteVideo(ctx context.Context, actorID, videoID string) error
}

// VideoService captures the video catalogue workflows.
type VideoService interface {
	Publish(ctx context.Context, actorID string, in services.PublishInput) (models.Video, error)
	List(ctx context.Context, query, ownerID string, req repositories.PageRequest) (repositories.Page[models.VideoSummary], error)
	Get(ctx context.Context, videoID, viewerID string) (models.VideoDetail, error)
	Update(ctx context.Context, actorID, videoID string, in services.UpdateVideoInput) (models.Video, error)
	TogglePublish(ctx context.Context, actorID, videoID string) (models.Video, error)
}

// CommentService captures comment workflows on videos and posts.
type CommentService interface {
	AddToVideo(ctx context.Context, actorID, videoID, content string) (models.Comment, error)
	AddToPost(ctx context.Context, actorID, postID, content string) (models.Comment, error)
	ListForVideo(ctx context.Context, videoID, viewerID string, req repositories.PageRequest) (repositories.Page[models.CommentView], error)
	ListForPost(ctx context.Context, postID, viewerID string, req repositories.PageRequest) (repositories.Page[models.CommentView], error)
	Update(ctx context.Context, actorID, commentID, content string) (models.Comment, error)
	Delete(ctx context.Context, actorID, commentID string) error
}

// EngagementService captures like and subscription toggles.
type EngagementService interface {
	ToggleVideoLike(ctx context.Context, actorID, videoID string) (bool, error)
	ToggleCommentLike(ctx context.Context, actorID, commentID string) (bool, error)
	TogglePostLike(ctx context.Context, actorID, postID string) (bool, error)
	ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error)
	LikedVideos(ctx context.Context, accountID string, req repositories.PageRequest) (repositories.Page[models.VideoSummary], error)
	Subscribers(ctx context.Context, channelID string, req repositories.PageRequest) (repositories.Page[models.SubscriptionView], error)
	Channels(ctx context.Context, subscriberID string, req repositories.PageRequest) (repositories.Page[models.SubscriptionView], error)
}

// PostService captures community post workflows.
type PostService interface {
	Create(ctx context.Context, actorID, content string) (models.Post, error)
	ListByOwner(ctx context.Context, ownerID, viewerID string, req repositories.PageRequest) (repositories.Page[models.PostView], error)
	Update(ctx context.Context, actorID, postID, content string) (models.Post, error)
	Delete(ctx context.Context, actorID, postID string) error
}

// PlaylistService captures playlist workflows.
type PlaylistService interface {
	Create(ctx context.Context, actorID, name, description string) (models.Playlist, error)
	Get(ctx context.Context, playlistID string) (models.PlaylistDetail, error)
	ListByOwner(ctx context.Context, ownerID string, req repositories.PageRequest) (repositories.Page[models.Playlist], error)
	Update(ctx context.Context, actorID, playlistID, name, description string) (models.Playlist, error)
	Delete(ctx context.Context, actorID, playlistID string) error
	AddVideo(ctx context.Context, actorID, videoID, playlistID string) (models.Playlist, error)
	RemoveVideo(ctx context.Context, actorID, videoID, playlistID string) (models.Playlist, error)
}

// NotificationService captures the recipient's notification inbox.
type NotificationService interface {
	List(ctx context.Context, recipientID string, req repositories.PageRequest) (repositories.Page[models.NotificationView], error)
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	Delete(ctx context.Context, id, recipientID string) error
	Clear(ctx context.Context, recipientID string) (int64, error)
}

// DashboardService captures channel statistics.
type DashboardService interface {
	Stats(ctx context.Context, channelID string) (models.ChannelStats, error)
	Videos(ctx context.Context, channelID string, req repositories.PageRequest) (repositories.Page[models.VideoSummary], error)
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
