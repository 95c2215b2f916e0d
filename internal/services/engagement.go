package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

// EngagementService toggles likes and subscriptions.
type EngagementService struct {
	stores   Stores
	notifier *Notifier
	now      func() time.Time
}

// NewEngagementService constructs an EngagementService.
func NewEngagementService(stores Stores, notifier *Notifier) *EngagementService {
	return &EngagementService{stores: stores, notifier: notifier, now: time.Now}
}

// ToggleVideoLike flips the actor's like on a video and reports whether it is now liked.
func (s *EngagementService) ToggleVideoLike(ctx context.Context, actorID, videoID string) (bool, error) {
	if !validID(videoID) {
		return false, apperr.Validation("invalid video id")
	}
	video, err := visibleVideo(ctx, s.stores.Videos, videoID, actorID)
	if err != nil {
		return false, err
	}
	return s.toggleLike(ctx, actorID, models.LikeTargetVideo, videoID, Notice{
		RecipientID: video.OwnerID,
		VideoID:     video.ID,
		Action:      ActionLikedVideo,
	})
}

// ToggleCommentLike flips the actor's like on a comment.
func (s *EngagementService) ToggleCommentLike(ctx context.Context, actorID, commentID string) (bool, error) {
	if !validID(commentID) {
		return false, apperr.Validation("invalid comment id")
	}
	comment, err := s.stores.Comments.FindByID(ctx, commentID)
	if err != nil {
		return false, lookupError(err, "comment not found")
	}
	return s.toggleLike(ctx, actorID, models.LikeTargetComment, commentID, Notice{
		RecipientID: comment.OwnerID,
		VideoID:     comment.VideoID,
		CommentID:   comment.ID,
		Action:      ActionLikedComment,
	})
}

// TogglePostLike flips the actor's like on a post.
func (s *EngagementService) TogglePostLike(ctx context.Context, actorID, postID string) (bool, error) {
	if !validID(postID) {
		return false, apperr.Validation("invalid post id")
	}
	post, err := s.stores.Posts.FindByID(ctx, postID)
	if err != nil {
		return false, lookupError(err, "post not found")
	}
	return s.toggleLike(ctx, actorID, models.LikeTargetPost, postID, Notice{
		RecipientID: post.OwnerID,
		Action:      ActionLikedPost,
	})
}

func (s *EngagementService) toggleLike(ctx context.Context, actorID string, kind models.LikeTarget, targetID string, notice Notice) (bool, error) {
	existing, err := s.stores.Likes.Find(ctx, actorID, kind, targetID)
	switch {
	case err == nil:
		if err := s.stores.Likes.Delete(ctx, existing.ID); err != nil && !isNotFound(err) {
			return false, apperr.Internal("failed to remove like", err)
		}
		return false, nil
	case !isNotFound(err):
		return false, apperr.Internal("failed to look up like", err)
	}

	err = s.stores.Likes.Create(ctx, models.Like{
		ID:         uuid.NewString(),
		LikedBy:    actorID,
		TargetKind: kind,
		TargetID:   targetID,
		CreatedAt:  s.now().UTC(),
	})
	if errors.Is(err, repositories.ErrConflict) {
		return true, nil
	}
	if err != nil {
		return false, apperr.Internal("failed to add like", err)
	}

	notice.SenderID = actorID
	notice.Type = models.NotificationLike
	s.notifier.Notify(ctx, notice)
	return true, nil
}

// ToggleSubscription flips the subscriber's subscription to channelID and
// reports whether it is now subscribed.
func (s *EngagementService) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error) {
	if !validID(channelID) {
		return false, apperr.Validation("invalid channel id")
	}
	if subscriberID == channelID {
		return false, apperr.Validation("you cannot subscribe to your own channel")
	}
	if _, err := s.stores.Accounts.FindByID(ctx, channelID); err != nil {
		return false, lookupError(err, "channel not found")
	}

	existing, err := s.stores.Subscriptions.Find(ctx, subscriberID, channelID)
	switch {
	case err == nil:
		if err := s.stores.Subscriptions.Delete(ctx, existing.ID); err != nil && !isNotFound(err) {
			return false, apperr.Internal("failed to unsubscribe", err)
		}
		return false, nil
	case !isNotFound(err):
		return false, apperr.Internal("failed to look up subscription", err)
	}

	err = s.stores.Subscriptions.Create(ctx, models.Subscription{
		ID:           uuid.NewString(),
		SubscriberID: subscriberID,
		ChannelID:    channelID,
		CreatedAt:    s.now().UTC(),
	})
	if errors.Is(err, repositories.ErrConflict) {
		return true, nil
	}
	if err != nil {
		return false, apperr.Internal("failed to subscribe", err)
	}

	s.notifier.Notify(ctx, Notice{
		SenderID:    subscriberID,
		RecipientID: channelID,
		Type:        models.NotificationSubscribe,
		Action:      ActionSubscribed,
	})
	return true, nil
}

// LikedVideos lists the published videos the account has liked.
func (s *EngagementService) LikedVideos(ctx context.Context, accountID string, req repositories.PageRequest) (repositories.Page[models.VideoSummary], error) {
	page, err := s.stores.Videos.LikedBy(ctx, accountID, req)
	if err != nil {
		return repositories.Page[models.VideoSummary]{}, apperr.Internal("failed to fetch liked videos", err)
	}
	return page, nil
}

// Subscribers lists the accounts subscribed to channelID.
func (s *EngagementService) Subscribers(ctx context.Context, channelID string, req repositories.PageRequest) (repositories.Page[models.SubscriptionView], error) {
	if !validID(channelID) {
		return repositories.Page[models.SubscriptionView]{}, apperr.Validation("invalid channel id")
	}
	page, err := s.stores.Subscriptions.Subscribers(ctx, channelID, req)
	if err != nil {
		return repositories.Page[models.SubscriptionView]{}, apperr.Internal("failed to fetch subscribers", err)
	}
	return page, nil
}

// Channels lists the channels subscriberID is subscribed to.
func (s *EngagementService) Channels(ctx context.Context, subscriberID string, req repositories.PageRequest) (repositories.Page[models.SubscriptionView], error) {
	if !validID(subscriberID) {
		return repositories.Page[models.SubscriptionView]{}, apperr.Validation("invalid subscriber id")
	}
	page, err := s.stores.Subscriptions.Channels(ctx, subscriberID, req)
	if err != nil {
		return repositories.Page[models.SubscriptionView]{}, apperr.Internal("failed to fetch subscribed channels", err)
	}
	return page, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
