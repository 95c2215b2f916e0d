package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

// CommentService manages comments on videos and posts.
type CommentService struct {
	stores   Stores
	notifier *Notifier
	now      func() time.Time
}

// NewCommentService constructs a CommentService.
func NewCommentService(stores Stores, notifier *Notifier) *CommentService {
	return &CommentService{stores: stores, notifier: notifier, now: time.Now}
}

// AddToVideo comments on a video the actor can see.
func (s *CommentService) AddToVideo(ctx context.Context, actorID, videoID, content string) (models.Comment, error) {
	if !validID(videoID) {
		return models.Comment{}, apperr.Validation("invalid video id")
	}
	content, err := requireContent(content)
	if err != nil {
		return models.Comment{}, err
	}
	video, err := visibleVideo(ctx, s.stores.Videos, videoID, actorID)
	if err != nil {
		return models.Comment{}, err
	}

	comment, err := s.create(ctx, models.Comment{Content: content, OwnerID: actorID, VideoID: video.ID})
	if err != nil {
		return models.Comment{}, err
	}

	s.notifier.Notify(ctx, Notice{
		SenderID:    actorID,
		RecipientID: video.OwnerID,
		Type:        models.NotificationComment,
		VideoID:     video.ID,
		CommentID:   comment.ID,
		Action:      ActionCommentedVideo,
	})
	return comment, nil
}

// AddToPost comments on a post.
func (s *CommentService) AddToPost(ctx context.Context, actorID, postID, content string) (models.Comment, error) {
	if !validID(postID) {
		return models.Comment{}, apperr.Validation("invalid post id")
	}
	content, err := requireContent(content)
	if err != nil {
		return models.Comment{}, err
	}
	post, err := s.stores.Posts.FindByID(ctx, postID)
	if err != nil {
		return models.Comment{}, lookupError(err, "post not found")
	}

	comment, err := s.create(ctx, models.Comment{Content: content, OwnerID: actorID, PostID: post.ID})
	if err != nil {
		return models.Comment{}, err
	}

	s.notifier.Notify(ctx, Notice{
		SenderID:    actorID,
		RecipientID: post.OwnerID,
		Type:        models.NotificationComment,
		CommentID:   comment.ID,
		Action:      ActionCommentedPost,
	})
	return comment, nil
}

func (s *CommentService) create(ctx context.Context, comment models.Comment) (models.Comment, error) {
	now := s.now().UTC()
	comment.ID = uuid.NewString()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	if err := s.stores.Comments.Create(ctx, comment); err != nil {
		if isNotFound(err) {
			return models.Comment{}, apperr.NotFound("comment target not found")
		}
		return models.Comment{}, apperr.Internal("failed to add comment", err)
	}
	return comment, nil
}

// ListForVideo pages through the comments of a visible video.
func (s *CommentService) ListForVideo(ctx context.Context, videoID, viewerID string, req repositories.PageRequest) (repositories.Page[models.CommentView], error) {
	if !validID(videoID) {
		return repositories.Page[models.CommentView]{}, apperr.Validation("invalid video id")
	}
	if _, err := visibleVideo(ctx, s.stores.Videos, videoID, viewerID); err != nil {
		return repositories.Page[models.CommentView]{}, err
	}
	page, err := s.stores.Comments.ListForVideo(ctx, videoID, viewerID, req)
	if err != nil {
		return repositories.Page[models.CommentView]{}, apperr.Internal("failed to fetch comments", err)
	}
	return page, nil
}

// ListForPost pages through the comments of a post.
func (s *CommentService) ListForPost(ctx context.Context, postID, viewerID string, req repositories.PageRequest) (repositories.Page[models.CommentView], error) {
	if !validID(postID) {
		return repositories.Page[models.CommentView]{}, apperr.Validation("invalid post id")
	}
	if _, err := s.stores.Posts.FindByID(ctx, postID); err != nil {
		return repositories.Page[models.CommentView]{}, lookupError(err, "post not found")
	}
	page, err := s.stores.Comments.ListForPost(ctx, postID, viewerID, req)
	if err != nil {
		return repositories.Page[models.CommentView]{}, apperr.Internal("failed to fetch comments", err)
	}
	return page, nil
}

// Update replaces the content of the actor's own comment.
func (s *CommentService) Update(ctx context.Context, actorID, commentID, content string) (models.Comment, error) {
	comment, err := s.owned(ctx, actorID, commentID)
	if err != nil {
		return models.Comment{}, err
	}
	content, err = requireContent(content)
	if err != nil {
		return models.Comment{}, err
	}

	if err := s.stores.Comments.UpdateContent(ctx, comment.ID, content); err != nil {
		return models.Comment{}, lookupError(err, "comment not found")
	}
	comment.Content = content
	comment.UpdatedAt = s.now().UTC()
	return comment, nil
}

// Delete removes the actor's own comment along with its likes and notifications.
func (s *CommentService) Delete(ctx context.Context, actorID, commentID string) error {
	comment, err := s.owned(ctx, actorID, commentID)
	if err != nil {
		return err
	}

	ids := []string{comment.ID}
	if err := s.stores.Likes.DeleteForTargets(ctx, models.LikeTargetComment, ids); err != nil {
		return apperr.Internal("failed to delete comment likes", err)
	}
	if err := s.stores.Notifications.DeleteForComments(ctx, ids); err != nil {
		return apperr.Internal("failed to delete comment notifications", err)
	}
	if err := s.stores.Comments.Delete(ctx, comment.ID); err != nil && !isNotFound(err) {
		return apperr.Internal("failed to delete comment", err)
	}
	return nil
}

func (s *CommentService) owned(ctx context.Context, actorID, commentID string) (models.Comment, error) {
	if !validID(commentID) {
		return models.Comment{}, apperr.Validation("invalid comment id")
	}
	comment, err := s.stores.Comments.FindByID(ctx, commentID)
	if err != nil {
		return models.Comment{}, lookupError(err, "comment not found")
	}
	if comment.OwnerID != actorID {
		return models.Comment{}, apperr.Forbidden("you can only modify your own comments")
	}
	return comment, nil
}

func requireContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperr.Validation("content is required")
	}
	return content, nil
}
