package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

// PostService manages short text posts.
type PostService struct {
	stores Stores
	now    func() time.Time
}

// NewPostService constructs a PostService.
func NewPostService(stores Stores) *PostService {
	return &PostService{stores: stores, now: time.Now}
}

// Create publishes a post for the actor.
func (s *PostService) Create(ctx context.Context, actorID, content string) (models.Post, error) {
	content, err := requireContent(content)
	if err != nil {
		return models.Post{}, err
	}

	now := s.now().UTC()
	post := models.Post{
		ID:        uuid.NewString(),
		OwnerID:   actorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.stores.Posts.Create(ctx, post); err != nil {
		return models.Post{}, apperr.Internal("failed to create post", err)
	}
	return post, nil
}

// ListByOwner pages through an account's posts.
func (s *PostService) ListByOwner(ctx context.Context, ownerID, viewerID string, req repositories.PageRequest) (repositories.Page[models.PostView], error) {
	if !validID(ownerID) {
		return repositories.Page[models.PostView]{}, apperr.Validation("invalid user id")
	}
	if _, err := s.stores.Accounts.FindByID(ctx, ownerID); err != nil {
		return repositories.Page[models.PostView]{}, lookupError(err, "user not found")
	}
	page, err := s.stores.Posts.ListByOwner(ctx, ownerID, viewerID, req)
	if err != nil {
		return repositories.Page[models.PostView]{}, apperr.Internal("failed to fetch posts", err)
	}
	return page, nil
}

// Update replaces the content of the actor's own post.
func (s *PostService) Update(ctx context.Context, actorID, postID, content string) (models.Post, error) {
	post, err := s.owned(ctx, actorID, postID)
	if err != nil {
		return models.Post{}, err
	}
	content, err = requireContent(content)
	if err != nil {
		return models.Post{}, err
	}

	if err := s.stores.Posts.UpdateContent(ctx, post.ID, content); err != nil {
		return models.Post{}, lookupError(err, "post not found")
	}
	post.Content = content
	post.UpdatedAt = s.now().UTC()
	return post, nil
}

// Delete removes the actor's post, its comments and every like on either.
func (s *PostService) Delete(ctx context.Context, actorID, postID string) error {
	post, err := s.owned(ctx, actorID, postID)
	if err != nil {
		return err
	}

	postIDs := []string{post.ID}
	commentIDs, err := s.stores.Comments.IDsForPosts(ctx, postIDs)
	if err != nil {
		return apperr.Internal("failed to load post comments", err)
	}

	if err := s.stores.Likes.DeleteForTargets(ctx, models.LikeTargetPost, postIDs); err != nil {
		return apperr.Internal("failed to delete post likes", err)
	}
	if err := s.stores.Likes.DeleteForTargets(ctx, models.LikeTargetComment, commentIDs); err != nil {
		return apperr.Internal("failed to delete comment likes", err)
	}
	if err := s.stores.Notifications.DeleteForComments(ctx, commentIDs); err != nil {
		return apperr.Internal("failed to delete comment notifications", err)
	}
	if err := s.stores.Comments.DeleteByIDs(ctx, commentIDs); err != nil {
		return apperr.Internal("failed to delete post comments", err)
	}
	if err := s.stores.Posts.Delete(ctx, post.ID); err != nil && !isNotFound(err) {
		return apperr.Internal("failed to delete post", err)
	}
	return nil
}

func (s *PostService) owned(ctx context.Context, actorID, postID string) (models.Post, error) {
	if !validID(postID) {
		return models.Post{}, apperr.Validation("invalid post id")
	}
	post, err := s.stores.Posts.FindByID(ctx, postID)
	if err != nil {
		return models.Post{}, lookupError(err, "post not found")
	}
	if post.OwnerID != actorID {
		return models.Post{}, apperr.Forbidden("you can only modify your own posts")
	}
	return post, nil
}
