package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/models"
)

// Cascade deletes accounts and videos together with every record that
// references them. Store mutations run in a single unit of work; media objects
// are deleted beforehand on a best-effort basis and are not restored on rollback.
// Notifications go before the comments and videos they point at.
type Cascade struct {
	stores Stores
	uow    UnitOfWork
	media  MediaStore
}

// NewCascade constructs a Cascade.
func NewCascade(stores Stores, uow UnitOfWork, mediaStore MediaStore) *Cascade {
	return &Cascade{stores: stores, uow: uow, media: mediaStore}
}

// DeleteAccount removes the account and everything it owns or that points at it.
func (c *Cascade) DeleteAccount(ctx context.Context, accountID string) error {
	account, err := c.stores.Accounts.FindByID(ctx, accountID)
	if err != nil {
		return lookupError(err, "user not found")
	}

	ctx, span := logging.StartSpan(ctx, "cascade.delete_account")
	defer span.End()
	logger := logging.FromContext(ctx).With(slog.String("account_id", accountID))

	discardMedia(ctx, c.media, account.Avatar.Key, account.CoverImage.Key)

	videos, err := c.stores.Videos.ListByOwner(ctx, accountID)
	if err != nil {
		return apperr.InternalWithCause("account deletion failed", fmt.Errorf("list videos: %w", err))
	}
	for _, video := range videos {
		discardMedia(ctx, c.media, video.VideoFile.Key, video.Thumbnail.Key)
	}

	err = c.uow.Do(ctx, func(ctx context.Context, st Stores) error {
		videoIDs, err := st.Videos.IDsByOwner(ctx, accountID)
		if err != nil {
			return fmt.Errorf("collect videos: %w", err)
		}
		postIDs, err := st.Posts.IDsByOwner(ctx, accountID)
		if err != nil {
			return fmt.Errorf("collect posts: %w", err)
		}
		ownComments, err := st.Comments.IDsByOwner(ctx, accountID)
		if err != nil {
			return fmt.Errorf("collect comments: %w", err)
		}
		videoComments, err := st.Comments.IDsForVideos(ctx, videoIDs)
		if err != nil {
			return fmt.Errorf("collect video comments: %w", err)
		}
		postComments, err := st.Comments.IDsForPosts(ctx, postIDs)
		if err != nil {
			return fmt.Errorf("collect post comments: %w", err)
		}
		commentIDs := unionIDs(ownComments, videoComments, postComments)

		if err := st.Likes.DeleteByAccount(ctx, accountID); err != nil {
			return fmt.Errorf("delete likes by account: %w", err)
		}
		if err := st.Likes.DeleteForTargets(ctx, models.LikeTargetVideo, videoIDs); err != nil {
			return fmt.Errorf("delete video likes: %w", err)
		}
		if err := st.Likes.DeleteForTargets(ctx, models.LikeTargetPost, postIDs); err != nil {
			return fmt.Errorf("delete post likes: %w", err)
		}
		if err := st.Likes.DeleteForTargets(ctx, models.LikeTargetComment, commentIDs); err != nil {
			return fmt.Errorf("delete comment likes: %w", err)
		}
		if err := st.Notifications.DeleteForAccount(ctx, accountID); err != nil {
			return fmt.Errorf("delete notifications: %w", err)
		}
		if err := st.Notifications.DeleteForVideos(ctx, videoIDs); err != nil {
			return fmt.Errorf("delete video notifications: %w", err)
		}
		if err := st.Notifications.DeleteForComments(ctx, commentIDs); err != nil {
			return fmt.Errorf("delete comment notifications: %w", err)
		}
		if err := st.Comments.DeleteByIDs(ctx, commentIDs); err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := st.Videos.DeleteByIDs(ctx, videoIDs); err != nil {
			return fmt.Errorf("delete videos: %w", err)
		}
		if err := st.Playlists.PullVideos(ctx, videoIDs); err != nil {
			return fmt.Errorf("pull videos from playlists: %w", err)
		}
		if err := st.Accounts.PullFromHistories(ctx, videoIDs); err != nil {
			return fmt.Errorf("pull videos from histories: %w", err)
		}
		if err := st.Posts.DeleteByOwner(ctx, accountID); err != nil {
			return fmt.Errorf("delete posts: %w", err)
		}
		if err := st.Playlists.DeleteByOwner(ctx, accountID); err != nil {
			return fmt.Errorf("delete playlists: %w", err)
		}
		if err := st.Subscriptions.DeleteForAccount(ctx, accountID); err != nil {
			return fmt.Errorf("delete subscriptions: %w", err)
		}
		if err := st.Sessions.DeleteByAccount(ctx, accountID); err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}
		if err := st.Accounts.Delete(ctx, accountID); err != nil {
			return fmt.Errorf("delete account: %w", err)
		}

		logger.Info("account cascade staged",
			slog.Int("videos", len(videoIDs)),
			slog.Int("posts", len(postIDs)),
			slog.Int("comments", len(commentIDs)),
		)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return apperr.InternalWithCause("account deletion failed", err)
	}
	return nil
}

// DeleteVideo removes the actor's video with its comments, likes,
// notifications and every playlist or history reference.
func (c *Cascade) DeleteVideo(ctx context.Context, actorID, videoID string) error {
	if !validID(videoID) {
		return apperr.Validation("invalid video id")
	}
	video, err := c.stores.Videos.FindByID(ctx, videoID)
	if err != nil {
		return lookupError(err, "video not found")
	}
	if video.OwnerID != actorID {
		return apperr.Forbidden("you can only delete your own videos")
	}

	ctx, span := logging.StartSpan(ctx, "cascade.delete_video")
	defer span.End()
	logging.FromContext(ctx).Info("deleting video", slog.String("video_id", video.ID))

	discardMedia(ctx, c.media, video.VideoFile.Key, video.Thumbnail.Key)

	videoIDs := []string{video.ID}
	err = c.uow.Do(ctx, func(ctx context.Context, st Stores) error {
		commentIDs, err := st.Comments.IDsForVideos(ctx, videoIDs)
		if err != nil {
			return fmt.Errorf("collect comments: %w", err)
		}
		if err := st.Likes.DeleteForTargets(ctx, models.LikeTargetVideo, videoIDs); err != nil {
			return fmt.Errorf("delete video likes: %w", err)
		}
		if err := st.Likes.DeleteForTargets(ctx, models.LikeTargetComment, commentIDs); err != nil {
			return fmt.Errorf("delete comment likes: %w", err)
		}
		if err := st.Notifications.DeleteForVideos(ctx, videoIDs); err != nil {
			return fmt.Errorf("delete video notifications: %w", err)
		}
		if err := st.Notifications.DeleteForComments(ctx, commentIDs); err != nil {
			return fmt.Errorf("delete comment notifications: %w", err)
		}
		if err := st.Comments.DeleteByIDs(ctx, commentIDs); err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := st.Playlists.PullVideos(ctx, videoIDs); err != nil {
			return fmt.Errorf("pull video from playlists: %w", err)
		}
		if err := st.Accounts.PullFromHistories(ctx, videoIDs); err != nil {
			return fmt.Errorf("pull video from histories: %w", err)
		}
		if err := st.Videos.Delete(ctx, video.ID); err != nil {
			return fmt.Errorf("delete video: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return apperr.InternalWithCause("video deletion failed", err)
	}
	return nil
}

func unionIDs(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
