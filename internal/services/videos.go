package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

// PublishInput carries a new video. Paths point at local temporary files
// which are consumed by the upload.
type PublishInput struct {
	Title         string
	Description   string
	VideoPath     string
	ThumbnailPath string
}

// UpdateVideoInput carries optional replacements. Empty fields are left unchanged.
type UpdateVideoInput struct {
	Title         string
	Description   string
	ThumbnailPath string
}

// VideoService manages the video catalogue.
type VideoService struct {
	stores Stores
	media  MediaStore
	now    func() time.Time
}

// NewVideoService constructs a VideoService.
func NewVideoService(stores Stores, mediaStore MediaStore) *VideoService {
	return &VideoService{stores: stores, media: mediaStore, now: time.Now}
}

// Publish uploads the video file and thumbnail and records the video. Uploaded
// objects are deleted again if the record cannot be written.
func (s *VideoService) Publish(ctx context.Context, actorID string, in PublishInput) (models.Video, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Video{}, apperr.Validation("title is required")
	}
	if in.VideoPath == "" || in.ThumbnailPath == "" {
		return models.Video{}, apperr.Validation("video file and thumbnail are required")
	}

	videoFile, err := s.media.Upload(ctx, in.VideoPath, media.KindVideo)
	if err != nil {
		return models.Video{}, apperr.Internal("failed to upload video file", err)
	}
	thumbnail, err := s.media.Upload(ctx, in.ThumbnailPath, media.KindImage)
	if err != nil {
		discardMedia(ctx, s.media, videoFile.Asset.Key)
		return models.Video{}, apperr.Internal("failed to upload thumbnail", err)
	}

	now := s.now().UTC()
	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     actorID,
		VideoFile:   videoFile.Asset,
		Thumbnail:   thumbnail.Asset,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Duration:    videoFile.Duration,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.stores.Videos.Create(ctx, video); err != nil {
		discardMedia(ctx, s.media, videoFile.Asset.Key, thumbnail.Asset.Key)
		return models.Video{}, apperr.Internal("failed to save video", err)
	}
	return video, nil
}

// List pages through published videos, optionally searching title and
// description or restricting to one owner.
func (s *VideoService) List(ctx context.Context, query, ownerID string, req repositories.PageRequest) (repositories.Page[models.VideoSummary], error) {
	if ownerID != "" && !validID(ownerID) {
		return repositories.Page[models.VideoSummary]{}, apperr.Validation("invalid user id")
	}
	page, err := s.stores.Videos.List(ctx, repositories.VideoFilter{
		Query:   strings.TrimSpace(query),
		OwnerID: ownerID,
	}, req)
	if err != nil {
		return repositories.Page[models.VideoSummary]{}, apperr.Internal("failed to fetch videos", err)
	}
	return page, nil
}

// Get returns a video with its owner and like information. Unpublished videos
// are only visible to their owner. Every successful fetch counts a view; an
// authenticated viewer also gets the video moved to the front of their history.
func (s *VideoService) Get(ctx context.Context, videoID, viewerID string) (models.VideoDetail, error) {
	if !validID(videoID) {
		return models.VideoDetail{}, apperr.Validation("invalid video id")
	}
	detail, err := s.stores.Videos.Detail(ctx, videoID, viewerID)
	if err != nil {
		return models.VideoDetail{}, lookupError(err, "video not found")
	}
	if !detail.IsPublished && detail.OwnerID != viewerID {
		return models.VideoDetail{}, apperr.NotFound("video not found")
	}

	logger := logging.FromContext(ctx)
	if err := s.stores.Videos.IncrementViews(ctx, videoID); err != nil {
		logger.Warn("failed to increment views", slog.String("video_id", videoID), slog.Any("error", err))
	} else {
		detail.Views++
	}
	if viewerID != "" {
		if err := s.stores.Accounts.RecordView(ctx, viewerID, videoID); err != nil {
			logger.Warn("failed to record watch history", slog.String("video_id", videoID), slog.Any("error", err))
		}
	}
	return detail, nil
}

// Update edits the actor's video. A replacement thumbnail is uploaded first and
// the previous object is removed once the record points at the new one.
func (s *VideoService) Update(ctx context.Context, actorID, videoID string, in UpdateVideoInput) (models.Video, error) {
	video, err := s.owned(ctx, actorID, videoID)
	if err != nil {
		return models.Video{}, err
	}

	title, description := strings.TrimSpace(in.Title), strings.TrimSpace(in.Description)
	if title == "" && description == "" && in.ThumbnailPath == "" {
		return models.Video{}, apperr.Validation("nothing to update")
	}
	if title != "" {
		video.Title = title
	}
	if description != "" {
		video.Description = description
	}

	previous := video.Thumbnail
	if in.ThumbnailPath != "" {
		upload, err := s.media.Upload(ctx, in.ThumbnailPath, media.KindImage)
		if err != nil {
			return models.Video{}, apperr.Internal("failed to upload thumbnail", err)
		}
		video.Thumbnail = upload.Asset
	}

	if err := s.stores.Videos.Update(ctx, video); err != nil {
		if video.Thumbnail != previous {
			discardMedia(ctx, s.media, video.Thumbnail.Key)
		}
		return models.Video{}, lookupError(err, "video not found")
	}
	if video.Thumbnail != previous {
		discardMedia(ctx, s.media, previous.Key)
	}

	video.UpdatedAt = s.now().UTC()
	return video, nil
}

// TogglePublish flips the publication flag of the actor's video.
func (s *VideoService) TogglePublish(ctx context.Context, actorID, videoID string) (models.Video, error) {
	video, err := s.owned(ctx, actorID, videoID)
	if err != nil {
		return models.Video{}, err
	}

	video.IsPublished = !video.IsPublished
	if err := s.stores.Videos.SetPublished(ctx, video.ID, video.IsPublished); err != nil {
		return models.Video{}, lookupError(err, "video not found")
	}
	video.UpdatedAt = s.now().UTC()
	return video, nil
}

func (s *VideoService) owned(ctx context.Context, actorID, videoID string) (models.Video, error) {
	if !validID(videoID) {
		return models.Video{}, apperr.Validation("invalid video id")
	}
	video, err := s.stores.Videos.FindByID(ctx, videoID)
	if err != nil {
		return models.Video{}, lookupError(err, "video not found")
	}
	if video.OwnerID != actorID {
		return models.Video{}, apperr.Forbidden("you can only modify your own videos")
	}
	return video, nil
}

// discardMedia deletes stored objects, logging failures instead of returning them.
func discardMedia(ctx context.Context, store MediaStore, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := store.Delete(ctx, key); err != nil {
			logging.FromContext(ctx).Warn("failed to delete media object", slog.String("key", key), slog.Any("error", err))
		}
	}
}
