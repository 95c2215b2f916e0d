package services

import (
	"context"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

// DashboardService reports on the caller's own channel.
type DashboardService struct {
	videos VideoStore
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(videos VideoStore) *DashboardService {
	return &DashboardService{videos: videos}
}

// Stats returns video, view, subscriber and like totals for the channel.
func (s *DashboardService) Stats(ctx context.Context, channelID string) (models.ChannelStats, error) {
	stats, err := s.videos.ChannelStats(ctx, channelID)
	if err != nil {
		return models.ChannelStats{}, apperr.Internal("failed to fetch channel stats", err)
	}
	return stats, nil
}

// Videos pages through every video of the channel, unpublished ones included.
func (s *DashboardService) Videos(ctx context.Context, channelID string, req repositories.PageRequest) (repositories.Page[models.VideoSummary], error) {
	page, err := s.videos.List(ctx, repositories.VideoFilter{OwnerID: channelID, IncludeUnpublished: true}, req)
	if err != nil {
		return repositories.Page[models.VideoSummary]{}, apperr.Internal("failed to fetch channel videos", err)
	}
	return page, nil
}
