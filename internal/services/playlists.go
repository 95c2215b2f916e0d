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

// PlaylistService manages ordered video playlists.
type PlaylistService struct {
	stores Stores
	now    func() time.Time
}

// NewPlaylistService constructs a PlaylistService.
func NewPlaylistService(stores Stores) *PlaylistService {
	return &PlaylistService{stores: stores, now: time.Now}
}

// Create makes an empty playlist for the actor.
func (s *PlaylistService) Create(ctx context.Context, actorID, name, description string) (models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Playlist{}, apperr.Validation("playlist name is required")
	}

	now := s.now().UTC()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     actorID,
		Name:        name,
		Description: strings.TrimSpace(description),
		VideoIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.stores.Playlists.Create(ctx, playlist); err != nil {
		return models.Playlist{}, apperr.Internal("failed to create playlist", err)
	}
	return playlist, nil
}

// Get returns a playlist with its published videos in playlist order.
func (s *PlaylistService) Get(ctx context.Context, playlistID string) (models.PlaylistDetail, error) {
	if !validID(playlistID) {
		return models.PlaylistDetail{}, apperr.Validation("invalid playlist id")
	}
	playlist, err := s.stores.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		return models.PlaylistDetail{}, lookupError(err, "playlist not found")
	}
	owner, err := s.stores.Accounts.FindByID(ctx, playlist.OwnerID)
	if err != nil {
		return models.PlaylistDetail{}, lookupError(err, "playlist owner not found")
	}
	videos, err := s.stores.Playlists.Videos(ctx, playlist.ID)
	if err != nil {
		return models.PlaylistDetail{}, apperr.Internal("failed to fetch playlist videos", err)
	}
	if videos == nil {
		videos = []models.VideoSummary{}
	}

	return models.PlaylistDetail{
		Playlist: playlist,
		Owner:    ownerOf(owner),
		Videos:   videos,
	}, nil
}

// ListByOwner pages through an account's playlists.
func (s *PlaylistService) ListByOwner(ctx context.Context, ownerID string, req repositories.PageRequest) (repositories.Page[models.Playlist], error) {
	if !validID(ownerID) {
		return repositories.Page[models.Playlist]{}, apperr.Validation("invalid user id")
	}
	page, err := s.stores.Playlists.ListByOwner(ctx, ownerID, req)
	if err != nil {
		return repositories.Page[models.Playlist]{}, apperr.Internal("failed to fetch playlists", err)
	}
	return page, nil
}

// Update changes the name and description of the actor's playlist. Empty
// values keep the current ones.
func (s *PlaylistService) Update(ctx context.Context, actorID, playlistID, name, description string) (models.Playlist, error) {
	playlist, err := s.owned(ctx, actorID, playlistID)
	if err != nil {
		return models.Playlist{}, err
	}

	name, description = strings.TrimSpace(name), strings.TrimSpace(description)
	if name == "" && description == "" {
		return models.Playlist{}, apperr.Validation("name or description is required")
	}
	if name != "" {
		playlist.Name = name
	}
	if description != "" {
		playlist.Description = description
	}

	if err := s.stores.Playlists.Update(ctx, playlist.ID, playlist.Name, playlist.Description); err != nil {
		return models.Playlist{}, lookupError(err, "playlist not found")
	}
	playlist.UpdatedAt = s.now().UTC()
	return playlist, nil
}

// Delete removes the actor's playlist.
func (s *PlaylistService) Delete(ctx context.Context, actorID, playlistID string) error {
	playlist, err := s.owned(ctx, actorID, playlistID)
	if err != nil {
		return err
	}
	if err := s.stores.Playlists.Delete(ctx, playlist.ID); err != nil && !isNotFound(err) {
		return apperr.Internal("failed to delete playlist", err)
	}
	return nil
}

// AddVideo appends a video the actor can see to the actor's playlist.
func (s *PlaylistService) AddVideo(ctx context.Context, actorID, videoID, playlistID string) (models.Playlist, error) {
	if !validID(videoID) {
		return models.Playlist{}, apperr.Validation("invalid video id")
	}
	playlist, err := s.owned(ctx, actorID, playlistID)
	if err != nil {
		return models.Playlist{}, err
	}
	if _, err := visibleVideo(ctx, s.stores.Videos, videoID, actorID); err != nil {
		return models.Playlist{}, err
	}

	added, err := s.stores.Playlists.AddVideo(ctx, playlist.ID, videoID)
	if err != nil {
		return models.Playlist{}, apperr.Internal("failed to add video to playlist", err)
	}
	if !added {
		return models.Playlist{}, apperr.Conflict("video already exists in playlist")
	}
	return s.reload(ctx, playlist.ID)
}

// RemoveVideo pulls a video from the actor's playlist.
func (s *PlaylistService) RemoveVideo(ctx context.Context, actorID, videoID, playlistID string) (models.Playlist, error) {
	if !validID(videoID) {
		return models.Playlist{}, apperr.Validation("invalid video id")
	}
	playlist, err := s.owned(ctx, actorID, playlistID)
	if err != nil {
		return models.Playlist{}, err
	}

	removed, err := s.stores.Playlists.RemoveVideo(ctx, playlist.ID, videoID)
	if err != nil {
		return models.Playlist{}, apperr.Internal("failed to remove video from playlist", err)
	}
	if !removed {
		return models.Playlist{}, apperr.NotFound("video not found in playlist")
	}
	return s.reload(ctx, playlist.ID)
}

func (s *PlaylistService) reload(ctx context.Context, playlistID string) (models.Playlist, error) {
	playlist, err := s.stores.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		return models.Playlist{}, lookupError(err, "playlist not found")
	}
	return playlist, nil
}

func (s *PlaylistService) owned(ctx context.Context, actorID, playlistID string) (models.Playlist, error) {
	if !validID(playlistID) {
		return models.Playlist{}, apperr.Validation("invalid playlist id")
	}
	playlist, err := s.stores.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		return models.Playlist{}, lookupError(err, "playlist not found")
	}
	if playlist.OwnerID != actorID {
		return models.Playlist{}, apperr.Forbidden("you can only modify your own playlists")
	}
	return playlist, nil
}

func ownerOf(account models.Account) models.Owner {
	return models.Owner{
		ID:       account.ID,
		Username: account.Username,
		FullName: account.FullName,
		Avatar:   account.Avatar.URL,
	}
}
