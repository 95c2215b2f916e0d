package handlers

import (
	"net/http"

	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/repositories"
)

// PlaylistHandler implements the /playlist endpoints.
type PlaylistHandler struct {
	Playlists PlaylistService
}

type createPlaylistRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

type updatePlaylistRequest struct {
	Name        string `json:"name" validate:"max=120"`
	Description string `json:"description" validate:"max=2000"`
}

// Create handles POST /playlist.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		respondError(w, r, err)
		return
	}
	playlist, err := h.Playlists.Create(r.Context(), middleware.AccountID(r.Context()), cleanText(req.Name), cleanText(req.Description))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, playlist, "playlist created successfully")
}

// Get handles GET /playlist/{playlistId}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Playlists.Get(r.Context(), pathParam(r, "playlistId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, detail, "playlist fetched successfully")
}

// ListByUser handles GET /playlist/user/{userId}.
func (h PlaylistHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	page, err := h.Playlists.ListByOwner(r.Context(), pathParam(r, "userId"), pageRequest(r, repositories.DefaultPageLimit))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, page, "playlists fetched successfully")
}

// Update handles PATCH /playlist/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updatePlaylistRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		respondError(w, r, err)
		return
	}
	playlist, err := h.Playlists.Update(r.Context(), middleware.AccountID(r.Context()), pathParam(r, "playlistId"),
		cleanText(req.Name), cleanText(req.Description))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, playlist, "playlist updated successfully")
}

// Delete handles DELETE /playlist/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Playlists.Delete(r.Context(), middleware.AccountID(r.Context()), pathParam(r, "playlistId")); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]any{}, "playlist deleted successfully")
}

// AddVideo handles PATCH /playlist/add/{videoId}/{playlistId}.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	playlist, err := h.Playlists.AddVideo(r.Context(), middleware.AccountID(r.Context()), pathParam(r, "videoId"), pathParam(r, "playlistId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, playlist, "video added to playlist")
}

// RemoveVideo handles PATCH /playlist/remove/{videoId}/{playlistId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	playlist, err := h.Playlists.RemoveVideo(r.Context(), middleware.AccountID(r.Context()), pathParam(r, "videoId"), pathParam(r, "playlistId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, playlist, "video removed from playlist")
}
