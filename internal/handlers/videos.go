package handlers

import (
	"net/http"
	"strings"

	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/repositories"
	"github.com/videotube/backend/internal/services"
)

// VideoHandler implements the /videos endpoints.
type VideoHandler struct {
	Videos         VideoService
	Cascade        CascadeDeleter
	MaxUploadBytes int64
}

type updateVideoFields struct {
	Title       string `validate:"max=200"`
	Description string `validate:"max=5000"`
}

// List handles GET /videos with optional query and userId filters.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, err := h.Videos.List(r.Context(),
		strings.TrimSpace(query.Get("query")),
		strings.TrimSpace(query.Get("userId")),
		pageRequest(r, repositories.DefaultPageLimit),
	)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, page, "videos fetched successfully")
}

// Publish handles POST /videos. The multipart body carries title,
// description, videoFile and thumbnail.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	upload, err := parseMultipart(w, r, h.MaxUploadBytes)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer upload.Cleanup()

	in := services.PublishInput{
		Title:       upload.Value("title"),
		Description: upload.Value("description"),
	}
	if err := validate(updateVideoFields{Title: in.Title, Description: in.Description}); err != nil {
		respondError(w, r, err)
		return
	}
	if in.VideoPath, err = upload.SaveFile("videoFile", true); err != nil {
		respondError(w, r, err)
		return
	}
	if in.ThumbnailPath, err = upload.SaveFile("thumbnail", true); err != nil {
		respondError(w, r, err)
		return
	}

	video, err := h.Videos.Publish(r.Context(), middleware.AccountID(r.Context()), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, video, "video published successfully")
}

// Get handles GET /videos/{videoId}.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Videos.Get(r.Context(), pathParam(r, "videoId"), middleware.AccountID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, detail, "video fetched successfully")
}

// Update handles PATCH /videos/{videoId}. Title, description and thumbnail are optional.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	upload, err := parseMultipart(w, r, h.MaxUploadBytes)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer upload.Cleanup()

	in := services.UpdateVideoInput{
		Title:       upload.Value("title"),
		Description: upload.Value("description"),
	}
	if err := validate(updateVideoFields{Title: in.Title, Description: in.Description}); err != nil {
		respondError(w, r, err)
		return
	}
	if in.ThumbnailPath, err = upload.SaveFile("thumbnail", false); err != nil {
		respondError(w, r, err)
		return
	}

	video, err := h.Videos.Update(r.Context(), middleware.AccountID(r.Context()), pathParam(r, "videoId"), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, video, "video updated successfully")
}

// Delete handles DELETE /videos/{videoId}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Cascade.DeleteVideo(r.Context(), middleware.AccountID(r.Context()), pathParam(r, "videoId")); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]any{}, "video deleted successfully")
}

// TogglePublish handles PATCH /videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	video, err := h.Videos.TogglePublish(r.Context(), middleware.AccountID(r.Context()), pathParam(r, "videoId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, video, "publish status toggled")
}
