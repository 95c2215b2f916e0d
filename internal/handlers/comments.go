package handlers

import (
	"net/http"

	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/repositories"
)

// CommentHandler implements the /comments endpoints.
type CommentHandler struct {
	Comments CommentService
}

type contentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// ListForVideo handles GET /comments/{videoId}.
func (h CommentHandler) ListForVideo(w http.ResponseWriter, r *http.Request) {
	page, err := h.Comments.ListForVideo(r.Context(), pathParam(r, "videoId"), middleware.AccountID(r.Context()),
		pageRequest(r, repositories.DefaultPageLimit))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, page, "comments fetched successfully")
}

// AddToVideo handles POST /comments/{videoId}.
func (h CommentHandler) AddToVideo(w http.ResponseWriter, r *http.Request) {
	content, ok := readContent(w, r)
	if !ok {
		return
	}
	comment, err := h.Comments.AddToVideo(r.Context(), middleware.AccountID(r.Context()), pathParam(r, "videoId"), content)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, comment, "comment added successfully")
}

// ListForPost handles GET /comments/t/{postId}.
func (h CommentHandler) ListForPost(w http.ResponseWriter, r *http.Request) {
	page, err := h.Comments.ListForPost(r.Context(), pathParam(r, "postId"), middleware.AccountID(r.Context()),
		pageRequest(r, repositories.DefaultPageLimit))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, page, "comments fetched successfully")
}

// AddToPost handles POST /comments/t/{postId}.
func (h CommentHandler) AddToPost(w http.ResponseWriter, r *http.Request) {
	content, ok := readContent(w, r)
	if !ok {
		return
	}
	comment, err := h.Comments.AddToPost(r.Context(), middleware.AccountID(r.Context()), pathParam(r, "postId"), content)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, comment, "comment added successfully")
}

// Update handles PATCH /comments/c/{commentId}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	content, ok := readContent(w, r)
	if !ok {
		return
	}
	comment, err := h.Comments.Update(r.Context(), middleware.AccountID(r.Context()), pathParam(r, "commentId"), content)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, comment, "comment updated successfully")
}

// Delete handles DELETE /comments/c/{commentId}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Comments.Delete(r.Context(), middleware.AccountID(r.Context()), pathParam(r, "commentId")); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]any{}, "comment deleted successfully")
}

// readContent decodes {content} and writes the error response itself when it fails.
func readContent(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req contentRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		respondError(w, r, err)
		return "", false
	}
	return cleanText(req.Content), true
}
