package handlers

import (
	"net/http"

	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/repositories"
)

// TweetHandler implements the /tweets endpoints backed by community posts.
type TweetHandler struct {
	Posts PostService
}

// Create handles POST /tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	content, ok := readContent(w, r)
	if !ok {
		return
	}
	post, err := h.Posts.Create(r.Context(), middleware.AccountID(r.Context()), content)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, post, "tweet created successfully")
}

// ListByUser handles GET /tweets/user/{userId}.
func (h TweetHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	page, err := h.Posts.ListByOwner(r.Context(), pathParam(r, "userId"), middleware.AccountID(r.Context()),
		pageRequest(r, repositories.DefaultPageLimit))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, page, "tweets fetched successfully")
}

// Update handles PATCH /tweets/{tweetId}.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	content, ok := readContent(w, r)
	if !ok {
		return
	}
	post, err := h.Posts.Update(r.Context(), middleware.AccountID(r.Context()), pathParam(r, "tweetId"), content)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, post, "tweet updated successfully")
}

// Delete handles DELETE /tweets/{tweetId}.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Posts.Delete(r.Context(), middleware.AccountID(r.Context()), pathParam(r, "tweetId")); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]any{}, "tweet deleted successfully")
}
