package handlers

import (
	"net/http"

	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/repositories"
)

// DashboardHandler implements the /dashboard endpoints for the caller's channel.
type DashboardHandler struct {
	Dashboard DashboardService
}

// Stats handles GET /dashboard/stats.
func (h DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Dashboard.Stats(r.Context(), middleware.AccountID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, stats, "channel stats fetched successfully")
}

// Videos handles GET /dashboard/videos.
func (h DashboardHandler) Videos(w http.ResponseWriter, r *http.Request) {
	page, err := h.Dashboard.Videos(r.Context(), middleware.AccountID(r.Context()), pageRequest(r, repositories.DefaultPageLimit))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, page, "channel videos fetched successfully")
}
