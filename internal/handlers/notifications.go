package handlers

import (
	"net/http"

	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/repositories"
)

// NotificationHandler implements the /notifications endpoints. Every
// operation is scoped to the authenticated recipient.
type NotificationHandler struct {
	Notifications NotificationService
}

// List handles GET /notifications.
func (h NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.Notifications.List(r.Context(), middleware.AccountID(r.Context()),
		pageRequest(r, repositories.DefaultNotificationPageLimit))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, page, "notifications fetched successfully")
}

// UnreadCount handles GET /notifications/unread-count.
func (h NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.Notifications.UnreadCount(r.Context(), middleware.AccountID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]int64{"unreadCount": count}, "unread count fetched successfully")
}

// MarkAllRead handles PATCH /notifications/read-all.
func (h NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.Notifications.MarkAllRead(r.Context(), middleware.AccountID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]int64{"modifiedCount": updated}, "all notifications marked as read")
}

// MarkRead handles PATCH /notifications/{notificationId}/read.
func (h NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Notifications.MarkRead(r.Context(), pathParam(r, "notificationId"), middleware.AccountID(r.Context())); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]any{}, "notification marked as read")
}

// Delete handles DELETE /notifications/{notificationId}.
func (h NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Notifications.Delete(r.Context(), pathParam(r, "notificationId"), middleware.AccountID(r.Context())); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]any{}, "notification deleted")
}

// Clear handles DELETE /notifications.
func (h NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Notifications.Clear(r.Context(), middleware.AccountID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]int64{"deletedCount": deleted}, "all notifications cleared")
}
