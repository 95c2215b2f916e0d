package handlers

import (
	"context"
	"net/http"

	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/repositories"
)

// LikeHandler implements the /likes endpoints.
type LikeHandler struct {
	Engagement EngagementService
}

// ToggleVideo handles POST /likes/toggle/v/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.Engagement.ToggleVideoLike, "videoId")
}

// ToggleComment handles POST /likes/toggle/c/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.Engagement.ToggleCommentLike, "commentId")
}

// TogglePost handles POST /likes/toggle/t/{postId}.
func (h LikeHandler) TogglePost(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.Engagement.TogglePostLike, "postId")
}

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID, targetID string) (bool, error), param string) {
	liked, err := fn(r.Context(), middleware.AccountID(r.Context()), pathParam(r, param))
	if err != nil {
		respondError(w, r, err)
		return
	}
	message := "like removed"
	if liked {
		message = "liked successfully"
	}
	respond(w, r, http.StatusOK, map[string]bool{"isLiked": liked}, message)
}

// LikedVideos handles GET /likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	page, err := h.Engagement.LikedVideos(r.Context(), middleware.AccountID(r.Context()), pageRequest(r, repositories.DefaultPageLimit))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, page, "liked videos fetched successfully")
}

// SubscriptionHandler implements the /subscriptions endpoints.
type SubscriptionHandler struct {
	Engagement EngagementService
}

// Toggle handles POST /subscriptions/c/{channelId}.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	subscribed, err := h.Engagement.ToggleSubscription(r.Context(), middleware.AccountID(r.Context()), pathParam(r, "channelId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	message := "unsubscribed successfully"
	if subscribed {
		message = "subscribed successfully"
	}
	respond(w, r, http.StatusOK, map[string]bool{"isSubscribed": subscribed}, message)
}

// Subscribers handles GET /subscriptions/c/{channelId}.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	page, err := h.Engagement.Subscribers(r.Context(), pathParam(r, "channelId"), pageRequest(r, repositories.DefaultPageLimit))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, page, "subscribers fetched successfully")
}

// Channels handles GET /subscriptions/u/{subscriberId}.
func (h SubscriptionHandler) Channels(w http.ResponseWriter, r *http.Request) {
	page, err := h.Engagement.Channels(r.Context(), pathParam(r, "subscriberId"), pageRequest(r, repositories.DefaultPageLimit))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, page, "subscribed channels fetched successfully")
}
