package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/cors"

	"github.com/videotube/backend/internal/middleware"
)

// maxJSONBody caps non-multipart request bodies.
const maxJSONBody = 1 << 20

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Accounts      AccountService
	Cascade       CascadeDeleter
	Videos        VideoService
	Comments      CommentService
	Engagement    EngagementService
	Posts         PostService
	Playlists     PlaylistService
	Notifications NotificationService
	Dashboard     DashboardService

	Auth         *middleware.Authenticator
	AuthLimiter  middleware.RateLimiter
	HealthChecks map[string]Pinger

	CORSOrigins       []string
	RequestsPerMinute int
	MaxUploadBytes    int64
	SecureCookies     bool

	// MediaDir is served under /media/ when objects are stored on local disk.
	MediaDir string
}

// NewRouter builds the chi router with the global middleware stack and every route.
func NewRouter(logger *slog.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(corsPolicy(deps.CORSOrigins).Handler)
	r.Use(securityHeaders)
	if deps.RequestsPerMinute > 0 {
		r.Use(httprate.Limit(deps.RequestsPerMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByRealIP),
			httprate.WithLimitHandler(tooManyRequests),
		))
	}

	RegisterRoutes(r, deps)
	return r
}

// RegisterRoutes wires HTTP handlers into the provided router.
func RegisterRoutes(r chi.Router, deps Dependencies) {
	health := HealthHandler{Checks: deps.HealthChecks}
	users := UserHandler{Accounts: deps.Accounts, Cascade: deps.Cascade, MaxUploadBytes: deps.MaxUploadBytes, SecureCookies: deps.SecureCookies}
	videos := VideoHandler{Videos: deps.Videos, Cascade: deps.Cascade, MaxUploadBytes: deps.MaxUploadBytes}
	comments := CommentHandler{Comments: deps.Comments}
	likes := LikeHandler{Engagement: deps.Engagement}
	subscriptions := SubscriptionHandler{Engagement: deps.Engagement}
	tweets := TweetHandler{Posts: deps.Posts}
	playlists := PlaylistHandler{Playlists: deps.Playlists}
	notifications := NotificationHandler{Notifications: deps.Notifications}
	dashboard := DashboardHandler{Dashboard: deps.Dashboard}

	requireAuth := deps.Auth.RequireAuth
	optionalAuth := deps.Auth.OptionalAuth

	r.Get("/healthz", health.Ready)
	if deps.MediaDir != "" {
		r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(deps.MediaDir))))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(limitJSONBody(maxJSONBody))
		r.Get("/healthcheck", health.Check)

		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.Limit(deps.AuthLimiter, "auth"))
				r.Post("/register", users.Register)
				r.Post("/login", users.Login)
				r.Post("/forgot-password", users.ForgotPassword)
			})
			r.Post("/verify-email", users.VerifyEmail)
			r.Post("/refresh-token", users.RefreshToken)
			r.Post("/reset-password/{token}", users.ResetPassword)
			r.With(optionalAuth).Get("/c/{username}", users.ChannelProfile)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", users.Logout)
				r.Post("/change-password", users.ChangePassword)
				r.Get("/current-user", users.CurrentUser)
				r.Patch("/update-account", users.UpdateAccount)
				r.Patch("/avatar", users.UpdateAvatar)
				r.Patch("/cover-image", users.UpdateCoverImage)
				r.Get("/history", users.WatchHistory)
				r.Delete("/delete-account", users.DeleteAccount)
			})
		})

		r.Route("/videos", func(r chi.Router) {
			r.With(optionalAuth).Get("/", videos.List)
			r.With(optionalAuth).Get("/{videoId}", videos.Get)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", videos.Publish)
				r.Patch("/{videoId}", videos.Update)
				r.Delete("/{videoId}", videos.Delete)
				r.Patch("/toggle/publish/{videoId}", videos.TogglePublish)
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.With(optionalAuth).Get("/{videoId}", comments.ListForVideo)
			r.With(optionalAuth).Get("/t/{postId}", comments.ListForPost)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/{videoId}", comments.AddToVideo)
				r.Post("/t/{postId}", comments.AddToPost)
				r.Patch("/c/{commentId}", comments.Update)
				r.Delete("/c/{commentId}", comments.Delete)
			})
		})

		r.Route("/likes", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/toggle/v/{videoId}", likes.ToggleVideo)
			r.Post("/toggle/c/{commentId}", likes.ToggleComment)
			r.Post("/toggle/t/{postId}", likes.TogglePost)
			r.Get("/videos", likes.LikedVideos)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/c/{channelId}", subscriptions.Subscribers)
			r.Get("/u/{subscriberId}", subscriptions.Channels)
			r.With(requireAuth).Post("/c/{channelId}", subscriptions.Toggle)
		})

		r.Route("/tweets", func(r chi.Router) {
			r.With(optionalAuth).Get("/user/{userId}", tweets.ListByUser)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", tweets.Create)
				r.Patch("/{tweetId}", tweets.Update)
				r.Delete("/{tweetId}", tweets.Delete)
			})
		})

		r.Route("/playlist", func(r chi.Router) {
			r.Get("/{playlistId}", playlists.Get)
			r.Get("/user/{userId}", playlists.ListByUser)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", playlists.Create)
				r.Patch("/{playlistId}", playlists.Update)
				r.Delete("/{playlistId}", playlists.Delete)
				r.Patch("/add/{videoId}/{playlistId}", playlists.AddVideo)
				r.Patch("/remove/{videoId}/{playlistId}", playlists.RemoveVideo)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", notifications.List)
			r.Get("/unread-count", notifications.UnreadCount)
			r.Patch("/read-all", notifications.MarkAllRead)
			r.Patch("/{notificationId}/read", notifications.MarkRead)
			r.Delete("/{notificationId}", notifications.Delete)
			r.Delete("/", notifications.Clear)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/stats", dashboard.Stats)
			r.Get("/videos", dashboard.Videos)
		})
	})
}

func corsPolicy(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// limitJSONBody caps request bodies except multipart uploads, which are
// limited per handler.
func limitJSONBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tooManyRequests(w http.ResponseWriter, r *http.Request) {
	respondJSON(r.Context(), w, http.StatusTooManyRequests, apiError{
		StatusCode: http.StatusTooManyRequests,
		Message:    "too many requests, please try again later",
		Success:    false,
		Errors:     []string{},
	})
}
