package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/config"
	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/email"
	"github.com/videotube/backend/internal/handlers"
	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/repositories"
	"github.com/videotube/backend/internal/services"
	"github.com/videotube/backend/internal/storage"
)

const authLimiterTTL = 10 * time.Minute

// application holds the long-lived collaborators built for serve.
type application struct {
	handlers handlers.Dependencies
	sweeper  *services.Sweeper
	notifier *services.Notifier
	close    func()
}

// txUnit runs service work inside a pool transaction.
type txUnit struct {
	pool db.Pool
}

func (u txUnit) Do(ctx context.Context, fn func(ctx context.Context, stores services.Stores) error) error {
	return repositories.InTx(ctx, u.pool, func(ctx context.Context, set repositories.Set) error {
		return fn(ctx, storesFrom(set))
	})
}

func storesFrom(set repositories.Set) services.Stores {
	return services.Stores{
		Accounts:        set.Accounts,
		PendingAccounts: set.PendingAccounts,
		Sessions:        set.Sessions,
		Videos:          set.Videos,
		Comments:        set.Comments,
		Likes:           set.Likes,
		Subscriptions:   set.Subscriptions,
		Notifications:   set.Notifications,
		Posts:           set.Posts,
		Playlists:       set.Playlists,
	}
}

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (*application, error) {
	objectStore, err := storage.New(ctx, cfg.ObjectStore)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	uploader := media.NewUploader(objectStore, media.NewFFProbe(cfg.FFProbePath, cfg.FFProbeTimeout))

	var mailer services.Mailer
	if cfg.Email.Host != "" {
		mailer = email.NewSMTPService(cfg.Email.Host, cfg.Email.Port, cfg.Email.Username, cfg.Email.Password, cfg.Email.From, cfg.FrontendURL)
	} else {
		mailer = email.NewLogMailer(logger, cfg.FrontendURL)
	}

	sessionStore := repositories.NewPostgresSessionStore(pool)
	sessions := auth.NewManager(auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL), cfg.Auth.RefreshTokenTTL, sessionStore)

	stores := storesFrom(repositories.NewSet(pool))
	uow := txUnit{pool: pool}
	notifier := services.NewNotifier(stores.Accounts, stores.Notifications, cfg.NotifierTimeout)

	var mediaDir string
	if local, ok := objectStore.(*storage.LocalStorage); ok {
		mediaDir = local.Root()
	}

	deps := handlers.Dependencies{
		Accounts:      services.NewAccountService(stores, uow, uploader, mailer, sessions, cfg.FrontendURL),
		Cascade:       services.NewCascade(stores, uow, uploader),
		Videos:        services.NewVideoService(stores, uploader),
		Comments:      services.NewCommentService(stores, notifier),
		Engagement:    services.NewEngagementService(stores, notifier),
		Posts:         services.NewPostService(stores),
		Playlists:     services.NewPlaylistService(stores),
		Notifications: services.NewNotificationService(stores.Notifications),
		Dashboard:     services.NewDashboardService(stores.Videos),

		Auth:        middleware.NewAuthenticator(sessions),
		AuthLimiter: middleware.NewIPRateLimiter(cfg.RateLimit.AuthRequests, cfg.RateLimit.AuthWindow, cfg.RateLimit.AuthRequests, authLimiterTTL),

		HealthChecks: map[string]handlers.Pinger{
			"database": pool,
			"storage":  objectStore,
		},

		CORSOrigins:       cfg.CORSOrigins,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		SecureCookies:     cfg.Auth.SecureCookies,
		MediaDir:          mediaDir,
	}

	closeFn := func() {}
	if closer, ok := objectStore.(io.Closer); ok {
		closeFn = func() {
			if err := closer.Close(); err != nil {
				logger.Warn("close object storage", "error", err)
			}
		}
	}

	return &application{
		handlers: deps,
		sweeper:  services.NewSweeper(stores.PendingAccounts, stores.Sessions, uploader, cfg.SweepInterval, logger),
		notifier: notifier,
		close:    closeFn,
	}, nil
}
