package services

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often expired pending accounts and sessions are purged.
const DefaultSweepInterval = 1 * time.Hour

// Sweeper deletes expired pending accounts, along with their uploaded images,
// and refresh sessions.
type Sweeper struct {
	pending  PendingAccountStore
	sessions SessionCleaner
	media    MediaStore
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewSweeper constructs a Sweeper running every interval.
func NewSweeper(pending PendingAccountStore, sessions SessionCleaner, media MediaStore, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		pending:  pending,
		sessions: sessions,
		media:    media,
		interval: interval,
		logger:   logger.With("component", "sweeper"),
		now:      time.Now,
	}
}

// Start sweeps immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("starting expiry sweeper", "interval", s.interval)

	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping expiry sweeper")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one purge pass and returns the number of rows removed.
func (s *Sweeper) Sweep(ctx context.Context) (pendingDeleted, sessionsDeleted int64) {
	now := s.now().UTC()

	expired, err := s.pending.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error("error deleting expired pending accounts", "error", err)
	} else if len(expired) > 0 {
		for _, p := range expired {
			discardMedia(ctx, s.media, p.Avatar.Key, p.CoverImage.Key)
		}
		pendingDeleted = int64(len(expired))
		s.logger.Info("deleted expired pending accounts", "count", pendingDeleted)
	}

	sessionsDeleted, err = s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error("error deleting expired sessions", "error", err)
	} else if sessionsDeleted > 0 {
		s.logger.Info("deleted expired sessions", "count", sessionsDeleted)
	}

	return pendingDeleted, sessionsDeleted
}
