package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/models"
)

const testSecret = "test-secret-that-is-at-least-32-bytes"

type testEnv struct {
	db     *memDB
	media  *fakeMedia
	mailer *fakeMailer

	sessions *auth.Manager
	notifier *Notifier

	accounts      *AccountService
	videos        *VideoService
	comments      *CommentService
	engagement    *EngagementService
	posts         *PostService
	playlists     *PlaylistService
	notifications *NotificationService
	cascade       *Cascade
	dashboard     *DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newMemDB()
	stores := db.stores()
	mediaStore := newFakeMedia()
	mailer := newFakeMailer()
	sessions := auth.NewManager(auth.NewTokenService(testSecret, time.Minute), time.Hour, memSessions{db})
	notifier := NewNotifier(stores.Accounts, stores.Notifications, time.Second)
	t.Cleanup(notifier.Wait)

	return &testEnv{
		db:            db,
		media:         mediaStore,
		mailer:        mailer,
		sessions:      sessions,
		notifier:      notifier,
		accounts:      NewAccountService(stores, db, mediaStore, mailer, sessions, "http://localhost:5173"),
		videos:        NewVideoService(stores, mediaStore),
		comments:      NewCommentService(stores, notifier),
		engagement:    NewEngagementService(stores, notifier),
		posts:         NewPostService(stores),
		playlists:     NewPlaylistService(stores),
		notifications: NewNotificationService(stores.Notifications),
		cascade:       NewCascade(stores, db, mediaStore),
		dashboard:     NewDashboardService(stores.Videos),
	}
}

// seedAccount inserts a verified account directly.
func (e *testEnv) seedAccount(t *testing.T, username string) models.Account {
	t.Helper()
	now := time.Now().UTC()
	account := models.Account{
		ID:         uuid.NewString(),
		Username:   username,
		Email:      username + "@example.com",
		FullName:   username,
		Avatar:     models.Asset{URL: "https://cdn.test/" + username, Key: "images/" + username},
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, memAccounts{e.db}.Create(context.Background(), account))
	e.media.stored[account.Avatar.Key] = true
	return account
}

func (e *testEnv) publish(t *testing.T, owner models.Account, title string) models.Video {
	t.Helper()
	video, err := e.videos.Publish(context.Background(), owner.ID, PublishInput{
		Title:         title,
		Description:   title + " description",
		VideoPath:     tempFile(t, "clip.mp4"),
		ThumbnailPath: tempFile(t, "thumb.png"),
	})
	require.NoError(t, err)
	return video
}

func tempFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o600))
	return path
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equalf(t, kind, apperr.KindOf(err), "unexpected error kind for %v", err)
}

func (e *testEnv) count(fn func(db *memDB) int) int {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	return fn(e.db)
}
