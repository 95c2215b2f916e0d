//go:build integration

package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
	"github.com/videotube/backend/internal/services"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := db.Migrate(ctx, pool, "up"); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool
	code := m.Run()

	pool.Close()
	server.Stop()
	os.Exit(code)
}

type recordingMedia struct {
	mu      sync.Mutex
	deleted []string
}

func (m *recordingMedia) Upload(context.Context, string, media.Kind) (media.Upload, error) {
	return media.Upload{}, fmt.Errorf("uploads are not expected")
}

func (m *recordingMedia) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, key)
	return nil
}

func TestCascadeDeleteAccountLeavesNoReferences(t *testing.T) {
	ctx := context.Background()
	set := repositories.NewSet(testPool)
	now := time.Now().UTC()

	leaving := seedAccount(t, set, "leaving")
	staying := seedAccount(t, set, "staying")

	ownVideo := seedVideo(t, set, leaving.ID)
	otherVideo := seedVideo(t, set, staying.ID)

	ownPost := models.Post{ID: uuid.NewString(), OwnerID: leaving.ID, Content: "leaving soon", CreatedAt: now, UpdatedAt: now}
	mustDo(t, "create post", set.Posts.Create(ctx, ownPost))

	onOwnVideo := seedComment(t, set, staying.ID, ownVideo.ID, "")
	onOwnPost := seedComment(t, set, staying.ID, "", ownPost.ID)
	byLeaving := seedComment(t, set, leaving.ID, otherVideo.ID, "")
	kept := seedComment(t, set, staying.ID, otherVideo.ID, "")

	seedLike(t, set, staying.ID, models.LikeTargetVideo, ownVideo.ID)
	seedLike(t, set, staying.ID, models.LikeTargetPost, ownPost.ID)
	seedLike(t, set, staying.ID, models.LikeTargetComment, byLeaving.ID)
	seedLike(t, set, leaving.ID, models.LikeTargetVideo, otherVideo.ID)
	seedLike(t, set, leaving.ID, models.LikeTargetComment, kept.ID)

	mustDo(t, "subscribe", set.Subscriptions.Create(ctx, models.Subscription{ID: uuid.NewString(), SubscriberID: staying.ID, ChannelID: leaving.ID, CreatedAt: now}))
	mustDo(t, "subscribe back", set.Subscriptions.Create(ctx, models.Subscription{ID: uuid.NewString(), SubscriberID: leaving.ID, ChannelID: staying.ID, CreatedAt: now}))

	seedNotification(t, set, staying.ID, leaving.ID, ownVideo.ID, onOwnVideo.ID)
	seedNotification(t, set, leaving.ID, staying.ID, otherVideo.ID, byLeaving.ID)
	seedNotification(t, set, leaving.ID, staying.ID, "", onOwnPost.ID)

	playlist := models.Playlist{ID: uuid.NewString(), OwnerID: staying.ID, Name: "mixed", VideoIDs: []string{}, CreatedAt: now, UpdatedAt: now}
	mustDo(t, "create playlist", set.Playlists.Create(ctx, playlist))
	for _, id := range []string{ownVideo.ID, otherVideo.ID} {
		if _, err := set.Playlists.AddVideo(ctx, playlist.ID, id); err != nil {
			t.Fatalf("add playlist video: %v", err)
		}
		mustDo(t, "record view", set.Accounts.RecordView(ctx, staying.ID, id))
	}
	mustDo(t, "save session", set.Sessions.Save(ctx, auth.Session{TokenHash: auth.HashToken(uuid.NewString()), AccountID: leaving.ID, ExpiresAt: now.Add(time.Hour)}))

	mediaStore := &recordingMedia{}
	cascade := services.NewCascade(storesFrom(set), txUnit{pool: testPool}, mediaStore)
	if err := cascade.DeleteAccount(ctx, leaving.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	checks := []struct {
		query string
		args  []any
	}{
		{"SELECT count(*) FROM accounts WHERE id = $1", []any{leaving.ID}},
		{"SELECT count(*) FROM videos WHERE owner_id = $1", []any{leaving.ID}},
		{"SELECT count(*) FROM posts WHERE owner_id = $1", []any{leaving.ID}},
		{"SELECT count(*) FROM comments WHERE owner_id = $1 OR video_id = $2 OR post_id = $3", []any{leaving.ID, ownVideo.ID, ownPost.ID}},
		{"SELECT count(*) FROM subscriptions WHERE subscriber_id = $1 OR channel_id = $1", []any{leaving.ID}},
		{"SELECT count(*) FROM notifications", nil},
		{"SELECT count(*) FROM sessions WHERE account_id = $1", []any{leaving.ID}},
	}
	for _, check := range checks {
		var n int
		if err := testPool.QueryRow(ctx, check.query, check.args...).Scan(&n); err != nil {
			t.Fatalf("%s: %v", check.query, err)
		}
		if n != 0 {
			t.Fatalf("expected no rows for %q, got %d", check.query, n)
		}
	}

	var likes int
	if err := testPool.QueryRow(ctx, "SELECT count(*) FROM likes").Scan(&likes); err != nil {
		t.Fatalf("count likes: %v", err)
	}
	if likes != 0 {
		t.Fatalf("expected every like to be gone, got %d", likes)
	}

	comment, err := set.Comments.FindByID(ctx, kept.ID)
	if err != nil || comment.OwnerID != staying.ID {
		t.Fatalf("expected unrelated comment to survive, got %+v err=%v", comment, err)
	}

	remaining, err := set.Playlists.FindByID(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("find playlist: %v", err)
	}
	if len(remaining.VideoIDs) != 1 || remaining.VideoIDs[0] != otherVideo.ID {
		t.Fatalf("expected playlist to keep only the surviving video, got %v", remaining.VideoIDs)
	}

	history, err := set.Accounts.WatchHistory(ctx, staying.ID)
	if err != nil {
		t.Fatalf("watch history: %v", err)
	}
	if len(history) != 1 || history[0].ID != otherVideo.ID {
		t.Fatalf("expected history to keep only the surviving video, got %+v", history)
	}

	sort.Strings(mediaStore.deleted)
	want := []string{ownVideo.Thumbnail.Key, ownVideo.VideoFile.Key}
	sort.Strings(want)
	if fmt.Sprint(mediaStore.deleted) != fmt.Sprint(want) {
		t.Fatalf("expected media %v to be released, got %v", want, mediaStore.deleted)
	}
}

func mustDo(t *testing.T, what string, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", what, err)
	}
}

func seedAccount(t *testing.T, set repositories.Set, username string) models.Account {
	t.Helper()
	now := time.Now().UTC()
	account := models.Account{
		ID:           uuid.NewString(),
		Username:     username + "_" + uuid.NewString()[:8],
		FullName:     username,
		PasswordHash: "password-hash",
		IsVerified:   true,
		WatchHistory: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	account.Email = account.Username + "@example.com"
	mustDo(t, "create account", set.Accounts.Create(context.Background(), account))
	return account
}

func seedVideo(t *testing.T, set repositories.Set, ownerID string) models.Video {
	t.Helper()
	now := time.Now().UTC()
	id := uuid.NewString()
	video := models.Video{
		ID:          id,
		OwnerID:     ownerID,
		VideoFile:   models.Asset{URL: "http://media/videos/" + id + ".mp4", Key: "videos/" + id + ".mp4"},
		Thumbnail:   models.Asset{URL: "http://media/images/" + id + ".png", Key: "images/" + id + ".png"},
		Title:       "clip " + id[:8],
		Duration:    3,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	mustDo(t, "create video", set.Videos.Create(context.Background(), video))
	return video
}

func seedComment(t *testing.T, set repositories.Set, ownerID, videoID, postID string) models.Comment {
	t.Helper()
	now := time.Now().UTC()
	comment := models.Comment{ID: uuid.NewString(), Content: "nice", OwnerID: ownerID, VideoID: videoID, PostID: postID, CreatedAt: now, UpdatedAt: now}
	mustDo(t, "create comment", set.Comments.Create(context.Background(), comment))
	return comment
}

func seedLike(t *testing.T, set repositories.Set, likedBy string, kind models.LikeTarget, targetID string) {
	t.Helper()
	like := models.Like{ID: uuid.NewString(), LikedBy: likedBy, TargetKind: kind, TargetID: targetID, CreatedAt: time.Now().UTC()}
	mustDo(t, "create like", set.Likes.Create(context.Background(), like))
}

func seedNotification(t *testing.T, set repositories.Set, senderID, recipientID, videoID, commentID string) {
	t.Helper()
	n := models.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        models.NotificationComment,
		VideoID:     videoID,
		CommentID:   commentID,
		Message:     "someone commented",
		CreatedAt:   time.Now().UTC(),
	}
	mustDo(t, "create notification", set.Notifications.Create(context.Background(), n))
}
