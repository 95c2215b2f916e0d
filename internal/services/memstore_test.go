package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

var errInjected = errors.New("injected failure")

// memDB is an in-memory stand-in for the Postgres schema. It enforces the
// same uniqueness rules and supports rollback through Do.
type memDB struct {
	mu sync.Mutex

	accounts      map[string]models.Account
	pending       map[string]models.PendingAccount
	sessions      map[string]auth.Session
	videos        map[string]models.Video
	comments      map[string]models.Comment
	likes         map[string]models.Like
	subs          map[string]models.Subscription
	notifications map[string]models.Notification
	posts         map[string]models.Post
	playlists     map[string]models.Playlist

	failOn map[string]bool
}

func newMemDB() *memDB {
	return &memDB{
		accounts:      map[string]models.Account{},
		pending:       map[string]models.PendingAccount{},
		sessions:      map[string]auth.Session{},
		videos:        map[string]models.Video{},
		comments:      map[string]models.Comment{},
		likes:         map[string]models.Like{},
		subs:          map[string]models.Subscription{},
		notifications: map[string]models.Notification{},
		posts:         map[string]models.Post{},
		playlists:     map[string]models.Playlist{},
		failOn:        map[string]bool{},
	}
}

func (db *memDB) stores() Stores {
	return Stores{
		Accounts:        memAccounts{db},
		PendingAccounts: memPending{db},
		Sessions:        memSessions{db},
		Videos:          memVideos{db},
		Comments:        memComments{db},
		Likes:           memLikes{db},
		Subscriptions:   memSubs{db},
		Notifications:   memNotifications{db},
		Posts:           memPosts{db},
		Playlists:       memPlaylists{db},
	}
}

func (db *memDB) fail(op string) {
	db.mu.Lock()
	db.failOn[op] = true
	db.mu.Unlock()
}

// check must be called with mu held.
func (db *memDB) check(op string) error {
	if db.failOn[op] {
		return fmt.Errorf("%s: %w", op, errInjected)
	}
	return nil
}

type memSnapshot struct {
	accounts      map[string]models.Account
	pending       map[string]models.PendingAccount
	sessions      map[string]auth.Session
	videos        map[string]models.Video
	comments      map[string]models.Comment
	likes         map[string]models.Like
	subs          map[string]models.Subscription
	notifications map[string]models.Notification
	posts         map[string]models.Post
	playlists     map[string]models.Playlist
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()

	snap := memSnapshot{
		accounts:      make(map[string]models.Account, len(db.accounts)),
		pending:       cloneMap(db.pending),
		sessions:      cloneMap(db.sessions),
		videos:        cloneMap(db.videos),
		comments:      cloneMap(db.comments),
		likes:         cloneMap(db.likes),
		subs:          cloneMap(db.subs),
		notifications: cloneMap(db.notifications),
		posts:         cloneMap(db.posts),
		playlists:     make(map[string]models.Playlist, len(db.playlists)),
	}
	for id, a := range db.accounts {
		a.WatchHistory = append([]string{}, a.WatchHistory...)
		snap.accounts[id] = a
	}
	for id, p := range db.playlists {
		p.VideoIDs = append([]string{}, p.VideoIDs...)
		snap.playlists[id] = p
	}
	return snap
}

func (db *memDB) restore(snap memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.accounts = snap.accounts
	db.pending = snap.pending
	db.sessions = snap.sessions
	db.videos = snap.videos
	db.comments = snap.comments
	db.likes = snap.likes
	db.subs = snap.subs
	db.notifications = snap.notifications
	db.posts = snap.posts
	db.playlists = snap.playlists
}

// Do implements UnitOfWork by restoring a snapshot when fn fails.
func (db *memDB) Do(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	snap := db.snapshot()
	if err := fn(ctx, db.stores()); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

// dangling lists every reference pointing at a record that no longer exists.
func (db *memDB) dangling() []string {
	db.mu.Lock()
	defer db.mu.Unlock()

	var issues []string
	add := func(format string, args ...any) { issues = append(issues, fmt.Sprintf(format, args...)) }

	for _, a := range db.accounts {
		for _, id := range a.WatchHistory {
			if _, ok := db.videos[id]; !ok {
				add("history of %s holds missing video %s", a.Username, id)
			}
		}
	}
	for _, v := range db.videos {
		if _, ok := db.accounts[v.OwnerID]; !ok {
			add("video %s has missing owner", v.ID)
		}
	}
	for _, p := range db.posts {
		if _, ok := db.accounts[p.OwnerID]; !ok {
			add("post %s has missing owner", p.ID)
		}
	}
	for _, c := range db.comments {
		if _, ok := db.accounts[c.OwnerID]; !ok {
			add("comment %s has missing owner", c.ID)
		}
		if c.VideoID != "" {
			if _, ok := db.videos[c.VideoID]; !ok {
				add("comment %s on missing video", c.ID)
			}
		}
		if c.PostID != "" {
			if _, ok := db.posts[c.PostID]; !ok {
				add("comment %s on missing post", c.ID)
			}
		}
	}
	for _, l := range db.likes {
		if _, ok := db.accounts[l.LikedBy]; !ok {
			add("like %s by missing account", l.ID)
		}
		if !db.targetExists(l.TargetKind, l.TargetID) {
			add("like %s on missing %s", l.ID, l.TargetKind)
		}
	}
	for _, s := range db.subs {
		_, okSub := db.accounts[s.SubscriberID]
		_, okChan := db.accounts[s.ChannelID]
		if !okSub || !okChan {
			add("subscription %s has a missing side", s.ID)
		}
	}
	for _, n := range db.notifications {
		_, okSender := db.accounts[n.SenderID]
		_, okRecipient := db.accounts[n.RecipientID]
		if !okSender || !okRecipient {
			add("notification %s has a missing party", n.ID)
		}
		if n.VideoID != "" {
			if _, ok := db.videos[n.VideoID]; !ok {
				add("notification %s references missing video", n.ID)
			}
		}
		if n.CommentID != "" {
			if _, ok := db.comments[n.CommentID]; !ok {
				add("notification %s references missing comment", n.ID)
			}
		}
	}
	for _, p := range db.playlists {
		if _, ok := db.accounts[p.OwnerID]; !ok {
			add("playlist %s has missing owner", p.ID)
		}
		for _, id := range p.VideoIDs {
			if _, ok := db.videos[id]; !ok {
				add("playlist %s holds missing video %s", p.Name, id)
			}
		}
	}
	for hash, s := range db.sessions {
		if _, ok := db.accounts[s.AccountID]; !ok {
			add("session %s for missing account", hash[:8])
		}
	}
	sort.Strings(issues)
	return issues
}

func (db *memDB) targetExists(kind models.LikeTarget, id string) bool {
	switch kind {
	case models.LikeTargetVideo:
		_, ok := db.videos[id]
		return ok
	case models.LikeTargetComment:
		_, ok := db.comments[id]
		return ok
	case models.LikeTargetPost:
		_, ok := db.posts[id]
		return ok
	}
	return false
}

func (db *memDB) ownerOf(id string) models.Owner {
	a := db.accounts[id]
	return models.Owner{ID: a.ID, Username: a.Username, FullName: a.FullName, Avatar: a.Avatar.URL}
}

func (db *memDB) likeCount(kind models.LikeTarget, id string) (count int64, likedBy map[string]bool) {
	likedBy = map[string]bool{}
	for _, l := range db.likes {
		if l.TargetKind == kind && l.TargetID == id {
			count++
			likedBy[l.LikedBy] = true
		}
	}
	return count, likedBy
}

func (db *memDB) subscriberCount(channelID string) int64 {
	var n int64
	for _, s := range db.subs {
		if s.ChannelID == channelID {
			n++
		}
	}
	return n
}

func (db *memDB) subscribed(subscriberID, channelID string) bool {
	for _, s := range db.subs {
		if s.SubscriberID == subscriberID && s.ChannelID == channelID {
			return true
		}
	}
	return false
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func pageOf[T any](items []T, req repositories.PageRequest) repositories.Page[T] {
	req = repositories.NewPageRequest(req.Page, req.Limit, req.SortBy, "", repositories.DefaultPageLimit)
	total := int64(len(items))
	start := req.Offset()
	if start > len(items) {
		start = len(items)
	}
	end := start + req.Limit
	if end > len(items) {
		end = len(items)
	}
	return repositories.NewPage(items[start:end], total, req)
}

func newestFirst[T any](items []T, created func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool { return created(items[i]).After(created(items[j])) })
}

func removeID(ids []string, remove map[string]bool) []string {
	out := ids[:0:0]
	for _, id := range ids {
		if !remove[id] {
			out = append(out, id)
		}
	}
	return out
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

type memAccounts struct{ db *memDB }

func (s memAccounts) Create(_ context.Context, account models.Account) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("accounts.create"); err != nil {
		return err
	}
	for _, a := range s.db.accounts {
		if a.Username == account.Username || a.Email == account.Email {
			return repositories.ErrConflict
		}
	}
	if account.WatchHistory == nil {
		account.WatchHistory = []string{}
	}
	s.db.accounts[account.ID] = account
	return nil
}

func (s memAccounts) FindByID(_ context.Context, id string) (models.Account, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.accounts[id]
	if !ok {
		return models.Account{}, repositories.ErrNotFound
	}
	return a, nil
}

func (s memAccounts) FindByLogin(_ context.Context, login string) (models.Account, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.accounts {
		if a.Username == login || a.Email == login {
			return a, nil
		}
	}
	return models.Account{}, repositories.ErrNotFound
}

func (s memAccounts) FindByEmail(_ context.Context, email string) (models.Account, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return models.Account{}, repositories.ErrNotFound
}

func (s memAccounts) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.accounts {
		if a.Username == username || a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s memAccounts) update(id string, fn func(*models.Account) error) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.accounts[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if err := fn(&a); err != nil {
		return err
	}
	s.db.accounts[id] = a
	return nil
}

func (s memAccounts) UpdateProfile(_ context.Context, id, fullName, email string) error {
	return s.update(id, func(a *models.Account) error {
		for _, other := range s.db.accounts {
			if other.ID != id && other.Email == email {
				return repositories.ErrConflict
			}
		}
		a.FullName, a.Email = fullName, email
		return nil
	})
}

func (s memAccounts) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return s.update(id, func(a *models.Account) error {
		a.PasswordHash = passwordHash
		a.ResetTokenHash, a.ResetTokenExpiresAt = "", nil
		return nil
	})
}

func (s memAccounts) UpdateAvatar(_ context.Context, id string, avatar models.Asset) error {
	return s.update(id, func(a *models.Account) error {
		if err := s.db.check("accounts.update_avatar"); err != nil {
			return err
		}
		a.Avatar = avatar
		return nil
	})
}

func (s memAccounts) UpdateCoverImage(_ context.Context, id string, cover models.Asset) error {
	return s.update(id, func(a *models.Account) error {
		a.CoverImage = cover
		return nil
	})
}

func (s memAccounts) SetResetToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	return s.update(id, func(a *models.Account) error {
		if tokenHash == "" {
			a.ResetTokenHash, a.ResetTokenExpiresAt = "", nil
			return nil
		}
		a.ResetTokenHash, a.ResetTokenExpiresAt = tokenHash, &expiresAt
		return nil
	})
}

func (s memAccounts) FindByResetToken(_ context.Context, tokenHash string, now time.Time) (models.Account, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.accounts {
		if a.ResetTokenHash == tokenHash && a.ResetTokenExpiresAt != nil && a.ResetTokenExpiresAt.After(now) {
			return a, nil
		}
	}
	return models.Account{}, repositories.ErrNotFound
}

func (s memAccounts) RecordView(_ context.Context, accountID, videoID string) error {
	return s.update(accountID, func(a *models.Account) error {
		a.WatchHistory = append([]string{videoID}, removeID(a.WatchHistory, map[string]bool{videoID: true})...)
		return nil
	})
}

func (s memAccounts) WatchHistory(_ context.Context, accountID string) ([]models.VideoSummary, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.VideoSummary
	for _, id := range s.db.accounts[accountID].WatchHistory {
		if v, ok := s.db.videos[id]; ok {
			out = append(out, models.VideoSummary{Video: v, Owner: s.db.ownerOf(v.OwnerID)})
		}
	}
	return out, nil
}

func (s memAccounts) ChannelProfile(_ context.Context, username, viewerID string) (models.ChannelProfile, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.accounts {
		if a.Username != username {
			continue
		}
		var subscribedTo int64
		for _, sub := range s.db.subs {
			if sub.SubscriberID == a.ID {
				subscribedTo++
			}
		}
		return models.ChannelProfile{
			ID:                   a.ID,
			Username:             a.Username,
			FullName:             a.FullName,
			Email:                a.Email,
			Avatar:               a.Avatar.URL,
			CoverImage:           a.CoverImage.URL,
			SubscribersCount:     s.db.subscriberCount(a.ID),
			ChannelsSubscribedTo: subscribedTo,
			IsSubscribed:         viewerID != "" && s.db.subscribed(viewerID, a.ID),
		}, nil
	}
	return models.ChannelProfile{}, repositories.ErrNotFound
}

func (s memAccounts) PullFromHistories(_ context.Context, videoIDs []string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("accounts.pull_histories"); err != nil {
		return err
	}
	remove := idSet(videoIDs)
	for id, a := range s.db.accounts {
		a.WatchHistory = removeID(a.WatchHistory, remove)
		s.db.accounts[id] = a
	}
	return nil
}

func (s memAccounts) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("accounts.delete"); err != nil {
		return err
	}
	if _, ok := s.db.accounts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.db.accounts, id)
	return nil
}

type memPending struct{ db *memDB }

func (s memPending) Create(_ context.Context, p models.PendingAccount) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("pending.create"); err != nil {
		return err
	}
	for _, other := range s.db.pending {
		if other.Username == p.Username || other.Email == p.Email {
			return repositories.ErrConflict
		}
	}
	s.db.pending[p.ID] = p
	return nil
}

func (s memPending) DeleteByUsernameOrEmail(_ context.Context, username, email string) ([]models.PendingAccount, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var removed []models.PendingAccount
	for id, p := range s.db.pending {
		if p.Username == username || p.Email == email {
			removed = append(removed, p)
			delete(s.db.pending, id)
		}
	}
	return removed, nil
}

func (s memPending) FindByTokenHash(_ context.Context, tokenHash string, now time.Time) (models.PendingAccount, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, p := range s.db.pending {
		if p.VerificationTokenHash == tokenHash && p.ExpiresAt.After(now) {
			return p, nil
		}
	}
	return models.PendingAccount{}, repositories.ErrNotFound
}

func (s memPending) ExistsByLogin(_ context.Context, login string, now time.Time) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, p := range s.db.pending {
		if (p.Username == login || p.Email == login) && p.ExpiresAt.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (s memPending) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.pending[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.db.pending, id)
	return nil
}

func (s memPending) DeleteExpired(_ context.Context, now time.Time) ([]models.PendingAccount, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var removed []models.PendingAccount
	for id, p := range s.db.pending {
		if !p.ExpiresAt.After(now) {
			delete(s.db.pending, id)
			removed = append(removed, p)
		}
	}
	return removed, nil
}

type memSessions struct{ db *memDB }

var _ auth.SessionStore = memSessions{}

func (s memSessions) Save(_ context.Context, session auth.Session) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.sessions[session.TokenHash] = session
	return nil
}

func (s memSessions) Find(_ context.Context, tokenHash string) (auth.Session, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	session, ok := s.db.sessions[tokenHash]
	if !ok {
		return auth.Session{}, auth.ErrSessionNotFound
	}
	return session, nil
}

func (s memSessions) Delete(_ context.Context, tokenHash string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.sessions[tokenHash]; !ok {
		return auth.ErrSessionNotFound
	}
	delete(s.db.sessions, tokenHash)
	return nil
}

func (s memSessions) DeleteByAccount(_ context.Context, accountID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for hash, session := range s.db.sessions {
		if session.AccountID == accountID {
			delete(s.db.sessions, hash)
		}
	}
	return nil
}

func (s memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for hash, session := range s.db.sessions {
		if !session.ExpiresAt.After(now) {
			delete(s.db.sessions, hash)
			n++
		}
	}
	return n, nil
}

type memVideos struct{ db *memDB }

func (s memVideos) Create(_ context.Context, video models.Video) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("videos.create"); err != nil {
		return err
	}
	if _, ok := s.db.accounts[video.OwnerID]; !ok {
		return repositories.ErrNotFound
	}
	s.db.videos[video.ID] = video
	return nil
}

func (s memVideos) FindByID(_ context.Context, id string) (models.Video, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	v, ok := s.db.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return v, nil
}

func (s memVideos) Detail(_ context.Context, id, viewerID string) (models.VideoDetail, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	v, ok := s.db.videos[id]
	if !ok {
		return models.VideoDetail{}, repositories.ErrNotFound
	}
	likes, likedBy := s.db.likeCount(models.LikeTargetVideo, id)
	return models.VideoDetail{
		Video: v,
		Owner: models.ChannelOwner{
			Owner:            s.db.ownerOf(v.OwnerID),
			SubscribersCount: s.db.subscriberCount(v.OwnerID),
			IsSubscribed:     viewerID != "" && s.db.subscribed(viewerID, v.OwnerID),
		},
		LikesCount: likes,
		IsLiked:    likedBy[viewerID],
	}, nil
}

func (s memVideos) update(id string, fn func(*models.Video)) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	v, ok := s.db.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	fn(&v)
	s.db.videos[id] = v
	return nil
}

func (s memVideos) Update(_ context.Context, video models.Video) error {
	return s.update(video.ID, func(v *models.Video) {
		v.Title, v.Description, v.Thumbnail = video.Title, video.Description, video.Thumbnail
	})
}

func (s memVideos) SetPublished(_ context.Context, id string, published bool) error {
	return s.update(id, func(v *models.Video) { v.IsPublished = published })
}

func (s memVideos) IncrementViews(_ context.Context, id string) error {
	return s.update(id, func(v *models.Video) { v.Views++ })
}

func (s memVideos) ListByOwner(_ context.Context, ownerID string) ([]models.Video, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Video
	for _, v := range s.db.videos {
		if v.OwnerID == ownerID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s memVideos) IDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	videos, _ := s.ListByOwner(ctx, ownerID)
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.ID)
	}
	return ids, nil
}

func (s memVideos) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("videos.delete"); err != nil {
		return err
	}
	if _, ok := s.db.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.db.videos, id)
	return nil
}

func (s memVideos) DeleteByIDs(_ context.Context, ids []string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, id := range ids {
		delete(s.db.videos, id)
	}
	return nil
}

func (s memVideos) summaries(keep func(models.Video) bool) []models.VideoSummary {
	var out []models.VideoSummary
	for _, v := range s.db.videos {
		if keep(v) {
			out = append(out, models.VideoSummary{Video: v, Owner: s.db.ownerOf(v.OwnerID)})
		}
	}
	newestFirst(out, func(v models.VideoSummary) time.Time { return v.CreatedAt })
	return out
}

func (s memVideos) List(_ context.Context, filter repositories.VideoFilter, req repositories.PageRequest) (repositories.Page[models.VideoSummary], error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	query := strings.ToLower(filter.Query)
	return pageOf(s.summaries(func(v models.Video) bool {
		if !v.IsPublished && !filter.IncludeUnpublished {
			return false
		}
		if filter.OwnerID != "" && v.OwnerID != filter.OwnerID {
			return false
		}
		return query == "" || strings.Contains(strings.ToLower(v.Title+" "+v.Description), query)
	}), req), nil
}

func (s memVideos) LikedBy(_ context.Context, accountID string, req repositories.PageRequest) (repositories.Page[models.VideoSummary], error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return pageOf(s.summaries(func(v models.Video) bool {
		_, likedBy := s.db.likeCount(models.LikeTargetVideo, v.ID)
		return v.IsPublished && likedBy[accountID]
	}), req), nil
}

func (s memVideos) ChannelStats(_ context.Context, ownerID string) (models.ChannelStats, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stats := models.ChannelStats{TotalSubscribers: s.db.subscriberCount(ownerID)}
	for _, v := range s.db.videos {
		if v.OwnerID != ownerID {
			continue
		}
		stats.TotalVideos++
		stats.TotalViews += v.Views
		likes, _ := s.db.likeCount(models.LikeTargetVideo, v.ID)
		stats.TotalLikes += likes
	}
	return stats, nil
}

type memComments struct{ db *memDB }

func (s memComments) Create(_ context.Context, c models.Comment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if c.VideoID != "" {
		if _, ok := s.db.videos[c.VideoID]; !ok {
			return repositories.ErrNotFound
		}
	}
	if c.PostID != "" {
		if _, ok := s.db.posts[c.PostID]; !ok {
			return repositories.ErrNotFound
		}
	}
	s.db.comments[c.ID] = c
	return nil
}

func (s memComments) FindByID(_ context.Context, id string) (models.Comment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return c, nil
}

func (s memComments) UpdateContent(_ context.Context, id, content string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.comments[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.Content = content
	s.db.comments[id] = c
	return nil
}

func (s memComments) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.db.comments, id)
	return nil
}

func (s memComments) DeleteByIDs(_ context.Context, ids []string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, id := range ids {
		delete(s.db.comments, id)
	}
	return nil
}

func (s memComments) ids(keep func(models.Comment) bool) []string {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []string
	for _, c := range s.db.comments {
		if keep(c) {
			out = append(out, c.ID)
		}
	}
	return out
}

func (s memComments) IDsByOwner(_ context.Context, ownerID string) ([]string, error) {
	return s.ids(func(c models.Comment) bool { return c.OwnerID == ownerID }), nil
}

func (s memComments) IDsForVideos(_ context.Context, videoIDs []string) ([]string, error) {
	set := idSet(videoIDs)
	return s.ids(func(c models.Comment) bool { return c.VideoID != "" && set[c.VideoID] }), nil
}

func (s memComments) IDsForPosts(_ context.Context, postIDs []string) ([]string, error) {
	set := idSet(postIDs)
	return s.ids(func(c models.Comment) bool { return c.PostID != "" && set[c.PostID] }), nil
}

func (s memComments) list(keep func(models.Comment) bool, viewerID string, req repositories.PageRequest) repositories.Page[models.CommentView] {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.CommentView
	for _, c := range s.db.comments {
		if !keep(c) {
			continue
		}
		likes, likedBy := s.db.likeCount(models.LikeTargetComment, c.ID)
		out = append(out, models.CommentView{Comment: c, Owner: s.db.ownerOf(c.OwnerID), LikesCount: likes, IsLiked: likedBy[viewerID]})
	}
	newestFirst(out, func(c models.CommentView) time.Time { return c.CreatedAt })
	return pageOf(out, req)
}

func (s memComments) ListForVideo(_ context.Context, videoID, viewerID string, req repositories.PageRequest) (repositories.Page[models.CommentView], error) {
	return s.list(func(c models.Comment) bool { return c.VideoID == videoID }, viewerID, req), nil
}

func (s memComments) ListForPost(_ context.Context, postID, viewerID string, req repositories.PageRequest) (repositories.Page[models.CommentView], error) {
	return s.list(func(c models.Comment) bool { return c.PostID == postID }, viewerID, req), nil
}

type memLikes struct{ db *memDB }

func (s memLikes) Find(_ context.Context, likedBy string, kind models.LikeTarget, targetID string) (models.Like, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, l := range s.db.likes {
		if l.LikedBy == likedBy && l.TargetKind == kind && l.TargetID == targetID {
			return l, nil
		}
	}
	return models.Like{}, repositories.ErrNotFound
}

func (s memLikes) Create(_ context.Context, like models.Like) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, l := range s.db.likes {
		if l.LikedBy == like.LikedBy && l.TargetKind == like.TargetKind && l.TargetID == like.TargetID {
			return repositories.ErrConflict
		}
	}
	s.db.likes[like.ID] = like
	return nil
}

func (s memLikes) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.likes[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.db.likes, id)
	return nil
}

func (s memLikes) DeleteByAccount(_ context.Context, accountID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for id, l := range s.db.likes {
		if l.LikedBy == accountID {
			delete(s.db.likes, id)
		}
	}
	return nil
}

func (s memLikes) DeleteForTargets(_ context.Context, kind models.LikeTarget, targetIDs []string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	set := idSet(targetIDs)
	for id, l := range s.db.likes {
		if l.TargetKind == kind && set[l.TargetID] {
			delete(s.db.likes, id)
		}
	}
	return nil
}

func (s memLikes) CountForTarget(_ context.Context, kind models.LikeTarget, targetID string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	count, _ := s.db.likeCount(kind, targetID)
	return count, nil
}

type memSubs struct{ db *memDB }

func (s memSubs) Find(_ context.Context, subscriberID, channelID string) (models.Subscription, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, sub := range s.db.subs {
		if sub.SubscriberID == subscriberID && sub.ChannelID == channelID {
			return sub, nil
		}
	}
	return models.Subscription{}, repositories.ErrNotFound
}

func (s memSubs) Create(_ context.Context, sub models.Subscription) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.subscribed(sub.SubscriberID, sub.ChannelID) {
		return repositories.ErrConflict
	}
	s.db.subs[sub.ID] = sub
	return nil
}

func (s memSubs) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.subs[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.db.subs, id)
	return nil
}

func (s memSubs) DeleteForAccount(_ context.Context, accountID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for id, sub := range s.db.subs {
		if sub.SubscriberID == accountID || sub.ChannelID == accountID {
			delete(s.db.subs, id)
		}
	}
	return nil
}

func (s memSubs) views(req repositories.PageRequest, match func(models.Subscription) (string, bool)) repositories.Page[models.SubscriptionView] {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.SubscriptionView
	for _, sub := range s.db.subs {
		other, ok := match(sub)
		if !ok {
			continue
		}
		out = append(out, models.SubscriptionView{
			ID:               sub.ID,
			Account:          s.db.ownerOf(other),
			SubscribersCount: s.db.subscriberCount(other),
			SubscribedAt:     sub.CreatedAt,
		})
	}
	newestFirst(out, func(v models.SubscriptionView) time.Time { return v.SubscribedAt })
	return pageOf(out, req)
}

func (s memSubs) Subscribers(_ context.Context, channelID string, req repositories.PageRequest) (repositories.Page[models.SubscriptionView], error) {
	return s.views(req, func(sub models.Subscription) (string, bool) {
		return sub.SubscriberID, sub.ChannelID == channelID
	}), nil
}

func (s memSubs) Channels(_ context.Context, subscriberID string, req repositories.PageRequest) (repositories.Page[models.SubscriptionView], error) {
	return s.views(req, func(sub models.Subscription) (string, bool) {
		return sub.ChannelID, sub.SubscriberID == subscriberID
	}), nil
}

type memNotifications struct{ db *memDB }

func (s memNotifications) Create(_ context.Context, n models.Notification) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("notifications.create"); err != nil {
		return err
	}
	if _, ok := s.db.videos[n.VideoID]; n.VideoID != "" && !ok {
		return repositories.ErrNotFound
	}
	if _, ok := s.db.comments[n.CommentID]; n.CommentID != "" && !ok {
		return repositories.ErrNotFound
	}
	s.db.notifications[n.ID] = n
	return nil
}

func (s memNotifications) all(recipientID string) []models.Notification {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Notification
	for _, n := range s.db.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	newestFirst(out, func(n models.Notification) time.Time { return n.CreatedAt })
	return out
}

func (s memNotifications) List(_ context.Context, recipientID string, req repositories.PageRequest) (repositories.Page[models.NotificationView], error) {
	notifications := s.all(recipientID)
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	views := make([]models.NotificationView, 0, len(notifications))
	for _, n := range notifications {
		views = append(views, models.NotificationView{Notification: n, Sender: s.db.ownerOf(n.SenderID)})
	}
	return pageOf(views, req), nil
}

func (s memNotifications) UnreadCount(_ context.Context, recipientID string) (int64, error) {
	var n int64
	for _, item := range s.all(recipientID) {
		if !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (s memNotifications) MarkRead(_ context.Context, id, recipientID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n, ok := s.db.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return repositories.ErrNotFound
	}
	n.IsRead = true
	s.db.notifications[id] = n
	return nil
}

func (s memNotifications) MarkAllRead(_ context.Context, recipientID string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var updated int64
	for id, n := range s.db.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			s.db.notifications[id] = n
			updated++
		}
	}
	return updated, nil
}

func (s memNotifications) Delete(_ context.Context, id, recipientID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n, ok := s.db.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return repositories.ErrNotFound
	}
	delete(s.db.notifications, id)
	return nil
}

func (s memNotifications) deleteWhere(match func(models.Notification) bool) int64 {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var deleted int64
	for id, n := range s.db.notifications {
		if match(n) {
			delete(s.db.notifications, id)
			deleted++
		}
	}
	return deleted
}

func (s memNotifications) DeleteAll(_ context.Context, recipientID string) (int64, error) {
	return s.deleteWhere(func(n models.Notification) bool { return n.RecipientID == recipientID }), nil
}

func (s memNotifications) DeleteForAccount(_ context.Context, accountID string) error {
	s.deleteWhere(func(n models.Notification) bool { return n.RecipientID == accountID || n.SenderID == accountID })
	return nil
}

func (s memNotifications) DeleteForVideos(_ context.Context, videoIDs []string) error {
	set := idSet(videoIDs)
	s.deleteWhere(func(n models.Notification) bool { return n.VideoID != "" && set[n.VideoID] })
	return nil
}

func (s memNotifications) DeleteForComments(_ context.Context, commentIDs []string) error {
	set := idSet(commentIDs)
	s.deleteWhere(func(n models.Notification) bool { return n.CommentID != "" && set[n.CommentID] })
	return nil
}

type memPosts struct{ db *memDB }

func (s memPosts) Create(_ context.Context, post models.Post) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.posts[post.ID] = post
	return nil
}

func (s memPosts) FindByID(_ context.Context, id string) (models.Post, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.posts[id]
	if !ok {
		return models.Post{}, repositories.ErrNotFound
	}
	return p, nil
}

func (s memPosts) UpdateContent(_ context.Context, id, content string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.posts[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.Content = content
	s.db.posts[id] = p
	return nil
}

func (s memPosts) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.posts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.db.posts, id)
	return nil
}

func (s memPosts) IDsByOwner(_ context.Context, ownerID string) ([]string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var ids []string
	for _, p := range s.db.posts {
		if p.OwnerID == ownerID {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func (s memPosts) DeleteByOwner(_ context.Context, ownerID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for id, p := range s.db.posts {
		if p.OwnerID == ownerID {
			delete(s.db.posts, id)
		}
	}
	return nil
}

func (s memPosts) ListByOwner(_ context.Context, ownerID, viewerID string, req repositories.PageRequest) (repositories.Page[models.PostView], error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.PostView
	for _, p := range s.db.posts {
		if p.OwnerID != ownerID {
			continue
		}
		likes, likedBy := s.db.likeCount(models.LikeTargetPost, p.ID)
		out = append(out, models.PostView{Post: p, Owner: s.db.ownerOf(p.OwnerID), LikesCount: likes, IsLiked: likedBy[viewerID]})
	}
	newestFirst(out, func(p models.PostView) time.Time { return p.CreatedAt })
	return pageOf(out, req), nil
}

type memPlaylists struct{ db *memDB }

func (s memPlaylists) Create(_ context.Context, p models.Playlist) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p.VideoIDs = append([]string{}, p.VideoIDs...)
	s.db.playlists[p.ID] = p
	return nil
}

func (s memPlaylists) FindByID(_ context.Context, id string) (models.Playlist, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	p.VideoIDs = append([]string{}, p.VideoIDs...)
	return p, nil
}

func (s memPlaylists) Videos(_ context.Context, playlistID string) ([]models.VideoSummary, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.VideoSummary
	for _, id := range s.db.playlists[playlistID].VideoIDs {
		if v, ok := s.db.videos[id]; ok && v.IsPublished {
			out = append(out, models.VideoSummary{Video: v, Owner: s.db.ownerOf(v.OwnerID)})
		}
	}
	return out, nil
}

func (s memPlaylists) Update(_ context.Context, id, name, description string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.playlists[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.Name, p.Description = name, description
	s.db.playlists[id] = p
	return nil
}

func (s memPlaylists) AddVideo(_ context.Context, playlistID, videoID string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.playlists[playlistID]
	if !ok {
		return false, nil
	}
	for _, id := range p.VideoIDs {
		if id == videoID {
			return false, nil
		}
	}
	p.VideoIDs = append(append([]string{}, p.VideoIDs...), videoID)
	s.db.playlists[playlistID] = p
	return true, nil
}

func (s memPlaylists) RemoveVideo(_ context.Context, playlistID, videoID string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.playlists[playlistID]
	if !ok {
		return false, nil
	}
	before := len(p.VideoIDs)
	p.VideoIDs = removeID(p.VideoIDs, map[string]bool{videoID: true})
	s.db.playlists[playlistID] = p
	return len(p.VideoIDs) != before, nil
}

func (s memPlaylists) PullVideos(_ context.Context, videoIDs []string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("playlists.pull"); err != nil {
		return err
	}
	remove := idSet(videoIDs)
	for id, p := range s.db.playlists {
		p.VideoIDs = removeID(p.VideoIDs, remove)
		s.db.playlists[id] = p
	}
	return nil
}

func (s memPlaylists) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.playlists[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.db.playlists, id)
	return nil
}

func (s memPlaylists) DeleteByOwner(_ context.Context, ownerID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for id, p := range s.db.playlists {
		if p.OwnerID == ownerID {
			delete(s.db.playlists, id)
		}
	}
	return nil
}

func (s memPlaylists) ListByOwner(_ context.Context, ownerID string, req repositories.PageRequest) (repositories.Page[models.Playlist], error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Playlist
	for _, p := range s.db.playlists {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	newestFirst(out, func(p models.Playlist) time.Time { return p.CreatedAt })
	return pageOf(out, req), nil
}

// fakeMedia records uploads and deletions instead of touching storage.
type fakeMedia struct {
	mu        sync.Mutex
	next      int
	stored    map[string]bool
	deleted   []string
	failKinds map[media.Kind]bool
	failDel   bool
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{stored: map[string]bool{}, failKinds: map[media.Kind]bool{}}
}

func (m *fakeMedia) Upload(_ context.Context, localPath string, kind media.Kind) (media.Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = os.Remove(localPath)
	if m.failKinds[kind] {
		return media.Upload{}, errInjected
	}
	m.next++
	key := fmt.Sprintf("%ss/%d", kind, m.next)
	m.stored[key] = true
	upload := media.Upload{Asset: models.Asset{URL: "https://cdn.test/" + key, Key: key}}
	if kind == media.KindVideo {
		upload.Duration = 60
	}
	return upload, nil
}

func (m *fakeMedia) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, key)
	if m.failDel {
		return errInjected
	}
	delete(m.stored, key)
	return nil
}

func (m *fakeMedia) storedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.stored))
	for k := range m.stored {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// fakeMailer captures outgoing mail.
type fakeMailer struct {
	mu           sync.Mutex
	verification map[string]string
	resets       map[string]string
	fail         bool
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{verification: map[string]string{}, resets: map[string]string{}}
}

func (m *fakeMailer) SendVerification(_ context.Context, to, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errInjected
	}
	m.verification[to] = token
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, _, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errInjected
	}
	m.resets[to] = resetURL
	return nil
}
