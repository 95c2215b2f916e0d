package models

import "time"

// Asset references an object held in external media storage. Key is the storage
// identifier used for deletion and is never exposed to clients.
type Asset struct {
	URL string `json:"url"`
	Key string `json:"-"`
}

// IsZero reports whether the asset has never been uploaded.
func (a Asset) IsZero() bool {
	return a.URL == "" && a.Key == ""
}

// Account represents a verified VideoTube user.
type Account struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	FullName            string     `json:"fullName"`
	PasswordHash        string     `json:"-"`
	Avatar              Asset      `json:"avatar"`
	CoverImage          Asset      `json:"coverImage"`
	IsVerified          bool       `json:"isVerified"`
	ResetTokenHash      string     `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	WatchHistory        []string   `json:"watchHistory"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// PendingAccount holds a registration awaiting email verification.
type PendingAccount struct {
	ID                    string
	Username              string
	Email                 string
	FullName              string
	PasswordHash          string
	Avatar                Asset
	CoverImage            Asset
	VerificationTokenHash string
	ExpiresAt             time.Time
	CreatedAt             time.Time
}

// Owner is the public projection of an account attached to joined records.
type Owner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// Video is a published content item.
type Video struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	VideoFile   Asset     `json:"videoFile"`
	Thumbnail   Asset     `json:"thumbnail"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// VideoSummary is a video joined with its owner's public profile.
type VideoSummary struct {
	Video
	Owner Owner `json:"owner"`
}

// ChannelOwner extends Owner with subscription information for the viewer.
type ChannelOwner struct {
	Owner
	SubscribersCount int64 `json:"subscribersCount"`
	IsSubscribed     bool  `json:"isSubscribed"`
}

// VideoDetail is the full single-video projection.
type VideoDetail struct {
	Video
	Owner      ChannelOwner `json:"owner"`
	LikesCount int64        `json:"likesCount"`
	IsLiked    bool         `json:"isLiked"`
}

// Comment is a text reply attached to exactly one video or post.
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	OwnerID   string    `json:"ownerId"`
	VideoID   string    `json:"videoId,omitempty"`
	PostID    string    `json:"postId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CommentView is a comment joined with its owner and like information.
type CommentView struct {
	Comment
	Owner      Owner `json:"owner"`
	LikesCount int64 `json:"likesCount"`
	IsLiked    bool  `json:"isLiked"`
}

// LikeTarget enumerates the kinds of records an account can like.
type LikeTarget string

const (
	LikeTargetVideo   LikeTarget = "video"
	LikeTargetComment LikeTarget = "comment"
	LikeTargetPost    LikeTarget = "post"
)

// Like is the join record between an account and a liked target.
type Like struct {
	ID         string     `json:"id"`
	LikedBy    string     `json:"likedBy"`
	TargetKind LikeTarget `json:"targetKind"`
	TargetID   string     `json:"targetId"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Subscription is the join record between a subscriber and a channel.
type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriberId"`
	ChannelID    string    `json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SubscriptionView lists one side of a subscription edge with its profile.
type SubscriptionView struct {
	ID               string    `json:"id"`
	Account          Owner     `json:"account"`
	SubscribersCount int64     `json:"subscribersCount"`
	SubscribedAt     time.Time `json:"subscribedAt"`
}

// NotificationType enumerates the events that produce notifications.
type NotificationType string

const (
	NotificationLike      NotificationType = "like"
	NotificationSubscribe NotificationType = "subscribe"
	NotificationComment   NotificationType = "comment"
)

// Notification informs a recipient about another account's action.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipientId"`
	SenderID    string           `json:"senderId"`
	Type        NotificationType `json:"type"`
	VideoID     string           `json:"videoId,omitempty"`
	CommentID   string           `json:"commentId,omitempty"`
	Message     string           `json:"message"`
	IsRead      bool             `json:"isRead"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// NotificationView is a notification joined with its sender's profile.
type NotificationView struct {
	Notification
	Sender Owner `json:"sender"`
}

// Post is a short text update published by an account.
type Post struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostView is a post joined with its owner and like information.
type PostView struct {
	Post
	Owner      Owner `json:"owner"`
	LikesCount int64 `json:"likesCount"`
	IsLiked    bool  `json:"isLiked"`
}

// Playlist is an ordered, duplicate-free list of videos curated by an account.
type Playlist struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	VideoIDs    []string  `json:"videoIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PlaylistDetail is a playlist with its videos resolved in playlist order.
type PlaylistDetail struct {
	Playlist
	Owner  Owner          `json:"owner"`
	Videos []VideoSummary `json:"videos"`
}

// ChannelProfile is the public channel page of an account.
type ChannelProfile struct {
	ID                   string `json:"id"`
	Username             string `json:"username"`
	FullName             string `json:"fullName"`
	Email                string `json:"email"`
	Avatar               string `json:"avatar"`
	CoverImage           string `json:"coverImage"`
	SubscribersCount     int64  `json:"subscribersCount"`
	ChannelsSubscribedTo int64  `json:"channelsSubscribedToCount"`
	IsSubscribed         bool   `json:"isSubscribed"`
}

// ChannelStats summarises a channel for its owner's dashboard.
type ChannelStats struct {
	TotalVideos      int64 `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalSubscribers int64 `json:"totalSubscribers"`
	TotalLikes       int64 `json:"totalLikes"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
