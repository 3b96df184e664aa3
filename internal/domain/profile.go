package domain

import "time"

// ChannelProfile is a user viewed as a subscribable channel
type ChannelProfile struct {
	ID                string `json:"id"`
	FullName          string `json:"fullName"`
	UserName          string `json:"userName"`
	Email             string `json:"email"`
	AvatarURL         string `json:"avatar"`
	CoverImageURL     string `json:"coverImage"`
	SubscriberCount   int64  `json:"subscriberCount"`
	SubscribedToCount int64  `json:"subscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
}

// VideoOwner is the projection of a video's owner attached to watch history entries
type VideoOwner struct {
	FullName  string `json:"fullName"`
	UserName  string `json:"userName"`
	AvatarURL string `json:"avatar"`
}

// WatchedVideo is a video from a user's watch history with its owner resolved
type WatchedVideo struct {
	ID          string      `json:"id"`
	VideoFile   string      `json:"videoFile"`
	Thumbnail   string      `json:"thumbnail"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Duration    float64     `json:"duration"`
	Views       int64       `json:"views"`
	IsPublished bool        `json:"isPublished"`
	CreatedAt   time.Time   `json:"createdAt"`
	Owner       *VideoOwner `json:"owner"`
}
