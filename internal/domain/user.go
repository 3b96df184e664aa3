package domain

import "time"

// User represents an account on the platform
type User struct {
	ID            string    `json:"id" db:"id"`
	FullName      string    `json:"fullName" db:"full_name"`
	Email         string    `json:"email" db:"email"`
	UserName      string    `json:"userName" db:"user_name"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	AvatarURL     string    `json:"avatar" db:"avatar_url"`
	CoverImageURL string    `json:"coverImage" db:"cover_image_url"`
	RefreshToken  *string   `json:"-" db:"refresh_token"`
	WatchHistory  []string  `json:"watchHistory" db:"watch_history"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// HasRefreshToken reports whether token equals the refresh token currently stored for the user
func (u *User) HasRefreshToken(token string) bool {
	return u.RefreshToken != nil && *u.RefreshToken == token
}
