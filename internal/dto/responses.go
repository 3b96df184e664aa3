package dto

import (
	"time"

	"github.com/prperemyshlev/media-identity/internal/domain"
)

// APIResponse is the envelope of every successful response
type APIResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// APIErrorResponse is the envelope of every failed response
type APIErrorResponse struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// NewAPIResponse wraps data in a success envelope
func NewAPIResponse(statusCode int, data any, message string) APIResponse {
	return APIResponse{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
		Success:    statusCode < 400,
	}
}

// NewAPIErrorResponse builds a failure envelope
func NewAPIErrorResponse(statusCode int, message string, errs ...string) APIErrorResponse {
	if errs == nil {
		errs = []string{}
	}
	return APIErrorResponse{
		StatusCode: statusCode,
		Message:    message,
		Success:    false,
		Errors:     errs,
	}
}

// UserResponse is the sanitized projection of a user: no password hash, no refresh token
type UserResponse struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	UserName     string    `json:"userName"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage"`
	WatchHistory []string  `json:"watchHistory"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewUserResponse projects a user into its sanitized form
func NewUserResponse(user *domain.User) *UserResponse {
	history := user.WatchHistory
	if history == nil {
		history = []string{}
	}
	return &UserResponse{
		ID:           user.ID,
		FullName:     user.FullName,
		Email:        user.Email,
		UserName:     user.UserName,
		Avatar:       user.AvatarURL,
		CoverImage:   user.CoverImageURL,
		WatchHistory: history,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

// LoginResponse is returned by login and refresh
type LoginResponse struct {
	User         *UserResponse `json:"user,omitempty"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
}
