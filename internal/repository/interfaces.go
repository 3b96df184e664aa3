package repository

import (
	"context"

	"github.com/prperemyshlev/media-identity/internal/domain"
)

// UserRepository defines methods for user operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmailOrUserName(ctx context.Context, email, userName string) (*domain.User, error)

	// SetRefreshToken stores token as the user's only live refresh token; an empty token clears it.
	SetRefreshToken(ctx context.Context, userID, token string) error
	// RotateRefreshToken replaces current with next only if current is still the stored value.
	RotateRefreshToken(ctx context.Context, userID, current, next string) error
	// UpdatePassword replaces currentHash with newHash only if currentHash is still stored.
	UpdatePassword(ctx context.Context, userID, currentHash, newHash string) error

	UpdateProfile(ctx context.Context, userID, fullName, email string) (*domain.User, error)
	UpdateAvatar(ctx context.Context, userID, url string) (*domain.User, error)
	UpdateCoverImage(ctx context.Context, userID, url string) (*domain.User, error)

	ProfileRepository
}

// ProfileRepository defines the aggregated read models built from users, subscriptions and videos
type ProfileRepository interface {
	ChannelProfile(ctx context.Context, userName, viewerID string) (*domain.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]domain.WatchedVideo, error)
}
