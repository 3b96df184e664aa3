package service

import (
	"context"

	"github.com/prperemyshlev/media-identity/internal/domain"
	"github.com/prperemyshlev/media-identity/internal/dto"
)

// AuthService defines the account and session lifecycle operations
type AuthService interface {
	// Register creates an account. avatarPath and coverPath are local temp files; coverPath may be empty.
	Register(ctx context.Context, req *dto.RegisterRequest, avatarPath, coverPath string) (*dto.UserResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	Logout(ctx context.Context, userID string) error
	RefreshToken(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error

	GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error)
	UpdateAccount(ctx context.Context, userID string, req *dto.UpdateAccountRequest) (*dto.UserResponse, error)
	UpdateAvatar(ctx context.Context, userID, localPath string) (*dto.UserResponse, error)
	UpdateCoverImage(ctx context.Context, userID, localPath string) (*dto.UserResponse, error)

	// Authenticate verifies an access token and resolves the user it names
	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
}

// ProfileService exposes the channel and watch history read models
type ProfileService interface {
	ChannelProfile(ctx context.Context, userName, viewerID string) (*domain.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]domain.WatchedVideo, error)
}

// MediaStore persists uploaded files and returns their public URL
type MediaStore interface {
	// Store uploads the local file and removes it afterwards, whether or not the upload succeeded.
	Store(ctx context.Context, localPath string) (string, error)
	// Discard removes a local temp file that will not be stored.
	Discard(localPath string)
}

// EventRecorder counts authentication events by outcome
type EventRecorder interface {
	Record(ctx context.Context, event, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, string) {}
