package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prperemyshlev/media-identity/internal/domain"
	"github.com/prperemyshlev/media-identity/internal/repository"
)

// profileService implements ProfileService; it injects the viewer identity into the read models
type profileService struct {
	profiles repository.ProfileRepository
}

// NewProfileService creates a new profile service
func NewProfileService(profiles repository.ProfileRepository) ProfileService {
	return &profileService{profiles: profiles}
}

func (s *profileService) ChannelProfile(ctx context.Context, userName, viewerID string) (*domain.ChannelProfile, error) {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return nil, badRequest(MsgUserNameMissing)
	}

	profile, err := s.profiles.ChannelProfile(ctx, userName, viewerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, MsgChannelNotFound, err)
		}
		return nil, internal(MsgSomethingWentWrong, fmt.Errorf("failed to get channel profile: %w", err))
	}

	return profile, nil
}

func (s *profileService) WatchHistory(ctx context.Context, userID string) ([]domain.WatchedVideo, error) {
	videos, err := s.profiles.WatchHistory(ctx, userID)
	if err != nil {
		return nil, internal(MsgSomethingWentWrong, fmt.Errorf("failed to get watch history: %w", err))
	}
	return videos, nil
}
