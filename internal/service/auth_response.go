package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prperemyshlev/media-identity/internal/domain"
	"github.com/prperemyshlev/media-identity/internal/dto"
	"github.com/prperemyshlev/media-identity/internal/repository"
)

// startSession mints a fresh token pair and stores its refresh token as the
// user's only live one, superseding any earlier session.
func (s *authService) startSession(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	pair, err := s.jwtManager.GeneratePair(user)
	if err != nil {
		return nil, internal(MsgSomethingWentWrong, fmt.Errorf("failed to generate tokens: %w", err))
	}

	if err := s.userRepo.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, MsgUserNotFound, err)
		}
		return nil, internal(MsgSomethingWentWrong, fmt.Errorf("failed to save refresh token: %w", err))
	}

	return pair, nil
}

// rotateSession mints a fresh pair and swaps it in only if current is still the stored refresh token
func (s *authService) rotateSession(ctx context.Context, user *domain.User, current string) (*domain.TokenPair, error) {
	pair, err := s.jwtManager.GeneratePair(user)
	if err != nil {
		return nil, internal(MsgSomethingWentWrong, fmt.Errorf("failed to generate tokens: %w", err))
	}

	if err := s.userRepo.RotateRefreshToken(ctx, user.ID, current, pair.RefreshToken); err != nil {
		if errors.Is(err, repository.ErrTokenMismatch) {
			return nil, unauthorized(MsgRefreshTokenUsed, err)
		}
		return nil, internal(MsgSomethingWentWrong, fmt.Errorf("failed to rotate refresh token: %w", err))
	}

	return pair, nil
}

func newLoginResponse(user *domain.User, pair *domain.TokenPair) *dto.LoginResponse {
	response := &dto.LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
	if user != nil {
		response.User = dto.NewUserResponse(user)
	}
	return response
}
