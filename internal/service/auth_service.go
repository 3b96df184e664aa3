package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prperemyshlev/media-identity/internal/domain"
	"github.com/prperemyshlev/media-identity/internal/dto"
	"github.com/prperemyshlev/media-identity/internal/repository"
	"github.com/prperemyshlev/media-identity/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// authService implements AuthService interface
type authService struct {
	userRepo   repository.UserRepository
	jwtManager *utils.JWTManager
	hasher     *utils.PasswordHasher
	media      MediaStore
	cache      *UserCache
	metrics    EventRecorder
	logger     *zap.Logger
}

// NewAuthService creates a new auth service. cache and metrics may be nil.
func NewAuthService(
	userRepo repository.UserRepository,
	jwtManager *utils.JWTManager,
	hasher *utils.PasswordHasher,
	media MediaStore,
	cache *UserCache,
	metrics EventRecorder,
	logger *zap.Logger,
) AuthService {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &authService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		hasher:     hasher,
		media:      media,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
	}
}

// Register registers a new user
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest, avatarPath, coverPath string) (_ *dto.UserResponse, err error) {
	defer func() { s.record(ctx, "register", err) }()

	uploaded := false
	defer func() {
		if !uploaded {
			s.discard(avatarPath, coverPath)
		}
	}()

	if utils.IsBlank(req.FullName, req.Email, req.UserName, req.Password) {
		return nil, badRequest(MsgFillAllFields)
	}

	email := utils.SanitizeEmail(req.Email)
	userName := utils.NormalizeUserName(req.UserName)

	_, err = s.userRepo.FindByEmailOrUserName(ctx, email, userName)
	if err == nil {
		return nil, newError(KindConflict, MsgUserExists, nil)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, internal(MsgRegisterFailed, fmt.Errorf("failed to check user existence: %w", err))
	}

	if avatarPath == "" {
		return nil, badRequest(MsgAvatarRequired)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return nil, newError(KindBadRequest, err.Error(), err)
		}
		return nil, internal(MsgRegisterFailed, err)
	}

	uploaded = true
	avatarURL, coverURL, err := s.uploadImages(ctx, avatarPath, coverPath)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		FullName:      strings.TrimSpace(req.FullName),
		Email:         email,
		UserName:      userName,
		PasswordHash:  passwordHash,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, newError(KindConflict, MsgUserExists, err)
		}
		return nil, internal(MsgRegisterFailed, err)
	}

	created, err := s.userRepo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, internal(MsgRegisterFailed, err)
	}

	s.logger.Info("user registered", zap.String("user_id", created.ID), zap.String("user_name", created.UserName))

	return dto.NewUserResponse(created), nil
}

// uploadImages stores the avatar and the optional cover image concurrently.
// Only an avatar failure is fatal; a failed cover leaves the URL empty.
func (s *authService) uploadImages(ctx context.Context, avatarPath, coverPath string) (avatarURL, coverURL string, err error) {
	var g errgroup.Group

	g.Go(func() error {
		url, err := s.media.Store(ctx, avatarPath)
		if err != nil {
			return err
		}
		if url == "" {
			return errors.New("media store returned an empty url")
		}
		avatarURL = url
		return nil
	})

	if coverPath != "" {
		g.Go(func() error {
			url, err := s.media.Store(ctx, coverPath)
			if err != nil {
				s.logger.Warn("cover image upload failed", zap.Error(err))
				return nil
			}
			coverURL = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", "", newError(KindUploadFailed, MsgAvatarUploadFailed, err)
	}

	return avatarURL, coverURL, nil
}

// Login authenticates a user by user name or email
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (_ *dto.LoginResponse, err error) {
	defer func() { s.record(ctx, "login", err) }()

	email := utils.SanitizeEmail(req.Email)
	userName := utils.NormalizeUserName(req.UserName)
	if email == "" && userName == "" {
		return nil, badRequest(MsgIdentifierRequired)
	}

	user, err := s.userRepo.FindByEmailOrUserName(ctx, email, userName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, MsgUserNotFound, err)
		}
		return nil, internal(MsgSomethingWentWrong, fmt.Errorf("failed to get user: %w", err))
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, unauthorized(MsgInvalidCredentials, nil)
	}

	pair, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	return newLoginResponse(user, pair), nil
}

// Logout clears the stored refresh token, ending the user's session
func (s *authService) Logout(ctx context.Context, userID string) (err error) {
	defer func() { s.record(ctx, "logout", err) }()

	if err := s.userRepo.SetRefreshToken(ctx, userID, ""); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(MsgInvalidAccessToken, err)
		}
		return internal(MsgSomethingWentWrong, fmt.Errorf("failed to clear refresh token: %w", err))
	}

	return nil
}

// RefreshToken exchanges the current refresh token for a new pair. A token
// that no longer matches the stored one was superseded and is rejected.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (_ *dto.LoginResponse, err error) {
	defer func() { s.record(ctx, "refresh", err) }()

	if strings.TrimSpace(refreshToken) == "" {
		return nil, unauthorized(MsgUnauthorizedRequest, nil)
	}

	claims, err := s.jwtManager.Verify(refreshToken, domain.RefreshToken)
	if err != nil {
		return nil, unauthorized(err.Error(), err)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, unauthorized(MsgInvalidRefreshToken, err)
		}
		return nil, internal(MsgSomethingWentWrong, fmt.Errorf("failed to get user: %w", err))
	}

	if !user.HasRefreshToken(refreshToken) {
		return nil, unauthorized(MsgRefreshTokenUsed, nil)
	}

	pair, err := s.rotateSession(ctx, user, refreshToken)
	if err != nil {
		return nil, err
	}

	return newLoginResponse(nil, pair), nil
}

// ChangePassword replaces the password after verifying the old one
func (s *authService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) (err error) {
	defer func() { s.record(ctx, "change_password", err) }()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return s.userLookupError(err)
	}

	if !s.hasher.Verify(req.OldPassword, user.PasswordHash) {
		return badRequest(MsgInvalidOldPassword)
	}

	newHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrEmptyPassword):
			return newError(KindBadRequest, MsgNewPasswordRequired, err)
		case errors.Is(err, utils.ErrPasswordTooLong):
			return newError(KindBadRequest, err.Error(), err)
		}
		return internal(MsgSomethingWentWrong, err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, user.PasswordHash, newHash); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return newError(KindConflict, MsgPasswordChanged, err)
		}
		return internal(MsgSomethingWentWrong, fmt.Errorf("failed to update password: %w", err))
	}

	return nil
}

// GetCurrentUser returns the sanitized projection of the user
func (s *authService) GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, s.userLookupError(err)
	}
	return dto.NewUserResponse(user), nil
}

// UpdateAccount updates full name and email; both are required
func (s *authService) UpdateAccount(ctx context.Context, userID string, req *dto.UpdateAccountRequest) (*dto.UserResponse, error) {
	if utils.IsBlank(req.FullName, req.Email) {
		return nil, badRequest(MsgAllFieldsRequired)
	}

	email := utils.SanitizeEmail(req.Email)

	user, err := s.userRepo.UpdateProfile(ctx, userID, strings.TrimSpace(req.FullName), email)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, newError(KindConflict, MsgEmailTaken, err)
		}
		return nil, s.userLookupError(err)
	}

	s.cache.Invalidate(ctx, user)
	return dto.NewUserResponse(user), nil
}

// UpdateAvatar uploads a new avatar and stores its URL
func (s *authService) UpdateAvatar(ctx context.Context, userID, localPath string) (*dto.UserResponse, error) {
	if localPath == "" {
		return nil, badRequest(MsgAvatarMissing)
	}

	url, err := s.media.Store(ctx, localPath)
	if err != nil {
		return nil, newError(KindUploadFailed, MsgAvatarUploadFailed, err)
	}

	user, err := s.userRepo.UpdateAvatar(ctx, userID, url)
	if err != nil {
		return nil, s.userLookupError(err)
	}

	s.cache.Invalidate(ctx, user)
	return dto.NewUserResponse(user), nil
}

// UpdateCoverImage uploads a new cover image and stores its URL
func (s *authService) UpdateCoverImage(ctx context.Context, userID, localPath string) (*dto.UserResponse, error) {
	if localPath == "" {
		return nil, badRequest(MsgCoverMissing)
	}

	url, err := s.media.Store(ctx, localPath)
	if err != nil {
		return nil, newError(KindUploadFailed, MsgCoverUploadFailed, err)
	}

	user, err := s.userRepo.UpdateCoverImage(ctx, userID, url)
	if err != nil {
		return nil, s.userLookupError(err)
	}

	s.cache.Invalidate(ctx, user)
	return dto.NewUserResponse(user), nil
}

// Authenticate verifies an access token and resolves its user
func (s *authService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, unauthorized(MsgUnauthorizedRequest, nil)
	}

	claims, err := s.jwtManager.Verify(accessToken, domain.AccessToken)
	if err != nil {
		return nil, unauthorized(MsgInvalidAccessToken, err)
	}

	user, err := s.loadUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, unauthorized(MsgInvalidAccessToken, err)
		}
		return nil, internal(MsgSomethingWentWrong, err)
	}

	return user, nil
}

// loadUser resolves a user through the cache, falling back to the store
func (s *authService) loadUser(ctx context.Context, userID string) (*domain.User, error) {
	if user, ok := s.cache.Get(ctx, userID); ok {
		return user, nil
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, user)
	return user, nil
}

func (s *authService) userLookupError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindNotFound, MsgUserNotFound, err)
	}
	return internal(MsgSomethingWentWrong, err)
}

func (s *authService) discard(paths ...string) {
	for _, p := range paths {
		if p != "" {
			s.media.Discard(p)
		}
	}
}

func (s *authService) record(ctx context.Context, event string, err error) {
	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
	}
	s.metrics.Record(ctx, event, outcome)
}
