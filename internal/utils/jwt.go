package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prperemyshlev/media-identity/internal/domain"
)

// Token verification errors
var (
	ErrTokenExpired   = errors.New("token is expired")
	ErrTokenSignature = errors.New("token signature is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenKind      = errors.New("unexpected token type")
)

// tokenClaims is the JWT payload shared by access and refresh tokens
type tokenClaims struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// JWTManager manages JWT token operations
type JWTManager struct {
	secret             []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	now                func() time.Time
}

// JWTOption configures a JWTManager
type JWTOption func(*JWTManager)

// WithClock overrides the time source used for minting and verification
func WithClock(now func() time.Time) JWTOption {
	return func(j *JWTManager) {
		j.now = now
	}
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, accessTokenExpiry, refreshTokenExpiry time.Duration, opts ...JWTOption) *JWTManager {
	j := &JWTManager{
		secret:             []byte(secret),
		accessTokenExpiry:  accessTokenExpiry,
		refreshTokenExpiry: refreshTokenExpiry,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// GenerateAccessToken generates a new access token carrying the user's identity
func (j *JWTManager) GenerateAccessToken(user *domain.User) (string, error) {
	claims := &tokenClaims{
		UserID:           user.ID,
		UserName:         user.UserName,
		Email:            user.Email,
		FullName:         user.FullName,
		Type:             string(domain.AccessToken),
		RegisteredClaims: j.registered(j.accessTokenExpiry),
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// GenerateRefreshToken generates a new refresh token carrying only the user id
func (j *JWTManager) GenerateRefreshToken(user *domain.User) (string, error) {
	claims := &tokenClaims{
		UserID:           user.ID,
		Type:             string(domain.RefreshToken),
		RegisteredClaims: j.registered(j.refreshTokenExpiry),
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return tokenString, nil
}

// GeneratePair mints a fresh access/refresh pair for user
func (j *JWTManager) GeneratePair(user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := j.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := j.GenerateRefreshToken(user)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Verify checks the signature and expiry of a token of the given kind and returns its claims
func (j *JWTManager) Verify(tokenString string, kind domain.TokenKind) (*domain.TokenClaims, error) {
	claims := &tokenClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return j.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, classifyTokenError(err)
	}

	if claims.Type != string(kind) {
		return nil, ErrTokenKind
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user_id", ErrTokenMalformed)
	}

	result := &domain.TokenClaims{
		UserID:   claims.UserID,
		UserName: claims.UserName,
		Email:    claims.Email,
		FullName: claims.FullName,
		Kind:     kind,
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}

	return result, nil
}

// AccessTokenExpiry returns the lifetime of access tokens
func (j *JWTManager) AccessTokenExpiry() time.Duration {
	return j.accessTokenExpiry
}

// RefreshTokenExpiry returns the lifetime of refresh tokens
func (j *JWTManager) RefreshTokenExpiry() time.Duration {
	return j.refreshTokenExpiry
}

func (j *JWTManager) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := j.now()
	return jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrTokenSignature, err)
	default:
		return fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}
}
