package domain

import "time"

// TokenKind distinguishes access tokens from refresh tokens
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// TokenClaims represents the verified claims of a signed token.
// Refresh tokens only carry UserID.
type TokenClaims struct {
	UserID    string
	UserName  string
	Email     string
	FullName  string
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair represents a pair of access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
