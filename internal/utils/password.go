package utils

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmptyPassword is returned when hashing an empty password
	ErrEmptyPassword = errors.New("password must not be empty")

	// ErrPasswordTooLong is returned for passwords bcrypt cannot hash without truncation
	ErrPasswordTooLong = errors.New("password must not exceed 72 bytes")
)

// maxPasswordBytes is the longest input bcrypt hashes without truncation
const maxPasswordBytes = 72

// PasswordHasher hashes and verifies passwords using bcrypt
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher with the given bcrypt cost
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns a salted bcrypt digest of password
func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// Verify compares a password with a digest produced by Hash.
// Inputs Hash would refuse never match, since bcrypt only reads the first 72 bytes.
func (h *PasswordHasher) Verify(password, hash string) bool {
	if password == "" || hash == "" || len(password) > maxPasswordBytes {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
