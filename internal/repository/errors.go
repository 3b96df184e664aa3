package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateUser is returned when an email or user name is already taken
	ErrDuplicateUser = errors.New("user with this email or username already exists")

	// ErrTokenMismatch is returned when the stored refresh token differs from the expected one
	ErrTokenMismatch = errors.New("stored refresh token does not match")

	// ErrStaleWrite is returned when a compare-and-swap update lost a race with another writer
	ErrStaleWrite = errors.New("record was modified concurrently")
)
