package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/prperemyshlev/media-identity/internal/domain"
	"github.com/prperemyshlev/media-identity/pkg/database"
)

const userColumns = `id, full_name, email, user_name, password_hash, avatar_url, cover_image_url, refresh_token, watch_history, created_at, updated_at`

// userRepository implements UserRepository interface
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var refreshToken sql.NullString
	var watchHistory pq.StringArray

	err := row.Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.UserName,
		&user.PasswordHash,
		&user.AvatarURL,
		&user.CoverImageURL,
		&refreshToken,
		&watchHistory,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if refreshToken.Valid {
		user.RefreshToken = &refreshToken.String
	}
	user.WatchHistory = []string(watchHistory)
	if user.WatchHistory == nil {
		user.WatchHistory = []string{}
	}

	return user, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Create inserts a new user. Uniqueness of email and user name is enforced by
// the users_email_key and users_user_name_lower_key indexes, so two concurrent
// registrations for the same identity cannot both succeed.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, full_name, email, user_name, password_hash, avatar_url, cover_image_url, watch_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	if user.WatchHistory == nil {
		user.WatchHistory = []string{}
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		user.ID,
		user.FullName,
		user.Email,
		user.UserName,
		user.PasswordHash,
		user.AvatarURL,
		user.CoverImageURL,
		pq.Array(user.WatchHistory),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s <%s> already exists: %w", user.UserName, user.Email, ErrDuplicateUser)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// FindByEmailOrUserName retrieves the user matching either the email or the
// user name (case-insensitive). Empty arguments never match.
func (r *userRepository) FindByEmailOrUserName(ctx context.Context, email, userName string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE ($1 <> '' AND email = $1) OR ($2 <> '' AND LOWER(user_name) = LOWER($2))
		ORDER BY created_at
		LIMIT 1
	`

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, email, userName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q/%q not found: %w", email, userName, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// SetRefreshToken stores token as the user's refresh token, or clears it when token is empty
func (r *userRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	query := `UPDATE users SET refresh_token = $2, updated_at = $3 WHERE id = $1`

	stored := sql.NullString{String: token, Valid: token != ""}

	result, err := r.db.DB.ExecContext(ctx, query, userID, stored, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}

	return expectOneRow(result, fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound))
}

// RotateRefreshToken swaps current for next in a single statement
func (r *userRepository) RotateRefreshToken(ctx context.Context, userID, current, next string) error {
	query := `UPDATE users SET refresh_token = $3, updated_at = $4 WHERE id = $1 AND refresh_token = $2`

	result, err := r.db.DB.ExecContext(ctx, query, userID, current, next, time.Now())
	if err != nil {
		return fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return expectOneRow(result, fmt.Errorf("refresh token of user %s was superseded: %w", userID, ErrTokenMismatch))
}

// UpdatePassword swaps the password hash if it has not changed since it was read
func (r *userRepository) UpdatePassword(ctx context.Context, userID, currentHash, newHash string) error {
	query := `UPDATE users SET password_hash = $3, updated_at = $4 WHERE id = $1 AND password_hash = $2`

	result, err := r.db.DB.ExecContext(ctx, query, userID, currentHash, newHash, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return expectOneRow(result, fmt.Errorf("password of user %s changed concurrently: %w", userID, ErrStaleWrite))
}

// UpdateProfile updates full name and email; empty values keep the stored ones
func (r *userRepository) UpdateProfile(ctx context.Context, userID, fullName, email string) (*domain.User, error) {
	query := `
		UPDATE users
		SET full_name = COALESCE(NULLIF($2, ''), full_name),
		    email = COALESCE(NULLIF($3, ''), email),
		    updated_at = $4
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, userID, fullName, email, time.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("email %s is taken: %w", email, ErrDuplicateUser)
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

// UpdateAvatar sets the avatar URL
func (r *userRepository) UpdateAvatar(ctx context.Context, userID, url string) (*domain.User, error) {
	return r.updateImage(ctx, "avatar_url", userID, url)
}

// UpdateCoverImage sets the cover image URL
func (r *userRepository) UpdateCoverImage(ctx context.Context, userID, url string) (*domain.User, error) {
	return r.updateImage(ctx, "cover_image_url", userID, url)
}

// updateImage is shared by UpdateAvatar and UpdateCoverImage; column is never user input.
func (r *userRepository) updateImage(ctx context.Context, column, userID, url string) (*domain.User, error) {
	query := `UPDATE users SET ` + column + ` = $2, updated_at = $3 WHERE id = $1 RETURNING ` + userColumns

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, userID, url, time.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update %s: %w", column, err)
	}

	return user, nil
}

func expectOneRow(result sql.Result, notMatched error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return notMatched
	}

	return nil
}
