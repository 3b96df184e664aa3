// Package repotest provides an in-memory UserRepository for tests of the
// layers above the database.
package repotest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/media-identity/internal/domain"
	"github.com/prperemyshlev/media-identity/internal/repository"
)

type video struct {
	domain.WatchedVideo
	ownerID string
}

type subscription struct {
	subscriber string
	channel    string
}

// MemoryUserRepository mirrors the Postgres repository semantics, including
// the unique constraints and compare-and-swap updates.
type MemoryUserRepository struct {
	mu            sync.Mutex
	users         map[string]*domain.User
	videos        map[string]video
	subscriptions []subscription
}

var _ repository.UserRepository = (*MemoryUserRepository)(nil)

// NewMemoryUserRepository creates an empty repository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:  make(map[string]*domain.User),
		videos: make(map[string]video),
	}
}

func clone(u *domain.User) *domain.User {
	c := *u
	if u.RefreshToken != nil {
		token := *u.RefreshToken
		c.RefreshToken = &token
	}
	c.WatchHistory = append([]string{}, u.WatchHistory...)
	return &c
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email || strings.EqualFold(existing.UserName, user.UserName) {
			return fmt.Errorf("user %s <%s> already exists: %w", user.UserName, user.Email, repository.ErrDuplicateUser)
		}
	}

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

	stored := clone(user)
	stored.RefreshToken = nil
	r.users[user.ID] = stored
	return nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %s not found: %w", id, repository.ErrNotFound)
	}
	return clone(user), nil
}

func (r *MemoryUserRepository) FindByEmailOrUserName(ctx context.Context, email, userName string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if (email != "" && user.Email == email) || (userName != "" && strings.EqualFold(user.UserName, userName)) {
			return clone(user), nil
		}
	}
	return nil, fmt.Errorf("user %q/%q not found: %w", email, userName, repository.ErrNotFound)
}

func (r *MemoryUserRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	return r.mutate(userID, func(u *domain.User) error {
		if token == "" {
			u.RefreshToken = nil
		} else {
			u.RefreshToken = &token
		}
		return nil
	})
}

func (r *MemoryUserRepository) RotateRefreshToken(ctx context.Context, userID, current, next string) error {
	return r.mutate(userID, func(u *domain.User) error {
		if !u.HasRefreshToken(current) {
			return fmt.Errorf("refresh token of user %s was superseded: %w", userID, repository.ErrTokenMismatch)
		}
		u.RefreshToken = &next
		return nil
	})
}

func (r *MemoryUserRepository) UpdatePassword(ctx context.Context, userID, currentHash, newHash string) error {
	return r.mutate(userID, func(u *domain.User) error {
		if u.PasswordHash != currentHash {
			return fmt.Errorf("password of user %s changed concurrently: %w", userID, repository.ErrStaleWrite)
		}
		u.PasswordHash = newHash
		return nil
	})
}

func (r *MemoryUserRepository) UpdateProfile(ctx context.Context, userID, fullName, email string) (*domain.User, error) {
	r.mu.Lock()
	for id, other := range r.users {
		if id != userID && email != "" && other.Email == email {
			r.mu.Unlock()
			return nil, fmt.Errorf("email %s is taken: %w", email, repository.ErrDuplicateUser)
		}
	}
	r.mu.Unlock()

	return r.mutateAndGet(userID, func(u *domain.User) {
		if fullName != "" {
			u.FullName = fullName
		}
		if email != "" {
			u.Email = email
		}
	})
}

func (r *MemoryUserRepository) UpdateAvatar(ctx context.Context, userID, url string) (*domain.User, error) {
	return r.mutateAndGet(userID, func(u *domain.User) { u.AvatarURL = url })
}

func (r *MemoryUserRepository) UpdateCoverImage(ctx context.Context, userID, url string) (*domain.User, error) {
	return r.mutateAndGet(userID, func(u *domain.User) { u.CoverImageURL = url })
}

func (r *MemoryUserRepository) ChannelProfile(ctx context.Context, userName, viewerID string) (*domain.ChannelProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if !strings.EqualFold(user.UserName, userName) {
			continue
		}

		profile := &domain.ChannelProfile{
			ID:            user.ID,
			FullName:      user.FullName,
			UserName:      user.UserName,
			Email:         user.Email,
			AvatarURL:     user.AvatarURL,
			CoverImageURL: user.CoverImageURL,
		}
		for _, s := range r.subscriptions {
			if s.channel == user.ID {
				profile.SubscriberCount++
				if s.subscriber == viewerID {
					profile.IsSubscribed = true
				}
			}
			if s.subscriber == user.ID {
				profile.SubscribedToCount++
			}
		}
		return profile, nil
	}

	return nil, fmt.Errorf("channel %s not found: %w", userName, repository.ErrNotFound)
}

func (r *MemoryUserRepository) WatchHistory(ctx context.Context, userID string) ([]domain.WatchedVideo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	videos := []domain.WatchedVideo{}
	user, ok := r.users[userID]
	if !ok {
		return videos, nil
	}

	for _, id := range user.WatchHistory {
		v, ok := r.videos[id]
		if !ok {
			continue
		}
		watched := v.WatchedVideo
		if owner, ok := r.users[v.ownerID]; ok {
			watched.Owner = &domain.VideoOwner{
				FullName:  owner.FullName,
				UserName:  owner.UserName,
				AvatarURL: owner.AvatarURL,
			}
		}
		videos = append(videos, watched)
	}

	return videos, nil
}

// AddVideo registers a video owned by ownerID. The owner does not have to exist.
func (r *MemoryUserRepository) AddVideo(v domain.WatchedVideo, ownerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v.Owner = nil
	r.videos[v.ID] = video{WatchedVideo: v, ownerID: ownerID}
}

// Subscribe adds a subscription edge from subscriberID to channelID
func (r *MemoryUserRepository) Subscribe(subscriberID, channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subscriptions = append(r.subscriptions, subscription{subscriber: subscriberID, channel: channelID})
}

// SetWatchHistory replaces the ordered watch history of a user
func (r *MemoryUserRepository) SetWatchHistory(userID string, videoIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.users[userID]; ok {
		user.WatchHistory = append([]string{}, videoIDs...)
	}
}

// Delete removes a user without touching its videos or subscriptions
func (r *MemoryUserRepository) Delete(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, userID)
}

func (r *MemoryUserRepository) mutate(userID string, fn func(*domain.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user with id %s not found: %w", userID, repository.ErrNotFound)
	}
	if err := fn(user); err != nil {
		return err
	}
	user.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserRepository) mutateAndGet(userID string, fn func(*domain.User)) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("user with id %s not found: %w", userID, repository.ErrNotFound)
	}
	fn(user)
	user.UpdatedAt = time.Now()
	return clone(user), nil
}
