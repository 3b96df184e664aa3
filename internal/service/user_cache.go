package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/media-identity/internal/domain"
	"github.com/prperemyshlev/media-identity/pkg/database"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// UserCache keeps the sanitized user record in Redis so authenticated requests
// can resolve the caller without a database round trip. It never holds the
// password hash or refresh token, so session checks always go to the store.
// A nil *UserCache is a valid no-op cache.
type UserCache struct {
	redis  *database.Redis
	ttl    time.Duration
	logger *zap.Logger
}

// NewUserCache creates a new user cache
func NewUserCache(redis *database.Redis, ttl time.Duration, logger *zap.Logger) *UserCache {
	return &UserCache{redis: redis, ttl: ttl, logger: logger}
}

func userCacheKey(userID string) string {
	return fmt.Sprintf("user:profile:%s", userID)
}

// userFenceKey holds the updated_at (unix micros) of the latest invalidating
// write. Records older than the fence are never cached.
func userFenceKey(userID string) string {
	return fmt.Sprintf("user:profile:%s:fence", userID)
}

// KEYS: profile, fence. ARGV: payload, updated_at micros, ttl millis.
var setIfFreshScript = redis.NewScript(`
local fence = redis.call('GET', KEYS[2])
if fence and tonumber(ARGV[2]) < tonumber(fence) then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// KEYS: profile, fence. ARGV: updated_at micros, ttl millis.
var invalidateScript = redis.NewScript(`
redis.call('DEL', KEYS[1])
local fence = tonumber(redis.call('GET', KEYS[2]) or '0')
if tonumber(ARGV[1]) > fence then
	if tonumber(ARGV[2]) > 0 then
		redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[2])
	else
		redis.call('SET', KEYS[2], ARGV[1])
	end
end
return 1
`)

// Get returns the cached user, if any. Errors are logged and reported as a miss.
func (c *UserCache) Get(ctx context.Context, userID string) (*domain.User, bool) {
	if c == nil {
		return nil, false
	}

	data, err := c.redis.Client.Get(ctx, userCacheKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("failed to read user cache", zap.String("user_id", userID), zap.Error(err))
		}
		return nil, false
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		c.logger.Warn("failed to decode cached user", zap.String("user_id", userID), zap.Error(err))
		return nil, false
	}

	return &user, true
}

// Set caches the user record unless a newer write has already invalidated it
func (c *UserCache) Set(ctx context.Context, user *domain.User) {
	if c == nil {
		return
	}

	data, err := json.Marshal(user)
	if err != nil {
		c.logger.Warn("failed to encode user for cache", zap.String("user_id", user.ID), zap.Error(err))
		return
	}

	keys := []string{userCacheKey(user.ID), userFenceKey(user.ID)}
	err = setIfFreshScript.Run(ctx, c.redis.Client, keys, data, user.UpdatedAt.UnixMicro(), c.ttl.Milliseconds()).Err()
	if err != nil {
		c.logger.Warn("failed to write user cache", zap.String("user_id", user.ID), zap.Error(err))
	}
}

// Invalidate drops the cached record of user and fences out any record
// older than user, so a lookup that raced with the write cannot re-cache it
func (c *UserCache) Invalidate(ctx context.Context, user *domain.User) {
	if c == nil {
		return
	}

	keys := []string{userCacheKey(user.ID), userFenceKey(user.ID)}
	if err := invalidateScript.Run(ctx, c.redis.Client, keys, user.UpdatedAt.UnixMicro(), c.ttl.Milliseconds()).Err(); err != nil {
		c.logger.Warn("failed to invalidate user cache", zap.String("user_id", user.ID), zap.Error(err))
	}
}
