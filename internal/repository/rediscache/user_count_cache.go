package rediscache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const userCountKey = "users:count"

// UserCountCache implements domain.UserCountCache over Redis. The cache owns
// the TTL: callers only ask for the cached value or store a fresh one.
// Cache failures degrade to misses rather than failing the request.
type UserCountCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewUserCountCache creates a new UserCountCache
func NewUserCountCache(client *redis.Client, ttl time.Duration) *UserCountCache {
	return &UserCountCache{client: client, ttl: ttl}
}

// GetUserCount returns the cached count and whether a value was present.
func (c *UserCountCache) GetUserCount(ctx context.Context) (int64, bool) {
	count, err := c.client.Get(ctx, userCountKey).Int64()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Msg("User count cache read failed")
		}
		return 0, false
	}
	return count, true
}

// SetUserCount stores a fresh count with the configured TTL.
func (c *UserCountCache) SetUserCount(ctx context.Context, count int64) {
	if err := c.client.Set(ctx, userCountKey, count, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("User count cache write failed")
	}
}
