package utils

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// AuthCachePrefix is the prefix used for Redis session cache keys.
const AuthCachePrefix = "auth:session:"

// SessionCache remembers which sessions are alive so that authenticated
// requests do not hit the sessions table every time.
type SessionCache interface {
	// Alive reports (alive, known). known is false on a cache miss.
	Alive(ctx context.Context, sessionID string) (bool, bool)
	Remember(ctx context.Context, sessionID, userID string)
	Forget(ctx context.Context, sessionIDs ...string)
}

// RedisSessionCache is the Redis-backed SessionCache. Entries slide: every
// hit extends the TTL.
type RedisSessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionCache(client *redis.Client, ttl time.Duration) *RedisSessionCache {
	return &RedisSessionCache{client: client, ttl: ttl}
}

func (c *RedisSessionCache) Alive(ctx context.Context, sessionID string) (bool, bool) {
	key := AuthCachePrefix + sessionID
	_, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) || err != nil {
		return false, false
	}
	_ = c.client.Expire(ctx, key, c.ttl).Err()
	return true, true
}

func (c *RedisSessionCache) Remember(ctx context.Context, sessionID, userID string) {
	_ = c.client.Set(ctx, AuthCachePrefix+sessionID, userID, c.ttl).Err()
}

func (c *RedisSessionCache) Forget(ctx context.Context, sessionIDs ...string) {
	if len(sessionIDs) == 0 {
		return
	}
	keys := make([]string, len(sessionIDs))
	for i, id := range sessionIDs {
		keys[i] = AuthCachePrefix + id
	}
	_ = c.client.Del(ctx, keys...).Err()
}

// NoopSessionCache always misses. Used when Redis is not configured.
type NoopSessionCache struct{}

func (NoopSessionCache) Alive(context.Context, string) (bool, bool) { return false, false }
func (NoopSessionCache) Remember(context.Context, string, string)   {}
func (NoopSessionCache) Forget(context.Context, ...string)          {}
