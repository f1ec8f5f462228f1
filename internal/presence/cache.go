package presence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "presence:online:"

// Cache is a best-effort redis fast path for the online check.
//
// A key exists only while the user was marked online within the freshness
// window: the TTL equals the window, so stale entries vanish on their own
// and a cache miss always falls back to the canonical store. Failures are
// reported to the caller but must never fail the presence operation.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// SetOnline records the user as online for one freshness window.
func (c *Cache) SetOnline(ctx context.Context, username, socketID string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	val := socketID
	if val == "" {
		val = "1"
	}
	return c.rdb.Set(ctx, cacheKeyPrefix+username, val, c.ttl).Err()
}

// SetOffline drops the fast-path entry.
func (c *Cache) SetOffline(ctx context.Context, username string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, cacheKeyPrefix+username).Err()
}

// IsOnline reports (online, hit). A miss means the canonical store must
// decide; a hit is always online by construction.
func (c *Cache) IsOnline(ctx context.Context, username string) (bool, bool) {
	if c == nil || c.rdb == nil {
		return false, false
	}
	err := c.rdb.Get(ctx, cacheKeyPrefix+username).Err()
	if err == nil {
		return true, true
	}
	if errors.Is(err, redis.Nil) {
		return false, false
	}
	// Treat transient redis errors as a miss.
	return false, false
}
