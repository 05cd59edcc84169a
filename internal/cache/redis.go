// Package cache wraps the Redis client used for cross-instance room locks.
// Locks are advisory: the booking transaction re-checks the overlap
// predicate under row locks, so a lost Redis lock can cause a retry but
// never a double booking.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const roomLockPrefix = "unitime:roomlock:"

// RedisCache provides room-level locks backed by Redis SETNX with a TTL.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a RedisCache around an already-connected client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// AcquireRoomLock attempts to take the lock for a room.  It returns false
// without error when another holder owns the lock.  The TTL bounds how
// long a crashed holder can keep the room locked.
func (c *RedisCache) AcquireRoomLock(ctx context.Context, room string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, roomLockPrefix+room, "1", ttl).Result()
}

// ReleaseRoomLock releases the lock for a room.  Releasing an expired or
// absent lock is a no-op.
func (c *RedisCache) ReleaseRoomLock(ctx context.Context, room string) error {
	return c.client.Del(ctx, roomLockPrefix+room).Err()
}
