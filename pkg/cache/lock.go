package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotObtained is returned when another holder owns the key.
var ErrLockNotObtained = errors.New("lock not obtained")

// Locker hands out short-lived distributed locks backed by Redis.
type Locker struct {
	client *redislock.Client
}

// NewLocker wraps a Redis client in a redislock client.
func NewLocker(rdb redis.UniversalClient) *Locker {
	return &Locker{client: redislock.New(rdb)}
}

// Obtain acquires key for ttl without retrying. The returned func releases it.
func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, nil
}
