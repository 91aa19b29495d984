// Package lock serializes writers of a single record across API replicas.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL     = 30 * time.Second
	defaultBackoff = 50 * time.Millisecond
)

// ErrNoClient is returned when the locker has no Redis connection.
var ErrNoClient = errors.New("lock: redis client not configured")

// compare-and-delete so an expired holder never frees its successor's lock
var release = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// Locker holds per-record mutexes as "<Prefix>:<kind>:<id>" keys. A holder
// that outlives TTL loses the lock.
type Locker struct {
	R            *redis.Client
	Prefix       string
	TTL          time.Duration
	RetryBackoff time.Duration
}

func (l Locker) key(kind, id string) string {
	prefix := l.Prefix
	if prefix == "" {
		prefix = "lock"
	}
	return fmt.Sprintf("%s:%s:%s", prefix, kind, id)
}

// WithRecord blocks until the record lock is free or ctx ends, then runs fn
// while holding it. The lock is released whatever fn returns.
func (l Locker) WithRecord(ctx context.Context, kind, id string, fn func(context.Context) error) error {
	if l.R == nil {
		return ErrNoClient
	}
	key := l.key(kind, id)
	token := uuid.NewString()
	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}
	defer func() {
		_ = release.Run(context.WithoutCancel(ctx), l.R, []string{key}, token).Err()
	}()
	return fn(ctx)
}

func (l Locker) acquire(ctx context.Context, key, token string) error {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	backoff := l.RetryBackoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	ticker := time.NewTicker(backoff)
	defer ticker.Stop()
	for {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
