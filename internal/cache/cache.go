// Package cache provides job locks and a small key/value cache, backed by
// Redis in deployed environments and by process memory otherwise.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLockNotAcquired is returned when another holder owns the lock.
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when releasing a lock that expired or was taken over.
	ErrLockNotHeld = errors.New("lock not held")
	// ErrCacheMiss is returned by Store.Get for absent or expired keys.
	ErrCacheMiss = errors.New("cache miss")
)

// Lock is a held lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker hands out exclusive, expiring locks by key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// Store is a string cache with per-key expiry.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
