package shared

import (
	"context"
	"time"
)

// KeyLock serializes work on a string key, possibly across processes.
type KeyLock interface {
	// TryLock acquires key for at most ttl.
	// It returns the owner token and false when another owner holds the key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)

	// Unlock releases key when token still owns it. Releasing a lock that
	// expired or was taken over is not an error.
	Unlock(ctx context.Context, key, token string) error

	// Close closes the lock and releases resources
	Close() error
}

// LockConfig holds configuration for key locking
type LockConfig struct {
	// TTL bounds how long a crashed owner can block the key.
	// Default: 2 minutes
	TTL time.Duration
}

// DefaultLockConfig returns the default lock configuration
func DefaultLockConfig() LockConfig {
	return LockConfig{
		TTL: 2 * time.Minute,
	}
}
