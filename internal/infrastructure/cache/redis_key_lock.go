package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/shared"
)

const defaultLockKeyPrefix = "invoice:posting:"

// unlockScript deletes the key only while it still holds the caller's token
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisKeyLock implements KeyLock with SET NX PX.
// It serializes postings across every instance sharing the Redis database.
type RedisKeyLock struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisKeyLock connects to Redis and verifies the connection
func NewRedisKeyLock(cfg RedisConfig) (*RedisKeyLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisKeyLock{
		client:    client,
		keyPrefix: defaultLockKeyPrefix,
	}, nil
}

// NewRedisKeyLockWithClient creates a lock on an existing client
func NewRedisKeyLockWithClient(client redis.UniversalClient, keyPrefix string) *RedisKeyLock {
	if keyPrefix == "" {
		keyPrefix = defaultLockKeyPrefix
	}
	return &RedisKeyLock{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// TryLock sets the key to a fresh owner token unless it is already held
func (l *RedisKeyLock) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if ttl <= 0 {
		ttl = shared.DefaultLockConfig().TTL
	}
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.keyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock %q: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Unlock releases the key if token still owns it
func (l *RedisKeyLock) Unlock(ctx context.Context, key, token string) error {
	if token == "" {
		return nil
	}
	err := unlockScript.Run(ctx, l.client, []string{l.keyPrefix + key}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release lock %q: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection
func (l *RedisKeyLock) Close() error {
	return l.client.Close()
}

// Client returns the underlying Redis client
func (l *RedisKeyLock) Client() redis.UniversalClient {
	return l.client
}

var _ shared.KeyLock = (*RedisKeyLock)(nil)
