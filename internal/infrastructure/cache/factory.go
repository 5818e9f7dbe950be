package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/shared"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/config"
)

// KeyLockFactory creates the posting lock based on configuration
type KeyLockFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// KeyLockFactoryOption is a functional option for configuring the factory
type KeyLockFactoryOption func(*KeyLockFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) KeyLockFactoryOption {
	return func(f *KeyLockFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to a
// process-local lock. Default is true.
func WithInMemoryFallback(allow bool) KeyLockFactoryOption {
	return func(f *KeyLockFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewKeyLockFactory creates a new factory
func NewKeyLockFactory(cfg config.RedisConfig, opts ...KeyLockFactoryOption) *KeyLockFactory {
	f := &KeyLockFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisLock creates a Redis-backed lock
func (f *KeyLockFactory) CreateRedisLock() (shared.KeyLock, error) {
	if f.redisConfig.Host == "" {
		return nil, fmt.Errorf("redis host not configured")
	}

	lock, err := NewRedisKeyLock(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis key lock: %w", err)
	}
	return lock, nil
}

// CreateLock tries Redis first and falls back to an in-memory lock when allowed
func (f *KeyLockFactory) CreateLock() (shared.KeyLock, error) {
	lock, err := f.CreateRedisLock()
	if err == nil {
		f.logger.Info("using Redis posting lock", zap.String("addr", f.redisConfig.Addr()))
		return lock, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for posting lock but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory posting lock. "+
		"Concurrent postings on other instances are only stopped by the audit log constraint.",
		zap.Error(err),
	)
	return NewInMemoryKeyLock(), nil
}
