package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/shared"
)

type lockEntry struct {
	token     string
	expiresAt time.Time
}

// InMemoryKeyLock implements KeyLock within one process.
// Instances do not see each other's locks; the audit log's unique index still
// rejects a second posted row.
type InMemoryKeyLock struct {
	mu        sync.Mutex
	entries   map[string]lockEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryKeyLock creates the lock and starts the expiry sweeper
func NewInMemoryKeyLock() *InMemoryKeyLock {
	l := &InMemoryKeyLock{
		entries:  make(map[string]lockEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

// TryLock acquires key unless a live owner holds it
func (l *InMemoryKeyLock) TryLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	if ttl <= 0 {
		ttl = shared.DefaultLockConfig().TTL
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.entries[key]; ok && now.Before(e.expiresAt) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.entries[key] = lockEntry{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

// Unlock releases key when token still owns it
func (l *InMemoryKeyLock) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[key]; ok && e.token == token {
		delete(l.entries, key)
	}
	return nil
}

// Close stops the sweeper. Safe to call multiple times.
func (l *InMemoryKeyLock) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

func (l *InMemoryKeyLock) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *InMemoryKeyLock) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, e := range l.entries {
		if !now.Before(e.expiresAt) {
			delete(l.entries, key)
		}
	}
}

// Size returns the number of held or not yet swept keys
func (l *InMemoryKeyLock) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

var _ shared.KeyLock = (*InMemoryKeyLock)(nil)
