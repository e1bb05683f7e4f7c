package lock

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryLocker is a process-local Locker for single-instance deployments and tests.
type MemoryLocker struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{cache: cache.New(cache.NoExpiration, time.Minute)}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := newToken()

	l.mu.Lock()
	err := l.cache.Add(key, token, ttl)
	l.mu.Unlock()
	if err != nil {
		return nil, ErrLocked
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if current, ok := l.cache.Get(key); ok && current.(string) == token {
				l.cache.Delete(key)
			}
		})
	}, nil
}
