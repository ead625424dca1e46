package jobs

import (
	"context"
	"sync"
	"time"
)

// KeyLocker serializes units of work per logical key. TryLock acquires a
// lease; a false return means another unit holds the key and the caller
// should coalesce (drop) its trigger.
type KeyLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// MemoryLocker implements KeyLocker with an in-process map. Suitable for
// single-instance deployments and tests.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]time.Time
}

// NewMemoryLocker creates an in-memory key locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: make(map[string]time.Time)}
}

// TryLock acquires the key if free or its previous lease expired
func (l *MemoryLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiresAt, held := l.leases[key]; held && time.Now().Before(expiresAt) {
		return false, nil
	}
	l.leases[key] = time.Now().Add(ttl)
	return true, nil
}

// Unlock releases the key
func (l *MemoryLocker) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.leases, key)
	return nil
}
