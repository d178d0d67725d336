package guard

import (
	"context"
	"sync"
)

// KeyLock guards the incident-creation critical section per correlation
// key. It does not serialize status updates; it only prevents two
// concurrent creations for the same key.
type KeyLock interface {
	// TryAcquire attempts to take the lock without blocking and reports
	// whether it was taken.
	TryAcquire(ctx context.Context, key string) (bool, error)
	// Release frees the lock. Releasing a key that is not held is a no-op.
	// Only the caller that acquired the key releases it.
	Release(ctx context.Context, key string)
	// Ping reports backend health for readiness probes.
	Ping(ctx context.Context) error
}

type memoryKeyLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryKeyLock returns the in-process lock backend.
func NewMemoryKeyLock() KeyLock {
	return &memoryKeyLock{held: make(map[string]struct{})}
}

func (l *memoryKeyLock) TryAcquire(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, inFlight := l.held[key]; inFlight {
		return false, nil
	}
	l.held[key] = struct{}{}
	return true, nil
}

func (l *memoryKeyLock) Release(_ context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}

func (l *memoryKeyLock) Ping(context.Context) error {
	return nil
}
