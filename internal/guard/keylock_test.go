package guard

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKeyLockExclusion(t *testing.T) {
	ctx := context.Background()
	lock := NewMemoryKeyLock()

	ok, err := lock.TryAcquire(ctx, "CW-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lock.TryAcquire(ctx, "CW-1")
	require.NoError(t, err)
	assert.False(t, ok, "second acquire of held key must fail")

	// independent keys are unaffected
	ok, err = lock.TryAcquire(ctx, "CW-2")
	require.NoError(t, err)
	assert.True(t, ok)

	lock.Release(ctx, "CW-1")
	ok, err = lock.TryAcquire(ctx, "CW-1")
	require.NoError(t, err)
	assert.True(t, ok, "released key must be acquirable again")
}

func TestMemoryKeyLockReleaseUnheldKey(t *testing.T) {
	lock := NewMemoryKeyLock()
	// releasing a key that was never acquired is a no-op
	lock.Release(context.Background(), "CW-99")
}

func TestMemoryKeyLockConcurrent(t *testing.T) {
	ctx := context.Background()
	lock := NewMemoryKeyLock()

	const workers = 50
	var acquired int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			ok, err := lock.TryAcquire(ctx, "CW-1")
			assert.NoError(t, err)
			if ok {
				atomic.AddInt64(&acquired, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), acquired, "exactly one worker may hold the key")
}

func TestMemoryKeyLockPing(t *testing.T) {
	assert.NoError(t, NewMemoryKeyLock().Ping(context.Background()))
}
