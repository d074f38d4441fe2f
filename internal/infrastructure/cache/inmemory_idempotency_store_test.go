package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T) (*InMemoryIdempotencyStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := newInMemoryIdempotencyStore(time.Hour, clock.Now)
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestInMemoryIdempotencyStore_Claim(t *testing.T) {
	ctx := context.Background()

	t.Run("first claim wins", func(t *testing.T) {
		store, _ := newTestStore(t)

		ok, err := store.Claim(ctx, "document-dispatch:1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Claim(ctx, "document-dispatch:1", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired claim can be retaken", func(t *testing.T) {
		store, clock := newTestStore(t)

		ok, _ := store.Claim(ctx, "k", 10*time.Minute)
		require.True(t, ok)

		clock.Advance(10 * time.Minute)
		ok, err := store.Claim(ctx, "k", 10*time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("released claim can be retaken", func(t *testing.T) {
		store, _ := newTestStore(t)

		ok, _ := store.Claim(ctx, "k", time.Minute)
		require.True(t, ok)
		require.NoError(t, store.Release(ctx, "k"))

		ok, err := store.Claim(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("release of unknown key is a no-op", func(t *testing.T) {
		store, _ := newTestStore(t)
		assert.NoError(t, store.Release(ctx, "missing"))
	})
}

func TestInMemoryIdempotencyStore_IsClaimed(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(t)

	claimed, err := store.IsClaimed(ctx, "k")
	require.NoError(t, err)
	assert.False(t, claimed)

	_, _ = store.Claim(ctx, "k", time.Minute)
	claimed, _ = store.IsClaimed(ctx, "k")
	assert.True(t, claimed)

	clock.Advance(2 * time.Minute)
	claimed, _ = store.IsClaimed(ctx, "k")
	assert.False(t, claimed)
}

func TestInMemoryIdempotencyStore_ConcurrentClaims(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.Claim(ctx, "document-dispatch:shared", time.Minute); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func claimCount(s *InMemoryIdempotencyStore) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

func TestInMemoryIdempotencyStore_Sweep(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	_, _ = store.Claim(ctx, "short", time.Minute)
	_, _ = store.Claim(ctx, "long", time.Hour)
	require.Equal(t, 2, claimCount(store))

	clock.Advance(5 * time.Minute)
	store.sweep()

	assert.Equal(t, 1, claimCount(store))
	claimed, _ := store.IsClaimed(ctx, "long")
	assert.True(t, claimed)
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
