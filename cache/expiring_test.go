package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestExpiring_GetOrFetch_CachesUntilTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	c := cache.NewExpiring[string, int](time.Minute, clock.Now)

	calls := 0
	fetch := func(_ context.Context, key string) (int, error) {
		calls++
		return len(key) * calls, nil
	}

	v, err := c.GetOrFetch(context.Background(), "abc", fetch)
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	clock.Advance(59 * time.Second)
	v, err = c.GetOrFetch(context.Background(), "abc", fetch)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Equal(t, 1, calls)

	clock.Advance(time.Second)
	v, err = c.GetOrFetch(context.Background(), "abc", fetch)
	require.NoError(t, err)
	assert.Equal(t, 6, v, "expired entry is refetched")
	assert.Equal(t, 2, calls)
}

func TestExpiring_ErrorsAreNotCached(t *testing.T) {
	c := cache.NewExpiring[string, int](time.Minute, nil)
	boom := errors.New("boom")

	_, err := c.GetOrFetch(context.Background(), "k", func(context.Context, string) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, err := c.GetOrFetch(context.Background(), "k", func(context.Context, string) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestExpiring_Invalidate(t *testing.T) {
	c := cache.NewExpiring[string, string](time.Hour, nil)
	c.Set("scheme-1", "v1")

	v, ok := c.Get("scheme-1")
	require.True(t, ok)
	assert.Equal(t, "v1", v)

	c.Invalidate("scheme-1")
	_, ok = c.Get("scheme-1")
	assert.False(t, ok)
}

func TestExpiring_ZeroTTLDisablesCaching(t *testing.T) {
	c := cache.NewExpiring[string, int](0, nil)
	calls := 0
	fetch := func(context.Context, string) (int, error) {
		calls++
		return calls, nil
	}

	c.Set("k", 1)
	_, _ = c.GetOrFetch(context.Background(), "k", fetch)
	_, _ = c.GetOrFetch(context.Background(), "k", fetch)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, c.Len())
}

func TestExpiring_ConcurrentMissesFetchOnce(t *testing.T) {
	c := cache.NewExpiring[string, int](time.Minute, nil)
	var mu sync.Mutex
	calls := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.GetOrFetch(context.Background(), "k", func(context.Context, string) (int, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				return 1, nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
}

func TestExpiring_SlowFetchDoesNotBlockOtherKeys(t *testing.T) {
	c := cache.NewExpiring[string, int](time.Minute, nil)
	release := make(chan struct{})
	started := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.GetOrFetch(context.Background(), "slow", func(context.Context, string) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started

	// GIVEN: "slow" is still fetching
	v, err := c.GetOrFetch(context.Background(), "fast", func(context.Context, string) (int, error) { return 2, nil })

	// THEN: other keys are served right away
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	v, ok := c.Get("fast")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	close(release)
	<-done
	v, ok = c.Get("slow")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestExpiring_WaiterHonoursContext(t *testing.T) {
	c := cache.NewExpiring[string, int](time.Minute, nil)
	release := make(chan struct{})
	started := make(chan struct{})
	defer close(release)

	go func() {
		_, _ = c.GetOrFetch(context.Background(), "k", func(context.Context, string) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetOrFetch(ctx, "k", func(context.Context, string) (int, error) { return 9, nil })

	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpiring_InvalidateDuringFetchDropsResult(t *testing.T) {
	c := cache.NewExpiring[string, string](time.Minute, nil)
	release := make(chan struct{})
	started := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		v, err := c.GetOrFetch(context.Background(), "scheme-1", func(context.Context, string) (string, error) {
			close(started)
			<-release
			return "v1", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "v1", v)
	}()
	<-started

	c.Invalidate("scheme-1")
	close(release)
	<-done

	_, ok := c.Get("scheme-1")
	assert.False(t, ok, "stale fetch must not be stored")
}
