package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, size int) *Tagged {
	t.Helper()
	c, err := New(size)
	require.NoError(t, err)
	return c
}

func TestRemember_CachesProducerResult(t *testing.T) {
	c := newTestCache(t, 16)
	calls := 0
	producer := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := Remember(context.Background(), c, []string{"tasks"}, "stats", time.Minute, producer)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 1, calls)
}

func TestRemember_ErrorIsNotCached(t *testing.T) {
	c := newTestCache(t, 16)
	boom := errors.New("db down")

	_, err := Remember(context.Background(), c, nil, "k", time.Minute, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestRemember_Expires(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newTestCache(t, 16).WithClock(func() time.Time { return now })

	c.Put(nil, "k", "v", 5*time.Minute)
	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(5 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestFlush_DropsOnlyTaggedEntries(t *testing.T) {
	c := newTestCache(t, 16)

	c.Put([]string{"tasks"}, "task-stats", 1, 0)
	c.Put([]string{"projects", "tasks"}, "dashboard", 2, 0)
	c.Put([]string{"users"}, "user-stats", 3, 0)

	c.Flush("tasks")

	_, ok := c.Get("task-stats")
	assert.False(t, ok)
	_, ok = c.Get("dashboard")
	assert.False(t, ok)
	v, ok := c.Get("user-stats")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestFlush_DuringProducerDiscardsResult(t *testing.T) {
	c := newTestCache(t, 16)

	_, err := c.Remember(context.Background(), []string{"tasks"}, "k", time.Minute, func(context.Context) (any, error) {
		c.Flush("tasks")
		return "stale", nil
	})
	require.NoError(t, err)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestForget(t *testing.T) {
	c := newTestCache(t, 16)
	c.Put([]string{"tasks"}, "k", 1, 0)
	c.Forget("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestEviction_CleansTagIndex(t *testing.T) {
	c := newTestCache(t, 2)
	c.Put([]string{"a"}, "one", 1, 0)
	c.Put([]string{"a"}, "two", 2, 0)
	c.Put([]string{"b"}, "three", 3, 0)

	c.mu.Lock()
	_, stillIndexed := c.tagged["a"]["one"]
	c.mu.Unlock()
	assert.False(t, stillIndexed)
	assert.Equal(t, 2, c.Len())
}

func TestRemember_SingleProducerUnderContention(t *testing.T) {
	c := newTestCache(t, 16)
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Remember(context.Background(), c, nil, "k", time.Minute, func(context.Context) (int, error) {
				calls.Add(1)
				<-release
				return 7, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 7, v)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestRemember_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	c := newTestCache(t, 16)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	producer := func(ctx context.Context) (int, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 42, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := Remember(ctx, c, []string{"tasks"}, "stats", time.Minute, producer)
		firstErr <- err
	}()

	<-started
	cancel()

	var (
		wg  sync.WaitGroup
		got int
		err error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		got, err = Remember(context.Background(), c, []string{"tasks"}, "stats", time.Minute, producer)
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.NoError(t, <-firstErr)

	v, ok := c.Get("stats")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}
