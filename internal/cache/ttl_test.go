package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
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

type snapshot struct {
	Key     string `json:"key"`
	Version int64  `json:"version"`
}

func countingCompute(calls *atomic.Int64) ComputeFunc[snapshot] {
	return func(_ context.Context, key string) (snapshot, error) {
		n := calls.Add(1)
		return snapshot{Key: key, Version: n}, nil
	}
}

func TestTTL_ExpiresOnInjectedClock(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	var calls atomic.Int64
	c := NewTTL("feed", 20*time.Second, countingCompute(&calls), WithClock(clock.Now))
	ctx := context.Background()

	v, err := c.Get(ctx, "page:1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Version)

	clock.Advance(19 * time.Second)
	v, err = c.Get(ctx, "page:1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Version, "still inside the window")

	clock.Advance(time.Second)
	v, err = c.Get(ctx, "page:1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.Version, "recomputed once the window elapsed")
	assert.Equal(t, int64(2), calls.Load())
}

func TestTTL_KeysAreIndependent(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	var calls atomic.Int64
	c := NewTTL("feed", time.Minute, countingCompute(&calls), WithClock(clock.Now))
	ctx := context.Background()

	a, _ := c.Get(ctx, "page:1")
	clock.Advance(30 * time.Second)
	b, _ := c.Get(ctx, "page:2")
	clock.Advance(31 * time.Second)

	a2, _ := c.Get(ctx, "page:1")
	b2, _ := c.Get(ctx, "page:2")
	assert.NotEqual(t, a.Version, a2.Version, "page 1 expired")
	assert.Equal(t, b.Version, b2.Version, "page 2 still fresh")
}

func TestTTL_ZeroDisablesCaching(t *testing.T) {
	var calls atomic.Int64
	c := NewTTL("feed", 0, countingCompute(&calls))

	_, _ = c.Get(context.Background(), "k")
	_, _ = c.Get(context.Background(), "k")
	assert.Equal(t, int64(2), calls.Load())
}

func TestTTL_ErrorsAreNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	var calls atomic.Int64
	c := NewTTL("feed", time.Minute, func(ctx context.Context, key string) (snapshot, error) {
		calls.Add(1)
		if fail.Load() {
			return snapshot{}, errors.New("db down")
		}
		return snapshot{Key: key}, nil
	})

	_, err := c.Get(context.Background(), "k")
	assert.Error(t, err)

	fail.Store(false)
	v, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "k", v.Key)
	assert.Equal(t, int64(2), calls.Load())
}

func TestTTL_ConcurrentMissesShareComputation(t *testing.T) {
	var calls atomic.Int64
	release := make(chan struct{})
	c := NewTTL("feed", time.Minute, func(ctx context.Context, key string) (snapshot, error) {
		calls.Add(1)
		<-release
		return snapshot{Key: key}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Get(context.Background(), "hot")
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
}

func TestTTL_Purge(t *testing.T) {
	var calls atomic.Int64
	c := NewTTL("feed", time.Minute, countingCompute(&calls))

	_, _ = c.Get(context.Background(), "k")
	c.Purge()
	_, _ = c.Get(context.Background(), "k")
	assert.Equal(t, int64(2), calls.Load())
}

func TestTTL_ExpiredKeysAreCollected(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	var calls atomic.Int64
	c := NewTTL("feed", 20*time.Second, countingCompute(&calls), WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		_, err := c.Get(ctx, fmt.Sprintf("page:%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 50, c.Len())

	clock.Advance(20 * time.Second)
	_, err := c.Get(ctx, "page:fresh")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len(), "expired keys are dropped on the next store")

	c.mu.Lock()
	_, ok := c.entries["page:0"]
	c.mu.Unlock()
	assert.False(t, ok)
}

func TestTTL_ComputeOutlivesCanceledCaller(t *testing.T) {
	var calls atomic.Int64
	c := NewTTL("feed", time.Minute, func(ctx context.Context, key string) (snapshot, error) {
		calls.Add(1)
		if err := ctx.Err(); err != nil {
			return snapshot{}, err
		}
		return snapshot{Key: key}, nil
	})

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := c.Get(canceled, "k")
	require.NoError(t, err)
	assert.Equal(t, "k", v.Key)

	v, err = c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "k", v.Key)
	assert.Equal(t, int64(1), calls.Load(), "the result computed for the canceled caller was cached")
}

func TestTTL_RedisBackend(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	var calls atomic.Int64
	c := NewTTL("feed", 20*time.Second, countingCompute(&calls), WithRedis(rdb, "chronicle:"))
	ctx := context.Background()

	v, err := c.Get(ctx, "page:1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Version)
	assert.True(t, mr.Exists("chronicle:feed:page:1"))
	assert.Equal(t, 20*time.Second, mr.TTL("chronicle:feed:page:1"))

	v, err = c.Get(ctx, "page:1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Version)

	mr.FastForward(21 * time.Second)
	v, err = c.Get(ctx, "page:1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.Version)
}

func TestTTL_RedisFailureFallsBackToCompute(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	var calls atomic.Int64
	c := NewTTL("feed", time.Minute, countingCompute(&calls), WithRedis(rdb, ""))

	v, err := c.Get(context.Background(), "page:1")
	require.NoError(t, err)
	assert.Equal(t, "page:1", v.Key)
	assert.Equal(t, int64(1), calls.Load())
}

func TestConnect(t *testing.T) {
	client, err := Connect(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, client)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err = Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	require.NotNil(t, client)
	_ = client.Close()

	client, err = Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NotNil(t, client)
	_ = client.Close()

	_, err = Connect(context.Background(), "redis://%zz")
	assert.Error(t, err)
}
