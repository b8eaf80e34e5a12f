package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewFromClient(rdb, zap.NewNop()), mr
}

func TestGetSet(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSet_ZeroTTLSkipsWrite(t *testing.T) {
	c, mr := newTestClient(t)
	require.NoError(t, c.Set(context.Background(), "k", "v", 0))
	assert.False(t, mr.Exists("k"))
}

func TestCheckRateLimit(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := c.CheckRateLimit(ctx, "user-1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "第 %d 次请求应被允许", i+1)
	}

	ok, err := c.CheckRateLimit(ctx, "user-1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "超过上限后应被拒绝")

	// 不同 key 互不影响
	ok, err = c.CheckRateLimit(ctx, "user-2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckRateLimit_ConcurrentBurst(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	const limit = 5
	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := c.CheckRateLimit(ctx, "burst", limit, time.Minute)
			if err == nil && ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(limit), allowed.Load(), "并发请求不应越过上限")
}

func TestCheckRateLimit_WindowSlides(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	ok, err := c.CheckRateLimit(ctx, "slide", 1, 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = c.CheckRateLimit(ctx, "slide", 1, 50*time.Millisecond)
	assert.False(t, ok)

	time.Sleep(80 * time.Millisecond)
	ok, err = c.CheckRateLimit(ctx, "slide", 1, 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok, "窗口滑过后应重新允许")
}

func TestCheckRateLimit_Disabled(t *testing.T) {
	c, _ := newTestClient(t)
	ok, err := c.CheckRateLimit(context.Background(), "user-1", 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
