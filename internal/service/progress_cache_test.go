package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cliff-simpkins/scouting-flyers/internal/metrics"
	"github.com/cliff-simpkins/scouting-flyers/internal/model"
	"github.com/cliff-simpkins/scouting-flyers/pkg/redis"
)

func newMiniredisCache(t *testing.T, ttl time.Duration) (ProgressCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisProgressCache(redis.NewFromClient(rdb, zap.NewNop()), ttl, zap.NewNop()), mr
}

func TestRedisProgressCache_GetSet(t *testing.T) {
	cache, mr := newMiniredisCache(t, time.Minute)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "asg-1", 3)
	assert.False(t, ok)

	want := Progress{TotalAreaSqm: 10000, CompletedAreaSqm: 314.16, ProgressPercentage: 3.14, MarkCount: 1}
	cache.Set(ctx, "asg-1", 3, want)

	got, ok := cache.Get(ctx, "asg-1", 3)
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.True(t, mr.Exists("progress:asg-1:3"))

	// 版本号不同不命中
	_, ok = cache.Get(ctx, "asg-1", 4)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	_, ok = cache.Get(ctx, "asg-1", 3)
	assert.False(t, ok)
}

func TestRedisProgressCache_CorruptEntryIsMiss(t *testing.T) {
	cache, mr := newMiniredisCache(t, time.Minute)
	require.NoError(t, mr.Set("progress:asg-1:1", "{not json"))

	_, ok := cache.Get(context.Background(), "asg-1", 1)
	assert.False(t, ok)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}

func (failingStore) Set(context.Context, string, string, time.Duration) error {
	return errors.New("connection refused")
}

func TestRedisProgressCache_StoreFailureDegrades(t *testing.T) {
	cache := NewRedisProgressCache(failingStore{}, time.Minute, zap.NewNop())

	cache.Set(context.Background(), "asg-1", 1, Progress{MarkCount: 1})
	_, ok := cache.Get(context.Background(), "asg-1", 1)
	assert.False(t, ok)
}

func TestNewRedisProgressCache_DisabledByTTL(t *testing.T) {
	cache := NewRedisProgressCache(nil, 0, zap.NewNop())
	_, isNop := cache.(NopProgressCache)
	assert.True(t, isNop)
}

func TestProgressCalculator_CacheInvalidatedByMarkVersion(t *testing.T) {
	cache, _ := newMiniredisCache(t, time.Minute)
	env := newTestEnv(cache)
	a := env.seedAssignment(model.AssignmentStatusInProgress)
	ctx := context.Background()

	_, err := env.svc.Completion.MarkCompleted(ctx, a.AssignmentID, volunteerActor, markReq(testCenter))
	require.NoError(t, err)

	p1, err := env.svc.Completion.GetProgress(ctx, a.AssignmentID)
	require.NoError(t, err)
	callsAfterFirst := env.marks.listCalls

	// 无写入：命中缓存，不再读取标记
	p2, err := env.svc.Completion.GetProgress(ctx, a.AssignmentID)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.Equal(t, callsAfterFirst, env.marks.listCalls)

	// 新增标记后 mark_version 变化，重新计算
	_, err = env.svc.Completion.MarkCompleted(ctx, a.AssignmentID, volunteerActor, markReq(offsetPoint(testCenter, 30, 0)))
	require.NoError(t, err)
	p3, err := env.svc.Completion.GetProgress(ctx, a.AssignmentID)
	require.NoError(t, err)
	assert.Greater(t, p3.ProgressPercentage, p1.ProgressPercentage)
	assert.Equal(t, 2, p3.MarkCount)
	assert.Greater(t, env.marks.listCalls, callsAfterFirst)
}

func TestProgressCalculator_MissesCountedOnlyWithRealCache(t *testing.T) {
	ctx := context.Background()

	// 未配置缓存：不计 miss
	env := newTestEnv(nil)
	a := env.seedAssignment(model.AssignmentStatusInProgress)
	before := testutil.ToFloat64(metrics.ProgressCacheMissesTotal)
	_, err := env.svc.Completion.GetProgress(ctx, a.AssignmentID)
	require.NoError(t, err)
	_, err = env.svc.Completion.GetProgress(ctx, a.AssignmentID)
	require.NoError(t, err)
	assert.Equal(t, before, testutil.ToFloat64(metrics.ProgressCacheMissesTotal))

	// Redis 缓存：首次 miss，第二次命中
	cache, _ := newMiniredisCache(t, time.Minute)
	env = newTestEnv(cache)
	a = env.seedAssignment(model.AssignmentStatusInProgress)
	before = testutil.ToFloat64(metrics.ProgressCacheMissesTotal)
	_, err = env.svc.Completion.GetProgress(ctx, a.AssignmentID)
	require.NoError(t, err)
	_, err = env.svc.Completion.GetProgress(ctx, a.AssignmentID)
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ProgressCacheMissesTotal))
}
