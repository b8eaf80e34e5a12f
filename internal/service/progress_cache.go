package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cliff-simpkins/scouting-flyers/pkg/redis"
)

// ProgressCache 完成度缓存。缓存故障只记录日志，调用方退化为重新计算。
type ProgressCache interface {
	Get(ctx context.Context, assignmentID string, markVersion int64) (Progress, bool)
	Set(ctx context.Context, assignmentID string, markVersion int64, p Progress)
}

// NopProgressCache 不缓存
type NopProgressCache struct{}

func (NopProgressCache) Get(context.Context, string, int64) (Progress, bool) { return Progress{}, false }
func (NopProgressCache) Set(context.Context, string, int64, Progress)        {}

// KVStore Redis 读写的最小接口，*redis.Client 满足该接口
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type redisProgressCache struct {
	store  KVStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisProgressCache 基于 Redis 的完成度缓存，键为 progress:{assignment_id}:{mark_version}
func NewRedisProgressCache(store KVStore, ttl time.Duration, logger *zap.Logger) ProgressCache {
	if store == nil || ttl <= 0 {
		return NopProgressCache{}
	}
	return &redisProgressCache{store: store, ttl: ttl, logger: logger}
}

func progressKey(assignmentID string, markVersion int64) string {
	return fmt.Sprintf("progress:%s:%d", assignmentID, markVersion)
}

func (c *redisProgressCache) Get(ctx context.Context, assignmentID string, markVersion int64) (Progress, bool) {
	raw, err := c.store.Get(ctx, progressKey(assignmentID, markVersion))
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			c.logger.Warn("读取完成度缓存失败", zap.String("assignment_id", assignmentID), zap.Error(err))
		}
		return Progress{}, false
	}

	var p Progress
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		c.logger.Warn("完成度缓存数据损坏", zap.String("assignment_id", assignmentID), zap.Error(err))
		return Progress{}, false
	}
	return p, true
}

func (c *redisProgressCache) Set(ctx context.Context, assignmentID string, markVersion int64, p Progress) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, progressKey(assignmentID, markVersion), string(data), c.ttl); err != nil {
		c.logger.Warn("写入完成度缓存失败", zap.String("assignment_id", assignmentID), zap.Error(err))
	}
}
