package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/cliff-simpkins/scouting-flyers/internal/metrics"
	"github.com/cliff-simpkins/scouting-flyers/internal/model"
	"github.com/cliff-simpkins/scouting-flyers/internal/repository"
	"github.com/cliff-simpkins/scouting-flyers/pkg/geo"
)

// Progress 基于完成标记计算出的完成度
type Progress struct {
	TotalAreaSqm       float64 `json:"total_area_sqm"`
	CompletedAreaSqm   float64 `json:"completed_area_sqm"`
	ProgressPercentage float64 `json:"progress_percentage"`
	MarkCount          int     `json:"mark_count"`
}

// CalculateProgress 纯函数：区域边界 + 标记集合 → 完成度。
// 面积为 0 的边界返回 0%，不做除法。
func CalculateProgress(boundary model.Boundary, marks []model.CompletionMark, sampler geo.Sampler) Progress {
	ring := boundary.Ring()
	total := geo.PolygonArea(ring)

	disks := make([]geo.Disk, len(marks))
	for i := range marks {
		disks[i] = geo.Disk{Center: marks[i].Point(), RadiusM: marks[i].RadiusM}
	}
	completed := sampler.UnionArea(disks, ring)

	pct := 0.0
	if total > 0 {
		pct = math.Min(100, completed/total*100)
	}

	return Progress{
		TotalAreaSqm:       round2(total),
		CompletedAreaSqm:   round2(completed),
		ProgressPercentage: round2(pct),
		MarkCount:          len(marks),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ProgressCalculator 计算分配的完成度
//
// 结果按 (assignment_id, mark_version) 缓存；标记增删会使 mark_version 加一，
// 旧版本的缓存自然不再命中。同一版本的并发计算只执行一次。
type ProgressCalculator interface {
	Compute(ctx context.Context, zone *model.Zone, a *model.ZoneAssignment) (Progress, error)
}

type progressCalculator struct {
	repo    *repository.Repository
	cache   ProgressCache
	cached  bool
	sampler geo.Sampler
	group   singleflight.Group
	logger  *zap.Logger
}

// NewProgressCalculator 创建 ProgressCalculator；cache 为 nil 时每次读取都重新计算
func NewProgressCalculator(repo *repository.Repository, cache ProgressCache, sampler geo.Sampler, logger *zap.Logger) ProgressCalculator {
	if cache == nil {
		cache = NopProgressCache{}
	}
	_, nop := cache.(NopProgressCache)
	return &progressCalculator{repo: repo, cache: cache, cached: !nop, sampler: sampler, logger: logger}
}

func (c *progressCalculator) Compute(ctx context.Context, zone *model.Zone, a *model.ZoneAssignment) (Progress, error) {
	if p, ok := c.cache.Get(ctx, a.AssignmentID, a.MarkVersion); ok {
		metrics.ProgressCacheHitsTotal.Inc()
		return p, nil
	}
	if c.cached {
		metrics.ProgressCacheMissesTotal.Inc()
	}

	// 同一 key 的其他等待者共享本次结果，不能因发起者取消而一起失败
	computeCtx := context.WithoutCancel(ctx)
	key := fmt.Sprintf("%s:%d", a.AssignmentID, a.MarkVersion)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		marks, err := c.repo.Mark.ListByAssignment(computeCtx, a.AssignmentID)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		p := CalculateProgress(zone.Boundary, marks, c.sampler)
		metrics.ProgressComputeDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)

		c.cache.Set(computeCtx, a.AssignmentID, a.MarkVersion, p)
		return p, nil
	})
	if err != nil {
		c.logger.Error("计算完成度失败", zap.String("assignment_id", a.AssignmentID), zap.Error(err))
		return Progress{}, err
	}
	return v.(Progress), nil
}
