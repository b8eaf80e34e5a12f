package repository

import (
	"context"

	"github.com/paulmach/orb"
	"gorm.io/gorm"

	"github.com/cliff-simpkins/scouting-flyers/internal/model"
	"github.com/cliff-simpkins/scouting-flyers/pkg/geo"
)

// CompletionMarkRepository 完成标记数据访问接口
// 不做权限与状态校验，由 Service 层负责
type CompletionMarkRepository interface {
	Create(ctx context.Context, mark *model.CompletionMark) error
	GetByID(ctx context.Context, id string) (*model.CompletionMark, error)
	// ListByAssignment 按创建顺序（seq）返回分配下的全部标记
	ListByAssignment(ctx context.Context, assignmentID string) ([]model.CompletionMark, error)
	// DeleteByID 标记不存在时返回 gorm.ErrRecordNotFound
	DeleteByID(ctx context.Context, id string) error
	// FindNearest 返回距离 p 不超过 maxDistM 的最近标记，距离相同取 seq 最小者；
	// 没有符合条件的标记时返回 gorm.ErrRecordNotFound
	FindNearest(ctx context.Context, assignmentID string, p orb.Point, maxDistM float64) (*model.CompletionMark, error)
}

type completionMarkRepo struct {
	db *gorm.DB
}

func NewCompletionMarkRepo(db *gorm.DB) CompletionMarkRepository {
	return &completionMarkRepo{db: db}
}

func (r *completionMarkRepo) Create(ctx context.Context, mark *model.CompletionMark) error {
	return r.db.WithContext(ctx).Create(mark).Error
}

func (r *completionMarkRepo) GetByID(ctx context.Context, id string) (*model.CompletionMark, error) {
	var mark model.CompletionMark
	err := r.db.WithContext(ctx).
		Where("mark_id = ?", id).
		First(&mark).Error
	if err != nil {
		return nil, err
	}
	return &mark, nil
}

func (r *completionMarkRepo) ListByAssignment(ctx context.Context, assignmentID string) ([]model.CompletionMark, error) {
	var marks []model.CompletionMark
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("seq ASC").
		Find(&marks).Error
	return marks, err
}

func (r *completionMarkRepo) DeleteByID(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("mark_id = ?", id).
		Delete(&model.CompletionMark{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *completionMarkRepo) FindNearest(ctx context.Context, assignmentID string, p orb.Point, maxDistM float64) (*model.CompletionMark, error) {
	// 先用包围盒在数据库侧粗筛，再在内存中按球面距离精确排序
	b := geo.BoundAround(p, maxDistM)

	var candidates []model.CompletionMark
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("latitude BETWEEN ? AND ?", b.Min.Lat(), b.Max.Lat()).
		Where("longitude BETWEEN ? AND ?", b.Min.Lon(), b.Max.Lon()).
		Order("seq ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	points := make([]orb.Point, len(candidates))
	for i := range candidates {
		points[i] = candidates[i].Point()
	}
	idx, _ := geo.NearestIndex(points, p, maxDistM)
	if idx < 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &candidates[idx], nil
}
