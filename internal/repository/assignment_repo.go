package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cliff-simpkins/scouting-flyers/internal/model"
	pkgerrors "github.com/cliff-simpkins/scouting-flyers/pkg/errors"
)

// AssignmentRepository 区域分配数据访问接口
type AssignmentRepository interface {
	Create(ctx context.Context, a *model.ZoneAssignment) error
	GetByID(ctx context.Context, id string) (*model.ZoneAssignment, error)
	// GetForUpdate 使用 SELECT ... FOR UPDATE 行级锁读取分配
	// 必须在 TxRunner.Transaction 内调用，锁持有到事务结束
	GetForUpdate(ctx context.Context, id string) (*model.ZoneAssignment, error)
	ListByZone(ctx context.Context, zoneID string) ([]model.ZoneAssignment, error)
	// ListByVolunteer 志愿者的全部分配（预加载 Zone）；projectID 非空时只返回该项目下的区域
	ListByVolunteer(ctx context.Context, volunteerID string, projectID *string) ([]model.ZoneAssignment, error)
	// FindActive 查找志愿者在区域内未完成的分配
	FindActive(ctx context.Context, zoneID, volunteerID string) (*model.ZoneAssignment, error)
	Update(ctx context.Context, a *model.ZoneAssignment) error
	// BumpMarkVersion 标记集合版本号加一，返回后 a.MarkVersion 为新值
	BumpMarkVersion(ctx context.Context, a *model.ZoneAssignment) error
	Delete(ctx context.Context, id string) error
}

type assignmentRepo struct {
	db *gorm.DB
}

func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) Create(ctx context.Context, a *model.ZoneAssignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *assignmentRepo) GetByID(ctx context.Context, id string) (*model.ZoneAssignment, error) {
	var a model.ZoneAssignment
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) GetForUpdate(ctx context.Context, id string) (*model.ZoneAssignment, error) {
	var a model.ZoneAssignment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("assignment_id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) ListByZone(ctx context.Context, zoneID string) ([]model.ZoneAssignment, error) {
	var list []model.ZoneAssignment
	err := r.db.WithContext(ctx).
		Where("zone_id = ?", zoneID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *assignmentRepo) ListByVolunteer(ctx context.Context, volunteerID string, projectID *string) ([]model.ZoneAssignment, error) {
	q := r.db.WithContext(ctx).
		Preload("Zone").
		Where("zone_assignments.volunteer_id = ?", volunteerID)
	if projectID != nil {
		q = q.Joins("JOIN zones ON zones.zone_id = zone_assignments.zone_id").
			Where("zones.project_id = ?", *projectID)
	}

	var list []model.ZoneAssignment
	err := q.Order("zone_assignments.created_at ASC").Find(&list).Error
	return list, err
}

func (r *assignmentRepo) FindActive(ctx context.Context, zoneID, volunteerID string) (*model.ZoneAssignment, error) {
	var a model.ZoneAssignment
	err := r.db.WithContext(ctx).
		Where("zone_id = ? AND volunteer_id = ? AND status <> ?", zoneID, volunteerID, model.AssignmentStatusCompleted).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) Update(ctx context.Context, a *model.ZoneAssignment) error {
	oldVersion := a.Version
	result := r.db.WithContext(ctx).
		Model(&model.ZoneAssignment{}).
		Where("assignment_id = ? AND version = ?", a.AssignmentID, oldVersion).
		Updates(map[string]interface{}{
			"status":                       a.Status,
			"started_at":                   a.StartedAt,
			"completed_at":                 a.CompletedAt,
			"manual_completion_percentage": a.ManualCompletionPercentage,
			"notes":                        a.Notes,
			"updated_by":                   a.UpdatedBy,
			"updated_at":                   gorm.Expr("CURRENT_TIMESTAMP"),
			"version":                      oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	a.Version = oldVersion + 1
	return nil
}

func (r *assignmentRepo) BumpMarkVersion(ctx context.Context, a *model.ZoneAssignment) error {
	old := a.MarkVersion
	result := r.db.WithContext(ctx).
		Model(&model.ZoneAssignment{}).
		Where("assignment_id = ? AND mark_version = ?", a.AssignmentID, old).
		UpdateColumn("mark_version", old+1)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	a.MarkVersion = old + 1
	return nil
}

// Delete 硬删除，completion_marks 由外键级联删除
func (r *assignmentRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("assignment_id = ?", id).
		Delete(&model.ZoneAssignment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
