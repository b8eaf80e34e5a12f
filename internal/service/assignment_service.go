package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cliff-simpkins/scouting-flyers/internal/dto"
	"github.com/cliff-simpkins/scouting-flyers/internal/metrics"
	"github.com/cliff-simpkins/scouting-flyers/internal/model"
	"github.com/cliff-simpkins/scouting-flyers/internal/repository"
)

// AssignmentService 区域分配与状态机业务接口
type AssignmentService interface {
	Assign(ctx context.Context, zoneID string, req *dto.AssignVolunteerRequest, actor Actor) (*dto.AssignmentResponse, error)
	Get(ctx context.Context, id string) (*dto.AssignmentResponse, error)
	ListByZone(ctx context.Context, zoneID string) ([]dto.AssignmentResponse, error)
	Delete(ctx context.Context, id string, actor Actor) error
	Transition(ctx context.Context, id string, actor Actor, target string) (*dto.AssignmentResponse, error)
	SetManualPercentage(ctx context.Context, id string, actor Actor, value *int) (*dto.AssignmentResponse, error)
	// SetNotes 修改分配备注，nil 或空串表示清除
	SetNotes(ctx context.Context, id string, actor Actor, notes *string) (*dto.AssignmentResponse, error)
	// ListMine 当前用户作为志愿者的全部分配，附有效完成度
	ListMine(ctx context.Context, actor Actor, projectID *string) ([]dto.MyAssignmentResponse, error)
}

type assignmentService struct {
	repo     *repository.Repository
	authz    Authorizer
	progress ProgressCalculator
	now      func() time.Time
	logger   *zap.Logger
}

// NewAssignmentService 创建 AssignmentService 实例
func NewAssignmentService(repo *repository.Repository, authz Authorizer, progress ProgressCalculator, logger *zap.Logger) AssignmentService {
	return &assignmentService{repo: repo, authz: authz, progress: progress, now: time.Now, logger: logger}
}

// withLockedAssignment 在事务中锁定分配行并校验操作权限后执行 fn。
// 同一分配上的写操作由行锁串行化。
func withLockedAssignment(
	ctx context.Context,
	repo *repository.Repository,
	authz Authorizer,
	id string,
	actor Actor,
	fn func(tx *repository.Repository, a *model.ZoneAssignment) error,
) error {
	return repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		a, err := tx.Assignment.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssignmentNotFound
			}
			return err
		}
		if !authz.CanActOn(ctx, actor, a) {
			return ErrAssignmentForbidden
		}
		return fn(tx, a)
	})
}

// ────────────────────── Assign ──────────────────────

func (s *assignmentService) Assign(ctx context.Context, zoneID string, req *dto.AssignVolunteerRequest, actor Actor) (*dto.AssignmentResponse, error) {
	if !s.authz.CanManage(ctx, actor) {
		return nil, ErrOrganizerOnly
	}

	if _, err := s.repo.Zone.GetByID(ctx, zoneID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrZoneNotFound
		}
		s.logger.Error("查询区域失败", zap.String("zone_id", zoneID), zap.Error(err))
		return nil, err
	}

	// 同一志愿者在同一区域只能有一个未完成的分配（数据库部分唯一索引兜底）
	_, err := s.repo.Assignment.FindActive(ctx, zoneID, req.VolunteerID)
	if err == nil {
		return nil, ErrAssignmentExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询已有分配失败", zap.Error(err))
		return nil, err
	}

	a := &model.ZoneAssignment{
		ZoneID:      zoneID,
		VolunteerID: req.VolunteerID,
		AssignedBy:  actor.UserID,
		Status:      model.AssignmentStatusAssigned,
	}
	a.CreatedBy = &actor.UserID
	a.UpdatedBy = &actor.UserID

	if err := s.repo.Assignment.Create(ctx, a); err != nil {
		s.logger.Error("创建分配失败", zap.String("zone_id", zoneID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("志愿者已分配到区域",
		zap.String("assignment_id", a.AssignmentID),
		zap.String("zone_id", zoneID),
		zap.String("volunteer_id", req.VolunteerID),
	)
	return toAssignmentResponse(a), nil
}

// ────────────────────── Get / List ──────────────────────

func (s *assignmentService) Get(ctx context.Context, id string) (*dto.AssignmentResponse, error) {
	a, err := s.repo.Assignment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		s.logger.Error("查询分配失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toAssignmentResponse(a), nil
}

func (s *assignmentService) ListByZone(ctx context.Context, zoneID string) ([]dto.AssignmentResponse, error) {
	if _, err := s.repo.Zone.GetByID(ctx, zoneID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrZoneNotFound
		}
		return nil, err
	}

	list, err := s.repo.Assignment.ListByZone(ctx, zoneID)
	if err != nil {
		s.logger.Error("列出区域分配失败", zap.String("zone_id", zoneID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AssignmentResponse, 0, len(list))
	for i := range list {
		result = append(result, *toAssignmentResponse(&list[i]))
	}
	return result, nil
}

// ListMine 不校验项目是否存在：未知项目返回空列表
func (s *assignmentService) ListMine(ctx context.Context, actor Actor, projectID *string) ([]dto.MyAssignmentResponse, error) {
	list, err := s.repo.Assignment.ListByVolunteer(ctx, actor.UserID, projectID)
	if err != nil {
		s.logger.Error("列出我的分配失败", zap.String("volunteer_id", actor.UserID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.MyAssignmentResponse, 0, len(list))
	for i := range list {
		a := &list[i]
		zone := a.Zone
		if zone == nil {
			if zone, err = s.repo.Zone.GetByID(ctx, a.ZoneID); err != nil {
				s.logger.Error("查询区域失败", zap.String("zone_id", a.ZoneID), zap.Error(err))
				return nil, err
			}
		}

		p, err := s.progress.Compute(ctx, zone, a)
		if err != nil {
			return nil, err
		}
		effective, source := EffectivePercentage(a, p.ProgressPercentage)

		result = append(result, dto.MyAssignmentResponse{
			AssignmentResponse:  *toAssignmentResponse(a),
			ZoneName:            zone.Name,
			ProjectID:           zone.ProjectID,
			ProgressPercentage:  p.ProgressPercentage,
			EffectivePercentage: effective,
			PercentageSource:    source,
		})
	}
	return result, nil
}

// ────────────────────── Delete ──────────────────────

func (s *assignmentService) Delete(ctx context.Context, id string, actor Actor) error {
	if !s.authz.CanManage(ctx, actor) {
		return ErrOrganizerOnly
	}
	if err := s.repo.Assignment.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		s.logger.Error("删除分配失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("分配已删除", zap.String("assignment_id", id), zap.String("operator", actor.UserID))
	return nil
}

// ────────────────────── Transition ──────────────────────

func (s *assignmentService) Transition(ctx context.Context, id string, actor Actor, target string) (*dto.AssignmentResponse, error) {
	var result *model.ZoneAssignment
	var from string
	err := withLockedAssignment(ctx, s.repo, s.authz, id, actor, func(tx *repository.Repository, a *model.ZoneAssignment) error {
		from = a.Status
		if err := ApplyTransition(a, target, s.now()); err != nil {
			return err
		}
		a.UpdatedBy = &actor.UserID
		if err := tx.Assignment.Update(ctx, a); err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		s.logFailure("状态流转失败", id, err)
		return nil, err
	}

	metrics.TransitionsTotal.WithLabelValues(from, target).Inc()
	s.logger.Info("分配状态流转",
		zap.String("assignment_id", id),
		zap.String("from", from),
		zap.String("to", target),
		zap.String("operator", actor.UserID),
	)
	return toAssignmentResponse(result), nil
}

// ────────────────────── SetManualPercentage ──────────────────────

func (s *assignmentService) SetManualPercentage(ctx context.Context, id string, actor Actor, value *int) (*dto.AssignmentResponse, error) {
	if err := ValidateManualPercentage(value); err != nil {
		return nil, err
	}

	var result *model.ZoneAssignment
	err := withLockedAssignment(ctx, s.repo, s.authz, id, actor, func(tx *repository.Repository, a *model.ZoneAssignment) error {
		if value != nil {
			v := *value
			a.ManualCompletionPercentage = &v
		} else {
			a.ManualCompletionPercentage = nil
		}
		a.UpdatedBy = &actor.UserID
		if err := tx.Assignment.Update(ctx, a); err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		s.logFailure("设置人工完成度失败", id, err)
		return nil, err
	}
	return toAssignmentResponse(result), nil
}

// ────────────────────── SetNotes ──────────────────────

func (s *assignmentService) SetNotes(ctx context.Context, id string, actor Actor, notes *string) (*dto.AssignmentResponse, error) {
	if notes != nil && *notes == "" {
		notes = nil
	}
	if notes != nil && utf8.RuneCountInString(*notes) > MaxNotesLength {
		return nil, ErrNotesTooLong
	}

	var result *model.ZoneAssignment
	err := withLockedAssignment(ctx, s.repo, s.authz, id, actor, func(tx *repository.Repository, a *model.ZoneAssignment) error {
		a.Notes = notes
		a.UpdatedBy = &actor.UserID
		if err := tx.Assignment.Update(ctx, a); err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		s.logFailure("修改分配备注失败", id, err)
		return nil, err
	}
	return toAssignmentResponse(result), nil
}

// logFailure 业务拒绝（权限、状态图）不记 Error
func (s *assignmentService) logFailure(msg, id string, err error) {
	if isBusinessError(err) {
		s.logger.Debug(msg, zap.String("assignment_id", id), zap.Error(err))
		return
	}
	s.logger.Error(msg, zap.String("assignment_id", id), zap.Error(err))
}

// ────────────────────── 内部辅助方法 ──────────────────────

func toAssignmentResponse(a *model.ZoneAssignment) *dto.AssignmentResponse {
	return &dto.AssignmentResponse{
		ID:                         a.AssignmentID,
		ZoneID:                     a.ZoneID,
		VolunteerID:                a.VolunteerID,
		AssignedBy:                 a.AssignedBy,
		Status:                     a.Status,
		StartedAt:                  formatTimePtr(a.StartedAt),
		CompletedAt:                formatTimePtr(a.CompletedAt),
		ManualCompletionPercentage: a.ManualCompletionPercentage,
		Notes:                      a.Notes,
		MarkVersion:                a.MarkVersion,
		CreatedAt:                  a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:                  a.UpdatedAt.Format(time.RFC3339),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
