package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cliff-simpkins/scouting-flyers/config"
	"github.com/cliff-simpkins/scouting-flyers/internal/dto"
	"github.com/cliff-simpkins/scouting-flyers/internal/metrics"
	"github.com/cliff-simpkins/scouting-flyers/internal/model"
	"github.com/cliff-simpkins/scouting-flyers/internal/repository"
	"github.com/cliff-simpkins/scouting-flyers/pkg/geo"
)

// CompletionService 完成度追踪对外接口
//
// 写操作（标记、撤销、状态流转、人工完成度）都在锁定分配行的事务内执行；
// 读操作不加锁，允许读到落后一次写入的结果。
type CompletionService interface {
	// MarkCompleted 添加完成标记；分配处于 assigned 时自动流转为 in_progress
	MarkCompleted(ctx context.Context, assignmentID string, actor Actor, req *dto.MarkCompletedRequest) (*dto.MarkResponse, error)
	// UnmarkNear 删除 2×半径 范围内最近的标记；范围内没有标记时返回 Removed=false
	UnmarkNear(ctx context.Context, assignmentID string, actor Actor, point dto.GeoPoint) (*dto.UnmarkResponse, error)
	ListMarks(ctx context.Context, assignmentID string) ([]dto.MarkResponse, error)
	DeleteMark(ctx context.Context, markID string, actor Actor) error
	GetProgress(ctx context.Context, assignmentID string) (*dto.ProgressResponse, error)
	SetManualPercentage(ctx context.Context, assignmentID string, actor Actor, value *int) (*dto.ProgressResponse, error)
	Transition(ctx context.Context, assignmentID string, actor Actor, target string) (*dto.AssignmentResponse, error)
}

type completionService struct {
	cfg         *config.CompletionConfig
	repo        *repository.Repository
	authz       Authorizer
	assignments AssignmentService
	progress    ProgressCalculator
	now         func() time.Time
	logger      *zap.Logger
}

// NewCompletionService 创建 CompletionService 实例
func NewCompletionService(
	cfg *config.CompletionConfig,
	repo *repository.Repository,
	authz Authorizer,
	assignments AssignmentService,
	progress ProgressCalculator,
	logger *zap.Logger,
) CompletionService {
	return &completionService{
		cfg:         cfg,
		repo:        repo,
		authz:       authz,
		assignments: assignments,
		progress:    progress,
		now:         time.Now,
		logger:      logger,
	}
}

// ────────────────────── MarkCompleted ──────────────────────

func (s *completionService) MarkCompleted(ctx context.Context, assignmentID string, actor Actor, req *dto.MarkCompletedRequest) (*dto.MarkResponse, error) {
	if req.Point == nil {
		return nil, geo.ErrInvalidPoint
	}
	p := req.Point.Orb()
	if err := geo.ValidatePoint(p); err != nil {
		return nil, err
	}

	var mark *model.CompletionMark
	var promoted bool
	err := withLockedAssignment(ctx, s.repo, s.authz, assignmentID, actor, func(tx *repository.Repository, a *model.ZoneAssignment) error {
		if err := marksEditable(a); err != nil {
			return err
		}

		// 首个标记自动开始工作
		if a.Status == model.AssignmentStatusAssigned {
			if err := ApplyTransition(a, model.AssignmentStatusInProgress, s.now()); err != nil {
				return err
			}
			a.UpdatedBy = &actor.UserID
			if err := tx.Assignment.Update(ctx, a); err != nil {
				return err
			}
			promoted = true
		}

		if err := tx.Assignment.BumpMarkVersion(ctx, a); err != nil {
			return err
		}

		mark = &model.CompletionMark{
			AssignmentID: a.AssignmentID,
			Seq:          a.MarkVersion,
			Longitude:    p.Lon(),
			Latitude:     p.Lat(),
			RadiusM:      s.cfg.MarkRadiusM,
			Note:         req.Note,
			CreatedBy:    &actor.UserID,
		}
		return tx.Mark.Create(ctx, mark)
	})
	if err != nil {
		s.logFailure("添加完成标记失败", assignmentID, err)
		return nil, err
	}

	metrics.MarksCreatedTotal.Inc()
	if promoted {
		metrics.TransitionsTotal.WithLabelValues(model.AssignmentStatusAssigned, model.AssignmentStatusInProgress).Inc()
		s.logger.Info("首个标记自动开始工作", zap.String("assignment_id", assignmentID))
	}
	return toMarkResponse(mark), nil
}

// ────────────────────── UnmarkNear ──────────────────────

func (s *completionService) UnmarkNear(ctx context.Context, assignmentID string, actor Actor, point dto.GeoPoint) (*dto.UnmarkResponse, error) {
	p := point.Orb()
	if err := geo.ValidatePoint(p); err != nil {
		return nil, err
	}

	var removed *model.CompletionMark
	err := withLockedAssignment(ctx, s.repo, s.authz, assignmentID, actor, func(tx *repository.Repository, a *model.ZoneAssignment) error {
		if err := marksEditable(a); err != nil {
			return err
		}

		mark, err := tx.Mark.FindNearest(ctx, a.AssignmentID, p, s.cfg.UnmarkDistanceM())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if err := tx.Mark.DeleteByID(ctx, mark.MarkID); err != nil {
			return err
		}
		if err := tx.Assignment.BumpMarkVersion(ctx, a); err != nil {
			return err
		}
		removed = mark
		return nil
	})
	if err != nil {
		s.logFailure("撤销完成标记失败", assignmentID, err)
		return nil, err
	}

	if removed == nil {
		metrics.UnmarkMissesTotal.Inc()
		return &dto.UnmarkResponse{Removed: false}, nil
	}
	metrics.MarksRemovedTotal.WithLabelValues("unmark").Inc()
	return &dto.UnmarkResponse{Removed: true, Mark: toMarkResponse(removed)}, nil
}

// ────────────────────── ListMarks ──────────────────────

func (s *completionService) ListMarks(ctx context.Context, assignmentID string) ([]dto.MarkResponse, error) {
	if _, err := s.getAssignment(ctx, assignmentID); err != nil {
		return nil, err
	}

	marks, err := s.repo.Mark.ListByAssignment(ctx, assignmentID)
	if err != nil {
		s.logger.Error("列出完成标记失败", zap.String("assignment_id", assignmentID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.MarkResponse, 0, len(marks))
	for i := range marks {
		result = append(result, *toMarkResponse(&marks[i]))
	}
	return result, nil
}

// ────────────────────── DeleteMark ──────────────────────

func (s *completionService) DeleteMark(ctx context.Context, markID string, actor Actor) error {
	mark, err := s.repo.Mark.GetByID(ctx, markID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMarkNotFound
		}
		s.logger.Error("查询完成标记失败", zap.String("mark_id", markID), zap.Error(err))
		return err
	}

	err = withLockedAssignment(ctx, s.repo, s.authz, mark.AssignmentID, actor, func(tx *repository.Repository, a *model.ZoneAssignment) error {
		if err := marksEditable(a); err != nil {
			return err
		}
		// 加锁前标记可能已被并发删除
		if err := tx.Mark.DeleteByID(ctx, markID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMarkNotFound
			}
			return err
		}
		return tx.Assignment.BumpMarkVersion(ctx, a)
	})
	if err != nil {
		s.logFailure("删除完成标记失败", mark.AssignmentID, err)
		return err
	}

	metrics.MarksRemovedTotal.WithLabelValues("delete").Inc()
	return nil
}

// ────────────────────── GetProgress ──────────────────────

func (s *completionService) GetProgress(ctx context.Context, assignmentID string) (*dto.ProgressResponse, error) {
	a, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return s.buildProgress(ctx, a)
}

// ────────────────────── SetManualPercentage / Transition ──────────────────────

func (s *completionService) SetManualPercentage(ctx context.Context, assignmentID string, actor Actor, value *int) (*dto.ProgressResponse, error) {
	if _, err := s.assignments.SetManualPercentage(ctx, assignmentID, actor, value); err != nil {
		return nil, err
	}
	return s.GetProgress(ctx, assignmentID)
}

func (s *completionService) Transition(ctx context.Context, assignmentID string, actor Actor, target string) (*dto.AssignmentResponse, error) {
	return s.assignments.Transition(ctx, assignmentID, actor, target)
}

// ────────────────────── 内部辅助方法 ──────────────────────

func (s *completionService) getAssignment(ctx context.Context, id string) (*model.ZoneAssignment, error) {
	a, err := s.repo.Assignment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		s.logger.Error("查询分配失败", zap.String("assignment_id", id), zap.Error(err))
		return nil, err
	}
	return a, nil
}

func (s *completionService) buildProgress(ctx context.Context, a *model.ZoneAssignment) (*dto.ProgressResponse, error) {
	zone, err := s.repo.Zone.GetByID(ctx, a.ZoneID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrZoneNotFound
		}
		s.logger.Error("查询区域失败", zap.String("zone_id", a.ZoneID), zap.Error(err))
		return nil, err
	}

	p, err := s.progress.Compute(ctx, zone, a)
	if err != nil {
		return nil, err
	}

	effective, source := EffectivePercentage(a, p.ProgressPercentage)
	return &dto.ProgressResponse{
		AssignmentID:               a.AssignmentID,
		ZoneID:                     a.ZoneID,
		Status:                     a.Status,
		TotalAreaSqm:               p.TotalAreaSqm,
		CompletedAreaSqm:           p.CompletedAreaSqm,
		ProgressPercentage:         p.ProgressPercentage,
		MarkCount:                  p.MarkCount,
		ManualCompletionPercentage: a.ManualCompletionPercentage,
		EffectivePercentage:        effective,
		PercentageSource:           source,
	}, nil
}

func (s *completionService) logFailure(msg, assignmentID string, err error) {
	if isBusinessError(err) {
		s.logger.Debug(msg, zap.String("assignment_id", assignmentID), zap.Error(err))
		return
	}
	s.logger.Error(msg, zap.String("assignment_id", assignmentID), zap.Error(err))
}

func toMarkResponse(m *model.CompletionMark) *dto.MarkResponse {
	return &dto.MarkResponse{
		ID:           m.MarkID,
		AssignmentID: m.AssignmentID,
		Seq:          m.Seq,
		Point:        dto.GeoPoint(m.Point()),
		RadiusM:      m.RadiusM,
		Note:         m.Note,
		CreatedAt:    m.CreatedAt.Format(time.RFC3339),
		CreatedBy:    m.CreatedBy,
	}
}
