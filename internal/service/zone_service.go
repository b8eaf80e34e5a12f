package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cliff-simpkins/scouting-flyers/internal/dto"
	"github.com/cliff-simpkins/scouting-flyers/internal/model"
	"github.com/cliff-simpkins/scouting-flyers/internal/repository"
	"github.com/cliff-simpkins/scouting-flyers/pkg/geo"
)

// ZoneService 区域登记与查询
// 区域通常由上游 KML 导入流程写入，这里只提供最小的登记入口
type ZoneService interface {
	Create(ctx context.Context, req *dto.CreateZoneRequest, actor Actor) (*dto.ZoneResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ZoneResponse, error)
}

type zoneService struct {
	repo   *repository.Repository
	authz  Authorizer
	logger *zap.Logger
}

// NewZoneService 创建 ZoneService 实例
func NewZoneService(repo *repository.Repository, authz Authorizer, logger *zap.Logger) ZoneService {
	return &zoneService{repo: repo, authz: authz, logger: logger}
}

func (s *zoneService) Create(ctx context.Context, req *dto.CreateZoneRequest, actor Actor) (*dto.ZoneResponse, error) {
	if !s.authz.CanManage(ctx, actor) {
		return nil, ErrOrganizerOnly
	}

	boundary, err := model.ParseBoundary(req.Boundary)
	if err != nil {
		return nil, err
	}
	if geo.PolygonArea(boundary.Ring()) == 0 {
		return nil, geo.ErrInvalidRing
	}

	zone := &model.Zone{
		ProjectID: req.ProjectID,
		Name:      req.Name,
		Boundary:  boundary,
	}
	zone.CreatedBy = &actor.UserID
	zone.UpdatedBy = &actor.UserID

	if err := s.repo.Zone.Create(ctx, zone); err != nil {
		s.logger.Error("登记区域失败", zap.Error(err))
		return nil, err
	}
	return toZoneResponse(zone)
}

func (s *zoneService) GetByID(ctx context.Context, id string) (*dto.ZoneResponse, error) {
	zone, err := s.repo.Zone.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrZoneNotFound
		}
		s.logger.Error("查询区域失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toZoneResponse(zone)
}

func toZoneResponse(z *model.Zone) (*dto.ZoneResponse, error) {
	boundary, err := z.Boundary.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return &dto.ZoneResponse{
		ID:           z.ZoneID,
		ProjectID:    z.ProjectID,
		Name:         z.Name,
		Boundary:     boundary,
		TotalAreaSqm: round2(geo.PolygonArea(z.Boundary.Ring())),
		CreatedAt:    z.CreatedAt.Format(time.RFC3339),
	}, nil
}
