package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/cliff-simpkins/scouting-flyers/internal/model"
)

// ZoneRepository 区域数据访问接口
// 区域边界由上游维护，这里只提供注册与读取
type ZoneRepository interface {
	Create(ctx context.Context, zone *model.Zone) error
	GetByID(ctx context.Context, id string) (*model.Zone, error)
}

type zoneRepo struct {
	db *gorm.DB
}

func NewZoneRepo(db *gorm.DB) ZoneRepository {
	return &zoneRepo{db: db}
}

func (r *zoneRepo) Create(ctx context.Context, zone *model.Zone) error {
	return r.db.WithContext(ctx).Create(zone).Error
}

func (r *zoneRepo) GetByID(ctx context.Context, id string) (*model.Zone, error) {
	var zone model.Zone
	err := r.db.WithContext(ctx).
		Where("zone_id = ?", id).
		First(&zone).Error
	if err != nil {
		return nil, err
	}
	return &zone, nil
}
