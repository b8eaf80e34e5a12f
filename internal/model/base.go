package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/cliff-simpkins/scouting-flyers/pkg/geo"
)

// ── GeoJSON Polygon 自定义类型 ──

// Boundary 区域边界外环（经度, 纬度），以 GeoJSON Polygon 存入 JSONB 列，
// 实现 GORM Scanner/Valuer 接口。
type Boundary orb.Ring

// Ring 转为 orb.Ring 供几何计算使用
func (b Boundary) Ring() orb.Ring { return orb.Ring(b) }

// Scan 将 JSONB 中的 GeoJSON Polygon 解析为外环
func (b *Boundary) Scan(src interface{}) error {
	if src == nil {
		*b = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("Boundary.Scan: unsupported type %T", src)
	}
	ring, err := ParseBoundary(data)
	if err != nil {
		return fmt.Errorf("Boundary.Scan: %w", err)
	}
	*b = ring
	return nil
}

// Value 将外环序列化为 GeoJSON Polygon
func (b Boundary) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	return b.MarshalJSON()
}

// MarshalJSON 输出 GeoJSON Polygon
func (b Boundary) MarshalJSON() ([]byte, error) {
	return json.Marshal(geojson.NewGeometry(orb.Polygon{orb.Ring(b)}))
}

// UnmarshalJSON 接受 GeoJSON Polygon（不允许内环）
func (b *Boundary) UnmarshalJSON(data []byte) error {
	ring, err := ParseBoundary(data)
	if err != nil {
		return err
	}
	*b = ring
	return nil
}

// ParseBoundary 解析 GeoJSON Polygon 并校验外环
func ParseBoundary(data []byte) (Boundary, error) {
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", geo.ErrInvalidRing, err)
	}
	poly, ok := g.Geometry().(orb.Polygon)
	if !ok || len(poly) != 1 {
		return nil, geo.ErrInvalidRing
	}
	if err := geo.ValidateRing(poly[0]); err != nil {
		return nil, err
	}
	return Boundary(poly[0]), nil
}

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:uuid"                          json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid"                          json:"updated_by,omitempty"`
}

// VersionedModel 支持乐观锁的审计字段
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}
