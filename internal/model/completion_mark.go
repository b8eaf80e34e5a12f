package model

import (
	"time"

	"github.com/paulmach/orb"
)

// CompletionMark 完成标记 — 对应 completion_marks
// 创建后不可修改，只能删除
type CompletionMark struct {
	MarkID       string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"mark_id"`
	AssignmentID string    `gorm:"type:uuid;not null"                             json:"assignment_id"`
	Seq          int64     `gorm:"not null"                                       json:"seq"` // 创建顺序
	Longitude    float64   `gorm:"not null"                                       json:"longitude"`
	Latitude     float64   `gorm:"not null"                                       json:"latitude"`
	RadiusM      float64   `gorm:"column:radius_m;not null"                       json:"radius_m"`
	Note         *string   `gorm:"type:text"                                      json:"note,omitempty"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	CreatedBy    *string   `gorm:"type:uuid"                                      json:"created_by,omitempty"`
}

func (CompletionMark) TableName() string { return "completion_marks" }

// Point 标记圆心（经度, 纬度）
func (m *CompletionMark) Point() orb.Point {
	return orb.Point{m.Longitude, m.Latitude}
}
