package model

import "time"

// 分配状态
const (
	AssignmentStatusAssigned   = "assigned"
	AssignmentStatusInProgress = "in_progress"
	AssignmentStatusCompleted  = "completed"
)

// ZoneAssignment 区域分配 — 对应 zone_assignments
type ZoneAssignment struct {
	AssignmentID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assignment_id"`
	ZoneID       string     `gorm:"type:uuid;not null"                             json:"zone_id"`
	VolunteerID  string     `gorm:"type:uuid;not null"                             json:"volunteer_id"`
	AssignedBy   string     `gorm:"type:uuid;not null"                             json:"assigned_by"`
	Status       string     `gorm:"type:varchar(20);not null;default:'assigned'"   json:"status"` // assigned | in_progress | completed
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	// ManualCompletionPercentage 人工设定的完成度（0-100），nil 表示使用计算值
	ManualCompletionPercentage *int `gorm:"type:smallint" json:"manual_completion_percentage"`
	// Notes 分配级备注（单值，可清空）；多条留言见 AssignmentNote
	Notes *string `gorm:"type:text" json:"notes,omitempty"`
	// MarkVersion 标记集合版本号，每次新增/删除标记加一
	MarkVersion int64 `gorm:"not null;default:0" json:"mark_version"`
	VersionedModel

	// 关联
	Zone *Zone `gorm:"foreignKey:ZoneID;references:ZoneID" json:"zone,omitempty"`
}

func (ZoneAssignment) TableName() string { return "zone_assignments" }
