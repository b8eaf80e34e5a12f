package dto

import "encoding/json"

// ── 区域分配模块 DTO ──

// AssignVolunteerRequest 分配志愿者请求
type AssignVolunteerRequest struct {
	VolunteerID string `json:"volunteer_id" binding:"required,uuid"`
}

// TransitionRequest 状态流转请求
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// AssignmentResponse 区域分配响应
type AssignmentResponse struct {
	ID                         string  `json:"id"`
	ZoneID                     string  `json:"zone_id"`
	VolunteerID                string  `json:"volunteer_id"`
	AssignedBy                 string  `json:"assigned_by"`
	Status                     string  `json:"status"`
	StartedAt                  *string `json:"started_at"`
	CompletedAt                *string `json:"completed_at"`
	ManualCompletionPercentage *int    `json:"manual_completion_percentage"`
	Notes                      *string `json:"notes"`
	MarkVersion                int64   `json:"mark_version"`
	CreatedAt                  string  `json:"created_at"`
	UpdatedAt                  string  `json:"updated_at"`
}

// UpdateAssignmentNotesRequest 修改分配备注；notes 为 null 表示清除，缺省视为非法请求
type UpdateAssignmentNotesRequest struct {
	Notes Nullable[string] `json:"notes"`
}

// MyAssignmentResponse 当前志愿者的分配，附区域信息与有效完成度
type MyAssignmentResponse struct {
	AssignmentResponse
	ZoneName            string  `json:"zone_name"`
	ProjectID           string  `json:"project_id"`
	ProgressPercentage  float64 `json:"progress_percentage"`
	EffectivePercentage float64 `json:"effective_percentage"`
	PercentageSource    string  `json:"percentage_source"` // manual | computed
}

// ── 分配留言 DTO ──

// NoteContentRequest 新建或修改留言
type NoteContentRequest struct {
	Content string `json:"content" binding:"required,min=1,max=5000"`
}

// NoteResponse 留言响应
type NoteResponse struct {
	ID           string `json:"id"`
	AssignmentID string `json:"assignment_id"`
	AuthorID     string `json:"author_id"`
	Content      string `json:"content"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// ── 区域 DTO ──

// CreateZoneRequest 登记区域请求（边界为 GeoJSON Polygon）
type CreateZoneRequest struct {
	ProjectID string          `json:"project_id" binding:"required,uuid"`
	Name      string          `json:"name"       binding:"required,min=1,max=255"`
	Boundary  json.RawMessage `json:"boundary"   binding:"required"`
}

// ZoneResponse 区域响应
type ZoneResponse struct {
	ID           string          `json:"id"`
	ProjectID    string          `json:"project_id"`
	Name         string          `json:"name"`
	Boundary     json.RawMessage `json:"boundary"`
	TotalAreaSqm float64         `json:"total_area_sqm"`
	CreatedAt    string          `json:"created_at"`
}
