package dto

import "encoding/json"

// ── 完成标记模块 DTO ──

// MarkCompletedRequest 添加完成标记请求
type MarkCompletedRequest struct {
	Point *GeoPoint `json:"point" binding:"required"`
	Note  *string   `json:"note"  binding:"omitempty,max=500"`
}

// UnmarkRequest 撤销附近标记请求
type UnmarkRequest struct {
	Point *GeoPoint `json:"point" binding:"required"`
}

// MarkResponse 完成标记响应
type MarkResponse struct {
	ID           string   `json:"id"`
	AssignmentID string   `json:"assignment_id"`
	Seq          int64    `json:"seq"`
	Point        GeoPoint `json:"point"`
	RadiusM      float64  `json:"radius_m"`
	Note         *string  `json:"note,omitempty"`
	CreatedAt    string   `json:"created_at"`
	CreatedBy    *string  `json:"created_by,omitempty"`
}

// UnmarkResponse 撤销结果；范围内没有标记时 Removed=false，不视为错误
type UnmarkResponse struct {
	Removed bool          `json:"removed"`
	Mark    *MarkResponse `json:"mark,omitempty"`
}

// 百分比来源
const (
	PercentageSourceManual   = "manual"
	PercentageSourceComputed = "computed"
)

// ProgressResponse 分配完成度快照
type ProgressResponse struct {
	AssignmentID               string  `json:"assignment_id"`
	ZoneID                     string  `json:"zone_id"`
	Status                     string  `json:"status"`
	TotalAreaSqm               float64 `json:"total_area_sqm"`
	CompletedAreaSqm           float64 `json:"completed_area_sqm"`
	ProgressPercentage         float64 `json:"progress_percentage"`
	MarkCount                  int     `json:"mark_count"`
	ManualCompletionPercentage *int    `json:"manual_completion_percentage"`
	EffectivePercentage        float64 `json:"effective_percentage"`
	PercentageSource           string  `json:"percentage_source"` // manual | computed
}

// SetManualPercentageRequest 设置人工完成度；value 为 null 表示清除，缺省视为非法请求
type SetManualPercentageRequest struct {
	Value NullableInt `json:"value"`
}

// Nullable 区分字段缺省与显式 null：
// 缺省时 Set=false；null 时 Set=true 且 Value=nil
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// NullableInt 可为 null 的整数字段
type NullableInt = Nullable[int]

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Value)
}
