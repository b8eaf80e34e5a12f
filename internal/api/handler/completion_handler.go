package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/cliff-simpkins/scouting-flyers/internal/dto"
	"github.com/cliff-simpkins/scouting-flyers/internal/service"
	"github.com/cliff-simpkins/scouting-flyers/pkg/response"
)

// CompletionHandler 完成度追踪 HTTP 处理器
type CompletionHandler struct {
	completionSvc service.CompletionService
}

// NewCompletionHandler 创建 CompletionHandler
func NewCompletionHandler(completionSvc service.CompletionService) *CompletionHandler {
	return &CompletionHandler{completionSvc: completionSvc}
}

// MarkCompleted 添加完成标记
// POST /api/v1/assignments/:id/marks
func (h *CompletionHandler) MarkCompleted(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.MarkCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	result, err := h.completionSvc.MarkCompleted(c.Request.Context(), c.Param("id"), actor, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, result)
}

// ListMarks 列出分配下的全部标记（按创建顺序）
// GET /api/v1/assignments/:id/marks
func (h *CompletionHandler) ListMarks(c *gin.Context) {
	list, err := h.completionSvc.ListMarks(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKList(c, list, len(list))
}

// Unmark 撤销点击位置附近的标记
// POST /api/v1/assignments/:id/marks/unmark
func (h *CompletionHandler) Unmark(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.UnmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	result, err := h.completionSvc.UnmarkNear(c.Request.Context(), c.Param("id"), actor, *req.Point)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteMark 按 ID 删除标记
// DELETE /api/v1/marks/:id
func (h *CompletionHandler) DeleteMark(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.completionSvc.DeleteMark(c.Request.Context(), c.Param("id"), actor); err != nil {
		handleServiceError(c, err)
		return
	}

	response.NoContent(c)
}

// GetProgress 查询分配完成度
// GET /api/v1/assignments/:id/progress
func (h *CompletionHandler) GetProgress(c *gin.Context) {
	result, err := h.completionSvc.GetProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// SetManualPercentage 设置或清除人工完成度
// PUT /api/v1/assignments/:id/manual-percentage
func (h *CompletionHandler) SetManualPercentage(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.SetManualPercentageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}
	if !req.Value.Set {
		response.ErrorWithDetails(c, 422, 20301, "参数校验失败", "value 为必填字段，清除人工完成度请传 null")
		return
	}

	result, err := h.completionSvc.SetManualPercentage(c.Request.Context(), c.Param("id"), actor, req.Value.Value)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// Transition 分配状态流转
// PUT /api/v1/assignments/:id/status
func (h *CompletionHandler) Transition(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	result, err := h.completionSvc.Transition(c.Request.Context(), c.Param("id"), actor, req.Status)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}
