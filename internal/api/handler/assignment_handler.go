package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cliff-simpkins/scouting-flyers/internal/dto"
	"github.com/cliff-simpkins/scouting-flyers/internal/service"
	"github.com/cliff-simpkins/scouting-flyers/pkg/response"
)

// AssignmentHandler 区域分配 HTTP 处理器
type AssignmentHandler struct {
	assignmentSvc service.AssignmentService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(assignmentSvc service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentSvc: assignmentSvc}
}

// Assign 将志愿者分配到区域
// POST /api/v1/zones/:id/assignments
func (h *AssignmentHandler) Assign(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.AssignVolunteerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	result, err := h.assignmentSvc.Assign(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, result)
}

// ListByZone 区域下的全部分配
// GET /api/v1/zones/:id/assignments
func (h *AssignmentHandler) ListByZone(c *gin.Context) {
	list, err := h.assignmentSvc.ListByZone(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKList(c, list, len(list))
}

// Get 分配详情
// GET /api/v1/assignments/:id
func (h *AssignmentHandler) Get(c *gin.Context) {
	result, err := h.assignmentSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// Delete 删除分配（标记级联删除）
// DELETE /api/v1/assignments/:id
func (h *AssignmentHandler) Delete(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.assignmentSvc.Delete(c.Request.Context(), c.Param("id"), actor); err != nil {
		handleServiceError(c, err)
		return
	}

	response.NoContent(c)
}

// ListMine 当前用户的分配，可按项目过滤
// GET /api/v1/assignments/mine?project_id=
func (h *AssignmentHandler) ListMine(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var projectID *string
	if raw := c.Query("project_id"); raw != "" {
		if _, err := uuid.Parse(raw); err != nil {
			response.BadRequest(c, 10001, "project_id 格式错误")
			return
		}
		projectID = &raw
	}

	list, err := h.assignmentSvc.ListMine(c.Request.Context(), actor, projectID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKList(c, list, len(list))
}

// UpdateNotes 修改分配备注
// PATCH /api/v1/assignments/:id
func (h *AssignmentHandler) UpdateNotes(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.UpdateAssignmentNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}
	if !req.Notes.Set {
		response.ErrorWithDetails(c, 422, 20301, "参数校验失败", "notes 为必填字段，清除备注请传 null")
		return
	}

	result, err := h.assignmentSvc.SetNotes(c.Request.Context(), c.Param("id"), actor, req.Notes.Value)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}
