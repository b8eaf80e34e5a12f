package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/cliff-simpkins/scouting-flyers/internal/service"
	pkgerrors "github.com/cliff-simpkins/scouting-flyers/pkg/errors"
	"github.com/cliff-simpkins/scouting-flyers/pkg/response"
)

// handleBindError 请求体绑定失败：校验类错误（如坐标不是 GeoJSON Point）返回 422，其余 400
func handleBindError(c *gin.Context, err error) {
	if errors.Is(err, pkgerrors.ErrValidation) {
		response.ErrorWithDetails(c, 422, 20301, "参数校验失败", err.Error())
		return
	}
	response.BadRequest(c, 10001, "参数校验失败")
}

// handleServiceError 将业务错误映射为 HTTP 响应。
// 先匹配具体错误，再按错误类别兜底。
func handleServiceError(c *gin.Context, err error) {
	switch {
	// ── 404 ──
	case errors.Is(err, service.ErrZoneNotFound):
		response.NotFound(c, 20001, "区域不存在")
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 20002, "分配不存在")
	case errors.Is(err, service.ErrMarkNotFound):
		response.NotFound(c, 20003, "完成标记不存在")
	case errors.Is(err, service.ErrNoteNotFound):
		response.NotFound(c, 20004, "留言不存在")
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, 20000, "记录不存在")

	// ── 403 ──
	case errors.Is(err, service.ErrOrganizerOnly):
		response.Forbidden(c, 20102, "仅组织者可操作")
	case errors.Is(err, service.ErrVolunteerOnly):
		response.Forbidden(c, 20103, "仅分配的志愿者本人可操作")
	case errors.Is(err, service.ErrNoteAuthorOnly):
		response.Forbidden(c, 20104, "仅留言作者可修改或删除")
	case errors.Is(err, pkgerrors.ErrForbidden):
		response.Forbidden(c, 20101, "仅分配的志愿者或组织者可操作")

	// ── 409 ──
	case errors.Is(err, pkgerrors.ErrInvalidTransition):
		response.ErrorWithDetails(c, 409, 20201, "非法的状态流转", err.Error())
	case errors.Is(err, service.ErrAssignmentCompleted):
		response.Conflict(c, 20202, "分配已完成，不能修改完成标记")
	case errors.Is(err, service.ErrAssignmentExists):
		response.Conflict(c, 20203, "该志愿者在此区域已有未完成的分配")
	case errors.Is(err, pkgerrors.ErrInvalidState):
		response.Conflict(c, 20204, "当前状态不允许该操作")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 20205, "数据已被其他操作修改，请刷新后重试")

	// ── 422 ──
	case errors.Is(err, pkgerrors.ErrGeometry):
		response.ErrorWithDetails(c, 422, 20302, "几何数据无效", err.Error())
	case errors.Is(err, pkgerrors.ErrValidation):
		response.ErrorWithDetails(c, 422, 20301, "参数校验失败", err.Error())

	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
