package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/cliff-simpkins/scouting-flyers/internal/api/middleware"
	"github.com/cliff-simpkins/scouting-flyers/internal/service"
	"github.com/cliff-simpkins/scouting-flyers/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.ContextUserID)
	if s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetActor 提取当前操作者（用户 ID + 角色），角色允许为空
func MustGetActor(c *gin.Context) (service.Actor, bool) {
	uid, ok := MustGetUserID(c)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{UserID: uid, Role: c.GetString(middleware.ContextRole)}, true
}
