package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/cliff-simpkins/scouting-flyers/internal/dto"
	"github.com/cliff-simpkins/scouting-flyers/internal/service"
	"github.com/cliff-simpkins/scouting-flyers/pkg/response"
)

// ZoneHandler 区域 HTTP 处理器
type ZoneHandler struct {
	zoneSvc service.ZoneService
}

// NewZoneHandler 创建 ZoneHandler
func NewZoneHandler(zoneSvc service.ZoneService) *ZoneHandler {
	return &ZoneHandler{zoneSvc: zoneSvc}
}

// Create 登记区域
// POST /api/v1/zones
func (h *ZoneHandler) Create(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CreateZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	result, err := h.zoneSvc.Create(c.Request.Context(), &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, result)
}

// Get 区域详情
// GET /api/v1/zones/:id
func (h *ZoneHandler) Get(c *gin.Context) {
	result, err := h.zoneSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}
