package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cliff-simpkins/scouting-flyers/config"
	"github.com/cliff-simpkins/scouting-flyers/internal/api/handler"
	"github.com/cliff-simpkins/scouting-flyers/internal/api/middleware"
	"github.com/cliff-simpkins/scouting-flyers/internal/metrics"
	"github.com/cliff-simpkins/scouting-flyers/pkg/jwt"
	"github.com/cliff-simpkins/scouting-flyers/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时标记接口不限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))

	// ── 健康检查 / 指标 ──
	r.GET("/health", healthCheck(db, rdb))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	var limiter middleware.RateLimiter
	if rdb != nil {
		limiter = rdb
	}
	markLimit := middleware.RateLimit(limiter, cfg.RateLimit.Requests, cfg.RateLimit.Window, logger)
	organizerOnly := middleware.RoleAuth(cfg.Completion.OrganizerRoles...)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(jwtMgr))
	{
		// 区域模块（边界通常由上游同步，这里只提供最小登记入口）
		zones := authorized.Group("/zones")
		{
			zones.POST("", organizerOnly, h.Zone.Create)
			zones.GET("/:id", h.Zone.Get)
			zones.POST("/:id/assignments", organizerOnly, h.Assignment.Assign)
			zones.GET("/:id/assignments", h.Assignment.ListByZone)
			zones.GET("/:id/progress/export", organizerOnly, h.Export.ExportZoneProgress)
		}

		// 分配与完成度模块（志愿者本人或组织者，Service 层鉴权）
		assignments := authorized.Group("/assignments")
		{
			assignments.GET("/mine", h.Assignment.ListMine)
			assignments.GET("/:id", h.Assignment.Get)
			assignments.PATCH("/:id", h.Assignment.UpdateNotes)
			assignments.DELETE("/:id", organizerOnly, h.Assignment.Delete)
			assignments.PUT("/:id/status", h.Completion.Transition)
			assignments.PUT("/:id/manual-percentage", h.Completion.SetManualPercentage)
			assignments.GET("/:id/progress", h.Completion.GetProgress)

			assignments.GET("/:id/marks", h.Completion.ListMarks)
			assignments.POST("/:id/marks", markLimit, h.Completion.MarkCompleted)
			assignments.POST("/:id/marks/unmark", markLimit, h.Completion.Unmark)

			assignments.GET("/:id/notes", h.Note.List)
			assignments.POST("/:id/notes", h.Note.Create)
		}

		authorized.DELETE("/marks/:id", markLimit, h.Completion.DeleteMark)

		// 留言修改/删除仅作者本人
		authorized.PUT("/notes/:id", h.Note.Update)
		authorized.DELETE("/notes/:id", h.Note.Delete)
	}

	return r
}

// healthCheck 数据库不可用时返回 503；Redis 不可用只标记为降级
func healthCheck(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"status": "ok", "database": "up", "redis": "disabled"}
		code := http.StatusOK

		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
				status["status"] = "unavailable"
				status["database"] = "down"
				code = http.StatusServiceUnavailable
			}
		}
		if rdb != nil {
			status["redis"] = "up"
			if err := rdb.Ping(ctx); err != nil {
				status["redis"] = "down"
				if code == http.StatusOK {
					status["status"] = "degraded"
				}
			}
		}

		c.JSON(code, status)
	}
}
