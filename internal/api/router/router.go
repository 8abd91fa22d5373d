package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GTD-web/ems-backend-sub011/config"
	"github.com/GTD-web/ems-backend-sub011/internal/api/handler"
	"github.com/GTD-web/ems-backend-sub011/internal/api/middleware"
	"github.com/GTD-web/ems-backend-sub011/pkg/jwt"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(jwtMgr))
	{
		// 评估周期模块
		periods := authorized.Group("/evaluation-periods")
		{
			periods.GET("", h.EvaluationPeriod.ListPeriods)
			periods.GET("/active", h.EvaluationPeriod.ListActivePeriods)
			periods.GET("/:id", h.EvaluationPeriod.GetPeriod)
			periods.GET("/:id/grade", h.EvaluationPeriod.LookupGrade)
			periods.GET("/:id/participants", middleware.RoleAuth("admin"), h.EvaluationPeriod.ListParticipants)
			periods.GET("/:id/activity-logs", middleware.RoleAuth("admin"), h.EvaluationPeriod.ListActivityLogs)

			periods.POST("", middleware.RoleAuth("admin"), h.EvaluationPeriod.CreatePeriod)
			periods.PUT("/:id", middleware.RoleAuth("admin"), h.EvaluationPeriod.UpdatePeriod)
			periods.PATCH("/:id/basic-info", middleware.RoleAuth("admin"), h.EvaluationPeriod.UpdateBasicInfo)
			periods.PATCH("/:id/schedule", middleware.RoleAuth("admin"), h.EvaluationPeriod.UpdateSchedule)
			periods.PATCH("/:id/deadlines/:kind", middleware.RoleAuth("admin"), h.EvaluationPeriod.UpdateDeadline)
			periods.PUT("/:id/grade-ranges", middleware.RoleAuth("admin"), h.EvaluationPeriod.UpdateGradeRanges)
			periods.PATCH("/:id/manual-permissions", middleware.RoleAuth("admin"), h.EvaluationPeriod.SetManualPermissions)
			periods.DELETE("/:id", middleware.RoleAuth("admin"), h.EvaluationPeriod.DeletePeriod)

			// 状态与阶段
			periods.POST("/:id/start", middleware.RoleAuth("admin"), h.EvaluationPeriod.StartPeriod)
			periods.POST("/:id/complete", middleware.RoleAuth("admin"), h.EvaluationPeriod.CompletePeriod)
			periods.POST("/:id/revert", middleware.RoleAuth("admin"), h.EvaluationPeriod.RevertPeriod)
			periods.PUT("/:id/phase", middleware.RoleAuth("admin"), h.EvaluationPeriod.ChangePhase)
			periods.POST("/auto-phase/sweep", middleware.RoleAuth("admin"), h.EvaluationPeriod.TriggerAutoPhaseSweep)

			// 导出
			periods.GET("/export", middleware.RoleAuth("admin"), h.Export.ExportOverview)
			periods.GET("/:id/calendar.ics", h.Export.ExportCalendar)
		}
	}

	return r
}
