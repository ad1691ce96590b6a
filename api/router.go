package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SlpAus/guild-activity-tracker/internal/activity"
	"github.com/SlpAus/guild-activity-tracker/internal/birthday"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/database"
	"github.com/SlpAus/guild-activity-tracker/internal/scan"
	"github.com/SlpAus/guild-activity-tracker/internal/transport"
)

// Handlers 汇集各模块的HTTP处理器，由main在启动时装配。
type Handlers struct {
	Activity  *activity.Handler
	Birthday  *birthday.Handler
	Transport *transport.Handler
	Scan      *scan.Handler
}

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, db *database.DB, h Handlers) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"redisHealthy": db.IsRedisHealthy(),
		})
	})

	api := router.Group("/api")
	{
		// 用户统计与隐私
		users := api.Group("/users")
		{
			users.GET("/top", h.Activity.GetTopUsers)
			users.GET("/inactive", h.Activity.GetInactiveUsers)
			users.GET("/:id/stats", h.Activity.GetUserStats)
			users.POST("/:id/privacy", h.Activity.SetPrivacy)
			users.DELETE("/:id", h.Activity.EraseUser)
		}

		// 生日登记与看板
		birthdays := api.Group("/birthdays")
		{
			birthdays.GET("", h.Birthday.ListBirthdays)
			birthdays.POST("", h.Birthday.SetBirthday)
			birthdays.DELETE("/:id", h.Birthday.DeleteBirthday)
		}

		// 平台适配器的事件投递
		events := api.Group("/events")
		{
			events.POST("", h.Transport.HandleEvent)
			events.POST("/member-remove", h.Transport.HandleMemberRemove)
		}

		// 管理操作
		admin := api.Group("/admin")
		{
			admin.POST("/clean-db", h.Transport.CleanDB)
			admin.POST("/scan", h.Scan.Run)
		}
	}
}
