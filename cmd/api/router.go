package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"proactive-backend/internal/proactive/usecase"
)

func SetupRoutes(r *gin.Engine, manager *usecase.ProactiveManager) {
	handler := NewProactiveHandler(manager)

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		proactive := api.Group("/proactive")
		{
			proactive.GET("/status", handler.GetStatus)
			proactive.PATCH("/config", handler.UpdateConfig)
			proactive.POST("/check", handler.ForceCheck)
		}

		notifications := api.Group("/notifications")
		{
			notifications.POST("", handler.SendNotification)
			notifications.POST("/:id/response", handler.NotificationResponse)
			notifications.GET("/history", handler.GetHistory)
		}
	}
}
