package routes

import (
	"example.com/planner/services/calendar/api/handlers"
	"example.com/planner/services/calendar/api/middleware"
	"example.com/planner/services/calendar/internal/realtime"
	"example.com/planner/services/calendar/internal/repository"
	"example.com/planner/services/calendar/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes sets up all the routes for the server
func SetupRoutes(r *gin.Engine, svc service.Service, repo repository.Repository, hub *realtime.Hub, log *logrus.Logger) {
	// Health check
	r.GET("/health", handlers.HealthCheck)

	// API routes, all token-authenticated
	api := r.Group("/api/v1")
	api.Use(middleware.TokenAuth(repo, log))

	// Event routes
	eventHandler := handlers.NewEventHandler(svc, log)
	permissionHandler := handlers.NewPermissionHandler(svc, log)
	versionHandler := handlers.NewVersionHandler(svc, log)
	events := api.Group("/events")
	{
		events.POST("", eventHandler.CreateEvent)
		events.POST("/batch", eventHandler.CreateEventBatch)
		events.GET("", eventHandler.ListEvents)
		events.GET("/range", eventHandler.ListOccurrences)
		events.GET("/:id", eventHandler.GetEvent)
		events.PATCH("/:id", eventHandler.UpdateEvent)
		events.DELETE("/:id", eventHandler.DeleteEvent)

		// Sharing
		events.POST("/:id/share", permissionHandler.ShareEvent)
		events.GET("/:id/permissions", permissionHandler.ListPermissions)
		events.PUT("/:id/permissions/:userId", permissionHandler.UpdatePermission)
		events.DELETE("/:id/permissions/:userId", permissionHandler.RevokePermission)

		// Version history
		events.GET("/:id/versions", versionHandler.ListVersions)
		events.GET("/:id/versions/diff", versionHandler.DiffVersions)
		events.GET("/:id/versions/:version", versionHandler.GetVersion)
		events.POST("/:id/rollback/:version", versionHandler.RollbackEvent)
	}

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(svc, log)
	notifications := api.Group("/notifications")
	{
		notifications.GET("", notificationHandler.ListNotifications)
		notifications.POST("/read-all", notificationHandler.MarkAllRead)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
		notifications.DELETE("/:id", notificationHandler.DeleteNotification)
	}

	// Live notification stream
	wsHandler := handlers.NewWSHandler(hub, log)
	api.GET("/ws", wsHandler.Connect)
}
