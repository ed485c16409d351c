// api/handlers/notification_handler.go
package handlers

import (
	"net/http"

	"example.com/planner/services/calendar/api/middleware"
	"example.com/planner/services/calendar/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NotificationHandler handles notification requests
type NotificationHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewNotificationHandler creates a new NotificationHandler instance
func NewNotificationHandler(svc service.Service, log *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: svc,
		log:     log,
	}
}

// ListNotifications lists the caller's notifications, oldest first
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	unreadOnly := c.Query("unread_only") == "true"
	notifications, err := h.service.ListNotifications(c.Request.Context(), user, unreadOnly)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkRead marks one notification as read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notificationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	notification, err := h.service.MarkNotificationRead(c.Request.Context(), notificationID, user)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, notification)
}

// MarkAllRead marks every unread notification of the caller as read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	count, err := h.service.MarkAllNotificationsRead(c.Request.Context(), user)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked_read": count})
}

// DeleteNotification removes one of the caller's notifications
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	notificationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	if err := h.service.DeleteNotification(c.Request.Context(), notificationID, user); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}
