// api/handlers/permission_handler.go
package handlers

import (
	"net/http"

	"example.com/planner/services/calendar/api/middleware"
	"example.com/planner/services/calendar/internal/models"
	"example.com/planner/services/calendar/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PermissionHandler handles event sharing requests
type PermissionHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewPermissionHandler creates a new PermissionHandler instance
func NewPermissionHandler(svc service.Service, log *logrus.Logger) *PermissionHandler {
	return &PermissionHandler{
		service: svc,
		log:     log,
	}
}

// ShareEvent grants a user access to an event
func (h *PermissionHandler) ShareEvent(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		UserID uint   `json:"user_id" binding:"required"`
		Role   string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid share format"})
		return
	}

	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	permission, err := h.service.ShareEvent(c.Request.Context(), eventID, req.UserID, models.Role(req.Role), user)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, permission)
}

// ListPermissions lists all grants on an event
func (h *PermissionHandler) ListPermissions(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	permissions, err := h.service.ListPermissions(c.Request.Context(), eventID, user)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"permissions": permissions})
}

// UpdatePermission changes an existing grant's role
func (h *PermissionHandler) UpdatePermission(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	targetUserID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid permission format"})
		return
	}

	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	permission, err := h.service.UpdatePermission(c.Request.Context(), eventID, targetUserID, models.Role(req.Role), user)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, permission)
}

// RevokePermission removes a grant from an event
func (h *PermissionHandler) RevokePermission(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	targetUserID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	if err := h.service.RevokePermission(c.Request.Context(), eventID, targetUserID, user); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Permission revoked"})
}
