// api/handlers/version_handler.go
package handlers

import (
	"net/http"
	"strconv"

	"example.com/planner/services/calendar/api/middleware"
	"example.com/planner/services/calendar/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// VersionHandler handles version history requests
type VersionHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewVersionHandler creates a new VersionHandler instance
func NewVersionHandler(svc service.Service, log *logrus.Logger) *VersionHandler {
	return &VersionHandler{
		service: svc,
		log:     log,
	}
}

// ListVersions lists an event's version history, newest first
func (h *VersionHandler) ListVersions(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	skip, limit := paginationParams(c)
	versions, err := h.service.ListVersions(c.Request.Context(), eventID, user, skip, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

// GetVersion returns a single version snapshot
func (h *VersionHandler) GetVersion(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	versionNumber, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid version parameter"})
		return
	}
	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	version, err := h.service.GetVersion(c.Request.Context(), eventID, versionNumber, user)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, version)
}

// DiffVersions reports the changes between two versions
func (h *VersionHandler) DiffVersions(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	v1, err := strconv.Atoi(c.Query("v1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or missing 'v1' parameter"})
		return
	}
	v2, err := strconv.Atoi(c.Query("v2"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or missing 'v2' parameter"})
		return
	}
	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	diff, err := h.service.DiffVersions(c.Request.Context(), eventID, v1, v2, user)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, diff)
}

// RollbackEvent restores an event to a previous version
func (h *VersionHandler) RollbackEvent(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	versionNumber, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid version parameter"})
		return
	}
	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	event, err := h.service.RollbackEvent(c.Request.Context(), eventID, versionNumber, user)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, event)
}
