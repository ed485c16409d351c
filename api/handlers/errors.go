package handlers

import (
	"errors"
	"net/http"

	"example.com/planner/services/calendar/internal/recurrence"
	"example.com/planner/services/calendar/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// respondError translates a service error into an HTTP response. Unknown
// errors become a generic 500 so internals never leak.
func respondError(c *gin.Context, log *logrus.Logger, err error) {
	var (
		conflictErr *service.ConflictError
		roleErr     *service.InvalidRoleError
		batchErr    *service.BatchSizeExceededError
		ruleErr     *recurrence.RuleError
	)

	switch {
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":     conflictErr.Error(),
			"conflicts": conflictErr.Conflicts,
		})
	case errors.As(err, &roleErr),
		errors.As(err, &batchErr),
		errors.As(err, &ruleErr),
		errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrDuplicatePermission),
		errors.Is(err, service.ErrInvalidRollback):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPermissionDenied),
		errors.Is(err, service.ErrProtectedOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrPermissionNotFound),
		errors.Is(err, service.ErrNotificationNotFound),
		errors.Is(err, service.ErrVersionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.WithError(err).Error("Unhandled service error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
