package service

import (
	"errors"
	"fmt"

	"example.com/planner/services/calendar/internal/models"
)

// Validation and business-rule errors. These abort the enclosing transaction
// and are never retried; the API layer maps each to a status code.
var (
	ErrInvalidRange         = errors.New("end time must be after start time")
	ErrPermissionDenied     = errors.New("insufficient permissions")
	ErrProtectedOwner       = errors.New("cannot alter or remove the event owner's permission")
	ErrDuplicatePermission  = errors.New("permission already exists for this user")
	ErrEventNotFound        = errors.New("event not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrPermissionNotFound   = errors.New("permission not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrVersionNotFound      = errors.New("version not found")
	ErrInvalidRollback      = errors.New("cannot roll back to the current or a future version")
)

// ConflictError reports the overlapping events found by a conflict check
type ConflictError struct {
	Conflicts []*models.Event
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("event conflicts with %d existing event(s)", len(e.Conflicts))
}

// InvalidRoleError reports a permission grant or update that names an
// unassignable role or target
type InvalidRoleError struct {
	Role   models.Role
	Reason string
}

func (e *InvalidRoleError) Error() string {
	return fmt.Sprintf("invalid permission role %q: %s", e.Role, e.Reason)
}

// BatchSizeExceededError reports a batch create beyond the configured bound
type BatchSizeExceededError struct {
	Size int
	Max  int
}

func (e *BatchSizeExceededError) Error() string {
	return fmt.Sprintf("batch of %d events exceeds the maximum of %d", e.Size, e.Max)
}
