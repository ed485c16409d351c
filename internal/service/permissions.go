package service

import (
	"context"
	"errors"

	"example.com/planner/services/calendar/internal/models"
	"example.com/planner/services/calendar/internal/repository"
)

// PermissionResolver decides what a user may do with an event. Methods take
// the repository explicitly so they work against a transaction-scoped one.
type PermissionResolver struct{}

// RoleOf returns the user's effective role on the event. Superusers and the
// event owner resolve to OWNER without touching the permission table.
func (PermissionResolver) RoleOf(ctx context.Context, r repository.Repository, event *models.Event, user *models.User) (models.Role, error) {
	if user.IsSuperuser || event.OwnerID == user.ID {
		return models.RoleOwner, nil
	}
	perm, err := r.FindPermission(ctx, event.ID, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.RoleNone, nil
		}
		return models.RoleNone, err
	}
	return perm.Role, nil
}

// Authorize returns ErrPermissionDenied unless the user's effective role
// ranks at least min
func (p PermissionResolver) Authorize(ctx context.Context, r repository.Repository, event *models.Event, user *models.User, min models.Role) error {
	role, err := p.RoleOf(ctx, r, event, user)
	if err != nil {
		return err
	}
	if role.Rank() < min.Rank() {
		return ErrPermissionDenied
	}
	return nil
}
