package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"example.com/planner/services/calendar/internal/cache"
	"example.com/planner/services/calendar/internal/messaging"
	"example.com/planner/services/calendar/internal/models"
	"example.com/planner/services/calendar/internal/recurrence"
	"example.com/planner/services/calendar/internal/repository"
)

const (
	defaultMaxBatchSize = 50
	eventCacheTTL       = 5 * time.Minute
)

// Occurrence is one concrete entry in a range listing: either a plain event
// or a single expansion of a recurring one
type Occurrence struct {
	Event      *models.Event `json:"event"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	IsOriginal bool          `json:"is_original"`
}

// Service exposes the calendar operations
type Service interface {
	// Events
	CreateEvent(ctx context.Context, input EventInput, owner *models.User, checkConflicts bool) (*models.Event, error)
	CreateEventBatch(ctx context.Context, inputs []EventInput, owner *models.User, checkConflicts bool) ([]*models.Event, error)
	GetEvent(ctx context.Context, eventID uint, user *models.User) (*models.Event, error)
	ListOwnedEvents(ctx context.Context, user *models.User, offset, limit int) ([]*models.Event, error)
	ListOccurrences(ctx context.Context, user *models.User, start, end time.Time, offset, limit int) ([]*Occurrence, error)
	UpdateEvent(ctx context.Context, eventID uint, patch EventPatch, actor *models.User, checkConflicts bool) (*models.Event, error)
	SoftDeleteEvent(ctx context.Context, eventID uint, actor *models.User) error
	HardDeleteEvent(ctx context.Context, eventID uint, actor *models.User) error

	// Permissions
	ShareEvent(ctx context.Context, eventID, targetUserID uint, role models.Role, actor *models.User) (*models.EventPermission, error)
	UpdatePermission(ctx context.Context, eventID, targetUserID uint, role models.Role, actor *models.User) (*models.EventPermission, error)
	RevokePermission(ctx context.Context, eventID, targetUserID uint, actor *models.User) error
	ListPermissions(ctx context.Context, eventID uint, user *models.User) ([]*models.EventPermission, error)

	// Versions
	ListVersions(ctx context.Context, eventID uint, user *models.User, offset, limit int) ([]*models.EventVersion, error)
	GetVersion(ctx context.Context, eventID uint, versionNumber int, user *models.User) (*models.EventVersion, error)
	DiffVersions(ctx context.Context, eventID uint, v1, v2 int, user *models.User) (*VersionDiff, error)
	RollbackEvent(ctx context.Context, eventID uint, versionNumber int, actor *models.User) (*models.Event, error)

	// Notifications
	ListNotifications(ctx context.Context, user *models.User, unreadOnly bool) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID uint, user *models.User) (*models.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, user *models.User) (int64, error)
	DeleteNotification(ctx context.Context, notificationID uint, user *models.User) error
}

type service struct {
	repo     repository.Repository
	cache    cache.RedisClient
	engine   *recurrence.Engine
	detector *ConflictDetector
	resolver PermissionResolver
	ledger   *VersionLedger
	fanout   *Fanout
	log      *logrus.Logger
	maxBatch int
}

// Config holds the service dependencies
type Config struct {
	Repository      repository.Repository
	Cache           cache.RedisClient
	Hub             Broadcaster
	MessagingClient messaging.ServiceBusClient
	Logger          *logrus.Logger
	OccurrenceLimit int
	MaxBatchSize    int
}

func NewService(cfg Config) (Service, error) {
	if cfg.Repository == nil {
		return nil, errors.New("repository is required")
	}
	if cfg.Cache == nil {
		return nil, errors.New("cache client is required")
	}
	if cfg.Hub == nil {
		return nil, errors.New("broadcast hub is required")
	}
	if cfg.MessagingClient == nil {
		return nil, errors.New("messaging client is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = defaultMaxBatchSize
	}

	engine := recurrence.NewEngine(cfg.OccurrenceLimit)
	return &service{
		repo:     cfg.Repository,
		cache:    cfg.Cache,
		engine:   engine,
		detector: NewConflictDetector(engine, cfg.Logger),
		ledger:   NewVersionLedger(cfg.Logger),
		fanout:   NewFanout(cfg.Hub, cfg.MessagingClient, cfg.Logger),
		log:      cfg.Logger,
		maxBatch: cfg.MaxBatchSize,
	}, nil
}

func (s *service) CreateEvent(ctx context.Context, input EventInput, owner *models.User, checkConflicts bool) (*models.Event, error) {
	event, err := s.buildEvent(input, owner.ID)
	if err != nil {
		return nil, err
	}

	if checkConflicts {
		conflicts, err := s.detector.FindConflicts(ctx, s.repo, event.StartTime, event.EndTime, 0)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			return nil, &ConflictError{Conflicts: conflicts}
		}
	}

	err = s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
		return s.persistNewEvent(ctx, tx, event, owner.ID)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"event_id": event.ID,
		"owner_id": owner.ID,
	}).Info("Event created")
	return event, nil
}

func (s *service) CreateEventBatch(ctx context.Context, inputs []EventInput, owner *models.User, checkConflicts bool) ([]*models.Event, error) {
	if len(inputs) > s.maxBatch {
		return nil, &BatchSizeExceededError{Size: len(inputs), Max: s.maxBatch}
	}

	events := make([]*models.Event, 0, len(inputs))
	for _, input := range inputs {
		event, err := s.buildEvent(input, owner.ID)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	// Every item is validated against existing events before anything persists
	if checkConflicts {
		for _, event := range events {
			conflicts, err := s.detector.FindConflicts(ctx, s.repo, event.StartTime, event.EndTime, 0)
			if err != nil {
				return nil, err
			}
			if len(conflicts) > 0 {
				return nil, &ConflictError{Conflicts: conflicts}
			}
		}
	}

	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
		for _, event := range events {
			if err := s.persistNewEvent(ctx, tx, event, owner.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"count":    len(events),
		"owner_id": owner.ID,
	}).Info("Event batch created")
	return events, nil
}

// persistNewEvent writes the event row, the owner's OWNER permission, and
// version 1 as one unit
func (s *service) persistNewEvent(ctx context.Context, tx repository.Repository, event *models.Event, ownerID uint) error {
	if err := tx.CreateEvent(ctx, event); err != nil {
		return fmt.Errorf("creating event: %w", err)
	}
	permission := &models.EventPermission{
		EventID: event.ID,
		UserID:  ownerID,
		Role:    models.RoleOwner,
	}
	if err := tx.CreatePermission(ctx, permission); err != nil {
		return fmt.Errorf("creating owner permission: %w", err)
	}
	if _, err := s.ledger.AppendInitial(ctx, tx, event, ownerID); err != nil {
		return err
	}
	return nil
}

func (s *service) buildEvent(input EventInput, ownerID uint) (*models.Event, error) {
	if !input.EndTime.After(input.StartTime) {
		return nil, ErrInvalidRange
	}

	rule := input.RecurrenceRule
	if input.IsRecurring && rule != "" {
		normalized, err := recurrence.Normalize(rule)
		if err != nil {
			return nil, err
		}
		rule = normalized
	}

	return &models.Event{
		Title:          input.Title,
		Description:    input.Description,
		Location:       input.Location,
		StartTime:      input.StartTime,
		EndTime:        input.EndTime,
		IsRecurring:    input.IsRecurring,
		RecurrenceRule: rule,
		OwnerID:        ownerID,
		CurrentVersion: 1,
	}, nil
}

func (s *service) GetEvent(ctx context.Context, eventID uint, user *models.User) (*models.Event, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Authorize(ctx, s.repo, event, user, models.RoleViewer); err != nil {
		return nil, err
	}
	return event, nil
}

// loadEvent reads an event through the cache
func (s *service) loadEvent(ctx context.Context, eventID uint) (*models.Event, error) {
	key := cache.EventKey(eventID)
	if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
		var event models.Event
		if err := json.Unmarshal([]byte(cached), &event); err == nil {
			return &event, nil
		}
		s.log.WithField("event_id", eventID).Warn("Discarding undecodable cached event")
	}

	event, err := s.repo.FindEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	if encoded, err := json.Marshal(event); err == nil {
		if err := s.cache.Set(ctx, key, string(encoded), eventCacheTTL); err != nil {
			s.log.WithError(err).WithField("event_id", eventID).Warn("Failed to cache event")
		}
	}
	return event, nil
}

func (s *service) invalidateEvent(ctx context.Context, eventID uint) {
	if err := s.cache.Delete(ctx, cache.EventKey(eventID)); err != nil {
		s.log.WithError(err).WithField("event_id", eventID).Warn("Failed to invalidate event cache")
	}
}

func (s *service) ListOwnedEvents(ctx context.Context, user *models.User, offset, limit int) ([]*models.Event, error) {
	return s.repo.ListEventsByOwner(ctx, user.ID, offset, limit)
}

func (s *service) ListOccurrences(ctx context.Context, user *models.User, start, end time.Time, offset, limit int) ([]*Occurrence, error) {
	if !end.After(start) {
		return nil, ErrInvalidRange
	}

	events, err := s.repo.ListAccessibleEvents(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	var entries []*Occurrence
	for _, event := range events {
		occurrences, err := s.engine.Occurrences(event, start, end, 0)
		if err != nil {
			var ruleErr *recurrence.RuleError
			if errors.As(err, &ruleErr) {
				// A broken rule hides the event from listings instead of
				// failing the whole request
				s.log.WithFields(logrus.Fields{
					"event_id": event.ID,
					"rule":     ruleErr.Rule,
				}).Warn("Skipping event with malformed recurrence rule in listing")
				continue
			}
			return nil, err
		}
		for _, occ := range occurrences {
			entries = append(entries, &Occurrence{
				Event:      event,
				StartTime:  occ.Start,
				EndTime:    occ.End,
				IsOriginal: occ.IsOriginal,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].StartTime.Before(entries[j].StartTime)
	})

	if offset > len(entries) {
		offset = len(entries)
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *service) UpdateEvent(ctx context.Context, eventID uint, patch EventPatch, actor *models.User, checkConflicts bool) (*models.Event, error) {
	if rule, ok := patch.RecurrenceRule.Get(); ok && rule != "" {
		normalized, err := recurrence.Normalize(rule)
		if err != nil {
			return nil, err
		}
		patch.RecurrenceRule = mo.Some(normalized)
	}

	var updated *models.Event
	var changed bool
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
		event, err := s.lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := s.resolver.Authorize(ctx, tx, event, actor, models.RoleEditor); err != nil {
			return err
		}

		newStart, newEnd := event.StartTime, event.EndTime
		if v, ok := patch.StartTime.Get(); ok {
			newStart = v
		}
		if v, ok := patch.EndTime.Get(); ok {
			newEnd = v
		}
		if !newEnd.After(newStart) {
			return ErrInvalidRange
		}

		if checkConflicts {
			conflicts, err := s.detector.FindConflicts(ctx, tx, newStart, newEnd, event.ID)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return &ConflictError{Conflicts: conflicts}
			}
		}

		priorSnapshot := event.Snapshot()
		changes := patch.Apply(event)
		if len(changes) == 0 {
			updated = event
			return nil
		}

		if _, err := s.ledger.Append(ctx, tx, event, actor.ID, priorSnapshot, changes, "Event updated"); err != nil {
			return err
		}
		updated = event
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.invalidateEvent(ctx, eventID)
		s.notify(ctx, updated, models.NotificationEventUpdated,
			fmt.Sprintf("Event updated: %s", updated.Title),
			map[string]interface{}{"event_id": updated.ID, "updated_by": actor.ID},
			actor.ID)
	}
	return updated, nil
}

func (s *service) SoftDeleteEvent(ctx context.Context, eventID uint, actor *models.User) error {
	var deleted *models.Event
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
		event, err := s.lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := s.resolver.Authorize(ctx, tx, event, actor, models.RoleOwner); err != nil {
			return err
		}

		priorSnapshot := event.Snapshot()
		event.IsDeleted = true
		changes := map[string]interface{}{
			"is_deleted": changeEntry(false, true),
		}
		if _, err := s.ledger.Append(ctx, tx, event, actor.ID, priorSnapshot, changes, "Event deleted"); err != nil {
			return err
		}
		deleted = event
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateEvent(ctx, eventID)
	s.notify(ctx, deleted, models.NotificationEventDeleted,
		fmt.Sprintf("Event deleted: %s", deleted.Title),
		map[string]interface{}{"event": map[string]interface{}{"id": deleted.ID, "title": deleted.Title}},
		actor.ID)
	return nil
}

func (s *service) HardDeleteEvent(ctx context.Context, eventID uint, actor *models.User) error {
	event, err := s.repo.FindEventByIDAny(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEventNotFound
		}
		return err
	}
	if err := s.resolver.Authorize(ctx, s.repo, event, actor, models.RoleOwner); err != nil {
		return err
	}

	if err := s.repo.HardDeleteEvent(ctx, eventID); err != nil {
		return err
	}
	s.invalidateEvent(ctx, eventID)
	s.log.WithFields(logrus.Fields{
		"event_id": eventID,
		"actor_id": actor.ID,
	}).Info("Event hard deleted")
	return nil
}

func (s *service) ShareEvent(ctx context.Context, eventID, targetUserID uint, role models.Role, actor *models.User) (*models.EventPermission, error) {
	var event *models.Event
	var permission *models.EventPermission
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
		ev, err := s.lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := s.resolver.Authorize(ctx, tx, ev, actor, models.RoleOwner); err != nil {
			return err
		}
		if err := validateGrantRole(role, targetUserID, ev.OwnerID); err != nil {
			return err
		}
		if _, err := tx.FindUserByID(ctx, targetUserID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return &InvalidRoleError{Role: role, Reason: "target user does not exist"}
			}
			return err
		}
		if _, err := tx.FindPermission(ctx, eventID, targetUserID); err == nil {
			return ErrDuplicatePermission
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		permission = &models.EventPermission{
			EventID: eventID,
			UserID:  targetUserID,
			Role:    role,
		}
		if err := tx.CreatePermission(ctx, permission); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return ErrDuplicatePermission
			}
			return err
		}

		priorSnapshot := ev.Snapshot()
		changes := map[string]interface{}{
			"permissions": map[string]interface{}{
				"added": map[string]interface{}{"user_id": targetUserID, "role": string(role)},
			},
		}
		description := fmt.Sprintf("Added %s permission for user %d", role, targetUserID)
		if _, err := s.ledger.Append(ctx, tx, ev, actor.ID, priorSnapshot, changes, description); err != nil {
			return err
		}
		event = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateEvent(ctx, eventID)
	s.notify(ctx, event, models.NotificationPermissionGrant,
		fmt.Sprintf("You've been given %s access to: %s", role, event.Title),
		map[string]interface{}{"event_id": event.ID, "role": string(role), "granted_by": actor.ID},
		actor.ID)
	return permission, nil
}

func (s *service) UpdatePermission(ctx context.Context, eventID, targetUserID uint, role models.Role, actor *models.User) (*models.EventPermission, error) {
	var event *models.Event
	var permission *models.EventPermission
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
		ev, err := s.lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := s.resolver.Authorize(ctx, tx, ev, actor, models.RoleOwner); err != nil {
			return err
		}
		if targetUserID == ev.OwnerID {
			return ErrProtectedOwner
		}
		if err := validateGrantRole(role, targetUserID, ev.OwnerID); err != nil {
			return err
		}

		perm, err := tx.FindPermission(ctx, eventID, targetUserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrPermissionNotFound
			}
			return err
		}

		oldRole := perm.Role
		perm.Role = role
		if err := tx.SavePermission(ctx, perm); err != nil {
			return err
		}

		priorSnapshot := ev.Snapshot()
		changes := map[string]interface{}{
			"permissions": map[string]interface{}{
				"updated": map[string]interface{}{
					"user_id":  targetUserID,
					"old_role": string(oldRole),
					"new_role": string(role),
				},
			},
		}
		description := fmt.Sprintf("Changed user %d permission from %s to %s", targetUserID, oldRole, role)
		if _, err := s.ledger.Append(ctx, tx, ev, actor.ID, priorSnapshot, changes, description); err != nil {
			return err
		}
		event = ev
		permission = perm
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateEvent(ctx, eventID)
	s.notify(ctx, event, models.NotificationPermissionUpdate,
		fmt.Sprintf("Your access to %s changed to %s", event.Title, role),
		map[string]interface{}{"event_id": event.ID, "role": string(role), "updated_by": actor.ID},
		actor.ID)
	return permission, nil
}

func (s *service) RevokePermission(ctx context.Context, eventID, targetUserID uint, actor *models.User) error {
	var event *models.Event
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
		ev, err := s.lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := s.resolver.Authorize(ctx, tx, ev, actor, models.RoleOwner); err != nil {
			return err
		}
		if targetUserID == ev.OwnerID {
			return ErrProtectedOwner
		}

		perm, err := tx.FindPermission(ctx, eventID, targetUserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrPermissionNotFound
			}
			return err
		}
		revokedRole := perm.Role
		if err := tx.DeletePermission(ctx, perm); err != nil {
			return err
		}

		priorSnapshot := ev.Snapshot()
		changes := map[string]interface{}{
			"permissions": map[string]interface{}{
				"removed": map[string]interface{}{"user_id": targetUserID, "role": string(revokedRole)},
			},
		}
		description := fmt.Sprintf("Removed %s permission for user %d", revokedRole, targetUserID)
		if _, err := s.ledger.Append(ctx, tx, ev, actor.ID, priorSnapshot, changes, description); err != nil {
			return err
		}
		event = ev
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateEvent(ctx, eventID)
	s.notify(ctx, event, models.NotificationPermissionRevoke,
		fmt.Sprintf("Your access to %s was revoked", event.Title),
		map[string]interface{}{"event_id": event.ID, "revoked_by": actor.ID},
		actor.ID)
	return nil
}

func (s *service) ListPermissions(ctx context.Context, eventID uint, user *models.User) ([]*models.EventPermission, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Authorize(ctx, s.repo, event, user, models.RoleViewer); err != nil {
		return nil, err
	}
	return s.repo.ListPermissions(ctx, eventID)
}

func (s *service) ListVersions(ctx context.Context, eventID uint, user *models.User, offset, limit int) ([]*models.EventVersion, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Authorize(ctx, s.repo, event, user, models.RoleViewer); err != nil {
		return nil, err
	}
	return s.repo.ListVersions(ctx, eventID, offset, limit)
}

func (s *service) GetVersion(ctx context.Context, eventID uint, versionNumber int, user *models.User) (*models.EventVersion, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Authorize(ctx, s.repo, event, user, models.RoleViewer); err != nil {
		return nil, err
	}
	version, err := s.repo.FindVersion(ctx, eventID, versionNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	return version, nil
}

func (s *service) DiffVersions(ctx context.Context, eventID uint, v1, v2 int, user *models.User) (*VersionDiff, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Authorize(ctx, s.repo, event, user, models.RoleViewer); err != nil {
		return nil, err
	}
	return s.ledger.Diff(ctx, s.repo, event, v1, v2)
}

func (s *service) RollbackEvent(ctx context.Context, eventID uint, versionNumber int, actor *models.User) (*models.Event, error) {
	var restored *models.Event
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
		event, err := s.lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := s.resolver.Authorize(ctx, tx, event, actor, models.RoleEditor); err != nil {
			return err
		}
		if _, err := s.ledger.Rollback(ctx, tx, event, versionNumber, actor.ID); err != nil {
			return err
		}
		restored = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateEvent(ctx, eventID)
	s.log.WithFields(logrus.Fields{
		"event_id":   eventID,
		"to_version": versionNumber,
		"actor_id":   actor.ID,
	}).Info("Event rolled back")
	return restored, nil
}

func (s *service) ListNotifications(ctx context.Context, user *models.User, unreadOnly bool) ([]*models.Notification, error) {
	return s.repo.ListNotifications(ctx, user.ID, unreadOnly)
}

func (s *service) MarkNotificationRead(ctx context.Context, notificationID uint, user *models.User) (*models.Notification, error) {
	notification, err := s.repo.FindNotification(ctx, notificationID, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	if notification.IsRead {
		return notification, nil
	}
	notification.IsRead = true
	if err := s.repo.SaveNotification(ctx, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

func (s *service) MarkAllNotificationsRead(ctx context.Context, user *models.User) (int64, error) {
	return s.repo.MarkAllNotificationsRead(ctx, user.ID)
}

func (s *service) DeleteNotification(ctx context.Context, notificationID uint, user *models.User) error {
	notification, err := s.repo.FindNotification(ctx, notificationID, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	return s.repo.DeleteNotification(ctx, notification)
}

// lockEvent loads a live event inside a transaction with a row lock so
// concurrent mutations of the same event serialize
func (s *service) lockEvent(ctx context.Context, tx repository.Repository, eventID uint) (*models.Event, error) {
	event, err := tx.FindEventByIDForUpdate(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.IsDeleted {
		return nil, ErrEventNotFound
	}
	return event, nil
}

func (s *service) notify(ctx context.Context, event *models.Event, notifType, message string, data map[string]interface{}, actorID uint) {
	if err := s.fanout.Notify(ctx, s.repo, event, notifType, message, data, actorID); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event_id": event.ID,
			"type":     notifType,
		}).Error("Failed to deliver notifications")
	}
}

func validateGrantRole(role models.Role, targetUserID, ownerID uint) error {
	if !role.Assignable() {
		return &InvalidRoleError{Role: role, Reason: "role must be VIEWER, EDITOR or OWNER"}
	}
	if role == models.RoleOwner && targetUserID != ownerID {
		return &InvalidRoleError{Role: role, Reason: "only the event owner can hold the OWNER role"}
	}
	return nil
}
