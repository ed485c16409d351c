package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"example.com/planner/services/calendar/internal/messaging"
	"example.com/planner/services/calendar/internal/models"
	"example.com/planner/services/calendar/internal/repository"
)

// Broadcaster pushes a message to every live connection of one user
type Broadcaster interface {
	PushToUser(userID uint, message interface{})
}

// Fanout delivers a notification for an event mutation to every interested
// user. The persisted rows are the source of truth; live pushes and the
// change feed are best effort and never fail the calling operation.
type Fanout struct {
	hub Broadcaster
	bus messaging.ServiceBusClient
	log *logrus.Logger
}

func NewFanout(hub Broadcaster, bus messaging.ServiceBusClient, log *logrus.Logger) *Fanout {
	return &Fanout{hub: hub, bus: bus, log: log}
}

type pushEnvelope struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// Notify persists one notification per recipient and pushes each to the
// recipient's live connections. Recipients are the event owner plus every
// user holding a permission on the event, minus the acting user.
func (f *Fanout) Notify(ctx context.Context, r repository.Repository, event *models.Event, notifType, message string, data map[string]interface{}, actorID uint) error {
	recipients, err := f.recipients(ctx, r, event, actorID)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	batch := make([]*models.Notification, 0, len(recipients))
	for _, userID := range recipients {
		batch = append(batch, &models.Notification{
			UserID:  userID,
			EventID: event.ID,
			Type:    notifType,
			Message: message,
			Data:    datatypes.JSONMap(data),
		})
	}
	if err := r.CreateNotificationBatch(ctx, batch); err != nil {
		return fmt.Errorf("persisting notifications: %w", err)
	}

	for _, n := range batch {
		f.hub.PushToUser(n.UserID, pushEnvelope{
			Type: "notification",
			Data: map[string]interface{}{
				"id":         n.ID,
				"event_id":   n.EventID,
				"type":       n.Type,
				"message":    n.Message,
				"data":       map[string]interface{}(n.Data),
				"created_at": models.SerializeTime(n.CreatedAt),
			},
		})
	}

	f.publish(ctx, event, notifType, data)
	return nil
}

func (f *Fanout) recipients(ctx context.Context, r repository.Repository, event *models.Event, actorID uint) ([]uint, error) {
	permissions, err := r.ListPermissions(ctx, event.ID)
	if err != nil {
		return nil, err
	}

	seen := map[uint]struct{}{event.OwnerID: {}}
	ids := []uint{event.OwnerID}
	for _, perm := range permissions {
		if _, dup := seen[perm.UserID]; dup {
			continue
		}
		seen[perm.UserID] = struct{}{}
		ids = append(ids, perm.UserID)
	}

	filtered := ids[:0]
	for _, id := range ids {
		if id != actorID {
			filtered = append(filtered, id)
		}
	}
	return filtered, nil
}

// publish mirrors the notification onto the service bus change feed
func (f *Fanout) publish(ctx context.Context, event *models.Event, notifType string, data map[string]interface{}) {
	payload := map[string]interface{}{
		"event_id": event.ID,
		"type":     notifType,
		"data":     data,
	}
	sessionID := fmt.Sprintf("event-%d", event.ID)
	if err := f.bus.SendMessage(ctx, payload, sessionID); err != nil {
		f.log.WithError(err).WithField("event_id", event.ID).Warn("Failed to publish change feed message")
	}
}
