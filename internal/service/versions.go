package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"example.com/planner/services/calendar/internal/models"
	"example.com/planner/services/calendar/internal/repository"
)

// Fields never carried across versions: row identity and bookkeeping
var versionSkipFields = map[string]struct{}{
	"id":              {},
	"current_version": {},
	"created_at":      {},
	"updated_at":      {},
}

// VersionLedger appends and reads the per-event version history. Every
// mutation appends exactly one row, so version numbers are gapless from 1.
type VersionLedger struct {
	log *logrus.Logger
}

func NewVersionLedger(log *logrus.Logger) *VersionLedger {
	return &VersionLedger{log: log}
}

// VersionDiff summarizes what changed between two versions of one event
type VersionDiff struct {
	EventID   uint                   `json:"event_id"`
	Version1  int                    `json:"version1"`
	Version2  int                    `json:"version2"`
	Changes   map[string]interface{} `json:"changes"`
	ChangedBy uint                   `json:"changed_by"`
	ChangedAt time.Time              `json:"changed_at"`
}

// AppendInitial writes version 1 for a freshly created event. The event row
// must already be persisted so the snapshot carries its id.
func (l *VersionLedger) AppendInitial(ctx context.Context, r repository.Repository, event *models.Event, actorID uint) (*models.EventVersion, error) {
	version := &models.EventVersion{
		EventID:           event.ID,
		VersionNumber:     1,
		EventData:         datatypes.JSONMap(event.Snapshot()),
		Changes:           datatypes.JSONMap{},
		ChangedByID:       actorID,
		ChangeDescription: "Event created",
	}
	if err := r.CreateVersion(ctx, version); err != nil {
		return nil, fmt.Errorf("creating initial version: %w", err)
	}
	return version, nil
}

// Append records one mutation: it bumps the event's current version by one,
// saves the event, and writes a version row holding the pre-mutation snapshot
// together with the change map. Call inside the mutation's transaction with
// the event row locked.
func (l *VersionLedger) Append(ctx context.Context, r repository.Repository, event *models.Event, actorID uint, priorSnapshot map[string]interface{}, changes map[string]interface{}, description string) (*models.EventVersion, error) {
	event.CurrentVersion++
	if err := r.SaveEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("saving event at version %d: %w", event.CurrentVersion, err)
	}

	version := &models.EventVersion{
		EventID:           event.ID,
		VersionNumber:     event.CurrentVersion,
		EventData:         datatypes.JSONMap(priorSnapshot),
		Changes:           datatypes.JSONMap(changes),
		ChangedByID:       actorID,
		ChangeDescription: description,
	}
	if err := r.CreateVersion(ctx, version); err != nil {
		return nil, fmt.Errorf("creating version %d: %w", event.CurrentVersion, err)
	}
	return version, nil
}

// Diff reports the changes between two version numbers of an event.
// Walking forward (v2 > v1) returns v2's stored change map verbatim. Walking
// backward inverts the newer version's stored changes as a best-effort
// reverse diff. When the stored map is empty the snapshots are compared
// field by field instead.
func (l *VersionLedger) Diff(ctx context.Context, r repository.Repository, event *models.Event, v1Num, v2Num int) (*VersionDiff, error) {
	v1, err := l.findVersion(ctx, r, event.ID, v1Num)
	if err != nil {
		return nil, err
	}
	v2, err := l.findVersion(ctx, r, event.ID, v2Num)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]interface{})
	if v2Num > v1Num {
		for field, entry := range v2.Changes {
			changes[field] = entry
		}
	} else if v2Num < v1Num {
		for field, entry := range v1.Changes {
			changes[field] = invertChange(entry)
		}
	}

	if len(changes) == 0 && v1Num != v2Num {
		changes = compareSnapshots(v1.EventData, v2.EventData)
	}

	return &VersionDiff{
		EventID:   event.ID,
		Version1:  v1Num,
		Version2:  v2Num,
		Changes:   changes,
		ChangedBy: v2.ChangedByID,
		ChangedAt: v2.CreatedAt,
	}, nil
}

// Rollback restores the event to the state captured by the target version's
// snapshot and appends a new version describing the restoration. Rolling
// back never rewinds the version counter.
func (l *VersionLedger) Rollback(ctx context.Context, r repository.Repository, event *models.Event, targetNum int, actorID uint) (*models.EventVersion, error) {
	if targetNum >= event.CurrentVersion {
		return nil, ErrInvalidRollback
	}
	target, err := l.findVersion(ctx, r, event.ID, targetNum)
	if err != nil {
		return nil, err
	}

	fromVersion := event.CurrentVersion
	priorSnapshot := event.Snapshot()

	rollbackChanges := make(map[string]interface{})
	for field, value := range target.EventData {
		if _, skip := versionSkipFields[field]; skip {
			continue
		}
		if !applySnapshotField(event, field, value) {
			continue
		}
		if old, ok := priorSnapshot[field]; ok && !snapshotValuesEqual(old, value) {
			rollbackChanges[field] = changeEntry(old, value)
		}
	}

	changes := map[string]interface{}{
		"rollback": map[string]interface{}{
			"from_version": fromVersion,
			"to_version":   targetNum,
			"changes":      rollbackChanges,
		},
	}
	description := fmt.Sprintf("Rolled back to version %d", targetNum)
	return l.Append(ctx, r, event, actorID, priorSnapshot, changes, description)
}

func (l *VersionLedger) findVersion(ctx context.Context, r repository.Repository, eventID uint, number int) (*models.EventVersion, error) {
	version, err := r.FindVersion(ctx, eventID, number)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	return version, nil
}

// invertChange swaps the old and new sides of a stored change entry.
// Entries that do not carry the {old, new} shape pass through unchanged.
func invertChange(entry interface{}) interface{} {
	m, ok := entry.(map[string]interface{})
	if !ok {
		return entry
	}
	old, hasOld := m["old"]
	new_, hasNew := m["new"]
	if !hasOld || !hasNew {
		return entry
	}
	return map[string]interface{}{"old": new_, "new": old}
}

func compareSnapshots(from, to map[string]interface{}) map[string]interface{} {
	changes := make(map[string]interface{})
	for field, toValue := range to {
		if _, skip := versionSkipFields[field]; skip {
			continue
		}
		fromValue, ok := from[field]
		if !ok || !snapshotValuesEqual(fromValue, toValue) {
			changes[field] = changeEntry(fromValue, toValue)
		}
	}
	return changes
}

// applySnapshotField writes a single snapshot value onto the event. Values
// arrive either as the native Go types placed by Snapshot or as decoded JSON
// (float64 numbers, string datetimes), so both shapes are accepted.
func applySnapshotField(event *models.Event, field string, value interface{}) bool {
	switch field {
	case "title":
		if s, ok := value.(string); ok {
			event.Title = s
			return true
		}
	case "description":
		if s, ok := value.(string); ok {
			event.Description = s
			return true
		}
	case "location":
		if s, ok := value.(string); ok {
			event.Location = s
			return true
		}
	case "start_time":
		if t, ok := snapshotTime(value); ok {
			event.StartTime = t
			return true
		}
	case "end_time":
		if t, ok := snapshotTime(value); ok {
			event.EndTime = t
			return true
		}
	case "is_recurring":
		if b, ok := value.(bool); ok {
			event.IsRecurring = b
			return true
		}
	case "recurrence_rule":
		if s, ok := value.(string); ok {
			event.RecurrenceRule = s
			return true
		}
	case "is_deleted":
		if b, ok := value.(bool); ok {
			event.IsDeleted = b
			return true
		}
	case "owner_id":
		if id, ok := snapshotUint(value); ok {
			event.OwnerID = id
			return true
		}
	}
	return false
}

func snapshotTime(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		t, err := models.ParseSnapshotTime(v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

func snapshotUint(value interface{}) (uint, bool) {
	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case float64:
		return uint(v), true
	}
	return 0, false
}

func snapshotValuesEqual(a, b interface{}) bool {
	if ta, ok := snapshotTime(a); ok {
		if tb, ok := snapshotTime(b); ok {
			return ta.Equal(tb)
		}
	}
	if ua, ok := snapshotUint(a); ok {
		if ub, ok := snapshotUint(b); ok {
			return ua == ub
		}
	}
	return a == b
}
