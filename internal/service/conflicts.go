package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/planner/services/calendar/internal/models"
	"example.com/planner/services/calendar/internal/recurrence"
	"example.com/planner/services/calendar/internal/repository"
)

// ConflictDetector finds events whose time ranges overlap a candidate range.
// Overlap is half-open: [start, end) ranges conflict when A.start < B.end and
// A.end > B.start, so back-to-back events do not collide.
type ConflictDetector struct {
	engine *recurrence.Engine
	log    *logrus.Logger
}

func NewConflictDetector(engine *recurrence.Engine, log *logrus.Logger) *ConflictDetector {
	return &ConflictDetector{engine: engine, log: log}
}

// FindConflicts returns the non-deleted events that overlap [start, end).
// Candidates are narrowed in the database on their anchor range, then
// recurring candidates are expanded so individual occurrences are tested.
// An event with a malformed recurrence rule contributes no occurrences and
// therefore never conflicts.
func (d *ConflictDetector) FindConflicts(ctx context.Context, r repository.Repository, start, end time.Time, excludeEventID uint) ([]*models.Event, error) {
	candidates, err := r.FindConflictCandidates(ctx, start, end, excludeEventID)
	if err != nil {
		return nil, err
	}

	var conflicts []*models.Event
	for _, candidate := range candidates {
		if !candidate.IsRecurring {
			conflicts = append(conflicts, candidate)
			continue
		}

		occurrences, err := d.engine.Occurrences(candidate, start, end, 0)
		if err != nil {
			var ruleErr *recurrence.RuleError
			if errors.As(err, &ruleErr) {
				d.log.WithFields(logrus.Fields{
					"event_id": candidate.ID,
					"rule":     ruleErr.Rule,
				}).Warn("Skipping event with malformed recurrence rule in conflict check")
				continue
			}
			return nil, err
		}
		for _, occ := range occurrences {
			if occ.Start.Before(end) && occ.End.After(start) {
				conflicts = append(conflicts, candidate)
				break
			}
		}
	}
	return conflicts, nil
}
