package service

import (
	"time"

	"github.com/samber/mo"

	"example.com/planner/services/calendar/internal/models"
)

// EventInput carries the fields of a new event
type EventInput struct {
	Title          string
	Description    string
	Location       string
	StartTime      time.Time
	EndTime        time.Time
	IsRecurring    bool
	RecurrenceRule string
}

// EventPatch is a partial update. Each field is either absent (left alone)
// or present (written, even when the new value is the zero value).
type EventPatch struct {
	Title          mo.Option[string]
	Description    mo.Option[string]
	Location       mo.Option[string]
	StartTime      mo.Option[time.Time]
	EndTime        mo.Option[time.Time]
	IsRecurring    mo.Option[bool]
	RecurrenceRule mo.Option[string]
}

// IsEmpty reports whether no field is present
func (p EventPatch) IsEmpty() bool {
	return p.Title.IsAbsent() && p.Description.IsAbsent() && p.Location.IsAbsent() &&
		p.StartTime.IsAbsent() && p.EndTime.IsAbsent() && p.IsRecurring.IsAbsent() &&
		p.RecurrenceRule.IsAbsent()
}

// Apply merges the present fields into the event and returns the change map,
// one {old, new} entry per field whose value actually changed. Fields set to
// their current value produce no entry.
func (p EventPatch) Apply(event *models.Event) map[string]interface{} {
	changes := make(map[string]interface{})

	if v, ok := p.Title.Get(); ok && v != event.Title {
		changes["title"] = changeEntry(event.Title, v)
		event.Title = v
	}
	if v, ok := p.Description.Get(); ok && v != event.Description {
		changes["description"] = changeEntry(event.Description, v)
		event.Description = v
	}
	if v, ok := p.Location.Get(); ok && v != event.Location {
		changes["location"] = changeEntry(event.Location, v)
		event.Location = v
	}
	if v, ok := p.StartTime.Get(); ok && !v.Equal(event.StartTime) {
		changes["start_time"] = changeEntry(models.SerializeTime(event.StartTime), models.SerializeTime(v))
		event.StartTime = v
	}
	if v, ok := p.EndTime.Get(); ok && !v.Equal(event.EndTime) {
		changes["end_time"] = changeEntry(models.SerializeTime(event.EndTime), models.SerializeTime(v))
		event.EndTime = v
	}
	if v, ok := p.IsRecurring.Get(); ok && v != event.IsRecurring {
		changes["is_recurring"] = changeEntry(event.IsRecurring, v)
		event.IsRecurring = v
	}
	if v, ok := p.RecurrenceRule.Get(); ok && v != event.RecurrenceRule {
		changes["recurrence_rule"] = changeEntry(event.RecurrenceRule, v)
		event.RecurrenceRule = v
	}

	return changes
}

func changeEntry(old, new interface{}) map[string]interface{} {
	return map[string]interface{}{"old": old, "new": new}
}
