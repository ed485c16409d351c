package recurrence

import (
	"fmt"
	"strings"
	"time"

	"example.com/planner/services/calendar/internal/models"

	"github.com/teambition/rrule-go"
)

// DefaultLimit caps occurrence expansion for unbounded rules
const DefaultLimit = 100

// RulePrefix is the marker stored rules always carry
const RulePrefix = "RRULE:"

// RuleError reports an RFC 5545 RRULE that could not be parsed
type RuleError struct {
	Rule string
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("invalid recurrence rule %q: %v", e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// Occurrence is a single concrete instance of an event within a query window
type Occurrence struct {
	Start      time.Time `json:"start_time"`
	End        time.Time `json:"end_time"`
	IsOriginal bool      `json:"is_original"`
}

// Engine expands recurrence rules into bounded occurrence windows. Expansion
// is a pure function of its inputs: calling it twice with the same arguments
// yields identical sequences.
type Engine struct {
	limit int
}

// NewEngine creates an engine with the given expansion cap; values <= 0 fall
// back to DefaultLimit.
func NewEngine(limit int) *Engine {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Engine{limit: limit}
}

// Normalize validates an incoming recurrence pattern and returns the form it
// is stored in: prefixed with "RRULE:" and guaranteed to parse. Validation
// happens eagerly here so stored rules are always well-formed.
func Normalize(pattern string) (string, error) {
	trimmed := strings.TrimSpace(pattern)
	if trimmed == "" {
		return "", &RuleError{Rule: pattern, Err: fmt.Errorf("empty rule")}
	}
	if !strings.HasPrefix(strings.ToUpper(trimmed), RulePrefix) {
		trimmed = RulePrefix + trimmed
	}
	if _, err := rrule.StrToRRule(strings.TrimPrefix(trimmed, RulePrefix)); err != nil {
		return "", &RuleError{Rule: pattern, Err: err}
	}
	return trimmed, nil
}

// Occurrences enumerates the event's concrete occurrences intersecting the
// inclusive window [windowStart, windowEnd], ascending by start time. A
// non-recurring event yields a single occurrence iff its start falls within
// the window. Recurring expansion is anchored at the event's original start
// and capped at limit (or the engine default when limit <= 0).
func (e *Engine) Occurrences(event *models.Event, windowStart, windowEnd time.Time, limit int) ([]Occurrence, error) {
	if limit <= 0 {
		limit = e.limit
	}

	if !event.IsRecurring || event.RecurrenceRule == "" {
		if !event.StartTime.Before(windowStart) && !event.StartTime.After(windowEnd) {
			return []Occurrence{{
				Start:      event.StartTime,
				End:        event.EndTime,
				IsOriginal: true,
			}}, nil
		}
		return nil, nil
	}

	rule := strings.TrimPrefix(event.RecurrenceRule, RulePrefix)
	dtstart := event.StartTime.UTC().Format("20060102T150405Z")
	set, err := rrule.StrToRRuleSet(fmt.Sprintf("DTSTART:%s\nRRULE:%s", dtstart, rule))
	if err != nil {
		return nil, &RuleError{Rule: event.RecurrenceRule, Err: err}
	}

	duration := event.Duration()
	starts := set.Between(windowStart, windowEnd, true)

	occurrences := make([]Occurrence, 0, len(starts))
	for _, start := range starts {
		if len(occurrences) >= limit {
			break
		}
		occurrences = append(occurrences, Occurrence{
			Start:      start,
			End:        start.Add(duration),
			IsOriginal: start.Equal(event.StartTime),
		})
	}
	return occurrences, nil
}
