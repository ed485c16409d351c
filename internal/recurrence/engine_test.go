package recurrence

import (
	"testing"
	"time"

	"example.com/planner/services/calendar/internal/models"

	"github.com/stretchr/testify/require"
)

func makeEvent(start, end time.Time, rule string) *models.Event {
	return &models.Event{
		Title:          "Team sync",
		StartTime:      start,
		EndTime:        end,
		IsRecurring:    rule != "",
		RecurrenceRule: rule,
	}
}

func TestNormalizeAddsPrefix(t *testing.T) {
	rule, err := Normalize("FREQ=WEEKLY;COUNT=4")
	require.NoError(t, err)
	require.Equal(t, "RRULE:FREQ=WEEKLY;COUNT=4", rule)
}

func TestNormalizeKeepsExistingPrefix(t *testing.T) {
	rule, err := Normalize("RRULE:FREQ=DAILY")
	require.NoError(t, err)
	require.Equal(t, "RRULE:FREQ=DAILY", rule)
}

func TestNormalizeRejectsEmptyRule(t *testing.T) {
	_, err := Normalize("   ")
	require.Error(t, err)
	var ruleErr *RuleError
	require.ErrorAs(t, err, &ruleErr)
}

func TestNormalizeRejectsMalformedRule(t *testing.T) {
	_, err := Normalize("FREQ=NEVERLY")
	require.Error(t, err)
	var ruleErr *RuleError
	require.ErrorAs(t, err, &ruleErr)
}

func TestWeeklyCountFourExpandsToFourOccurrences(t *testing.T) {
	start := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	event := makeEvent(start, end, "RRULE:FREQ=WEEKLY;COUNT=4")

	engine := NewEngine(0)
	windowStart := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	occurrences, err := engine.Occurrences(event, windowStart, windowEnd, 0)
	require.NoError(t, err)
	require.Len(t, occurrences, 4)

	for i, occ := range occurrences {
		require.Equal(t, start.AddDate(0, 0, 7*i), occ.Start)
		require.Equal(t, time.Hour, occ.End.Sub(occ.Start))
		require.Equal(t, i == 0, occ.IsOriginal)
	}
}

func TestExpansionIsIdempotent(t *testing.T) {
	start := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	event := makeEvent(start, start.Add(time.Hour), "RRULE:FREQ=WEEKLY;COUNT=4")

	engine := NewEngine(0)
	windowStart := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	first, err := engine.Occurrences(event, windowStart, windowEnd, 0)
	require.NoError(t, err)
	second, err := engine.Occurrences(event, windowStart, windowEnd, 0)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestNonRecurringEventInsideWindow(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	event := makeEvent(start, start.Add(30*time.Minute), "")

	engine := NewEngine(0)
	occurrences, err := engine.Occurrences(event,
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), 0)
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	require.True(t, occurrences[0].IsOriginal)
	require.Equal(t, event.StartTime, occurrences[0].Start)
	require.Equal(t, event.EndTime, occurrences[0].End)
}

func TestNonRecurringEventOutsideWindow(t *testing.T) {
	start := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	event := makeEvent(start, start.Add(30*time.Minute), "")

	engine := NewEngine(0)
	occurrences, err := engine.Occurrences(event,
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), 0)
	require.NoError(t, err)
	require.Empty(t, occurrences)
}

func TestWindowBoundsAreInclusive(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	event := makeEvent(start, start.Add(time.Hour), "")

	engine := NewEngine(0)
	occurrences, err := engine.Occurrences(event, start, start, 0)
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
}

func TestUnboundedRuleCappedAtLimit(t *testing.T) {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	event := makeEvent(start, start.Add(time.Hour), "RRULE:FREQ=DAILY")

	engine := NewEngine(0)
	occurrences, err := engine.Occurrences(event, start, start.AddDate(2, 0, 0), 0)
	require.NoError(t, err)
	require.Len(t, occurrences, DefaultLimit)
}

func TestExplicitLimitOverridesDefault(t *testing.T) {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	event := makeEvent(start, start.Add(time.Hour), "RRULE:FREQ=DAILY")

	engine := NewEngine(0)
	occurrences, err := engine.Occurrences(event, start, start.AddDate(2, 0, 0), 10)
	require.NoError(t, err)
	require.Len(t, occurrences, 10)
}

func TestMalformedStoredRuleReturnsRuleError(t *testing.T) {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	event := makeEvent(start, start.Add(time.Hour), "RRULE:FREQ=BOGUS")

	engine := NewEngine(0)
	_, err := engine.Occurrences(event, start, start.AddDate(0, 1, 0), 0)
	require.Error(t, err)
	var ruleErr *RuleError
	require.ErrorAs(t, err, &ruleErr)
	require.Equal(t, "RRULE:FREQ=BOGUS", ruleErr.Rule)
}
