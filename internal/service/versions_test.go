package service

import (
	"context"
	"testing"

	"example.com/planner/services/calendar/internal/models"

	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestDiffForwardUsesStoredChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, err := env.svc.CreateEvent(ctx, basicInput("First", at(10, 0), at(11, 0)), env.owner, true)
	require.NoError(t, err)
	_, err = env.svc.UpdateEvent(ctx, event.ID, EventPatch{Title: mo.Some("Second")}, env.owner, true)
	require.NoError(t, err)

	diff, err := env.svc.DiffVersions(ctx, event.ID, 1, 2, env.owner)
	require.NoError(t, err)
	require.Equal(t, 1, diff.Version1)
	require.Equal(t, 2, diff.Version2)

	entry := diff.Changes["title"].(map[string]interface{})
	require.Equal(t, "First", entry["old"])
	require.Equal(t, "Second", entry["new"])
	require.Equal(t, env.owner.ID, diff.ChangedBy)
}

func TestDiffBackwardInvertsChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, err := env.svc.CreateEvent(ctx, basicInput("First", at(10, 0), at(11, 0)), env.owner, true)
	require.NoError(t, err)
	_, err = env.svc.UpdateEvent(ctx, event.ID, EventPatch{Title: mo.Some("Second")}, env.owner, true)
	require.NoError(t, err)

	diff, err := env.svc.DiffVersions(ctx, event.ID, 2, 1, env.owner)
	require.NoError(t, err)

	entry := diff.Changes["title"].(map[string]interface{})
	require.Equal(t, "Second", entry["old"])
	require.Equal(t, "First", entry["new"])
}

func TestDiffAcrossGapUsesNewerStoredChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, err := env.svc.CreateEvent(ctx, basicInput("First", at(10, 0), at(11, 0)), env.owner, true)
	require.NoError(t, err)
	_, err = env.svc.UpdateEvent(ctx, event.ID, EventPatch{Title: mo.Some("Second")}, env.owner, true)
	require.NoError(t, err)
	_, err = env.svc.UpdateEvent(ctx, event.ID, EventPatch{Title: mo.Some("Third")}, env.owner, true)
	require.NoError(t, err)

	// A forward diff over a gap reports the newer version's stored changes
	// verbatim, not an accumulation of the versions in between
	diff, err := env.svc.DiffVersions(ctx, event.ID, 1, 3, env.owner)
	require.NoError(t, err)
	require.Equal(t, 1, diff.Version1)
	require.Equal(t, 3, diff.Version2)

	entry := diff.Changes["title"].(map[string]interface{})
	require.Equal(t, "Second", entry["old"])
	require.Equal(t, "Third", entry["new"])
}

func TestDiffFallsBackToSnapshotComparison(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	ledger := NewVersionLedger(log)

	event := &models.Event{Title: "Second", StartTime: at(10, 0), EndTime: at(11, 0), OwnerID: 1, CurrentVersion: 2}
	require.NoError(t, repo.CreateEvent(ctx, event))

	older := event.Snapshot()
	older["title"] = "First"
	require.NoError(t, repo.CreateVersion(ctx, &models.EventVersion{
		EventID: event.ID, VersionNumber: 1, EventData: datatypes.JSONMap(older), Changes: datatypes.JSONMap{},
	}))
	require.NoError(t, repo.CreateVersion(ctx, &models.EventVersion{
		EventID: event.ID, VersionNumber: 2, EventData: datatypes.JSONMap(event.Snapshot()), Changes: datatypes.JSONMap{},
	}))

	// Neither version carries a stored change map, so the snapshots are
	// compared field by field
	diff, err := ledger.Diff(ctx, repo, event, 1, 2)
	require.NoError(t, err)

	entry := diff.Changes["title"].(map[string]interface{})
	require.Equal(t, "First", entry["old"])
	require.Equal(t, "Second", entry["new"])
	require.NotContains(t, diff.Changes, "start_time")
	require.NotContains(t, diff.Changes, "current_version")
}

func TestDiffUnknownVersionFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, err := env.svc.CreateEvent(ctx, basicInput("Only", at(10, 0), at(11, 0)), env.owner, true)
	require.NoError(t, err)

	_, err = env.svc.DiffVersions(ctx, event.ID, 1, 5, env.owner)
	require.ErrorIs(t, err, ErrVersionNotFound)
}

func TestRollbackRestoresSnapshotAndAppendsVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, err := env.svc.CreateEvent(ctx, basicInput("Original", at(10, 0), at(11, 0)), env.owner, true)
	require.NoError(t, err)
	_, err = env.svc.UpdateEvent(ctx, event.ID, EventPatch{
		Title:     mo.Some("Renamed"),
		StartTime: mo.Some(at(14, 0)),
		EndTime:   mo.Some(at(15, 0)),
	}, env.owner, true)
	require.NoError(t, err)

	restored, err := env.svc.RollbackEvent(ctx, event.ID, 1, env.owner)
	require.NoError(t, err)
	require.Equal(t, "Original", restored.Title)
	require.True(t, restored.StartTime.Equal(at(10, 0)))
	require.True(t, restored.EndTime.Equal(at(11, 0)))
	// Rolling back moves forward, never rewinds the counter
	require.Equal(t, 3, restored.CurrentVersion)
}

func TestRollbackRecordsReversalChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, err := env.svc.CreateEvent(ctx, basicInput("Original", at(10, 0), at(11, 0)), env.owner, true)
	require.NoError(t, err)
	_, err = env.svc.UpdateEvent(ctx, event.ID, EventPatch{Title: mo.Some("Renamed")}, env.owner, true)
	require.NoError(t, err)
	_, err = env.svc.RollbackEvent(ctx, event.ID, 1, env.owner)
	require.NoError(t, err)

	version, err := env.repo.FindVersion(ctx, event.ID, 3)
	require.NoError(t, err)

	rollback := version.Changes["rollback"].(map[string]interface{})
	require.Equal(t, 2, rollback["from_version"])
	require.Equal(t, 1, rollback["to_version"])

	changes := rollback["changes"].(map[string]interface{})
	entry := changes["title"].(map[string]interface{})
	require.Equal(t, "Renamed", entry["old"])
	require.Equal(t, "Original", entry["new"])
}

func TestRollbackToCurrentOrFutureVersionFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, err := env.svc.CreateEvent(ctx, basicInput("Pinned", at(10, 0), at(11, 0)), env.owner, true)
	require.NoError(t, err)

	_, err = env.svc.RollbackEvent(ctx, event.ID, 1, env.owner)
	require.ErrorIs(t, err, ErrInvalidRollback)
	_, err = env.svc.RollbackEvent(ctx, event.ID, 7, env.owner)
	require.ErrorIs(t, err, ErrInvalidRollback)
}

func TestRollbackRequiresEditor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, err := env.svc.CreateEvent(ctx, basicInput("Guarded", at(10, 0), at(11, 0)), env.owner, true)
	require.NoError(t, err)
	_, err = env.svc.UpdateEvent(ctx, event.ID, EventPatch{Title: mo.Some("Changed")}, env.owner, true)
	require.NoError(t, err)
	_, err = env.svc.ShareEvent(ctx, event.ID, env.peer.ID, models.RoleViewer, env.owner)
	require.NoError(t, err)

	_, err = env.svc.RollbackEvent(ctx, event.ID, 1, env.peer)
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestRollbackRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, err := env.svc.CreateEvent(ctx, basicInput("A", at(10, 0), at(11, 0)), env.owner, true)
	require.NoError(t, err)
	_, err = env.svc.UpdateEvent(ctx, event.ID, EventPatch{Title: mo.Some("B")}, env.owner, true)
	require.NoError(t, err)

	// v3 restores A, v4 restores B again through v2's snapshot... but v2's
	// snapshot is pre-mutation state, so it also carries A
	restored, err := env.svc.RollbackEvent(ctx, event.ID, 1, env.owner)
	require.NoError(t, err)
	require.Equal(t, "A", restored.Title)

	versions, err := env.svc.ListVersions(ctx, event.ID, env.owner, 0, 0)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	require.Equal(t, 3, versions[0].VersionNumber)
}

func TestVersionListingIsNewestFirstAndPaginated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, err := env.svc.CreateEvent(ctx, basicInput("Busy", at(10, 0), at(11, 0)), env.owner, true)
	require.NoError(t, err)
	for _, title := range []string{"v2", "v3", "v4", "v5"} {
		_, err = env.svc.UpdateEvent(ctx, event.ID, EventPatch{Title: mo.Some(title)}, env.owner, true)
		require.NoError(t, err)
	}

	page, err := env.svc.ListVersions(ctx, event.ID, env.owner, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, 4, page[0].VersionNumber)
	require.Equal(t, 3, page[1].VersionNumber)
}

func TestGetVersionRequiresViewer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event, err := env.svc.CreateEvent(ctx, basicInput("Private", at(10, 0), at(11, 0)), env.owner, true)
	require.NoError(t, err)

	_, err = env.svc.GetVersion(ctx, event.ID, 1, env.outsider)
	require.ErrorIs(t, err, ErrPermissionDenied)

	version, err := env.svc.GetVersion(ctx, event.ID, 1, env.owner)
	require.NoError(t, err)
	require.Equal(t, 1, version.VersionNumber)
}
