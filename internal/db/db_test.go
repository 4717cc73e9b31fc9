package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/skcf/internal/geom"
	"github.com/banshee-data/skcf/internal/monitoring"
	"github.com/banshee-data/skcf/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(v float64) *float64 { return &v }

func TestNewDBMigratesToLatest(t *testing.T) {
	db := setupTestDB(t)
	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Reopening an up-to-date database is a no-op.
	require.NoError(t, db.MigrateUp())
}

func TestMigrateDown(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.MigrateDown())
	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	var n int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'tracker_frames'`).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, db.MigrateUp())
}

func TestInMemory(t *testing.T) {
	db, err := NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()
	_, err = db.CreateRun("KCF_G_G", "static", "")
	assert.NoError(t, err)
}

func TestRunLifecycle(t *testing.T) {
	db := setupTestDB(t)

	id, err := db.CreateRun("KCF_G_FHOG_S", "grow", `{"padding":1.5}`)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, err := db.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, "KCF_G_FHOG_S", run.Method)
	assert.Equal(t, "grow", run.Source)
	assert.Equal(t, `{"padding":1.5}`, run.ConfigJSON)
	assert.Nil(t, run.CompletedAt)
	assert.Nil(t, run.MeanAccuracy)

	frames := []Frame{
		{Index: 0, Area: geom.Quad{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}, Accuracy: ptr(1), Delta: ptr(0)},
		{Index: 1, Area: geom.Quad{{X: 1, Y: 0.5}, {X: 11, Y: 0.5}, {X: 11, Y: 10.5}, {X: 1, Y: 10.5}}},
	}
	require.NoError(t, db.RecordFrames(id, frames))

	got, err := db.RunFrames(id)
	require.NoError(t, err)
	if diff := cmp.Diff(frames, got); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, db.CompleteRun(id, RunSummary{FrameCount: 2, MeanAccuracy: ptr(0.9), MeanFrameMs: ptr(3.5)}))
	run, err = db.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, 2, run.FrameCount)
	require.NotNil(t, run.MeanAccuracy)
	assert.Equal(t, 0.9, *run.MeanAccuracy)
	assert.Nil(t, run.MeanDelta)
	require.NotNil(t, run.CompletedAt)
	assert.False(t, run.CompletedAt.Before(run.CreatedAt))

	require.NoError(t, db.DeleteRun(id))
	_, err = db.GetRun(id)
	assert.True(t, errors.Is(err, ErrRunNotFound))
	frames, err = db.RunFrames(id)
	require.NoError(t, err)
	assert.Empty(t, frames, "frames should cascade")
}

func TestRunNotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.GetRun("missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))
	assert.True(t, errors.Is(db.CompleteRun("missing", RunSummary{}), ErrRunNotFound))
	assert.True(t, errors.Is(db.DeleteRun("missing"), ErrRunNotFound))
}

func TestRecordFramesRejectsUnknownRun(t *testing.T) {
	db := setupTestDB(t)
	err := db.RecordFrames("missing", []Frame{{Index: 0}})
	assert.Error(t, err)
}

func TestRecordFramesIsAtomic(t *testing.T) {
	db := setupTestDB(t)
	id, err := db.CreateRun("DCF_G", "static", "")
	require.NoError(t, err)

	err = db.RecordFrames(id, []Frame{{Index: 0}, {Index: 1}, {Index: 1}})
	require.Error(t, err)
	frames, err := db.RunFrames(id)
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestListRuns(t *testing.T) {
	db := setupTestDB(t)
	clock := timeutil.NewMockClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	db.SetClock(clock)
	var ids []string
	for _, m := range []string{"KCF_G_G", "DCF_G", "KCF_G_G"} {
		id, err := db.CreateRun(m, "static", "")
		require.NoError(t, err)
		ids = append(ids, id)
		clock.Advance(time.Second)
	}

	all, err := db.ListRuns("", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, int64(1714564800), all[2].CreatedAt.Unix())

	kcf, err := db.ListRuns("KCF_G_G", 10)
	require.NoError(t, err)
	assert.Len(t, kcf, 2)

	one, err := db.ListRuns("", 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}
