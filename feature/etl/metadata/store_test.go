package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sync_metadata.json")
	return NewStore(path, zap.NewNop()), path
}

func TestStore_Roundtrip(t *testing.T) {
	store, path := newTestStore(t)

	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdateSyncTime("assessment_working", "job-1", ts))
	require.NoError(t, store.UpdateRecordCounts("assessment_working", 10, 2))

	// A fresh store loading the same file sees the persisted state.
	reloaded := NewStore(path, zap.NewNop())
	assert.True(t, reloaded.LastSyncTime("assessment_working").Equal(ts))

	stats := reloaded.Statistics()
	require.Len(t, stats, 1)
	assert.Equal(t, "assessment_working", stats[0].TableName)
	assert.Equal(t, "job-1", stats[0].LastJobID)
	assert.Equal(t, int64(10), stats[0].InsertedCount)
	assert.Equal(t, int64(2), stats[0].UpdatedCount)
}

func TestStore_NeverSynced(t *testing.T) {
	store, _ := newTestStore(t)
	assert.True(t, store.LastSyncTime("unknown_table").IsZero())
}

func TestStore_MissingFileIsLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	path := filepath.Join(t.TempDir(), "does_not_exist.json")

	store := NewStore(path, zap.New(core))
	assert.True(t, store.LastSyncTime("assessment_stats").IsZero())

	// A misconfigured metadata path silently forcing full loads would be
	// hard to diagnose; the missing file must leave a trace.
	entries := logs.FilterMessage("Sync metadata file missing, treating all tables as never synced").All()
	require.Len(t, entries, 1)
	assert.Equal(t, path, entries[0].ContextMap()["path"])
}

func TestStore_CorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync_metadata.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	// Must not panic or error; all tables report never synced.
	store := NewStore(path, zap.NewNop())
	assert.True(t, store.LastSyncTime("assessment_stats").IsZero())
	assert.Empty(t, store.Statistics())

	// And the store must be writable again afterwards.
	assert.NoError(t, store.UpdateSyncTime("assessment_stats", "job-1", time.Now()))
}

func TestStore_WatermarkMonotonic(t *testing.T) {
	store, _ := newTestStore(t)

	newer := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	older := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpdateSyncTime("t", "job-1", newer))
	require.NoError(t, store.UpdateSyncTime("t", "job-2", older))

	// The older timestamp must not win.
	assert.True(t, store.LastSyncTime("t").Equal(newer))

	stats := store.Statistics()
	require.Len(t, stats, 1)
	assert.Equal(t, "job-1", stats[0].LastJobID)
}

func TestStore_CountsAccumulate(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.UpdateRecordCounts("t", 5, 1))
	require.NoError(t, store.UpdateRecordCounts("t", 3, 2))

	stats := store.Statistics()
	require.Len(t, stats, 1)
	assert.Equal(t, int64(8), stats[0].InsertedCount)
	assert.Equal(t, int64(3), stats[0].UpdatedCount)
}

func TestStore_AtomicPersist(t *testing.T) {
	store, path := newTestStore(t)
	require.NoError(t, store.UpdateSyncTime("t", "job-1", time.Now()))

	// No temp files may survive a successful persist.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(path), entries[0].Name())
}

func TestStore_StatisticsSorted(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.UpdateRecordCounts("zeta", 1, 0))
	require.NoError(t, store.UpdateRecordCounts("alpha", 1, 0))

	stats := store.Statistics()
	require.Len(t, stats, 2)
	assert.Equal(t, "alpha", stats[0].TableName)
	assert.Equal(t, "zeta", stats[1].TableName)
}
