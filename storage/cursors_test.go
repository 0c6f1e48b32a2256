package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfind/docfind/ingest"
	dbtest "github.com/docfind/docfind/internal/testing"
)

func TestBeginRunFirstContact(t *testing.T) {
	store := NewCursorStore(dbtest.CreateTestDB(t), nil)

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	prior, err := store.BeginRun("local_fs", "/docs", start)
	require.NoError(t, err)
	assert.True(t, prior.IsZero(), "never-completed scope has no cursor")

	cursors, err := store.List()
	require.NoError(t, err)
	require.Len(t, cursors, 1)
	assert.Equal(t, "local_fs", cursors[0].Source)
	assert.Equal(t, "/docs", cursors[0].ScopeKey)
	assert.Nil(t, cursors[0].CursorUpdatedAt)
	require.NotNil(t, cursors[0].LastStartedAt)
	assert.True(t, cursors[0].LastStartedAt.Equal(start))
}

func TestFinishRunAdvancesCursor(t *testing.T) {
	store := NewCursorStore(dbtest.CreateTestDB(t), nil)

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	_, err := store.BeginRun("local_fs", "/docs", start)
	require.NoError(t, err)
	require.NoError(t, store.RecordTotal("local_fs", "/docs", 42))

	require.NoError(t, store.FinishRun("local_fs", "/docs", ingest.RunOutcome{
		EndedAt:   start.Add(time.Minute),
		AdvanceTo: &start,
		Processed: 40,
		Skipped:   1,
		Errors:    1,
	}))

	prior, err := store.BeginRun("local_fs", "/docs", start.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, prior.Equal(start), "next run resumes from the previous run's start")

	cursors, err := store.List()
	require.NoError(t, err)
	require.Len(t, cursors, 1)
	assert.Equal(t, 42, cursors[0].TotalFiles)
	assert.Equal(t, 40, cursors[0].Processed)
	assert.Equal(t, 1, cursors[0].Skipped)
	assert.Equal(t, 1, cursors[0].Errors)
}

func TestFinishRunWithoutAdvanceLeavesCursor(t *testing.T) {
	store := NewCursorStore(dbtest.CreateTestDB(t), nil)

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	_, err := store.BeginRun("local_fs", "/docs", start)
	require.NoError(t, err)
	require.NoError(t, store.FinishRun("local_fs", "/docs", ingest.RunOutcome{
		EndedAt:   start.Add(time.Minute),
		AdvanceTo: &start,
	}))

	// Cancelled second run: counters update, cursor stays at the first
	// run's start
	second := start.Add(time.Hour)
	_, err = store.BeginRun("local_fs", "/docs", second)
	require.NoError(t, err)
	require.NoError(t, store.FinishRun("local_fs", "/docs", ingest.RunOutcome{
		EndedAt:   second.Add(time.Minute),
		AdvanceTo: nil,
		Processed: 3,
	}))

	prior, err := store.BeginRun("local_fs", "/docs", second.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, prior.Equal(start), "cancelled run must not move the cursor")
}

func TestFinishRunRecordsError(t *testing.T) {
	store := NewCursorStore(dbtest.CreateTestDB(t), nil)

	start := time.Now().UTC()
	_, err := store.BeginRun("local_fs", "/docs", start)
	require.NoError(t, err)
	require.NoError(t, store.FinishRun("local_fs", "/docs", ingest.RunOutcome{
		EndedAt:      start.Add(time.Second),
		ErrorMessage: "scan root /docs inaccessible",
	}))

	cursors, err := store.List()
	require.NoError(t, err)
	require.Len(t, cursors, 1)
	assert.Equal(t, "scan root /docs inaccessible", cursors[0].LastErrorMessage)

	// The next run clears the previous failure state
	_, err = store.BeginRun("local_fs", "/docs", start.Add(time.Minute))
	require.NoError(t, err)
	cursors, err = store.List()
	require.NoError(t, err)
	require.Len(t, cursors, 1)
	assert.Empty(t, cursors[0].LastErrorMessage)
	assert.Nil(t, cursors[0].LastEndedAt)
}

func TestCursorsAreScopedPerSourceAndPath(t *testing.T) {
	store := NewCursorStore(dbtest.CreateTestDB(t), nil)

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	for _, scope := range []struct{ source, key string }{
		{"local_fs", "/docs"},
		{"local_fs", "/notes"},
		{"collection_arxiv", "/docs"},
	} {
		_, err := store.BeginRun(scope.source, scope.key, start)
		require.NoError(t, err)
	}
	require.NoError(t, store.FinishRun("local_fs", "/docs", ingest.RunOutcome{
		EndedAt: start, AdvanceTo: &start,
	}))

	prior, err := store.BeginRun("local_fs", "/notes", start.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, prior.IsZero(), "sibling scope must not inherit the cursor")

	cursors, err := store.List()
	require.NoError(t, err)
	assert.Len(t, cursors, 3)
}
