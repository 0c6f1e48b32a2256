package storage

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfind/docfind/ingest"
	dbtest "github.com/docfind/docfind/internal/testing"
)

func upsertFor(path, name, content string) ingest.DocumentUpsert {
	return ingest.DocumentUpsert{
		Meta: ingest.Metadata{
			FileName:   name,
			FileType:   "md",
			FileSize:   int64(len(content)),
			CreatedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			ModifiedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			Path:       path,
		},
		Source: "local_fs",
		Result: ingest.Converted(content, ingest.ConversionDirect),
	}
}

func TestApplyInsertAndLookup(t *testing.T) {
	store := NewDocumentStore(dbtest.CreateTestDB(t), nil)

	up := upsertFor("/docs/a.md", "a.md", "# hello")
	require.NoError(t, store.Apply(up))

	snap, err := store.Lookup("/docs/a.md")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, ingest.StatusCompleted, snap.Status)
	assert.True(t, snap.ModifiedAt.Equal(up.Meta.ModifiedAt))

	doc, err := store.GetByPath("/docs/a.md")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "# hello", doc.Content)
	assert.Equal(t, string(ingest.ConversionDirect), doc.ConversionType)
	assert.Equal(t, "local_fs", doc.Source)
}

func TestLookupMissingReturnsNil(t *testing.T) {
	store := NewDocumentStore(dbtest.CreateTestDB(t), nil)
	snap, err := store.Lookup("/nowhere.md")
	require.NoError(t, err)
	assert.Nil(t, snap)

	doc, err := store.GetByPath("/nowhere.md")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	store := NewDocumentStore(dbtest.CreateTestDB(t), nil)
	require.NoError(t, store.Apply(upsertFor("/docs/Report.md", "Report.md", "x")))

	snap, err := store.Lookup("/docs/report.MD")
	require.NoError(t, err)
	assert.NotNil(t, snap)
}

func TestApplyUpdatesInPlace(t *testing.T) {
	store := NewDocumentStore(dbtest.CreateTestDB(t), nil)

	require.NoError(t, store.Apply(upsertFor("/docs/a.md", "a.md", "v1")))

	up := upsertFor("/docs/a.md", "a.md", "v2")
	later := up.Meta.ModifiedAt.Add(time.Hour)
	up.Meta.ModifiedAt = later
	require.NoError(t, store.Apply(up))

	doc, err := store.GetByPath("/docs/a.md")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "v2", doc.Content)
	assert.True(t, doc.FileModifiedAt.Equal(later))

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalDocuments, "re-ingesting a path must not duplicate")
}

func TestFailedConversionPreservesContent(t *testing.T) {
	store := NewDocumentStore(dbtest.CreateTestDB(t), nil)

	require.NoError(t, store.Apply(upsertFor("/docs/a.md", "a.md", "good content")))

	failed := ingest.DocumentUpsert{
		Meta:   upsertFor("/docs/a.md", "a.md", "").Meta,
		Source: "local_fs",
		Result: ingest.Failed("converter exploded"),
	}
	failed.Meta.ModifiedAt = failed.Meta.ModifiedAt.Add(time.Hour)
	require.NoError(t, store.Apply(failed))

	doc, err := store.GetByPath("/docs/a.md")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, ingest.StatusFailed, doc.Status)
	assert.Equal(t, "converter exploded", doc.ErrorMessage)
	assert.Equal(t, "good content", doc.Content, "failure must not erase the last good conversion")
	assert.Equal(t, string(ingest.ConversionDirect), doc.ConversionType)
}

func TestFirstContactFailureStoresNullConversionType(t *testing.T) {
	conn := dbtest.CreateTestDB(t)
	store := NewDocumentStore(conn, nil)

	failed := ingest.DocumentUpsert{
		Meta:   upsertFor("/docs/broken.exe", "broken.exe", "").Meta,
		Source: "local_fs",
		Result: ingest.Failed("Unsupported file type: exe"),
	}
	require.NoError(t, store.Apply(failed))

	var isNull bool
	require.NoError(t, conn.QueryRow(
		`SELECT conversion_type IS NULL FROM documents WHERE file_path = ?`,
		"/docs/broken.exe",
	).Scan(&isNull))
	assert.True(t, isNull, "a never-converted document has no conversion type")
}

func TestDelete(t *testing.T) {
	store := NewDocumentStore(dbtest.CreateTestDB(t), nil)
	require.NoError(t, store.Apply(upsertFor("/docs/a.md", "a.md", "x")))

	doc, err := store.GetByPath("/docs/a.md")
	require.NoError(t, err)

	ok, err := store.Delete(doc.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Delete(doc.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	store := NewDocumentStore(dbtest.CreateTestDB(t), nil)

	require.NoError(t, store.Apply(upsertFor("/a.md", "a.md", "x")))
	require.NoError(t, store.Apply(upsertFor("/b.md", "b.md", "y")))

	failed := upsertFor("/c.txt", "c.txt", "")
	failed.Meta.FileType = "txt"
	failed.Result = ingest.Failed("boom")
	require.NoError(t, store.Apply(failed))

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalDocuments)
	assert.EqualValues(t, 2, stats.Completed)
	assert.EqualValues(t, 1, stats.Failed)
	assert.EqualValues(t, 2, stats.ByType["md"])
	assert.EqualValues(t, 1, stats.ByType["txt"])
}

func TestLookupPropagatesDatabaseErrors(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT id, file_modified_time, status FROM documents`).
		WillReturnError(assert.AnError)

	store := NewDocumentStore(mockDB, nil)
	_, err = store.Lookup("/docs/a.md")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup document")
	assert.NoError(t, mock.ExpectationsWereMet())
}
