// Package storage persists documents and ingestion cursors in SQLite.
package storage

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/docfind/docfind/errors"
	"github.com/docfind/docfind/ingest"
)

// Document is one stored file conversion
type Document struct {
	ID             int64      `json:"id"`
	FilePath       string     `json:"file_path"`
	FileName       string     `json:"file_name"`
	FileType       string     `json:"file_type"`
	FileSize       int64      `json:"file_size"`
	FileCreatedAt  *time.Time `json:"file_created_at,omitempty"`
	FileModifiedAt *time.Time `json:"file_modified_time,omitempty"`
	Content        string     `json:"markdown_content,omitempty"`
	ConversionType string     `json:"conversion_type,omitempty"`
	Status         string     `json:"status"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	Source         string     `json:"source"`
	SourceURL      string     `json:"source_url,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// DocumentStore reads and writes the documents table
type DocumentStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewDocumentStore creates a document store over an open database
func NewDocumentStore(db *sql.DB, logger *zap.SugaredLogger) *DocumentStore {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &DocumentStore{db: db, logger: logger}
}

// Lookup returns the skip-decision snapshot for a path, or nil when the
// path has never been ingested. Path matching is case-insensitive via the
// column collation.
func (s *DocumentStore) Lookup(path string) (*ingest.DocumentSnapshot, error) {
	row := s.db.QueryRow(
		`SELECT id, file_modified_time, status FROM documents WHERE file_path = ?`,
		path,
	)

	var snap ingest.DocumentSnapshot
	var modified sql.NullTime
	err := row.Scan(&snap.ID, &modified, &snap.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "lookup document %s", path)
	}
	if modified.Valid {
		snap.ModifiedAt = modified.Time.UTC()
	}
	return &snap, nil
}

// Apply commits one file's conversion outcome in a single transaction.
// Successful conversions replace the content; failed ones record the error
// while preserving the last successfully converted content, so a transient
// converter fault never erases a good document.
func (s *DocumentStore) Apply(up ingest.DocumentUpsert) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin document upsert")
	}
	defer tx.Rollback()

	var existingID int64
	err = tx.QueryRow(`SELECT id FROM documents WHERE file_path = ?`, up.Meta.Path).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		err = s.insert(tx, up)
	case err != nil:
		return errors.Wrapf(err, "find document %s", up.Meta.Path)
	default:
		err = s.update(tx, existingID, up)
	}
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "commit document %s", up.Meta.Path)
	}
	return nil
}

func (s *DocumentStore) insert(tx *sql.Tx, up ingest.DocumentUpsert) error {
	status, errMsg := statusOf(up.Result)

	// Failed conversions have no conversion type; store NULL, not ""
	var ctype any
	if up.Result.Type != "" {
		ctype = string(up.Result.Type)
	}

	_, err := tx.Exec(`
		INSERT INTO documents (
			file_path, file_name, file_type, file_size,
			file_created_at, file_modified_time,
			markdown_content, conversion_type, status, error_message,
			source, source_url, search_text,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		up.Meta.Path, up.Meta.FileName, up.Meta.FileType, up.Meta.FileSize,
		up.Meta.CreatedAt, up.Meta.ModifiedAt,
		up.Result.Content, ctype, status, errMsg,
		up.Source, up.SourceURL, searchText(up),
		time.Now().UTC(), time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrapf(err, "insert document %s", up.Meta.Path)
	}
	return nil
}

func (s *DocumentStore) update(tx *sql.Tx, id int64, up ingest.DocumentUpsert) error {
	status, errMsg := statusOf(up.Result)

	var err error
	if up.Result.Success {
		_, err = tx.Exec(`
			UPDATE documents SET
				file_name = ?, file_type = ?, file_size = ?,
				file_created_at = ?, file_modified_time = ?,
				markdown_content = ?, conversion_type = ?, status = ?, error_message = ?,
				source = ?, source_url = ?, search_text = ?,
				updated_at = ?
			WHERE id = ?`,
			up.Meta.FileName, up.Meta.FileType, up.Meta.FileSize,
			up.Meta.CreatedAt, up.Meta.ModifiedAt,
			up.Result.Content, string(up.Result.Type), status, errMsg,
			up.Source, up.SourceURL, searchText(up),
			time.Now().UTC(), id,
		)
	} else {
		// Metadata and error advance; content columns keep their
		// last-known-good values.
		_, err = tx.Exec(`
			UPDATE documents SET
				file_name = ?, file_type = ?, file_size = ?,
				file_created_at = ?, file_modified_time = ?,
				status = ?, error_message = ?,
				source = ?, source_url = ?,
				updated_at = ?
			WHERE id = ?`,
			up.Meta.FileName, up.Meta.FileType, up.Meta.FileSize,
			up.Meta.CreatedAt, up.Meta.ModifiedAt,
			status, errMsg,
			up.Source, up.SourceURL,
			time.Now().UTC(), id,
		)
	}
	if err != nil {
		return errors.Wrapf(err, "update document %s", up.Meta.Path)
	}
	return nil
}

func statusOf(r ingest.Result) (status, errMsg string) {
	if r.Success {
		return ingest.StatusCompleted, ""
	}
	return ingest.StatusFailed, r.Err
}

// searchText derives the substring-search field: the file name matters as
// much as the body for lookup by memory of a title.
func searchText(up ingest.DocumentUpsert) string {
	return up.Meta.FileName + "\n" + up.Result.Content
}

const documentColumns = `
	id, file_path, file_name, file_type, file_size,
	file_created_at, file_modified_time,
	markdown_content, conversion_type, status, error_message,
	source, source_url, created_at, updated_at`

// GetByID returns a full document, or nil when absent
func (s *DocumentStore) GetByID(id int64) (*Document, error) {
	row := s.db.QueryRow(`SELECT`+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, errors.Wrapf(err, "get document %d", id)
	}
	return doc, nil
}

// GetByPath returns a full document by normalized path, or nil when absent
func (s *DocumentStore) GetByPath(path string) (*Document, error) {
	row := s.db.QueryRow(`SELECT`+documentColumns+` FROM documents WHERE file_path = ?`, path)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, errors.Wrapf(err, "get document %s", path)
	}
	return doc, nil
}

// Delete removes a document by ID. Returns false when no row matched.
func (s *DocumentStore) Delete(id int64) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, errors.Wrapf(err, "delete document %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "delete document")
	}
	return n > 0, nil
}

// Stats summarizes the corpus for the status surfaces
type Stats struct {
	TotalDocuments int64            `json:"total_documents"`
	Completed      int64            `json:"completed"`
	Failed         int64            `json:"failed"`
	ByType         map[string]int64 `json:"by_type"`
}

// Stats returns corpus-wide counters
func (s *DocumentStore) Stats() (*Stats, error) {
	stats := &Stats{ByType: make(map[string]int64)}

	row := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)
		FROM documents`)
	if err := row.Scan(&stats.TotalDocuments, &stats.Completed, &stats.Failed); err != nil {
		return nil, errors.Wrap(err, "count documents")
	}

	rows, err := s.db.Query(`SELECT file_type, COUNT(*) FROM documents GROUP BY file_type`)
	if err != nil {
		return nil, errors.Wrap(err, "count documents by type")
	}
	defer rows.Close()
	for rows.Next() {
		var ft string
		var n int64
		if err := rows.Scan(&ft, &n); err != nil {
			return nil, errors.Wrap(err, "scan type count")
		}
		stats.ByType[ft] = n
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var createdAt, modifiedAt sql.NullTime
	var content, convType, errMsg, sourceURL sql.NullString

	err := row.Scan(
		&doc.ID, &doc.FilePath, &doc.FileName, &doc.FileType, &doc.FileSize,
		&createdAt, &modifiedAt,
		&content, &convType, &doc.Status, &errMsg,
		&doc.Source, &sourceURL, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if createdAt.Valid {
		t := createdAt.Time.UTC()
		doc.FileCreatedAt = &t
	}
	if modifiedAt.Valid {
		t := modifiedAt.Time.UTC()
		doc.FileModifiedAt = &t
	}
	doc.Content = content.String
	doc.ConversionType = convType.String
	doc.ErrorMessage = errMsg.String
	doc.SourceURL = sourceURL.String
	return &doc, nil
}
