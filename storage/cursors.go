package storage

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/docfind/docfind/errors"
	"github.com/docfind/docfind/ingest"
)

// Cursor is the stored incremental-scan state for one (source, scope) pair
type Cursor struct {
	Source           string     `json:"source"`
	ScopeKey         string     `json:"scope_key"`
	CursorUpdatedAt  *time.Time `json:"cursor_updated_at,omitempty"`
	TotalFiles       int        `json:"total_files"`
	Processed        int        `json:"processed"`
	Skipped          int        `json:"skipped"`
	Errors           int        `json:"errors"`
	LastStartedAt    *time.Time `json:"last_started_at,omitempty"`
	LastEndedAt      *time.Time `json:"last_ended_at,omitempty"`
	LastErrorMessage string     `json:"last_error_message,omitempty"`
}

// CursorStore reads and writes the ingest_cursors table
type CursorStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewCursorStore creates a cursor store over an open database
func NewCursorStore(db *sql.DB, logger *zap.SugaredLogger) *CursorStore {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &CursorStore{db: db, logger: logger}
}

// BeginRun records the run start on the cursor row, creating it on first
// contact, and returns the prior cursor position (zero when the scope has
// never completed a run). The previous run's counters and error are reset
// so concurrent readers see the new run as active.
func (s *CursorStore) BeginRun(source, scopeKey string, startedAt time.Time) (time.Time, error) {
	_, err := s.db.Exec(`
		INSERT INTO ingest_cursors (source, scope_key, last_started_at)
		VALUES (?, ?, ?)
		ON CONFLICT (source, scope_key) DO UPDATE SET
			last_started_at = excluded.last_started_at,
			total_files = 0, processed = 0, skipped = 0, errors = 0,
			last_ended_at = NULL, last_error_message = NULL`,
		source, scopeKey, startedAt.UTC(),
	)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "begin run for %s/%s", source, scopeKey)
	}

	var cursor sql.NullTime
	err = s.db.QueryRow(
		`SELECT cursor_updated_at FROM ingest_cursors WHERE source = ? AND scope_key = ?`,
		source, scopeKey,
	).Scan(&cursor)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "read cursor for %s/%s", source, scopeKey)
	}
	if !cursor.Valid {
		return time.Time{}, nil
	}
	return cursor.Time.UTC(), nil
}

// RecordTotal stores the matched file count once the scan finishes
func (s *CursorStore) RecordTotal(source, scopeKey string, total int) error {
	_, err := s.db.Exec(
		`UPDATE ingest_cursors SET total_files = ? WHERE source = ? AND scope_key = ?`,
		total, source, scopeKey,
	)
	if err != nil {
		return errors.Wrapf(err, "record total for %s/%s", source, scopeKey)
	}
	return nil
}

// FinishRun closes out the cursor row. The cursor position only moves when
// the outcome carries an advance timestamp: cancelled and failed runs leave
// it untouched so the next run re-covers their window.
func (s *CursorStore) FinishRun(source, scopeKey string, outcome ingest.RunOutcome) error {
	var errMsg any
	if outcome.ErrorMessage != "" {
		errMsg = outcome.ErrorMessage
	}

	if outcome.AdvanceTo != nil {
		_, err := s.db.Exec(`
			UPDATE ingest_cursors SET
				cursor_updated_at = ?, processed = ?, skipped = ?, errors = ?,
				last_ended_at = ?, last_error_message = ?
			WHERE source = ? AND scope_key = ?`,
			outcome.AdvanceTo.UTC(), outcome.Processed, outcome.Skipped, outcome.Errors,
			outcome.EndedAt.UTC(), errMsg, source, scopeKey,
		)
		if err != nil {
			return errors.Wrapf(err, "finish run for %s/%s", source, scopeKey)
		}
		return nil
	}

	_, err := s.db.Exec(`
		UPDATE ingest_cursors SET
			processed = ?, skipped = ?, errors = ?,
			last_ended_at = ?, last_error_message = ?
		WHERE source = ? AND scope_key = ?`,
		outcome.Processed, outcome.Skipped, outcome.Errors,
		outcome.EndedAt.UTC(), errMsg, source, scopeKey,
	)
	if err != nil {
		return errors.Wrapf(err, "finish run for %s/%s", source, scopeKey)
	}
	return nil
}

// List returns all cursor rows, newest activity first
func (s *CursorStore) List() ([]Cursor, error) {
	rows, err := s.db.Query(`
		SELECT source, scope_key, cursor_updated_at, total_files,
		       processed, skipped, errors,
		       last_started_at, last_ended_at, last_error_message
		FROM ingest_cursors
		ORDER BY last_started_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "list cursors")
	}
	defer rows.Close()

	var cursors []Cursor
	for rows.Next() {
		var c Cursor
		var cursorAt, startedAt, endedAt sql.NullTime
		var lastErr sql.NullString
		err := rows.Scan(
			&c.Source, &c.ScopeKey, &cursorAt, &c.TotalFiles,
			&c.Processed, &c.Skipped, &c.Errors,
			&startedAt, &endedAt, &lastErr,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan cursor row")
		}
		if cursorAt.Valid {
			t := cursorAt.Time.UTC()
			c.CursorUpdatedAt = &t
		}
		if startedAt.Valid {
			t := startedAt.Time.UTC()
			c.LastStartedAt = &t
		}
		if endedAt.Valid {
			t := endedAt.Time.UTC()
			c.LastEndedAt = &t
		}
		c.LastErrorMessage = lastErr.String
		cursors = append(cursors, c)
	}
	return cursors, rows.Err()
}
