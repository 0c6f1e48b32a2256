package storage

import (
	"database/sql"
	"strings"
	"time"

	"github.com/docfind/docfind/errors"
)

// SearchParams filters a corpus search. An empty Query matches everything
// within the other filters (browse mode).
type SearchParams struct {
	Query    string
	Types    []string
	Source   string
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// SearchHit is one search result: the document without its body, plus a
// snippet around the first match.
type SearchHit struct {
	Document
	Snippet string `json:"snippet,omitempty"`
}

// SearchResult is a page of hits with the unpaginated total
type SearchResult struct {
	Hits  []SearchHit `json:"hits"`
	Total int         `json:"total"`
}

const snippetRadius = 80 // runes either side of the match

// Search runs a substring search over the derived search_text column.
// Plain LIKE matching rather than a tokenizing index: it behaves
// identically for English and for CJK text, where word-boundary tokenizers
// silently miss matches. Results are newest-modified first.
func (s *DocumentStore) Search(p SearchParams) (*SearchResult, error) {
	var conds []string
	var args []any

	if p.Query != "" {
		conds = append(conds, `search_text LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(p.Query)+"%")
	}
	if len(p.Types) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(p.Types)), ",")
		conds = append(conds, `file_type IN (`+placeholders+`)`)
		for _, t := range p.Types {
			args = append(args, strings.ToLower(t))
		}
	}
	if p.Source != "" {
		conds = append(conds, `source = ?`)
		args = append(args, p.Source)
	}
	if p.DateFrom != nil {
		conds = append(conds, `file_modified_time >= ?`)
		args = append(args, p.DateFrom.UTC())
	}
	if p.DateTo != nil {
		conds = append(conds, `file_modified_time <= ?`)
		args = append(args, p.DateTo.UTC())
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return nil, errors.Wrap(err, "count search results")
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT` + documentColumns + `, COALESCE(markdown_content, '')
		FROM documents` + where + `
		ORDER BY file_modified_time DESC, id DESC
		LIMIT ? OFFSET ?`
	rows, err := s.db.Query(query, append(args, limit, p.Offset)...)
	if err != nil {
		return nil, errors.Wrap(err, "search documents")
	}
	defer rows.Close()

	result := &SearchResult{Total: total, Hits: []SearchHit{}}
	for rows.Next() {
		doc, content, err := scanHit(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan search hit")
		}
		hit := SearchHit{Document: *doc}
		hit.Content = "" // bodies are fetched individually, not in result lists
		hit.Snippet = snippet(content, p.Query)
		result.Hits = append(result.Hits, hit)
	}
	return result, rows.Err()
}

func scanHit(rows rowScanner) (*Document, string, error) {
	// Same column list as scanDocument plus the coalesced body for
	// snippet extraction
	var content string
	doc := &Document{}
	var createdAt, modifiedAt sql.NullTime
	var body, convType, errMsg, sourceURL sql.NullString

	err := rows.Scan(
		&doc.ID, &doc.FilePath, &doc.FileName, &doc.FileType, &doc.FileSize,
		&createdAt, &modifiedAt,
		&body, &convType, &doc.Status, &errMsg,
		&doc.Source, &sourceURL, &doc.CreatedAt, &doc.UpdatedAt,
		&content,
	)
	if err != nil {
		return nil, "", err
	}

	if createdAt.Valid {
		t := createdAt.Time.UTC()
		doc.FileCreatedAt = &t
	}
	if modifiedAt.Valid {
		t := modifiedAt.Time.UTC()
		doc.FileModifiedAt = &t
	}
	doc.ConversionType = convType.String
	doc.ErrorMessage = errMsg.String
	doc.SourceURL = sourceURL.String
	return doc, content, nil
}

// escapeLike neutralizes LIKE wildcards in user input so a query for
// "100%" matches the literal text
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// snippet extracts a rune-safe window around the first case-insensitive
// match of query in the document. Falls back to the head of the content
// when the match was in the file name only.
func snippet(content, query string) string {
	if content == "" {
		return ""
	}
	runes := []rune(content)

	idx := -1
	if query != "" {
		if byteIdx := strings.Index(strings.ToLower(content), strings.ToLower(query)); byteIdx >= 0 {
			idx = len([]rune(content[:byteIdx]))
		}
	}
	if idx < 0 {
		if len(runes) <= 2*snippetRadius {
			return content
		}
		return string(runes[:2*snippetRadius]) + "…"
	}

	start := idx - snippetRadius
	if start < 0 {
		start = 0
	}
	end := idx + len([]rune(query)) + snippetRadius
	if end > len(runes) {
		end = len(runes)
	}

	out := string(runes[start:end])
	if start > 0 {
		out = "…" + out
	}
	if end < len(runes) {
		out += "…"
	}
	return out
}
