package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/docfind/docfind/ingest"
	"github.com/docfind/docfind/storage"
)

// handleSearch runs a corpus search.
// Query parameters: q, types (comma-separated), source, date_from, date_to,
// limit, offset.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()

	dateFrom, dateTo, err := ingest.ParseDateRange(q.Get("date_from"), q.Get("date_to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := s.cfg.Search.DefaultLimit
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}
	if s.cfg.Search.MaxLimit > 0 && limit > s.cfg.Search.MaxLimit {
		limit = s.cfg.Search.MaxLimit
	}

	offset := 0
	if raw := q.Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
	}

	var types []string
	if raw := q.Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}

	result, err := s.documents.Search(storage.SearchParams{
		Query:    q.Get("q"),
		Types:    types,
		Source:   q.Get("source"),
		DateFrom: dateFrom,
		DateTo:   dateTo,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.logger.Errorw("Search failed", "query", q.Get("q"), "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleDocument serves one document by ID: GET returns it with its full
// markdown body, DELETE removes it.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "document id must be a positive integer")
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, err := s.documents.GetByID(id)
		if err != nil {
			s.logger.Errorw("Failed to fetch document", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to fetch document")
			return
		}
		if doc == nil {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeJSON(w, http.StatusOK, doc)

	case http.MethodDelete:
		ok, err := s.documents.Delete(id)
		if err != nil {
			s.logger.Errorw("Failed to delete document", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to delete document")
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleStatus summarizes the corpus and live sessions
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	stats, err := s.documents.Stats()
	if err != nil {
		s.logger.Errorw("Failed to compute stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	cursors, err := s.cursors.List()
	if err != nil {
		s.logger.Errorw("Failed to list cursors", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list cursors")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documents":       stats,
		"cursors":         cursors,
		"active_sessions": s.orchestrator.Sessions().ActiveIDs(),
		"database_path":   s.cfg.Database.Path,
	})
}
