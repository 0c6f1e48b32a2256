package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfind/docfind/config"
	"github.com/docfind/docfind/ingest"
	dbtest "github.com/docfind/docfind/internal/testing"
	"github.com/docfind/docfind/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	v := viper.New()
	config.SetDefaults(v)
	var cfg config.Config
	require.NoError(t, v.Unmarshal(&cfg))

	conn := dbtest.CreateTestDB(t)
	documents := storage.NewDocumentStore(conn, nil)
	cursors := storage.NewCursorStore(conn, nil)
	sessions := ingest.NewSessionStore(cfg.Ingest.HistoryLimit, nil)

	registry := ingest.NewRegistry(nil)
	require.NoError(t, registry.Register(func(path, fileType string) ingest.Result {
		data, err := os.ReadFile(path)
		if err != nil {
			return ingest.Failed("read %s: %v", path, err)
		}
		return ingest.Converted(string(data), ingest.ConversionDirect)
	}, "md", "txt"))

	orch := ingest.NewOrchestrator(cfg.Ingest, registry, documents, cursors, sessions, nil)
	return New(cfg, conn, orch, documents, cursors, nil)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestIngestStartValidation(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/ingest", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "folder_path")

	rec = doJSON(t, s.Handler(), http.MethodPost, "/api/ingest", map[string]any{
		"folder_path": "/no/such/directory",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodPost, "/api/ingest", map[string]any{
		"folder_path": t.TempDir(),
		"date_from":   "not-a-date",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not-a-date")

	rec = doJSON(t, s.Handler(), http.MethodGet, "/api/ingest", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCancelValidation(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/ingest/cancel", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodPost, "/api/ingest/cancel", map[string]any{
		"session_id": "does-not-exist",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionDebugValidation(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/ingest/debug", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodGet, "/api/ingest/debug?session_id=ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngestLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "guide.md"), []byte("# Install guide\n\nRun make."), 0644))

	// Start an async run
	resp, err := http.Post(ts.URL+"/api/ingest", "application/json",
		strings.NewReader(fmt.Sprintf(`{"folder_path":%q,"recursive":true}`, root)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var started struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	require.NotEmpty(t, started.SessionID)

	// Stream events over WebSocket until the run finishes
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ingest/stream?session_id=" + started.SessionID
	conn, wsResp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if wsResp != nil {
		wsResp.Body.Close()
	}
	defer conn.Close()

	var sawTerminal bool
	deadline := time.Now().Add(10 * time.Second)
	for !sawTerminal {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var ev ingest.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("stream ended before terminal event: %v", err)
		}
		assert.Equal(t, started.SessionID, ev.SessionID)
		if ev.Terminal() {
			sawTerminal = true
			assert.Equal(t, ingest.StageDone, ev.Stage)
			require.NotNil(t, ev.Summary)
			assert.Equal(t, 1, ev.Summary.ProcessedFiles)
		}
	}

	// The document is searchable
	searchResp, err := http.Get(ts.URL + "/api/search?q=install")
	require.NoError(t, err)
	defer searchResp.Body.Close()
	require.Equal(t, http.StatusOK, searchResp.StatusCode)

	var result storage.SearchResult
	require.NoError(t, json.NewDecoder(searchResp.Body).Decode(&result))
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "guide.md", result.Hits[0].FileName)

	// Full body via the document endpoint
	docResp, err := http.Get(fmt.Sprintf("%s/api/documents/%d", ts.URL, result.Hits[0].ID))
	require.NoError(t, err)
	defer docResp.Body.Close()
	require.Equal(t, http.StatusOK, docResp.StatusCode)

	var doc storage.Document
	require.NoError(t, json.NewDecoder(docResp.Body).Decode(&doc))
	assert.Contains(t, doc.Content, "Run make.")

	// The cursor advanced
	curResp, err := http.Get(ts.URL + "/api/ingest/cursors")
	require.NoError(t, err)
	defer curResp.Body.Close()

	var cursorsBody struct {
		Cursors []storage.Cursor `json:"cursors"`
	}
	require.NoError(t, json.NewDecoder(curResp.Body).Decode(&cursorsBody))
	require.Len(t, cursorsBody.Cursors, 1)
	assert.NotNil(t, cursorsBody.Cursors[0].CursorUpdatedAt)
	assert.Equal(t, 1, cursorsBody.Cursors[0].Processed)
}

func TestSearchValidation(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/search?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodGet, "/api/search?offset=-3", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodGet, "/api/search?date_from=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodGet, "/api/search", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDocumentEndpointValidation(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/documents/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodGet, "/api/documents/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodDelete, "/api/documents/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Documents      storage.Stats    `json:"documents"`
		Cursors        []storage.Cursor `json:"cursors"`
		ActiveSessions []string         `json:"active_sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Zero(t, body.Documents.TotalDocuments)
	assert.Empty(t, body.ActiveSessions)
}

func TestSessionsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/ingest/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sessions":[]`)
}

func TestCORSHeaders(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
