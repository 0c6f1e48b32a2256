package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/docfind/docfind/errors"
	"github.com/docfind/docfind/ingest"
)

type ingestRequest struct {
	FolderPath string   `json:"folder_path"`
	Recursive  bool     `json:"recursive"`
	Types      []string `json:"types,omitempty"`
	DateFrom   string   `json:"date_from,omitempty"`
	DateTo     string   `json:"date_to,omitempty"`
}

// handleIngestStart starts a background ingestion run and returns its
// session ID immediately. Progress flows over /api/ingest/stream.
func (s *Server) handleIngestStart(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req ingestRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.FolderPath == "" {
		writeError(w, http.StatusBadRequest, "folder_path is required")
		return
	}
	info, err := os.Stat(req.FolderPath)
	if err != nil || !info.IsDir() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("folder_path %q is not a readable directory", req.FolderPath))
		return
	}

	dateFrom, dateTo, err := ingest.ParseDateRange(req.DateFrom, req.DateTo)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The run outlives the request; it must not inherit its cancellation
	sess := s.orchestrator.StartAsync(context.Background(), ingest.RunParams{
		Root:      req.FolderPath,
		Recursive: req.Recursive,
		Types:     req.Types,
		DateFrom:  dateFrom,
		DateTo:    dateTo,
	})

	s.logger.Infow("Ingestion started", "session_id", sess.ID, "folder", req.FolderPath)
	writeJSON(w, http.StatusAccepted, map[string]string{"session_id": sess.ID})
}

type cancelRequest struct {
	SessionID string `json:"session_id"`
}

// handleIngestCancel flags a running session for cancellation. The run
// acknowledges at the next file boundary; this endpoint only confirms the
// request was registered.
func (s *Server) handleIngestCancel(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req cancelRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if !s.orchestrator.Sessions().RequestCancel(req.SessionID) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown session %s", req.SessionID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": req.SessionID,
		"cancelling": true,
	})
}

// handleSessions lists the live ingestion sessions
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	store := s.orchestrator.Sessions()
	snapshots := []ingest.DebugSnapshot{}
	for _, id := range store.ActiveIDs() {
		if snap, ok := store.Snapshot(id); ok {
			snapshots = append(snapshots, snap)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": snapshots})
}

// handleSessionDebug returns the diagnostic snapshot of one session
func (s *Server) handleSessionDebug(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	id := r.URL.Query().Get("session_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	snap, ok := s.orchestrator.Sessions().Snapshot(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown session %s", id))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleCursors lists the per-source incremental scan cursors
func (s *Server) handleCursors(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	cursors, err := s.cursors.List()
	if err != nil {
		s.logger.Errorw("Failed to list cursors", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list cursors")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cursors": cursors})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

const streamWriteWait = 10 * time.Second

// handleIngestStream upgrades to WebSocket and relays a session's event
// stream until its terminal event. The connection closes from the server
// side once the run is over; heartbeat events keep intermediaries from
// timing the socket out during long conversions.
func (s *Server) handleIngestStream(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	up := upgrader
	up.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || s.originAllowed(origin)
	}

	events, err := s.orchestrator.StreamSession(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("Failed to upgrade WebSocket", "error", err)
		return
	}
	defer conn.Close()

	// Reads are discarded; a read error means the client went away and
	// the relay loop below should stop.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(streamWriteWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					s.logger.Debugw("Stream write failed", "session_id", id, "error", err)
				}
				return
			}
		case <-clientGone:
			return
		}
	}
}
