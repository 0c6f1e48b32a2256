// Package server exposes the ingestion pipeline and document search over
// HTTP and WebSocket.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docfind/docfind/config"
	"github.com/docfind/docfind/errors"
	"github.com/docfind/docfind/ingest"
	"github.com/docfind/docfind/storage"
)

// Server wires the stores and the orchestrator behind the HTTP API
type Server struct {
	cfg          config.Config
	db           *sql.DB
	documents    *storage.DocumentStore
	cursors      *storage.CursorStore
	orchestrator *ingest.Orchestrator
	logger       *zap.SugaredLogger

	mux        *http.ServeMux
	httpServer *http.Server
}

// New builds a Server over an open, migrated database
func New(cfg config.Config, db *sql.DB, orch *ingest.Orchestrator, documents *storage.DocumentStore, cursors *storage.CursorStore, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	s := &Server{
		cfg:          cfg,
		db:           db,
		documents:    documents,
		cursors:      cursors,
		orchestrator: orch,
		logger:       logger,
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.corsMiddleware(s.handleHealth))
	s.mux.HandleFunc("/api/ingest", s.corsMiddleware(s.handleIngestStart))            // POST: start async run
	s.mux.HandleFunc("/api/ingest/stream", s.corsMiddleware(s.handleIngestStream))    // WS: session event stream
	s.mux.HandleFunc("/api/ingest/cancel", s.corsMiddleware(s.handleIngestCancel))    // POST: request cancellation
	s.mux.HandleFunc("/api/ingest/sessions", s.corsMiddleware(s.handleSessions))      // GET: active sessions
	s.mux.HandleFunc("/api/ingest/debug", s.corsMiddleware(s.handleSessionDebug))     // GET: session diagnostics
	s.mux.HandleFunc("/api/ingest/cursors", s.corsMiddleware(s.handleCursors))        // GET: per-source scan cursors
	s.mux.HandleFunc("/api/search", s.corsMiddleware(s.handleSearch))                 // GET: corpus search
	s.mux.HandleFunc("/api/documents/", s.corsMiddleware(s.handleDocument))           // GET/DELETE: single document
	s.mux.HandleFunc("/api/status", s.corsMiddleware(s.handleStatus))                 // GET: corpus and session summary
}

// Handler returns the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves HTTP until ctx is cancelled, then drains with a grace period
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("HTTP server listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown http server")
		}
		return nil
	}
}

// corsMiddleware applies the configured origin policy to every endpoint
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

// originAllowed prefix-matches so any port on an allowed host passes
func (s *Server) originAllowed(origin string) bool {
	allowed := s.cfg.Server.AllowedOrigins
	if len(allowed) == 0 {
		return strings.HasPrefix(origin, "http://localhost") ||
			strings.HasPrefix(origin, "https://localhost")
	}
	for _, a := range allowed {
		if strings.HasPrefix(origin, a) {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
