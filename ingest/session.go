package ingest

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mode selects how a session's run executes
type Mode string

const (
	// ModeSync runs on the caller's goroutine; the caller consumes events
	// as they are emitted and the run advances cooperatively.
	ModeSync Mode = "sync"
	// ModeAsync runs on a background goroutine; events queue on the
	// session and a streaming reader drains them.
	ModeAsync Mode = "async"
)

// Session is the cancellable unit of one ingestion run. It is process-local
// and never persisted; the cursor row carries the durable state.
type Session struct {
	ID         string
	Mode       Mode
	FolderPath string
	StartedAt  time.Time

	mu                sync.Mutex
	stop              bool
	cancelRequestedAt *time.Time
	control           []Event // control-plane FIFO, flushed ahead of data events
	queue             []Event // async event queue
	history           []Event // bounded, most-recent-N
	historyLimit      int
	done              bool
}

// Cancelled reports whether cancellation has been requested.
// The flag is monotonic: once set it never clears.
func (s *Session) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop
}

// requestCancel sets the flag and queues the acknowledgment control event.
// Returns false if cancellation was already requested.
func (s *Session) requestCancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop {
		return false
	}
	now := time.Now().UTC()
	s.stop = true
	s.cancelRequestedAt = &now
	s.control = append(s.control, Event{
		Level:     LevelWarning,
		Message:   "Cancel request acknowledged.",
		Stage:     StageCancelAck,
		SessionID: s.ID,
	})
	return true
}

// DrainControl removes and returns all queued control events in FIFO order
func (s *Session) DrainControl() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.control
	s.control = nil
	return events
}

// Enqueue appends an event to the async queue and the history buffer
func (s *Session) Enqueue(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.SessionID == "" {
		ev.SessionID = s.ID
	}
	s.queue = append(s.queue, ev)
	s.record(ev)
}

// Record stores an event in the history buffer without queueing it.
// Sync-mode runs use this; their events go straight to the consumer.
func (s *Session) Record(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(ev)
}

// record must be called with s.mu held. Heartbeats are not retained —
// they would crowd real events out of the bounded buffer.
func (s *Session) record(ev Event) {
	if ev.Stage == StageDebug {
		return
	}
	s.history = append(s.history, ev)
	if len(s.history) > s.historyLimit {
		s.history = s.history[len(s.history)-s.historyLimit:]
	}
}

// DrainQueue removes and returns all queued events in FIFO order
func (s *Session) DrainQueue() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.queue
	s.queue = nil
	return events
}

// QueueLen returns the number of undelivered queued events
func (s *Session) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// History returns a copy of the retained events, oldest first
func (s *Session) History() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.history))
	copy(out, s.history)
	return out
}

// MarkDone flags the run as finished. Async sessions stay in the store
// until their queue is drained.
func (s *Session) MarkDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
}

// Done reports whether the run has finished
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// DebugSnapshot is a point-in-time diagnostic view of a session
type DebugSnapshot struct {
	SessionID         string     `json:"session_id"`
	Mode              Mode       `json:"mode"`
	FolderPath        string     `json:"folder_path"`
	StartedAt         time.Time  `json:"started_at"`
	CancelRequested   bool       `json:"cancel_requested"`
	CancelRequestedAt *time.Time `json:"cancel_requested_at,omitempty"`
	ControlQueueLen   int        `json:"control_queue_length"`
	EventQueueLen     int        `json:"event_queue_length"`
	HistoryLen        int        `json:"history_length"`
	Done              bool       `json:"done"`
}

// Snapshot returns the session's diagnostic state
func (s *Session) Snapshot() DebugSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DebugSnapshot{
		SessionID:         s.ID,
		Mode:              s.Mode,
		FolderPath:        s.FolderPath,
		StartedAt:         s.StartedAt,
		CancelRequested:   s.stop,
		CancelRequestedAt: s.cancelRequestedAt,
		ControlQueueLen:   len(s.control),
		EventQueueLen:     len(s.queue),
		HistoryLen:        len(s.history),
		Done:              s.done,
	}
}

// SessionStore owns the live session table. It is an explicit object passed
// to the orchestrator and the cancellation surface, never ambient state.
type SessionStore struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	historyLimit int
	logger       *zap.SugaredLogger
}

// NewSessionStore creates an empty session store
func NewSessionStore(historyLimit int, logger *zap.SugaredLogger) *SessionStore {
	if historyLimit <= 0 {
		historyLimit = 1000
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SessionStore{
		sessions:     make(map[string]*Session),
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// Start creates and registers a new session
func (st *SessionStore) Start(mode Mode, folderPath string) *Session {
	sess := &Session{
		ID:           uuid.NewString(),
		Mode:         mode,
		FolderPath:   folderPath,
		StartedAt:    time.Now().UTC(),
		historyLimit: st.historyLimit,
	}

	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()

	st.logger.Infow("Session started", "session_id", sess.ID, "mode", mode, "folder", folderPath)
	return sess
}

// Get returns a live session by ID
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[id]
	return sess, ok
}

// RequestCancel flags a session for cancellation and queues the
// acknowledgment control event. Safe to call from any goroutine; the
// orchestrator polls the flag at file boundaries only. Returns false for
// unknown sessions.
func (st *SessionStore) RequestCancel(id string) bool {
	sess, ok := st.Get(id)
	if !ok {
		st.logger.Warnw("Cancel request for unknown session", "session_id", id)
		return false
	}
	if sess.requestCancel() {
		st.logger.Infow("Cancel request received", "session_id", id)
	}
	return true
}

// IsCancelled reports whether a session has been flagged for cancellation
func (st *SessionStore) IsCancelled(id string) bool {
	sess, ok := st.Get(id)
	return ok && sess.Cancelled()
}

// End removes a session from the live table
func (st *SessionStore) End(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// ActiveIDs lists the IDs of all live sessions
func (st *SessionStore) ActiveIDs() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	ids := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns the diagnostic state of a session, if it exists
func (st *SessionStore) Snapshot(id string) (DebugSnapshot, bool) {
	sess, ok := st.Get(id)
	if !ok {
		return DebugSnapshot{}, false
	}
	return sess.Snapshot(), true
}
