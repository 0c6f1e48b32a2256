package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/docfind/docfind/config"
	"github.com/docfind/docfind/errors"
)

// Document status values as persisted
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// DocumentSnapshot is the stored state of a document relevant to the
// skip decision
type DocumentSnapshot struct {
	ID         int64
	ModifiedAt time.Time
	Status     string
}

// DocumentUpsert is one file's outcome, committed as a unit
type DocumentUpsert struct {
	Meta      Metadata
	Source    string
	SourceURL string
	Result    Result
}

// DocumentStore is the persistence surface the orchestrator writes
// documents through
type DocumentStore interface {
	// Lookup returns the stored snapshot for a normalized path, or nil
	// when the document has never been ingested.
	Lookup(path string) (*DocumentSnapshot, error)
	// Apply upserts one file's outcome. Each call is its own transaction:
	// a crash mid-run loses at most the file in flight.
	Apply(up DocumentUpsert) error
}

// RunOutcome closes out a cursor row at the end of a run
type RunOutcome struct {
	EndedAt      time.Time
	AdvanceTo    *time.Time // new cursor_updated_at; nil leaves the cursor untouched
	Processed    int
	Skipped      int
	Errors       int
	ErrorMessage string
}

// CursorStore is the persistence surface for per-source incremental
// scan cursors
type CursorStore interface {
	// BeginRun records the run start and returns the prior cursor
	// position (zero time when the scope has never completed a run).
	BeginRun(source, scopeKey string, startedAt time.Time) (time.Time, error)
	// RecordTotal stores the matched file count once the scan finishes
	RecordTotal(source, scopeKey string, total int) error
	// FinishRun records the run end, counters, and optionally advances
	// the cursor.
	FinishRun(source, scopeKey string, outcome RunOutcome) error
}

// RunParams are the caller-supplied knobs of one ingestion run
type RunParams struct {
	Root      string
	Recursive bool
	Types     []string
	DateFrom  *time.Time // explicit lower bound; nil = resume from the cursor
	DateTo    *time.Time
}

// Orchestrator drives ingestion runs: scan, per-file convert-and-commit,
// cursor bookkeeping, and progress events. It is safe for concurrent runs
// over disjoint roots; concurrent runs over the same root race on the
// cursor row and are the caller's mistake.
type Orchestrator struct {
	cfg       config.IngestConfig
	scanner   *Scanner
	registry  *Registry
	documents DocumentStore
	cursors   CursorStore
	sessions  *SessionStore
	logger    *zap.SugaredLogger
}

// NewOrchestrator wires the ingestion pipeline together
func NewOrchestrator(
	cfg config.IngestConfig,
	registry *Registry,
	documents DocumentStore,
	cursors CursorStore,
	sessions *SessionStore,
	logger *zap.SugaredLogger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Orchestrator{
		cfg:       cfg,
		scanner:   NewScanner(cfg, logger),
		registry:  registry,
		documents: documents,
		cursors:   cursors,
		sessions:  sessions,
		logger:    logger,
	}
}

// Sessions exposes the session store for the cancellation and
// inspection surfaces
func (o *Orchestrator) Sessions() *SessionStore {
	return o.sessions
}

// RunSync starts a session and runs it on the calling goroutine,
// delivering every event to emit in order. Returns the session so the
// caller can cancel from another goroutine.
func (o *Orchestrator) RunSync(ctx context.Context, params RunParams, emit func(Event)) *Session {
	sess := o.sessions.Start(ModeSync, params.Root)
	o.run(ctx, sess, params, func(ev Event) {
		sess.Record(ev)
		emit(ev)
	})
	return sess
}

// StartAsync starts a session and runs it on a background goroutine.
// Events queue on the session; consume them with StreamSession.
func (o *Orchestrator) StartAsync(ctx context.Context, params RunParams) *Session {
	sess := o.sessions.Start(ModeAsync, params.Root)
	go o.run(ctx, sess, params, sess.Enqueue)
	return sess
}

// run executes one ingestion run end to end. All progress flows through
// emit; the function itself never returns an error because every failure
// mode has an event shape.
func (o *Orchestrator) run(ctx context.Context, sess *Session, params RunParams, emit func(Event)) {
	deliver := emit
	emit = func(ev Event) {
		if ev.SessionID == "" {
			ev.SessionID = sess.ID
		}
		deliver(ev)
	}

	runStart := time.Now().UTC()
	source := o.sourceForPath(params.Root)
	scopeKey, err := NormalizePath(params.Root)
	if err != nil {
		scopeKey = params.Root
	}

	summary := &Summary{}
	cursorAdvance := (*time.Time)(nil)
	runErr := ""

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Errorw("Ingestion run panicked", "session_id", sess.ID, "panic", rec)
			runErr = fmt.Sprintf("internal error: %v", rec)
			emit(Event{
				Level:   LevelCritical,
				Message: "Ingestion failed: internal error.",
				Stage:   StageCriticalError,
				Summary: summary,
			})
		}

		outcome := RunOutcome{
			EndedAt:      time.Now().UTC(),
			AdvanceTo:    cursorAdvance,
			Processed:    summary.ProcessedFiles,
			Skipped:      summary.SkippedFiles,
			Errors:       summary.ErrorFiles,
			ErrorMessage: runErr,
		}
		if err := o.cursors.FinishRun(source, scopeKey, outcome); err != nil {
			o.logger.Errorw("Failed to finalize cursor", "session_id", sess.ID, "error", err)
		}

		if sess.Mode == ModeSync {
			o.sessions.End(sess.ID)
		} else {
			// Async sessions linger until the stream drains the queue
			sess.MarkDone()
		}
	}()

	lastCursor, err := o.cursors.BeginRun(source, scopeKey, runStart)
	if err != nil {
		runErr = err.Error()
		emit(criticalEvent(err, summary))
		return
	}

	// Resume from the cursor unless the caller pinned an explicit window
	dateFrom := params.DateFrom
	if dateFrom == nil && !lastCursor.IsZero() {
		dateFrom = &lastCursor
	}

	emit(Event{
		Level:   LevelInfo,
		Message: fmt.Sprintf("Scanning %s ...", params.Root),
		Stage:   StageScanStart,
	})

	files, err := o.scanner.Scan(params.Root, ScanOptions{
		Recursive: params.Recursive,
		Types:     params.Types,
		DateFrom:  dateFrom,
		DateTo:    params.DateTo,
	})
	if err != nil {
		runErr = err.Error()
		emit(criticalEvent(err, summary))
		return
	}

	summary.TotalFiles = len(files)
	if err := o.cursors.RecordTotal(source, scopeKey, len(files)); err != nil {
		o.logger.Errorw("Failed to record scan total", "session_id", sess.ID, "error", err)
	}

	emit(Event{
		Level:      LevelInfo,
		Message:    fmt.Sprintf("Found %d files to process.", len(files)),
		Stage:      StageScanComplete,
		TotalFiles: len(files),
	})

	// A clean empty scan still advances the cursor: nothing changed since
	// last time is a successful outcome, not a no-op.
	if len(files) == 0 {
		cursorAdvance = &runStart
		emit(Event{
			Level:   LevelInfo,
			Message: "No files matched; nothing to do.",
			Stage:   StageDone,
			Summary: summary,
		})
		return
	}

	var throttle *rate.Limiter
	if o.cfg.MaxFilesPerSecond > 0 {
		throttle = rate.NewLimiter(rate.Limit(o.cfg.MaxFilesPerSecond), 1)
	}

	for i, path := range files {
		// Control events (cancel acknowledgments) always reach the
		// consumer before the data event that follows them.
		for _, ev := range sess.DrainControl() {
			emit(ev)
		}
		if sess.Cancelled() {
			emitCancelled(emit, summary)
			return
		}

		if throttle != nil {
			if err := throttle.Wait(ctx); err != nil {
				runErr = err.Error()
				emit(criticalEvent(errors.Wrap(err, "run aborted"), summary))
				return
			}
		}

		meta, err := Probe(path)
		if err != nil || meta == nil {
			// Vanished or unreadable since the scan; not this run's fault
			summary.SkippedFiles++
			emit(Event{
				Level:   LevelWarning,
				Message: fmt.Sprintf("Skipping %s: metadata unavailable.", filepath.Base(path)),
				Stage:   StageFileSkip,
				Reason:  SkipReasonMetadataUnavailable,
			})
			continue
		}

		emit(Event{
			Level:       LevelInfo,
			Message:     fmt.Sprintf("Processing %s (%d/%d)", meta.FileName, i+1, len(files)),
			Stage:       StageFileProcessing,
			Progress:    (i + 1) * 100 / len(files),
			CurrentFile: meta.FileName,
		})

		snapshot, err := o.documents.Lookup(meta.Path)
		if err != nil {
			runErr = err.Error()
			emit(criticalEvent(errors.Wrap(err, "document lookup failed"), summary))
			return
		}
		if o.shouldSkip(snapshot, meta) {
			summary.SkippedFiles++
			emit(Event{
				Level:   LevelInfo,
				Message: fmt.Sprintf("Skipping %s: unchanged.", meta.FileName),
				Stage:   StageFileSkip,
				Reason:  SkipReasonUnchanged,
			})
			continue
		}

		result := o.registry.Dispatch(meta.Path, meta.FileType)

		up := DocumentUpsert{
			Meta:      *meta,
			Source:    o.sourceForPath(meta.Path),
			SourceURL: readSidecarURL(meta.Path),
			Result:    result,
		}
		if err := o.documents.Apply(up); err != nil {
			runErr = err.Error()
			emit(criticalEvent(errors.Wrapf(err, "failed to store %s", meta.FileName), summary))
			return
		}

		if result.Success {
			summary.ProcessedFiles++
			emit(Event{
				Level:   LevelInfo,
				Message: fmt.Sprintf("Processed %s", meta.FileName),
				Stage:   StageFileSuccess,
			})
		} else {
			summary.ErrorFiles++
			emit(Event{
				Level:   LevelError,
				Message: fmt.Sprintf("Failed to process %s: %s", meta.FileName, result.Err),
				Stage:   StageFileError,
			})
		}
	}

	// A cancel that lands after the final commit still wins: the cursor
	// must not advance once cancellation was requested.
	for _, ev := range sess.DrainControl() {
		emit(ev)
	}
	if sess.Cancelled() {
		emitCancelled(emit, summary)
		return
	}

	cursorAdvance = &runStart
	emit(Event{
		Level: LevelInfo,
		Message: fmt.Sprintf("Ingestion complete: %d processed, %d skipped, %d failed.",
			summary.ProcessedFiles, summary.SkippedFiles, summary.ErrorFiles),
		Stage:   StageDone,
		Summary: summary,
	})
}

// shouldSkip decides whether a stored document makes re-conversion
// unnecessary. Unchanged means same mtime; failed documents are retried
// by default so transient converter faults heal on the next run.
func (o *Orchestrator) shouldSkip(snapshot *DocumentSnapshot, meta *Metadata) bool {
	if snapshot == nil {
		return false
	}
	if !snapshot.ModifiedAt.Equal(meta.ModifiedAt) {
		return false
	}
	if snapshot.Status == StatusCompleted {
		return true
	}
	return !o.cfg.RetryFailed
}

// sourceForPath attributes a file to its collection. Only paths in a
// directory below the download root take the first segment under it as the
// collection name; files sitting directly in the root, and paths that merely
// share the root as a string prefix (e.g. a "downloads-old" sibling), are
// plain local filesystem files.
func (o *Orchestrator) sourceForPath(path string) string {
	if o.cfg.DownloadRoot == "" {
		return o.cfg.SourceLocalFS
	}
	root, err := NormalizePath(o.cfg.DownloadRoot)
	if err != nil {
		return o.cfg.SourceLocalFS
	}
	normalized, err := NormalizePath(path)
	if err != nil {
		return o.cfg.SourceLocalFS
	}
	rel, ok := strings.CutPrefix(normalized, strings.TrimSuffix(root, "/")+"/")
	if !ok {
		return o.cfg.SourceLocalFS
	}
	segment, rest, found := strings.Cut(rel, "/")
	if !found || segment == "" || rest == "" {
		return o.cfg.SourceLocalFS
	}
	return o.cfg.DownloadSourcePrefix + segment
}

// readSidecarURL returns the origin URL from a file's optional
// ".meta.json" sidecar. Missing or malformed sidecars yield "".
func readSidecarURL(path string) string {
	data, err := os.ReadFile(path + SidecarSuffix)
	if err != nil {
		return ""
	}
	var sidecar struct {
		SourceURL string `json:"source_url"`
	}
	if err := json.Unmarshal(data, &sidecar); err != nil {
		return ""
	}
	return sidecar.SourceURL
}

func criticalEvent(err error, summary *Summary) Event {
	return Event{
		Level:   LevelCritical,
		Message: fmt.Sprintf("Ingestion failed: %v", err),
		Stage:   StageCriticalError,
		Summary: summary,
	}
}

// emitCancelled announces the early stop and then closes the run with the
// terminal done event, so cancelled runs end the same way completed ones do.
func emitCancelled(emit func(Event), summary *Summary) {
	emit(Event{
		Level:   LevelWarning,
		Message: "Ingestion cancelled.",
		Stage:   StageCancelled,
	})
	emit(Event{
		Level: LevelWarning,
		Message: fmt.Sprintf("Ingestion stopped before completion: %d processed, %d skipped, %d failed.",
			summary.ProcessedFiles, summary.SkippedFiles, summary.ErrorFiles),
		Stage:   StageDone,
		Summary: summary,
	})
}
