package ingest

// Level classifies the severity of a progress event
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

// Stage identifies where in the pipeline an event was emitted.
// Consumers key off the stage, not the human-readable message.
type Stage string

const (
	StageScanStart      Stage = "scan_start"
	StageScanComplete   Stage = "scan_complete"
	StageFileProcessing Stage = "file_processing"
	StageFileSkip       Stage = "file_skip"
	StageFileSuccess    Stage = "file_success"
	StageFileError      Stage = "file_error"
	StageCancelAck      Stage = "cancel_ack" // immediate feedback, precedes the cancelled event
	StageCancelled      Stage = "cancelled"  // early-stop notice; the terminal done event still follows
	StageDone           Stage = "done"
	StageCriticalError  Stage = "critical_error"
	StageDebug          Stage = "debug_state" // heartbeat / diagnostics, never terminal
)

// Skip reasons carried on file_skip events
const (
	SkipReasonUnchanged           = "unchanged"
	SkipReasonMetadataUnavailable = "metadata_unavailable"
)

// Summary carries the run counters on terminal events
type Summary struct {
	TotalFiles     int `json:"total_files"`
	ProcessedFiles int `json:"processed_files"`
	SkippedFiles   int `json:"skipped_files"`
	ErrorFiles     int `json:"error_files"`
}

// Event is one structured progress message emitted during an ingestion run
type Event struct {
	Level       Level    `json:"level"`
	Message     string   `json:"message"`
	Stage       Stage    `json:"stage"`
	SessionID   string   `json:"session_id"`
	Progress    int      `json:"progress,omitempty"`     // percent, file_processing only
	CurrentFile string   `json:"current_file,omitempty"` // file_processing only
	TotalFiles  int      `json:"total_files,omitempty"`  // scan_complete only
	Reason      string   `json:"reason,omitempty"`       // file_skip only
	Summary     *Summary `json:"summary,omitempty"`      // terminal events only
}

// Terminal reports whether the event ends the stream for a run.
// Every run emits exactly one terminal event: done (including the
// stopped-before-completion variant after a cancellation) or
// critical_error.
func (e Event) Terminal() bool {
	return e.Stage == StageDone || e.Stage == StageCriticalError
}
