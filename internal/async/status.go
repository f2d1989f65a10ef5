// Package async runs indexing in the background and tracks its progress
// so that callers can poll status while a run is in flight.
package async

import (
	"slices"
	"sync"
	"time"

	"github.com/Aman-CERP/silo/internal/index"
)

// IndexingStatus represents the overall indexing state.
type IndexingStatus string

const (
	// StatusIdle indicates no run has been started.
	StatusIdle IndexingStatus = "idle"
	// StatusIndexing indicates indexing is in progress.
	StatusIndexing IndexingStatus = "indexing"
	// StatusReady indicates the last run completed.
	StatusReady IndexingStatus = "ready"
	// StatusError indicates the last run failed.
	StatusError IndexingStatus = "error"
)

// IndexingStage represents the current stage of a run.
type IndexingStage string

const (
	// StageScanning is the walk before any file was queued.
	StageScanning IndexingStage = "scanning"
	// StageIngesting is set once files are flowing to the workers.
	StageIngesting IndexingStage = "ingesting"
	// StageComplete is set when the run finished, successfully or not.
	StageComplete IndexingStage = "complete"
)

// IndexProgressSnapshot is an immutable snapshot of indexing progress.
type IndexProgressSnapshot struct {
	Status         string              `json:"status"`
	Stage          string              `json:"stage"`
	FilesQueued    int                 `json:"files_queued"`
	FilesProcessed int                 `json:"files_processed"`
	FilesFailed    int                 `json:"files_failed"`
	ChunksStored   int                 `json:"chunks_stored"`
	CurrentFile    string              `json:"current_file,omitempty"`
	ProgressPct    float64             `json:"progress_pct"`
	ElapsedSeconds int                 `json:"elapsed_seconds"`
	ErrorMessage   string              `json:"error_message,omitempty"`
	Summary        *index.IndexSummary `json:"summary,omitempty"`
}

// IndexProgress provides thread-safe tracking of indexing progress.
// It implements index.ProgressReporter.
type IndexProgress struct {
	mu sync.RWMutex

	status         IndexingStatus
	stage          IndexingStage
	filesQueued    int
	filesProcessed int
	filesFailed    int
	chunksStored   int
	currentFile    string
	startTime      time.Time
	finishTime     time.Time
	errorMessage   string
	summary        *index.IndexSummary
}

var _ index.ProgressReporter = (*IndexProgress)(nil)

// NewIndexProgress creates a new progress tracker initialized for indexing.
func NewIndexProgress() *IndexProgress {
	return &IndexProgress{
		status:    StatusIndexing,
		stage:     StageScanning,
		startTime: time.Now(),
	}
}

// FileQueued implements index.ProgressReporter.
func (p *IndexProgress) FileQueued(string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.filesQueued++
	p.stage = StageIngesting
}

// FileDone implements index.ProgressReporter.
func (p *IndexProgress) FileDone(path string, stats index.IngestStats, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.filesProcessed++
	p.currentFile = path
	if err != nil {
		p.filesFailed++
		return
	}
	if stats.Stored {
		p.chunksStored += stats.Chunks
	}
}

// SetError marks the run as failed. summary may be nil.
func (p *IndexProgress) SetError(message string, summary *index.IndexSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusError
	p.stage = StageComplete
	p.errorMessage = message
	p.summary = summary
	p.finishTime = time.Now()
}

// SetReady marks the run as complete.
func (p *IndexProgress) SetReady(summary index.IndexSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusReady
	p.stage = StageComplete
	p.currentFile = ""
	p.summary = &summary
	p.finishTime = time.Now()
}

// IsIndexing returns true if indexing is still in progress.
func (p *IndexProgress) IsIndexing() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.status == StatusIndexing
}

// Snapshot returns an immutable copy of the current progress state.
func (p *IndexProgress) Snapshot() IndexProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var progressPct float64
	if p.filesQueued > 0 {
		progressPct = float64(min(p.filesProcessed, p.filesQueued)) / float64(p.filesQueued) * 100.0
	}

	end := time.Now()
	if !p.finishTime.IsZero() {
		end = p.finishTime
	}

	var summary *index.IndexSummary
	if p.summary != nil {
		s := *p.summary
		s.SampleErrors = slices.Clone(p.summary.SampleErrors)
		summary = &s
	}

	return IndexProgressSnapshot{
		Status:         string(p.status),
		Stage:          string(p.stage),
		FilesQueued:    p.filesQueued,
		FilesProcessed: p.filesProcessed,
		FilesFailed:    p.filesFailed,
		ChunksStored:   p.chunksStored,
		CurrentFile:    p.currentFile,
		ProgressPct:    progressPct,
		ElapsedSeconds: int(end.Sub(p.startTime).Seconds()),
		ErrorMessage:   p.errorMessage,
		Summary:        summary,
	}
}
