package ui

import (
	"sync"

	"github.com/Aman-CERP/silo/internal/index"
)

// Reporter feeds indexer callbacks into a Renderer. Events reach the
// renderer in the order the callbacks were serialized.
type Reporter struct {
	renderer Renderer

	mu     sync.Mutex
	queued int
	done   int
}

var _ index.ProgressReporter = (*Reporter)(nil)

// NewReporter returns a Reporter that drives r.
func NewReporter(r Renderer) *Reporter {
	return &Reporter{renderer: r}
}

// FileQueued implements index.ProgressReporter.
func (p *Reporter) FileQueued(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.queued++
	p.renderer.UpdateProgress(ProgressEvent{Stage: StageIngesting, Done: p.done, Queued: p.queued})
}

// FileDone implements index.ProgressReporter.
func (p *Reporter) FileDone(path string, _ index.IngestStats, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	if err != nil {
		p.renderer.AddError(ErrorEvent{File: path, Err: err})
	}
	p.renderer.UpdateProgress(ProgressEvent{
		Stage:       StageIngesting,
		Done:        p.done,
		Queued:      max(p.queued, p.done),
		CurrentFile: path,
	})
}

// Complete forwards the run summary to the renderer.
func (p *Reporter) Complete(stats CompletionStats) {
	p.renderer.Complete(stats)
}

// StatsFromSummary builds the completion report for a finished run.
func StatsFromSummary(s index.IndexSummary) CompletionStats {
	return CompletionStats{
		ScannedFiles: s.ScannedFiles,
		ScannedDirs:  s.ScannedDirs,
		Ingested:     s.Ingested,
		Skipped:      s.Skipped,
		Stored:       s.Stored,
		Chunks:       s.Chunks,
		Errors:       s.Errors,
		SampleErrors: s.SampleErrors,
	}
}
