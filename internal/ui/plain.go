package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer writes one line per finished file, for pipes and CI.
type PlainRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	stage  Stage
	errors int
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output, stage: StageScanning}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	return nil
}

// UpdateProgress implements Renderer. Events without a file or message
// only advance the stage.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stage = event.Stage

	msg := event.Message
	if msg == "" {
		msg = event.CurrentFile
	}
	if msg == "" {
		return
	}

	if event.Queued > 0 {
		_, _ = fmt.Fprintf(r.out, "[%s] %d/%d %s\n", event.Stage.Icon(), min(event.Done, event.Queued), event.Queued, msg)
		return
	}
	_, _ = fmt.Fprintf(r.out, "[%s] %s\n", event.Stage.Icon(), msg)
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors++
	if event.File != "" {
		_, _ = fmt.Fprintf(r.out, "ERROR: %s: %v\n", event.File, event.Err)
		return
	}
	_, _ = fmt.Fprintf(r.out, "ERROR: %v\n", event.Err)
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stage = StageComplete
	writeSummary(r.out, stats)
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}

// writeSummary prints the completion report shared by the plain renderer
// and the TUI's final frame.
func writeSummary(out io.Writer, stats CompletionStats) {
	_, _ = fmt.Fprintf(out, "Indexed %d files (%d chunks) in %s\n",
		stats.Stored, stats.Chunks, stats.Duration.Round(100*time.Millisecond))
	_, _ = fmt.Fprintf(out, "  Scanned:  %d files, %d dirs\n", stats.ScannedFiles, stats.ScannedDirs)
	_, _ = fmt.Fprintf(out, "  Ingested: %d\n", stats.Ingested)
	_, _ = fmt.Fprintf(out, "  Skipped:  %d\n", stats.Skipped)
	_, _ = fmt.Fprintf(out, "  Errors:   %d\n", stats.Errors)

	for _, e := range stats.SampleErrors {
		_, _ = fmt.Fprintf(out, "    - %s\n", e)
	}
	if stats.Errors > len(stats.SampleErrors) && len(stats.SampleErrors) > 0 {
		_, _ = fmt.Fprintf(out, "    ... and %d more\n", stats.Errors-len(stats.SampleErrors))
	}

	if stats.Embedder.Provider != "" {
		_, _ = fmt.Fprintf(out, "Embedder: %s (%s, %d dims)\n",
			stats.Embedder.Provider, stats.Embedder.Model, stats.Embedder.Dimensions)
		if stats.Embedder.Degraded != "" {
			_, _ = fmt.Fprintf(out, "  degraded: %s\n", stats.Embedder.Degraded)
		}
	}
	if stats.StoreReason != "" {
		_, _ = fmt.Fprintf(out, "Store disabled: %s\n", stats.StoreReason)
	}
}
