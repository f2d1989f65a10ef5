// Package ui renders indexing progress and index status on a terminal:
// an interactive bubbletea view on TTYs and line-oriented text elsewhere.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage is a phase of an indexing run as shown to the user.
type Stage int

const (
	// StageScanning is the walk before the first file is queued.
	StageScanning Stage = iota
	// StageIngesting runs while files flow through the workers.
	StageIngesting
	// StageComplete is shown once the run has finished.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageScanning:
		return "Scanning"
	case StageIngesting:
		return "Ingesting"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage tag for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageScanning:
		return "SCAN"
	case StageIngesting:
		return "INGEST"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent is a progress update. Done never exceeds Queued in a
// well-formed event; renderers clamp it anyway.
type ProgressEvent struct {
	Stage       Stage
	Done        int
	Queued      int
	CurrentFile string
	Message     string
}

// ErrorEvent is a per-file failure.
type ErrorEvent struct {
	File string
	Err  error
}

// EmbedderInfo describes the embedding backend used for a run.
type EmbedderInfo struct {
	Provider   string
	Model      string
	Dimensions int
	Degraded   string // why the configured provider is not in use, if so
}

// CompletionStats is the final report of a run.
type CompletionStats struct {
	ScannedFiles int
	ScannedDirs  int
	Ingested     int
	Skipped      int
	Stored       int
	Chunks       int
	Errors       int
	SampleErrors []string
	Duration     time.Duration
	Embedder     EmbedderInfo
	StoreReason  string // non-empty when the store is disabled
}

// Renderer displays indexing progress.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress updates the progress display.
	UpdateProgress(event ProgressEvent)

	// AddError records a failed file.
	AddError(event ErrorEvent)

	// Complete shows the final report.
	Complete(stats CompletionStats)

	// Stop stops the renderer and cleans up.
	Stop() error
}

// Config configures the UI renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	Subtitle   string // shown next to the title, usually the roots
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithSubtitle sets the text shown beside the title.
func WithSubtitle(s string) ConfigOption {
	return func(c *Config) {
		c.Subtitle = s
	}
}

// NewConfig creates a Config writing to output.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer returns the TUI renderer for interactive terminals and the
// plain renderer for pipes, CI, or when plain output is forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "BUILDKITE"} {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
