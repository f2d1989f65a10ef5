// Package index drives bulk ingestion: it walks the configured roots,
// fans accepted files out to a fixed pool of workers and aggregates the
// per-file outcomes into a run summary.
package index

import (
	"github.com/Aman-CERP/silo/internal/extract"
)

// Defaults applied when Options leaves a field at zero.
const (
	DefaultConcurrency     = 2
	DefaultMaxSampleErrors = 20
)

// Options tunes one indexing run.
type Options struct {
	// MaxFiles stops dispatching once this many files were accepted.
	// Zero means unlimited.
	MaxFiles int

	// Concurrency is the number of workers, and so the number of files
	// processed at once.
	Concurrency int

	MaxSampleErrors int

	// QueueDepth is the capacity of the queue between the walk and the
	// workers. Zero means Concurrency.
	QueueDepth int
}

func (o Options) withDefaults() Options {
	if o.Concurrency < 1 {
		o.Concurrency = DefaultConcurrency
	}
	if o.MaxSampleErrors <= 0 {
		o.MaxSampleErrors = DefaultMaxSampleErrors
	}
	if o.QueueDepth <= 0 {
		o.QueueDepth = o.Concurrency
	}
	if o.MaxFiles < 0 {
		o.MaxFiles = 0
	}
	return o
}

// IndexSummary aggregates one run. Counts are independent of the order
// in which workers finish.
type IndexSummary struct {
	Roots        []string `json:"roots"`
	ScannedFiles int      `json:"scanned_files"`
	ScannedDirs  int      `json:"scanned_dirs"`
	Ingested     int      `json:"ingested"` // accepted and dispatched
	Skipped      int      `json:"skipped"`
	Errors       int      `json:"errors"`
	Stored       int      `json:"stored"` // files whose chunks were persisted
	Chunks       int      `json:"chunks"`
	SampleErrors []string `json:"sample_errors"`
}

// IngestStats describes the outcome of ingesting one file.
type IngestStats struct {
	Path               string       `json:"path"`
	ExtractedKind      extract.Kind `json:"extracted_kind"`
	ExtractedChars     int          `json:"extracted_chars"`
	Truncated          bool         `json:"truncated"`
	ChunkTokens        int          `json:"chunk_tokens"`
	ChunkOverlapTokens int          `json:"chunk_overlap_tokens"`
	Chunks             int          `json:"chunks"`
	Stored             bool         `json:"stored"`
}

// ProgressReporter observes a run. Calls arrive from several goroutines
// and implementations must be safe for concurrent use.
type ProgressReporter interface {
	// FileQueued is called when a candidate is handed to the workers.
	FileQueued(path string)
	// FileDone is called once per dispatched file, err is nil on success.
	FileDone(path string, stats IngestStats, err error)
}

type nopReporter struct{}

func (nopReporter) FileQueued(string)                   {}
func (nopReporter) FileDone(string, IngestStats, error) {}
