package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
	"github.com/Aman-CERP/silo/internal/policy"
	"github.com/Aman-CERP/silo/internal/scanner"
)

// Indexer walks roots and ingests every accepted file through a
// Pipeline on a fixed pool of workers.
type Indexer struct {
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewIndexer creates an Indexer with injected dependencies.
func NewIndexer(deps Dependencies) (*Indexer, error) {
	p, err := NewPipeline(deps)
	if err != nil {
		return nil, err
	}
	return &Indexer{pipeline: p, logger: p.logger}, nil
}

// Pipeline returns the per-file pipeline the workers run.
func (ix *Indexer) Pipeline() *Pipeline {
	return ix.pipeline
}

// Run indexes roots under pol. The walk feeds a queue of
// opts.QueueDepth candidates and blocks while it is full; each of the
// opts.Concurrency workers processes one file at a time. A per-file
// failure is counted and sampled, never returned. The returned error is
// non-nil only for invalid input or when ctx ends the walk early, and
// the summary is valid in both cases.
func (ix *Indexer) Run(ctx context.Context, roots []string, pol *policy.FileSystemPolicy, opts Options, reporter ProgressReporter) (IndexSummary, error) {
	summary := IndexSummary{Roots: append([]string{}, roots...), SampleErrors: []string{}}
	if len(roots) == 0 {
		return summary, silerrors.New(silerrors.ErrCodeNoRoots, "no roots to index", nil).
			WithSuggestion("configure filesystem roots or pass them explicitly")
	}
	if pol == nil {
		return summary, silerrors.ConfigError("no filesystem policy configured", nil)
	}
	if reporter == nil {
		reporter = nopReporter{}
	}
	opts = opts.withDefaults()

	start := time.Now()
	ix.logger.Info("index_started",
		slog.Int("roots", len(roots)),
		slog.Int("concurrency", opts.Concurrency),
		slog.Int("queue_depth", opts.QueueDepth),
		slog.Int("max_files", opts.MaxFiles))

	agg := &aggregate{maxSamples: opts.MaxSampleErrors, samples: []string{}}
	queue := make(chan scanner.FileCandidate, opts.QueueDepth)

	var g errgroup.Group
	for i := 0; i < opts.Concurrency; i++ {
		g.Go(func() error {
			for cand := range queue {
				stats, err := ix.ingest(ctx, cand, pol)
				agg.record(cand.Path, stats, err)
				reporter.FileDone(cand.Path, stats, err)
			}
			return nil
		})
	}

	d := &dispatcher{
		ctx:      ctx,
		queue:    queue,
		maxFiles: opts.MaxFiles,
		reporter: reporter,
	}

	ix.logger.Debug("index_state", slog.String("state", "scanning"))
	walkStats, walkErr := scanner.Walk(ctx, roots, pol, d)
	close(queue)

	ix.logger.Debug("index_state", slog.String("state", "draining"), slog.Int("dispatched", d.accepted))
	_ = g.Wait()

	summary.ScannedFiles = walkStats.ScannedFiles
	summary.ScannedDirs = walkStats.ScannedDirs
	summary.Skipped = walkStats.Skipped
	summary.Ingested = d.accepted
	summary.Errors = agg.errors
	summary.Stored = agg.stored
	summary.Chunks = agg.chunks
	summary.SampleErrors = agg.samples

	ix.logger.Debug("index_state", slog.String("state", "completed"))
	ix.logger.Info("index_complete",
		slog.Int("scanned_files", summary.ScannedFiles),
		slog.Int("scanned_dirs", summary.ScannedDirs),
		slog.Int("ingested", summary.Ingested),
		slog.Int("skipped", summary.Skipped),
		slog.Int("errors", summary.Errors),
		slog.Int("stored", summary.Stored),
		slog.Int("chunks", summary.Chunks),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return summary, walkErr
}

// ingest runs the pipeline for one file unless the run was cancelled
// before the file started.
func (ix *Indexer) ingest(ctx context.Context, cand scanner.FileCandidate, pol *policy.FileSystemPolicy) (stats IngestStats, err error) {
	if err := ctx.Err(); err != nil {
		return IngestStats{Path: cand.Path}, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = silerrors.New(silerrors.ErrCodeInternal, fmt.Sprintf("panic: %v", r), nil)
		}
	}()
	return ix.pipeline.IngestFile(ctx, cand, pol)
}

// dispatcher is the walk's Visitor. It hands candidates to the workers
// and stops the walk once MaxFiles were accepted.
type dispatcher struct {
	ctx      context.Context
	queue    chan<- scanner.FileCandidate
	maxFiles int
	reporter ProgressReporter
	accepted int
}

var _ scanner.Visitor = (*dispatcher)(nil)

func (d *dispatcher) Candidate(c scanner.FileCandidate) bool {
	if d.maxFiles > 0 && d.accepted >= d.maxFiles {
		return false
	}
	select {
	case d.queue <- c:
	case <-d.ctx.Done():
		return false
	}
	d.accepted++
	d.reporter.FileQueued(c.Path)
	return d.maxFiles == 0 || d.accepted < d.maxFiles
}

func (d *dispatcher) Skip(scanner.SkipRecord) {}

// aggregate collects per-file outcomes from the workers.
type aggregate struct {
	mu         sync.Mutex
	errors     int
	stored     int
	chunks     int
	maxSamples int
	samples    []string
}

func (a *aggregate) record(path string, stats IngestStats, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err != nil {
		a.errors++
		if len(a.samples) < a.maxSamples {
			a.samples = append(a.samples, fmt.Sprintf("%s: %s", path, silerrors.Describe(err)))
		}
		return
	}
	if stats.Stored {
		a.stored++
		a.chunks += stats.Chunks
	}
}
