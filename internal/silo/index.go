package silo

import (
	"context"
	"strings"

	"github.com/Aman-CERP/silo/internal/async"
	"github.com/Aman-CERP/silo/internal/config"
	silerrors "github.com/Aman-CERP/silo/internal/errors"
	"github.com/Aman-CERP/silo/internal/index"
	"github.com/Aman-CERP/silo/internal/scanner"
)

// IndexOptions overrides the configured indexer settings for one run.
// Zero values fall back to the configuration.
type IndexOptions struct {
	MaxFiles    int
	Concurrency int

	// Reporter receives per-file progress. May be nil.
	Reporter index.ProgressReporter
}

// Index walks roots (the configured roots when empty) and ingests every
// accepted file. The policy is read once at the start of the run, so a
// concurrent SetIndexRoots does not affect a run in flight.
func (s *State) Index(ctx context.Context, roots []string, opts IndexOptions) (index.IndexSummary, error) {
	s.mu.RLock()
	cfg := s.cfg.Indexer
	if len(roots) == 0 {
		roots = s.cfg.Roots()
	} else {
		roots = expandRoots(roots)
	}
	s.mu.RUnlock()

	runOpts := index.Options{
		MaxFiles:        cfg.MaxFiles,
		Concurrency:     cfg.Concurrency,
		MaxSampleErrors: cfg.MaxSampleErrors,
		QueueDepth:      cfg.QueueDepth,
	}
	if opts.MaxFiles > 0 {
		runOpts.MaxFiles = opts.MaxFiles
	}
	if opts.Concurrency > 0 {
		runOpts.Concurrency = opts.Concurrency
	}

	return s.indexer.Run(ctx, roots, s.policy.Load(), runOpts, opts.Reporter)
}

// StartBackgroundIndex starts Index in the background and returns at
// once. It returns false when a run is already active in this process,
// and an ErrCodeStoreLocked error when another process is indexing the
// same data directory.
func (s *State) StartBackgroundIndex(ctx context.Context, roots []string, opts IndexOptions) (bool, error) {
	roots = append([]string(nil), roots...)
	return s.background.Start(ctx, func(ctx context.Context, progress *async.IndexProgress) (index.IndexSummary, error) {
		runOpts := opts
		runOpts.Reporter = progress
		return s.Index(ctx, roots, runOpts)
	})
}

// IndexStatus returns the progress of the current or last background run.
func (s *State) IndexStatus() async.IndexProgressSnapshot {
	return s.background.Status()
}

// WaitBackgroundIndex blocks until the active background run finishes
// or ctx is done.
func (s *State) WaitBackgroundIndex(ctx context.Context) error {
	return s.background.WaitContext(ctx)
}

// IngestOne runs the acceptance checks on a single path and, when it
// passes, the ingestion pipeline. A rejection carries the skip reason.
func (s *State) IngestOne(ctx context.Context, path string) (index.IngestStats, error) {
	path, err := cleanPath(path)
	if err != nil {
		return index.IngestStats{}, err
	}

	pol := s.policy.Load()
	if pol == nil {
		return index.IngestStats{}, silerrors.ConfigError(noSourceMessage, nil)
	}

	cand, err := scanner.Check(path, pol)
	if err != nil {
		return index.IngestStats{Path: path}, err
	}
	return s.indexer.Pipeline().IngestFile(ctx, cand, pol)
}

func expandRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, config.ExpandTilde(r))
	}
	return out
}
