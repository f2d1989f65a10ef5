package async

import (
	"context"
	"log/slog"
	"sync"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
	"github.com/Aman-CERP/silo/internal/index"
	"github.com/Aman-CERP/silo/internal/lockfile"
)

// IndexFunc performs one indexing run, reporting into progress.
type IndexFunc func(ctx context.Context, progress *IndexProgress) (index.IndexSummary, error)

// IndexerConfig configures the BackgroundIndexer.
type IndexerConfig struct {
	// DataDir holds the indexing lock.
	DataDir string
}

// BackgroundIndexer runs one indexing run at a time in a background
// goroutine. A run holds the data directory's indexing lock, so another
// process cannot index the same directory concurrently.
type BackgroundIndexer struct {
	config IndexerConfig
	lock   *lockfile.FileLock

	mu       sync.Mutex
	running  bool
	progress *IndexProgress
	cancel   context.CancelFunc
	doneCh   chan struct{}
	err      error
}

// NewBackgroundIndexer creates a new background indexer.
func NewBackgroundIndexer(cfg IndexerConfig) *BackgroundIndexer {
	return &BackgroundIndexer{
		config: cfg,
		lock:   lockfile.New(cfg.DataDir, lockfile.IndexLockName),
	}
}

// IsRunning returns true if a run is in flight.
func (b *BackgroundIndexer) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Start launches fn in a background goroutine and returns immediately.
// It returns false without starting anything while a run is already
// active. An error means the indexing lock is held by another process.
func (b *BackgroundIndexer) Start(ctx context.Context, fn IndexFunc) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return false, nil
	}

	acquired, err := b.lock.TryLock()
	if err != nil {
		return false, silerrors.IOError("failed to acquire indexing lock", err)
	}
	if !acquired {
		return false, silerrors.New(silerrors.ErrCodeStoreLocked,
			"another process is indexing this data directory", nil).
			WithDetail("lock", b.lock.Path())
	}

	// The run outlives the request that started it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.running = true
	b.progress = NewIndexProgress()
	b.cancel = cancel
	b.doneCh = make(chan struct{})
	b.err = nil

	go b.run(runCtx, fn, b.progress, b.doneCh)
	return true, nil
}

func (b *BackgroundIndexer) run(ctx context.Context, fn IndexFunc, progress *IndexProgress, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := b.lock.Unlock(); err != nil {
			slog.Warn("indexing_lock_release_failed", slog.String("error", err.Error()))
		}
		b.mu.Lock()
		b.running = false
		b.cancel()
		b.mu.Unlock()
	}()

	summary, err := fn(ctx, progress)
	if err != nil {
		progress.SetError(silerrors.Describe(err), &summary)
		slog.Warn("background_index_failed", slog.String("error", err.Error()))
		b.mu.Lock()
		b.err = err
		b.mu.Unlock()
		return
	}
	progress.SetReady(summary)
}

// Status returns the progress of the current or most recent run.
func (b *BackgroundIndexer) Status() IndexProgressSnapshot {
	b.mu.Lock()
	progress := b.progress
	b.mu.Unlock()

	if progress == nil {
		return IndexProgressSnapshot{Status: string(StatusIdle)}
	}
	return progress.Snapshot()
}

// Stop cancels the active run, if any, and waits for it to finish.
func (b *BackgroundIndexer) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	cancel, done := b.cancel, b.doneCh
	b.mu.Unlock()

	cancel()
	<-done
}

// Wait blocks until the active run completes and returns its error.
// It returns immediately when nothing was started.
func (b *BackgroundIndexer) Wait() error {
	return b.WaitContext(context.Background())
}

// WaitContext is Wait bounded by ctx. A cancelled ctx returns ctx.Err()
// and leaves the run going.
func (b *BackgroundIndexer) WaitContext(ctx context.Context) error {
	b.mu.Lock()
	done := b.doneCh
	b.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// IndexLockHeld reports whether some other holder has the indexing lock
// of dataDir.
func IndexLockHeld(dataDir string) bool {
	l := lockfile.New(dataDir, lockfile.IndexLockName)
	acquired, err := l.TryLock()
	if err != nil {
		return false
	}
	if acquired {
		_ = l.Unlock()
		return false
	}
	return true
}
