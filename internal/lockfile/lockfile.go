// Package lockfile provides cross-process exclusive locks backed by
// gofrs/flock. The store holds one on its data directory and background
// indexing holds another so that two processes never write the same index.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// Lock file names used under the data directory.
const (
	StoreLockName = "silo.lock"
	IndexLockName = "indexing.lock"
)

// FileLock is an exclusive advisory lock on a single file.
type FileLock struct {
	path  string
	flock *flock.Flock

	mu     sync.Mutex
	locked bool
}

// New returns an unlocked FileLock for <dir>/<name>.
func New(dir, name string) *FileLock {
	lockPath := filepath.Join(dir, name)
	return &FileLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Lock blocks until the lock is held. The directory is created if needed.
func (l *FileLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", l.path, err)
	}
	l.locked = true
	return nil
}

// TryLock attempts the lock without blocking. It returns false when another
// process holds it.
func (l *FileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked {
		return true, nil
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.path, err)
	}
	l.locked = acquired
	return acquired, nil
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *FileLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.path, err)
	}
	return nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// Locked reports whether this FileLock currently holds the lock.
func (l *FileLock) Locked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.locked
}
