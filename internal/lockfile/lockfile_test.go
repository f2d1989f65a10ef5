package lockfile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_TryLockIsExclusive(t *testing.T) {
	// Given: two locks on the same file
	dir := t.TempDir()
	first := New(dir, StoreLockName)
	second := New(dir, StoreLockName)

	// When: the first takes it
	ok, err := first.TryLock()
	require.NoError(t, err)
	require.True(t, ok)

	// Then: the second cannot until it is released
	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, second.Locked())

	require.NoError(t, first.Unlock())
	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Unlock())
}

func TestFileLock_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	l := New(dir, IndexLockName)

	require.NoError(t, l.Lock())
	defer func() { _ = l.Unlock() }()

	assert.FileExists(t, filepath.Join(dir, IndexLockName))
	assert.Equal(t, filepath.Join(dir, IndexLockName), l.Path())
	assert.True(t, l.Locked())
}

func TestFileLock_UnlockIsIdempotent(t *testing.T) {
	l := New(t.TempDir(), StoreLockName)

	assert.NoError(t, l.Unlock())

	ok, err := l.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = l.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, l.Unlock())
	assert.NoError(t, l.Unlock())
	assert.False(t, l.Locked())
}
