package silo

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
	"github.com/Aman-CERP/silo/internal/policy"
)

func TestListFiles(t *testing.T) {
	// Given: a directory with a file and a subdirectory
	root := notesFixture(t)
	s := newTestState(t, testConfig(t, root), "")

	// When: listing it
	entries, err := s.ListFiles(context.Background(), root)

	// Then: entries are not recursive and typed
	require.NoError(t, err)
	byName := map[string]FileEntry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	require.Len(t, byName, 3)
	assert.True(t, byName["fox.txt"].IsFile)
	assert.False(t, byName["fox.txt"].IsDir)
	assert.True(t, byName["fruit"].IsDir)
	assert.Equal(t, filepath.Join(root, "fruit"), byName["fruit"].Path)
	assert.NotContains(t, byName, "basket.md")
}

func TestListFiles_Errors(t *testing.T) {
	s := newTestState(t, testConfig(t, t.TempDir()), "")
	ctx := context.Background()

	_, err := s.ListFiles(ctx, "")
	assert.Equal(t, silerrors.ErrCodeInvalidPath, silerrors.GetCode(err))

	_, err = s.ListFiles(ctx, "/tmp/../etc")
	assert.Equal(t, silerrors.ErrCodeInvalidPath, silerrors.GetCode(err))

	_, err = s.ListFiles(ctx, filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, silerrors.CategoryIO, silerrors.GetCategory(err))
}

func TestReadFile(t *testing.T) {
	// Given: a note
	root := notesFixture(t)
	s := newTestState(t, testConfig(t, root), "")

	// When: reading it
	got, err := s.ReadFile(context.Background(), filepath.Join(root, "fox.txt"))

	// Then: the text comes back whole
	require.NoError(t, err)
	assert.Equal(t, "the quick brown fox jumps over the lazy dog", got.Content)
	assert.False(t, got.Truncated)
}

func TestReadFile_CappedByPolicy(t *testing.T) {
	// Given: a policy with a tiny text cap
	root := t.TempDir()
	path := filepath.Join(root, "big.txt")
	writeFile(t, path, strings.Repeat("a", 100))
	s := newTestState(t, testConfig(t, root), "")
	s.policy.Store(policy.MustCompile(policy.Options{
		MaxFileSizeBytes: policy.DefaultMaxFileSizeBytes,
		MaxTextBytes:     10,
	}))

	// When: reading
	got, err := s.ReadFile(context.Background(), path)

	// Then: the content is cut at the cap
	require.NoError(t, err)
	assert.Len(t, got.Content, 10)
	assert.True(t, got.Truncated)
}

func TestReadFile_RejectsParentComponents(t *testing.T) {
	s := newTestState(t, testConfig(t, t.TempDir()), "")

	_, err := s.ReadFile(context.Background(), "notes/../../secret")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "path must not contain '..'")
}
