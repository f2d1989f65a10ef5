package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
)

const testDims = 4

func openTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	s := Open(context.Background(), Options{DataDir: dir, Dimensions: testDims, Model: "test"})
	require.True(t, s.IsEnabled(), "store disabled: %s", s.DisabledReason())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func rowsFor(path string, texts []string, vecs [][]float32) []ChunkRow {
	rows := make([]ChunkRow, len(texts))
	for i, text := range texts {
		rows[i] = ChunkRow{
			ID:         ChunkID(path, i, text),
			ChunkIndex: i,
			StartToken: i * 3,
			EndToken:   i*3 + 3,
			Text:       text,
			Vector:     vecs[i],
		}
	}
	return rows
}

var testMeta = FileMeta{ModTime: time.Unix(1700000000, 0), Size: 42, ContentHash: "abc"}

func TestDisabledStore(t *testing.T) {
	// Given: a disabled store
	s := Disabled("no backend")
	ctx := context.Background()

	// Then: writes succeed without effect and reads are empty
	assert.False(t, s.IsEnabled())
	assert.Equal(t, "no backend", s.DisabledReason())
	assert.NoError(t, s.AddChunk(ctx, ChunkRow{ID: "x", Vector: []float32{1}}))
	assert.NoError(t, s.AddDocument(ctx, "/a", "text"))
	assert.NoError(t, s.ReplaceFileChunks(ctx, "/a", testMeta, rowsFor("/a", []string{"t"}, [][]float32{{1, 0, 0, 0}})))

	hits, err := s.SearchByVector(ctx, []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = s.SearchByKeyword(ctx, "text", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	n, err := s.CountChunks(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	ids, err := s.ChunkIDsForPath(ctx, "/a")
	require.NoError(t, err)
	assert.Empty(t, ids)

	assert.False(t, s.Stats(ctx).Enabled)
	assert.NoError(t, s.Close())
}

func TestOpen_DisabledVariants(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		wantReason string
	}{
		{"by config with reason", Options{Disabled: true, DisabledReason: "off"}, "off"},
		{"by config", Options{Disabled: true}, DefaultDisabledReason},
		{"no data dir", Options{Dimensions: 4}, "no data directory configured"},
		{"no dimensions", Options{DataDir: "/tmp/x"}, "embedding dimension is unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Open(context.Background(), tt.opts)
			assert.False(t, s.IsEnabled())
			assert.Equal(t, tt.wantReason, s.DisabledReason())
		})
	}
}

func TestOpen_LockedDataDirDisables(t *testing.T) {
	// Given: a store holding the data directory
	dir := t.TempDir()
	openTestStore(t, dir)

	// When: a second store opens the same directory
	second := Open(context.Background(), Options{DataDir: dir, Dimensions: testDims})

	// Then: it is disabled with the lock reason
	assert.False(t, second.IsEnabled())
	assert.Equal(t, LockedReason, second.DisabledReason())
}

func TestReplaceFileChunks_ReplacesSetAndIsIdempotent(t *testing.T) {
	// Given: a file with two chunks
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()
	rows := rowsFor("/docs/a.txt", []string{"a b c", "c d e"}, [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}})
	require.NoError(t, s.ReplaceFileChunks(ctx, "/docs/a.txt", testMeta, rows))
	first, err := s.ChunkIDsForPath(ctx, "/docs/a.txt")
	require.NoError(t, err)

	// When: the same content is ingested again
	rows = rowsFor("/docs/a.txt", []string{"a b c", "c d e"}, [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}})
	require.NoError(t, s.ReplaceFileChunks(ctx, "/docs/a.txt", testMeta, rows))
	second, err := s.ChunkIDsForPath(ctx, "/docs/a.txt")
	require.NoError(t, err)

	// Then: the id set is identical and nothing was duplicated
	assert.Equal(t, first, second)
	assert.Len(t, second, 2)
	n, err := s.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// When: the file shrinks to one chunk
	rows = rowsFor("/docs/a.txt", []string{"new"}, [][]float32{{0, 0, 1, 0}})
	require.NoError(t, s.ReplaceFileChunks(ctx, "/docs/a.txt", testMeta, rows))

	// Then: only the new chunk remains, in the table and the graph
	ids, err := s.ChunkIDsForPath(ctx, "/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{ChunkID("/docs/a.txt", 0, "new")}, ids)
	st := s.Stats(ctx)
	assert.Equal(t, 1, st.Chunks)
	assert.Equal(t, 1, st.GraphNodes)
	assert.Equal(t, 4, st.Orphans)
}

func TestReplaceFileChunks_OtherPathsUntouched(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()
	require.NoError(t, s.ReplaceFileChunks(ctx, "/a", testMeta, rowsFor("/a", []string{"x"}, [][]float32{{1, 0, 0, 0}})))
	require.NoError(t, s.ReplaceFileChunks(ctx, "/a/b", testMeta, rowsFor("/a/b", []string{"y"}, [][]float32{{0, 1, 0, 0}})))

	require.NoError(t, s.ReplaceFileChunks(ctx, "/a", testMeta, nil))

	n, err := s.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	ids, err := s.ChunkIDsForPath(ctx, "/a/b")
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestReplaceFileChunks_DimensionMismatchLeavesStoreUnchanged(t *testing.T) {
	// Given: a stored file
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()
	require.NoError(t, s.ReplaceFileChunks(ctx, "/a", testMeta, rowsFor("/a", []string{"x"}, [][]float32{{1, 0, 0, 0}})))

	// When: replacing it with a wrongly sized vector
	err := s.ReplaceFileChunks(ctx, "/a", testMeta, rowsFor("/a", []string{"y", "z"}, [][]float32{{1, 0, 0, 0}, {1, 0}}))

	// Then: a dimension mismatch is reported and the old row survives
	require.Error(t, err)
	assert.Equal(t, silerrors.ErrCodeDimensionMismatch, silerrors.GetCode(err))
	assert.True(t, silerrors.IsCategory(err, silerrors.CategoryStorage))
	ids, err := s.ChunkIDsForPath(ctx, "/a")
	require.NoError(t, err)
	assert.Equal(t, []string{ChunkID("/a", 0, "x")}, ids)
}

func TestSearchByVector_NearestFirstWithPreview(t *testing.T) {
	// Given: three files pointing in different directions
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()
	long := strings.Repeat("é", PreviewChars+10)
	require.NoError(t, s.ReplaceFileChunks(ctx, "/north", testMeta, rowsFor("/north", []string{"north"}, [][]float32{{1, 0, 0, 0}})))
	require.NoError(t, s.ReplaceFileChunks(ctx, "/east", testMeta, rowsFor("/east", []string{long}, [][]float32{{0, 1, 0, 0}})))
	require.NoError(t, s.ReplaceFileChunks(ctx, "/northeast", testMeta, rowsFor("/northeast", []string{"ne"}, [][]float32{{1, 1, 0, 0}})))

	// When: searching near north-east-ish
	hits, err := s.SearchByVector(ctx, []float32{0.9, 0.5, 0, 0}, 2)

	// Then: the two closest come back, closest first
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "/northeast", hits[0].Path)
	assert.Equal(t, "/north", hits[1].Path)
	assert.LessOrEqual(t, hits[0].Score, hits[1].Score)

	// And: long previews are capped with an ellipsis
	hits, err = s.SearchByVector(ctx, []float32{0, 1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "/east", hits[0].Path)
	assert.InDelta(t, 0.0, hits[0].Score, 1e-6)
	assert.Equal(t, strings.Repeat("é", PreviewChars)+"…", hits[0].ContentPreview)
}

func TestSearchByVector_EdgeCases(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	hits, err := s.SearchByVector(ctx, []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits, "empty store")

	require.NoError(t, s.AddDocument(ctx, "/doc", "zero vector text"))
	hits, err = s.SearchByVector(ctx, []float32{0, 0, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits, "zero query")

	_, err = s.SearchByVector(ctx, []float32{1, 0}, 3)
	assert.Equal(t, silerrors.ErrCodeDimensionMismatch, silerrors.GetCode(err))
}

func TestSearchByKeyword(t *testing.T) {
	// Given: two documents
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()
	require.NoError(t, s.AddDocument(ctx, "/recipes.txt", "sourdough bread needs a starter"))
	require.NoError(t, s.AddDocument(ctx, "/taxes.txt", "invoice payment for the accountant"))

	// When: searching by words, including FTS operators in the input
	hits, err := s.SearchByKeyword(ctx, "Bread AND \"starter\"", 5)

	// Then: the matching document is found
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "/recipes.txt", hits[0].Path)
	assert.Greater(t, hits[0].Score, 0.0)

	hits, err = s.SearchByKeyword(ctx, "  ...  ", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestAddChunk_ReplacesKeywordEntry(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()
	row := ChunkRow{ID: "fixed", Path: "/p", Text: "alpha", Vector: []float32{1, 0, 0, 0}}
	require.NoError(t, s.AddChunk(ctx, row))
	row.Text = "beta"
	require.NoError(t, s.AddChunk(ctx, row))

	hits, err := s.SearchByKeyword(ctx, "alpha", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = s.SearchByKeyword(ctx, "beta", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestOpen_RebuildsGraphFromDisk(t *testing.T) {
	// Given: a store with rows that is closed
	dir := t.TempDir()
	ctx := context.Background()
	s := Open(ctx, Options{DataDir: dir, Dimensions: testDims})
	require.True(t, s.IsEnabled())
	require.NoError(t, s.ReplaceFileChunks(ctx, "/a", testMeta, rowsFor("/a", []string{"x", "y"}, [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}})))
	require.NoError(t, s.Close())

	// When: it is reopened
	reopened := openTestStore(t, dir)

	// Then: vectors are searchable again
	hits, err := reopened.SearchByVector(ctx, []float32{0, 1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].ChunkIndex)
	assert.Equal(t, 2, reopened.Stats(ctx).GraphNodes)
}

func TestOpen_DimensionChangeDisablesUntilReset(t *testing.T) {
	// Given: an index built with 4 dimensions
	dir := t.TempDir()
	ctx := context.Background()
	s := Open(ctx, Options{DataDir: dir, Dimensions: testDims})
	require.NoError(t, s.AddChunk(ctx, ChunkRow{ID: "a", Path: "/a", Vector: []float32{1, 0, 0, 0}}))
	require.NoError(t, s.Close())

	// When: reopened with 8 dimensions
	changed := Open(ctx, Options{DataDir: dir, Dimensions: 8})

	// Then: it is disabled with a reason naming both sizes
	assert.False(t, changed.IsEnabled())
	assert.Contains(t, changed.DisabledReason(), "4-dimensional")

	// When: reopened with Reset
	reset := Open(ctx, Options{DataDir: dir, Dimensions: 8, Reset: true})
	defer func() { _ = reset.Close() }()

	// Then: it is enabled and empty
	require.True(t, reset.IsEnabled())
	n, err := reset.CountChunks(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))
	exact := strings.Repeat("x", PreviewChars)
	assert.Equal(t, exact, Preview(exact))
	assert.Equal(t, exact+"…", Preview(exact+"y"))
}

func TestVectorEncoding(t *testing.T) {
	v := []float32{1.5, -2, 0, 3.25}
	b := encodeVector(v)
	assert.Len(t, b, 16)
	assert.Equal(t, []byte{0, 0, 0xc0, 0x3f}, b[:4])

	got, err := decodeVector(b)
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
