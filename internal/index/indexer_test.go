package index

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
	"github.com/Aman-CERP/silo/internal/store"
)

func TestOptions_WithDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   Options
		want Options
	}{
		{"zero", Options{}, Options{Concurrency: 2, MaxSampleErrors: 20, QueueDepth: 2}},
		{"queue follows concurrency", Options{Concurrency: 5}, Options{Concurrency: 5, MaxSampleErrors: 20, QueueDepth: 5}},
		{"explicit kept", Options{MaxFiles: 3, Concurrency: 1, MaxSampleErrors: 4, QueueDepth: 9}, Options{MaxFiles: 3, Concurrency: 1, MaxSampleErrors: 4, QueueDepth: 9}},
		{"negative max files", Options{MaxFiles: -1}, Options{Concurrency: 2, MaxSampleErrors: 20, QueueDepth: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.withDefaults())
		})
	}
}

func TestRun_TextIngestedPDFSkipped(t *testing.T) {
	// Given: a.txt and b.pdf under a root that only allows txt
	ctx := context.Background()
	root := t.TempDir()
	a := filepath.Join(root, "a.txt")
	writeFile(t, a, "a b c d e")
	writeFile(t, filepath.Join(root, "b.pdf"), "%PDF-1.4 not really")
	st := openStore(t)
	emb := &trackingEmbedder{}
	ix := newTestIndexer(t, emb, st, 3, 1)

	// When: the root is indexed with W=3, O=1
	summary, err := ix.Run(ctx, []string{root}, txtPolicy(t), Options{Concurrency: 2}, nil)

	// Then: a.txt yields two stored chunks and b.pdf never reaches extraction
	require.NoError(t, err)
	assert.Equal(t, []string{root}, summary.Roots)
	assert.Equal(t, 2, summary.ScannedFiles)
	assert.Equal(t, 1, summary.ScannedDirs)
	assert.Equal(t, 1, summary.Ingested)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Stored)
	assert.Equal(t, 2, summary.Chunks)
	assert.Zero(t, summary.Errors)
	assert.Empty(t, summary.SampleErrors)
	assert.EqualValues(t, 1, emb.calls.Load())

	ids, err := st.ChunkIDsForPath(ctx, a)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		store.ChunkID(a, 0, "a b c"),
		store.ChunkID(a, 1, "c d e"),
	}, ids)
}

func TestRun_BoundedConcurrency(t *testing.T) {
	// Given: ten files, C=2 and a slow embedder
	root := t.TempDir()
	for i := range 10 {
		writeFile(t, filepath.Join(root, fmt.Sprintf("f%02d.txt", i)), fmt.Sprintf("file %d body text", i))
	}
	emb := &trackingEmbedder{delay: 20 * time.Millisecond}
	ix := newTestIndexer(t, emb, openStore(t), 50, 5)
	rep := &recordingReporter{}

	// When: the root is indexed
	summary, err := ix.Run(context.Background(), []string{root}, txtPolicy(t), Options{Concurrency: 2}, rep)

	// Then: every file is ingested and never more than C ran at once
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Ingested)
	assert.Equal(t, 10, summary.Stored)
	assert.Zero(t, summary.Errors)
	assert.LessOrEqual(t, emb.maxFlight.Load(), int64(2))
	assert.GreaterOrEqual(t, emb.maxFlight.Load(), int64(1))
	assert.EqualValues(t, 10, rep.queued.Load())
	assert.EqualValues(t, 10, rep.done.Load())
}

func TestRun_PerFileErrorsAreSampledNotFatal(t *testing.T) {
	// Given: three poisoned files among five
	root := t.TempDir()
	for i := range 5 {
		body := "healthy content"
		if i%2 == 0 {
			body = "poison content"
		}
		writeFile(t, filepath.Join(root, fmt.Sprintf("f%d.txt", i)), body)
	}
	ix := newTestIndexer(t, &trackingEmbedder{failOn: "poison"}, openStore(t), 10, 0)
	rep := &recordingReporter{}

	// When: indexing with a sample cap of two
	summary, err := ix.Run(context.Background(), []string{root}, txtPolicy(t),
		Options{Concurrency: 3, MaxSampleErrors: 2}, rep)

	// Then: failures are counted, sampled with their path and the run completes
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Ingested)
	assert.Equal(t, 3, summary.Errors)
	assert.Equal(t, 2, summary.Stored)
	require.Len(t, summary.SampleErrors, 2)
	for _, msg := range summary.SampleErrors {
		assert.Contains(t, msg, root)
		assert.Contains(t, msg, "model exploded")
	}
	assert.EqualValues(t, 3, rep.failed.Load())
}

func TestRun_MaxFilesStopsDispatch(t *testing.T) {
	// Given: six files and MaxFiles=4
	root := t.TempDir()
	for i := range 6 {
		writeFile(t, filepath.Join(root, fmt.Sprintf("f%d.txt", i)), "words")
	}
	emb := &trackingEmbedder{}
	ix := newTestIndexer(t, emb, openStore(t), 10, 0)

	// When: the root is indexed
	summary, err := ix.Run(context.Background(), []string{root}, txtPolicy(t),
		Options{Concurrency: 2, MaxFiles: 4}, nil)

	// Then: exactly four files are ingested
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Ingested)
	assert.Equal(t, 4, summary.Stored)
	assert.EqualValues(t, 4, emb.calls.Load())
}

func TestRun_CountsInvariantToScheduling(t *testing.T) {
	// Given: the same tree indexed at different concurrency levels
	root := t.TempDir()
	for i := range 8 {
		writeFile(t, filepath.Join(root, "sub", fmt.Sprintf("f%d.txt", i)), "x y z w")
	}
	writeFile(t, filepath.Join(root, "skip.bin"), "binary")

	var summaries []IndexSummary
	for _, c := range []int{1, 3, 8} {
		ix := newTestIndexer(t, &trackingEmbedder{}, openStore(t), 2, 1)
		s, err := ix.Run(context.Background(), []string{root}, txtPolicy(t), Options{Concurrency: c}, nil)
		require.NoError(t, err)
		summaries = append(summaries, s)
	}

	// Then: all counts agree
	for _, s := range summaries[1:] {
		assert.Equal(t, summaries[0], s)
	}
}

func TestRun_InvalidInput(t *testing.T) {
	ix := newTestIndexer(t, &trackingEmbedder{}, store.Disabled("off"), 10, 0)

	t.Run("no roots", func(t *testing.T) {
		_, err := ix.Run(context.Background(), nil, txtPolicy(t), Options{}, nil)
		require.Error(t, err)
		assert.Equal(t, silerrors.ErrCodeNoRoots, silerrors.GetCode(err))
	})

	t.Run("no policy", func(t *testing.T) {
		_, err := ix.Run(context.Background(), []string{t.TempDir()}, nil, Options{}, nil)
		require.Error(t, err)
		assert.Equal(t, silerrors.CategoryConfig, silerrors.GetCategory(err))
	})
}

func TestRun_CancelledContext(t *testing.T) {
	// Given: a cancelled context
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	emb := &trackingEmbedder{}
	ix := newTestIndexer(t, emb, openStore(t), 10, 0)

	// When: indexing starts
	summary, err := ix.Run(ctx, []string{root}, txtPolicy(t), Options{}, nil)

	// Then: the walk reports cancellation and nothing is embedded
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Ingested)
	assert.Zero(t, emb.calls.Load())
}

func TestRun_MissingRootIsSkipped(t *testing.T) {
	ix := newTestIndexer(t, &trackingEmbedder{}, openStore(t), 10, 0)

	summary, err := ix.Run(context.Background(), []string{filepath.Join(t.TempDir(), "nope")}, txtPolicy(t), Options{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Ingested)
}
