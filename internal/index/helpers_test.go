package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/silo/internal/embed"
	"github.com/Aman-CERP/silo/internal/extract"
	"github.com/Aman-CERP/silo/internal/policy"
	"github.com/Aman-CERP/silo/internal/store"
)

const testDims = 4

// trackingEmbedder returns deterministic vectors and records how many
// callers are inside EmbedTexts at once.
type trackingEmbedder struct {
	delay     time.Duration
	failOn    string // any text containing this fails the call
	calls     atomic.Int64
	inFlight  atomic.Int64
	maxFlight atomic.Int64
}

var _ embed.Embedder = (*trackingEmbedder)(nil)

func (e *trackingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		cur := e.maxFlight.Load()
		if n <= cur || e.maxFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	e.calls.Add(1)

	if e.delay > 0 {
		time.Sleep(e.delay)
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if e.failOn != "" && strings.Contains(text, e.failOn) {
			return nil, errors.New("model exploded")
		}
		out[i] = []float32{float32(len(text)) + 1, 1, 0, 0}
	}
	return out, nil
}

func (e *trackingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (e *trackingEmbedder) Dimensions() int                { return testDims }
func (e *trackingEmbedder) ModelName() string              { return "tracking" }
func (e *trackingEmbedder) Available(context.Context) bool { return true }
func (e *trackingEmbedder) Close() error                   { return nil }

// recordingReporter counts progress callbacks.
type recordingReporter struct {
	queued atomic.Int64
	done   atomic.Int64
	failed atomic.Int64
}

var _ ProgressReporter = (*recordingReporter)(nil)

func (r *recordingReporter) FileQueued(string) { r.queued.Add(1) }

func (r *recordingReporter) FileDone(_ string, _ IngestStats, err error) {
	r.done.Add(1)
	if err != nil {
		r.failed.Add(1)
	}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.Open(context.Background(), store.Options{DataDir: t.TempDir(), Dimensions: testDims, Model: "tracking"})
	require.True(t, s.IsEnabled(), "store disabled: %s", s.DisabledReason())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func txtPolicy(t *testing.T) *policy.FileSystemPolicy {
	t.Helper()
	p, err := policy.Compile(policy.Options{
		ExcludeGlobs:     policy.DefaultExcludeGlobs(),
		AllowExtensions:  []string{"txt"},
		MaxFileSizeBytes: policy.DefaultMaxFileSizeBytes,
		MaxTextBytes:     policy.DefaultMaxTextBytes,
	})
	require.NoError(t, err)
	return p
}

func newTestIndexer(t *testing.T, emb embed.Embedder, st *store.Store, size, overlap int) *Indexer {
	t.Helper()
	ix, err := NewIndexer(Dependencies{
		Extractor:    extract.New(),
		Embedder:     emb,
		Store:        st,
		ChunkSize:    size,
		ChunkOverlap: overlap,
	})
	require.NoError(t, err)
	return ix
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
