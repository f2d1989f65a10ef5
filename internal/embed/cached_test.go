package embed

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder records calls and concurrent callers.
type countingEmbedder struct {
	dims      int
	delay     time.Duration
	dropLast  bool
	calls     atomic.Int64
	texts     atomic.Int64
	inFlight  atomic.Int64
	maxFlight atomic.Int64
	mu        sync.Mutex
	seen      []string
}

func (m *countingEmbedder) enter() func() {
	n := m.inFlight.Add(1)
	for {
		cur := m.maxFlight.Load()
		if n <= cur || m.maxFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	return func() { m.inFlight.Add(-1) }
}

func (m *countingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	defer m.enter()()
	m.calls.Add(1)
	m.texts.Add(int64(len(texts)))
	m.mu.Lock()
	m.seen = append(m.seen, texts...)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, m.dims)
		v[0] = float32(len(text))
		out[i] = v
	}
	if m.dropLast && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *countingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	out, err := m.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *countingEmbedder) Dimensions() int { return m.dims }
func (m *countingEmbedder) ModelName() string { return "counting" }
func (m *countingEmbedder) Available(context.Context) bool { return true }
func (m *countingEmbedder) Close() error { return nil }

func TestCachedEmbedder_QueryHitsCache(t *testing.T) {
	// Given: a cached embedder
	inner := &countingEmbedder{dims: 4}
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	// When: the same query is embedded twice
	first, err := cached.EmbedQuery(ctx, "hello")
	require.NoError(t, err)
	second, err := cached.EmbedQuery(ctx, "hello")
	require.NoError(t, err)

	// Then: the backend was called once
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), inner.calls.Load())
	assert.Equal(t, 1, cached.Len())
}

func TestCachedEmbedder_TextsOnlySendsMisses(t *testing.T) {
	// Given: one text already cached
	inner := &countingEmbedder{dims: 4}
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()
	_, err := cached.EmbedQuery(ctx, "bb")
	require.NoError(t, err)

	// When: embedding a batch containing it
	out, err := cached.EmbedTexts(ctx, []string{"a", "bb", "ccc"})

	// Then: only the misses reach the backend and order is preserved
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, float32(1), out[0][0])
	assert.Equal(t, float32(2), out[1][0])
	assert.Equal(t, float32(3), out[2][0])
	assert.Equal(t, int64(3), inner.texts.Load())
}

func TestCachedEmbedder_AllCachedSkipsBackend(t *testing.T) {
	inner := &countingEmbedder{dims: 4}
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()
	_, err := cached.EmbedTexts(ctx, []string{"x", "y"})
	require.NoError(t, err)

	_, err = cached.EmbedTexts(ctx, []string{"y", "x"})

	require.NoError(t, err)
	assert.Equal(t, int64(1), inner.calls.Load())
}

func TestCachedEmbedder_RejectsShortBackendResult(t *testing.T) {
	// Given: a backend that drops a vector
	inner := &countingEmbedder{dims: 4, dropLast: true}
	cached := NewCachedEmbedder(inner, 10)

	// When: embedding
	_, err := cached.EmbedTexts(context.Background(), []string{"a", "b"})

	// Then: the mismatch is an error, nothing is cached
	assert.Error(t, err)
	assert.Zero(t, cached.Len())
}

func TestCachedEmbedder_Evicts(t *testing.T) {
	inner := &countingEmbedder{dims: 4}
	cached := NewCachedEmbedder(inner, 2)
	ctx := context.Background()

	_, err := cached.EmbedTexts(ctx, []string{"a", "b", "c"})

	require.NoError(t, err)
	assert.Equal(t, 2, cached.Len())
}

func TestCachedEmbedder_Passthrough(t *testing.T) {
	inner := &countingEmbedder{dims: 8}
	cached := NewCachedEmbedder(inner, 0)

	assert.Equal(t, 8, cached.Dimensions())
	assert.Equal(t, "counting", cached.ModelName())
	assert.True(t, cached.Available(context.Background()))
	assert.Same(t, inner, cached.Inner())
}
