package embed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPooledEmbedder_BoundsConcurrency(t *testing.T) {
	// Given: a pool of 2 over a slow backend
	inner := &countingEmbedder{dims: 4, delay: 20 * time.Millisecond}
	pool := NewPooledEmbedder(inner, 2)

	// When: 8 callers embed at once
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.EmbedTexts(context.Background(), []string{"text"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Then: never more than 2 ran inference together
	assert.LessOrEqual(t, inner.maxFlight.Load(), int64(2))
	assert.Equal(t, int64(8), inner.calls.Load())
}

func TestPooledEmbedder_WaitingCallerHonoursContext(t *testing.T) {
	// Given: a pool of 1 held by a slow call
	inner := &countingEmbedder{dims: 4, delay: 200 * time.Millisecond}
	pool := NewPooledEmbedder(inner, 1)
	go func() { _, _ = pool.EmbedQuery(context.Background(), "slow") }()
	time.Sleep(20 * time.Millisecond)

	// When: a second caller gives up quickly
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := pool.EmbedQuery(ctx, "fast")

	// Then: it returns the context error without reaching the backend
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPooledEmbedder_DefaultWorkers(t *testing.T) {
	pool := NewPooledEmbedder(NewStaticEmbedder(8), 0)

	assert.Equal(t, DefaultInferenceWorkers(), pool.Workers())
	assert.GreaterOrEqual(t, pool.Workers(), 1)
}

func TestPooledEmbedder_CardinalityGuard(t *testing.T) {
	pool := NewPooledEmbedder(&countingEmbedder{dims: 4, dropLast: true}, 1)

	_, err := pool.EmbedTexts(context.Background(), []string{"a", "b"})

	require.Error(t, err)
}
