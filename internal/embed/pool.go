package embed

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// DefaultInferenceWorkers is half the CPUs, at least one.
func DefaultInferenceWorkers() int {
	return max(1, runtime.NumCPU()/2)
}

// PooledEmbedder bounds how many calls may run CPU-bound inference on the
// wrapped embedder at once. Callers beyond the limit wait on a weighted
// semaphore and give up when their context is done.
type PooledEmbedder struct {
	inner   Embedder
	sem     *semaphore.Weighted
	workers int
}

var _ Embedder = (*PooledEmbedder)(nil)

// NewPooledEmbedder wraps inner with a pool of workers slots (0 selects
// DefaultInferenceWorkers).
func NewPooledEmbedder(inner Embedder, workers int) *PooledEmbedder {
	if workers <= 0 {
		workers = DefaultInferenceWorkers()
	}
	return &PooledEmbedder{
		inner:   inner,
		sem:     semaphore.NewWeighted(int64(workers)),
		workers: workers,
	}
}

// Workers returns the pool size.
func (p *PooledEmbedder) Workers() int { return p.workers }

func (p *PooledEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	out, err := p.inner.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	if err := CheckCardinality(len(texts), out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *PooledEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)
	return p.inner.EmbedQuery(ctx, text)
}

func (p *PooledEmbedder) Dimensions() int { return p.inner.Dimensions() }
func (p *PooledEmbedder) ModelName() string { return p.inner.ModelName() }
func (p *PooledEmbedder) Available(ctx context.Context) bool { return p.inner.Available(ctx) }
func (p *PooledEmbedder) Close() error { return p.inner.Close() }
