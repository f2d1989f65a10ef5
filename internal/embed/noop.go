package embed

import "context"

// NoopEmbedder is the disabled backend: every text maps to a zero vector.
type NoopEmbedder struct {
	dims int
}

var _ Embedder = (*NoopEmbedder)(nil)

// NewNoopEmbedder returns a NoopEmbedder of the given width (0 selects
// DefaultDimensions).
func NewNoopEmbedder(dims int) *NoopEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &NoopEmbedder{dims: dims}
}

func (e *NoopEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, e.dims)
	}
	return out, nil
}

func (e *NoopEmbedder) EmbedQuery(ctx context.Context, _ string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return make([]float32, e.dims), nil
}

func (e *NoopEmbedder) Dimensions() int { return e.dims }
func (e *NoopEmbedder) ModelName() string { return "noop" }
func (e *NoopEmbedder) Available(context.Context) bool { return false }
func (e *NoopEmbedder) Close() error { return nil }
