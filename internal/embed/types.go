// Package embed maps text to fixed-dimension float vectors.
//
// Backends share the Embedder interface; wrappers add caching
// (CachedEmbedder) and bounded CPU concurrency (PooledEmbedder). NewFromConfig
// selects a backend and degrades to the noop embedder when the selected one
// cannot start.
package embed

import (
	"context"
	"fmt"
	"math"
	"time"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
)

// Common embedding constants
const (
	// DefaultDimensions is the vector width used when none is configured.
	DefaultDimensions = 384

	// DefaultBatchSize is the default batch size for backend requests.
	DefaultBatchSize = 32

	// MaxBatchSize prevents memory exhaustion from oversized requests.
	MaxBatchSize = 256

	// DefaultMaxTokens bounds the tokenized input for local models.
	DefaultMaxTokens = 256

	// DefaultTimeout is the per-request timeout for HTTP backends.
	DefaultTimeout = 60 * time.Second
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// EmbedTexts returns exactly one vector per input, in order, or an error.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available reports whether the backend produces real embeddings.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// CheckCardinality fails when a backend returned a different number of
// vectors than it was given texts. Results are never padded or cut.
func CheckCardinality(in int, out [][]float32) error {
	if len(out) != in {
		return silerrors.New(silerrors.ErrCodeCardinality,
			fmt.Sprintf("embedding backend returned %d vectors for %d texts", len(out), in), nil)
	}
	return nil
}

// normalizeVector scales v to unit length in place. Zero vectors are left
// unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sumSquares)
	for i, val := range v {
		v[i] = float32(float64(val) * inv)
	}
	return v
}
