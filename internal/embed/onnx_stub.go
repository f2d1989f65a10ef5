//go:build !cgo

package embed

import (
	"context"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
)

// ONNXEmbedder is unavailable in binaries built without cgo.
type ONNXEmbedder struct{}

var _ Embedder = (*ONNXEmbedder)(nil)

// NewONNXEmbedder always fails without cgo.
func NewONNXEmbedder(ONNXConfig) (*ONNXEmbedder, error) {
	return nil, silerrors.New(silerrors.ErrCodeEmbeddingInit,
		"onnx embedder requires a cgo-enabled build", nil).
		WithSuggestion("rebuild with CGO_ENABLED=1 or use the ollama or static provider")
}

func (e *ONNXEmbedder) EmbedTexts(context.Context, []string) ([][]float32, error) {
	return nil, silerrors.EmbeddingError("onnx embedder requires a cgo-enabled build", nil)
}

func (e *ONNXEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, silerrors.EmbeddingError("onnx embedder requires a cgo-enabled build", nil)
}

func (e *ONNXEmbedder) Dimensions() int { return 0 }
func (e *ONNXEmbedder) ModelName() string { return "onnx" }
func (e *ONNXEmbedder) Available(context.Context) bool { return false }
func (e *ONNXEmbedder) Close() error { return nil }
