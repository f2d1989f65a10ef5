//go:build cgo

package embed

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initRuntime loads the onnxruntime shared library once per process.
func initRuntime(libraryPath string) error {
	ortInitOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// ONNXEmbedder runs a sentence-embedding model through ONNX Runtime. The
// model takes input_ids, attention_mask and token_type_ids of shape
// [1, max_tokens] and produces a pooled [1, dims] tensor named "output".
type ONNXEmbedder struct {
	modelPath string
	dims      int
	tokenizer WordHashTokenizer

	mu            sync.Mutex
	session       *ort.AdvancedSession
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
}

var _ Embedder = (*ONNXEmbedder)(nil)

// NewONNXEmbedder loads the model at cfg.ModelPath.
func NewONNXEmbedder(cfg ONNXConfig) (*ONNXEmbedder, error) {
	if cfg.ModelPath == "" {
		return nil, silerrors.New(silerrors.ErrCodeEmbeddingInit, "onnx_model_path is not set", nil)
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, silerrors.New(silerrors.ErrCodeEmbeddingInit, "failed to initialize ONNX runtime", err).
			WithSuggestion("set embeddings.onnx_library_path to the onnxruntime shared library")
	}

	e := &ONNXEmbedder{
		modelPath: cfg.ModelPath,
		dims:      cfg.Dimensions,
		tokenizer: WordHashTokenizer{MaxTokens: cfg.MaxTokens},
	}
	if err := e.open(int64(cfg.MaxTokens)); err != nil {
		e.destroy()
		return nil, silerrors.New(silerrors.ErrCodeEmbeddingInit,
			fmt.Sprintf("failed to load ONNX model %s", cfg.ModelPath), err)
	}
	return e, nil
}

func (e *ONNXEmbedder) open(maxTokens int64) error {
	ids, mask, types := e.tokenizer.Encode("")
	inputShape := ort.NewShape(1, maxTokens)

	var err error
	if e.inputIDs, err = ort.NewTensor(inputShape, ids); err != nil {
		return fmt.Errorf("input_ids tensor: %w", err)
	}
	if e.attentionMask, err = ort.NewTensor(inputShape, mask); err != nil {
		return fmt.Errorf("attention_mask tensor: %w", err)
	}
	if e.tokenTypeIDs, err = ort.NewTensor(inputShape, types); err != nil {
		return fmt.Errorf("token_type_ids tensor: %w", err)
	}
	if e.output, err = ort.NewTensor(ort.NewShape(1, int64(e.dims)), make([]float32, e.dims)); err != nil {
		return fmt.Errorf("output tensor: %w", err)
	}

	e.session, err = ort.NewAdvancedSession(
		e.modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{e.inputIDs, e.attentionMask, e.tokenTypeIDs},
		[]ort.ArbitraryTensor{e.output},
		nil,
	)
	return err
}

// EmbedQuery runs one inference.
func (e *ONNXEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, silerrors.EmbeddingError("onnx embedder is closed", nil)
	}

	ids, mask, types := e.tokenizer.Encode(text)
	copy(e.inputIDs.GetData(), ids)
	copy(e.attentionMask.GetData(), mask)
	copy(e.tokenTypeIDs.GetData(), types)

	if err := e.session.Run(); err != nil {
		return nil, silerrors.EmbeddingError("onnx inference failed", err)
	}

	vec := make([]float32, e.dims)
	copy(vec, e.output.GetData())
	return normalizeVector(vec), nil
}

// EmbedTexts runs one inference per text. The session holds fixed-shape
// tensors, so texts are not batched.
func (e *ONNXEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := e.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func (e *ONNXEmbedder) Dimensions() int { return e.dims }

// ModelName returns the model file path.
func (e *ONNXEmbedder) ModelName() string { return e.modelPath }

func (e *ONNXEmbedder) Available(context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil
}

// Close destroys the session and its tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroy()
}

func (e *ONNXEmbedder) destroy() error {
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{e.inputIDs, e.attentionMask, e.tokenTypeIDs} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	if e.output != nil {
		_ = e.output.Destroy()
	}
	e.inputIDs, e.attentionMask, e.tokenTypeIDs, e.output = nil, nil, nil, nil
	return err
}
