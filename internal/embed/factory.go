package embed

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Aman-CERP/silo/internal/config"
	silerrors "github.com/Aman-CERP/silo/internal/errors"
)

// ProviderType represents an embedding provider.
type ProviderType string

const (
	// ProviderNoop disables embedding; vectors are all zero.
	ProviderNoop ProviderType = "noop"

	// ProviderStatic uses hash-based embeddings computed in process.
	ProviderStatic ProviderType = "static"

	// ProviderOllama calls a local Ollama server.
	ProviderOllama ProviderType = "ollama"

	// ProviderONNX runs a local ONNX model (cgo builds only).
	ProviderONNX ProviderType = "onnx"
)

// ONNXConfig configures the ONNX embedder.
type ONNXConfig struct {
	ModelPath   string
	LibraryPath string
	Dimensions  int
	MaxTokens   int
}

// ParseProvider converts a string to ProviderType. Unknown names map to
// noop.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "static":
		return ProviderStatic
	case "ollama":
		return ProviderOllama
	case "onnx":
		return ProviderONNX
	default:
		return ProviderNoop
	}
}

func (p ProviderType) String() string {
	return string(p)
}

// ValidProviders returns all provider names.
func ValidProviders() []string {
	return []string{
		string(ProviderNoop),
		string(ProviderStatic),
		string(ProviderOllama),
		string(ProviderONNX),
	}
}

// NewFromConfig builds the configured embedder, wrapped in the inference
// pool (static, onnx) and the LRU cache (when cache_size > 0).
//
// The returned Embedder is never nil. When the selected backend fails to
// start, NewFromConfig returns a NoopEmbedder together with the error that
// caused the fallback.
func NewFromConfig(ctx context.Context, cfg config.EmbeddingsConfig) (Embedder, error) {
	provider := ParseProvider(cfg.Provider)

	var (
		backend Embedder
		err     error
	)
	switch provider {
	case ProviderStatic:
		backend = NewPooledEmbedder(NewStaticEmbedder(cfg.Dimensions), cfg.InferenceWorkers)
	case ProviderOllama:
		backend, err = NewOllamaEmbedder(ctx, OllamaConfig{
			Host:       cfg.OllamaHost,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
		})
	case ProviderONNX:
		var onnx *ONNXEmbedder
		onnx, err = NewONNXEmbedder(ONNXConfig{
			ModelPath:   config.ExpandTilde(cfg.ONNXModelPath),
			LibraryPath: config.ExpandTilde(cfg.ONNXLibraryPath),
			Dimensions:  cfg.Dimensions,
			MaxTokens:   cfg.MaxTokens,
		})
		if err == nil {
			backend = NewPooledEmbedder(onnx, cfg.InferenceWorkers)
		}
	default:
		return NewNoopEmbedder(cfg.Dimensions), nil
	}

	if err != nil {
		slog.Warn("embedder_unavailable",
			slog.String("provider", provider.String()),
			slog.String("error", err.Error()))
		return NewNoopEmbedder(cfg.Dimensions), silerrors.New(silerrors.ErrCodeEmbedderDisabled,
			"embedding provider "+provider.String()+" unavailable", err)
	}

	if cfg.CacheSize > 0 {
		backend = NewCachedEmbedder(backend, cfg.CacheSize)
	}

	slog.Info("embedder_ready",
		slog.String("provider", provider.String()),
		slog.String("model", backend.ModelName()),
		slog.Int("dimensions", backend.Dimensions()))
	return backend, nil
}

// EmbedderInfo describes an embedder for status output.
type EmbedderInfo struct {
	Provider   ProviderType `json:"provider"`
	Model      string       `json:"model"`
	Dimensions int          `json:"dimensions"`
	Available  bool         `json:"available"`
}

// GetInfo reports the provider behind any wrappers.
func GetInfo(ctx context.Context, embedder Embedder) EmbedderInfo {
	info := EmbedderInfo{
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Available:  embedder.Available(ctx),
	}

	inner := embedder
	for {
		switch w := inner.(type) {
		case *CachedEmbedder:
			inner = w.inner
			continue
		case *PooledEmbedder:
			inner = w.inner
			continue
		}
		break
	}

	switch inner.(type) {
	case *StaticEmbedder:
		info.Provider = ProviderStatic
	case *OllamaEmbedder:
		info.Provider = ProviderOllama
	case *ONNXEmbedder:
		info.Provider = ProviderONNX
	default:
		info.Provider = ProviderNoop
	}
	return info
}
