package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
)

// Ollama defaults.
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "nomic-embed-text"

	// OllamaPoolSize is the number of idle connections kept to the server.
	OllamaPoolSize = 4

	// maxErrorBody caps how much of a failed response is quoted in errors.
	maxErrorBody = 512
)

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	Host       string
	Model      string
	Dimensions int // 0 = detect from the first embedding
	BatchSize  int
	Timeout    time.Duration // per request attempt

	// Retry controls backoff between attempts. The zero value selects
	// errors.DefaultRetryConfig.
	Retry silerrors.RetryConfig

	// SkipHealthCheck skips the model lookup and dimension probe.
	SkipHealthCheck bool
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

type ollamaTagsResponse struct {
	Models []ollamaModelInfo `json:"models"`
}

type ollamaModelInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

// OllamaEmbedder generates embeddings through Ollama's HTTP API.
type OllamaEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    OllamaConfig
	dims      int

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder creates an Ollama embedder. Unless SkipHealthCheck is
// set it confirms the model is pulled and probes the vector width.
func NewOllamaEmbedder(ctx context.Context, cfg OllamaConfig) (*OllamaEmbedder, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	cfg.BatchSize = min(cfg.BatchSize, MaxBatchSize)
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry = silerrors.DefaultRetryConfig()
	}

	// No client-level timeout: each attempt gets its own context deadline.
	transport := &http.Transport{
		MaxIdleConns:        OllamaPoolSize,
		MaxIdleConnsPerHost: OllamaPoolSize,
		IdleConnTimeout:     10 * time.Second,
	}
	e := &OllamaEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
		dims:      cfg.Dimensions,
	}

	if !cfg.SkipHealthCheck {
		if err := e.checkModel(ctx); err != nil {
			transport.CloseIdleConnections()
			return nil, err
		}

		probe, err := e.embedBatch(ctx, []string{"dimension probe"})
		if err != nil {
			transport.CloseIdleConnections()
			return nil, err
		}
		detected := len(probe[0])
		if e.dims != 0 && e.dims != detected {
			slog.Warn("ollama_dimension_override",
				slog.String("model", cfg.Model),
				slog.Int("configured", e.dims),
				slog.Int("detected", detected))
		}
		e.dims = detected
	}

	if e.dims == 0 {
		e.dims = DefaultDimensions
	}
	return e, nil
}

// listModels returns the models pulled on the server.
func (e *OllamaEmbedder) listModels(ctx context.Context) ([]ollamaModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.config.Host+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list models: status %d", resp.StatusCode)
	}
	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	return tags.Models, nil
}

func (e *OllamaEmbedder) hasModel(models []ollamaModelInfo) bool {
	want := strings.ToLower(e.config.Model)
	for _, m := range models {
		name := strings.ToLower(m.Name)
		if name == want || strings.TrimSuffix(name, ":latest") == want || strings.HasPrefix(name, want+":") {
			return true
		}
	}
	return false
}

func (e *OllamaEmbedder) checkModel(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	models, err := e.listModels(checkCtx)
	if err != nil {
		return silerrors.New(silerrors.ErrCodeBackendUnavailable,
			fmt.Sprintf("cannot reach ollama at %s", e.config.Host), err).
			WithSuggestion("start it with `ollama serve`")
	}
	if !e.hasModel(models) {
		return silerrors.New(silerrors.ErrCodeEmbeddingInit,
			fmt.Sprintf("ollama model %q is not installed", e.config.Model), nil).
			WithSuggestion(fmt.Sprintf("run `ollama pull %s`", e.config.Model))
	}
	return nil
}

// EmbedQuery embeds a single text.
func (e *OllamaEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedTexts splits texts into batches of BatchSize and embeds them in
// order.
func (e *OllamaEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, silerrors.EmbeddingError("ollama embedder is closed", nil)
	}

	results := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := min(start+e.config.BatchSize, len(texts))
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, batch...)
	}
	return results, nil
}

// embedBatch sends one request, retrying timeouts and server errors.
func (e *OllamaEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := silerrors.Retry(ctx, e.config.Retry, func(ctx context.Context) ([][]float32, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()

		out, err := e.doEmbed(attemptCtx, texts)
		if err != nil && ctx.Err() != nil {
			// The caller gave up; do not report it as a backend fault.
			return nil, ctx.Err()
		}
		if err != nil {
			slog.Debug("ollama_embed_attempt_failed",
				slog.Int("texts", len(texts)),
				slog.String("error", err.Error()))
		}
		return out, err
	})
	if err != nil {
		return nil, err
	}
	if err := CheckCardinality(len(texts), out); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *OllamaEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.config.Model, Input: texts})
	if err != nil {
		return nil, silerrors.EmbeddingError("failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, silerrors.EmbeddingError("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := fmt.Sprintf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, silerrors.New(silerrors.ErrCodeBackendUnavailable, msg, nil)
		}
		return nil, silerrors.EmbeddingError(msg, nil)
	}

	var apiResult ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResult); err != nil {
		return nil, silerrors.EmbeddingError("failed to decode ollama response", err)
	}

	embeddings := make([][]float32, len(apiResult.Embeddings))
	for i, emb := range apiResult.Embeddings {
		vec := make([]float32, len(emb))
		for j, v := range emb {
			vec[j] = float32(v)
		}
		embeddings[i] = normalizeVector(vec)
	}
	return embeddings, nil
}

// classifyTransportError marks deadline and connection failures retryable.
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return silerrors.New(silerrors.ErrCodeEmbeddingTimeout, "ollama request timed out", err)
	}
	return silerrors.New(silerrors.ErrCodeBackendUnavailable, "ollama request failed", err)
}

func (e *OllamaEmbedder) Dimensions() int { return e.dims }
func (e *OllamaEmbedder) ModelName() string { return e.config.Model }

// Available checks that the server is up and the model is pulled.
func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return false
	}

	models, err := e.listModels(ctx)
	return err == nil && e.hasModel(models)
}

// Close releases idle connections.
func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}
