// Package silo holds the process-wide state: the configuration, the
// compiled policy, the store, the embedder and the indexer. Every surface
// (CLI, tool server) goes through a State instead of sharing globals.
package silo

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Aman-CERP/silo/internal/async"
	"github.com/Aman-CERP/silo/internal/config"
	"github.com/Aman-CERP/silo/internal/embed"
	silerrors "github.com/Aman-CERP/silo/internal/errors"
	"github.com/Aman-CERP/silo/internal/extract"
	"github.com/Aman-CERP/silo/internal/index"
	"github.com/Aman-CERP/silo/internal/policy"
	"github.com/Aman-CERP/silo/internal/store"
)

// State is the explicit container shared by every operation.
type State struct {
	mu         sync.RWMutex
	cfg        *config.Config
	configPath string

	policy     *policy.Holder
	store      *store.Store
	embedder   embed.Embedder
	extractor  *extract.Extractor
	indexer    *index.Indexer
	background *async.BackgroundIndexer
	logger     *slog.Logger

	// embedderDegraded explains why the configured provider is not in use.
	embedderDegraded string
}

type options struct {
	logger    *slog.Logger
	embedder  embed.Embedder
	extractor *extract.Extractor
	reset     bool
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEmbedder replaces the configured embedding provider.
func WithEmbedder(e embed.Embedder) Option {
	return func(o *options) { o.embedder = e }
}

// WithExtractor replaces the default extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(o *options) { o.extractor = e }
}

// WithReset drops every stored chunk when the store opens.
func WithReset(reset bool) Option {
	return func(o *options) { o.reset = reset }
}

// New builds the State for cfg. configPath is where SetIndexRoots
// persists changes; it may be empty for an in-memory configuration.
//
// A store or embedder that cannot start does not fail New: the store is
// disabled with a reason and the embedder falls back to noop.
func New(ctx context.Context, cfg *config.Config, configPath string, opts ...Option) (*State, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	pol, err := cfg.CompilePolicy()
	if err != nil {
		return nil, err
	}

	s := &State{
		cfg:        cfg.Clone(),
		configPath: configPath,
		policy:     policy.NewHolder(pol),
		logger:     o.logger,
	}

	s.embedder = o.embedder
	if s.embedder == nil {
		s.embedder, err = embed.NewFromConfig(ctx, cfg.Embeddings)
		if err != nil {
			s.embedderDegraded = silerrors.Describe(err)
		}
	}

	s.store = store.Open(ctx, store.Options{
		DataDir:    cfg.DataDir(),
		Dimensions: s.embedder.Dimensions(),
		Model:      s.embedder.ModelName(),
		Disabled:   cfg.Store.Disabled,
		Reset:      o.reset,
	})

	s.extractor = o.extractor
	if s.extractor == nil {
		s.extractor = extract.New(extract.WithLogger(o.logger))
	}

	s.indexer, err = index.NewIndexer(index.Dependencies{
		Extractor:    s.extractor,
		Embedder:     s.embedder,
		Store:        s.store,
		ChunkSize:    cfg.Chunking.Size,
		ChunkOverlap: cfg.Chunking.Overlap,
		Logger:       o.logger,
	})
	if err != nil {
		_ = s.store.Close()
		return nil, silerrors.Wrap(silerrors.ErrCodeInternal, err)
	}

	s.background = async.NewBackgroundIndexer(async.IndexerConfig{DataDir: cfg.DataDir()})

	s.logger.Info("state_ready",
		slog.String("config_path", configPath),
		slog.Bool("store_enabled", s.store.IsEnabled()),
		slog.String("embedder", s.embedder.ModelName()),
		slog.Int("dimensions", s.embedder.Dimensions()))
	return s, nil
}

// Config returns a copy of the current configuration.
func (s *State) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// ConfigPath returns the file SetIndexRoots writes to.
func (s *State) ConfigPath() string { return s.configPath }

// Policy returns the current policy snapshot, nil when no filesystem
// source is configured.
func (s *State) Policy() *policy.FileSystemPolicy { return s.policy.Load() }

// Store returns the vector store.
func (s *State) Store() *store.Store { return s.store }

// Embedder returns the active embedder.
func (s *State) Embedder() embed.Embedder { return s.embedder }

// EmbedderDegraded is non-empty when the configured provider failed to
// start and noop embeddings are in use.
func (s *State) EmbedderDegraded() string { return s.embedderDegraded }

// Close stops any background run and releases the store and embedder.
func (s *State) Close() error {
	s.background.Stop()
	_ = s.background.Wait()

	return errors.Join(s.store.Close(), s.embedder.Close())
}
