package store

import (
	"context"
	"log/slog"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
)

// DefaultDisabledReason is used when a store is disabled by configuration
// without an explicit reason.
const DefaultDisabledReason = "store disabled by configuration"

// Store is the vector store handle. Exactly one of enabled and reason is
// set; the state is fixed at construction.
type Store struct {
	enabled *sqliteStore
	reason  string
	dims    int
}

// Open opens the store under opts.DataDir. It never fails: any problem
// opening the database or taking the data directory lock yields a Disabled
// store carrying the reason.
func Open(ctx context.Context, opts Options) *Store {
	if opts.Disabled {
		reason := opts.DisabledReason
		if reason == "" {
			reason = DefaultDisabledReason
		}
		return Disabled(reason)
	}
	if opts.DataDir == "" {
		return Disabled("no data directory configured")
	}
	if opts.Dimensions <= 0 {
		return Disabled("embedding dimension is unknown")
	}

	s, err := openSQLite(ctx, opts)
	if err != nil {
		reason := silerrors.Describe(err)
		if silerrors.GetCode(err) == silerrors.ErrCodeStoreLocked {
			reason = LockedReason
		}
		slog.Warn("store_disabled",
			slog.String("data_dir", opts.DataDir),
			slog.String("reason", reason))
		return Disabled(reason)
	}

	slog.Info("store_opened",
		slog.String("path", s.path),
		slog.Int("dimensions", s.dims),
		slog.Int("vectors", s.ann.count()))
	return &Store{enabled: s, dims: opts.Dimensions}
}

// Disabled returns a Disabled store with the given reason.
func Disabled(reason string) *Store {
	if reason == "" {
		reason = DefaultDisabledReason
	}
	return &Store{reason: reason}
}

// IsEnabled reports whether the store is backed by a database.
func (s *Store) IsEnabled() bool { return s.enabled != nil }

// DisabledReason is empty for an Enabled store.
func (s *Store) DisabledReason() string { return s.reason }

// Dimensions returns the vector width of an Enabled store, 0 otherwise.
func (s *Store) Dimensions() int { return s.dims }

// AddChunk inserts or replaces a single row.
func (s *Store) AddChunk(ctx context.Context, row ChunkRow) error {
	if s.enabled == nil {
		return nil
	}
	return s.enabled.addChunk(ctx, row)
}

// AddDocument stores text as chunk 0 of path with a zero vector.
func (s *Store) AddDocument(ctx context.Context, path, text string) error {
	if s.enabled == nil {
		return nil
	}
	return s.enabled.addChunk(ctx, ChunkRow{
		ID:     ChunkID(path, 0, text),
		Path:   path,
		Text:   text,
		Vector: make([]float32, s.dims),
	})
}

// ReplaceFileChunks makes rows the complete set of chunks for path. Rows
// are stamped with path and meta. An empty rows removes the file.
func (s *Store) ReplaceFileChunks(ctx context.Context, path string, meta FileMeta, rows []ChunkRow) error {
	if s.enabled == nil {
		return nil
	}
	return s.enabled.replaceFileChunks(ctx, path, meta, rows)
}

// SearchByVector returns up to k rows nearest to q by cosine distance,
// closest first. A zero query vector matches nothing.
func (s *Store) SearchByVector(ctx context.Context, q []float32, k int) ([]SearchHit, error) {
	if s.enabled == nil {
		return []SearchHit{}, nil
	}
	return s.enabled.searchByVector(ctx, q, k)
}

// SearchByKeyword ranks rows by BM25 over their text, best first. It
// serves searches when the embedder is disabled.
func (s *Store) SearchByKeyword(ctx context.Context, text string, k int) ([]SearchHit, error) {
	if s.enabled == nil {
		return []SearchHit{}, nil
	}
	return s.enabled.searchByKeyword(ctx, text, k)
}

// CountChunks returns the number of stored rows.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	if s.enabled == nil {
		return 0, nil
	}
	return s.enabled.countChunks(ctx)
}

// ChunkIDsForPath returns the ids stored for path in chunk order.
func (s *Store) ChunkIDsForPath(ctx context.Context, path string) ([]string, error) {
	if s.enabled == nil {
		return []string{}, nil
	}
	return s.enabled.chunkIDsForPath(ctx, path)
}

// Stats summarizes the store.
func (s *Store) Stats(ctx context.Context) Stats {
	if s.enabled == nil {
		return Stats{DisabledReason: s.reason}
	}
	return s.enabled.stats(ctx)
}

// Close releases the database and the data directory lock.
func (s *Store) Close() error {
	if s.enabled == nil {
		return nil
	}
	return s.enabled.close()
}
