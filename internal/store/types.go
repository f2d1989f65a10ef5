// Package store persists chunk rows and answers nearest-neighbour queries.
//
// A Store is either Enabled, backed by a SQLite table in the data directory
// and an in-memory HNSW graph, or Disabled with a human-readable reason.
// Writes to a Disabled store succeed without effect and reads return empty
// results.
package store

import (
	"time"
	"unicode/utf8"
)

// PreviewChars caps SearchHit.ContentPreview, in runes.
const PreviewChars = 240

// previewEllipsis marks a truncated preview.
const previewEllipsis = "…"

// Metadata keys kept alongside the chunks table.
const (
	metaKeyDimensions = "embedding_dimensions"
	metaKeyModel      = "embedding_model"
)

// FileMeta describes the source file of a set of chunks.
type FileMeta struct {
	ModTime     time.Time `json:"modified"`
	Size        int64     `json:"size_bytes"`
	ContentHash string    `json:"content_hash"`
}

// ChunkRow is one persisted chunk.
type ChunkRow struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	ChunkIndex int    `json:"chunk_index"`
	StartToken int    `json:"start_token"`
	EndToken   int    `json:"end_token"`
	FileMeta
	Text   string    `json:"text"`
	Vector []float32 `json:"-"`
}

// SearchHit is one search result. Score is the cosine distance for vector
// search (lower is closer) and the negated BM25 rank for keyword search
// (higher is better).
type SearchHit struct {
	ChunkID        string  `json:"chunk_id"`
	Path           string  `json:"path"`
	ChunkIndex     int     `json:"chunk_index"`
	Score          float64 `json:"score"`
	ContentPreview string  `json:"content_preview"`
}

// Options configures Open.
type Options struct {
	DataDir    string
	Dimensions int
	// Model is recorded with the index and compared on the next open.
	Model string

	// Disabled skips opening and yields a Disabled store with
	// DisabledReason (or a default reason).
	Disabled       bool
	DisabledReason string

	// Reset drops every stored chunk on open, for example after the
	// embedding dimension changed.
	Reset bool
}

// Stats summarizes store contents.
type Stats struct {
	Enabled        bool   `json:"enabled"`
	DisabledReason string `json:"disabled_reason,omitempty"`
	Path           string `json:"path,omitempty"`
	Dimensions     int    `json:"dimensions"`
	Chunks         int    `json:"chunks"`
	Files          int    `json:"files"`
	GraphNodes     int    `json:"graph_nodes"`
	Orphans        int    `json:"orphans"`
}

// Preview truncates text to PreviewChars runes, appending "…" when cut.
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= PreviewChars {
		return text
	}
	n := 0
	for i := range text {
		if n == PreviewChars {
			return text[:i] + previewEllipsis
		}
		n++
	}
	return text
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
