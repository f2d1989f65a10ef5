package silo

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
	"github.com/Aman-CERP/silo/internal/store"
)

// Search result limits.
const (
	DefaultTopK = 10
	MaxTopK     = 100
)

// Search modes.
const (
	ModeVector  = "vector"
	ModeKeyword = "keyword"
)

// SearchResults is the answer to a knowledge-base query.
type SearchResults struct {
	Query string            `json:"query"`
	Mode  string            `json:"mode"`
	Hits  []store.SearchHit `json:"hits"`
}

// Search returns up to topK chunks for query. Vector search is used while
// the embedder is available; otherwise the store's keyword index answers.
func (s *State) Search(ctx context.Context, query string, topK int) (SearchResults, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResults{}, silerrors.New(silerrors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}
	switch {
	case topK <= 0:
		topK = DefaultTopK
	case topK > MaxTopK:
		topK = MaxTopK
	}

	if !s.store.IsEnabled() {
		return SearchResults{}, silerrors.Unsupported("knowledge base is disabled: " + s.store.DisabledReason())
	}

	start := time.Now()
	res := SearchResults{Query: query, Mode: ModeVector}

	var err error
	if s.embedder.Available(ctx) {
		res.Hits, err = s.searchVector(ctx, query, topK)
	} else {
		res.Mode = ModeKeyword
		res.Hits, err = s.store.SearchByKeyword(ctx, query, topK)
	}
	if err != nil {
		return SearchResults{}, err
	}

	s.logger.Debug("search_completed",
		slog.String("mode", res.Mode),
		slog.Int("top_k", topK),
		slog.Int("hits", len(res.Hits)),
		slog.Duration("duration", time.Since(start)))
	return res, nil
}

func (s *State) searchVector(ctx context.Context, query string, topK int) ([]store.SearchHit, error) {
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		var se *silerrors.SiloError
		if !errors.As(err, &se) {
			err = silerrors.EmbeddingError("query embedding failed", err)
		}
		return nil, err
	}
	return s.store.SearchByVector(ctx, vec, topK)
}
