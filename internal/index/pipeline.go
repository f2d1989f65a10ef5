package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/Aman-CERP/silo/internal/chunk"
	"github.com/Aman-CERP/silo/internal/embed"
	silerrors "github.com/Aman-CERP/silo/internal/errors"
	"github.com/Aman-CERP/silo/internal/extract"
	"github.com/Aman-CERP/silo/internal/policy"
	"github.com/Aman-CERP/silo/internal/scanner"
	"github.com/Aman-CERP/silo/internal/store"
)

// Dependencies are the collaborators shared by the pipeline and the
// indexer.
type Dependencies struct {
	Extractor *extract.Extractor // required
	Embedder  embed.Embedder     // required
	Store     *store.Store       // required, may be disabled

	ChunkSize    int // tokens per chunk, defaults to chunk.DefaultChunkTokens
	ChunkOverlap int

	Logger *slog.Logger
}

// Pipeline runs Extract, Chunk, Embed and Replace for a single file.
// It holds no per-file state and is safe for concurrent use.
type Pipeline struct {
	extractor    *extract.Extractor
	embedder     embed.Embedder
	store        *store.Store
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

// NewPipeline validates deps and builds a Pipeline.
func NewPipeline(deps Dependencies) (*Pipeline, error) {
	if deps.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	size := deps.ChunkSize
	if size <= 0 {
		size = chunk.DefaultChunkTokens
	}
	overlap := deps.ChunkOverlap
	if overlap < 0 {
		overlap = 0
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		extractor:    deps.Extractor,
		embedder:     deps.Embedder,
		store:        deps.Store,
		chunkSize:    size,
		chunkOverlap: overlap,
		logger:       logger,
	}, nil
}

// IngestFile replaces everything stored for cand.Path with the chunks of
// its current content. An empty extraction still clears the old rows.
// On error the rows stored for the path are left as they were.
func (p *Pipeline) IngestFile(ctx context.Context, cand scanner.FileCandidate, pol *policy.FileSystemPolicy) (IngestStats, error) {
	stats := IngestStats{
		Path:               cand.Path,
		ChunkTokens:        p.chunkSize,
		ChunkOverlapTokens: p.chunkOverlap,
	}
	if pol == nil {
		return stats, silerrors.ConfigError("no filesystem policy configured", nil)
	}

	res, err := p.extractor.Extract(ctx, cand.Path, pol.MaxTextBytes())
	if err != nil {
		return stats, err
	}
	stats.ExtractedKind = res.Kind
	stats.ExtractedChars = utf8.RuneCountInString(res.Text)
	stats.Truncated = res.Truncated

	// Plain text is hashed from the same read that produced the text.
	// Parsed formats are hashed afterwards, so a write in between can leave
	// the hash describing newer bytes than the chunks.
	hash := res.ContentHash
	if hash == "" {
		hash, err = hashFile(cand.Path)
		if err != nil {
			return stats, err
		}
	}

	chunks := chunk.Split(res.Text, p.chunkSize, p.chunkOverlap)
	stats.Chunks = len(chunks)

	var vectors [][]float32
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vectors, err = p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			var se *silerrors.SiloError
			if !errors.As(err, &se) {
				err = silerrors.EmbeddingError("embedding failed", err)
			}
			return stats, err
		}
		if err := embed.CheckCardinality(len(texts), vectors); err != nil {
			return stats, err
		}
	}

	meta := store.FileMeta{
		ModTime:     cand.ModTime,
		Size:        cand.Size,
		ContentHash: hash,
	}
	rows := make([]store.ChunkRow, len(chunks))
	for i, c := range chunks {
		rows[i] = store.ChunkRow{
			ID:         store.ChunkID(cand.Path, c.Index, c.Text),
			Path:       cand.Path,
			ChunkIndex: c.Index,
			StartToken: c.StartToken,
			EndToken:   c.EndToken,
			FileMeta:   meta,
			Text:       c.Text,
			Vector:     vectors[i],
		}
	}

	if err := p.store.ReplaceFileChunks(ctx, cand.Path, meta, rows); err != nil {
		return stats, err
	}
	stats.Stored = p.store.IsEnabled()

	p.logger.Debug("file_ingested",
		slog.String("path", cand.Path),
		slog.String("kind", string(res.Kind)),
		slog.Int("chars", stats.ExtractedChars),
		slog.Int("chunks", stats.Chunks),
		slog.Bool("stored", stats.Stored))

	return stats, nil
}

// hashFile returns the hex sha256 of the file's bytes.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", silerrors.IOError(fmt.Sprintf("open %s", path), err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", silerrors.IOError(fmt.Sprintf("read %s", path), err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
