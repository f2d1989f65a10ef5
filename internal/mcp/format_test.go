package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/silo/internal/async"
	"github.com/Aman-CERP/silo/internal/embed"
	"github.com/Aman-CERP/silo/internal/index"
	"github.com/Aman-CERP/silo/internal/silo"
	"github.com/Aman-CERP/silo/internal/store"
)

func TestFormatSearchResults_Empty(t *testing.T) {
	got := FormatSearchResults(SearchOutput{Query: "kiwi", Mode: silo.ModeVector, Hits: []store.SearchHit{}})

	assert.Equal(t, "No results found for \"kiwi\"", got)
}

func TestFormatSearchResults(t *testing.T) {
	// Given: two vector hits
	out := SearchOutput{
		Query: "fox",
		Mode:  silo.ModeVector,
		Hits: []store.SearchHit{
			{Path: "/n/fox.txt", ChunkIndex: 0, Score: 0.1234, ContentPreview: "the quick brown fox"},
			{Path: "/n/dog.txt", ChunkIndex: 2, Score: 0.5},
		},
	}

	// When: formatting
	got := FormatSearchResults(out)

	// Then: hits are numbered with their distance and preview
	assert.Contains(t, got, "## Search Results for \"fox\"")
	assert.Contains(t, got, "Found 2 results (vector search)")
	assert.Contains(t, got, "### 1. /n/fox.txt #0 (distance: 0.123)")
	assert.Contains(t, got, "the quick brown fox")
	assert.Contains(t, got, "### 2. /n/dog.txt #2 (distance: 0.500)")
}

func TestFormatSearchResults_KeywordLabel(t *testing.T) {
	out := SearchOutput{
		Query: "plums",
		Mode:  silo.ModeKeyword,
		Hits:  []store.SearchHit{{Path: "/n/basket.md", Score: 1.5}},
	}

	got := FormatSearchResults(out)

	assert.Contains(t, got, "Found 1 result (keyword search)")
	assert.Contains(t, got, "(score: 1.500)")
}

func TestFormatIndexOutput(t *testing.T) {
	out := toIndexOutput(true, async.IndexProgressSnapshot{
		Status:         string(async.StatusReady),
		FilesQueued:    3,
		FilesProcessed: 3,
		FilesFailed:    1,
		ChunksStored:   7,
		Summary: &index.IndexSummary{
			ScannedFiles: 4, ScannedDirs: 2, Ingested: 3, Skipped: 1, Errors: 1,
			Stored: 2, Chunks: 7, SampleErrors: []string{"/n/bad.pdf: extraction failed"},
		},
	})

	got := FormatIndexOutput(out)

	assert.Contains(t, got, "Indexing finished.")
	assert.Contains(t, got, "**Progress:** 3/3 files, 1 failed, 7 chunks stored")
	assert.Contains(t, got, "**Stored:** 2 files, 7 chunks")
	assert.Contains(t, got, "- /n/bad.pdf: extraction failed")
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		name   string
		status silo.Status
		want   []string
	}{
		{
			name: "enabled",
			status: silo.Status{
				Store:    store.Stats{Enabled: true, Chunks: 12, Files: 3},
				DBSize:   2048,
				Embedder: embed.EmbedderInfo{Provider: embed.ProviderStatic, Model: "static", Dimensions: 32, Available: true},
			},
			want: []string{"12 chunks from 3 files (2.0 KB)", "32 dims (available)"},
		},
		{
			name: "disabled and degraded",
			status: silo.Status{
				Store:            store.Stats{DisabledReason: "store disabled by configuration"},
				Embedder:         embed.EmbedderInfo{Model: "noop"},
				EmbedderDegraded: "embedding provider onnx unavailable",
			},
			want: []string{"disabled (store disabled by configuration)", "keyword search only", "embedding provider onnx unavailable"},
		},
		{
			name:   "locked elsewhere",
			status: silo.Status{IndexLockHeld: true},
			want:   []string{"Another process is indexing"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatStatus(tt.status)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "1.5 KB", humanSize(1536))
	assert.Equal(t, "3.0 MB", humanSize(3*1024*1024))
	assert.Equal(t, "1.0 GB", humanSize(1024*1024*1024))
}
