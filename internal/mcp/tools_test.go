package mcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/silo/internal/async"
	"github.com/Aman-CERP/silo/internal/index"
	"github.com/Aman-CERP/silo/internal/scanner"
	"github.com/Aman-CERP/silo/internal/silo"
)

func TestToScanOutput(t *testing.T) {
	// Given: a summary with nil slices and one sample
	mod := time.Date(2026, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))
	sum := scanner.ScanSummary{
		Candidates:       1,
		SampleCandidates: []scanner.FileCandidate{{Path: "/n/a.md", Size: 42, ModTime: mod}},
	}

	// When: converting
	out := toScanOutput(sum)

	// Then: slices are never nil and times are RFC 3339 in UTC
	assert.NotNil(t, out.Roots)
	assert.NotNil(t, out.SampleSkipped)
	require.Len(t, out.SampleCandidates, 1)
	assert.Equal(t, ScanCandidate{Path: "/n/a.md", Size: 42, Modified: "2026-03-01T11:30:00Z"}, out.SampleCandidates[0])
}

func TestToSearchOutput_NilHits(t *testing.T) {
	out := toSearchOutput(silo.SearchResults{Query: "q", Mode: silo.ModeKeyword})

	assert.NotNil(t, out.Hits)
	assert.Equal(t, "q", out.Query)
	assert.Equal(t, silo.ModeKeyword, out.Mode)
}

func TestToIndexOutput_Messages(t *testing.T) {
	tests := []struct {
		name    string
		started bool
		status  async.IndexingStatus
		want    string
	}{
		{"started in background", true, async.StatusIndexing, "Indexing started in the background."},
		{"waited", true, async.StatusReady, "Indexing finished."},
		{"already running", false, async.StatusIndexing, "Indexing is already running."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := toIndexOutput(tt.started, async.IndexProgressSnapshot{Status: string(tt.status)})

			assert.Equal(t, tt.want, out.Message)
			assert.Equal(t, tt.started, out.Started)
		})
	}
}

func TestNormalizeSnapshot_DoesNotAlias(t *testing.T) {
	// Given: a snapshot whose summary has nil slices
	orig := &index.IndexSummary{Stored: 3}
	snap := async.IndexProgressSnapshot{Summary: orig}

	// When: normalizing
	got := normalizeSnapshot(snap)

	// Then: the copy is filled and the original untouched
	require.NotNil(t, got.Summary)
	assert.NotNil(t, got.Summary.Roots)
	assert.NotNil(t, got.Summary.SampleErrors)
	assert.Equal(t, 3, got.Summary.Stored)
	assert.Nil(t, orig.SampleErrors)
}

func TestDecodeArgs(t *testing.T) {
	in, err := decodeArgs[IndexInput]("silo_index", map[string]any{
		"roots":       []any{"/a", "/b"},
		"max_files":   float64(5),
		"concurrency": 2,
		"wait":        true,
	})
	require.NoError(t, err)
	assert.Equal(t, IndexInput{Roots: []string{"/a", "/b"}, MaxFiles: 5, Concurrency: 2, Wait: true}, in)

	empty, err := decodeArgs[IndexInput]("silo_index", nil)
	require.NoError(t, err)
	assert.Equal(t, IndexInput{}, empty)

	_, err = decodeArgs[IndexInput]("silo_index", map[string]any{"wait": "yes"})
	requireMCPCode(t, err, ErrCodeInvalidParams)
}
