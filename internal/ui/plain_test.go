package ui

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer_UpdateProgress(t *testing.T) {
	tests := []struct {
		name  string
		event ProgressEvent
		want  string
	}{
		{
			name:  "file with counts",
			event: ProgressEvent{Stage: StageIngesting, Done: 3, Queued: 10, CurrentFile: "/docs/a.md"},
			want:  "[INGEST] 3/10 /docs/a.md\n",
		},
		{
			name:  "message without counts",
			event: ProgressEvent{Stage: StageScanning, Message: "walking ~/notes"},
			want:  "[SCAN] walking ~/notes\n",
		},
		{
			name:  "done clamped to queued",
			event: ProgressEvent{Stage: StageIngesting, Done: 12, Queued: 10, CurrentFile: "/x"},
			want:  "[INGEST] 10/10 /x\n",
		},
		{
			name:  "queue-only event is silent",
			event: ProgressEvent{Stage: StageIngesting, Done: 0, Queued: 1},
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			r := NewPlainRenderer(NewConfig(buf))

			r.UpdateProgress(tt.event)

			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPlainRenderer_AddError(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: errors with and without a file are added
	r.AddError(ErrorEvent{File: "/a.pdf", Err: errors.New("pdftotext exited 1")})
	r.AddError(ErrorEvent{Err: errors.New("store closed")})

	// Then: both are printed
	assert.Equal(t, "ERROR: /a.pdf: pdftotext exited 1\nERROR: store closed\n", buf.String())
}

func TestPlainRenderer_Complete(t *testing.T) {
	// Given: a finished run with sampled errors
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))
	require.NoError(t, r.Start(context.Background()))

	// When: completing
	r.Complete(CompletionStats{
		ScannedFiles: 12,
		ScannedDirs:  3,
		Ingested:     10,
		Skipped:      2,
		Stored:       7,
		Chunks:       40,
		Errors:       3,
		SampleErrors: []string{"/a.pdf: exit 1", "/b.txt: denied"},
		Duration:     1500 * time.Millisecond,
		Embedder:     EmbedderInfo{Provider: "noop", Model: "noop", Dimensions: 384, Degraded: "ollama unreachable"},
		StoreReason:  "",
	})
	require.NoError(t, r.Stop())

	// Then: the summary lists counts, samples and the embedder
	out := buf.String()
	assert.Contains(t, out, "Indexed 7 files (40 chunks) in 1.5s")
	assert.Contains(t, out, "Scanned:  12 files, 3 dirs")
	assert.Contains(t, out, "Ingested: 10")
	assert.Contains(t, out, "Skipped:  2")
	assert.Contains(t, out, "Errors:   3")
	assert.Contains(t, out, "- /a.pdf: exit 1")
	assert.Contains(t, out, "... and 1 more")
	assert.Contains(t, out, "Embedder: noop (noop, 384 dims)")
	assert.Contains(t, out, "degraded: ollama unreachable")
	assert.NotContains(t, out, "Store disabled")
	assert.NotContains(t, out, "\x1b[")
}

func TestPlainRenderer_CompleteDisabledStore(t *testing.T) {
	buf := &bytes.Buffer{}
	NewPlainRenderer(NewConfig(buf)).Complete(CompletionStats{StoreReason: "data directory locked by another process"})

	assert.Contains(t, buf.String(), "Store disabled: data directory locked by another process")
}
