package ui

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/silo/internal/index"
)

// captureRenderer records everything it is sent.
type captureRenderer struct {
	mu       sync.Mutex
	events   []ProgressEvent
	errors   []ErrorEvent
	complete *CompletionStats
}

var _ Renderer = (*captureRenderer)(nil)

func (c *captureRenderer) Start(context.Context) error { return nil }
func (c *captureRenderer) Stop() error                 { return nil }

func (c *captureRenderer) UpdateProgress(ev ProgressEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureRenderer) AddError(ev ErrorEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, ev)
}

func (c *captureRenderer) Complete(stats CompletionStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.complete = &stats
}

func TestReporter_TranslatesCallbacks(t *testing.T) {
	// Given: a reporter over a capturing renderer
	c := &captureRenderer{}
	r := NewReporter(c)

	// When: two files are queued and finish, one failing
	r.FileQueued("/a")
	r.FileQueued("/b")
	r.FileDone("/a", index.IngestStats{Chunks: 2, Stored: true}, nil)
	r.FileDone("/b", index.IngestStats{}, errors.New("boom"))

	// Then: progress is cumulative and the failure is forwarded
	require.Len(t, c.events, 4)
	last := c.events[3]
	assert.Equal(t, StageIngesting, last.Stage)
	assert.Equal(t, 2, last.Done)
	assert.Equal(t, 2, last.Queued)
	assert.Equal(t, "/b", last.CurrentFile)
	require.Len(t, c.errors, 1)
	assert.Equal(t, "/b", c.errors[0].File)
}

func TestReporter_Complete(t *testing.T) {
	// Given: a finished run
	c := &captureRenderer{}
	summary := index.IndexSummary{
		ScannedFiles: 9, ScannedDirs: 2, Ingested: 7, Skipped: 2,
		Errors: 1, Stored: 6, Chunks: 30, SampleErrors: []string{"/z: bad"},
	}

	// When: the summary is forwarded
	NewReporter(c).Complete(StatsFromSummary(summary))

	// Then: every count arrives
	require.NotNil(t, c.complete)
	assert.Equal(t, CompletionStats{
		ScannedFiles: 9, ScannedDirs: 2, Ingested: 7, Skipped: 2,
		Stored: 6, Chunks: 30, Errors: 1, SampleErrors: []string{"/z: bad"},
	}, *c.complete)
}
