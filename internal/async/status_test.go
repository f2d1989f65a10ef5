package async

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/silo/internal/index"
)

func TestNewIndexProgress(t *testing.T) {
	// Given/When: creating a new progress tracker
	p := NewIndexProgress()

	// Then: should be initialized with indexing status
	require.NotNil(t, p)
	snap := p.Snapshot()
	assert.Equal(t, string(StatusIndexing), snap.Status)
	assert.Equal(t, string(StageScanning), snap.Stage)
	assert.Zero(t, snap.FilesQueued)
	assert.Zero(t, snap.FilesProcessed)
	assert.Nil(t, snap.Summary)
	assert.True(t, p.IsIndexing())
}

func TestIndexProgress_ReporterCallbacks(t *testing.T) {
	// Given: a tracker
	p := NewIndexProgress()

	// When: four files are queued, three finish and one of them fails
	for i := range 4 {
		p.FileQueued(fmt.Sprintf("/f%d", i))
	}
	p.FileDone("/f0", index.IngestStats{Chunks: 3, Stored: true}, nil)
	p.FileDone("/f1", index.IngestStats{Chunks: 2, Stored: false}, nil)
	p.FileDone("/f2", index.IngestStats{}, errors.New("boom"))

	// Then: counts and percentage reflect the callbacks
	snap := p.Snapshot()
	assert.Equal(t, string(StageIngesting), snap.Stage)
	assert.Equal(t, 4, snap.FilesQueued)
	assert.Equal(t, 3, snap.FilesProcessed)
	assert.Equal(t, 1, snap.FilesFailed)
	assert.Equal(t, 3, snap.ChunksStored)
	assert.Equal(t, "/f2", snap.CurrentFile)
	assert.InDelta(t, 75.0, snap.ProgressPct, 0.01)
}

func TestIndexProgress_Terminal(t *testing.T) {
	tests := []struct {
		name       string
		apply      func(p *IndexProgress)
		wantStatus IndexingStatus
		wantErr    string
		wantFiles  int
	}{
		{
			name:       "ready",
			apply:      func(p *IndexProgress) { p.SetReady(index.IndexSummary{Ingested: 7, SampleErrors: []string{}}) },
			wantStatus: StatusReady,
			wantFiles:  7,
		},
		{
			name:       "error with summary",
			apply:      func(p *IndexProgress) { p.SetError("walk cancelled", &index.IndexSummary{Ingested: 2}) },
			wantStatus: StatusError,
			wantErr:    "walk cancelled",
			wantFiles:  2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewIndexProgress()
			tt.apply(p)

			snap := p.Snapshot()
			assert.Equal(t, string(tt.wantStatus), snap.Status)
			assert.Equal(t, string(StageComplete), snap.Stage)
			assert.Equal(t, tt.wantErr, snap.ErrorMessage)
			require.NotNil(t, snap.Summary)
			assert.Equal(t, tt.wantFiles, snap.Summary.Ingested)
			assert.False(t, p.IsIndexing())
		})
	}
}

func TestIndexProgress_SnapshotIsACopy(t *testing.T) {
	// Given: a finished run with sample errors
	p := NewIndexProgress()
	p.SetReady(index.IndexSummary{SampleErrors: []string{"a: b"}})

	// When: a snapshot is mutated
	snap := p.Snapshot()
	snap.Summary.SampleErrors[0] = "changed"

	// Then: the tracker is unaffected
	assert.Equal(t, "a: b", p.Snapshot().Summary.SampleErrors[0])
}

func TestIndexProgress_ConcurrentAccess(t *testing.T) {
	// Given: a tracker shared by many goroutines
	p := NewIndexProgress()
	var wg sync.WaitGroup

	// When: queuing and finishing concurrently while reading snapshots
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			path := fmt.Sprintf("/f%d", i)
			p.FileQueued(path)
			p.FileDone(path, index.IngestStats{Chunks: 1, Stored: true}, nil)
		}()
		go func() {
			defer wg.Done()
			_ = p.Snapshot()
		}()
	}
	wg.Wait()

	// Then: nothing was lost
	snap := p.Snapshot()
	assert.Equal(t, 50, snap.FilesQueued)
	assert.Equal(t, 50, snap.FilesProcessed)
	assert.Equal(t, 50, snap.ChunksStored)
}
