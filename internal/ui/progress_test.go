package ui

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Initial(t *testing.T) {
	stats := NewProgressTracker().Stats()

	assert.Equal(t, StageScanning, stats.Stage)
	assert.Zero(t, stats.Done)
	assert.Zero(t, stats.Queued)
	assert.Zero(t, stats.Fraction)
	assert.Zero(t, stats.ETA)
}

func TestProgressTracker_ApplyNeverGoesBackwards(t *testing.T) {
	// Given: a tracker that saw 5 of 8 files
	p := NewProgressTracker()
	p.Apply(ProgressEvent{Stage: StageIngesting, Done: 5, Queued: 8, CurrentFile: "/e"})

	// When: a stale event arrives
	p.Apply(ProgressEvent{Stage: StageScanning, Done: 2, Queued: 4})

	// Then: stage and counts keep their maxima
	stats := p.Stats()
	assert.Equal(t, StageIngesting, stats.Stage)
	assert.Equal(t, 5, stats.Done)
	assert.Equal(t, 8, stats.Queued)
	assert.Equal(t, "/e", stats.CurrentFile)
	assert.InDelta(t, 0.625, stats.Fraction, 1e-9)
}

func TestProgressTracker_QueuedCoversDone(t *testing.T) {
	p := NewProgressTracker()
	p.Apply(ProgressEvent{Stage: StageIngesting, Done: 3, Queued: 1})

	stats := p.Stats()
	assert.Equal(t, 3, stats.Queued)
	assert.InDelta(t, 1.0, stats.Fraction, 1e-9)
}

func TestProgressTracker_ErrorsAndFinish(t *testing.T) {
	// Given: a tracker with two failures
	p := NewProgressTracker()
	p.Apply(ProgressEvent{Stage: StageIngesting, Done: 1, Queued: 2, CurrentFile: "/a"})
	p.AddError(ErrorEvent{File: "/x.pdf", Err: errors.New("bad")})
	p.AddError(ErrorEvent{File: "/y.pdf", Err: errors.New("bad")})

	// When: finishing
	p.Finish()

	// Then: errors are counted and the stage is complete
	stats := p.Stats()
	assert.Equal(t, 2, stats.Errors)
	assert.Equal(t, "/y.pdf", stats.LastError)
	assert.Equal(t, StageComplete, stats.Stage)
	assert.Empty(t, stats.CurrentFile)
}

func TestProgressTracker_Concurrent(t *testing.T) {
	p := NewProgressTracker()
	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Apply(ProgressEvent{Stage: StageIngesting, Done: i, Queued: 100})
			_ = p.Stats()
		}()
	}
	wg.Wait()

	stats := p.Stats()
	assert.Equal(t, 100, stats.Done)
	assert.Equal(t, 100, stats.Queued)
}
