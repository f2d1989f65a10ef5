package ui

import (
	"sync"
	"time"
)

// speedWindow is how often the files/sec rate is resampled.
const speedWindow = 500 * time.Millisecond

// ProgressTracker accumulates progress events for the TUI. It is safe
// for concurrent use.
type ProgressTracker struct {
	mu          sync.Mutex
	stage       Stage
	done        int
	queued      int
	currentFile string
	errors      int
	lastError   string
	startTime   time.Time

	lastDone   int
	lastSample time.Time
	rate       float64 // files/sec, exponentially smoothed
	peak       float64
}

// ProgressStats is a snapshot of the tracker.
type ProgressStats struct {
	Stage       Stage
	Done        int
	Queued      int
	Fraction    float64
	CurrentFile string
	Errors      int
	LastError   string
	Rate        float64
	Peak        float64
	Elapsed     time.Duration
	ETA         time.Duration
}

// NewProgressTracker creates a tracker in the scanning stage.
func NewProgressTracker() *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{
		stage:      StageScanning,
		startTime:  now,
		lastSample: now,
	}
}

// Apply folds a progress event into the tracker. Counts never go
// backwards.
func (p *ProgressTracker) Apply(ev ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ev.Stage > p.stage {
		p.stage = ev.Stage
	}
	p.done = max(p.done, ev.Done)
	p.queued = max(p.queued, ev.Queued, p.done)
	if ev.CurrentFile != "" {
		p.currentFile = ev.CurrentFile
	}

	now := time.Now()
	if elapsed := now.Sub(p.lastSample); elapsed >= speedWindow {
		sample := float64(p.done-p.lastDone) / elapsed.Seconds()
		if p.rate == 0 {
			p.rate = sample
		} else {
			p.rate = 0.3*sample + 0.7*p.rate
		}
		p.peak = max(p.peak, sample)
		p.lastDone = p.done
		p.lastSample = now
	}
}

// AddError counts a failed file.
func (p *ProgressTracker) AddError(ev ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.errors++
	if ev.File != "" {
		p.lastError = ev.File
	}
}

// Finish moves the tracker to the complete stage.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = StageComplete
	p.currentFile = ""
}

// Stats returns a snapshot.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	var fraction float64
	if p.queued > 0 {
		fraction = min(1.0, float64(p.done)/float64(p.queued))
	}

	// The queue total grows while the walk runs, so the ETA is a lower bound.
	var eta time.Duration
	if p.rate > 0 && p.queued > p.done {
		eta = time.Duration(float64(p.queued-p.done) / p.rate * float64(time.Second))
	}

	return ProgressStats{
		Stage:       p.stage,
		Done:        p.done,
		Queued:      p.queued,
		Fraction:    fraction,
		CurrentFile: p.currentFile,
		Errors:      p.errors,
		LastError:   p.lastError,
		Rate:        p.rate,
		Peak:        p.peak,
		Elapsed:     time.Since(p.startTime),
		ETA:         eta,
	}
}
