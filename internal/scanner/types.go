// Package scanner walks filesystem roots and decides, entry by entry,
// which files a policy accepts for ingestion. The same walk backs the
// read-only preview and live indexing so the two never disagree.
package scanner

import "time"

// Skip reasons. Reasons carrying details are built with fmt and start
// with one of the prefixes below.
const (
	ReasonExcluded     = "excluded by glob"
	ReasonSymlink      = "symlink (skipped)"
	ReasonSymlinkCycle = "symlink cycle"
	ReasonNotRegular   = "not a regular file"
	ReasonExtension    = "extension not allowlisted"
	reasonMetadataFmt  = "metadata error: %v"
	reasonReadDirFmt   = "read_dir error: %v"
	reasonTooLargeFmt  = "file too large: %d bytes"
)

// Preview sample caps used when PreviewOptions leaves them at zero.
const (
	DefaultMaxSamples        = 200
	DefaultMaxSkippedSamples = 200
)

// FileCandidate is a file the policy accepted.
type FileCandidate struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size_bytes"`
	ModTime time.Time `json:"modified"`
	FileID  string    `json:"file_id,omitempty"` // dev:ino where the platform has one
}

// SkipRecord is an entry the walk refused, with the reason.
type SkipRecord struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Stats counts what a walk saw.
type Stats struct {
	ScannedFiles int `json:"scanned_files"`
	ScannedDirs  int `json:"scanned_dirs"`
	Candidates   int `json:"candidates"`
	Skipped      int `json:"skipped"`
}

// Visitor receives walk results. Candidate returns false to stop the walk.
type Visitor interface {
	Candidate(FileCandidate) bool
	Skip(SkipRecord)
}

// PreviewOptions caps the preview samples independently.
type PreviewOptions struct {
	MaxSamples        int
	MaxSkippedSamples int
}

// ScanSummary is the deterministic result of a preview scan.
type ScanSummary struct {
	Roots            []string        `json:"roots"`
	ScannedFiles     int             `json:"scanned_files"`
	ScannedDirs      int             `json:"scanned_dirs"`
	Candidates       int             `json:"candidates"`
	Skipped          int             `json:"skipped"`
	SampleCandidates []FileCandidate `json:"sample_candidates"`
	SampleSkipped    []SkipRecord    `json:"sample_skipped"`
}
