package mcp

import (
	"time"

	"github.com/Aman-CERP/silo/internal/async"
	"github.com/Aman-CERP/silo/internal/scanner"
	"github.com/Aman-CERP/silo/internal/silo"
	"github.com/Aman-CERP/silo/internal/store"
)

// Tool names.
const (
	ToolListFiles           = "silo_list_files"
	ToolReadFile            = "silo_read_file"
	ToolSearchKnowledgeBase = "silo_search_knowledge_base"
	ToolGetConfig           = "silo_get_config"
	ToolSetIndexRoots       = "silo_set_index_roots"
	ToolValidateIndexConfig = "silo_validate_index_config"
	ToolIndex               = "silo_index"
	ToolIndexStatus         = "silo_index_status"
	ToolPreviewScan         = "silo_preview_scan"
	ToolExtractPreview      = "silo_extract_preview"
	ToolIngestOne           = "silo_ingest_one"
)

// ListFilesInput defines the input schema for silo_list_files.
type ListFilesInput struct {
	Directory string `json:"directory" jsonschema:"absolute path of the directory to list"`
}

// ListFilesOutput lists the entries of one directory.
type ListFilesOutput struct {
	Entries []silo.FileEntry `json:"entries"`
}

// ReadFileInput defines the input schema for silo_read_file.
type ReadFileInput struct {
	Path string `json:"path" jsonschema:"absolute path of the file to read"`
}

// ReadFileOutput is the extracted text of a file.
type ReadFileOutput struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
	MIMEType  string `json:"mime_type"`
}

// SearchInput defines the input schema for silo_search_knowledge_base.
type SearchInput struct {
	Query string `json:"query" jsonschema:"natural language query"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"maximum number of hits, default 10, at most 100"`
}

// SearchOutput is the ranked list of matching chunks.
type SearchOutput struct {
	Query string            `json:"query"`
	Mode  string            `json:"mode" jsonschema:"vector or keyword"`
	Hits  []store.SearchHit `json:"hits"`
}

// EmptyInput is the input schema of tools without parameters.
type EmptyInput struct{}

// SetIndexRootsInput defines the input schema for silo_set_index_roots.
type SetIndexRootsInput struct {
	Roots []string `json:"roots" jsonschema:"directories to index, replacing the current roots; ~ is expanded"`
}

// IndexInput defines the input schema for silo_index.
type IndexInput struct {
	Roots       []string `json:"roots,omitempty" jsonschema:"directories to index, defaults to the configured roots"`
	MaxFiles    int      `json:"max_files,omitempty" jsonschema:"stop dispatching after this many files"`
	Concurrency int      `json:"concurrency,omitempty" jsonschema:"number of ingestion workers"`
	Wait        bool     `json:"wait,omitempty" jsonschema:"block until the run finishes"`
}

// IndexOutput reports whether a run was started and where it stands.
type IndexOutput struct {
	Started bool                        `json:"started"`
	Message string                      `json:"message"`
	Status  async.IndexProgressSnapshot `json:"status"`
}

// PreviewScanInput defines the input schema for silo_preview_scan.
type PreviewScanInput struct {
	Roots      []string `json:"roots,omitempty" jsonschema:"directories to scan, defaults to the configured roots"`
	MaxSamples int      `json:"max_samples,omitempty" jsonschema:"number of sample candidates to return"`
	MaxSkipped int      `json:"max_skipped,omitempty" jsonschema:"number of sample skips to return"`
}

// ScanCandidate is a file an index run would accept.
type ScanCandidate struct {
	Path     string `json:"path"`
	Size     int64  `json:"size_bytes"`
	Modified string `json:"modified"` // RFC 3339
}

// PreviewScanOutput mirrors scanner.ScanSummary with string timestamps.
type PreviewScanOutput struct {
	Roots            []string             `json:"roots"`
	ScannedFiles     int                  `json:"scanned_files"`
	ScannedDirs      int                  `json:"scanned_dirs"`
	Candidates       int                  `json:"candidates"`
	Skipped          int                  `json:"skipped"`
	SampleCandidates []ScanCandidate      `json:"sample_candidates"`
	SampleSkipped    []scanner.SkipRecord `json:"sample_skipped"`
}

// ExtractPreviewInput defines the input schema for silo_extract_preview.
type ExtractPreviewInput struct {
	Path     string `json:"path" jsonschema:"absolute path of the file"`
	MaxChars int    `json:"max_chars,omitempty" jsonschema:"preview length in characters"`
}

// IngestOneInput defines the input schema for silo_ingest_one.
type IngestOneInput struct {
	Path string `json:"path" jsonschema:"absolute path of the file to ingest"`
}

// toScanOutput converts a summary, replacing nil slices so the result
// always matches its schema.
func toScanOutput(s scanner.ScanSummary) PreviewScanOutput {
	out := PreviewScanOutput{
		Roots:            s.Roots,
		ScannedFiles:     s.ScannedFiles,
		ScannedDirs:      s.ScannedDirs,
		Candidates:       s.Candidates,
		Skipped:          s.Skipped,
		SampleCandidates: make([]ScanCandidate, 0, len(s.SampleCandidates)),
		SampleSkipped:    s.SampleSkipped,
	}
	if out.Roots == nil {
		out.Roots = []string{}
	}
	if out.SampleSkipped == nil {
		out.SampleSkipped = []scanner.SkipRecord{}
	}
	for _, c := range s.SampleCandidates {
		out.SampleCandidates = append(out.SampleCandidates, ScanCandidate{
			Path:     c.Path,
			Size:     c.Size,
			Modified: c.ModTime.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func toSearchOutput(r silo.SearchResults) SearchOutput {
	out := SearchOutput{Query: r.Query, Mode: r.Mode, Hits: r.Hits}
	if out.Hits == nil {
		out.Hits = []store.SearchHit{}
	}
	return out
}

func toIndexOutput(started bool, snap async.IndexProgressSnapshot) IndexOutput {
	out := IndexOutput{Started: started, Status: normalizeSnapshot(snap)}
	switch {
	case started && snap.Status == string(async.StatusIndexing):
		out.Message = "Indexing started in the background."
	case started:
		out.Message = "Indexing finished."
	default:
		out.Message = "Indexing is already running."
	}
	return out
}

func normalizeSnapshot(snap async.IndexProgressSnapshot) async.IndexProgressSnapshot {
	if snap.Summary != nil {
		sum := *snap.Summary
		if sum.Roots == nil {
			sum.Roots = []string{}
		}
		if sum.SampleErrors == nil {
			sum.SampleErrors = []string{}
		}
		snap.Summary = &sum
	}
	return snap
}
