package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
	"github.com/Aman-CERP/silo/internal/policy"
)

// verdict is the outcome of checking one path.
type verdict struct {
	dir       bool
	children  []string
	regular   bool // reached the extension check
	candidate FileCandidate
	reason    string // non-empty means skipped
}

// inspect applies the acceptance checks to path, in order. When visited
// is non-nil, directories are listed and a directory already in visited
// is skipped as a cycle.
func inspect(path string, pol *policy.FileSystemPolicy, visited map[string]struct{}) verdict {
	if pol.MatchesExclude(path) {
		return verdict{reason: ReasonExcluded}
	}

	info, err := os.Lstat(path)
	if err != nil {
		return verdict{reason: fmt.Sprintf(reasonMetadataFmt, err)}
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		if !pol.FollowSymlinks() {
			return verdict{reason: ReasonSymlink}
		}
		info, err = os.Stat(path)
		if err != nil {
			return verdict{reason: fmt.Sprintf(reasonMetadataFmt, err)}
		}
	}

	if info.IsDir() {
		v := verdict{dir: true}
		if visited == nil {
			v.reason = ReasonNotRegular
			return v
		}
		if id := dirID(path, info); id != "" {
			if _, seen := visited[id]; seen {
				return verdict{reason: ReasonSymlinkCycle}
			}
			visited[id] = struct{}{}
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			v.reason = fmt.Sprintf(reasonReadDirFmt, err)
			return v
		}
		v.children = make([]string, 0, len(entries))
		for _, e := range entries {
			v.children = append(v.children, filepath.Join(path, e.Name()))
		}
		return v
	}

	if !info.Mode().IsRegular() {
		return verdict{reason: ReasonNotRegular}
	}

	if !pol.ExtensionAllowed(path) {
		return verdict{regular: true, reason: ReasonExtension}
	}

	if info.Size() > pol.MaxFileSize() {
		return verdict{regular: true, reason: fmt.Sprintf(reasonTooLargeFmt, info.Size())}
	}

	return verdict{
		regular: true,
		candidate: FileCandidate{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			FileID:  fileID(info),
		},
	}
}

// dirID identifies a directory independently of the path that reached
// it: dev:ino where the platform has one, else the resolved path.
func dirID(path string, info fs.FileInfo) string {
	if id := fileID(info); id != "" {
		return id
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return ""
	}
	return resolved
}

// Walk traverses roots depth-first with an explicit stack and reports
// each accepted file and each skip to v. Each directory is entered at
// most once, so symlinks back to an ancestor end the branch with a
// ReasonSymlinkCycle skip. A single entry's failure never
// aborts the walk; only cancellation of ctx does, in which case the
// stats gathered so far are returned with ctx.Err().
func Walk(ctx context.Context, roots []string, pol *policy.FileSystemPolicy, v Visitor) (Stats, error) {
	var stats Stats
	if pol == nil {
		return stats, silerrors.ConfigError("no filesystem policy configured", nil)
	}

	stack := make([]string, 0, len(roots))
	stack = append(stack, roots...)
	visited := make(map[string]struct{})

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		res := inspect(current, pol, visited)
		if res.dir {
			stats.ScannedDirs++
		}
		if res.regular {
			stats.ScannedFiles++
		}

		switch {
		case res.reason != "":
			stats.Skipped++
			v.Skip(SkipRecord{Path: current, Reason: res.reason})
		case res.dir:
			stack = append(stack, res.children...)
		default:
			stats.Candidates++
			if !v.Candidate(res.candidate) {
				slog.Debug("walk stopped by visitor", slog.String("path", current))
				return stats, nil
			}
		}
	}

	return stats, nil
}

// Check runs the acceptance checks against a single path. A rejected
// path yields a validation error whose message carries the skip reason.
func Check(path string, pol *policy.FileSystemPolicy) (FileCandidate, error) {
	if pol == nil {
		return FileCandidate{}, silerrors.ConfigError("no filesystem policy configured", nil)
	}
	res := inspect(path, pol, nil)
	if res.reason != "" {
		return FileCandidate{}, silerrors.New(silerrors.ErrCodeRejected,
			fmt.Sprintf("%s rejected: %s", path, res.reason), nil).
			WithDetail("path", path).
			WithDetail("reason", res.reason)
	}
	return res.candidate, nil
}

// previewCollector samples walk results up to independent caps.
type previewCollector struct {
	maxCandidates int
	maxSkipped    int
	candidates    []FileCandidate
	skipped       []SkipRecord
}

func (c *previewCollector) Candidate(f FileCandidate) bool {
	if len(c.candidates) < c.maxCandidates {
		c.candidates = append(c.candidates, f)
	}
	return true
}

func (c *previewCollector) Skip(s SkipRecord) {
	if len(c.skipped) < c.maxSkipped {
		c.skipped = append(c.skipped, s)
	}
}

// Preview walks roots without side effects and returns counts plus
// path-sorted samples of candidates and skips.
func Preview(ctx context.Context, roots []string, pol *policy.FileSystemPolicy, opts PreviewOptions) (ScanSummary, error) {
	col := &previewCollector{
		maxCandidates: opts.MaxSamples,
		maxSkipped:    opts.MaxSkippedSamples,
	}
	if col.maxCandidates <= 0 {
		col.maxCandidates = DefaultMaxSamples
	}
	if col.maxSkipped <= 0 {
		col.maxSkipped = DefaultMaxSkippedSamples
	}

	stats, err := Walk(ctx, roots, pol, col)

	sort.Slice(col.candidates, func(i, j int) bool { return col.candidates[i].Path < col.candidates[j].Path })
	sort.Slice(col.skipped, func(i, j int) bool { return col.skipped[i].Path < col.skipped[j].Path })

	summary := ScanSummary{
		Roots:            append([]string{}, roots...),
		ScannedFiles:     stats.ScannedFiles,
		ScannedDirs:      stats.ScannedDirs,
		Candidates:       stats.Candidates,
		Skipped:          stats.Skipped,
		SampleCandidates: col.candidates,
		SampleSkipped:    col.skipped,
	}
	if summary.SampleCandidates == nil {
		summary.SampleCandidates = []FileCandidate{}
	}
	if summary.SampleSkipped == nil {
		summary.SampleSkipped = []SkipRecord{}
	}
	return summary, err
}
