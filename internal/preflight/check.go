// Package preflight checks that this machine can run an index: the data
// directory is writable and has room, the roots are readable, and the
// optional helpers (pdftotext, the embedding backend) are reachable.
//
//	checker := preflight.New(preflight.WithEmbedder(e))
//	results := checker.RunAll(ctx, preflight.Target{DataDir: dir, Roots: roots})
//	if checker.HasCriticalFailures(results) {
//	    // refuse to index
//	}
package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Aman-CERP/silo/internal/embed"
)

// CheckStatus is the outcome of one check.
type CheckStatus int

const (
	// StatusPass indicates the check passed.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a degraded but usable setup.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the status as its name in JSON.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult holds the result of a single check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Target is what RunAll inspects.
type Target struct {
	DataDir string
	Roots   []string
}

// Checker runs the checks.
type Checker struct {
	pdfToText string
	embedder  embed.Embedder
	embedErr  error
}

// Option configures a Checker.
type Option func(*Checker)

// WithPDFToText sets the pdftotext binary looked up on PATH.
func WithPDFToText(bin string) Option {
	return func(c *Checker) {
		if bin != "" {
			c.pdfToText = bin
		}
	}
}

// WithEmbedder sets the embedder to probe, and the error (if any) that
// made the factory fall back from the configured provider.
func WithEmbedder(e embed.Embedder, initErr error) Option {
	return func(c *Checker) {
		c.embedder = e
		c.embedErr = initErr
	}
}

// New creates a Checker.
func New(opts ...Option) *Checker {
	c := &Checker{pdfToText: "pdftotext"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check against t, in a fixed order.
func (c *Checker) RunAll(ctx context.Context, t Target) []CheckResult {
	return []CheckResult{
		c.CheckDataDir(t.DataDir),
		c.CheckDiskSpace(t.DataDir),
		c.CheckRoots(t.Roots),
		c.CheckFileDescriptors(),
		c.CheckPDFToText(),
		c.CheckEmbedder(ctx),
	}
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns "ready", "ready_with_warnings" or "failed".
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status == StatusWarn || r.Status == StatusFail {
			hasWarnings = true
		}
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// CheckDataDir creates the data directory if needed and probes that a
// file can be written there.
func (c *Checker) CheckDataDir(dir string) CheckResult {
	result := CheckResult{Name: "data_dir", Required: true, Details: dir}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create: %v", err)
		return result
	}

	probe := filepath.Join(dir, ".silo-preflight")
	f, err := os.Create(probe)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(probe)

	result.Status = StatusPass
	result.Message = "writable"
	return result
}

// CheckRoots requires at least one readable root directory. Unreadable
// roots next to a good one are a warning.
func (c *Checker) CheckRoots(roots []string) CheckResult {
	result := CheckResult{Name: "roots", Required: true}

	if len(roots) == 0 {
		result.Status = StatusFail
		result.Message = "no roots configured"
		result.Details = "Run 'silo config set-roots <dir>...'"
		return result
	}

	var ok int
	var problems []string
	for _, root := range roots {
		info, err := os.Stat(root)
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("%s: %v", root, err))
		case !info.IsDir():
			problems = append(problems, root+": not a directory")
		default:
			if _, err := os.ReadDir(root); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", root, err))
				continue
			}
			ok++
		}
	}

	switch {
	case ok == 0:
		result.Status = StatusFail
		result.Message = "no root is readable"
	case len(problems) > 0:
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%d of %d roots readable", ok, len(roots))
	default:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%d roots readable", ok)
	}
	if len(problems) > 0 {
		result.Details = fmt.Sprint(problems)
	}
	return result
}

// CheckPDFToText looks for the pdftotext binary. Without it PDFs go
// through the in-process parsers, which handle fewer layouts.
func (c *Checker) CheckPDFToText() CheckResult {
	result := CheckResult{Name: "pdftotext"}

	path, err := exec.LookPath(c.pdfToText)
	if err != nil {
		result.Status = StatusWarn
		result.Message = c.pdfToText + " not found, using the built-in PDF parsers"
		result.Details = "Install poppler (brew install poppler, apt install poppler-utils)"
		return result
	}

	result.Status = StatusPass
	result.Message = path
	return result
}

// CheckEmbedder reports whether the embedding backend answers. Search
// falls back to keywords without one, so this never fails hard.
func (c *Checker) CheckEmbedder(ctx context.Context) CheckResult {
	result := CheckResult{Name: "embedder"}

	if c.embedder == nil {
		result.Status = StatusWarn
		result.Message = "not configured"
		return result
	}

	info := embed.GetInfo(ctx, c.embedder)
	switch {
	case c.embedErr != nil:
		result.Status = StatusWarn
		result.Message = "configured provider failed, keyword search only"
		result.Details = c.embedErr.Error()
	case !info.Available:
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s unavailable, keyword search only", info.Provider)
	default:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%s %s (%d dims)", info.Provider, info.Model, info.Dimensions)
	}
	return result
}
