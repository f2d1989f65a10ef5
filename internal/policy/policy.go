// Package policy compiles declarative filesystem source settings into an
// immutable matcher shared by preview scans and ingestion.
package policy

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
)

const (
	// DefaultMaxFileSizeBytes is the largest file considered for ingestion.
	DefaultMaxFileSizeBytes int64 = 10 * 1024 * 1024
	// DefaultMaxTextBytes caps extracted text kept per file.
	DefaultMaxTextBytes int64 = 2 * 1024 * 1024
)

// DefaultExcludeGlobs returns the built-in exclusions: VCS and dependency
// trees, OS cruft, likely secrets and large caches.
func DefaultExcludeGlobs() []string {
	return []string{
		"**/.git/**",
		"**/node_modules/**",
		"**/target/**",
		"**/.venv/**",
		"**/venv/**",
		"**/__pycache__/**",
		"**/.DS_Store",
		"**/.env",
		"**/.env.*",
		"**/*.key",
		"**/*.pem",
		"**/*id_rsa*",
		"**/.cache/**",
		"**/Library/**",
	}
}

// DefaultExtensions returns the extensions ingested when none are configured.
func DefaultExtensions() []string {
	return []string{
		"txt", "md", "rst",
		"rs", "toml", "json", "yaml", "yml",
		"py", "js", "ts", "tsx", "jsx",
		"java", "kt", "go", "rb", "php",
		"html", "css", "scss",
		"sql",
		"pdf",
	}
}

// Options is the declarative input to Compile.
type Options struct {
	ExcludeGlobs     []string
	AllowExtensions  []string // empty selects DefaultExtensions
	MaxFileSizeBytes int64
	MaxTextBytes     int64
	FollowSymlinks   bool
}

// FileSystemPolicy is a compiled, immutable source policy.
type FileSystemPolicy struct {
	exclude        *GlobSet
	extensions     map[string]struct{}
	maxFileSize    int64
	maxTextBytes   int64
	followSymlinks bool
}

// Compile builds a FileSystemPolicy. An invalid glob is the only failure.
func Compile(opts Options) (*FileSystemPolicy, error) {
	exclude, err := CompileGlobs(opts.ExcludeGlobs)
	if err != nil {
		return nil, silerrors.New(silerrors.ErrCodeInvalidGlob, err.Error(), err)
	}

	exts := normalizeExtensions(opts.AllowExtensions)
	if len(exts) == 0 {
		exts = DefaultExtensions()
	}
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[e] = struct{}{}
	}

	return &FileSystemPolicy{
		exclude:        exclude,
		extensions:     set,
		maxFileSize:    opts.MaxFileSizeBytes,
		maxTextBytes:   opts.MaxTextBytes,
		followSymlinks: opts.FollowSymlinks,
	}, nil
}

// MustCompile is Compile for known-good options; it panics on error.
func MustCompile(opts Options) *FileSystemPolicy {
	p, err := Compile(opts)
	if err != nil {
		panic(err)
	}
	return p
}

// MatchesExclude reports whether path hits any exclusion glob.
func (p *FileSystemPolicy) MatchesExclude(path string) bool {
	return p.exclude.Match(path)
}

// ExtensionAllowed reports whether path's extension is in the allowlist.
// Paths without an extension are never allowed.
func (p *FileSystemPolicy) ExtensionAllowed(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return false
	}
	_, ok := p.extensions[strings.ToLower(ext)]
	return ok
}

// MaxFileSize returns the per-file size cap in bytes.
func (p *FileSystemPolicy) MaxFileSize() int64 { return p.maxFileSize }

// MaxTextBytes returns the extracted-text cap in bytes.
func (p *FileSystemPolicy) MaxTextBytes() int64 { return p.maxTextBytes }

// FollowSymlinks reports whether symlinks are traversed.
func (p *FileSystemPolicy) FollowSymlinks() bool { return p.followSymlinks }

// Extensions returns the sorted allowlist.
func (p *FileSystemPolicy) Extensions() []string {
	out := make([]string, 0, len(p.extensions))
	for e := range p.extensions {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// ExcludeGlobs returns the exclusion patterns.
func (p *FileSystemPolicy) ExcludeGlobs() []string {
	return p.exclude.Patterns()
}

func normalizeExtensions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimLeft(strings.TrimSpace(e), "."))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// Holder owns the current policy. Readers take a snapshot with Load and
// use it for a whole run; Store swaps in a replacement atomically.
type Holder struct {
	mu  sync.RWMutex
	cur *FileSystemPolicy
}

// NewHolder returns a Holder seeded with p (which may be nil).
func NewHolder(p *FileSystemPolicy) *Holder {
	return &Holder{cur: p}
}

// Load returns the current policy snapshot, or nil if none is configured.
func (h *Holder) Load() *FileSystemPolicy {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cur
}

// Store replaces the current policy.
func (h *Holder) Store(p *FileSystemPolicy) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cur = p
}
