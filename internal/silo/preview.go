package silo

import (
	"context"
	"unicode/utf8"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
	"github.com/Aman-CERP/silo/internal/extract"
	"github.com/Aman-CERP/silo/internal/policy"
	"github.com/Aman-CERP/silo/internal/scanner"
)

// DefaultPreviewChars is the extract preview length when neither the
// caller nor the configuration sets one.
const DefaultPreviewChars = 240

const noSourceMessage = "No filesystem source configured"

// ExtractPreview describes what the extractor makes of one file.
type ExtractPreview struct {
	Path      string       `json:"path"`
	Kind      extract.Kind `json:"kind"`
	TextLen   int          `json:"text_len"` // runes
	Truncated bool         `json:"truncated"`
	Preview   string       `json:"preview"`
}

// PreviewScan reports what an index run over roots would pick up without
// reading or storing anything. A nil pol uses the current policy and zero
// caps use the configured ones.
func (s *State) PreviewScan(ctx context.Context, roots []string, pol *policy.FileSystemPolicy, caps scanner.PreviewOptions) (scanner.ScanSummary, error) {
	s.mu.RLock()
	if len(roots) == 0 {
		roots = s.cfg.Roots()
	} else {
		roots = expandRoots(roots)
	}
	preview := s.cfg.Preview
	s.mu.RUnlock()

	if pol == nil {
		pol = s.policy.Load()
	}
	if pol == nil {
		return scanner.ScanSummary{}, silerrors.ConfigError(noSourceMessage, nil)
	}
	if caps.MaxSamples <= 0 {
		caps.MaxSamples = preview.MaxSamples
	}
	if caps.MaxSkippedSamples <= 0 {
		caps.MaxSkippedSamples = preview.MaxSkippedSamples
	}

	return scanner.Preview(ctx, roots, pol, caps)
}

// ExtractPreview extracts path under the policy's text cap and returns
// the first maxChars runes. The policy's filters are not applied.
func (s *State) ExtractPreview(ctx context.Context, path string, maxChars int) (ExtractPreview, error) {
	path, err := cleanPath(path)
	if err != nil {
		return ExtractPreview{}, err
	}
	if maxChars <= 0 {
		s.mu.RLock()
		maxChars = s.cfg.Preview.ContentChars
		s.mu.RUnlock()
	}
	if maxChars <= 0 {
		maxChars = DefaultPreviewChars
	}

	res, err := s.extractor.Extract(ctx, path, s.maxTextBytes())
	if err != nil {
		return ExtractPreview{}, err
	}

	return ExtractPreview{
		Path:      path,
		Kind:      res.Kind,
		TextLen:   utf8.RuneCountInString(res.Text),
		Truncated: res.Truncated,
		Preview:   truncateRunes(res.Text, maxChars),
	}, nil
}

// maxTextBytes is the current policy's text cap, or the default when no
// filesystem source is configured.
func (s *State) maxTextBytes() int64 {
	if pol := s.policy.Load(); pol != nil {
		return pol.MaxTextBytes()
	}
	return policy.DefaultMaxTextBytes
}

// truncateRunes keeps the first n runes of text, appending "…" when cut.
func truncateRunes(text string, n int) string {
	count := 0
	for i := range text {
		if count == n {
			return text[:i] + "…"
		}
		count++
	}
	return text
}
