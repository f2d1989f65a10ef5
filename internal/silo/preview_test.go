package silo

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/silo/internal/extract"
	"github.com/Aman-CERP/silo/internal/policy"
	"github.com/Aman-CERP/silo/internal/scanner"
)

func TestPreviewScan_IsReadOnly(t *testing.T) {
	// Given: a notes directory and an empty store
	root := notesFixture(t)
	s := newTestState(t, testConfig(t, root), "")

	// When: previewing with the configured roots
	summary, err := s.PreviewScan(context.Background(), nil, nil, scanner.PreviewOptions{})

	// Then: candidates and skips are reported and nothing is stored
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Candidates)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.SampleSkipped, 1)
	assert.Equal(t, scanner.ReasonExtension, summary.SampleSkipped[0].Reason)

	count, err := s.Store().CountChunks(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPreviewScan_ExplicitPolicyAndCaps(t *testing.T) {
	// Given: a policy that only accepts markdown
	root := notesFixture(t)
	s := newTestState(t, testConfig(t, t.TempDir()), "")
	pol := policy.MustCompile(policy.Options{
		AllowExtensions:  []string{"md"},
		MaxFileSizeBytes: policy.DefaultMaxFileSizeBytes,
		MaxTextBytes:     policy.DefaultMaxTextBytes,
	})

	// When: previewing with sample caps of one
	summary, err := s.PreviewScan(context.Background(), []string{root}, pol, scanner.PreviewOptions{MaxSamples: 1, MaxSkippedSamples: 1})

	// Then: the explicit policy and caps apply
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Candidates)
	assert.Equal(t, 2, summary.Skipped)
	assert.Len(t, summary.SampleSkipped, 1)
}

func TestPreviewScan_NoSource(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Sources = nil
	s := newTestState(t, cfg, "")

	_, err := s.PreviewScan(context.Background(), []string{t.TempDir()}, nil, scanner.PreviewOptions{})

	assert.ErrorContains(t, err, noSourceMessage)
}

func TestExtractPreview(t *testing.T) {
	root := t.TempDir()
	long := filepath.Join(root, "long.txt")
	writeFile(t, long, strings.Repeat("é", 300))
	s := newTestState(t, testConfig(t, root), "")

	tests := []struct {
		name     string
		maxChars int
		wantLen  int // runes in the preview, ellipsis included
	}{
		{"configured default", 0, 241},
		{"explicit", 10, 11},
		{"larger than text", 500, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := s.ExtractPreview(context.Background(), long, tt.maxChars)

			require.NoError(t, err)
			assert.Equal(t, extract.KindText, p.Kind)
			assert.Equal(t, 300, p.TextLen)
			assert.False(t, p.Truncated)
			assert.Equal(t, tt.wantLen, utf8.RuneCountInString(p.Preview))
		})
	}
}

func TestExtractPreview_Errors(t *testing.T) {
	s := newTestState(t, testConfig(t, t.TempDir()), "")

	_, err := s.ExtractPreview(context.Background(), "", 10)
	assert.Error(t, err)

	_, err = s.ExtractPreview(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), 10)
	assert.Error(t, err)
}
