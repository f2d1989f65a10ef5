// Package extract turns a file into plain text, dispatching on file kind
// and enforcing a hard cap on the extracted size.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
)

// Kind classifies how a file is converted to text.
type Kind string

const (
	KindText        Kind = "text"
	KindPDF         Kind = "pdf"
	KindSpreadsheet Kind = "spreadsheet"
	KindUnknown     Kind = "unknown"
)

// Result is the outcome of an extraction.
type Result struct {
	Kind      Kind   `json:"kind"`
	Text      string `json:"text"`
	Truncated bool   `json:"truncated"`

	// ContentHash is the hex sha256 of every byte read to produce Text.
	// Set for plain text only; the PDF and spreadsheet parsers open the
	// file themselves.
	ContentHash string `json:"-"`
}

// KindFor classifies path by extension. Paths without an extension are
// unknown and are still read as text.
func KindFor(path string) Kind {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "":
		return KindUnknown
	case "pdf":
		return KindPDF
	case "xlsx", "xlsm":
		return KindSpreadsheet
	default:
		return KindText
	}
}

// Extractor converts files to text. It is safe for concurrent use.
type Extractor struct {
	pdfToText   string
	pdfFallback bool
	logger      *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithPDFToText sets the pdftotext binary (name or path).
func WithPDFToText(bin string) Option {
	return func(e *Extractor) {
		if bin != "" {
			e.pdfToText = bin
		}
	}
}

// WithPDFFallback toggles in-process PDF parsing when pdftotext cannot
// be started.
func WithPDFFallback(enabled bool) Option {
	return func(e *Extractor) { e.pdfFallback = enabled }
}

// WithLogger sets the logger used for fallback diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Extractor. By default it shells out to "pdftotext" and
// falls back to in-process parsing when the tool is missing.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		pdfToText:   "pdftotext",
		pdfFallback: true,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns at most maxTextBytes bytes of text from path. Invalid
// UTF-8 is replaced with U+FFFD rather than failing, and truncation
// happens before decoding so it can never cause a decode error.
func (e *Extractor) Extract(ctx context.Context, path string, maxTextBytes int64) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	maxTextBytes = max(0, maxTextBytes)

	switch KindFor(path) {
	case KindPDF:
		return e.extractPDF(ctx, path, maxTextBytes)
	case KindSpreadsheet:
		return extractSpreadsheet(path, maxTextBytes)
	default:
		return extractPlain(path, maxTextBytes)
	}
}

func extractPlain(path string, maxTextBytes int64) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, silerrors.IOError(fmt.Sprintf("failed to read file %s", path), err)
	}
	defer f.Close()

	h := sha256.New()
	r := io.TeeReader(f, h)
	data, err := io.ReadAll(io.LimitReader(r, maxTextBytes+1))
	if err != nil {
		return Result{}, silerrors.IOError(fmt.Sprintf("failed to read file %s", path), err)
	}
	// The rest only feeds the hash.
	if _, err := io.Copy(io.Discard, r); err != nil {
		return Result{}, silerrors.IOError(fmt.Sprintf("failed to read file %s", path), err)
	}

	text, truncated := capText(data, maxTextBytes)
	return Result{
		Kind:        KindText,
		Text:        text,
		Truncated:   truncated,
		ContentHash: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// capText cuts data to limit bytes and decodes it leniently.
func capText(data []byte, limit int64) (string, bool) {
	truncated := int64(len(data)) > limit
	if truncated {
		data = data[:limit]
	}
	return strings.ToValidUTF8(string(data), "�"), truncated
}
