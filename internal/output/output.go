// Package output formats command results for the terminal, either as
// plain lines or as indented JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out  io.Writer
	json bool
}

// New creates a Writer. With asJSON set, JSON emits values and the
// line helpers print nothing.
func New(out io.Writer, asJSON bool) *Writer {
	return &Writer{out: out, json: asJSON}
}

// IsJSON reports whether the writer is in JSON mode.
func (w *Writer) IsJSON() bool {
	return w.json
}

// JSON writes v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if w.json {
		return
	}
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", msg)
}

// KeyValue prints an aligned "key: value" line.
func (w *Writer) KeyValue(key string, value any) {
	if w.json {
		return
	}
	_, _ = fmt.Fprintf(w.out, "  %-14s %v\n", key+":", value)
}

// List prints items as bullets under an optional heading.
func (w *Writer) List(heading string, items []string) {
	if w.json || len(items) == 0 {
		return
	}
	if heading != "" {
		_, _ = fmt.Fprintf(w.out, "%s\n", heading)
	}
	for _, item := range items {
		_, _ = fmt.Fprintf(w.out, "  - %s\n", item)
	}
}

// Hit prints one ranked search hit with its preview indented below.
func (w *Writer) Hit(rank int, path string, chunk int, score float64, preview string) {
	if w.json {
		return
	}
	_, _ = fmt.Fprintf(w.out, "%2d. %s #%d  (%.3f)\n", rank, path, chunk, score)
	if preview == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimSpace(preview), "\n") {
		_, _ = fmt.Fprintf(w.out, "    %s\n", line)
	}
}

// Code prints a block of text indented by two spaces.
func (w *Writer) Code(content string) {
	if w.json {
		return
	}
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	if w.json {
		return
	}
	_, _ = fmt.Fprintln(w.out)
}
