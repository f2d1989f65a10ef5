package ui

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Aman-CERP/silo/internal/async"
)

// StatusInfo is the health report printed by `silo status`.
type StatusInfo struct {
	ConfigPath string `json:"config_path"`
	DataDir    string `json:"data_dir"`

	StoreEnabled bool   `json:"store_enabled"`
	StoreReason  string `json:"store_disabled_reason,omitempty"`
	Files        int    `json:"files"`
	Chunks       int    `json:"chunks"`
	GraphNodes   int    `json:"graph_nodes"`
	Orphans      int    `json:"graph_orphans"`
	DBSize       int64  `json:"db_size_bytes"`

	EmbedderProvider  string `json:"embedder_provider"`
	EmbedderModel     string `json:"embedder_model"`
	EmbedderDims      int    `json:"embedder_dimensions"`
	EmbedderAvailable bool   `json:"embedder_available"`
	EmbedderDegraded  string `json:"embedder_degraded,omitempty"`

	// IndexLockHeld is true while another process is indexing DataDir.
	IndexLockHeld bool                         `json:"index_lock_held"`
	Indexing      *async.IndexProgressSnapshot `json:"indexing,omitempty"`
}

// StatusRenderer prints StatusInfo.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

// Render prints info as aligned text.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Title.Render("silo status"))
	_, _ = fmt.Fprintf(r.out, "  Config:   %s\n", info.ConfigPath)
	_, _ = fmt.Fprintf(r.out, "  Data dir: %s\n\n", info.DataDir)

	_, _ = fmt.Fprintln(r.out, "  Store:")
	if !info.StoreEnabled {
		_, _ = fmt.Fprintf(r.out, "    State:  %s (%s)\n\n", r.styles.Warning.Render("disabled"), info.StoreReason)
	} else {
		_, _ = fmt.Fprintf(r.out, "    State:  %s\n", r.styles.Accent.Render("enabled"))
		_, _ = fmt.Fprintf(r.out, "    Files:  %d\n", info.Files)
		_, _ = fmt.Fprintf(r.out, "    Chunks: %d\n", info.Chunks)
		_, _ = fmt.Fprintf(r.out, "    Graph:  %d nodes, %d orphans\n", info.GraphNodes, info.Orphans)
		_, _ = fmt.Fprintf(r.out, "    Size:   %s\n\n", FormatBytes(info.DBSize))
	}

	_, _ = fmt.Fprintln(r.out, "  Embedder:")
	_, _ = fmt.Fprintf(r.out, "    Provider: %s\n", info.EmbedderProvider)
	_, _ = fmt.Fprintf(r.out, "    Model:    %s (%d dims)\n", info.EmbedderModel, info.EmbedderDims)
	_, _ = fmt.Fprintf(r.out, "    Status:   %s\n", r.availability(info.EmbedderAvailable))
	if info.EmbedderDegraded != "" {
		_, _ = fmt.Fprintf(r.out, "    Degraded: %s\n", r.styles.Warning.Render(info.EmbedderDegraded))
	}

	switch {
	case info.Indexing != nil && info.Indexing.Status != string(async.StatusIdle):
		_, _ = fmt.Fprintf(r.out, "\n  Indexing: %s, %d/%d files\n",
			info.Indexing.Status, info.Indexing.FilesProcessed, info.Indexing.FilesQueued)
	case info.IndexLockHeld:
		_, _ = fmt.Fprintf(r.out, "\n  Indexing: %s\n", r.styles.Warning.Render("in progress in another process"))
	}
	return nil
}

// RenderJSON prints info as indented JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) availability(ok bool) string {
	if ok {
		return r.styles.Accent.Render("ready")
	}
	return r.styles.Warning.Render("offline (keyword search only)")
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
