package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/silo/internal/silo"
)

// FormatSearchResults formats knowledge-base hits as markdown.
func FormatSearchResults(out SearchOutput) string {
	if len(out.Hits) == 0 {
		return fmt.Sprintf("No results found for \"%s\"", out.Query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\"\n\n", out.Query)
	fmt.Fprintf(&sb, "Found %d result", len(out.Hits))
	if len(out.Hits) != 1 {
		sb.WriteString("s")
	}
	fmt.Fprintf(&sb, " (%s search)\n\n", out.Mode)

	// Vector scores are distances, keyword scores grow with relevance.
	label := "score"
	if out.Mode == silo.ModeVector {
		label = "distance"
	}

	for i, h := range out.Hits {
		fmt.Fprintf(&sb, "### %d. %s #%d (%s: %.3f)\n\n", i+1, h.Path, h.ChunkIndex, label, h.Score)
		if h.ContentPreview != "" {
			sb.WriteString(h.ContentPreview)
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

// FormatIndexOutput summarizes an index request.
func FormatIndexOutput(out IndexOutput) string {
	var sb strings.Builder
	sb.WriteString(out.Message)
	sb.WriteString("\n\n")
	writeProgress(&sb, out.Status.Status, out.Status.FilesProcessed, out.Status.FilesQueued, out.Status.FilesFailed, out.Status.ChunksStored)

	if sum := out.Status.Summary; sum != nil {
		fmt.Fprintf(&sb, "**Scanned:** %d files in %d directories\n", sum.ScannedFiles, sum.ScannedDirs)
		fmt.Fprintf(&sb, "**Ingested:** %d, **skipped:** %d, **errors:** %d\n", sum.Ingested, sum.Skipped, sum.Errors)
		fmt.Fprintf(&sb, "**Stored:** %d files, %d chunks\n", sum.Stored, sum.Chunks)
		for _, e := range sum.SampleErrors {
			fmt.Fprintf(&sb, "- %s\n", e)
		}
	}
	if out.Status.ErrorMessage != "" {
		fmt.Fprintf(&sb, "\n**Error:** %s\n", out.Status.ErrorMessage)
	}
	return sb.String()
}

// FormatStatus renders an index health report.
func FormatStatus(st silo.Status) string {
	var sb strings.Builder
	sb.WriteString("## Index Status\n\n")

	if st.Store.Enabled {
		fmt.Fprintf(&sb, "**Store:** %d chunks from %d files (%s)\n", st.Store.Chunks, st.Store.Files, humanSize(st.DBSize))
	} else {
		fmt.Fprintf(&sb, "**Store:** disabled (%s)\n", st.Store.DisabledReason)
	}

	state := "available"
	if !st.Embedder.Available {
		state = "unavailable, keyword search only"
	}
	fmt.Fprintf(&sb, "**Embedder:** %s %s, %d dims (%s)\n", st.Embedder.Provider, st.Embedder.Model, st.Embedder.Dimensions, state)
	if st.EmbedderDegraded != "" {
		fmt.Fprintf(&sb, "**Embedder degraded:** %s\n", st.EmbedderDegraded)
	}

	switch {
	case st.Indexing != nil:
		sb.WriteString("\n")
		writeProgress(&sb, st.Indexing.Status, st.Indexing.FilesProcessed, st.Indexing.FilesQueued, st.Indexing.FilesFailed, st.Indexing.ChunksStored)
	case st.IndexLockHeld:
		sb.WriteString("\nAnother process is indexing this data directory.\n")
	}
	return sb.String()
}

func writeProgress(sb *strings.Builder, status string, done, queued, failed, chunks int) {
	fmt.Fprintf(sb, "**Status:** %s\n", status)
	fmt.Fprintf(sb, "**Progress:** %d/%d files", done, queued)
	if failed > 0 {
		fmt.Fprintf(sb, ", %d failed", failed)
	}
	fmt.Fprintf(sb, ", %d chunks stored\n", chunks)
}

// humanSize formats bytes as a human-readable string.
func humanSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
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
