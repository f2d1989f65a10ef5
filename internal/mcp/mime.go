package mcp

import (
	"path/filepath"
	"strings"
)

// mimeTypes maps file extensions to MIME types.
var mimeTypes = map[string]string{
	// Notes and documents
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".mdx":      "text/markdown",
	".txt":      "text/plain",
	".rst":      "text/x-rst",
	".org":      "text/x-org",
	".adoc":     "text/asciidoc",
	".tex":      "text/x-tex",

	// Binary documents, served as extracted text
	".pdf":  "application/pdf",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xlsm": "application/vnd.ms-excel.sheet.macroEnabled.12",

	// Data
	".json": "application/json",
	".yaml": "text/x-yaml",
	".yml":  "text/x-yaml",
	".toml": "text/x-toml",
	".xml":  "text/xml",
	".csv":  "text/csv",
	".tsv":  "text/tab-separated-values",

	// Web
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",

	// Code
	".go":   "text/x-go",
	".py":   "text/x-python",
	".rs":   "text/x-rust",
	".js":   "text/javascript",
	".ts":   "text/typescript",
	".sh":   "text/x-sh",
	".sql":  "text/x-sql",
	".java": "text/x-java",
	".c":    "text/x-c",
	".h":    "text/x-c",
}

// specialFilenames maps specific filenames to MIME types.
var specialFilenames = map[string]string{
	"Dockerfile": "text/x-dockerfile",
	"Makefile":   "text/x-makefile",
	"README":     "text/plain",
	"LICENSE":    "text/plain",
}

// MimeTypeForPath returns the MIME type of the file at path, checking
// special filenames before the extension. Unknown types are text/plain.
func MimeTypeForPath(path string) string {
	base := filepath.Base(path)
	if mime, ok := specialFilenames[base]; ok {
		return mime
	}

	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "text/plain"
}
