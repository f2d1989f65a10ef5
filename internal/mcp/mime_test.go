package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMimeTypeForPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{name: "markdown", path: "/notes/README.md", expected: "text/markdown"},
		{name: "upper case extension", path: "/notes/TODO.MD", expected: "text/markdown"},
		{name: "plain text", path: "journal.txt", expected: "text/plain"},
		{name: "org", path: "agenda.org", expected: "text/x-org"},
		{name: "pdf", path: "/papers/attention.pdf", expected: "application/pdf"},
		{name: "xlsx", path: "budget.xlsx", expected: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{name: "csv", path: "export.csv", expected: "text/csv"},
		{name: "yaml", path: "config.yml", expected: "text/x-yaml"},
		{name: "go", path: "main.go", expected: "text/x-go"},
		{name: "makefile", path: "/src/Makefile", expected: "text/x-makefile"},
		{name: "no extension", path: "notes", expected: "text/plain"},
		{name: "unknown extension", path: "photo.heic", expected: "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MimeTypeForPath(tt.path))
		})
	}
}
