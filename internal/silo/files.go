package silo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Aman-CERP/silo/internal/config"
	silerrors "github.com/Aman-CERP/silo/internal/errors"
)

// FileEntry is one directory entry returned by ListFiles.
type FileEntry struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	IsFile bool   `json:"isFile"`
	IsDir  bool   `json:"isDir"`
}

// FileContent is the text of a file returned by ReadFile.
type FileContent struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
}

// ListFiles lists dir without recursing. Symlinks are reported as neither
// files nor directories.
func (s *State) ListFiles(_ context.Context, dir string) ([]FileEntry, error) {
	dir, err := cleanPath(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, silerrors.IOError(fmt.Sprintf("failed to read directory %s", dir), err)
	}

	out := make([]FileEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, FileEntry{
			Name:   e.Name(),
			Path:   filepath.Join(dir, e.Name()),
			IsFile: e.Type().IsRegular(),
			IsDir:  e.IsDir(),
		})
	}
	return out, nil
}

// ReadFile returns the text of path, decoded leniently and capped at the
// policy's text limit. PDFs and spreadsheets come back as their
// extracted text.
func (s *State) ReadFile(ctx context.Context, path string) (FileContent, error) {
	path, err := cleanPath(path)
	if err != nil {
		return FileContent{}, err
	}

	res, err := s.extractor.Extract(ctx, path, s.maxTextBytes())
	if err != nil {
		return FileContent{}, err
	}
	return FileContent{Path: path, Content: res.Text, Truncated: res.Truncated}, nil
}

// cleanPath expands `~` and rejects empty paths and paths with a ".."
// component.
func cleanPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", silerrors.New(silerrors.ErrCodeInvalidPath, "path must not be empty", nil)
	}
	if slices.Contains(strings.Split(filepath.ToSlash(path), "/"), "..") {
		return "", silerrors.New(silerrors.ErrCodeInvalidPath, "path must not contain '..'", nil).
			WithDetail("path", path)
	}
	return config.ExpandTilde(path), nil
}
