package silo

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Aman-CERP/silo/internal/config"
	silerrors "github.com/Aman-CERP/silo/internal/errors"
)

// ConfigView is the effective configuration and where it lives.
type ConfigView struct {
	ConfigPath string         `json:"configPath"`
	Config     *config.Config `json:"config"`

	EmbedderDegraded    string `json:"embedderDegraded,omitempty"`
	StoreDisabledReason string `json:"storeDisabledReason,omitempty"`
}

// Validation is the result of ValidateIndexConfig.
type Validation struct {
	OK     bool     `json:"ok"`
	Roots  []string `json:"roots"`
	Issues []string `json:"issues"`
}

// ConfigSnapshot returns a copy of the effective configuration.
func (s *State) ConfigSnapshot() ConfigView {
	return ConfigView{
		ConfigPath:          s.configPath,
		Config:              s.Config(),
		EmbedderDegraded:    s.embedderDegraded,
		StoreDisabledReason: s.store.DisabledReason(),
	}
}

// SetIndexRoots replaces the filesystem roots, persists the configuration
// and swaps in the recompiled policy. Runs already in flight keep the
// policy they started with.
func (s *State) SetIndexRoots(ctx context.Context, roots []string) (ConfigView, error) {
	expanded := expandRoots(roots)

	s.mu.Lock()
	next := s.cfg.Clone()
	next.SetRoots(expanded)

	pol, err := next.CompilePolicy()
	if err != nil {
		s.mu.Unlock()
		return ConfigView{}, err
	}

	if s.configPath != "" {
		if _, err := config.Backup(s.configPath); err != nil {
			s.logger.Warn("config_backup_failed", slog.String("error", err.Error()))
		}
		if err := next.WriteYAML(s.configPath); err != nil {
			s.mu.Unlock()
			return ConfigView{}, err
		}
	}

	s.cfg = next
	s.policy.Store(pol)
	s.mu.Unlock()

	s.logger.Info("index_roots_updated",
		slog.Any("roots", expanded),
		slog.String("config_path", s.configPath))
	return s.ConfigSnapshot(), nil
}

// ValidateIndexConfig checks that the filesystem source is usable: roots
// exist and are directories, and the size caps are positive. Problems are
// reported as issues, not errors.
func (s *State) ValidateIndexConfig(_ context.Context) Validation {
	cfg := s.Config()
	v := Validation{Roots: cfg.Roots(), Issues: []string{}}
	if v.Roots == nil {
		v.Roots = []string{}
	}

	src, ok := cfg.FileSystem()
	if !ok {
		v.Issues = append(v.Issues, noSourceMessage)
		return v
	}

	if len(v.Roots) == 0 {
		v.Issues = append(v.Issues, "filesystem.roots is empty")
	}
	for _, root := range v.Roots {
		info, err := os.Stat(root)
		switch {
		case err != nil:
			v.Issues = append(v.Issues, fmt.Sprintf("cannot access root %s: %v", root, err))
		case !info.IsDir():
			v.Issues = append(v.Issues, "root is not a directory: "+root)
		}
	}

	if src.MaxFileSizeBytes <= 0 {
		v.Issues = append(v.Issues, "max_file_size_bytes must be > 0")
	}
	if src.MaxTextBytes <= 0 {
		v.Issues = append(v.Issues, "max_text_bytes must be > 0")
	}
	if _, err := cfg.CompilePolicy(); err != nil {
		v.Issues = append(v.Issues, silerrors.Describe(err))
	}

	v.OK = len(v.Issues) == 0
	return v
}
