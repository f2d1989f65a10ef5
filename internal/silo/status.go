package silo

import (
	"context"
	"os"

	"github.com/Aman-CERP/silo/internal/async"
	"github.com/Aman-CERP/silo/internal/embed"
	"github.com/Aman-CERP/silo/internal/store"
)

// Status is a health report of the index.
type Status struct {
	ConfigPath string `json:"config_path"`
	DataDir    string `json:"data_dir"`

	Store  store.Stats `json:"store"`
	DBSize int64       `json:"db_size_bytes"`

	Embedder         embed.EmbedderInfo `json:"embedder"`
	EmbedderDegraded string             `json:"embedder_degraded,omitempty"`

	// IndexLockHeld is true while another process is indexing DataDir.
	IndexLockHeld bool                         `json:"index_lock_held"`
	Indexing      *async.IndexProgressSnapshot `json:"indexing,omitempty"`
}

// Status reports store contents, the embedder and indexing activity.
func (s *State) Status(ctx context.Context) Status {
	s.mu.RLock()
	dataDir := s.cfg.DataDir()
	s.mu.RUnlock()

	st := Status{
		ConfigPath:       s.configPath,
		DataDir:          dataDir,
		Store:            s.store.Stats(ctx),
		Embedder:         embed.GetInfo(ctx, s.embedder),
		EmbedderDegraded: s.embedderDegraded,
	}
	if st.Store.Path != "" {
		if info, err := os.Stat(st.Store.Path); err == nil {
			st.DBSize = info.Size()
		}
	}

	if snap := s.background.Status(); snap.Status != string(async.StatusIdle) {
		st.Indexing = &snap
	}
	if !s.background.IsRunning() {
		st.IndexLockHeld = async.IndexLockHeld(dataDir)
	}
	return st
}
