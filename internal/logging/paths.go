package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.silo/logs, or a temp-dir fallback when the home
// directory cannot be resolved.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".silo", "logs")
	}
	return filepath.Join(home, ".silo", "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "silo.log")
}
