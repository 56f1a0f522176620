// Package config provides configuration utilities for the application.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// DefaultConfigDir returns the directory searched for config.yaml.
func DefaultConfigDir() string {
	return ExpandPath("~/.config/marktend")
}

// DefaultDatabasePath returns where the bookmark database lives unless
// overridden by configuration.
func DefaultDatabasePath() string {
	return ExpandPath("~/.local/share/marktend/marktend.db")
}

// DefaultHistoryExportPath returns where the browsing-history export is
// looked for unless overridden. The file is optional; history analysis stays
// disabled while it is absent.
func DefaultHistoryExportPath() string {
	return ExpandPath("~/.local/share/marktend/history.jsonl")
}
