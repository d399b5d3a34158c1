//nolint:revive // var-naming - package name is meaningful
package util

import (
	"os"
	"path/filepath"
	"strings"
)

// HomeDir returns the user's home directory
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

// TreesyncConfigPath returns the treesync configuration directory.
// TREESYNC_HOME overrides the default of ~/.config/treesync.
func TreesyncConfigPath() string {
	if v := os.Getenv("TREESYNC_HOME"); v != "" {
		return v
	}
	return filepath.Join(HomeDir(), ".config", "treesync")
}

// ExpandPath expands a leading ~ to the home directory and resolves relative
// paths against baseDir. Empty input yields an empty string.
func ExpandPath(path, baseDir string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		return HomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(HomeDir(), path[2:])
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	if baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			baseDir = wd
		}
	}
	return filepath.Join(baseDir, path)
}
