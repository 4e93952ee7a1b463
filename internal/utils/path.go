package utils

import (
	"os"
	"path/filepath"
	"strings"
)

const appName = "offlinetasks"

// ExpandPath expands ~ and environment variables in file paths
// Examples:
//   - "~/data/tasks.db" -> "/home/user/data/tasks.db"
//   - "$HOME/data" -> "/home/user/data"
//   - "/abs/path" -> "/abs/path" (unchanged)
func ExpandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}

	// Expand environment variables first
	path = os.ExpandEnv(path)

	// Handle tilde expansion
	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return homeDir, nil
		}
		path = filepath.Join(homeDir, path[2:])
	}

	return path, nil
}

// xdgDir returns $env/offlinetasks, falling back to ~/fallback/offlinetasks.
func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, fallback, appName)
}

// GetDataDir returns the directory holding the database.
func GetDataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// GetStateDir returns the directory holding logs and the offline marker.
func GetStateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// GetConfigDir returns the directory holding config.yaml.
func GetConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}
