package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("Failed to get home directory: %v", err)
	}
	t.Setenv("TEST_VAR", "~/test")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"tilde only", "~", homeDir},
		{"tilde with path", "~/data/tasks.db", filepath.Join(homeDir, "data/tasks.db")},
		{"absolute path unchanged", "/absolute/path/file.txt", "/absolute/path/file.txt"},
		{"relative path unchanged", "relative/path/file.txt", "relative/path/file.txt"},
		{"empty string", "", ""},
		{"env var expansion", "$HOME/data", filepath.Join(homeDir, "data")},
		{"env var expanded before tilde", "$TEST_VAR/file.txt", filepath.Join(homeDir, "test/file.txt")},
		{"tilde in middle untouched", "/path/~/file.txt", "/path/~/file.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ExpandPath(tt.input)
			if err != nil {
				t.Fatalf("ExpandPath() error = %v", err)
			}
			if result != tt.expected {
				t.Errorf("ExpandPath() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestXDGDirs(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(base, "state"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "config"))

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"data", GetDataDir(), filepath.Join(base, "data", "offlinetasks")},
		{"state", GetStateDir(), filepath.Join(base, "state", "offlinetasks")},
		{"config", GetConfigDir(), filepath.Join(base, "config", "offlinetasks")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s dir = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestXDGDirs_Fallback(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "")
	dir := GetStateDir()
	if !strings.HasSuffix(dir, filepath.Join(".local", "state", "offlinetasks")) {
		t.Errorf("Expected ~/.local/state fallback, got %q", dir)
	}
}
