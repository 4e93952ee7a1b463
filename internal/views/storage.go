package views

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"offlinetasks/internal/utils"

	"gopkg.in/yaml.v3"
)

// viewsDirOverride is set by tests.
var viewsDirOverride string

// GetViewsDir returns the directory where view configurations are stored
// Default: ~/.config/offlinetasks/views/
func GetViewsDir() string {
	if viewsDirOverride != "" {
		return viewsDirOverride
	}
	return filepath.Join(utils.GetConfigDir(), "views")
}

// EnsureViewsDir creates the views directory if it doesn't exist
func EnsureViewsDir() error {
	if err := os.MkdirAll(GetViewsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create views directory: %w", err)
	}
	return nil
}

// ListViews returns a sorted list of all available view names (user + built-in)
func ListViews() ([]string, error) {
	viewsMap := make(map[string]bool)
	for _, name := range GetBuiltInViews() {
		viewsMap[name] = true
	}

	entries, err := os.ReadDir(GetViewsDir())
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read views directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			viewsMap[name[:len(name)-len(filepath.Ext(name))]] = true
		}
	}

	views := make([]string, 0, len(viewsMap))
	for name := range viewsMap {
		views = append(views, name)
	}
	slices.Sort(views)
	return views, nil
}

// SaveView validates and writes a view configuration to disk
func SaveView(view *View) error {
	if err := normalize(view); err != nil {
		return err
	}
	if err := EnsureViewsDir(); err != nil {
		return err
	}

	data, err := yaml.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal view to YAML: %w", err)
	}

	filePath := filepath.Join(GetViewsDir(), view.Name+".yaml")
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write view file: %w", err)
	}
	InvalidateViewCache(view.Name)
	return nil
}

// DeleteView deletes a user view configuration
// Built-in views cannot be deleted
func DeleteView(name string) error {
	for _, ext := range []string{".yaml", ".yml"} {
		filePath := filepath.Join(GetViewsDir(), name+ext)
		if _, err := os.Stat(filePath); err == nil {
			if err := os.Remove(filePath); err != nil {
				return fmt.Errorf("failed to delete view file: %w", err)
			}
			InvalidateViewCache(name)
			return nil
		}
	}

	if IsBuiltInView(name) {
		return fmt.Errorf("cannot delete built-in view '%s'", name)
	}
	return fmt.Errorf("view '%s' not found", name)
}

// CopyBuiltInView writes a built-in view into the user's views directory
// so it can be edited. An existing user file is left alone.
func CopyBuiltInView(name string) (string, error) {
	data, err := builtinViewFS.ReadFile("builtin_views/" + name + ".yaml")
	if err != nil {
		return "", fmt.Errorf("built-in view '%s' not found", name)
	}
	if err := EnsureViewsDir(); err != nil {
		return "", err
	}
	dest := filepath.Join(GetViewsDir(), name+".yaml")
	if _, err := os.Stat(dest); err == nil {
		return dest, fmt.Errorf("view file already exists at %s", dest)
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write view '%s' to %s: %w", name, dest, err)
	}
	return dest, nil
}
