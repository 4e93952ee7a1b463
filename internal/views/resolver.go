package views

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

//go:embed builtin_views/*.yaml
var builtinViewFS embed.FS

// viewCache stores loaded views for performance
var viewCache = make(map[string]*View)
var cacheMutex sync.RWMutex

// ResolveView loads a view by name with the following priority:
// 1. User views (~/.config/offlinetasks/views/<name>.yaml)
// 2. Built-in views
//
// A user file that exists but fails to load is an error; it does not fall
// back to the built-in view of the same name.
func ResolveView(name string) (*View, error) {
	cacheMutex.RLock()
	if cached, ok := viewCache[name]; ok {
		cacheMutex.RUnlock()
		return cached, nil
	}
	cacheMutex.RUnlock()

	view, err := loadUserView(name)
	if err != nil {
		return nil, err
	}
	if view == nil {
		if view, err = getBuiltInView(name); err != nil {
			return nil, fmt.Errorf("view '%s' not found (checked user views and built-in views)", name)
		}
	}

	cacheMutex.Lock()
	viewCache[name] = view
	cacheMutex.Unlock()
	return view, nil
}

func loadUserView(name string) (*View, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		filePath := filepath.Join(GetViewsDir(), name+ext)
		if _, err := os.Stat(filePath); err != nil {
			continue
		}
		return LoadView(filePath)
	}
	return nil, nil
}

// ClearViewCache clears the view cache (useful for testing or after view updates)
func ClearViewCache() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	viewCache = make(map[string]*View)
}

// InvalidateViewCache removes a specific view from the cache
func InvalidateViewCache(name string) {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	delete(viewCache, name)
}

// getBuiltInView returns a built-in view by name from embedded YAML files
func getBuiltInView(name string) (*View, error) {
	data, err := builtinViewFS.ReadFile("builtin_views/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("built-in view '%s' not found", name)
	}
	view, err := LoadViewFromBytes(data, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in view '%s': %w", name, err)
	}
	return view, nil
}

// GetBuiltInViews returns a list of built-in view names
func GetBuiltInViews() []string {
	return []string{"all", "blocked", "compact", "default", "done", "unsynced"}
}

// IsBuiltInView checks if a view name is a built-in view
func IsBuiltInView(name string) bool {
	return slices.Contains(GetBuiltInViews(), name)
}
