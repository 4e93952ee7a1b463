// Package legacy reads and writes the flat JSON task file used before the
// indexed store existed.
package legacy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"offlinetasks/backend"
)

// fileData is the on-disk layout. Older files hold a bare array instead.
type fileData struct {
	Tasks     []json.RawMessage `json:"tasks"`
	Timestamp int64             `json:"timestamp,omitempty"`
}

// FileStorage is a backend.LegacyStorage over a single JSON file.
type FileStorage struct {
	path string
}

var _ backend.LegacyStorage = (*FileStorage)(nil)

// NewFileStorage returns storage at path. The file need not exist.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Path returns the backing file.
func (s *FileStorage) Path() string {
	return s.path
}

// Load reads every task. A missing or empty file yields no tasks.
// Records without an "active" key are treated as active.
func (s *FileStorage) Load() ([]backend.Task, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var raw []json.RawMessage
	if data[0] == '[' {
		err = json.Unmarshal(data, &raw)
	} else {
		var file fileData
		err = json.Unmarshal(data, &file)
		raw = file.Tasks
	}
	if err != nil {
		return nil, fmt.Errorf("invalid legacy file %s: %w", s.path, err)
	}

	tasks := make([]backend.Task, 0, len(raw))
	for i, r := range raw {
		task := backend.Task{Active: true}
		if err := json.Unmarshal(r, &task); err != nil {
			return nil, fmt.Errorf("invalid legacy task at index %d: %w", i, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Save replaces the file contents with tasks.
func (s *FileStorage) Save(tasks []backend.Task) error {
	raw := make([]json.RawMessage, 0, len(tasks))
	for _, t := range tasks {
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		raw = append(raw, b)
	}

	data, err := json.MarshalIndent(fileData{Tasks: raw, Timestamp: time.Now().Unix()}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Clear removes the file. Clearing a missing file is not an error.
func (s *FileStorage) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
