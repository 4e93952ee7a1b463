package legacy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"offlinetasks/backend"
)

func TestLoad_MissingAndEmpty(t *testing.T) {
	dir := t.TempDir()

	tasks, err := NewFileStorage(filepath.Join(dir, "absent.json")).Load()
	if err != nil || len(tasks) != 0 {
		t.Errorf("Missing file should load nothing: %v %v", tasks, err)
	}

	empty := filepath.Join(dir, "empty.json")
	os.WriteFile(empty, []byte("  \n"), 0644)
	tasks, err = NewFileStorage(empty).Load()
	if err != nil || len(tasks) != 0 {
		t.Errorf("Empty file should load nothing: %v %v", tasks, err)
	}
}

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"object", `{"tasks":[{"id":1,"title":"a"},{"id":2,"title":"b","active":false}]}`},
		{"bare array", `[{"id":1,"title":"a"},{"id":2,"title":"b","active":false}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tasks.json")
			os.WriteFile(path, []byte(tt.content), 0644)

			tasks, err := NewFileStorage(path).Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if len(tasks) != 2 {
				t.Fatalf("Expected 2 tasks, got %d", len(tasks))
			}
			if !tasks[0].Active {
				t.Error("Missing active key should default to true")
			}
			if tasks[1].Active {
				t.Error("Explicit active=false must be kept")
			}
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	os.WriteFile(path, []byte(`{"tasks":[{"id":"x"}]}`), 0644)
	if _, err := NewFileStorage(path).Load(); err == nil {
		t.Error("Expected an error for a malformed record")
	}
}

func TestSaveAndClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tasks.json")
	storage := NewFileStorage(path)

	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	in := []backend.Task{{ID: 4, Title: "saved", Status: backend.StatusTodo, CreatedAt: created, Active: true}}
	if err := storage.Save(in); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	out, err := storage.Load()
	if err != nil || len(out) != 1 {
		t.Fatalf("Load after save: %v %v", out, err)
	}
	if out[0].ID != 4 || out[0].Title != "saved" || !out[0].CreatedAt.Equal(created) {
		t.Errorf("Round trip lost data: %+v", out[0])
	}

	if err := storage.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Clear should remove the file")
	}
	if err := storage.Clear(); err != nil {
		t.Errorf("Clearing twice should not fail: %v", err)
	}
}
