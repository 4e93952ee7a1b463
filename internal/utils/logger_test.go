package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBackgroundLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "sync.log")
	bgLogger, err := NewBackgroundLogger(LogFileOptions{Path: logPath, MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("Failed to create background logger: %v", err)
	}

	if !bgLogger.IsEnabled() {
		t.Fatal("Logger should be enabled with a path")
	}
	if bgLogger.GetLogPath() != logPath {
		t.Errorf("GetLogPath() = %q, want %q", bgLogger.GetLogPath(), logPath)
	}

	bgLogger.Printf("Pushed %d records", 3)
	bgLogger.Println("queue drained")
	if err := bgLogger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Log file should exist: %v", err)
	}
	for _, want := range []string{"Pushed 3 records", "queue drained", "[sync "} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Log file missing %q:\n%s", want, data)
		}
	}

	// Writes after Close are dropped, not panics.
	bgLogger.Printf("late message")
}

func TestBackgroundLoggerDisabled(t *testing.T) {
	bgLogger, err := NewBackgroundLogger(LogFileOptions{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if bgLogger.IsEnabled() || bgLogger.GetLogPath() != "" {
		t.Error("Logger without a path should be disabled")
	}
	bgLogger.Printf("Test message")
	bgLogger.Println("Test message")
	bgLogger.Close()

	var nilLogger *BackgroundLogger
	nilLogger.Printf("nil logger must not panic")
	if nilLogger.IsEnabled() {
		t.Error("Nil logger should be disabled")
	}
}

func TestLoggerLevels(t *testing.T) {
	logger := GetLogger()
	old := logger.Output()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer func() {
		logger.SetOutput(old)
		SetVerboseMode(false)
	}()

	SetVerboseMode(false)
	Debugf("hidden debug")
	Infof("hidden info")
	Warnf("visible warning %d", 1)
	Errorf("visible error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Debug and info should be suppressed without verbose: %q", out)
	}
	if !strings.Contains(out, "[WARN] visible warning 1") || !strings.Contains(out, "[ERROR] visible error") {
		t.Errorf("Missing warn/error output: %q", out)
	}

	buf.Reset()
	SetVerboseMode(true)
	Debugf("now shown")
	if !strings.Contains(buf.String(), "[DEBUG] now shown") {
		t.Errorf("Debug should be shown in verbose mode: %q", buf.String())
	}
}

func TestLogOperation(t *testing.T) {
	called := false
	err := LogOperationf("import %s", func() error {
		called = true
		return nil
	}, "backup.json")
	if err != nil || !called {
		t.Errorf("LogOperationf should run fn and return its error: called=%v err=%v", called, err)
	}
}
