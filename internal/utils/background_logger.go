package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileOptions configures a rotating log file.
type LogFileOptions struct {
	Path       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"min=0"`
	MaxBackups int    `yaml:"max_backups" validate:"min=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"min=0"`
}

// DefaultLogFileOptions logs to the state directory, keeping three 5 MB files.
func DefaultLogFileOptions() LogFileOptions {
	return LogFileOptions{
		Path:       filepath.Join(GetStateDir(), "sync.log"),
		MaxSizeMB:  5,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}

// BackgroundLogger writes the background sync log to a rotating file.
// A nil or disabled logger discards everything.
type BackgroundLogger struct {
	logger *log.Logger
	writer *lumberjack.Logger
	path   string
	mu     sync.Mutex
}

// NewBackgroundLogger opens a rotating log file. An empty path disables logging.
func NewBackgroundLogger(opts LogFileOptions) (*BackgroundLogger, error) {
	if opts.Path == "" {
		return &BackgroundLogger{}, nil
	}
	path, err := ExpandPath(opts.Path)
	if err != nil {
		return &BackgroundLogger{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &BackgroundLogger{}, fmt.Errorf("failed to create log directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}
	return &BackgroundLogger{
		logger: log.New(writer, fmt.Sprintf("[sync %d] ", os.Getpid()), log.LstdFlags),
		writer: writer,
		path:   path,
	}, nil
}

// IsEnabled reports whether messages reach a file.
func (b *BackgroundLogger) IsEnabled() bool {
	return b != nil && b.logger != nil
}

// GetLogPath returns the log file path, empty when disabled.
func (b *BackgroundLogger) GetLogPath() string {
	if b == nil {
		return ""
	}
	return b.path
}

// Writer returns the underlying writer, or io.Discard when disabled.
func (b *BackgroundLogger) Writer() io.Writer {
	if !b.IsEnabled() {
		return io.Discard
	}
	return b.writer
}

func (b *BackgroundLogger) Printf(format string, args ...interface{}) {
	if !b.IsEnabled() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger.Printf(format, args...)
}

func (b *BackgroundLogger) Println(args ...interface{}) {
	if !b.IsEnabled() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger.Println(args...)
}

// Close flushes and closes the file.
func (b *BackgroundLogger) Close() error {
	if !b.IsEnabled() {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = nil
	return b.writer.Close()
}
