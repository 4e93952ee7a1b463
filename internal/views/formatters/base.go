package formatters

import (
	"time"

	"offlinetasks/backend"

	"github.com/charmbracelet/lipgloss"
)

// FieldFormatter is the base interface for all field formatters
type FieldFormatter interface {
	// Format returns the formatted string representation of a field value
	Format(task backend.Task, format string, width int, color bool) string
}

// FormatContext provides additional context for formatting
type FormatContext struct {
	// DateFormat is the Go time format string for date display
	DateFormat string

	// Now is the current time (used for relative dates and live blocked minutes)
	Now time.Time
}

// NewFormatContext creates a new format context with default values
func NewFormatContext(dateFormat string, now time.Time) *FormatContext {
	if dateFormat == "" {
		dateFormat = "2006-01-02"
	}
	if now.IsZero() {
		now = time.Now()
	}
	return &FormatContext{DateFormat: dateFormat, Now: now}
}

var (
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	cyanStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	grayStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
)

func paint(style lipgloss.Style, s string, color bool) string {
	if !color || s == "" {
		return s
	}
	return style.Render(s)
}

// truncate shortens s to width runes, marking the cut with "..."
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width > 3 {
		return string(runes[:width-3]) + "..."
	}
	return string(runes[:width])
}
