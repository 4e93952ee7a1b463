package formatters

import (
	"offlinetasks/backend"

	"github.com/charmbracelet/lipgloss"
)

// StatusFormatter formats task status field
type StatusFormatter struct {
	ctx *FormatContext
}

// NewStatusFormatter creates a new status formatter
func NewStatusFormatter(ctx *FormatContext) *StatusFormatter {
	return &StatusFormatter{ctx: ctx}
}

// Format formats the status field according to the specified format
// Supported formats: symbol, text, raw
func (f *StatusFormatter) Format(task backend.Task, format string, width int, color bool) string {
	var result string
	switch format {
	case "text":
		result = task.Status.DisplayName()
	case "raw":
		result = string(task.Status)
	default:
		result = statusSymbol(task)
	}
	return paint(statusStyle(task), truncate(result, width), color)
}

func statusSymbol(task backend.Task) string {
	if task.Blocked {
		return "⊘"
	}
	switch task.Status {
	case backend.StatusDone:
		return "✓"
	case backend.StatusInProgress:
		return "●"
	default:
		return "○"
	}
}

func statusStyle(task backend.Task) lipgloss.Style {
	if task.Blocked {
		return redStyle
	}
	switch task.Status {
	case backend.StatusDone:
		return greenStyle
	case backend.StatusInProgress:
		return yellowStyle
	default:
		return lipgloss.NewStyle()
	}
}

// SyncFormatter shows whether the record still has local changes to push.
type SyncFormatter struct {
	ctx *FormatContext
}

func NewSyncFormatter(ctx *FormatContext) *SyncFormatter {
	return &SyncFormatter{ctx: ctx}
}

// Format supports: symbol, text
func (f *SyncFormatter) Format(task backend.Task, format string, width int, color bool) string {
	meta := task.Sync
	switch format {
	case "text":
		text := "synced"
		style := greenStyle
		if meta.Conflict == backend.ConflictManual {
			text, style = "conflict", redStyle
		} else if !meta.IsSynced {
			text, style = "pending", yellowStyle
		}
		return paint(style, truncate(text, width), color)
	default:
		if meta.Conflict == backend.ConflictManual {
			return paint(redStyle, "!", color)
		}
		if !meta.IsSynced {
			return paint(yellowStyle, "↑", color)
		}
		return ""
	}
}
