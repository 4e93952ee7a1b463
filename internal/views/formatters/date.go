package formatters

import (
	"fmt"
	"time"

	"offlinetasks/backend"
)

// DateFormatter formats date fields
type DateFormatter struct {
	ctx       *FormatContext
	fieldName string // "created", "started", "completed", "blocked_since"
}

// NewDateFormatter creates a new date formatter
func NewDateFormatter(ctx *FormatContext, fieldName string) *DateFormatter {
	return &DateFormatter{
		ctx:       ctx,
		fieldName: fieldName,
	}
}

// Format formats the date field according to the specified format
// Supported formats: full, relative, date_only
func (f *DateFormatter) Format(task backend.Task, format string, width int, colorize bool) string {
	date := f.getDate(task)
	if date == nil {
		return ""
	}

	var result string
	switch format {
	case "relative":
		result = formatRelative(*date, f.ctx.Now)
	case "date_only":
		result = date.Local().Format(f.ctx.DateFormat)
	default:
		result = date.Local().Format(f.ctx.DateFormat + " 15:04")
	}

	return paint(grayStyle, truncate(result, width), colorize)
}

// getDate extracts the appropriate date from the task
func (f *DateFormatter) getDate(task backend.Task) *time.Time {
	switch f.fieldName {
	case "created":
		if task.CreatedAt.IsZero() {
			return nil
		}
		return &task.CreatedAt
	case "started":
		return task.StartedAt
	case "completed":
		return task.CompletedAt
	case "blocked_since":
		return task.BlockedSince
	}
	return nil
}

// formatRelative renders the distance from now ("3h ago", "in 2d").
func formatRelative(date, now time.Time) string {
	diff := now.Sub(date)
	suffix := " ago"
	if diff < 0 {
		diff = -diff
		suffix = ""
	}

	var amount string
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		amount = fmt.Sprintf("%dm", int(diff.Minutes()))
	case diff < 24*time.Hour:
		amount = fmt.Sprintf("%dh", int(diff.Hours()))
	default:
		amount = fmt.Sprintf("%dd", int(diff.Hours()/24))
	}
	if suffix == "" {
		return "in " + amount
	}
	return amount + suffix
}
