package formatters

import (
	"strings"

	"offlinetasks/backend"
)

// PriorityFormatter formats task priority field
type PriorityFormatter struct {
	ctx *FormatContext
}

// NewPriorityFormatter creates a new priority formatter
func NewPriorityFormatter(ctx *FormatContext) *PriorityFormatter {
	return &PriorityFormatter{ctx: ctx}
}

// Format formats the priority field according to the specified format
// Supported formats: text, raw, stars, number
func (f *PriorityFormatter) Format(task backend.Task, format string, width int, color bool) string {
	rank := task.Priority.Ordinal()
	if rank < 0 {
		return ""
	}

	var result string
	switch format {
	case "raw":
		result = string(task.Priority)
	case "stars":
		result = strings.Repeat("★", rank+1) + strings.Repeat("☆", len(backend.Priorities)-rank-1)
	case "number":
		result = string(rune('1' + rank))
	default:
		result = priorityText(task.Priority)
	}

	result = truncate(result, width)
	switch task.Priority {
	case backend.PriorityHigh:
		return paint(redStyle, result, color)
	case backend.PriorityMedium:
		return paint(yellowStyle, result, color)
	case backend.PriorityLow:
		return paint(grayStyle, result, color)
	}
	return result
}

func priorityText(p backend.Priority) string {
	switch p {
	case backend.PriorityLow:
		return "low"
	case backend.PriorityMedium:
		return "medium"
	case backend.PriorityHigh:
		return "high"
	default:
		return "normal"
	}
}
