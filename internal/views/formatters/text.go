package formatters

import (
	"fmt"
	"strings"

	"offlinetasks/backend"
)

// TitleFormatter formats the task title
type TitleFormatter struct {
	ctx *FormatContext
}

func NewTitleFormatter(ctx *FormatContext) *TitleFormatter {
	return &TitleFormatter{ctx: ctx}
}

// Format supports: full, truncate
func (f *TitleFormatter) Format(task backend.Task, format string, width int, colorize bool) string {
	result := task.Title
	if format == "truncate" && width == 0 {
		width = 50
	}
	result = truncate(result, width)
	if task.Status == backend.StatusDone {
		return paint(grayStyle, result, colorize)
	}
	return paint(boldStyle, result, colorize)
}

// DescriptionFormatter formats task description field
type DescriptionFormatter struct {
	ctx *FormatContext
}

// NewDescriptionFormatter creates a new description formatter
func NewDescriptionFormatter(ctx *FormatContext) *DescriptionFormatter {
	return &DescriptionFormatter{ctx: ctx}
}

// Format supports: full, truncate, first_line
func (f *DescriptionFormatter) Format(task backend.Task, format string, width int, colorize bool) string {
	if task.Description == "" {
		return ""
	}

	var result string
	switch format {
	case "full":
		result = task.Description
	case "first_line":
		first, _, _ := strings.Cut(task.Description, "\n")
		result = truncate(strings.TrimSpace(first), width)
	default:
		// Collapse whitespace onto one line
		result = strings.Join(strings.Fields(task.Description), " ")
		if width == 0 {
			width = 70
		}
		result = truncate(result, width)
	}
	return paint(grayStyle, result, colorize)
}

// TagsFormatter formats task tags field
type TagsFormatter struct {
	ctx *FormatContext
}

// NewTagsFormatter creates a new tags formatter
func NewTagsFormatter(ctx *FormatContext) *TagsFormatter {
	return &TagsFormatter{ctx: ctx}
}

// Format supports: list, comma, hash
func (f *TagsFormatter) Format(task backend.Task, format string, width int, colorize bool) string {
	if len(task.Tags) == 0 {
		return ""
	}

	var result string
	switch format {
	case "list":
		result = "[" + strings.Join(task.Tags, "][") + "]"
	case "hash":
		result = "#" + strings.Join(task.Tags, " #")
	default:
		result = strings.Join(task.Tags, ", ")
	}
	return paint(cyanStyle, truncate(result, width), colorize)
}

// IDFormatter formats the task id
type IDFormatter struct {
	ctx *FormatContext
}

func NewIDFormatter(ctx *FormatContext) *IDFormatter {
	return &IDFormatter{ctx: ctx}
}

// Format supports: hash, plain
func (f *IDFormatter) Format(task backend.Task, format string, width int, colorize bool) string {
	result := fmt.Sprintf("#%d", task.ID)
	if format == "plain" {
		result = fmt.Sprintf("%d", task.ID)
	}
	return paint(grayStyle, truncate(result, width), colorize)
}

// CategoryFormatter formats the category and complexity strings
type CategoryFormatter struct {
	ctx       *FormatContext
	fieldName string
}

func NewCategoryFormatter(ctx *FormatContext, fieldName string) *CategoryFormatter {
	return &CategoryFormatter{ctx: ctx, fieldName: fieldName}
}

// Format supports: text, bracket
func (f *CategoryFormatter) Format(task backend.Task, format string, width int, colorize bool) string {
	value := task.Category
	if f.fieldName == "complexity" {
		value = task.Complexity
	}
	if value == "" {
		return ""
	}
	if format == "bracket" {
		value = "(" + value + ")"
	}
	return paint(cyanStyle, truncate(value, width), colorize)
}

// BlockedFormatter renders the block reason and accumulated blocked time
type BlockedFormatter struct {
	ctx *FormatContext
}

func NewBlockedFormatter(ctx *FormatContext) *BlockedFormatter {
	return &BlockedFormatter{ctx: ctx}
}

// Format supports: reason, minutes
func (f *BlockedFormatter) Format(task backend.Task, format string, width int, colorize bool) string {
	minutes := task.CurrentBlockedMinutes(f.ctx.Now)
	var result string
	switch format {
	case "minutes":
		if minutes == 0 {
			return ""
		}
		result = fmt.Sprintf("%dm blocked", minutes)
	default:
		if !task.Blocked {
			return ""
		}
		result = "blocked"
		if task.BlockedReason != "" {
			result += ": " + task.BlockedReason
		}
	}
	return paint(redStyle, truncate(result, width), colorize)
}
