package views

import "slices"

// FieldRegistry maps field names to their definitions
var FieldRegistry = map[string]FieldDefinition{
	"id": {
		Name:          "id",
		Description:   "Task identifier",
		Formats:       []string{"hash", "plain"},
		DefaultFormat: "hash",
	},
	"status": {
		Name:          "status",
		Description:   "Workflow status",
		Formats:       []string{"symbol", "text", "raw"},
		DefaultFormat: "symbol",
	},
	"title": {
		Name:          "title",
		Description:   "Task title",
		Formats:       []string{"full", "truncate"},
		DefaultFormat: "full",
	},
	"description": {
		Name:          "description",
		Description:   "Task detailed description",
		Formats:       []string{"full", "truncate", "first_line"},
		DefaultFormat: "truncate",
	},
	"priority": {
		Name:          "priority",
		Description:   "Task priority (low, normal, medium, high)",
		Formats:       []string{"text", "raw", "stars", "number"},
		DefaultFormat: "text",
	},
	"tags": {
		Name:          "tags",
		Description:   "Task labels",
		Formats:       []string{"list", "comma", "hash"},
		DefaultFormat: "hash",
	},
	"category": {
		Name:          "category",
		Description:   "Free-form category",
		Formats:       []string{"text", "bracket"},
		DefaultFormat: "bracket",
	},
	"complexity": {
		Name:          "complexity",
		Description:   "Free-form complexity estimate",
		Formats:       []string{"text", "bracket"},
		DefaultFormat: "text",
	},
	"blocked": {
		Name:          "blocked",
		Description:   "Block reason or accumulated blocked time",
		Formats:       []string{"reason", "minutes"},
		DefaultFormat: "reason",
	},
	"created": {
		Name:          "created",
		Description:   "Creation timestamp",
		Formats:       []string{"full", "relative", "date_only"},
		DefaultFormat: "date_only",
	},
	"started": {
		Name:          "started",
		Description:   "First time the task entered in-progress",
		Formats:       []string{"full", "relative", "date_only"},
		DefaultFormat: "relative",
	},
	"completed": {
		Name:          "completed",
		Description:   "First completion timestamp",
		Formats:       []string{"full", "relative", "date_only"},
		DefaultFormat: "date_only",
	},
	"sync": {
		Name:          "sync",
		Description:   "Pending local changes or unresolved conflict",
		Formats:       []string{"symbol", "text"},
		DefaultFormat: "symbol",
	},
}

// GetFieldDefinition returns the definition for a field name
func GetFieldDefinition(name string) (FieldDefinition, bool) {
	def, ok := FieldRegistry[name]
	return def, ok
}

// ValidateFieldFormat checks if a format is valid for a field
func ValidateFieldFormat(fieldName, format string) bool {
	def, ok := GetFieldDefinition(fieldName)
	if !ok {
		return false
	}

	// Empty format is valid (will use default)
	if format == "" {
		return true
	}
	return slices.Contains(def.Formats, format)
}

// GetDefaultFormat returns the default format for a field
func GetDefaultFormat(fieldName string) string {
	def, ok := GetFieldDefinition(fieldName)
	if !ok {
		return ""
	}
	return def.DefaultFormat
}
