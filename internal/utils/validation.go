package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDateFlag parses a date string in ISO format (YYYY-MM-DD).
// Returns nil for empty strings.
func ParseDateFlag(dateStr string) (*time.Time, error) {
	if dateStr == "" {
		return nil, nil
	}

	// Parse ISO date format (YYYY-MM-DD) in local timezone
	parsedDate, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date format '%s': expected YYYY-MM-DD (e.g., 2025-01-31)", dateStr)
	}

	return &parsedDate, nil
}

// ParseCutoff parses an absolute date (YYYY-MM-DD) or an age relative to now
// ("30d", "12h", "90m").
func ParseCutoff(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("cutoff is required")
	}
	if strings.HasSuffix(value, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(value, "d"))
		if err != nil || days < 0 {
			return time.Time{}, fmt.Errorf("invalid age '%s': expected e.g. 30d", value)
		}
		return now.AddDate(0, 0, -days), nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("age must not be negative: %s", value)
		}
		return now.Add(-d), nil
	}
	date, err := ParseDateFlag(value)
	if err != nil {
		return time.Time{}, err
	}
	return *date, nil
}

// ValidatePagination checks page/limit flags. A negative limit means all;
// there is no upper bound on either.
func ValidatePagination(page, limit int) error {
	if page < 1 {
		return fmt.Errorf("page must be 1 or greater, got %d", page)
	}
	return nil
}
