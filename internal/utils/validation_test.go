package utils

import (
	"math"
	"testing"
	"time"
)

func TestParseDateFlag(t *testing.T) {
	tests := []struct {
		name     string
		dateFlag string
		wantNil  bool
		wantErr  bool
	}{
		{"empty clears", "", true, false},
		{"valid date", "2025-01-31", false, false},
		{"leap day", "2024-02-29", false, false},
		{"invalid day", "2025-02-30", true, true},
		{"wrong layout", "31/01/2025", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateFlag(tt.dateFlag)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDateFlag(%q) error = %v, wantErr %v", tt.dateFlag, err, tt.wantErr)
			}
			if (got == nil) != tt.wantNil {
				t.Errorf("ParseDateFlag(%q) = %v, wantNil %v", tt.dateFlag, got, tt.wantNil)
			}
		})
	}
}

func TestParseCutoff(t *testing.T) {
	now := time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{"days", "30d", now.AddDate(0, 0, -30), false},
		{"hours", "12h", now.Add(-12 * time.Hour), false},
		{"zero days", "0d", now, false},
		{"date", "2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local), false},
		{"negative duration", "-5h", time.Time{}, true},
		{"bad days", "xd", time.Time{}, true},
		{"garbage", "yesterday", time.Time{}, true},
		{"empty", "", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCutoff(tt.value, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCutoff(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseCutoff(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestValidatePagination(t *testing.T) {
	tests := []struct {
		page, limit int
		wantErr     bool
	}{
		{1, 20, false},
		{1, 0, false},
		{3, -1, false},
		{1, 5000, false},
		{math.MaxInt, 20, false},
		{0, 20, true},
		{-1, 20, true},
	}
	for _, tt := range tests {
		if err := ValidatePagination(tt.page, tt.limit); (err != nil) != tt.wantErr {
			t.Errorf("ValidatePagination(%d, %d) error = %v, wantErr %v", tt.page, tt.limit, err, tt.wantErr)
		}
	}
}
