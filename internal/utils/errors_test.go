package utils

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorWithSuggestion_Error(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		suggestion     string
		wantContains   []string
		wantNotContain string
	}{
		{
			name:         "with suggestion",
			err:          errors.New("task not found"),
			suggestion:   "Try searching with a different term",
			wantContains: []string{"task not found", "Suggestion:", "Try searching"},
		},
		{
			name:           "without suggestion",
			err:            errors.New("simple error"),
			suggestion:     "",
			wantContains:   []string{"simple error"},
			wantNotContain: "Suggestion:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &ErrorWithSuggestion{
				Err:        tt.err,
				Suggestion: tt.suggestion,
			}

			result := e.Error()

			for _, want := range tt.wantContains {
				if !strings.Contains(result, want) {
					t.Errorf("Error() = %q, want to contain %q", result, want)
				}
			}

			if tt.wantNotContain != "" && strings.Contains(result, tt.wantNotContain) {
				t.Errorf("Error() = %q, should not contain %q", result, tt.wantNotContain)
			}
		})
	}
}

func TestErrorWithSuggestion_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrapped := &ErrorWithSuggestion{
		Err:        originalErr,
		Suggestion: "do something",
	}

	unwrapped := wrapped.Unwrap()
	if unwrapped != originalErr {
		t.Errorf("Unwrap() returned %v, want %v", unwrapped, originalErr)
	}

	// Test with errors.Is
	if !errors.Is(wrapped, originalErr) {
		t.Error("errors.Is should work with wrapped error")
	}
}


func TestSuggestionConstructors(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantContains []string
	}{
		{"task not found", ErrTaskNotFound(42), []string{"task 42 not found", "offlinetasks ls"}},
		{"invalid status", ErrInvalidStatus("doing", []string{"a_fazer", "em_progresso", "concluido"}), []string{"invalid status: doing", "a_fazer, em_progresso, concluido"}},
		{"invalid priority", ErrInvalidPriority("urgent", []string{"baixa", "alta"}), []string{"invalid priority: urgent", "baixa, alta"}},
		{"invalid filter", ErrInvalidFilter("due:>:x", errors.New("unknown field")), []string{"due:>:x", "unknown field", "field:op:value"}},
		{"sync not configured", ErrSyncNotConfigured(), []string{"no remote", "remote.url"}},
		{"sync in progress", ErrSyncInProgress(), []string{"already running"}},
		{"credentials", ErrCredentialsNotFound(), []string{"token not found", "OFFLINETASKS_REMOTE_TOKEN"}},
		{"auth", ErrAuthenticationFailed(), []string{"authentication failed", "credentials get"}},
		{"config missing", ErrConfigFileNotFound("/tmp/x.yaml"), []string{"/tmp/x.yaml", "config init"}},
		{"config invalid", ErrInvalidConfig("sync.interval", "must be positive"), []string{"sync.interval", "must be positive"}},
		{"snapshot", ErrInvalidSnapshot("b.json", errors.New("bad version")), []string{"b.json", "bad version", "export"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ews *ErrorWithSuggestion
			if !errors.As(tt.err, &ews) || ews.Suggestion == "" {
				t.Fatalf("Expected ErrorWithSuggestion with a suggestion, got %T", tt.err)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(tt.err.Error(), want) {
					t.Errorf("Error() = %q, want to contain %q", tt.err.Error(), want)
				}
			}
		})
	}
}

func TestErrRemoteOffline(t *testing.T) {
	tests := []struct {
		reason         string
		wantSuggestion string
	}{
		{"lookup example.org: no such host", "DNS"},
		{"dial tcp: connection refused", "server is running"},
		{"i/o timeout", "slow or unreachable"},
		{"offline marker present", "offline off"},
		{"something else", "internet connection"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			err := ErrRemoteOffline(tt.reason)
			if !strings.Contains(err.Error(), tt.reason) || !strings.Contains(err.Error(), tt.wantSuggestion) {
				t.Errorf("ErrRemoteOffline(%q) = %q, want suggestion containing %q", tt.reason, err.Error(), tt.wantSuggestion)
			}
		})
	}
}

func TestWrapWithSuggestion(t *testing.T) {
	if WrapWithSuggestion(nil, "ignored") != nil {
		t.Error("Wrapping nil should return nil")
	}
	base := errors.New("disk full")
	err := WrapWithSuggestion(base, "Free some space")
	if !errors.Is(err, base) || !strings.Contains(err.Error(), "Free some space") {
		t.Errorf("Unexpected wrapped error: %v", err)
	}
}
