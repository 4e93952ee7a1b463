package utils

import (
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a helpful suggestion for the user
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap allows errors.Is and errors.As to work
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// Common error constructors with suggestions

// ErrTaskNotFound creates an error when a task id does not exist or was deleted
func ErrTaskNotFound(id int64) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("task %d not found", id),
		Suggestion: "Run 'offlinetasks ls' to see active tasks",
	}
}

// ErrInvalidStatus creates an error for invalid status values
func ErrInvalidStatus(status string, validStatuses []string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid status: %s", status),
		Suggestion: fmt.Sprintf("Valid statuses: %s", strings.Join(validStatuses, ", ")),
	}
}

// ErrInvalidPriority creates an error for invalid priority values
func ErrInvalidPriority(priority string, validPriorities []string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid priority: %s", priority),
		Suggestion: fmt.Sprintf("Valid priorities: %s", strings.Join(validPriorities, ", ")),
	}
}

// ErrInvalidFilter creates an error for a malformed --where or --sort expression
func ErrInvalidFilter(expr string, err error) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid filter %q: %w", expr, err),
		Suggestion: "Use field:op:value, e.g. 'priority:>=:media' or 'category:is_null'",
	}
}

// ErrSyncNotConfigured creates an error when sync is attempted without a remote
func ErrSyncNotConfigured() error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("no remote is configured"),
		Suggestion: "Set 'remote.url' in ~/.config/offlinetasks/config.yaml",
	}
}

// ErrSyncInProgress creates an error when another sync holds the guard
func ErrSyncInProgress() error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("a sync is already running"),
		Suggestion: "Wait for it to finish; pending changes stay queued",
	}
}

// ErrRemoteOffline creates an error when the remote cannot be reached
func ErrRemoteOffline(reason string) error {
	suggestion := "Check your internet connection and try again. Changes are kept locally until then"
	if strings.Contains(reason, "DNS") || strings.Contains(reason, "no such host") {
		suggestion = "Check your DNS settings and internet connection"
	} else if strings.Contains(reason, "refused") {
		suggestion = "Check if the server is running and accessible"
	} else if strings.Contains(reason, "timeout") {
		suggestion = "The server may be slow or unreachable. Try again later"
	} else if strings.Contains(reason, "marker") {
		suggestion = "Run 'offlinetasks offline off' to leave offline mode"
	}

	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("remote is offline: %s", reason),
		Suggestion: suggestion,
	}
}

// ErrCredentialsNotFound creates an error when no remote token is available
func ErrCredentialsNotFound() error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("remote token not found"),
		Suggestion: "Store it with 'offlinetasks credentials set --prompt' or set OFFLINETASKS_REMOTE_TOKEN",
	}
}

// ErrAuthenticationFailed creates an error when the remote rejects the token
func ErrAuthenticationFailed() error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("authentication failed for remote"),
		Suggestion: "Check the token with 'offlinetasks credentials get' and update if needed",
	}
}

// ErrConfigFileNotFound creates an error when config file is not found
func ErrConfigFileNotFound(path string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("config file not found at %s", path),
		Suggestion: "Run 'offlinetasks config init' to create a default configuration file",
	}
}

// ErrInvalidConfig creates an error for invalid configuration
func ErrInvalidConfig(field string, reason string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid configuration for '%s': %s", field, reason),
		Suggestion: fmt.Sprintf("Check ~/.config/offlinetasks/config.yaml and fix the '%s' field", field),
	}
}

// ErrInvalidSnapshot creates an error for an unreadable export file
func ErrInvalidSnapshot(path string, err error) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("cannot read snapshot %s: %w", path, err),
		Suggestion: "Import files are produced by 'offlinetasks data export' (.json or .yaml)",
	}
}

// WrapWithSuggestion wraps an existing error with a suggestion
func WrapWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}
