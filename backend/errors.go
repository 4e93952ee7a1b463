package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrDuplicateID    = errors.New("duplicate id")
	ErrStorage        = errors.New("storage failure")
	ErrSyncTransient  = errors.New("sync transient failure")
	ErrSyncInProgress = errors.New("sync already in progress")
)

// StoreError represents an error from a store operation.
type StoreError struct {
	Op     string // e.g. "Create", "Update", "Search"
	TaskID int64  // Optional: affected task id
	Kind   error  // One of the Err* kinds
	Err    error  // Optional: underlying error
}

func (e *StoreError) Error() string {
	msg := e.Kind.Error()
	if e.Err != nil && !errors.Is(e.Err, e.Kind) {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	} else if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.TaskID != 0 {
		return fmt.Sprintf("store %s failed for task %d: %s", e.Op, e.TaskID, msg)
	}
	return fmt.Sprintf("store %s failed: %s", e.Op, msg)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StoreError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewStoreError classifies err for op. Errors that already carry a kind keep it;
// anything else is a storage failure.
func NewStoreError(op string, taskID int64, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	kind := ErrStorage
	for _, k := range []error{ErrNotFound, ErrValidation, ErrDuplicateID} {
		if errors.Is(err, k) {
			kind = k
			break
		}
	}
	return &StoreError{Op: op, TaskID: taskID, Kind: kind, Err: err}
}

// NotFoundError builds the error returned for a missing or deleted task.
func NotFoundError(op string, taskID int64) error {
	return &StoreError{Op: op, TaskID: taskID, Kind: ErrNotFound}
}

// RemoteError represents an error from the remote sync endpoint.
// It provides structured error information including the HTTP status code,
// operation context, and the underlying error message.
type RemoteError struct {
	Operation  string // e.g. "CreateTask", "UpdateTask", "DeleteTask"
	StatusCode int    // HTTP status code (0 if not an HTTP error)
	Message    string // Human-readable error message
	TaskID     int64  // Optional: affected task id
	Body       string // Optional: response body for debugging
	Err        error  // Optional: underlying error
}

func (e *RemoteError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s failed with status %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is makes every remote failure match ErrSyncTransient.
func (e *RemoteError) Is(target error) bool {
	return target == ErrSyncTransient
}

// IsNotFound returns true if the error is a 404 Not Found
func (e *RemoteError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsConflict returns true if the server rejected the write as conflicting
func (e *RemoteError) IsConflict() bool {
	return e.StatusCode == http.StatusConflict || e.StatusCode == http.StatusPreconditionFailed
}

// IsUnauthorized returns true if the error is a 401 Unauthorized or 403 Forbidden
func (e *RemoteError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsServerError returns true if the error is a 5xx server error
func (e *RemoteError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// NewRemoteError creates a new RemoteError
func NewRemoteError(operation string, statusCode int, message string) *RemoteError {
	return &RemoteError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
	}
}

// WithTaskID adds the task id to the error for context
func (e *RemoteError) WithTaskID(id int64) *RemoteError {
	e.TaskID = id
	return e
}

// WithBody adds the response body to the error for debugging
func (e *RemoteError) WithBody(body string) *RemoteError {
	e.Body = body
	return e
}

// WithError wraps an underlying error
func (e *RemoteError) WithError(err error) *RemoteError {
	e.Err = err
	return e
}

// AsRemoteError extracts a *RemoteError from err.
func AsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
