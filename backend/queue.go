package backend

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Operation is the kind of mutation a queue item replays.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Valid reports whether op is a known operation.
func (op Operation) Valid() bool {
	switch op {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// TableTasks is the only entity table today.
const TableTasks = "tasks"

// QueueState separates replayable items from dead letters.
type QueueState string

const (
	QueuePending QueueState = "pending"
	QueueDead    QueueState = "dead"
)

// SyncOperation is a queued mutation waiting for remote replay.
type SyncOperation struct {
	ID            int64           `json:"id"`
	Operation     Operation       `json:"operation"`
	Table         string          `json:"table"`
	TaskID        int64           `json:"task_id"`
	Payload       json.RawMessage `json:"payload"`
	EnqueuedAt    time.Time       `json:"enqueued_at"`
	RetryCount    int             `json:"retry_count"`
	NextAttemptAt time.Time       `json:"next_attempt_at"`
	LastError     string          `json:"last_error,omitempty"`
	State         QueueState      `json:"state"`
}

func (op SyncOperation) String() string {
	return fmt.Sprintf("#%d %s %s/%d (retries: %d, %s)", op.ID, op.Operation, op.Table, op.TaskID, op.RetryCount, op.State)
}

// UpdatePayload is the wire form of a queued update: the patch keyed by id.
type UpdatePayload struct {
	ID int64 `json:"id"`
	TaskPatch
}

// DeletePayload is the wire form of a queued delete.
type DeletePayload struct {
	ID int64 `json:"id"`
}

// RetryPolicy decides when a failed queue item is retried and when it is
// moved to the dead-letter state.
type RetryPolicy struct {
	MaxRetries int           `yaml:"max_retries" validate:"min=0"`
	BaseDelay  time.Duration `yaml:"base_delay" validate:"min=0"`
	MaxDelay   time.Duration `yaml:"max_delay" validate:"min=0"`
}

// DefaultRetryPolicy retries five times, backing off from one second up to five minutes.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 5,
		BaseDelay:  time.Second,
		MaxDelay:   5 * time.Minute,
	}
}

// MaxBackoff bounds the retry delay when the policy sets no MaxDelay.
const MaxBackoff = 24 * time.Hour

// Backoff returns the delay after the given number of failed attempts.
func (p RetryPolicy) Backoff(retryCount int) time.Duration {
	if p.BaseDelay <= 0 || retryCount <= 0 {
		return 0
	}
	ceiling := p.MaxDelay
	if ceiling <= 0 {
		ceiling = MaxBackoff
	}
	delay := p.BaseDelay
	for i := 1; i < retryCount && delay < ceiling && delay <= math.MaxInt64/2; i++ {
		delay *= 2
	}
	return min(delay, ceiling)
}

// Exhausted reports whether an item with retryCount failures is dead.
// MaxRetries of zero disables dead-lettering.
func (p RetryPolicy) Exhausted(retryCount int) bool {
	return p.MaxRetries > 0 && retryCount >= p.MaxRetries
}
