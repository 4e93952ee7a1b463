package backend

import (
	"context"
	"encoding/json"
	"time"
)

// EntityStore is the local task store exposed to the application layer.
type EntityStore interface {
	Create(ctx context.Context, in NewTask) (*Task, error)
	GetByID(ctx context.Context, id int64) (*Task, error) // nil, nil when missing
	Update(ctx context.Context, id int64, patch TaskPatch) (*Task, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, filter Filter, page Pagination) (*Page, error)
	Count(ctx context.Context, filter Filter) (int, error)
}

// SyncQueue is the append-only log of mutations made while offline.
type SyncQueue interface {
	Enqueue(ctx context.Context, op Operation, table string, taskID int64, payload json.RawMessage) (*SyncOperation, error)
	Drain(ctx context.Context, now time.Time) ([]SyncOperation, error)
	Remove(ctx context.Context, id int64) error
	IncrementRetry(ctx context.Context, id int64, cause error) (*SyncOperation, error)
}

// SyncState gives the sync coordinator access to per-record metadata.
type SyncState interface {
	UnsyncedTasks(ctx context.Context) ([]Task, error)
	MarkSynced(ctx context.Context, id int64, version int64) (bool, error)
	MarkUnsynced(ctx context.Context, id int64) error
	MarkConflict(ctx context.Context, id int64, resolution ConflictResolution) error
}

// Remote is the seam to the remote sync endpoint. Every call must be idempotent.
type Remote interface {
	CreateTask(ctx context.Context, payload json.RawMessage) error
	UpdateTask(ctx context.Context, id int64, payload json.RawMessage) error
	DeleteTask(ctx context.Context, id int64) error
}

// Connectivity reports whether the remote is currently believed reachable.
type Connectivity interface {
	IsOnline() bool
}

// ConnectivityFunc adapts a function to Connectivity.
type ConnectivityFunc func() bool

func (f ConnectivityFunc) IsOnline() bool { return f() }

// LegacyStorage is the flat, non-indexed storage tasks are migrated from.
type LegacyStorage interface {
	Load() ([]Task, error)
	Save(tasks []Task) error
	Clear() error
}
