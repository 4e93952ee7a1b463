// Package sync replays local changes against the remote endpoint.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"offlinetasks/backend"
	"offlinetasks/internal/utils"
)

// Local is what the manager needs from the local store.
type Local interface {
	backend.SyncState
	backend.SyncQueue
	MarkAllUnsynced(ctx context.Context) (int, error)
	ResolveConflict(ctx context.Context, id int64, resolution backend.ConflictResolution) error
}

// Manager coordinates synchronization between the local store and the remote.
type Manager struct {
	local   Local
	remote  backend.Remote
	timeout time.Duration
	now     func() time.Time
	running atomic.Bool
}

// NewManager creates a sync manager. timeout bounds each remote call; zero
// leaves it to the remote client.
func NewManager(local Local, remote backend.Remote, timeout time.Duration) *Manager {
	return &Manager{
		local:   local,
		remote:  remote,
		timeout: timeout,
		now:     time.Now,
	}
}

// SyncResult contains statistics about the sync operation
type SyncResult struct {
	PushedTasks    int
	PushedQueue    int
	ConflictsFound int
	FailedTasks    int
	FailedQueue    int
	DeadLettered   int
	Skipped        int
	Errors         []error
	Duration       time.Duration
}

func (r *SyncResult) String() string {
	return fmt.Sprintf("pushed %d records and %d queued operations, %d conflicts, %d failures (%s)",
		r.PushedTasks, r.PushedQueue, r.ConflictsFound, r.FailedTasks+r.FailedQueue, r.Duration.Round(time.Millisecond))
}

// IsRunning reports whether a sync is currently in flight.
func (m *Manager) IsRunning() bool {
	return m.running.Load()
}

// Sync pushes every unsynced record and then drains the queue.
// A concurrent call returns ErrSyncInProgress without doing anything.
// Per-item failures are collected in the result; the returned error is only
// set when the run could not proceed at all.
func (m *Manager) Sync(ctx context.Context) (*SyncResult, error) {
	return m.run(ctx, false)
}

// FullSync marks every record unsynced and runs a sync, re-pushing everything.
// The marking happens inside the guarded run, so it never overlaps another sync.
func (m *Manager) FullSync(ctx context.Context) (*SyncResult, error) {
	return m.run(ctx, true)
}

func (m *Manager) run(ctx context.Context, full bool) (*SyncResult, error) {
	if !m.running.CompareAndSwap(false, true) {
		return nil, backend.ErrSyncInProgress
	}
	defer m.running.Store(false)

	startTime := time.Now()
	result := &SyncResult{}

	if full {
		n, err := m.local.MarkAllUnsynced(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to mark records unsynced: %w", err)
		}
		utils.Debugf("Full sync: %d records marked unsynced", n)
	}

	// Phase 1: push unsynced records
	if err := m.pushRecords(ctx, result); err != nil {
		result.Duration = time.Since(startTime)
		return result, fmt.Errorf("push phase failed: %w", err)
	}

	// Phase 2: replay the queue
	if err := m.drainQueue(ctx, result); err != nil {
		result.Duration = time.Since(startTime)
		return result, fmt.Errorf("queue phase failed: %w", err)
	}

	result.Duration = time.Since(startTime)
	utils.Infof("Sync finished: %s", result)
	return result, nil
}

// pushRecords sends the current state of every unsynced record.
func (m *Manager) pushRecords(ctx context.Context, result *SyncResult) error {
	tasks, err := m.local.UnsyncedTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get unsynced records: %w", err)
	}

	for i := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		task := &tasks[i]
		if task.Sync.Conflict == backend.ConflictManual {
			result.Skipped++
			continue
		}

		pushErr := m.pushTask(ctx, task)
		switch {
		case pushErr == nil:
			if _, err := m.local.MarkSynced(ctx, task.ID, task.Sync.Version); err != nil {
				return err
			}
			result.PushedTasks++
		case isConflict(pushErr):
			utils.Warnf("Conflict on task %d, manual resolution required", task.ID)
			if err := m.local.MarkConflict(ctx, task.ID, backend.ConflictManual); err != nil {
				return err
			}
			result.ConflictsFound++
		default:
			utils.Warnf("Failed to push task %d: %v", task.ID, pushErr)
			result.FailedTasks++
			result.Errors = append(result.Errors, pushErr)
		}
	}
	return nil
}

// pushTask upserts an active record or deletes an inactive one.
func (m *Manager) pushTask(ctx context.Context, task *backend.Task) error {
	callCtx, cancel := m.callContext(ctx)
	defer cancel()

	if !task.Active {
		err := m.remote.DeleteTask(callCtx, task.ID)
		if isNotFound(err) {
			return nil
		}
		return err
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task %d: %w", task.ID, err)
	}
	return m.remote.UpdateTask(callCtx, task.ID, payload)
}

// drainQueue replays queued operations in FIFO order. A failing item is
// retried later and does not stop the rest of the queue.
func (m *Manager) drainQueue(ctx context.Context, result *SyncResult) error {
	operations, err := m.local.Drain(ctx, m.now())
	if err != nil {
		return fmt.Errorf("failed to get pending operations: %w", err)
	}

	for _, op := range operations {
		if err := ctx.Err(); err != nil {
			return err
		}

		pushErr := m.replay(ctx, op)
		if pushErr == nil {
			if err := m.local.Remove(ctx, op.ID); err != nil && !errors.Is(err, backend.ErrNotFound) {
				return err
			}
			result.PushedQueue++
			continue
		}

		utils.Debugf("Queue item %s failed: %v", op, pushErr)
		updated, err := m.local.IncrementRetry(ctx, op.ID, pushErr)
		if err != nil {
			return err
		}
		result.FailedQueue++
		result.Errors = append(result.Errors, pushErr)
		if updated.State == backend.QueueDead {
			result.DeadLettered++
		}
	}
	return nil
}

// replay sends one queued operation.
func (m *Manager) replay(ctx context.Context, op backend.SyncOperation) error {
	callCtx, cancel := m.callContext(ctx)
	defer cancel()

	switch op.Operation {
	case backend.OperationCreate:
		return m.remote.CreateTask(callCtx, op.Payload)
	case backend.OperationUpdate:
		return m.remote.UpdateTask(callCtx, op.TaskID, op.Payload)
	case backend.OperationDelete:
		err := m.remote.DeleteTask(callCtx, op.TaskID)
		// Already gone on the remote.
		if isNotFound(err) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown operation: %s", op.Operation)
	}
}

// PushTask pushes one record right away, typically after an online write.
// On failure the record is flagged unsynced so the next sync retries it.
func (m *Manager) PushTask(ctx context.Context, task *backend.Task) error {
	if task == nil {
		return nil
	}
	err := m.pushTask(ctx, task)
	switch {
	case err == nil:
		_, err = m.local.MarkSynced(ctx, task.ID, task.Sync.Version)
		return err
	case isConflict(err):
		if markErr := m.local.MarkConflict(ctx, task.ID, backend.ConflictManual); markErr != nil {
			return markErr
		}
		return err
	default:
		if markErr := m.local.MarkUnsynced(ctx, task.ID); markErr != nil {
			return markErr
		}
		return err
	}
}

// ResolveConflict settles a manual conflict in favour of the local or the remote copy.
func (m *Manager) ResolveConflict(ctx context.Context, id int64, resolution backend.ConflictResolution) error {
	return m.local.ResolveConflict(ctx, id, resolution)
}

func (m *Manager) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

func isNotFound(err error) bool {
	re, ok := backend.AsRemoteError(err)
	return ok && re.IsNotFound()
}

func isConflict(err error) bool {
	re, ok := backend.AsRemoteError(err)
	return ok && re.IsConflict()
}
