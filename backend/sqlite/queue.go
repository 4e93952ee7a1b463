package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"offlinetasks/backend"
	"offlinetasks/internal/utils"
)

const queueColumns = "id, operation, table_name, task_id, payload, enqueued_at, retry_count, next_attempt_at, last_error, state"

func scanQueueItem(row rowScanner) (backend.SyncOperation, error) {
	var (
		op                      backend.SyncOperation
		operation, payload      string
		state                   string
		enqueuedAt, nextAttempt int64
		lastError               sql.NullString
	)
	err := row.Scan(&op.ID, &operation, &op.Table, &op.TaskID, &payload, &enqueuedAt, &op.RetryCount, &nextAttempt, &lastError, &state)
	if err != nil {
		return op, err
	}
	op.Operation = backend.Operation(operation)
	op.Payload = json.RawMessage(payload)
	op.EnqueuedAt = fromNanos(enqueuedAt)
	op.NextAttemptAt = fromNanos(nextAttempt)
	op.LastError = lastError.String
	op.State = backend.QueueState(state)
	return op, nil
}

func queryQueue(ctx context.Context, q querier, query string, args ...any) ([]backend.SyncOperation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []backend.SyncOperation
	for rows.Next() {
		op, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// enqueue appends an item with a zero retry count, due immediately.
func enqueue(ctx context.Context, q querier, op backend.Operation, table string, taskID int64, payload json.RawMessage, now time.Time) (*backend.SyncOperation, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("%w: unknown queue operation %q", backend.ErrValidation, op)
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: queue payload is not valid JSON", backend.ErrValidation)
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO sync_queue (operation, table_name, task_id, payload, enqueued_at, retry_count, next_attempt_at, state)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
	`, string(op), table, taskID, string(payload), toNanos(now), toNanos(now), string(backend.QueuePending))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue %s: %w", op, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &backend.SyncOperation{
		ID:            id,
		Operation:     op,
		Table:         table,
		TaskID:        taskID,
		Payload:       payload,
		EnqueuedAt:    now,
		NextAttemptAt: now,
		State:         backend.QueuePending,
	}, nil
}

// Enqueue appends a mutation to the sync queue.
func (s *Store) Enqueue(ctx context.Context, op backend.Operation, table string, taskID int64, payload json.RawMessage) (*backend.SyncOperation, error) {
	item, err := enqueue(ctx, s.db, op, table, taskID, payload, s.now())
	if err != nil {
		return nil, backend.NewStoreError("Enqueue", taskID, err)
	}
	return item, nil
}

// Drain returns the pending items due at now, oldest first.
func (s *Store) Drain(ctx context.Context, now time.Time) ([]backend.SyncOperation, error) {
	ops, err := queryQueue(ctx, s.db,
		"SELECT "+queueColumns+" FROM sync_queue WHERE state = ? AND next_attempt_at <= ? ORDER BY enqueued_at, id",
		string(backend.QueuePending), toNanos(now))
	if err != nil {
		return nil, backend.NewStoreError("Drain", 0, err)
	}
	return ops, nil
}

// List returns queue items in FIFO order. An empty state lists everything.
func (s *Store) List(ctx context.Context, state backend.QueueState) ([]backend.SyncOperation, error) {
	query := "SELECT " + queueColumns + " FROM sync_queue"
	var args []any
	if state != "" {
		query += " WHERE state = ?"
		args = append(args, string(state))
	}
	ops, err := queryQueue(ctx, s.db, query+" ORDER BY enqueued_at, id", args...)
	if err != nil {
		return nil, backend.NewStoreError("List", 0, err)
	}
	return ops, nil
}

// DeadLetters returns the items that ran out of retries.
func (s *Store) DeadLetters(ctx context.Context) ([]backend.SyncOperation, error) {
	return s.List(ctx, backend.QueueDead)
}

// Remove deletes a replayed item.
func (s *Store) Remove(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sync_queue WHERE id = ?", id)
	if err != nil {
		return backend.NewStoreError("Remove", 0, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return backend.NewStoreError("Remove", 0, err)
	} else if n == 0 {
		return backend.NewStoreError("Remove", 0, fmt.Errorf("%w: queue item %d", backend.ErrNotFound, id))
	}
	return nil
}

// IncrementRetry records a failed replay. The item stays queued with its next
// attempt pushed out by the retry policy, or turns into a dead letter once
// the policy is exhausted.
func (s *Store) IncrementRetry(ctx context.Context, id int64, cause error) (*backend.SyncOperation, error) {
	now := s.now()
	var item backend.SyncOperation
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		item, err = scanQueueItem(tx.QueryRowContext(ctx, "SELECT "+queueColumns+" FROM sync_queue WHERE id = ?", id))
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: queue item %d", backend.ErrNotFound, id)
		}
		if err != nil {
			return err
		}

		item.RetryCount++
		item.NextAttemptAt = now.Add(s.policy.Backoff(item.RetryCount))
		if cause != nil {
			item.LastError = cause.Error()
		}
		if s.policy.Exhausted(item.RetryCount) {
			item.State = backend.QueueDead
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE sync_queue SET retry_count = ?, next_attempt_at = ?, last_error = ?, state = ? WHERE id = ?",
			item.RetryCount, toNanos(item.NextAttemptAt), nullString(item.LastError), string(item.State), id)
		return err
	})
	if err != nil {
		return nil, backend.NewStoreError("IncrementRetry", 0, err)
	}

	if item.State == backend.QueueDead {
		utils.Warnf("Sync operation %s moved to dead letters: %s", item, item.LastError)
	}
	return &item, nil
}

// Requeue moves a dead item (or every dead item when id is 0) back to
// pending with a fresh retry budget. It returns the number of items moved.
func (s *Store) Requeue(ctx context.Context, id int64) (int, error) {
	query := "UPDATE sync_queue SET state = ?, retry_count = 0, next_attempt_at = ?, last_error = NULL WHERE state = ?"
	args := []any{string(backend.QueuePending), toNanos(s.now()), string(backend.QueueDead)}
	if id != 0 {
		query += " AND id = ?"
		args = append(args, id)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, backend.NewStoreError("Requeue", 0, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, backend.NewStoreError("Requeue", 0, err)
	}
	if id != 0 && n == 0 {
		return 0, backend.NewStoreError("Requeue", 0, fmt.Errorf("%w: dead queue item %d", backend.ErrNotFound, id))
	}
	return int(n), nil
}

// Clear drops queue items in state, or every item when state is empty.
func (s *Store) Clear(ctx context.Context, state backend.QueueState) (int, error) {
	query := "DELETE FROM sync_queue"
	var args []any
	if state != "" {
		query += " WHERE state = ?"
		args = append(args, string(state))
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, backend.NewStoreError("Clear", 0, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, backend.NewStoreError("Clear", 0, err)
	}
	return int(n), nil
}
