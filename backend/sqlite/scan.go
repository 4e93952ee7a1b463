package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"offlinetasks/backend"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const taskColumns = `id, title, description, status, priority, blocked, blocked_reason, blocked_since,
	blocked_minutes, created_at, started_at, completed_at, sort_order, tags, category, complexity,
	priority_changes, is_active, external_id, external_synced,
	sync_id, last_modified, is_synced, sync_version, conflict`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (backend.Task, error) {
	var (
		t                                  backend.Task
		description, blockedReason, tags   sql.NullString
		category, complexity, externalID   sql.NullString
		conflict                           sql.NullString
		blockedSince, startedAt, completed sql.NullInt64
		createdAt, lastModified            int64
		status, priority                   string
	)
	err := row.Scan(
		&t.ID, &t.Title, &description, &status, &priority, &t.Blocked, &blockedReason, &blockedSince,
		&t.BlockedMinutes, &createdAt, &startedAt, &completed, &t.SortOrder, &tags, &category, &complexity,
		&t.PriorityChanges, &t.Active, &externalID, &t.ExternalSynced,
		&t.Sync.ID, &lastModified, &t.Sync.IsSynced, &t.Sync.Version, &conflict,
	)
	if err != nil {
		return t, err
	}

	t.Description = description.String
	t.Status = backend.Status(status)
	t.Priority = backend.Priority(priority)
	t.BlockedReason = blockedReason.String
	t.BlockedSince = nullInt64ToTime(blockedSince)
	t.CreatedAt = fromNanos(createdAt)
	t.StartedAt = nullInt64ToTime(startedAt)
	t.CompletedAt = nullInt64ToTime(completed)
	t.Category = category.String
	t.Complexity = complexity.String
	t.ExternalID = externalID.String
	t.Sync.LastModified = fromNanos(lastModified)
	t.Sync.Conflict = backend.ConflictResolution(conflict.String)
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &t.Tags); err != nil {
			return t, fmt.Errorf("invalid tags for task %d: %w", t.ID, err)
		}
	}
	return t, nil
}

// taskArgs returns the column values in taskColumns order.
func taskArgs(t *backend.Task) ([]any, error) {
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return nil, err
	}
	return []any{
		t.ID, t.Title, nullString(t.Description), string(t.Status), string(t.Priority), t.Blocked,
		nullString(t.BlockedReason), timeToNullInt64(t.BlockedSince),
		t.BlockedMinutes, toNanos(t.CreatedAt), timeToNullInt64(t.StartedAt), timeToNullInt64(t.CompletedAt),
		t.SortOrder, tags, nullString(t.Category), nullString(t.Complexity),
		t.PriorityChanges, t.Active, nullString(t.ExternalID), t.ExternalSynced,
		t.Sync.ID, toNanos(t.Sync.LastModified), t.Sync.IsSynced, t.Sync.Version, nullString(string(t.Sync.Conflict)),
	}, nil
}

func encodeTags(tags []string) (sql.NullString, error) {
	if len(tags) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// queryTasks runs a task SELECT and loads the histories of every row.
// Rows are fully read before the history queries run.
func queryTasks(ctx context.Context, q querier, query string, args ...any) ([]backend.Task, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var tasks []backend.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := loadHistories(ctx, q, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func loadHistories(ctx context.Context, q querier, tasks []backend.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	index := make(map[int64]int, len(tasks))
	for i := range tasks {
		index[tasks[i].ID] = i
	}
	// Past maxInList ids the whole table is read and foreign rows dropped.
	var filter string
	var args []any
	if len(tasks) <= maxInList {
		filter = " WHERE task_id IN (" + placeholders(len(tasks)) + ")"
		for _, t := range tasks {
			args = append(args, t.ID)
		}
	}

	rows, err := q.QueryContext(ctx, "SELECT task_id, status, changed_at FROM status_history"+filter+" ORDER BY task_id, id", args...)
	if err != nil {
		return fmt.Errorf("failed to load status history: %w", err)
	}
	for rows.Next() {
		var taskID, changedAt int64
		var status string
		if err := rows.Scan(&taskID, &status, &changedAt); err != nil {
			rows.Close()
			return err
		}
		if i, ok := index[taskID]; ok {
			tasks[i].StatusHistory = append(tasks[i].StatusHistory, backend.StatusEntry{
				Status:    backend.Status(status),
				Timestamp: fromNanos(changedAt),
			})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	rows, err = q.QueryContext(ctx, "SELECT task_id, id, blocked, reason, changed_at FROM blocker_history"+filter+" ORDER BY task_id, seq", args...)
	if err != nil {
		return fmt.Errorf("failed to load blocker history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var taskID, changedAt int64
		var entry backend.BlockerEntry
		var reason sql.NullString
		if err := rows.Scan(&taskID, &entry.ID, &entry.Blocked, &reason, &changedAt); err != nil {
			return err
		}
		entry.Reason = reason.String
		entry.Timestamp = fromNanos(changedAt)
		if i, ok := index[taskID]; ok {
			tasks[i].BlockerHistory = append(tasks[i].BlockerHistory, entry)
		}
	}
	return rows.Err()
}

const maxInList = 500

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// insertTask writes the row and its full histories.
func insertTask(ctx context.Context, q querier, t *backend.Task) error {
	args, err := taskArgs(t)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, "INSERT INTO tasks ("+taskColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", args...)
	if err != nil {
		return err
	}
	return appendHistory(ctx, q, t, 0, 0)
}

// updateTaskRow rewrites every column except id and created_at.
func updateTaskRow(ctx context.Context, q querier, t *backend.Task) error {
	args, err := taskArgs(t)
	if err != nil {
		return err
	}
	// Drop id and created_at (positions 0 and 9), then key by id.
	set := append(append([]any{}, args[1:9]...), args[10:]...)
	set = append(set, t.ID)
	_, err = q.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, status = ?, priority = ?, blocked = ?, blocked_reason = ?,
		    blocked_since = ?, blocked_minutes = ?, started_at = ?, completed_at = ?, sort_order = ?,
		    tags = ?, category = ?, complexity = ?, priority_changes = ?, is_active = ?,
		    external_id = ?, external_synced = ?, sync_id = ?, last_modified = ?, is_synced = ?,
		    sync_version = ?, conflict = ?
		WHERE id = ?
	`, set...)
	return err
}

// appendHistory inserts history entries from the given offsets on.
func appendHistory(ctx context.Context, q querier, t *backend.Task, fromStatus, fromBlocker int) error {
	for _, entry := range t.StatusHistory[fromStatus:] {
		_, err := q.ExecContext(ctx,
			"INSERT INTO status_history (task_id, status, changed_at) VALUES (?, ?, ?)",
			t.ID, string(entry.Status), toNanos(entry.Timestamp))
		if err != nil {
			return fmt.Errorf("failed to insert status history: %w", err)
		}
	}
	for i := fromBlocker; i < len(t.BlockerHistory); i++ {
		entry := t.BlockerHistory[i]
		_, err := q.ExecContext(ctx,
			"INSERT INTO blocker_history (id, task_id, seq, blocked, reason, changed_at) VALUES (?, ?, ?, ?, ?, ?)",
			entry.ID, t.ID, i, entry.Blocked, nullString(entry.Reason), toNanos(entry.Timestamp))
		if err != nil {
			return fmt.Errorf("failed to insert blocker history: %w", err)
		}
	}
	return nil
}

// nullString converts string to sql.NullString
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// timeToNullInt64 converts *time.Time to sql.NullInt64
func timeToNullInt64(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: toNanos(*t), Valid: true}
}

func nullInt64ToTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromNanos(v.Int64)
	return &t
}

// Timestamps are stored as unix nanoseconds.
func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n)
}
