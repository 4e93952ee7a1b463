package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"offlinetasks/backend"
	"offlinetasks/internal/utils"
)

// MigrateFromLegacy copies every record of the legacy storage into the store,
// keeping ids, and then clears the legacy source. All migrated records start
// unsynced. An empty source is a no-op, so a second call does nothing.
func (s *Store) MigrateFromLegacy(ctx context.Context, legacy backend.LegacyStorage) (int, error) {
	tasks, err := legacy.Load()
	if err != nil {
		return 0, backend.NewStoreError("MigrateFromLegacy", 0, fmt.Errorf("failed to load legacy storage: %w", err))
	}
	if len(tasks) == 0 {
		utils.Debugf("Legacy storage is empty, nothing to migrate")
		return 0, nil
	}

	now := s.now()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		return s.bulkInsert(ctx, tx, tasks, now)
	})
	if err != nil {
		return 0, backend.NewStoreError("MigrateFromLegacy", 0, err)
	}

	if err := legacy.Clear(); err != nil {
		return len(tasks), backend.NewStoreError("MigrateFromLegacy", 0, fmt.Errorf("migrated %d tasks but failed to clear legacy storage: %w", len(tasks), err))
	}
	utils.Infof("Migrated %d tasks from legacy storage", len(tasks))
	return len(tasks), nil
}

// Export returns a snapshot of every task, deleted ones included, without
// sync metadata.
func (s *Store) Export(ctx context.Context) (*backend.Snapshot, error) {
	tasks, err := queryTasks(ctx, s.db, "SELECT "+taskColumns+" FROM tasks ORDER BY id")
	if err != nil {
		return nil, backend.NewStoreError("Export", 0, err)
	}
	if tasks == nil {
		tasks = []backend.Task{}
	}
	return &backend.Snapshot{
		Version:    backend.SnapshotVersion,
		ExportedAt: s.now(),
		Tasks:      tasks,
	}, nil
}

// Import replaces the store content with snapshot. Tasks and the sync queue
// are cleared first; imported records start unsynced. Ids are kept, and the
// id high-water mark never moves backwards.
func (s *Store) Import(ctx context.Context, snapshot *backend.Snapshot) (int, error) {
	if snapshot == nil {
		return 0, backend.NewStoreError("Import", 0, fmt.Errorf("%w: no snapshot", backend.ErrValidation))
	}
	if snapshot.Version > backend.SnapshotVersion {
		return 0, backend.NewStoreError("Import", 0,
			fmt.Errorf("%w: snapshot version %d is newer than supported version %d", backend.ErrValidation, snapshot.Version, backend.SnapshotVersion))
	}

	now := s.now()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sync_queue"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
			return err
		}
		return s.bulkInsert(ctx, tx, snapshot.Tasks, now)
	})
	if err != nil {
		return 0, backend.NewStoreError("Import", 0, err)
	}
	utils.Infof("Imported %d tasks", len(snapshot.Tasks))
	return len(snapshot.Tasks), nil
}

// bulkInsert normalizes and inserts tasks, then renumbers the manual order.
func (s *Store) bulkInsert(ctx context.Context, tx *sql.Tx, tasks []backend.Task, now time.Time) error {
	// Records without an id are numbered above every explicit id in the batch.
	var maxID int64
	for _, t := range tasks {
		maxID = max(maxID, t.ID)
	}
	if maxID > 0 {
		if err := raiseHighWater(ctx, tx, maxID); err != nil {
			return err
		}
	}

	for i := range tasks {
		t := tasks[i]
		if t.ID == 0 {
			id, err := nextID(ctx, tx)
			if err != nil {
				return err
			}
			t.ID = id
		}
		if err := normalizeImported(&t, now); err != nil {
			return err
		}

		exists, err := taskExists(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: task %d already exists", backend.ErrDuplicateID, t.ID)
		}
		if err := insertTask(ctx, tx, &t); err != nil {
			return fmt.Errorf("failed to insert task %d: %w", t.ID, err)
		}
		maxID = max(maxID, t.ID)
	}
	if maxID > 0 {
		if err := raiseHighWater(ctx, tx, maxID); err != nil {
			return err
		}
	}
	return renumberSortOrder(ctx, tx)
}

// normalizeImported makes a record from an external snapshot satisfy the
// store invariants and gives it fresh, unsynced metadata.
func normalizeImported(t *backend.Task, now time.Time) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return fmt.Errorf("%w: task %d has an empty title", backend.ErrValidation, t.ID)
	}
	if t.Status == "" {
		t.Status = backend.StatusTodo
	}
	status, err := backend.ParseStatus(string(t.Status))
	if err != nil {
		return fmt.Errorf("task %d: %w", t.ID, err)
	}
	t.Status = status
	if t.Priority == "" {
		t.Priority = backend.PriorityNormal
	}
	priority, err := backend.ParsePriority(string(t.Priority))
	if err != nil {
		return fmt.Errorf("task %d: %w", t.ID, err)
	}
	t.Priority = priority

	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.Tags = backend.NormalizeTags(t.Tags)
	t.StatusHistory = backend.NormalizeStatusHistory(t.StatusHistory, t.Status, t.CreatedAt)
	for i := range t.BlockerHistory {
		if t.BlockerHistory[i].ID == "" {
			t.BlockerHistory[i].ID = uuid.NewString()
		}
	}
	if !t.Blocked {
		t.BlockedReason = ""
		t.BlockedSince = nil
	} else if t.BlockedSince == nil {
		since := now
		t.BlockedSince = &since
	}

	t.Sync = backend.NewSyncMetadata(now, false)
	return nil
}

// renumberSortOrder assigns 0..n-1 to active tasks in their current order.
func renumberSortOrder(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM tasks WHERE is_active = 1 ORDER BY sort_order, id")
	if err != nil {
		return err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, "UPDATE tasks SET sort_order = ? WHERE id = ?", i, id); err != nil {
			return err
		}
	}
	return nil
}
