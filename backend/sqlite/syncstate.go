package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"offlinetasks/backend"
	"offlinetasks/internal/utils"
)

// UnsyncedTasks returns every record not yet acknowledged by the remote,
// soft-deleted ones included, in id order.
func (s *Store) UnsyncedTasks(ctx context.Context) ([]backend.Task, error) {
	tasks, err := queryTasks(ctx, s.db, "SELECT "+taskColumns+" FROM tasks WHERE is_synced = 0 ORDER BY id")
	if err != nil {
		return nil, backend.NewStoreError("UnsyncedTasks", 0, err)
	}
	return tasks, nil
}

// Conflicts returns the records waiting for a manual conflict decision.
func (s *Store) Conflicts(ctx context.Context) ([]backend.Task, error) {
	tasks, err := queryTasks(ctx, s.db, "SELECT "+taskColumns+" FROM tasks WHERE conflict = ? ORDER BY id", string(backend.ConflictManual))
	if err != nil {
		return nil, backend.NewStoreError("Conflicts", 0, err)
	}
	return tasks, nil
}

// MarkSynced records a remote acknowledgement of version. It only flips the
// synced flag when the record still has that version, so a stale
// acknowledgement never hides a newer local change. A pushed record matches
// the remote again, so a settled local or remote marker is cleared; a manual
// conflict stays until it is resolved.
func (s *Store) MarkSynced(ctx context.Context, id int64, version int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET is_synced = 1,
		    conflict = CASE WHEN conflict = ? THEN conflict ELSE NULL END
		WHERE id = ? AND sync_version = ?
	`, string(backend.ConflictManual), id, version)
	if err != nil {
		return false, backend.NewStoreError("MarkSynced", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, backend.NewStoreError("MarkSynced", id, err)
	}
	if n == 0 {
		utils.Debugf("Ignoring stale acknowledgement for task %d (version %d)", id, version)
	}
	return n > 0, nil
}

// MarkUnsynced clears the synced flag without touching the version.
func (s *Store) MarkUnsynced(ctx context.Context, id int64) error {
	return s.execForTask(ctx, "MarkUnsynced", id, "UPDATE tasks SET is_synced = 0 WHERE id = ?", id)
}

// MarkAllUnsynced forces every record through the next sync pass.
func (s *Store) MarkAllUnsynced(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE tasks SET is_synced = 0 WHERE is_synced = 1")
	if err != nil {
		return 0, backend.NewStoreError("MarkAllUnsynced", 0, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, backend.NewStoreError("MarkAllUnsynced", 0, err)
	}
	return int(n), nil
}

// MarkConflict sets the conflict marker of a record.
func (s *Store) MarkConflict(ctx context.Context, id int64, resolution backend.ConflictResolution) error {
	if !resolution.Valid() {
		return backend.NewStoreError("MarkConflict", id, fmt.Errorf("%w: unknown conflict marker %q", backend.ErrValidation, resolution))
	}
	return s.execForTask(ctx, "MarkConflict", id, "UPDATE tasks SET conflict = ? WHERE id = ?", nullString(string(resolution)), id)
}

// ResolveConflict settles a flagged record. Keeping the local version leaves
// it unsynced so the next pass pushes it again. Taking the remote version
// marks it synced and drops its queued operations without pulling the remote
// copy; the row keeps the remote marker, counted as diverged by Info, until a
// later local change is pushed.
func (s *Store) ResolveConflict(ctx context.Context, id int64, resolution backend.ConflictResolution) error {
	switch resolution {
	case backend.ConflictLocal:
		return s.execForTask(ctx, "ResolveConflict", id,
			"UPDATE tasks SET conflict = ?, is_synced = 0 WHERE id = ?", string(resolution), id)
	case backend.ConflictRemote:
		err := s.withTx(ctx, func(tx *sql.Tx) error {
			if err := execForTask(ctx, tx, id, "UPDATE tasks SET conflict = ?, is_synced = 1 WHERE id = ?", string(resolution), id); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, "DELETE FROM sync_queue WHERE task_id = ? AND table_name = ?", id, backend.TableTasks)
			return err
		})
		if err != nil {
			return backend.NewStoreError("ResolveConflict", id, err)
		}
		return nil
	}
	return backend.NewStoreError("ResolveConflict", id,
		fmt.Errorf("%w: resolution must be %q or %q", backend.ErrValidation, backend.ConflictLocal, backend.ConflictRemote))
}

func (s *Store) execForTask(ctx context.Context, op string, id int64, query string, args ...any) error {
	if err := execForTask(ctx, s.db, id, query, args...); err != nil {
		return backend.NewStoreError(op, id, err)
	}
	return nil
}

// execForTask runs a single-row update and reports a missing task as not found.
func execForTask(ctx context.Context, q querier, id int64, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: task %d", backend.ErrNotFound, id)
	}
	return nil
}
