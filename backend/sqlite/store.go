package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"offlinetasks/backend"
	"offlinetasks/internal/utils"
)

// Options configures a Store.
type Options struct {
	// Connectivity decides whether fresh writes count as synced.
	// A nil value means always online.
	Connectivity backend.Connectivity
	// RetryPolicy applies to failed queue replays. Zero means DefaultRetryPolicy.
	RetryPolicy backend.RetryPolicy
	// Now overrides the clock, for tests.
	Now func() time.Time
	// OnComplete is called after a write moves a task into done.
	OnComplete func(backend.Task)
}

// Store is the SQLite entity store. It also owns the sync queue and the
// per-record sync metadata.
type Store struct {
	db         *Database
	conn       backend.Connectivity
	policy     backend.RetryPolicy
	now        func() time.Time
	onComplete func(backend.Task)
}

var (
	_ backend.EntityStore = (*Store)(nil)
	_ backend.SyncQueue   = (*Store)(nil)
	_ backend.SyncState   = (*Store)(nil)
)

// Open opens (or creates) the database at path and returns a store over it.
func Open(path string, opts Options) (*Store, error) {
	db, err := InitDatabase(path)
	if err != nil {
		return nil, backend.NewStoreError("Open", 0, err)
	}
	return NewStore(db, opts), nil
}

// NewStore wraps an initialized database.
func NewStore(db *Database, opts Options) *Store {
	s := &Store{
		db:         db,
		conn:       opts.Connectivity,
		policy:     opts.RetryPolicy,
		now:        opts.Now,
		onComplete: opts.OnComplete,
	}
	if s.policy == (backend.RetryPolicy{}) {
		s.policy = backend.DefaultRetryPolicy()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// DB returns the underlying database.
func (s *Store) DB() *Database {
	return s.db
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SetConnectivity swaps the connectivity source.
func (s *Store) SetConnectivity(c backend.Connectivity) {
	s.conn = c
}

// SetOnComplete replaces the completion hook.
func (s *Store) SetOnComplete(fn func(backend.Task)) {
	s.onComplete = fn
}

func (s *Store) online() bool {
	return s.conn == nil || s.conn.IsOnline()
}

// withTx runs fn in a transaction. Nothing is written unless fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) completed(t backend.Task) {
	if s.onComplete != nil {
		s.onComplete(t)
	}
}

const highWaterKey = "last_task_id"

// nextID returns one more than the highest id ever assigned.
func nextID(ctx context.Context, q querier) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		SELECT MAX(
			COALESCE((SELECT MAX(id) FROM tasks), 0),
			COALESCE((SELECT value FROM store_meta WHERE key = ?), 0)
		) + 1
	`, highWaterKey).Scan(&id)
	return id, err
}

func raiseHighWater(ctx context.Context, q querier, id int64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO store_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = MAX(value, excluded.value)
	`, highWaterKey, id)
	return err
}

func taskExists(ctx context.Context, q querier, id int64) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM tasks WHERE id = ?)", id).Scan(&exists)
	return exists, err
}

// getTask loads one task with its histories. It returns nil when the task is
// missing, or soft-deleted unless includeDeleted is set.
func getTask(ctx context.Context, q querier, id int64, includeDeleted bool) (*backend.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE id = ?"
	if !includeDeleted {
		query += " AND is_active = 1"
	}
	tasks, err := queryTasks(ctx, q, query, id)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return &tasks[0], nil
}

// Create validates the input, assigns the next id and sort position, and
// persists the task. While offline it also queues a create with the full task.
func (s *Store) Create(ctx context.Context, in backend.NewTask) (*backend.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, backend.NewStoreError("Create", 0, err)
	}

	now := s.now()
	online := s.online()
	var task backend.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := nextID(ctx, tx)
		if err != nil {
			return fmt.Errorf("failed to allocate id: %w", err)
		}
		exists, err := taskExists(ctx, tx, id)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: task %d already exists", backend.ErrDuplicateID, id)
		}

		var sortOrder int
		err = tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(sort_order), -1) + 1 FROM tasks WHERE is_active = 1").Scan(&sortOrder)
		if err != nil {
			return fmt.Errorf("failed to compute sort order: %w", err)
		}

		task = in.Build(id, sortOrder, now)
		task.Sync = backend.NewSyncMetadata(now, online)
		if err := insertTask(ctx, tx, &task); err != nil {
			return err
		}
		if err := raiseHighWater(ctx, tx, id); err != nil {
			return err
		}
		if !online {
			return s.enqueueJSON(ctx, tx, backend.OperationCreate, id, task, now)
		}
		return nil
	})
	if err != nil {
		return nil, backend.NewStoreError("Create", 0, err)
	}

	utils.Debugf("Created task %d (version %d, synced=%v)", task.ID, task.Sync.Version, task.Sync.IsSynced)
	if task.Status == backend.StatusDone {
		s.completed(task)
	}
	return &task, nil
}

// GetByID returns the active task with id, or nil when there is none.
func (s *Store) GetByID(ctx context.Context, id int64) (*backend.Task, error) {
	t, err := getTask(ctx, s.db, id, false)
	if err != nil {
		return nil, backend.NewStoreError("GetByID", id, err)
	}
	return t, nil
}

// GetIncludingDeleted returns the task with id even when it is soft-deleted.
func (s *Store) GetIncludingDeleted(ctx context.Context, id int64) (*backend.Task, error) {
	t, err := getTask(ctx, s.db, id, true)
	if err != nil {
		return nil, backend.NewStoreError("GetIncludingDeleted", id, err)
	}
	return t, nil
}

// Update applies a partial patch through the domain transitions and
// re-stamps the sync metadata. While offline the patch is queued.
func (s *Store) Update(ctx context.Context, id int64, patch backend.TaskPatch) (*backend.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, backend.NewStoreError("Update", id, err)
	}
	if patch.SortOrder != nil {
		return nil, backend.NewStoreError("Update", id, fmt.Errorf("%w: sort order is changed with Move", backend.ErrValidation))
	}

	now := s.now()
	online := s.online()
	var (
		task      *backend.Task
		completed bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		task, err = getTask(ctx, tx, id, false)
		if err != nil {
			return err
		}
		if task == nil {
			return backend.NotFoundError("Update", id)
		}

		fromStatus, fromBlocker := len(task.StatusHistory), len(task.BlockerHistory)
		completed = patch.ApplyTo(task, now)
		task.Sync.Stamp(now, online)

		if err := updateTaskRow(ctx, tx, task); err != nil {
			return err
		}
		if err := appendHistory(ctx, tx, task, fromStatus, fromBlocker); err != nil {
			return err
		}
		if !online {
			return s.enqueueJSON(ctx, tx, backend.OperationUpdate, id, backend.UpdatePayload{ID: id, TaskPatch: patch}, now)
		}
		return nil
	})
	if err != nil {
		return nil, backend.NewStoreError("Update", id, err)
	}

	utils.Debugf("Updated task %d (version %d, synced=%v)", id, task.Sync.Version, task.Sync.IsSynced)
	if completed {
		s.completed(*task)
	}
	return task, nil
}

// Delete soft-deletes a task. Deleted tasks stay in the table until Purge.
func (s *Store) Delete(ctx context.Context, id int64) error {
	now := s.now()
	online := s.online()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		task, err := getTask(ctx, tx, id, false)
		if err != nil {
			return err
		}
		if task == nil {
			return backend.NotFoundError("Delete", id)
		}

		task.Active = false
		task.Sync.Stamp(now, online)
		if err := updateTaskRow(ctx, tx, task); err != nil {
			return err
		}
		if !online {
			return s.enqueueJSON(ctx, tx, backend.OperationDelete, id, backend.DeletePayload{ID: id}, now)
		}
		return nil
	})
	if err != nil {
		return backend.NewStoreError("Delete", id, err)
	}

	utils.Debugf("Deleted task %d", id)
	return nil
}

// Move puts a task at position (0-based, clamped) in the manual order and
// renumbers the active tasks 0..n-1. Every task whose position changes is
// stamped like any other mutation. It returns the tasks touched.
func (s *Store) Move(ctx context.Context, id int64, position int) ([]backend.Task, error) {
	now := s.now()
	online := s.online()
	var touched []backend.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		tasks, err := queryTasks(ctx, tx, "SELECT "+taskColumns+" FROM tasks WHERE is_active = 1 ORDER BY sort_order, id")
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(tasks, func(t backend.Task) bool { return t.ID == id })
		if idx < 0 {
			return backend.NotFoundError("Move", id)
		}

		moved := tasks[idx]
		tasks = slices.Delete(tasks, idx, idx+1)
		position = min(max(position, 0), len(tasks))
		tasks = slices.Insert(tasks, position, moved)

		for i := range tasks {
			t := &tasks[i]
			if t.SortOrder == i {
				continue
			}
			order := i
			t.SortOrder = order
			t.Sync.Stamp(now, online)
			if err := updateTaskRow(ctx, tx, t); err != nil {
				return err
			}
			if !online {
				payload := backend.UpdatePayload{ID: t.ID, TaskPatch: backend.TaskPatch{SortOrder: &order}}
				if err := s.enqueueJSON(ctx, tx, backend.OperationUpdate, t.ID, payload, now); err != nil {
					return err
				}
			}
			touched = append(touched, *t)
		}
		return nil
	})
	if err != nil {
		return nil, backend.NewStoreError("Move", id, err)
	}
	return touched, nil
}

// Purge hard-deletes soft-deleted tasks last modified before cutoff.
// Their histories go with them; queued operations stay.
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE is_active = 0 AND last_modified < ?", toNanos(cutoff))
	if err != nil {
		return 0, backend.NewStoreError("Purge", 0, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, backend.NewStoreError("Purge", 0, err)
	}
	if n > 0 {
		utils.Infof("Purged %d deleted tasks", n)
	}
	return int(n), nil
}

// Vacuum compacts the database file.
func (s *Store) Vacuum(ctx context.Context) error {
	if err := s.db.Vacuum(ctx); err != nil {
		return backend.NewStoreError("Vacuum", 0, err)
	}
	return nil
}

func (s *Store) enqueueJSON(ctx context.Context, q querier, op backend.Operation, taskID int64, payload any, now time.Time) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", op, err)
	}
	_, err = enqueue(ctx, q, op, backend.TableTasks, taskID, data, now)
	return err
}
