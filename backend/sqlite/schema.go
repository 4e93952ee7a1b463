package sqlite

// Schema version for migration management
const SchemaVersion = 1

// SQL statements for database schema creation

// TasksTableSQL creates the main tasks table. Sync metadata lives in the same
// row so every write stamps it in the same statement.
const TasksTableSQL = `
CREATE TABLE IF NOT EXISTS tasks (
    id INTEGER PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    status TEXT NOT NULL,
    priority TEXT NOT NULL,
    blocked INTEGER NOT NULL DEFAULT 0,
    blocked_reason TEXT,
    blocked_since INTEGER,
    blocked_minutes INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    started_at INTEGER,
    completed_at INTEGER,
    sort_order INTEGER NOT NULL DEFAULT 0,
    tags TEXT,
    category TEXT,
    complexity TEXT,
    priority_changes INTEGER NOT NULL DEFAULT 0,
    is_active INTEGER NOT NULL DEFAULT 1,
    external_id TEXT,
    external_synced INTEGER NOT NULL DEFAULT 0,

    -- Sync metadata
    sync_id TEXT NOT NULL,
    last_modified INTEGER NOT NULL,
    is_synced INTEGER NOT NULL DEFAULT 0,
    sync_version INTEGER NOT NULL DEFAULT 1,
    conflict TEXT
);
`

// StatusHistoryTableSQL creates the append-only status transition log
const StatusHistoryTableSQL = `
CREATE TABLE IF NOT EXISTS status_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id INTEGER NOT NULL,
    status TEXT NOT NULL,
    changed_at INTEGER NOT NULL,

    FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE
);
`

// BlockerHistoryTableSQL creates the append-only blocker episode log
const BlockerHistoryTableSQL = `
CREATE TABLE IF NOT EXISTS blocker_history (
    id TEXT PRIMARY KEY,
    task_id INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    blocked INTEGER NOT NULL,
    reason TEXT,
    changed_at INTEGER NOT NULL,

    FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE
);
`

// SyncQueueTableSQL creates the sync queue table for operations to replay on next sync.
// task_id is a weak reference: queue items survive a purge of their task.
const SyncQueueTableSQL = `
CREATE TABLE IF NOT EXISTS sync_queue (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    operation TEXT NOT NULL CHECK(operation IN ('create', 'update', 'delete')),
    table_name TEXT NOT NULL,
    task_id INTEGER NOT NULL,
    payload TEXT NOT NULL,
    enqueued_at INTEGER NOT NULL,
    retry_count INTEGER NOT NULL DEFAULT 0,
    next_attempt_at INTEGER NOT NULL,
    last_error TEXT,
    state TEXT NOT NULL DEFAULT 'pending' CHECK(state IN ('pending', 'dead'))
);
`

// StoreMetaTableSQL keeps small counters such as the id high-water mark
const StoreMetaTableSQL = `
CREATE TABLE IF NOT EXISTS store_meta (
    key TEXT PRIMARY KEY,
    value INTEGER NOT NULL
);
`

// SchemaVersionTableSQL creates the schema version table for migration tracking
const SchemaVersionTableSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`

// Index creation statements for performance optimization

// TasksIndexesSQL creates indexes on tasks table for the pushed-down predicates
const TasksIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_tasks_active_order ON tasks(is_active, sort_order);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_priority ON tasks(priority);
CREATE INDEX IF NOT EXISTS idx_tasks_category ON tasks(category);
CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);
CREATE INDEX IF NOT EXISTS idx_tasks_completed_at ON tasks(completed_at);
CREATE INDEX IF NOT EXISTS idx_tasks_is_synced ON tasks(is_synced);
`

// HistoryIndexesSQL creates indexes on the history tables
const HistoryIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_status_history_task ON status_history(task_id, id);
CREATE INDEX IF NOT EXISTS idx_blocker_history_task ON blocker_history(task_id, seq);
`

// SyncQueueIndexesSQL creates indexes on sync_queue table
const SyncQueueIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_sync_queue_state_next ON sync_queue(state, next_attempt_at);
CREATE INDEX IF NOT EXISTS idx_sync_queue_enqueued_at ON sync_queue(enqueued_at);
CREATE INDEX IF NOT EXISTS idx_sync_queue_task ON sync_queue(task_id);
`

// AllTableSchemas returns all table creation statements in order
func AllTableSchemas() []string {
	return []string{
		SchemaVersionTableSQL,
		StoreMetaTableSQL,
		TasksTableSQL,
		StatusHistoryTableSQL,
		BlockerHistoryTableSQL,
		SyncQueueTableSQL,
	}
}

// AllIndexes returns all index creation statements
func AllIndexes() []string {
	return []string{
		TasksIndexesSQL,
		HistoryIndexesSQL,
		SyncQueueIndexesSQL,
	}
}

// Pragmas returns the connection pragmas. They go into the DSN so every
// pooled connection gets them.
func Pragmas() []string {
	return []string{
		"foreign_keys(1)",
		"journal_mode(WAL)",   // Write-Ahead Logging for better concurrency
		"synchronous(NORMAL)", // Balance between safety and performance
		"busy_timeout(5000)",
	}
}
