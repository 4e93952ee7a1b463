package sqlite

import (
	"context"
	"fmt"

	"offlinetasks/backend"
)

// DatabaseInfo holds statistics about the database
type DatabaseInfo struct {
	Path          string `json:"path" yaml:"path"`
	SchemaVersion int    `json:"schema_version" yaml:"schema_version"`
	SizeBytes     int64  `json:"size_bytes" yaml:"size_bytes"`
	Tasks         int    `json:"tasks" yaml:"tasks"`
	Active        int    `json:"active" yaml:"active"`
	Deleted       int    `json:"deleted" yaml:"deleted"`
	Unsynced      int    `json:"unsynced" yaml:"unsynced"`
	Conflicts     int    `json:"conflicts" yaml:"conflicts"`
	// Diverged counts records resolved in favour of the remote whose local
	// content was kept as is and may differ from the server.
	Diverged      int    `json:"diverged" yaml:"diverged"`
	QueuePending  int    `json:"queue_pending" yaml:"queue_pending"`
	QueueDead     int    `json:"queue_dead" yaml:"queue_dead"`
}

// String returns a human-readable representation of database statistics
func (i DatabaseInfo) String() string {
	sizeMB := float64(i.SizeBytes) / (1024 * 1024)
	return fmt.Sprintf(
		"Tasks: %d (%d active, %d deleted) | Unsynced: %d | Conflicts: %d (%d diverged) | Queue: %d pending, %d dead | Size: %.2f MB",
		i.Tasks, i.Active, i.Deleted, i.Unsynced, i.Conflicts, i.Diverged, i.QueuePending, i.QueueDead, sizeMB,
	)
}

// Info returns record counts, the sync backlog and the estimated storage size.
func (s *Store) Info(ctx context.Context) (*DatabaseInfo, error) {
	info := &DatabaseInfo{
		Path:      s.db.Path(),
		SizeBytes: s.db.Size(),
	}

	version, err := s.db.GetSchemaVersion(ctx)
	if err != nil {
		return nil, backend.NewStoreError("Info", 0, err)
	}
	info.SchemaVersion = version

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(is_active), 0),
			COALESCE(SUM(CASE WHEN is_synced = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN conflict = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN conflict = ? THEN 1 ELSE 0 END), 0)
		FROM tasks
	`, string(backend.ConflictManual), string(backend.ConflictRemote)).Scan(&info.Tasks, &info.Active, &info.Unsynced, &info.Conflicts, &info.Diverged)
	if err != nil {
		return nil, backend.NewStoreError("Info", 0, fmt.Errorf("failed to count tasks: %w", err))
	}
	info.Deleted = info.Tasks - info.Active

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN state = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN state = ? THEN 1 ELSE 0 END), 0)
		FROM sync_queue
	`, string(backend.QueuePending), string(backend.QueueDead)).Scan(&info.QueuePending, &info.QueueDead)
	if err != nil {
		return nil, backend.NewStoreError("Info", 0, fmt.Errorf("failed to count sync operations: %w", err))
	}

	return info, nil
}
