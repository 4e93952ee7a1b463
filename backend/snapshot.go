package backend

import "time"

// SnapshotVersion is bumped when the export format changes.
const SnapshotVersion = 1

// Snapshot is a plain export of the store without sync metadata.
type Snapshot struct {
	Version    int       `json:"version" yaml:"version"`
	ExportedAt time.Time `json:"exported_at" yaml:"exported_at"`
	Tasks      []Task    `json:"tasks" yaml:"tasks"`
}
