package backend

import (
	"time"

	"github.com/google/uuid"
)

// ConflictResolution marks how a sync conflict on a record was (or must be) settled.
type ConflictResolution string

const (
	ConflictNone   ConflictResolution = ""
	ConflictLocal  ConflictResolution = "local"
	ConflictRemote ConflictResolution = "remote"
	ConflictManual ConflictResolution = "manual"
)

// Valid reports whether c is a known marker.
func (c ConflictResolution) Valid() bool {
	switch c {
	case ConflictNone, ConflictLocal, ConflictRemote, ConflictManual:
		return true
	}
	return false
}

// SyncMetadata is the per-record sync bookkeeping stamped on every write.
type SyncMetadata struct {
	ID           string             `json:"id"`
	LastModified time.Time          `json:"last_modified"`
	IsSynced     bool               `json:"is_synced"`
	Version      int64              `json:"sync_version"`
	Conflict     ConflictResolution `json:"conflict,omitempty"`
}

// NewSyncMetadata returns metadata for a freshly created record.
func NewSyncMetadata(now time.Time, online bool) SyncMetadata {
	return SyncMetadata{
		ID:           uuid.NewString(),
		LastModified: now,
		IsSynced:     online,
		Version:      1,
	}
}

// Stamp records a local mutation: the version moves up by exactly one and
// LastModified never goes backwards, even if the wall clock does.
func (m *SyncMetadata) Stamp(now time.Time, online bool) {
	if now.Before(m.LastModified) {
		now = m.LastModified
	}
	m.LastModified = now
	m.Version++
	m.IsSynced = online
}

// Acknowledge flips IsSynced for a remote acknowledgement of version.
// A stale acknowledgement (for an older version) is ignored.
func (m *SyncMetadata) Acknowledge(version int64) bool {
	if version != m.Version {
		return false
	}
	m.IsSynced = true
	return true
}
