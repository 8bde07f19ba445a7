package bam

import "time"

// SnapshotEntry records one archived source file within a snapshot.
type SnapshotEntry struct {
	Path     string // original absolute path
	Size     int64
	Checksum string // blake3 hex digest of the file contents
}

// Snapshot is a timestamped, immutable copy of every content source consumed
// by a merge operation, stored outside the working tree. It is created before
// extraction begins and deleted only after the operation's success is fully
// verified; otherwise it is retained for restoration.
type Snapshot struct {
	ID        string
	CreatedAt time.Time
	Entries   []SnapshotEntry
}

// SnapshotStore persists and restores snapshots.
type SnapshotStore interface {
	// Create snapshots the given source files under the given ID.
	Create(id string, sources []string) (*Snapshot, error)

	// Restore writes every file in the snapshot back to its original
	// absolute path and verifies each restored file's checksum against the
	// manifest. Returns the restored paths.
	Restore(id string) ([]string, error)

	// Get loads a snapshot's manifest without restoring it.
	Get(id string) (*Snapshot, error)

	// Delete removes a snapshot and its manifest.
	Delete(id string) error

	// List returns all stored snapshots, oldest first.
	List() ([]*Snapshot, error)
}
