package model

import "time"

// Operation is one recorded CLI operation in the ledger.
type Operation struct {
	ID         int64
	Kind       string // e.g. "MergeOptional", "MergeUnits", "Restore"
	Unit       string // output or restored unit name, if any
	Status     string // "running", "success", "error", "rolled-back"
	Reason     string // human-readable failure reason, if any
	StartedAt  time.Time
	FinishedAt *time.Time
}

// SnapshotRecord tracks a snapshot bundle in the ledger. The bundle itself
// lives in the snapshot store; this record exists so `bam snapshots` can list
// and prune without scanning the store directory.
type SnapshotRecord struct {
	ID          string // UUID, matches the store's snapshot ID
	Unit        string // unit name the snapshot was taken for
	OperationID int64  // ledger operation that created it
	SourceCount int
	CreatedAt   time.Time
	Discarded   bool // true once the operation committed and the bundle was deleted
}
