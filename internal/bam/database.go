package bam

import "bam-go/internal/model"

// Database is the operation ledger. It records every mutating CLI operation
// and the snapshots they create, so history and available restore points
// survive across runs.
type Database interface {
	// CreateOperation records the start of an operation with status "running".
	CreateOperation(kind, unit string) (*model.Operation, error)

	// FinishOperation sets the final status and optional failure reason.
	FinishOperation(id int64, status, reason string) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(limit int) ([]*model.Operation, error)

	// RecordSnapshot records a snapshot created by an operation.
	RecordSnapshot(rec *model.SnapshotRecord) error

	// MarkSnapshotDiscarded marks a snapshot's bundle as deleted after the
	// owning operation fully committed.
	MarkSnapshotDiscarded(id string) error

	// ListSnapshots returns all snapshot records, oldest first.
	ListSnapshots() ([]*model.SnapshotRecord, error)

	// Close closes the database connection.
	Close() error
}
