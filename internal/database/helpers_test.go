package database

import (
	"time"

	"bam-go/internal/model"
)

func newSnapshotRecord(id, unit string, opID int64, sources int) *model.SnapshotRecord {
	return &model.SnapshotRecord{
		ID:          id,
		Unit:        unit,
		OperationID: opID,
		SourceCount: sources,
		CreatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}
