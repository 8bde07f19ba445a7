package database

import (
	"testing"
	"time"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()
	db, err := NewSQLiteDatabase(":memory:", fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteDatabase_OperationLifecycle(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	op, err := db.CreateOperation("merge", "CCMerged")
	if err != nil {
		t.Fatalf("CreateOperation() error = %v", err)
	}
	if op.Status != "running" {
		t.Errorf("new operation status = %q, want running", op.Status)
	}
	if op.ID == 0 {
		t.Error("new operation has no id")
	}

	if err := db.FinishOperation(op.ID, "success", ""); err != nil {
		t.Fatalf("FinishOperation() error = %v", err)
	}

	ops, err := db.ListOperations(10)
	if err != nil {
		t.Fatalf("ListOperations() error = %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("got %d operations, want 1", len(ops))
	}
	if ops[0].Status != "success" {
		t.Errorf("status = %q, want success", ops[0].Status)
	}
	if ops[0].FinishedAt == nil {
		t.Error("finished operation has no finish time")
	}
}

func TestSQLiteDatabase_FailedOperationKeepsReason(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	op, err := db.CreateOperation("merge", "Broken")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.FinishOperation(op.ID, "failed", "extract timed out"); err != nil {
		t.Fatal(err)
	}

	ops, err := db.ListOperations(1)
	if err != nil {
		t.Fatal(err)
	}
	if ops[0].Reason != "extract timed out" {
		t.Errorf("reason = %q, want the failure reason", ops[0].Reason)
	}
}

func TestSQLiteDatabase_ListOperationsNewestFirst(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	for _, unit := range []string{"A", "B", "C"} {
		if _, err := db.CreateOperation("merge", unit); err != nil {
			t.Fatal(err)
		}
	}

	ops, err := db.ListOperations(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 2 {
		t.Fatalf("got %d operations, want limit of 2", len(ops))
	}
	if ops[0].Unit != "C" || ops[1].Unit != "B" {
		t.Errorf("order = [%s %s], want newest first", ops[0].Unit, ops[1].Unit)
	}
}

func TestSQLiteDatabase_FinishUnknownOperation(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	if err := db.FinishOperation(42, "success", ""); err == nil {
		t.Error("FinishOperation() on unknown id should return error")
	}
}

func TestSQLiteDatabase_SnapshotRecords(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	op, err := db.CreateOperation("merge", "CCMerged")
	if err != nil {
		t.Fatal(err)
	}

	rec := newSnapshotRecord("snap-1", "CCMerged", op.ID, 12)
	if err := db.RecordSnapshot(rec); err != nil {
		t.Fatalf("RecordSnapshot() error = %v", err)
	}

	recs, err := db.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Discarded {
		t.Error("new snapshot record should not be discarded")
	}
	if recs[0].SourceCount != 12 {
		t.Errorf("source count = %d, want 12", recs[0].SourceCount)
	}

	if err := db.MarkSnapshotDiscarded("snap-1"); err != nil {
		t.Fatalf("MarkSnapshotDiscarded() error = %v", err)
	}
	recs, err = db.ListSnapshots()
	if err != nil {
		t.Fatal(err)
	}
	if !recs[0].Discarded {
		t.Error("snapshot record should be discarded")
	}

	if err := db.MarkSnapshotDiscarded("nope"); err == nil {
		t.Error("MarkSnapshotDiscarded() on unknown id should return error")
	}
}
