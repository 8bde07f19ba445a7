package testutil

import (
	"testing"

	"bam-go/internal/bam"
	"bam-go/internal/database"
)

// NewTestDatabase creates an in-memory SQLite operation ledger with the
// schema applied. It is closed automatically when the test completes.
func NewTestDatabase(t *testing.T) bam.Database {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:", FixedClock())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}
