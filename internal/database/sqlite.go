package database

import (
	"database/sql"
	"fmt"
	"time"

	"bam-go/internal/bam"
	"bam-go/internal/database/migrations"
	"bam-go/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the bam.Database operation ledger using SQLite.
type SQLiteDatabase struct {
	db    *sql.DB
	clock bam.Clock
}

var _ bam.Database = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase opens (or creates) the ledger at path and migrates it to
// the latest schema. path can be ":memory:" for tests.
func NewSQLiteDatabase(path string, clock bam.Clock) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &SQLiteDatabase{db: db, clock: clock}, nil
}

// OpenConnection opens and configures a SQLite connection. Exported for
// tools and tests that need a raw configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite ships with foreign keys off for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

// CreateOperation records the start of an operation with status "running".
func (s *SQLiteDatabase) CreateOperation(kind, unit string) (*model.Operation, error) {
	startedAt := s.clock.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO operations (kind, unit, status, started_at) VALUES (?, ?, 'running', ?)`,
		kind, unit, startedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return &model.Operation{
		ID:        id,
		Kind:      kind,
		Unit:      unit,
		Status:    "running",
		StartedAt: startedAt,
	}, nil
}

// FinishOperation sets the final status and optional failure reason.
func (s *SQLiteDatabase) FinishOperation(id int64, status, reason string) error {
	finishedAt := s.clock.Now().UTC()
	res, err := s.db.Exec(
		`UPDATE operations SET status = ?, reason = ?, finished_at = ? WHERE id = ?`,
		status, reason, finishedAt, id,
	)
	if err != nil {
		return fmt.Errorf("updating operation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("operation %d not found", id)
	}
	return nil
}

// ListOperations returns the most recent operations, newest first.
func (s *SQLiteDatabase) ListOperations(limit int) ([]*model.Operation, error) {
	rows, err := s.db.Query(
		`SELECT id, kind, unit, status, reason, started_at, finished_at
		 FROM operations ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying operations: %w", err)
	}
	defer rows.Close()

	var ops []*model.Operation
	for rows.Next() {
		var op model.Operation
		var finishedAt sql.NullTime
		if err := rows.Scan(&op.ID, &op.Kind, &op.Unit, &op.Status, &op.Reason, &op.StartedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			op.FinishedAt = &t
		}
		ops = append(ops, &op)
	}
	return ops, rows.Err()
}

// RecordSnapshot records a snapshot created by an operation.
func (s *SQLiteDatabase) RecordSnapshot(rec *model.SnapshotRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO snapshots (id, unit, operation_id, source_count, created_at, discarded)
		 VALUES (?, ?, ?, ?, ?, 0)`,
		rec.ID, rec.Unit, rec.OperationID, rec.SourceCount, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting snapshot record: %w", err)
	}
	return nil
}

// MarkSnapshotDiscarded marks a snapshot's bundle as deleted.
func (s *SQLiteDatabase) MarkSnapshotDiscarded(id string) error {
	res, err := s.db.Exec(`UPDATE snapshots SET discarded = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("updating snapshot record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("snapshot %s not found", id)
	}
	return nil
}

// ListSnapshots returns all snapshot records, oldest first.
func (s *SQLiteDatabase) ListSnapshots() ([]*model.SnapshotRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, unit, operation_id, source_count, created_at, discarded
		 FROM snapshots ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var recs []*model.SnapshotRecord
	for rows.Next() {
		var rec model.SnapshotRecord
		var discarded int
		var createdAt time.Time
		if err := rows.Scan(&rec.ID, &rec.Unit, &rec.OperationID, &rec.SourceCount, &createdAt, &discarded); err != nil {
			return nil, fmt.Errorf("scanning snapshot record: %w", err)
		}
		rec.CreatedAt = createdAt
		rec.Discarded = discarded != 0
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}
