package bam

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"bam-go/internal/model"
)

// RestoreResult summarizes a completed restore operation.
type RestoreResult struct {
	SnapshotID string
	Unit       string
	Restored   []string // restored original paths
}

// Restore reverses a committed merge: the merged unit's outputs are removed,
// its load-order registration is withdrawn and every snapshotted original is
// written back and checksum-verified. The snapshot bundle is retained;
// PruneSnapshot discards it explicitly.
func (s *Service) Restore(snapshotID string) (*RestoreResult, error) {
	rec, err := s.snapshotRecord(snapshotID)
	if err != nil {
		return nil, err
	}
	if rec.Discarded {
		return nil, fmt.Errorf("snapshot %s has been pruned", snapshotID)
	}

	op, err := s.database.CreateOperation("restore", rec.Unit)
	if err != nil {
		return nil, fmt.Errorf("recording operation: %w", err)
	}

	result, err := s.runRestore(snapshotID, rec.Unit)
	if err != nil {
		if ferr := s.database.FinishOperation(op.ID, "failed", err.Error()); ferr != nil {
			s.logger.Error("recording operation failure", "error", ferr)
		}
		return nil, err
	}
	if err := s.database.FinishOperation(op.ID, "success", ""); err != nil {
		s.logger.Error("recording operation success", "error", err)
	}
	return result, nil
}

func (s *Service) runRestore(snapshotID, unit string) (*RestoreResult, error) {
	unitDir := s.layout.UnitDir(unit)

	// Withdraw registration before removing outputs so the stub plugin
	// names can still be read from the unit directory.
	stubs, err := s.unitStubs(unitDir)
	if err != nil {
		return nil, err
	}
	if len(stubs) == 0 {
		stubs = []string{unit + ".esl"}
	}
	for _, stub := range stubs {
		if err := s.registry.UnregisterUnit(unit, stub); err != nil {
			return nil, err
		}
	}

	if err := s.fsmgr.RemoveAll(unitDir); err != nil {
		return nil, fmt.Errorf("removing merged unit %s: %w", unit, err)
	}

	restored, err := s.snapshots.Restore(snapshotID)
	if err != nil {
		return nil, fmt.Errorf("restoring snapshot %s: %w", snapshotID, err)
	}

	s.logger.Info("restore complete", "snapshot", snapshotID, "unit", unit, "restored", len(restored))
	return &RestoreResult{SnapshotID: snapshotID, Unit: unit, Restored: restored}, nil
}

// PruneSnapshot discards a snapshot bundle that is no longer needed as a
// restore point. Never called automatically.
func (s *Service) PruneSnapshot(snapshotID string) error {
	rec, err := s.snapshotRecord(snapshotID)
	if err != nil {
		return err
	}
	if rec.Discarded {
		return nil
	}
	if err := s.snapshots.Delete(snapshotID); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", snapshotID, err)
	}
	if err := s.database.MarkSnapshotDiscarded(snapshotID); err != nil {
		return fmt.Errorf("marking snapshot discarded: %w", err)
	}
	s.logger.Info("snapshot pruned", "id", snapshotID)
	return nil
}

// Snapshots lists the retained snapshot records, oldest first.
func (s *Service) Snapshots() ([]*model.SnapshotRecord, error) {
	records, err := s.database.ListSnapshots()
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	var kept []*model.SnapshotRecord
	for _, rec := range records {
		if !rec.Discarded {
			kept = append(kept, rec)
		}
	}
	return kept, nil
}

// History returns the most recent recorded operations, newest first.
func (s *Service) History(limit int) ([]*model.Operation, error) {
	ops, err := s.database.ListOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

func (s *Service) snapshotRecord(snapshotID string) (*model.SnapshotRecord, error) {
	records, err := s.database.ListSnapshots()
	if err != nil {
		return nil, fmt.Errorf("listing snapshot records: %w", err)
	}
	for _, rec := range records {
		if rec.ID == snapshotID {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("snapshot not found: %s", snapshotID)
}

// unitStubs lists the loader stub file names in a unit directory. A missing
// directory yields no stubs.
func (s *Service) unitStubs(unitDir string) ([]string, error) {
	names, err := s.fsmgr.ReadDirNames(unitDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing unit directory: %w", err)
	}
	var stubs []string
	for _, name := range names {
		if strings.EqualFold(filepath.Ext(name), ".esl") {
			stubs = append(stubs, name)
		}
	}
	return stubs, nil
}
