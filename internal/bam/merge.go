package bam

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"bam-go/internal/model"
)

// MergeResult summarizes a completed merge operation.
type MergeResult struct {
	Unit        string   // output unit name
	Archives    []string // created archive paths, in creation order
	Stubs       []string // created loader stub paths
	SnapshotID  string
	SourceCount int
	AudioFiles  int // files separated into the audio archive
}

// MergeOptionalContent merges every active optional-content archive in the
// base installation tree into a single output unit. Sources are ordered
// alphabetically, which is the order the runtime loads them in; the
// alphabetically last archive has the highest precedence.
func (s *Service) MergeOptionalContent(ctx context.Context, outputName string) (*MergeResult, error) {
	snap, baseArchives, err := s.classificationSnapshot()
	if err != nil {
		return nil, err
	}

	var sources []ContentSource
	for _, a := range baseArchives {
		c := snap.ClassifyBase(a.Name)
		if c.Category != CategoryOptional {
			continue
		}
		sources = append(sources, ContentSource{
			Path:     a.Path,
			Unit:     PluginStem(a.Name),
			Category: c.Category,
			Texture:  c.Texture,
			Size:     a.Size,
		})
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no active optional-content archives in %s", ErrNoSources, s.layout.DataDir)
	}

	sort.Slice(sources, func(i, j int) bool {
		return strings.ToLower(filepath.Base(sources[i].Path)) < strings.ToLower(filepath.Base(sources[j].Path))
	})
	for i := range sources {
		sources[i].Rank = len(sources) - 1 - i
	}

	s.logger.Info("merging optional content", "sources", len(sources), "output", outputName)
	return s.merge(ctx, sources, outputName)
}

// MergeUnits merges the archives of the named units from the external unit
// tree into a single output unit. Units are ordered by the resolved load
// order; a unit absent from the load order sorts below every listed unit.
func (s *Service) MergeUnits(ctx context.Context, units []string, outputName string) (*MergeResult, error) {
	order, err := s.LoadOrder()
	if err != nil {
		return nil, err
	}
	rank := make(map[string]int, len(order))
	for _, e := range order {
		rank[strings.ToLower(e.Name)] = e.Rank
	}
	// Units missing from the load order rank below every listed unit.
	unlisted := len(order)

	snap, _, err := s.classificationSnapshot()
	if err != nil {
		return nil, err
	}

	var sources []ContentSource
	for _, unit := range units {
		archives, err := s.fsmgr.FindArchives(s.layout.UnitDir(unit), false)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("unit not found: %s", unit)
		}
		if err != nil {
			return nil, fmt.Errorf("scanning unit %s: %w", unit, err)
		}

		unitRank, ok := rank[strings.ToLower(unit)]
		if !ok {
			unitRank = unlisted
			unlisted++
		}
		for _, a := range archives {
			c := snap.ClassifyExternal(a.Name)
			sources = append(sources, ContentSource{
				Path:     a.Path,
				Unit:     unit,
				Category: c.Category,
				Texture:  c.Texture,
				Size:     a.Size,
				Rank:     unitRank,
			})
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no archives in selected units", ErrNoSources)
	}

	s.logger.Info("merging units", "units", len(units), "sources", len(sources), "output", outputName)
	return s.merge(ctx, sources, outputName)
}

// merge runs the full consolidation pipeline over an already classified and
// ranked source set. Sources are extracted in ascending precedence order so
// the highest-precedence source is written last and wins all path conflicts.
// Original archives are deleted only as the final step of a fully verified
// merge; any failure after the snapshot exists triggers a verified rollback.
func (s *Service) merge(ctx context.Context, sources []ContentSource, outputName string) (*MergeResult, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	op, err := s.database.CreateOperation("merge", outputName)
	if err != nil {
		return nil, fmt.Errorf("recording operation: %w", err)
	}

	result, err := s.runMerge(ctx, op.ID, sources, outputName)
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

func (s *Service) runMerge(ctx context.Context, opID int64, sources []ContentSource, outputName string) (*MergeResult, error) {
	// Ascending precedence: highest rank (lowest precedence) first, so the
	// rank-0 source's files land last.
	ordered := append([]ContentSource(nil), sources...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Rank > ordered[j].Rank
	})

	// Snapshotting. Nothing destructive has happened yet; a failure here
	// simply aborts.
	snapID := s.idgen.New()
	paths := make([]string, len(ordered))
	for i, src := range ordered {
		paths[i] = src.Path
	}
	snap, err := s.snapshots.Create(snapID, paths)
	if err != nil {
		return nil, fmt.Errorf("snapshotting sources: %w", err)
	}
	rec := &model.SnapshotRecord{
		ID:          snapID,
		Unit:        outputName,
		OperationID: opID,
		SourceCount: len(snap.Entries),
		CreatedAt:   snap.CreatedAt,
	}
	if err := s.database.RecordSnapshot(rec); err != nil {
		return nil, fmt.Errorf("recording snapshot: %w", err)
	}
	s.logger.Info("snapshot created", "id", snapID, "sources", len(snap.Entries))

	unitDir := s.layout.UnitDir(outputName)
	if _, err := s.fsmgr.Stat(unitDir); err == nil {
		s.logger.Warn("output unit already exists, replacing it", "unit", outputName)
		if err := s.fsmgr.RemoveAll(unitDir); err != nil {
			return nil, s.rollback(snapID, unitDir, nil, fmt.Errorf("removing existing unit: %w", err))
		}
	}
	if err := s.fsmgr.MkdirAll(unitDir, 0755); err != nil {
		return nil, s.rollback(snapID, unitDir, nil, fmt.Errorf("creating unit directory: %w", err))
	}

	tree, err := s.staging.New()
	if err != nil {
		return nil, s.rollback(snapID, unitDir, nil, fmt.Errorf("creating staging tree: %w", err))
	}
	defer tree.Discard()

	// Extracting.
	for i, src := range ordered {
		s.logger.Info("extracting source", "index", i+1, "total", len(ordered), "archive", filepath.Base(src.Path))
		extractCtx, cancel := context.WithTimeout(ctx, s.limits.ExtractTimeout)
		err := tree.Apply(extractCtx, src)
		cancel()
		if err != nil {
			return nil, s.rollback(snapID, unitDir, tree, fmt.Errorf("extracting %s: %w", filepath.Base(src.Path), err))
		}
	}

	audioFiles, err := tree.SeparateAudio(AudioExtensions)
	if err != nil {
		return nil, s.rollback(snapID, unitDir, tree, fmt.Errorf("separating audio: %w", err))
	}
	if audioFiles > 0 {
		s.logger.Info("audio content separated", "files", audioFiles)
	}

	// Building.
	var archives, stubs []string

	general, err := tree.Files(StreamGeneral)
	if err != nil {
		return nil, s.rollback(snapID, unitDir, tree, err)
	}
	if len(general) > 0 {
		dest := filepath.Join(unitDir, outputName+" - Main.ba2")
		if err := s.packVerified(ctx, tree.Root(StreamGeneral), dest, FormatGeneral, CompressionDefault); err != nil {
			return nil, s.rollback(snapID, unitDir, tree, err)
		}
		archives = append(archives, dest)
	}

	if audioFiles > 0 {
		// Audio streams must stay uncompressed.
		dest := filepath.Join(unitDir, outputName+" - Sounds.ba2")
		if err := s.packVerified(ctx, tree.Root(StreamAudio), dest, FormatGeneral, CompressionNone); err != nil {
			return nil, s.rollback(snapID, unitDir, tree, err)
		}
		archives = append(archives, dest)
	}

	textures, err := tree.Files(StreamTexture)
	if err != nil {
		return nil, s.rollback(snapID, unitDir, tree, err)
	}
	partitions := PartitionBySize(textures, s.limits.TextureCeiling)
	if len(partitions) > 1 {
		s.logger.Info("splitting textures", "partitions", len(partitions), "ceiling", s.limits.TextureCeiling)
	}
	for idx, part := range partitions {
		name := PartitionName(outputName, idx)
		srcDir, err := tree.Materialize(StreamTexture, part.Files)
		if err != nil {
			return nil, s.rollback(snapID, unitDir, tree, fmt.Errorf("materializing texture partition %d: %w", idx+1, err))
		}
		dest := filepath.Join(unitDir, name+" - Textures.ba2")
		if err := s.packVerified(ctx, srcDir, dest, FormatDDS, CompressionDefault); err != nil {
			return nil, s.rollback(snapID, unitDir, tree, err)
		}
		archives = append(archives, dest)
	}

	if len(archives) == 0 {
		return nil, s.rollback(snapID, unitDir, tree, fmt.Errorf("merge produced no archives"))
	}

	// Finalizing: loader stubs, registration, then source deletion last.
	stubNames := []string{outputName + ".esl"}
	for idx := 1; idx < len(partitions); idx++ {
		stubNames = append(stubNames, PartitionName(outputName, idx)+".esl")
	}
	if audioFiles > 0 {
		stubNames = append(stubNames, outputName+"_Sounds.esl")
	}
	for _, name := range stubNames {
		path := filepath.Join(unitDir, name)
		if err := s.fsmgr.WriteFile(path, LoaderStub(), 0644); err != nil {
			return nil, s.rollback(snapID, unitDir, tree, fmt.Errorf("writing loader stub %s: %w", name, err))
		}
		stubs = append(stubs, path)
	}

	for _, name := range stubNames {
		if err := s.registry.RegisterUnit(outputName, name); err != nil {
			return nil, s.rollback(snapID, unitDir, tree, err)
		}
	}

	for _, src := range ordered {
		if err := s.fsmgr.Remove(src.Path); err != nil {
			return nil, s.rollback(snapID, unitDir, tree, fmt.Errorf("removing original %s: %w", filepath.Base(src.Path), err))
		}
	}
	s.logger.Info("originals removed", "count", len(ordered))

	if err := tree.Discard(); err != nil {
		s.logger.Warn("discarding staging tree", "error", err)
	}

	s.logger.Info("merge complete", "unit", outputName, "archives", len(archives), "reduction", fmt.Sprintf("%d -> %d", len(ordered), len(archives)))
	return &MergeResult{
		Unit:        outputName,
		Archives:    archives,
		Stubs:       stubs,
		SnapshotID:  snapID,
		SourceCount: len(ordered),
		AudioFiles:  audioFiles,
	}, nil
}

// packVerified runs one codec pack call under the pack timeout and verifies
// the reported success: the output must exist and be non-empty.
func (s *Service) packVerified(ctx context.Context, srcDir, destPath string, format Format, compression Compression) error {
	s.logger.Info("packing archive", "dest", filepath.Base(destPath), "format", string(format))

	packCtx, cancel := context.WithTimeout(ctx, s.limits.PackTimeout)
	err := s.codec.Pack(packCtx, srcDir, destPath, format, compression)
	cancel()
	if err != nil {
		return fmt.Errorf("packing %s: %w", filepath.Base(destPath), err)
	}

	info, err := s.fsmgr.Stat(destPath)
	if err != nil {
		return fmt.Errorf("verifying %s: output missing after pack: %w", filepath.Base(destPath), err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("verifying %s: output is empty", filepath.Base(destPath))
	}
	return nil
}

// rollback restores the pre-merge state after a failure: staging and partial
// outputs are discarded, then every snapshotted source is written back and
// checksum-verified. The returned error wraps cause; a rollback failure is
// reported alongside it because originals may need manual restoration.
func (s *Service) rollback(snapID, unitDir string, tree StagingTree, cause error) error {
	s.logger.Error("merge failed, rolling back", "snapshot", snapID, "error", cause)

	if tree != nil {
		if err := tree.Discard(); err != nil {
			s.logger.Warn("discarding staging tree", "error", err)
		}
	}
	if err := s.fsmgr.RemoveAll(unitDir); err != nil {
		s.logger.Warn("removing partial outputs", "error", err)
	}

	restored, err := s.snapshots.Restore(snapID)
	if err != nil {
		return fmt.Errorf("%w; rollback failed, restore snapshot %s manually: %v", cause, snapID, err)
	}
	s.logger.Info("rollback complete", "restored", len(restored))
	return fmt.Errorf("%w (rolled back, %d files restored)", cause, len(restored))
}
