package bam

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"
)

// Phase is the position of a merge operation in its lifecycle. Transitions
// are strictly forward through Snapshotting, Extracting, Building and
// Finalizing to Done; any failure after the snapshot exists moves to Failed
// and, once the snapshot has been restored, to RolledBack.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSnapshotting
	PhaseExtracting
	PhaseBuilding
	PhaseFinalizing
	PhaseDone
	PhaseFailed
	PhaseRolledBack
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSnapshotting:
		return "snapshotting"
	case PhaseExtracting:
		return "extracting"
	case PhaseBuilding:
		return "building"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	case PhaseRolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

// Limits bounds a merge operation: the per-archive size ceiling for texture
// partitioning and the per-call timeouts for the external codec.
type Limits struct {
	TextureCeiling int64
	ExtractTimeout time.Duration
	PackTimeout    time.Duration
}

const (
	DefaultTextureCeiling = int64(3) << 30
	DefaultExtractTimeout = 300 * time.Second
	DefaultPackTimeout    = 600 * time.Second
)

// withDefaults fills zero fields with the default limits.
func (l Limits) withDefaults() Limits {
	if l.TextureCeiling <= 0 {
		l.TextureCeiling = DefaultTextureCeiling
	}
	if l.ExtractTimeout <= 0 {
		l.ExtractTimeout = DefaultExtractTimeout
	}
	if l.PackTimeout <= 0 {
		l.PackTimeout = DefaultPackTimeout
	}
	return l
}

// Service is the orchestration layer that coordinates across all components
// to perform the high-level archive operations needed by the CLI. Operations
// are strictly sequential; a Service must not be used from more than one
// goroutine at a time.
type Service struct {
	codec     Codec
	staging   StagingFactory
	snapshots SnapshotStore
	database  Database
	fsmgr     FilesystemManager
	registry  *Registry
	layout    Layout
	limits    Limits
	logger    Logger
	clock     Clock
	idgen     IDGenerator
}

// NewService creates a Service with the provided dependencies. Zero fields in
// limits take their defaults.
func NewService(codec Codec, staging StagingFactory, snapshots SnapshotStore, database Database, fsmgr FilesystemManager, registry *Registry, layout Layout, limits Limits, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		codec:     codec,
		staging:   staging,
		snapshots: snapshots,
		database:  database,
		fsmgr:     fsmgr,
		registry:  registry,
		layout:    layout,
		limits:    limits.withDefaults(),
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

// Validate checks the preconditions every destructive operation shares: the
// external codec must be invocable and the base installation tree must
// exist. Failures here are configuration errors; nothing has been touched.
func (s *Service) Validate() error {
	if err := s.codec.Validate(); err != nil {
		return err
	}
	if _, err := s.fsmgr.Stat(s.layout.DataDir); err != nil {
		return fmt.Errorf("%w: %s", ErrGameDirNotFound, s.layout.DataDir)
	}
	return nil
}

// LoadOrder resolves the active unit load order from the priority and
// enablement lists. Either file may be missing: a missing enablement list
// disables nothing, a missing priority list yields an empty order and the
// caller treats all discovered units as active.
func (s *Service) LoadOrder() ([]PriorityEntry, error) {
	priority, err := s.openOptional(s.layout.PriorityListPath)
	if err != nil {
		return nil, err
	}
	if priority == nil {
		s.logger.Warn("priority list missing, treating all units as active", "path", s.layout.PriorityListPath)
	} else {
		defer priority.Close()
	}

	enablement, err := s.openOptional(s.layout.EnablementListPath)
	if err != nil {
		return nil, err
	}
	if enablement != nil {
		defer enablement.Close()
	}

	var priorityR, enablementR io.Reader
	if priority != nil {
		priorityR = priority
	}
	if enablement != nil {
		enablementR = enablement
	}
	return ResolveLoadOrder(priorityR, enablementR)
}

// classificationSnapshot builds the categorizer's immutable input view from
// the current base tree contents and the optional-content descriptor.
func (s *Service) classificationSnapshot() (*ClassificationSnapshot, []ArchiveInfo, error) {
	baseArchives, err := s.fsmgr.FindArchives(s.layout.DataDir, false)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning base tree: %w", err)
	}
	names := make([]string, 0, len(baseArchives))
	for _, a := range baseArchives {
		names = append(names, a.Name)
	}

	var stems []string
	descriptor, err := s.openOptional(s.layout.ActiveContentPath)
	if err != nil {
		return nil, nil, err
	}
	if descriptor == nil {
		s.logger.Warn("optional-content descriptor missing", "path", s.layout.ActiveContentPath)
	} else {
		defer descriptor.Close()
		stems, err = ParseActiveContent(descriptor)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing optional-content descriptor: %w", err)
		}
	}

	return NewClassificationSnapshot(names, stems), baseArchives, nil
}

// openOptional opens a file that is allowed to be absent. A missing file
// yields (nil, nil).
func (s *Service) openOptional(path string) (io.ReadCloser, error) {
	f, err := s.fsmgr.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}
