package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"bam-go/internal/bam"
	"bam-go/internal/codec"
	"bam-go/internal/config"
	"bam-go/internal/database"
	"bam-go/internal/encryption"
	"bam-go/internal/fs"
	"bam-go/internal/model"
	"bam-go/internal/snapshot"
	"bam-go/internal/staging"
)

// App is the application layer between the CLI and the merge service. It
// constructs all dependencies from config, exposes the high-level operations
// and manages the database and log file lifecycle on Close.
type App struct {
	cfg      *config.Config
	db       bam.Database
	registry *bam.Registry
	service  *bam.Service
	logFile  *os.File
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "MergeOptional", "Restore") and
// tags every log line of the run. The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	opID := fmt.Sprintf("%s-%s", operation, time.Now().UTC().Format("20060102T150405Z"))
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	fsmgr := fs.NewOSFilesystemManager(cfg.Filesystem.Ignore)
	layout := bam.NewLayout(cfg.GameDir, cfg.ModsDir, cfg.ProfileDir)
	clock := bam.RealClock{}
	idgen := bam.UUIDGenerator{}

	cdc, err := codec.NewCodecFromConfig(cfg.Codec, log)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating codec: %w", err)
	}

	factory, err := staging.NewStagingFactoryFromConfig(cfg.Staging, cfg.StagingDir(), cdc, idgen)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating staging factory: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Snapshot.Encryption)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	snapshots := snapshot.NewStore(cfg.SnapshotDir(), enc, clock, log)

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.DatabaseDir(), clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	registry := bam.NewRegistry(fsmgr, layout, log)
	limits := bam.Limits{
		TextureCeiling: cfg.Merge.TextureCeiling,
		ExtractTimeout: time.Duration(cfg.Codec.ExtractTimeoutSeconds) * time.Second,
		PackTimeout:    time.Duration(cfg.Codec.PackTimeoutSeconds) * time.Second,
	}
	svc := bam.NewService(cdc, factory, snapshots, db, fsmgr, registry, layout, limits, log, clock, idgen)

	return &App{
		cfg:      cfg,
		db:       db,
		registry: registry,
		service:  svc,
		logFile:  logFile,
	}, nil
}

// Validate checks that the codec tool and the game installation are present.
func (a *App) Validate() error {
	return a.service.Validate()
}

// outputName falls back to the configured default when name is empty.
func (a *App) outputName(name string) string {
	if name != "" {
		return name
	}
	return a.cfg.Merge.OutputName
}

// MergeOptional consolidates all active optional-content archives into a
// single output unit. An empty name uses the configured default.
func (a *App) MergeOptional(ctx context.Context, name string) (*bam.MergeResult, error) {
	if err := a.service.Validate(); err != nil {
		return nil, err
	}
	return a.service.MergeOptionalContent(ctx, a.outputName(name))
}

// MergeUnits consolidates the archives of the named external units.
func (a *App) MergeUnits(ctx context.Context, units []string, name string) (*bam.MergeResult, error) {
	if err := a.service.Validate(); err != nil {
		return nil, err
	}
	return a.service.MergeUnits(ctx, units, a.outputName(name))
}

// Count tallies archives by stream kind against the engine limits.
func (a *App) Count() (*bam.Census, error) {
	return a.service.Count()
}

// List returns the per-unit archive inventory in precedence order.
func (a *App) List() ([]bam.UnitInventory, error) {
	return a.service.List()
}

// Status reports a single unit's archives, registration and snapshot state.
func (a *App) Status(unit string) (*bam.UnitStatus, error) {
	return a.service.Status(unit)
}

// Restore rolls a merge back from its snapshot.
func (a *App) Restore(snapshotID string) (*bam.RestoreResult, error) {
	return a.service.Restore(snapshotID)
}

// Snapshots lists the retained snapshots.
func (a *App) Snapshots() ([]*model.SnapshotRecord, error) {
	return a.service.Snapshots()
}

// PruneSnapshot deletes a snapshot bundle and marks its record discarded.
func (a *App) PruneSnapshot(snapshotID string) error {
	return a.service.PruneSnapshot(snapshotID)
}

// History returns the most recent operations, newest first.
func (a *App) History(limit int) ([]*model.Operation, error) {
	return a.service.History(limit)
}

// LoadOrder returns the resolved unit precedence list.
func (a *App) LoadOrder() ([]bam.PriorityEntry, error) {
	return a.service.LoadOrder()
}

// EnableOptional adds a plugin to the active content descriptor.
func (a *App) EnableOptional(plugin string) error {
	return a.registry.EnableOptional(plugin)
}

// DisableOptional removes a plugin from the active content descriptor.
func (a *App) DisableOptional(plugin string) error {
	return a.registry.DisableOptional(plugin)
}

// Close releases the database and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
