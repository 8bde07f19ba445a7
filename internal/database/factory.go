package database

import (
	"fmt"
	"os"
	"path/filepath"

	"bam-go/internal/bam"
	"bam-go/internal/config"
)

// NewDatabaseFromConfig creates a Database implementation based on the
// database config type. dataDir is the already-resolved sqlite directory.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, dataDir string, clock bam.Clock) (bam.Database, error) {
	switch cfg.Type {
	case "sqlite", "":
		if dataDir == "" {
			return nil, fmt.Errorf("data directory required for sqlite database")
		}
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(dataDir, "bam.db"), clock)
	case "memory":
		return NewSQLiteDatabase(":memory:", clock)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
