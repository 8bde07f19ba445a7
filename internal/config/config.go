package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for bam.
type Config struct {
	GameDir    string           `toml:"game_dir"`    // base installation root
	ModsDir    string           `toml:"mods_dir"`    // external unit tree root
	ProfileDir string           `toml:"profile_dir"` // holds modlist.txt and plugins.txt
	BaseDir    string           `toml:"base_dir"`    // bam's own state: snapshots, staging, database
	LogDir     string           `toml:"log_dir"`
	Codec      CodecConfig      `toml:"codec"`
	Merge      MergeConfig      `toml:"merge"`
	Snapshot   SnapshotConfig   `toml:"snapshot"`
	Database   DatabaseConfig   `toml:"database"`
	Staging    StagingConfig    `toml:"staging"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// CodecConfig selects and configures the external archive codec.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type CodecConfig struct {
	Type string `toml:"type"` // "archive2" (default) or "test"

	// Archive2-specific fields (only used when Type == "archive2")
	ToolPath              string `toml:"tool_path"`
	ExtractTimeoutSeconds int    `toml:"extract_timeout_seconds"` // default 300
	PackTimeoutSeconds    int    `toml:"pack_timeout_seconds"`    // default 600
}

// MergeConfig bounds merge operations.
type MergeConfig struct {
	// TextureCeiling is the per-archive texture size ceiling in bytes.
	// Defaults to 3 GiB when zero.
	TextureCeiling int64 `toml:"texture_ceiling"`

	// OutputName is the default output unit name for optional-content
	// merges.
	OutputName string `toml:"output_name"`
}

// SnapshotConfig configures the snapshot store.
type SnapshotConfig struct {
	Dir        string           `toml:"dir,omitempty"` // defaults to <base_dir>/snapshots
	Encryption EncryptionConfig `toml:"encryption"`
}

// EncryptionConfig selects snapshot-at-rest encryption.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type EncryptionConfig struct {
	Type string `toml:"type"` // "none" (default), "age" or "test"

	// Age-specific fields (only used when Type == "age")
	PublicKeyPath  string `toml:"public_key_path,omitempty"`
	PrivateKeyPath string `toml:"private_key_path,omitempty"`
}

// DatabaseConfig configures the operation ledger.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" (default) or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite; defaults to base_dir
}

// StagingConfig configures the staging tree used as the merge mechanism.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StagingConfig struct {
	Type       string `toml:"type"`                  // "filesystem" (default) or "memory"
	StagingDir string `toml:"staging_dir,omitempty"` // only used for type=filesystem; defaults to <base_dir>/staging
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	// Ignore patterns exclude archives from enumeration. Patterns without
	// a '/' match basenames, patterns with '/' match paths relative to the
	// scan root; doublestar globs are supported.
	Ignore []string `toml:"ignore"`
}

// NewConfig creates a Config with the provided roots and sensible defaults.
func NewConfig(gameDir, modsDir, profileDir, baseDir string) *Config {
	return &Config{
		GameDir:    gameDir,
		ModsDir:    modsDir,
		ProfileDir: profileDir,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		Codec: CodecConfig{
			Type:     "archive2",
			ToolPath: filepath.Join(gameDir, "Tools", "Archive2", "Archive2.exe"),
		},
		Merge: MergeConfig{
			OutputName: "CCMerged",
		},
		Snapshot: SnapshotConfig{
			Encryption: EncryptionConfig{Type: "none"},
		},
		Database: DatabaseConfig{Type: "sqlite"},
		Staging:  StagingConfig{Type: "filesystem"},
	}
}

// SnapshotDir returns the snapshot store directory, applying the default.
func (c *Config) SnapshotDir() string {
	if c.Snapshot.Dir != "" {
		return c.Snapshot.Dir
	}
	return filepath.Join(c.BaseDir, "snapshots")
}

// StagingDir returns the staging root, applying the default.
func (c *Config) StagingDir() string {
	if c.Staging.StagingDir != "" {
		return c.Staging.StagingDir
	}
	return filepath.Join(c.BaseDir, "staging")
}

// DatabaseDir returns the sqlite data directory, applying the default.
func (c *Config) DatabaseDir() string {
	if c.Database.DataDir != "" {
		return c.Database.DataDir
	}
	return c.BaseDir
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
