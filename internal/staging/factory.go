package staging

import (
	"fmt"
	"os"
	"path/filepath"

	"bam-go/internal/bam"
	"bam-go/internal/config"
)

// FilesystemFactory creates a fresh filesystem staging tree per merge under
// a common staging root.
type FilesystemFactory struct {
	stagingDir string
	codec      bam.Codec
	idgen      bam.IDGenerator
}

var _ bam.StagingFactory = (*FilesystemFactory)(nil)

// NewFilesystemFactory creates a factory rooted at stagingDir.
func NewFilesystemFactory(stagingDir string, codec bam.Codec, idgen bam.IDGenerator) *FilesystemFactory {
	return &FilesystemFactory{stagingDir: stagingDir, codec: codec, idgen: idgen}
}

// New creates a staging tree in a fresh per-operation directory.
func (f *FilesystemFactory) New() (bam.StagingTree, error) {
	if err := os.MkdirAll(f.stagingDir, 0755); err != nil {
		return nil, fmt.Errorf("creating staging root: %w", err)
	}
	return NewFilesystemTree(filepath.Join(f.stagingDir, f.idgen.New()), f.codec)
}

// MemoryFactory hands out a single pre-built MemoryTree, letting tests seed
// fixtures before the service runs.
type MemoryFactory struct {
	Tree *MemoryTree
}

var _ bam.StagingFactory = (*MemoryFactory)(nil)

// NewMemoryFactory creates a factory around a fresh MemoryTree.
func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{Tree: NewMemoryTree()}
}

func (f *MemoryFactory) New() (bam.StagingTree, error) {
	return f.Tree, nil
}

// NewStagingFactoryFromConfig creates a StagingFactory based on the config
// type. stagingDir is the already-resolved staging root.
func NewStagingFactoryFromConfig(cfg config.StagingConfig, stagingDir string, codec bam.Codec, idgen bam.IDGenerator) (bam.StagingFactory, error) {
	switch cfg.Type {
	case "filesystem", "":
		if stagingDir == "" {
			return nil, fmt.Errorf("filesystem staging requires a staging directory")
		}
		return NewFilesystemFactory(stagingDir, codec, idgen), nil
	case "memory":
		return NewMemoryFactory(), nil
	default:
		return nil, fmt.Errorf("unknown staging type: %s", cfg.Type)
	}
}
