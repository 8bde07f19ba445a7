package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bam-go/internal/bam"
	"bam-go/internal/codec"
)

// WriteFiles writes a tree of files under root, creating parent directories
// as needed. Keys are slash-separated relative paths.
func WriteFiles(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, content, 0644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
}

// PackArchive builds an archive at dest in the test codec's format from the
// given file tree.
func PackArchive(t *testing.T, dest string, files map[string][]byte) {
	t.Helper()

	src := t.TempDir()
	WriteFiles(t, src, files)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		t.Fatalf("failed to create archive directory: %v", err)
	}
	if err := codec.NewTestCodec().Pack(context.Background(), src, dest, bam.FormatGeneral, bam.CompressionDefault); err != nil {
		t.Fatalf("failed to pack %s: %v", dest, err)
	}
}

// ExtractArchive unpacks a test-codec archive and returns its contents keyed
// by slash-separated relative path.
func ExtractArchive(t *testing.T, archivePath string) map[string][]byte {
	t.Helper()

	dest := t.TempDir()
	if err := codec.NewTestCodec().Extract(context.Background(), archivePath, dest); err != nil {
		t.Fatalf("failed to extract %s: %v", archivePath, err)
	}
	files := make(map[string][]byte)
	err := filepath.WalkDir(dest, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dest, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = content
		return nil
	})
	if err != nil {
		t.Fatalf("failed to read extracted files: %v", err)
	}
	return files
}
