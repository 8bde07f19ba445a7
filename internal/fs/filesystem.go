package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bam-go/internal/bam"
)

// OSFilesystemManager is the real filesystem implementation of
// bam.FilesystemManager. It performs actual filesystem operations using the
// os package, filtered by the configured ignore patterns.
type OSFilesystemManager struct {
	ignore *IgnoreMatcher
}

// NewOSFilesystemManager creates a filesystem manager that operates on the
// real filesystem. Files matching an ignore pattern are invisible to archive
// enumeration.
func NewOSFilesystemManager(ignorePatterns []string) *OSFilesystemManager {
	return &OSFilesystemManager{ignore: NewIgnoreMatcher(ignorePatterns)}
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// WriteFile writes data to path, creating parent directories as needed.
func (m *OSFilesystemManager) WriteFile(path string, data []byte, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	return os.WriteFile(path, data, perm)
}

// Stat returns fresh file info for a path.
func (m *OSFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// MkdirAll creates a directory and any missing parents.
func (m *OSFilesystemManager) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Remove deletes a single file.
func (m *OSFilesystemManager) Remove(path string) error {
	return os.Remove(path)
}

// RemoveAll deletes a directory tree.
func (m *OSFilesystemManager) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// CopyFile copies a single regular file, creating parent directories as
// needed. The copy is written to a temporary name and renamed into place so
// a partial copy is never observable under the destination name.
func (m *OSFilesystemManager) CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".bam-copy-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("copying data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	return os.Rename(tmp.Name(), dst)
}

// ReadDirNames lists a directory's entry names in lexical order.
func (m *OSFilesystemManager) ReadDirNames(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// FindArchives enumerates archive files under root. A flat scan reads only
// root itself; a recursive scan descends the whole tree and records each
// archive's owning unit as the first path element below root. Results are in
// lexical path order.
func (m *OSFilesystemManager) FindArchives(root string, recursive bool) ([]bam.ArchiveInfo, error) {
	var archives []bam.ArchiveInfo

	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() || !isArchiveName(entry.Name()) {
				continue
			}
			if m.ignore.Match(entry.Name()) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
			}
			archives = append(archives, bam.ArchiveInfo{
				Path: filepath.Join(root, entry.Name()),
				Name: entry.Name(),
				Size: info.Size(),
			})
		}
		return archives, nil
	}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() || !isArchiveName(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if m.ignore.Match(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		archives = append(archives, bam.ArchiveInfo{
			Path: p,
			Name: d.Name(),
			Unit: unitOf(rel),
			Size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return archives, nil
}

// isArchiveName reports whether a file name carries the archive extension.
func isArchiveName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".ba2")
}

// unitOf returns the first path element of a relative path, or "" when the
// path has no directory component.
func unitOf(rel string) string {
	rel = filepath.ToSlash(rel)
	if i := strings.Index(rel, "/"); i >= 0 {
		return rel[:i]
	}
	return ""
}

var _ bam.FilesystemManager = (*OSFilesystemManager)(nil)
