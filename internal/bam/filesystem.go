package bam

import (
	"io"
	"io/fs"
)

// FilesystemManager abstracts the filesystem operations the engine performs
// outside the staging tree, so the service layer can be tested without
// touching the real filesystem.
type FilesystemManager interface {
	// Open opens a file for reading. Returns an error satisfying
	// fs.ErrNotExist when the file is missing.
	Open(path string) (io.ReadCloser, error)

	// WriteFile writes data to path, creating or truncating it.
	WriteFile(path string, data []byte, perm fs.FileMode) error

	// Stat returns file info for a path.
	Stat(path string) (fs.FileInfo, error)

	// MkdirAll creates a directory and any missing parents.
	MkdirAll(path string, perm fs.FileMode) error

	// Remove deletes a single file.
	Remove(path string) error

	// RemoveAll deletes a directory tree.
	RemoveAll(path string) error

	// CopyFile copies a single file, creating parent directories as needed.
	CopyFile(src, dst string) error

	// ReadDirNames lists a directory's entry names in lexical order.
	ReadDirNames(path string) ([]string, error)

	// FindArchives enumerates archive files under root. When recursive is
	// true the scan descends into subdirectories and each result's Unit is
	// the first path element below root. Ignored patterns are applied.
	FindArchives(root string, recursive bool) ([]ArchiveInfo, error)
}
