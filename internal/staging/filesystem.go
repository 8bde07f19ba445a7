package staging

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bam-go/internal/bam"
)

// FilesystemTree is the real staging tree: a scratch directory holding one
// sub-stream directory per archive kind, shared by every source of the
// currently running merge.
//
// Directory structure:
//
//	<root>/
//	  General/     (general content, extracted in precedence order)
//	  Textures/    (texture content)
//	  Sounds/      (audio content moved out of General)
//	  parts/
//	    part1/     (materialized partition subsets)
type FilesystemTree struct {
	root  string
	codec bam.Codec
	parts int
}

var _ bam.StagingTree = (*FilesystemTree)(nil)

// NewFilesystemTree creates the staging directory structure under root.
func NewFilesystemTree(root string, codec bam.Codec) (*FilesystemTree, error) {
	for _, stream := range []bam.StreamKind{bam.StreamGeneral, bam.StreamTexture, bam.StreamAudio} {
		if err := os.MkdirAll(filepath.Join(root, stream.String()), 0755); err != nil {
			return nil, fmt.Errorf("failed to create staging directory: %w", err)
		}
	}
	return &FilesystemTree{root: root, codec: codec}, nil
}

// Apply extracts one source into the tree. Same-path files from earlier
// applications are overwritten, so callers must apply sources in ascending
// precedence order.
func (t *FilesystemTree) Apply(ctx context.Context, source bam.ContentSource) error {
	stream := bam.StreamGeneral
	if source.Texture {
		stream = bam.StreamTexture
	}
	return t.codec.Extract(ctx, source.Path, t.Root(stream))
}

// SeparateAudio moves files with a matching extension from the general
// stream into the audio stream, preserving relative paths.
func (t *FilesystemTree) SeparateAudio(exts []string) (int, error) {
	extSet := make(map[string]bool, len(exts))
	for _, e := range exts {
		extSet[strings.ToLower(e)] = true
	}

	generalRoot := t.Root(bam.StreamGeneral)
	audioRoot := t.Root(bam.StreamAudio)

	moved := 0
	err := filepath.WalkDir(generalRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !extSet[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		rel, err := filepath.Rel(generalRoot, p)
		if err != nil {
			return err
		}
		dest := filepath.Join(audioRoot, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		if err := os.Rename(p, dest); err != nil {
			return fmt.Errorf("moving %s: %w", rel, err)
		}
		moved++
		return nil
	})
	if err != nil {
		return moved, fmt.Errorf("separating audio: %w", err)
	}
	return moved, nil
}

// Files lists a stream's files in lexical relative-path order.
func (t *FilesystemTree) Files(stream bam.StreamKind) ([]bam.StagedFile, error) {
	root := t.Root(stream)

	var files []bam.StagedFile
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, bam.StagedFile{RelPath: filepath.ToSlash(rel), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s stream: %w", stream, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// Root returns a stream's directory.
func (t *FilesystemTree) Root(stream bam.StreamKind) string {
	return filepath.Join(t.root, stream.String())
}

// Materialize copies the given subset of a stream into a fresh partition
// directory, preserving relative paths.
func (t *FilesystemTree) Materialize(stream bam.StreamKind, files []bam.StagedFile) (string, error) {
	t.parts++
	dir := filepath.Join(t.root, "parts", fmt.Sprintf("part%d", t.parts))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating partition directory: %w", err)
	}

	root := t.Root(stream)
	for _, f := range files {
		src := filepath.Join(root, filepath.FromSlash(f.RelPath))
		dest := filepath.Join(dir, filepath.FromSlash(f.RelPath))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return "", err
		}
		if err := copyFile(src, dest); err != nil {
			return "", fmt.Errorf("materializing %s: %w", f.RelPath, err)
		}
	}
	return dir, nil
}

// Discard removes the entire staging tree. Safe to call more than once.
func (t *FilesystemTree) Discard() error {
	return os.RemoveAll(t.root)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
