package staging

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"bam-go/internal/bam"
)

// MemoryTree is an in-memory implementation of the StagingTree interface for
// testing the merge pipeline without a filesystem or a real codec. Archive
// contents are supplied up front as fixtures keyed by source path.
type MemoryTree struct {
	fixtures     map[string]map[string][]byte // source path -> relpath -> content
	streams      map[bam.StreamKind]map[string][]byte
	materialized map[string][]bam.StagedFile
	discarded    bool
	parts        int
}

var _ bam.StagingTree = (*MemoryTree)(nil)

// NewMemoryTree creates an empty in-memory staging tree.
func NewMemoryTree() *MemoryTree {
	return &MemoryTree{
		fixtures: map[string]map[string][]byte{},
		streams: map[bam.StreamKind]map[string][]byte{
			bam.StreamGeneral: {},
			bam.StreamTexture: {},
			bam.StreamAudio:   {},
		},
		materialized: map[string][]bam.StagedFile{},
	}
}

// AddFixture registers the files a source archive "contains". Apply on that
// source path replays them into the tree.
func (t *MemoryTree) AddFixture(sourcePath string, files map[string][]byte) {
	copied := make(map[string][]byte, len(files))
	for k, v := range files {
		copied[k] = append([]byte(nil), v...)
	}
	t.fixtures[sourcePath] = copied
}

// Apply writes the source's fixture files into the tree, overwriting
// same-path entries from earlier applications.
func (t *MemoryTree) Apply(ctx context.Context, source bam.ContentSource) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	files, ok := t.fixtures[source.Path]
	if !ok {
		return fmt.Errorf("no fixture for source %s", source.Path)
	}

	stream := bam.StreamGeneral
	if source.Texture {
		stream = bam.StreamTexture
	}
	for rel, content := range files {
		t.streams[stream][rel] = append([]byte(nil), content...)
	}
	return nil
}

// SeparateAudio moves matching files from the general stream to the audio
// stream.
func (t *MemoryTree) SeparateAudio(exts []string) (int, error) {
	extSet := make(map[string]bool, len(exts))
	for _, e := range exts {
		extSet[strings.ToLower(e)] = true
	}

	moved := 0
	for rel, content := range t.streams[bam.StreamGeneral] {
		if !extSet[strings.ToLower(path.Ext(rel))] {
			continue
		}
		t.streams[bam.StreamAudio][rel] = content
		delete(t.streams[bam.StreamGeneral], rel)
		moved++
	}
	return moved, nil
}

// Files lists a stream's files in lexical order.
func (t *MemoryTree) Files(stream bam.StreamKind) ([]bam.StagedFile, error) {
	var files []bam.StagedFile
	for rel, content := range t.streams[stream] {
		files = append(files, bam.StagedFile{RelPath: rel, Size: int64(len(content))})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// Root returns a synthetic stream root recognizable in recorded codec calls.
func (t *MemoryTree) Root(stream bam.StreamKind) string {
	return "mem://" + stream.String()
}

// Materialize records the partition subset and returns a synthetic directory
// name for it.
func (t *MemoryTree) Materialize(stream bam.StreamKind, files []bam.StagedFile) (string, error) {
	t.parts++
	dir := fmt.Sprintf("mem://%s/part%d", stream, t.parts)
	t.materialized[dir] = append([]bam.StagedFile(nil), files...)
	return dir, nil
}

// Materialized returns the subset recorded for a synthetic partition
// directory.
func (t *MemoryTree) Materialized(dir string) []bam.StagedFile {
	return t.materialized[dir]
}

// Content returns a staged file's bytes, or nil when absent.
func (t *MemoryTree) Content(stream bam.StreamKind, relPath string) []byte {
	return t.streams[stream][relPath]
}

// Discard marks the tree discarded.
func (t *MemoryTree) Discard() error {
	t.discarded = true
	return nil
}

// Discarded reports whether Discard was called.
func (t *MemoryTree) Discarded() bool {
	return t.discarded
}
