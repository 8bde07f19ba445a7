package snapshot

import (
	"archive/tar"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"

	"bam-go/internal/bam"
)

const (
	bundleName   = "bundle.tar.zst"
	manifestName = "manifest.toml"
)

// Store persists snapshots on disk, one directory per snapshot:
//
//	<dir>/
//	  <id>/
//	    bundle.tar.zst   (all source files, zstd-compressed, optionally encrypted)
//	    manifest.toml    (original paths, sizes, blake3 checksums)
//
// The manifest is the source of truth for restoration: every restored file
// is re-hashed and compared against it.
type Store struct {
	dir       string
	encryptor bam.Encryptor
	clock     bam.Clock
	logger    bam.Logger
}

var _ bam.SnapshotStore = (*Store)(nil)

// NewStore creates a snapshot store rooted at dir.
func NewStore(dir string, encryptor bam.Encryptor, clock bam.Clock, logger bam.Logger) *Store {
	return &Store{dir: dir, encryptor: encryptor, clock: clock, logger: logger}
}

// manifest is the on-disk TOML form of a bam.Snapshot.
type manifest struct {
	ID        string          `toml:"id"`
	CreatedAt time.Time       `toml:"created_at"`
	Entries   []manifestEntry `toml:"entries"`
}

type manifestEntry struct {
	Path     string `toml:"path"`
	Size     int64  `toml:"size"`
	Checksum string `toml:"checksum"`
}

// Create snapshots the given source files under the given ID. The bundle is
// written before the manifest, so a directory containing a manifest is always
// a complete snapshot.
func (s *Store) Create(id string, sources []string) (*bam.Snapshot, error) {
	snapDir := filepath.Join(s.dir, id)
	if _, err := os.Stat(snapDir); err == nil {
		return nil, fmt.Errorf("snapshot %s already exists", id)
	}
	if err := os.MkdirAll(snapDir, 0755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}

	snap := &bam.Snapshot{ID: id, CreatedAt: s.clock.Now()}

	tmp, err := os.CreateTemp(snapDir, ".bundle-*")
	if err != nil {
		return nil, fmt.Errorf("creating bundle: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	zw, err := zstd.NewWriter(tmp)
	if err != nil {
		return nil, fmt.Errorf("creating compressor: %w", err)
	}
	tw := tar.NewWriter(zw)

	for i, src := range sources {
		entry, err := s.addSource(tw, i, src)
		if err != nil {
			os.RemoveAll(snapDir)
			return nil, err
		}
		snap.Entries = append(snap.Entries, *entry)
	}

	if err := tw.Close(); err != nil {
		os.RemoveAll(snapDir)
		return nil, fmt.Errorf("finalizing bundle: %w", err)
	}
	if err := zw.Close(); err != nil {
		os.RemoveAll(snapDir)
		return nil, fmt.Errorf("finalizing compression: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.RemoveAll(snapDir)
		return nil, err
	}

	if err := s.sealBundle(tmp.Name(), filepath.Join(snapDir, bundleName)); err != nil {
		os.RemoveAll(snapDir)
		return nil, err
	}
	if err := s.writeManifest(snapDir, snap); err != nil {
		os.RemoveAll(snapDir)
		return nil, err
	}

	s.logger.Debug("snapshot written", "id", id, "entries", len(snap.Entries))
	return snap, nil
}

// addSource streams one source file into the tar bundle, hashing it on the
// way through.
func (s *Store) addSource(tw *tar.Writer, idx int, src string) (*bam.SnapshotEntry, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("opening source %s: %w", src, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat source %s: %w", src, err)
	}

	// Members are named by index; the manifest maps them back to their
	// original absolute paths.
	hdr := &tar.Header{
		Name: fmt.Sprintf("%06d", idx),
		Mode: 0644,
		Size: info.Size(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, fmt.Errorf("writing bundle header: %w", err)
	}

	hasher := blake3.New(32, nil)
	if _, err := io.Copy(io.MultiWriter(tw, hasher), f); err != nil {
		return nil, fmt.Errorf("bundling %s: %w", src, err)
	}

	return &bam.SnapshotEntry{
		Path:     src,
		Size:     info.Size(),
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// sealBundle runs the plain bundle through the encryptor into its final
// location.
func (s *Store) sealBundle(plainPath, destPath string) error {
	in, err := os.Open(plainPath)
	if err != nil {
		return fmt.Errorf("reopening bundle: %w", err)
	}
	defer in.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating sealed bundle: %w", err)
	}
	defer out.Close()

	if err := s.encryptor.Encrypt(in, out); err != nil {
		return fmt.Errorf("sealing bundle: %w", err)
	}
	return out.Close()
}

func (s *Store) writeManifest(snapDir string, snap *bam.Snapshot) error {
	m := manifest{ID: snap.ID, CreatedAt: snap.CreatedAt}
	for _, e := range snap.Entries {
		m.Entries = append(m.Entries, manifestEntry{Path: e.Path, Size: e.Size, Checksum: e.Checksum})
	}

	f, err := os.Create(filepath.Join(snapDir, manifestName))
	if err != nil {
		return fmt.Errorf("creating manifest: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return f.Close()
}

// Restore writes every file in the snapshot back to its original absolute
// path and verifies each restored file's checksum against the manifest.
// Returns the restored paths.
func (s *Store) Restore(id string) ([]string, error) {
	snap, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	plain, err := s.openBundle(id)
	if err != nil {
		return nil, err
	}
	defer plain.cleanup()

	zr, err := zstd.NewReader(plain.file)
	if err != nil {
		return nil, fmt.Errorf("opening compressed bundle: %w", err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	var restored []string
	for i := 0; ; i++ {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading bundle: %w", err)
		}
		if i >= len(snap.Entries) {
			return nil, fmt.Errorf("bundle has more members than manifest entries")
		}
		entry := snap.Entries[i]
		if hdr.Name != fmt.Sprintf("%06d", i) {
			return nil, fmt.Errorf("bundle member %q out of order", hdr.Name)
		}

		if err := s.restoreEntry(tr, entry); err != nil {
			return nil, err
		}
		restored = append(restored, entry.Path)
	}
	if len(restored) != len(snap.Entries) {
		return nil, fmt.Errorf("bundle has %d members, manifest lists %d", len(restored), len(snap.Entries))
	}

	s.logger.Debug("snapshot restored", "id", id, "files", len(restored))
	return restored, nil
}

// restoreEntry writes one bundle member back to its original path and
// verifies the written bytes against the manifest checksum.
func (s *Store) restoreEntry(r io.Reader, entry bam.SnapshotEntry) error {
	if err := os.MkdirAll(filepath.Dir(entry.Path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", entry.Path, err)
	}

	out, err := os.Create(entry.Path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", entry.Path, err)
	}

	hasher := blake3.New(32, nil)
	n, err := io.Copy(io.MultiWriter(out, hasher), r)
	if err != nil {
		out.Close()
		return fmt.Errorf("restoring %s: %w", entry.Path, err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	if n != entry.Size {
		return fmt.Errorf("restored %s: size %d, manifest says %d", entry.Path, n, entry.Size)
	}
	if sum := hex.EncodeToString(hasher.Sum(nil)); sum != entry.Checksum {
		return fmt.Errorf("restored %s: checksum mismatch", entry.Path)
	}
	return nil
}

// openBundle decrypts a bundle into a temp file and returns it positioned at
// the start.
type openedBundle struct {
	file *os.File
}

func (b *openedBundle) cleanup() {
	name := b.file.Name()
	b.file.Close()
	os.Remove(name)
}

func (s *Store) openBundle(id string) (*openedBundle, error) {
	sealed, err := os.Open(filepath.Join(s.dir, id, bundleName))
	if err != nil {
		return nil, fmt.Errorf("opening bundle: %w", err)
	}
	defer sealed.Close()

	tmp, err := os.CreateTemp(s.dir, ".restore-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp bundle: %w", err)
	}

	if err := s.encryptor.Decrypt(sealed, tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("unsealing bundle: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	return &openedBundle{file: tmp}, nil
}

// Get loads a snapshot's manifest without restoring it.
func (s *Store) Get(id string) (*bam.Snapshot, error) {
	var m manifest
	if _, err := toml.DecodeFile(filepath.Join(s.dir, id, manifestName), &m); err != nil {
		return nil, fmt.Errorf("reading manifest for %s: %w", id, err)
	}

	snap := &bam.Snapshot{ID: m.ID, CreatedAt: m.CreatedAt}
	for _, e := range m.Entries {
		snap.Entries = append(snap.Entries, bam.SnapshotEntry{Path: e.Path, Size: e.Size, Checksum: e.Checksum})
	}
	return snap, nil
}

// Delete removes a snapshot and its manifest.
func (s *Store) Delete(id string) error {
	snapDir := filepath.Join(s.dir, id)
	if _, err := os.Stat(snapDir); err != nil {
		return fmt.Errorf("snapshot %s: %w", id, err)
	}
	return os.RemoveAll(snapDir)
}

// List returns all stored snapshots, oldest first.
func (s *Store) List() ([]*bam.Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot directory: %w", err)
	}

	var snaps []*bam.Snapshot
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		snap, err := s.Get(e.Name())
		if err != nil {
			// A snapshot without a manifest is an interrupted Create.
			s.logger.Warn("skipping incomplete snapshot", "id", e.Name())
			continue
		}
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].CreatedAt.Before(snaps[j].CreatedAt) })
	return snaps, nil
}
