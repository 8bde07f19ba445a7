package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bam-go/internal/bam"
	"bam-go/internal/encryption"
	"bam-go/internal/testutil"
)

func newTestStore(t *testing.T, enc bam.Encryptor) *Store {
	t.Helper()
	return NewStore(t.TempDir(), enc, testutil.FixedClock(), bam.NewNopLogger())
}

func writeSources(t *testing.T, files map[string][]byte) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, content, 0644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}
	return paths
}

func TestStore_CreateRestore_RoundTrip(t *testing.T) {
	store := newTestStore(t, encryption.NewNoneEncryptor())
	contents := map[string][]byte{
		"one.ba2": []byte("first archive bytes"),
		"two.ba2": bytes.Repeat([]byte("payload "), 1000),
	}
	paths := writeSources(t, contents)

	snap, err := store.Create("snap-1", paths)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if snap.ID != "snap-1" {
		t.Errorf("ID = %q, want snap-1", snap.ID)
	}
	if len(snap.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(snap.Entries))
	}
	for _, e := range snap.Entries {
		if e.Checksum == "" || e.Size == 0 {
			t.Errorf("entry %+v missing size or checksum", e)
		}
	}

	// Delete the originals, then restore them.
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			t.Fatal(err)
		}
	}

	restored, err := store.Restore("snap-1")
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if len(restored) != 2 {
		t.Fatalf("restored %d files, want 2", len(restored))
	}
	for _, p := range paths {
		got, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("restored file missing: %v", err)
		}
		want := contents[filepath.Base(p)]
		if !bytes.Equal(got, want) {
			t.Errorf("%s restored with wrong contents", filepath.Base(p))
		}
	}
}

func TestStore_Create_DuplicateID(t *testing.T) {
	store := newTestStore(t, encryption.NewNoneEncryptor())
	paths := writeSources(t, map[string][]byte{"a": []byte("x")})

	if _, err := store.Create("dup", paths); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create("dup", paths); err == nil {
		t.Fatal("expected error for duplicate snapshot id")
	}
}

func TestStore_Create_MissingSource(t *testing.T) {
	store := newTestStore(t, encryption.NewNoneEncryptor())

	_, err := store.Create("snap", []string{"/nonexistent/file.ba2"})
	if err == nil {
		t.Fatal("expected error for missing source")
	}

	// A failed create must not leave a half-written snapshot behind.
	snaps, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 0 {
		t.Errorf("List() = %v, want empty after failed create", snaps)
	}
}

func TestStore_Restore_DetectsTampering(t *testing.T) {
	enc := encryption.NewNoneEncryptor()
	dir := t.TempDir()
	store := NewStore(dir, enc, testutil.FixedClock(), bam.NewNopLogger())
	paths := writeSources(t, map[string][]byte{"a.ba2": []byte("original bytes")})

	if _, err := store.Create("snap", paths); err != nil {
		t.Fatal(err)
	}

	// Corrupt the manifest checksum so restoration must fail verification.
	manifestPath := filepath.Join(dir, "snap", "manifest.toml")
	content, err := os.ReadFile(manifestPath)
	if err != nil {
		t.Fatal(err)
	}
	snap, err := store.Get("snap")
	if err != nil {
		t.Fatal(err)
	}
	bad := bytes.Replace(content, []byte(snap.Entries[0].Checksum), []byte(flipHex(snap.Entries[0].Checksum)), 1)
	if err := os.WriteFile(manifestPath, bad, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Restore("snap"); err == nil {
		t.Fatal("expected checksum mismatch error")
	}
}

// flipHex changes the first hex digit of a checksum.
func flipHex(sum string) string {
	b := []byte(sum)
	if b[0] == '0' {
		b[0] = '1'
	} else {
		b[0] = '0'
	}
	return string(b)
}

func TestStore_EncryptedBundle(t *testing.T) {
	enc := encryption.NewTestEncryptor()
	dir := t.TempDir()
	store := NewStore(dir, enc, testutil.FixedClock(), bam.NewNopLogger())

	secret := []byte("secret archive contents")
	paths := writeSources(t, map[string][]byte{"s.ba2": secret})

	if _, err := store.Create("snap", paths); err != nil {
		t.Fatal(err)
	}

	t.Run("bundle on disk is sealed", func(t *testing.T) {
		bundle, err := os.ReadFile(filepath.Join(dir, "snap", "bundle.tar.zst"))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.HasPrefix(bundle, []byte("BAMENC\x00\x00")) {
			t.Error("sealed bundle does not carry the test encryption header")
		}
	})

	t.Run("round trip through the encryptor", func(t *testing.T) {
		if err := os.Remove(paths[0]); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Restore("snap"); err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		got, err := os.ReadFile(paths[0])
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, secret) {
			t.Error("restored contents differ")
		}
	})
}

func TestStore_GetDeleteList(t *testing.T) {
	store := newTestStore(t, encryption.NewNoneEncryptor())
	paths := writeSources(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")})

	if _, err := store.Create("first", paths[:1]); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create("second", paths[1:]); err != nil {
		t.Fatal(err)
	}

	t.Run("Get loads the manifest", func(t *testing.T) {
		snap, err := store.Get("first")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if snap.ID != "first" || len(snap.Entries) != 1 {
			t.Errorf("snapshot = %+v, want id first with one entry", snap)
		}
		if snap.CreatedAt.IsZero() {
			t.Error("CreatedAt not recorded")
		}
	})

	t.Run("Get unknown id fails", func(t *testing.T) {
		if _, err := store.Get("nope"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("List returns all snapshots", func(t *testing.T) {
		snaps, err := store.List()
		if err != nil {
			t.Fatal(err)
		}
		if len(snaps) != 2 {
			t.Fatalf("got %d snapshots, want 2", len(snaps))
		}
	})

	t.Run("Delete removes the snapshot", func(t *testing.T) {
		if err := store.Delete("first"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := store.Get("first"); err == nil {
			t.Fatal("snapshot still readable after delete")
		}
		snaps, err := store.List()
		if err != nil {
			t.Fatal(err)
		}
		if len(snaps) != 1 {
			t.Errorf("got %d snapshots, want 1", len(snaps))
		}
	})

	t.Run("Delete unknown id fails", func(t *testing.T) {
		if err := store.Delete("nope"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestStore_List_SkipsIncompleteSnapshots(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, encryption.NewNoneEncryptor(), testutil.FixedClock(), bam.NewNopLogger())
	paths := writeSources(t, map[string][]byte{"a": []byte("1")})

	if _, err := store.Create("complete", paths); err != nil {
		t.Fatal(err)
	}
	// Simulate an interrupted create: a directory without a manifest.
	if err := os.MkdirAll(filepath.Join(dir, "partial"), 0755); err != nil {
		t.Fatal(err)
	}

	snaps, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 1 || snaps[0].ID != "complete" {
		t.Errorf("List() = %v, want only the complete snapshot", snaps)
	}
}

func TestStore_CreatedAtUsesClock(t *testing.T) {
	clock := testutil.NewStubClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	store := NewStore(t.TempDir(), encryption.NewNoneEncryptor(), clock, bam.NewNopLogger())
	paths := writeSources(t, map[string][]byte{"a": []byte("1")})

	snap, err := store.Create("snap", paths)
	if err != nil {
		t.Fatal(err)
	}
	if !snap.CreatedAt.Equal(clock.Now()) {
		t.Errorf("CreatedAt = %v, want %v", snap.CreatedAt, clock.Now())
	}
}
