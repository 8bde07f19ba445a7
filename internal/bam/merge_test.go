package bam_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"bam-go/internal/bam"
	"bam-go/internal/codec"
	"bam-go/internal/encryption"
	"bam-go/internal/fs"
	"bam-go/internal/snapshot"
	"bam-go/internal/staging"
	"bam-go/internal/testutil"
)

// testEnv wires a Service against a throwaway game installation, the tar
// test codec and an in-memory operation ledger.
type testEnv struct {
	fixture *testutil.GameFixture
	svc     *bam.Service
	store   *snapshot.Store
	db      bam.Database
	codec   bam.Codec
	limits  bam.Limits
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		fixture: testutil.NewGameFixture(t),
		codec:   codec.NewTestCodec(),
	}
	env.db = testutil.NewTestDatabase(t)
	env.store = snapshot.NewStore(t.TempDir(), encryption.NewTestEncryptor(), testutil.FixedClock(), bam.NewNopLogger())
	env.rebuild(t)
	return env
}

// rebuild recreates the Service, keeping the fixture, ledger and snapshot
// store. Used after swapping the codec or limits.
func (env *testEnv) rebuild(t *testing.T) {
	t.Helper()
	fsmgr := fs.NewOSFilesystemManager(nil)
	logger := bam.NewNopLogger()
	factory := staging.NewFilesystemFactory(t.TempDir(), env.codec, bam.UUIDGenerator{})
	registry := bam.NewRegistry(fsmgr, env.fixture.Layout, logger)
	env.svc = bam.NewService(env.codec, factory, env.store, env.db, fsmgr, registry,
		env.fixture.Layout, env.limits, logger, testutil.FixedClock(), testutil.NewStubIDGenerator())
}

// addBaseArchive packs an archive into the fixture's Data directory.
func (env *testEnv) addBaseArchive(t *testing.T, name string, files map[string][]byte) string {
	t.Helper()
	path := filepath.Join(env.fixture.Layout.DataDir, name)
	testutil.PackArchive(t, path, files)
	return path
}

// addUnitArchive packs an archive into a unit directory under the mods tree.
func (env *testEnv) addUnitArchive(t *testing.T, unit, name string, files map[string][]byte) string {
	t.Helper()
	path := filepath.Join(env.fixture.ModsDir, unit, name)
	testutil.PackArchive(t, path, files)
	return path
}

func (env *testEnv) outputPath(unit, archive string) string {
	return filepath.Join(env.fixture.ModsDir, unit, archive)
}

func requireFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file %s: %v", path, err)
	}
}

func requireAbsent(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Fatalf("expected %s to be gone", path)
	}
}

func TestService_MergeOptionalContent(t *testing.T) {
	env := newTestEnv(t)
	env.fixture.WriteActiveContent(t, "ccModA.esl", "ccModB.esl")
	env.fixture.WritePriorityList(t)
	env.fixture.WriteEnablementList(t)

	// Both archives carry the same path; ccModB sorts last, loads last and
	// must win the conflict.
	pathA := env.addBaseArchive(t, "ccModA - Main.ba2", map[string][]byte{
		"meshes/shared.nif": []byte("from A"),
		"meshes/a_only.nif": []byte("A"),
	})
	pathB := env.addBaseArchive(t, "ccModB - Main.ba2", map[string][]byte{
		"meshes/shared.nif": []byte("from B"),
		"sound/music/b.xwm": []byte("audio"),
	})

	result, err := env.svc.MergeOptionalContent(context.Background(), "CCMerged")
	if err != nil {
		t.Fatalf("MergeOptionalContent() error = %v", err)
	}

	if result.SourceCount != 2 {
		t.Errorf("SourceCount = %d, want 2", result.SourceCount)
	}
	if result.AudioFiles != 1 {
		t.Errorf("AudioFiles = %d, want 1", result.AudioFiles)
	}
	if result.SnapshotID == "" {
		t.Error("missing snapshot id")
	}

	mainArchive := env.outputPath("CCMerged", "CCMerged - Main.ba2")
	soundsArchive := env.outputPath("CCMerged", "CCMerged - Sounds.ba2")
	requireFile(t, mainArchive)
	requireFile(t, soundsArchive)

	t.Run("highest precedence source wins conflicts", func(t *testing.T) {
		files := testutil.ExtractArchive(t, mainArchive)
		if got := string(files["meshes/shared.nif"]); got != "from B" {
			t.Errorf("shared.nif content = %q, want %q", got, "from B")
		}
		if got := string(files["meshes/a_only.nif"]); got != "A" {
			t.Errorf("a_only.nif content = %q, want %q", got, "A")
		}
	})

	t.Run("audio is separated out of the main archive", func(t *testing.T) {
		files := testutil.ExtractArchive(t, mainArchive)
		if _, ok := files["sound/music/b.xwm"]; ok {
			t.Error("audio file still present in main archive")
		}
		sounds := testutil.ExtractArchive(t, soundsArchive)
		if got := string(sounds["sound/music/b.xwm"]); got != "audio" {
			t.Errorf("sounds archive content = %q, want %q", got, "audio")
		}
	})

	t.Run("loader stubs are written", func(t *testing.T) {
		for _, name := range []string{"CCMerged.esl", "CCMerged_Sounds.esl"} {
			path := env.outputPath("CCMerged", name)
			content, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("reading stub %s: %v", name, err)
			}
			if !bytes.Equal(content, bam.LoaderStub()) {
				t.Errorf("stub %s content differs from the loader stub", name)
			}
		}
	})

	t.Run("originals are removed", func(t *testing.T) {
		requireAbsent(t, pathA)
		requireAbsent(t, pathB)
	})

	t.Run("unit is registered at highest precedence", func(t *testing.T) {
		lines := testutil.ReadLines(t, env.fixture.Layout.PriorityListPath)
		if len(lines) == 0 || lines[len(lines)-1] != "+CCMerged" {
			t.Errorf("priority list = %v, want +CCMerged as last line", lines)
		}
		plugins := testutil.ReadLines(t, env.fixture.Layout.EnablementListPath)
		found := map[string]bool{}
		for _, p := range plugins {
			found[p] = true
		}
		if !found["CCMerged.esl"] || !found["CCMerged_Sounds.esl"] {
			t.Errorf("enablement list = %v, want both stub plugins enabled", plugins)
		}
	})

	t.Run("operation is recorded as success", func(t *testing.T) {
		ops, err := env.svc.History(10)
		if err != nil {
			t.Fatal(err)
		}
		if len(ops) != 1 || ops[0].Status != "success" || ops[0].Kind != "merge" {
			t.Errorf("history = %+v, want one successful merge", ops)
		}
	})
}

func TestService_MergeOptionalContent_NoSources(t *testing.T) {
	env := newTestEnv(t)
	env.fixture.WriteActiveContent(t, "ccModA.esl")

	// The archive's plugin is not active, so nothing qualifies.
	env.addBaseArchive(t, "ccOther - Main.ba2", map[string][]byte{"f": []byte("x")})

	_, err := env.svc.MergeOptionalContent(context.Background(), "CCMerged")
	if !errors.Is(err, bam.ErrNoSources) {
		t.Fatalf("error = %v, want ErrNoSources", err)
	}
}

func TestService_MergeOptionalContent_TexturePartitioning(t *testing.T) {
	env := newTestEnv(t)
	env.limits = bam.Limits{TextureCeiling: 900}
	env.rebuild(t)
	env.fixture.WriteActiveContent(t, "ccModA.esl")
	env.fixture.WritePriorityList(t)
	env.fixture.WriteEnablementList(t)

	env.addBaseArchive(t, "ccModA - Main.ba2", map[string][]byte{
		"meshes/a.nif": []byte("mesh"),
	})
	env.addBaseArchive(t, "ccModA - Textures.ba2", map[string][]byte{
		"textures/one.dds":   bytes.Repeat([]byte("x"), 400),
		"textures/three.dds": bytes.Repeat([]byte("z"), 400),
		"textures/two.dds":   bytes.Repeat([]byte("y"), 400),
	})

	result, err := env.svc.MergeOptionalContent(context.Background(), "CCMerged")
	if err != nil {
		t.Fatalf("MergeOptionalContent() error = %v", err)
	}

	first := env.outputPath("CCMerged", "CCMerged - Textures.ba2")
	second := env.outputPath("CCMerged", "CCMerged_Part2 - Textures.ba2")
	requireFile(t, first)
	requireFile(t, second)

	got := map[string][]byte{}
	for path, files := range map[string]map[string][]byte{
		first:  testutil.ExtractArchive(t, first),
		second: testutil.ExtractArchive(t, second),
	} {
		for rel, content := range files {
			if _, dup := got[rel]; dup {
				t.Errorf("file %s appears in more than one partition (%s)", rel, path)
			}
			got[rel] = content
		}
	}
	if len(got) != 3 {
		t.Errorf("partitions hold %d files total, want 3", len(got))
	}

	stub := env.outputPath("CCMerged", "CCMerged_Part2.esl")
	requireFile(t, stub)
	requireAbsent(t, env.outputPath("CCMerged", "CCMerged_Part3 - Textures.ba2"))

	for _, a := range result.Archives {
		requireFile(t, a)
	}
}

// failingCodec delegates extraction to a real codec and fails every pack.
type failingCodec struct {
	bam.Codec
}

func (c *failingCodec) Pack(ctx context.Context, srcDir, destPath string, format bam.Format, compression bam.Compression) error {
	return fmt.Errorf("pack refused")
}

func TestService_Merge_RollbackOnPackFailure(t *testing.T) {
	env := newTestEnv(t)
	env.codec = &failingCodec{Codec: codec.NewTestCodec()}
	env.rebuild(t)
	env.fixture.WriteActiveContent(t, "ccModA.esl")
	env.fixture.WritePriorityList(t, "+SomeMod")

	path := env.addBaseArchive(t, "ccModA - Main.ba2", map[string][]byte{
		"meshes/a.nif": []byte("mesh data"),
	})
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	_, err = env.svc.MergeOptionalContent(context.Background(), "CCMerged")
	if err == nil {
		t.Fatal("expected merge to fail")
	}

	t.Run("original restored byte for byte", func(t *testing.T) {
		after, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("original missing after rollback: %v", err)
		}
		if !bytes.Equal(before, after) {
			t.Error("restored original differs from the pre-merge bytes")
		}
	})

	t.Run("partial outputs removed", func(t *testing.T) {
		requireAbsent(t, filepath.Join(env.fixture.ModsDir, "CCMerged"))
	})

	t.Run("registration untouched", func(t *testing.T) {
		lines := testutil.ReadLines(t, env.fixture.Layout.PriorityListPath)
		if len(lines) != 1 || lines[0] != "+SomeMod" {
			t.Errorf("priority list = %v, want unchanged", lines)
		}
	})

	t.Run("operation recorded as failed", func(t *testing.T) {
		ops, err := env.svc.History(10)
		if err != nil {
			t.Fatal(err)
		}
		if len(ops) != 1 || ops[0].Status != "failed" {
			t.Fatalf("history = %+v, want one failed merge", ops)
		}
		if ops[0].Reason == "" {
			t.Error("failed operation has no reason")
		}
	})
}

func TestService_MergeUnits(t *testing.T) {
	env := newTestEnv(t)
	// Last line of the priority list has the highest precedence.
	env.fixture.WritePriorityList(t, "+UnitA", "+UnitB")
	env.fixture.WriteEnablementList(t)

	pathA := env.addUnitArchive(t, "UnitA", "UnitA - Main.ba2", map[string][]byte{
		"scripts/shared.pex": []byte("from A"),
	})
	pathB := env.addUnitArchive(t, "UnitB", "UnitB - Main.ba2", map[string][]byte{
		"scripts/shared.pex": []byte("from B"),
	})

	result, err := env.svc.MergeUnits(context.Background(), []string{"UnitA", "UnitB"}, "Merged")
	if err != nil {
		t.Fatalf("MergeUnits() error = %v", err)
	}
	if result.SourceCount != 2 {
		t.Errorf("SourceCount = %d, want 2", result.SourceCount)
	}

	files := testutil.ExtractArchive(t, env.outputPath("Merged", "Merged - Main.ba2"))
	if got := string(files["scripts/shared.pex"]); got != "from B" {
		t.Errorf("shared.pex content = %q, want the higher-precedence unit's bytes", got)
	}

	requireAbsent(t, pathA)
	requireAbsent(t, pathB)
}

func TestService_MergeUnits_InputOrderIrrelevant(t *testing.T) {
	env := newTestEnv(t)
	env.fixture.WritePriorityList(t, "+UnitA", "+UnitB")

	env.addUnitArchive(t, "UnitA", "UnitA - Main.ba2", map[string][]byte{
		"f.txt": []byte("from A"),
	})
	env.addUnitArchive(t, "UnitB", "UnitB - Main.ba2", map[string][]byte{
		"f.txt": []byte("from B"),
	})

	// UnitB is passed first but still wins: precedence comes from the load
	// order, not the argument order.
	_, err := env.svc.MergeUnits(context.Background(), []string{"UnitB", "UnitA"}, "Merged")
	if err != nil {
		t.Fatal(err)
	}

	files := testutil.ExtractArchive(t, env.outputPath("Merged", "Merged - Main.ba2"))
	if got := string(files["f.txt"]); got != "from B" {
		t.Errorf("f.txt content = %q, want %q", got, "from B")
	}
}

func TestService_MergeUnits_UnknownUnit(t *testing.T) {
	env := newTestEnv(t)
	env.fixture.WritePriorityList(t)

	_, err := env.svc.MergeUnits(context.Background(), []string{"Missing"}, "Merged")
	if err == nil {
		t.Fatal("expected error for unknown unit")
	}
}

func TestService_Merge_ReplacesExistingOutputUnit(t *testing.T) {
	env := newTestEnv(t)
	env.fixture.WriteActiveContent(t, "ccModA.esl")

	env.addBaseArchive(t, "ccModA - Main.ba2", map[string][]byte{"a": []byte("1")})

	stale := filepath.Join(env.fixture.ModsDir, "CCMerged", "leftover.txt")
	testutil.WriteFiles(t, filepath.Join(env.fixture.ModsDir, "CCMerged"), map[string][]byte{"leftover.txt": []byte("old")})

	if _, err := env.svc.MergeOptionalContent(context.Background(), "CCMerged"); err != nil {
		t.Fatalf("MergeOptionalContent() error = %v", err)
	}

	requireAbsent(t, stale)
	requireFile(t, env.outputPath("CCMerged", "CCMerged - Main.ba2"))
}
