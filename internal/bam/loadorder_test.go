package bam

import (
	"strings"
	"testing"
)

func TestResolveLoadOrder(t *testing.T) {
	t.Parallel()

	t.Run("last line has highest precedence", func(t *testing.T) {
		priority := strings.NewReader("+ModA\n+ModB\n+ModC\n")

		entries, err := ResolveLoadOrder(priority, nil)
		if err != nil {
			t.Fatalf("ResolveLoadOrder() error = %v", err)
		}

		want := []PriorityEntry{
			{Name: "ModC", Rank: 0},
			{Name: "ModB", Rank: 1},
			{Name: "ModA", Rank: 2},
		}
		assertEntries(t, entries, want)
	})

	t.Run("markers and bare names", func(t *testing.T) {
		priority := strings.NewReader("+Active\n-Inactive\nBare\n")

		entries, err := ResolveLoadOrder(priority, nil)
		if err != nil {
			t.Fatal(err)
		}

		want := []PriorityEntry{
			{Name: "Bare", Rank: 0},
			{Name: "Active", Rank: 1},
		}
		assertEntries(t, entries, want)
	})

	t.Run("blank lines and comments ignored", func(t *testing.T) {
		priority := strings.NewReader("+ModA\n\n# separator comment\n+ModB\n")

		entries, err := ResolveLoadOrder(priority, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 2 {
			t.Fatalf("got %d entries, want 2", len(entries))
		}
	})

	t.Run("duplicate keeps highest precedence occurrence", func(t *testing.T) {
		priority := strings.NewReader("+Dup\n+Other\n+dup\n")

		entries, err := ResolveLoadOrder(priority, nil)
		if err != nil {
			t.Fatal(err)
		}

		want := []PriorityEntry{
			{Name: "dup", Rank: 0},
			{Name: "Other", Rank: 1},
		}
		assertEntries(t, entries, want)
	})

	t.Run("disabled plugin excludes its unit", func(t *testing.T) {
		priority := strings.NewReader("+ModA\n+ModB\n")
		enablement := strings.NewReader("*ModB.esp\nModA.esp\n")

		entries, err := ResolveLoadOrder(priority, enablement)
		if err != nil {
			t.Fatal(err)
		}

		want := []PriorityEntry{
			{Name: "ModA", Rank: 0},
		}
		assertEntries(t, entries, want)
	})

	t.Run("disabled match strips one extension only", func(t *testing.T) {
		priority := strings.NewReader("+Mod.Pack\n")
		enablement := strings.NewReader("*Mod.Pack.esp\n")

		entries, err := ResolveLoadOrder(priority, enablement)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Fatalf("got %d entries, want 0", len(entries))
		}
	})

	t.Run("ranks stay contiguous after exclusion", func(t *testing.T) {
		priority := strings.NewReader("+A\n+B\n+C\n")
		enablement := strings.NewReader("*B.esl\n")

		entries, err := ResolveLoadOrder(priority, enablement)
		if err != nil {
			t.Fatal(err)
		}

		want := []PriorityEntry{
			{Name: "C", Rank: 0},
			{Name: "A", Rank: 1},
		}
		assertEntries(t, entries, want)
	})

	t.Run("nil priority list yields nil", func(t *testing.T) {
		entries, err := ResolveLoadOrder(nil, strings.NewReader("*X.esp\n"))
		if err != nil {
			t.Fatal(err)
		}
		if entries != nil {
			t.Fatalf("got %v, want nil", entries)
		}
	})

	t.Run("nil enablement list disables nothing", func(t *testing.T) {
		priority := strings.NewReader("+OnlyMod\n")

		entries, err := ResolveLoadOrder(priority, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].Name != "OnlyMod" {
			t.Fatalf("got %v, want [OnlyMod]", entries)
		}
	})
}

func assertEntries(t *testing.T, got, want []PriorityEntry) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d entries %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
