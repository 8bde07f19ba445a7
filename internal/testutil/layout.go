package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bam-go/internal/bam"
)

// GameFixture is a throwaway game installation for service tests: a game
// directory with a Data subdirectory, a mods directory and a profile
// directory holding the priority and enablement lists.
type GameFixture struct {
	GameDir    string
	ModsDir    string
	ProfileDir string
	Layout     bam.Layout
}

// NewGameFixture creates the directory skeleton under t.TempDir().
func NewGameFixture(t *testing.T) *GameFixture {
	t.Helper()

	root := t.TempDir()
	f := &GameFixture{
		GameDir:    filepath.Join(root, "game"),
		ModsDir:    filepath.Join(root, "mods"),
		ProfileDir: filepath.Join(root, "profile"),
	}
	for _, dir := range []string{filepath.Join(f.GameDir, "Data"), f.ModsDir, f.ProfileDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	f.Layout = bam.NewLayout(f.GameDir, f.ModsDir, f.ProfileDir)
	return f
}

// WritePriorityList writes the profile's priority list. Lines are given in
// file order, so the last line names the highest-precedence unit.
func (f *GameFixture) WritePriorityList(t *testing.T, lines ...string) {
	t.Helper()
	writeLines(t, f.Layout.PriorityListPath, lines)
}

// WriteEnablementList writes the profile's plugin enablement list.
func (f *GameFixture) WriteEnablementList(t *testing.T, lines ...string) {
	t.Helper()
	writeLines(t, f.Layout.EnablementListPath, lines)
}

// WriteActiveContent writes the game's active content descriptor.
func (f *GameFixture) WriteActiveContent(t *testing.T, lines ...string) {
	t.Helper()
	writeLines(t, f.Layout.ActiveContentPath, lines)
}

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// ReadLines reads a text file and returns its non-empty lines.
func ReadLines(t *testing.T, path string) []string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	var lines []string
	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
