package bam

import "path/filepath"

// Layout fixes the well-known file locations the engine reads and writes.
// All paths are absolute; the zero value is invalid.
type Layout struct {
	// GameDir is the base installation root.
	GameDir string

	// DataDir is the archive directory inside the base installation tree.
	DataDir string

	// ModsDir is the root of the external unit tree; each immediate
	// subdirectory is one unit.
	ModsDir string

	// PriorityListPath is the reverse-precedence unit list (modlist.txt).
	PriorityListPath string

	// EnablementListPath is the plugin enablement list (plugins.txt).
	EnablementListPath string

	// ActiveContentPath is the optional-content descriptor (Fallout4.ccc)
	// inside the base installation tree.
	ActiveContentPath string
}

// NewLayout derives the well-known paths from the base installation root, the
// external unit tree root and the profile directory holding the load-order
// files.
func NewLayout(gameDir, modsDir, profileDir string) Layout {
	return Layout{
		GameDir:            gameDir,
		DataDir:            filepath.Join(gameDir, "Data"),
		ModsDir:            modsDir,
		PriorityListPath:   filepath.Join(profileDir, "modlist.txt"),
		EnablementListPath: filepath.Join(profileDir, "plugins.txt"),
		ActiveContentPath:  filepath.Join(gameDir, "Fallout4.ccc"),
	}
}

// UnitDir returns the directory holding a unit's files.
func (l Layout) UnitDir(unit string) string {
	return filepath.Join(l.ModsDir, unit)
}
