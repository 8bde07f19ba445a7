package bam

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// Registry edits the load-order descriptor files: the priority list, the
// enablement list and the optional-content descriptor. Descriptors are
// rewritten wholesale, never patched in place, and a ".bak" copy of each
// touched file is taken before the first write of an operation.
type Registry struct {
	fsmgr  FilesystemManager
	layout Layout
	logger Logger
}

// NewRegistry creates a Registry operating on the given layout.
func NewRegistry(fsmgr FilesystemManager, layout Layout, logger Logger) *Registry {
	return &Registry{fsmgr: fsmgr, layout: layout, logger: logger}
}

// RegisterUnit adds a merged unit to the priority list at highest precedence
// and its loader plugin to the enablement list as enabled. Both edits are
// idempotent; a missing descriptor file is skipped with a warning, matching
// setups that manage load order by directory scan alone.
func (r *Registry) RegisterUnit(unit, plugin string) error {
	err := r.editLines(r.layout.PriorityListPath, func(lines []string) []string {
		entry := "+" + unit
		for _, l := range lines {
			if l == entry {
				return lines
			}
		}
		// The file is in reverse precedence order; appending makes the
		// unit highest precedence.
		return append(lines, entry)
	})
	if err != nil {
		return fmt.Errorf("registering unit in priority list: %w", err)
	}

	err = r.editLines(r.layout.EnablementListPath, func(lines []string) []string {
		for _, l := range lines {
			if l == plugin || l == "*"+plugin {
				return lines
			}
		}
		return append(lines, plugin)
	})
	if err != nil {
		return fmt.Errorf("registering plugin in enablement list: %w", err)
	}

	r.logger.Info("unit registered", "unit", unit, "plugin", plugin)
	return nil
}

// UnregisterUnit removes a merged unit's priority-list entries (active and
// inactive forms) and its plugin's enablement-list entries (enabled and
// disabled forms).
func (r *Registry) UnregisterUnit(unit, plugin string) error {
	err := r.editLines(r.layout.PriorityListPath, func(lines []string) []string {
		return withoutLines(lines, "+"+unit, "-"+unit)
	})
	if err != nil {
		return fmt.Errorf("unregistering unit from priority list: %w", err)
	}

	err = r.editLines(r.layout.EnablementListPath, func(lines []string) []string {
		return withoutLines(lines, plugin, "*"+plugin)
	})
	if err != nil {
		return fmt.Errorf("unregistering plugin from enablement list: %w", err)
	}

	r.logger.Info("unit unregistered", "unit", unit, "plugin", plugin)
	return nil
}

// ActiveContent reads the optional-content descriptor and returns its plugin
// file names in file order. A missing descriptor yields an empty list.
func (r *Registry) ActiveContent() ([]string, error) {
	lines, err := r.readLines(r.layout.ActiveContentPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading optional-content descriptor: %w", err)
	}

	var plugins []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		plugins = append(plugins, l)
	}
	return plugins, nil
}

// EnableOptional adds a plugin to the optional-content descriptor. The
// descriptor is rewritten in sorted order so repeated enable/disable cycles
// produce identical files.
func (r *Registry) EnableOptional(plugin string) error {
	return r.rewriteActiveContent(func(plugins []string) []string {
		for _, p := range plugins {
			if strings.EqualFold(p, plugin) {
				return plugins
			}
		}
		return append(plugins, plugin)
	})
}

// DisableOptional removes a plugin from the optional-content descriptor.
func (r *Registry) DisableOptional(plugin string) error {
	return r.rewriteActiveContent(func(plugins []string) []string {
		var kept []string
		for _, p := range plugins {
			if strings.EqualFold(p, plugin) {
				continue
			}
			kept = append(kept, p)
		}
		return kept
	})
}

func (r *Registry) rewriteActiveContent(edit func([]string) []string) error {
	plugins, err := r.ActiveContent()
	if err != nil {
		return err
	}
	edited := edit(plugins)
	sort.Slice(edited, func(i, j int) bool {
		return strings.ToLower(edited[i]) < strings.ToLower(edited[j])
	})

	if err := r.backupOnce(r.layout.ActiveContentPath); err != nil {
		return err
	}
	if err := r.writeLines(r.layout.ActiveContentPath, edited); err != nil {
		return fmt.Errorf("writing optional-content descriptor: %w", err)
	}
	r.logger.Info("optional-content descriptor rewritten", "plugins", len(edited))
	return nil
}

// editLines applies edit to the file's lines and rewrites the file if the
// edit changed anything. A missing file is skipped with a warning.
func (r *Registry) editLines(path string, edit func([]string) []string) error {
	lines, err := r.readLines(path)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Warn("descriptor file missing, skipping edit", "path", path)
		return nil
	}
	if err != nil {
		return err
	}

	edited := edit(append([]string(nil), lines...))
	if equalLines(lines, edited) {
		return nil
	}

	if err := r.backupOnce(path); err != nil {
		return err
	}
	return r.writeLines(path, edited)
}

// backupOnce copies path to path+".bak" if no backup exists yet. The backup
// reflects the file's state before this process first touched it.
func (r *Registry) backupOnce(path string) error {
	backup := path + ".bak"
	if _, err := r.fsmgr.Stat(backup); err == nil {
		return nil
	}
	if _, err := r.fsmgr.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := r.fsmgr.CopyFile(path, backup); err != nil {
		return fmt.Errorf("backing up %s: %w", path, err)
	}
	return nil
}

func (r *Registry) readLines(path string) ([]string, error) {
	f, err := r.fsmgr.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *Registry) writeLines(path string, lines []string) error {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	return r.fsmgr.WriteFile(path, []byte(b.String()), 0644)
}

func withoutLines(lines []string, drop ...string) []string {
	var kept []string
	for _, l := range lines {
		dropped := false
		for _, d := range drop {
			if l == d {
				dropped = true
				break
			}
		}
		if !dropped {
			kept = append(kept, l)
		}
	}
	return kept
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
