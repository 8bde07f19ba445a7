package bam

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ResolveLoadOrder parses the priority list and the enablement list into the
// definitive ordered set of active units, highest precedence first (rank 0).
//
// The priority list stores one unit name per line in reverse precedence order:
// the last line has the highest precedence. A "+" prefix marks a unit active,
// a "-" prefix inactive; a bare name is accepted as active. Blank lines and
// "#" comment lines are ignored. Duplicate entries keep only the first
// (highest-precedence) occurrence.
//
// The enablement list associates plugins to units by stem equality after
// stripping a single trailing extension; a "*" prefix marks a plugin
// explicitly disabled. A unit with a disabled plugin is excluded from the
// result regardless of its priority-list marker.
//
// Either reader may be nil, meaning the corresponding source is missing. A
// missing priority list yields an empty result; the caller must then treat
// all discovered units as active.
func ResolveLoadOrder(priorityList, enablementList io.Reader) ([]PriorityEntry, error) {
	if priorityList == nil {
		return nil, nil
	}

	names, err := parsePriorityList(priorityList)
	if err != nil {
		return nil, fmt.Errorf("parsing priority list: %w", err)
	}

	disabled := map[string]bool{}
	if enablementList != nil {
		disabled, err = parseDisabledUnits(enablementList)
		if err != nil {
			return nil, fmt.Errorf("parsing enablement list: %w", err)
		}
	}

	var entries []PriorityEntry
	for _, name := range names {
		if disabled[strings.ToLower(name)] {
			continue
		}
		entries = append(entries, PriorityEntry{Name: name, Rank: len(entries)})
	}
	return entries, nil
}

// parsePriorityList returns active unit names in precedence order (highest
// first). The input file is stored in reverse precedence order, so lines are
// read fully and then walked backwards.
func parsePriorityList(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var names []string
	seen := map[string]bool{}
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var name string
		switch {
		case strings.HasPrefix(line, "+"):
			name = strings.TrimSpace(line[1:])
		case strings.HasPrefix(line, "-"):
			continue // explicitly inactive
		default:
			name = line
		}
		if name == "" {
			continue
		}

		key := strings.ToLower(name)
		if seen[key] {
			continue // keep the first (highest-precedence) occurrence
		}
		seen[key] = true
		names = append(names, name)
	}
	return names, nil
}

// parseDisabledUnits reads the enablement list and returns the set of unit
// stems with an explicitly disabled plugin, lowercased.
func parseDisabledUnits(r io.Reader) (map[string]bool, error) {
	disabled := map[string]bool{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "*") {
			continue // bare name = enabled
		}
		plugin := strings.TrimSpace(line[1:])
		if plugin == "" {
			continue
		}
		disabled[strings.ToLower(unitStem(plugin))] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return disabled, nil
}

// unitStem strips a single trailing extension from a plugin file name,
// yielding the unit name it is associated with.
func unitStem(plugin string) string {
	return strings.TrimSuffix(plugin, filepath.Ext(plugin))
}
