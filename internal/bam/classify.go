package bam

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

const (
	optionalPrefix = "cc"
	dlcPrefix      = "dlc"
	basePrefix     = "fallout4 - "

	// textureMarker identifies texture archives. The marker may carry a
	// numeric suffix for historical multi-part texture sets
	// (" - Textures1.ba2") and appears in singular form on some archives.
	textureMarker = " - texture"
)

var (
	streamSuffixPattern = regexp.MustCompile(`(?i) - (main|textures?)\d*$`)
	activePluginPattern = regexp.MustCompile(`(?i)^cc.+\.es[lmp]$`)
	extensionPattern    = regexp.MustCompile(`(?i)\.es[lmp]$`)
)

// ClassificationSnapshot is an immutable view of everything classification
// depends on: the known vanilla archive names (plus any archives observed in
// the base tree) and the set of active optional-content plugin stems. Build
// one per operation and pass it explicitly; there is no shared mutable cache.
type ClassificationSnapshot struct {
	vanilla map[string]bool
	active  map[string]bool
}

// NewClassificationSnapshot builds a snapshot from archives observed in the
// base installation tree and the active optional-content plugin stems.
// The known vanilla archive table is always included.
func NewClassificationSnapshot(baseTreeArchives []string, activePlugins []string) *ClassificationSnapshot {
	s := &ClassificationSnapshot{
		vanilla: make(map[string]bool, len(knownVanillaArchives)+len(baseTreeArchives)),
		active:  make(map[string]bool, len(activePlugins)),
	}
	for _, name := range knownVanillaArchives {
		s.vanilla[strings.ToLower(name)] = true
	}
	for _, name := range baseTreeArchives {
		s.vanilla[strings.ToLower(name)] = true
	}
	for _, p := range activePlugins {
		s.active[strings.ToLower(p)] = true
	}
	return s
}

// ActivePlugin reports whether the given plugin stem is in the active set.
// Matching is case-insensitive and extension-agnostic.
func (s *ClassificationSnapshot) ActivePlugin(stem string) bool {
	return s.active[strings.ToLower(extensionPattern.ReplaceAllString(stem, ""))]
}

// IsVanilla reports whether the file name exactly matches a known base/DLC
// archive name (case-insensitive).
func (s *ClassificationSnapshot) IsVanilla(fileName string) bool {
	return s.vanilla[strings.ToLower(fileName)]
}

// ClassifyBase categorizes an archive found inside the base installation
// tree. First match wins: optional-content prefix with an active plugin stem,
// then the downloadable-content prefix, then the base-game prefix; anything
// else is vendor-locked content the tool chain cannot extract.
func (s *ClassificationSnapshot) ClassifyBase(fileName string) Classification {
	name := strings.ToLower(fileName)
	texture := IsTexture(fileName)

	switch {
	case strings.HasPrefix(name, optionalPrefix) && s.ActivePlugin(PluginStem(fileName)):
		return Classification{Category: CategoryOptional, Texture: texture}
	case strings.HasPrefix(name, dlcPrefix):
		return Classification{Category: CategoryDLC, Texture: texture}
	case strings.HasPrefix(name, basePrefix):
		return Classification{Category: CategoryBaseMain, Texture: texture}
	default:
		return Classification{Category: CategoryVendorLocked, Texture: texture}
	}
}

// ClassifyExternal categorizes an archive found outside the base installation
// tree. An exact vanilla-name match is a replacement; this rule is evaluated
// before new-content classification because replacements must never count
// toward new-content totals.
func (s *ClassificationSnapshot) ClassifyExternal(fileName string) Classification {
	texture := IsTexture(fileName)
	if s.IsVanilla(fileName) {
		return Classification{Category: CategoryReplacement, Texture: texture}
	}
	return Classification{Category: CategoryNewContent, Texture: texture}
}

// IsTexture reports whether the archive file name carries the texture marker.
func IsTexture(fileName string) bool {
	return strings.Contains(strings.ToLower(fileName), textureMarker)
}

// PluginStem derives the owning plugin stem from an archive file name by
// stripping the archive extension and any " - Main"/" - Textures" stream
// suffix. "ccbgsfo4044-hellfirepowerarmor - Textures.ba2" yields
// "ccbgsfo4044-hellfirepowerarmor".
func PluginStem(fileName string) string {
	stem := strings.TrimSuffix(fileName, ".ba2")
	stem = strings.TrimSuffix(stem, ".BA2")
	return streamSuffixPattern.ReplaceAllString(stem, "")
}

// ParseActiveContent reads the active-content descriptor and returns the
// lowercased plugin stems of every listed optional-content plugin. Lines that
// do not look like optional-content plugin file names are ignored.
func ParseActiveContent(r io.Reader) ([]string, error) {
	var stems []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !activePluginPattern.MatchString(line) {
			continue
		}
		stems = append(stems, strings.ToLower(extensionPattern.ReplaceAllString(line, "")))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return stems, nil
}
