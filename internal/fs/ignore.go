package fs

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreMatcher checks file paths against a set of ignore glob patterns.
// Patterns without '/' match against the file's basename only; patterns with
// '/' match against the full relative path from the scan root. Patterns use
// doublestar syntax, so "**/backup/*.ba2" works as expected.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings. Blank
// lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		patterns = append(patterns, ignorePattern{
			pattern:   raw,
			matchPath: strings.Contains(raw, "/"),
		})
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether the given path, relative to the scan root, should be
// ignored. Matching is case-insensitive because archive names on the target
// platform are.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if len(m.patterns) == 0 {
		return false
	}

	normalized := strings.ToLower(filepath.ToSlash(relativePath))
	basename := strings.ToLower(filepath.Base(relativePath))

	for _, p := range m.patterns {
		target := basename
		if p.matchPath {
			target = normalized
		}
		matched, err := doublestar.Match(strings.ToLower(p.pattern), target)
		if err != nil {
			// Bad pattern, skip rather than crash.
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
