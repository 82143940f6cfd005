// Package match evaluates include/exclude glob patterns against file paths.
package match

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matches reports whether a path is selected by the given pattern sets: the
// path must match at least one include pattern and none of the exclude
// patterns. Paths are normalized to forward slashes before matching.
// Malformed patterns never match and never cause an error.
func Matches(path string, includes, excludes []string) bool {
	path = normalize(path)

	if !matchesAny(path, includes) {
		return false
	}
	return !matchesAny(path, excludes)
}

// Excluded reports whether a path matches any exclude pattern.
func Excluded(path string, excludes []string) bool {
	return matchesAny(normalize(path), excludes)
}

// ExcludedDir reports whether a directory should be pruned from traversal.
// A directory is pruned when its path, its basename, or anything beneath it
// would be excluded, so that subtrees like node_modules are never descended
// into at all.
func ExcludedDir(dir string, excludes []string) bool {
	dir = normalize(dir)
	base := dir
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		base = dir[i+1:]
	}

	for _, pattern := range excludes {
		if matchOne(pattern, dir) || matchOne(pattern, base) {
			return true
		}
		// "**/node_modules/**" style patterns only match entries inside the
		// directory, so probe with a synthetic child path as well.
		if matchOne(pattern, dir+"/x") {
			return true
		}
	}
	return false
}

func matchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if matchOne(pattern, path) {
			return true
		}
	}
	return false
}

// matchOne matches a single pattern, trying both the pattern as written and
// an unanchored "**/" variant so bare patterns like "*.test.ts" match at any
// depth. doublestar returns ErrBadPattern for malformed input; that degrades
// to no match.
func matchOne(pattern, path string) bool {
	pattern = normalize(pattern)

	if ok, err := doublestar.Match(pattern, path); err == nil && ok {
		return true
	}
	if !strings.HasPrefix(pattern, "**/") && !strings.Contains(pattern, "/") {
		if ok, err := doublestar.Match("**/"+pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

func normalize(p string) string {
	p = filepath.ToSlash(p)
	p = strings.TrimPrefix(p, "./")
	return p
}
