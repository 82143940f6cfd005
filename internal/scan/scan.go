// Package scan walks configured root directories and produces the ordered
// candidate file list for extraction.
package scan

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/EnoughXP/triggerkit/internal/match"
)

// Scanner walks root directories applying include/exclude patterns.
type Scanner struct {
	includes []string
	excludes []string
	log      *slog.Logger
}

// New creates a Scanner for the given pattern sets. A nil logger falls back
// to slog.Default().
func New(includes, excludes []string, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{includes: includes, excludes: excludes, log: logger}
}

// Scan walks every root and returns the absolute paths of all matching
// files, sorted lexically so downstream aggregation is deterministic
// regardless of filesystem iteration order. A missing root is logged and
// skipped; it never fails the scan.
func (s *Scanner) Scan(roots []string) ([]string, error) {
	var candidates []string

	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			s.log.Warn("skipping unresolvable include directory", "dir", root, "error", err)
			continue
		}

		info, err := os.Stat(absRoot)
		if err != nil {
			s.log.Warn("include directory does not exist, skipping", "dir", absRoot)
			continue
		}
		if !info.IsDir() {
			s.log.Warn("include path is not a directory, skipping", "path", absRoot)
			continue
		}

		paths, err := s.walkRoot(absRoot)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, paths...)
	}

	sort.Strings(candidates)
	return candidates, nil
}

func (s *Scanner) walkRoot(root string) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries contribute nothing; keep walking siblings.
			s.log.Warn("cannot read path during scan", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			// Prune excluded subtrees before descending.
			if match.ExcludedDir(rel, s.excludes) {
				return filepath.SkipDir
			}
			return nil
		}

		if match.Matches(rel, s.includes, s.excludes) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return paths, nil
}
