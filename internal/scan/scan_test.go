package scan

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScanMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "tasks.ts"), "export const a = 1;")
	writeFile(t, filepath.Join(dir, "src", "lib", "mail.ts"), "export const b = 2;")
	writeFile(t, filepath.Join(dir, "src", "notes.md"), "nope")
	writeFile(t, filepath.Join(dir, "src", "tasks.test.ts"), "test file")

	s := New([]string{"**/*.ts"}, []string{"**/*.test.ts"}, nil)
	got, err := s.Scan([]string{dir})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	want := []string{
		filepath.Join(dir, "src", "lib", "mail.ts"),
		filepath.Join(dir, "src", "tasks.ts"),
	}
	sort.Strings(want)

	if len(got) != len(want) {
		t.Fatalf("got %d paths %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("path[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestScanPrunesExcludedDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "node_modules", "pkg", "index.ts"), "export const x = 1;")
	writeFile(t, filepath.Join(dir, "src", "a.ts"), "export const a = 1;")

	s := New([]string{"**/*.ts"}, []string{"**/node_modules/**"}, nil)
	got, err := s.Scan([]string{dir})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 path, got %v", got)
	}
	if filepath.Base(got[0]) != "a.ts" {
		t.Errorf("unexpected candidate %q", got[0])
	}
}

func TestScanMissingRootIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.ts"), "export const a = 1;")

	s := New([]string{"**/*.ts"}, nil, nil)
	got, err := s.Scan([]string{filepath.Join(dir, "does-not-exist"), dir})
	if err != nil {
		t.Fatalf("Scan must not fail on a missing root: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 path, got %v", got)
	}
}

func TestScanStableOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.ts"), "export const b = 1;")
	writeFile(t, filepath.Join(dir, "a.ts"), "export const a = 1;")
	writeFile(t, filepath.Join(dir, "c.ts"), "export const c = 1;")

	s := New([]string{"**/*.ts"}, nil, nil)
	first, err := s.Scan([]string{dir})
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Scan([]string{dir})
	if err != nil {
		t.Fatal(err)
	}

	if !sort.StringsAreSorted(first) {
		t.Errorf("scan output not sorted: %v", first)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("scan order unstable at %d: %q vs %q", i, first[i], second[i])
		}
	}
}
