package match

import "testing"

func TestMatchesInclude(t *testing.T) {
	includes := []string{"**/*.{ts,tsx}"}
	excludes := []string{"**/*.test.ts", "**/node_modules/**"}

	cases := []struct {
		path string
		want bool
	}{
		{"src/lib/tasks.ts", true},
		{"src/components/Button.tsx", true},
		{"src/lib/tasks.test.ts", false},
		{"node_modules/pkg/index.ts", false},
		{"src/node_modules/pkg/index.ts", false},
		{"src/lib/tasks.js", false},
		{"README.md", false},
	}

	for _, tc := range cases {
		if got := Matches(tc.path, includes, excludes); got != tc.want {
			t.Errorf("Matches(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestMatchesNoIncludes(t *testing.T) {
	if Matches("src/a.ts", nil, nil) {
		t.Error("empty include set should match nothing")
	}
}

func TestMalformedPatternNeverMatches(t *testing.T) {
	if Matches("src/a.ts", []string{"[unclosed"}, nil) {
		t.Error("malformed include pattern must not match")
	}
	// A malformed exclude must not hide files matched by a valid include.
	if !Matches("src/a.ts", []string{"**/*.ts"}, []string{"[unclosed"}) {
		t.Error("malformed exclude pattern must be ignored")
	}
}

func TestExcludedDir(t *testing.T) {
	excludes := []string{"**/node_modules/**", "dist", ".svelte-kit/**"}

	cases := []struct {
		dir  string
		want bool
	}{
		{"node_modules", true},
		{"src/node_modules", true},
		{"dist", true},
		{".svelte-kit", true},
		{"src/lib", false},
		{"src", false},
	}

	for _, tc := range cases {
		if got := ExcludedDir(tc.dir, excludes); got != tc.want {
			t.Errorf("ExcludedDir(%q) = %v, want %v", tc.dir, got, tc.want)
		}
	}
}

func TestBackslashPathsNormalized(t *testing.T) {
	if !Matches(`src\lib\tasks.ts`, []string{"src/**/*.ts"}, nil) {
		t.Error("windows-style separators should be normalized before matching")
	}
}
