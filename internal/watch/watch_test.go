package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherRequiresCallback(t *testing.T) {
	_, err := New(Config{Dirs: []string{t.TempDir()}})
	if err == nil {
		t.Fatal("expected error without OnChange")
	}
}

func TestWatcherFiresOnWrite(t *testing.T) {
	dir := t.TempDir()

	changed := make(chan []string, 1)
	w, err := New(Config{
		Dirs:     []string{dir},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, paths []string) {
			select {
			case changed <- paths:
			default:
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "a.ts")
	if err := os.WriteFile(path, []byte("export const a = 1;"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changed:
		found := false
		for _, p := range paths {
			if p == path {
				found = true
			}
		}
		if !found {
			t.Errorf("changed paths %v do not include %s", paths, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never fired")
	}
}

func TestWatcherBatchesBursts(t *testing.T) {
	dir := t.TempDir()

	calls := make(chan int, 8)
	w, err := New(Config{
		Dirs:     []string{dir},
		Debounce: 200 * time.Millisecond,
		OnChange: func(_ context.Context, paths []string) {
			calls <- len(paths)
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)

	for _, name := range []string{"a.ts", "b.ts", "c.ts"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case n := <-calls:
		if n < 1 {
			t.Errorf("first batch had %d paths", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never fired")
	}
}
