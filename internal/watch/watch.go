// Package watch monitors the include directories and fires a debounced
// callback with the set of changed paths, so the engine can invalidate and
// regenerate without a manual rerun.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// Config configures a Watcher.
type Config struct {
	// Dirs are the roots to monitor recursively. Missing roots are skipped.
	Dirs []string
	// Debounce batches rapid event bursts into one callback.
	Debounce time.Duration
	// OnChange receives the deduplicated changed paths of one burst.
	OnChange func(ctx context.Context, paths []string)
	Logger   *slog.Logger
}

// Watcher wraps an fsnotify watcher with recursive registration and
// debounced dispatch. Run blocks until the context is cancelled.
type Watcher struct {
	cfg Config
	fsw *fsnotify.Watcher
	log *slog.Logger
}

// New creates a Watcher and registers all subdirectories of every root.
func New(cfg Config) (*Watcher, error) {
	if cfg.OnChange == nil {
		return nil, fmt.Errorf("watch: OnChange callback is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{cfg: cfg, fsw: fsw, log: logger}
	for _, dir := range cfg.Dirs {
		if err := w.addRecursive(dir); err != nil {
			w.log.Warn("cannot watch directory", "dir", dir, "error", err)
		}
	}
	return w, nil
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) addRecursive(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	return filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if addErr := w.fsw.Add(path); addErr != nil {
				w.log.Warn("cannot watch subdirectory", "dir", path, "error", addErr)
			}
		}
		return nil
	})
}

// Run processes filesystem events until ctx is cancelled. Newly created
// directories are registered on the fly; write/create/rename/remove events
// accumulate into a pending set flushed after the debounce window.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		mu      sync.Mutex
		pending = map[string]struct{}{}
		timer   *time.Timer
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		mu.Lock()
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		pending = map[string]struct{}{}
		mu.Unlock()

		if len(paths) > 0 {
			w.cfg.OnChange(ctx, paths)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				// Descend into directories created after startup.
				if err := w.addRecursive(event.Name); err != nil {
					w.log.Warn("cannot watch created path", "path", event.Name, "error", err)
				}
			}

			mu.Lock()
			pending[event.Name] = struct{}{}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.cfg.Debounce, fire)
			mu.Unlock()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)
		}
	}
}
