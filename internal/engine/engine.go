// Package engine drives scan passes and owns the synthesized virtual module:
// scanning, cached extraction, aggregation, synthesis, and the narrow
// resolve/load/invalidate surface a host build tool consumes.
package engine

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"lukechampine.com/blake3"

	"github.com/EnoughXP/triggerkit/internal/cache"
	"github.com/EnoughXP/triggerkit/internal/config"
	"github.com/EnoughXP/triggerkit/internal/declgen"
	"github.com/EnoughXP/triggerkit/internal/envimport"
	"github.com/EnoughXP/triggerkit/internal/extract"
	"github.com/EnoughXP/triggerkit/internal/match"
	"github.com/EnoughXP/triggerkit/internal/scan"
	"github.com/EnoughXP/triggerkit/internal/synth"
)

// resolvedPrefix marks a resolved virtual module id, following the host
// convention for virtual modules.
const resolvedPrefix = "\x00"

// Engine owns the aggregate export set and its derived artifacts. One scan
// pass runs at a time; a new request supersedes any in-flight pass rather
// than interleaving with it.
type Engine struct {
	cfg      config.Config
	log      *slog.Logger
	cache    *cache.Cache
	trans    *envimport.Transformer
	scanner  *scan.Scanner
	parallel int

	// inflight cancels the current pass so a newer request can supersede it.
	inflight atomic.Pointer[context.CancelFunc]

	mu         sync.Mutex
	generated  bool
	moduleText string
	declText   string
	digest     string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for all file- and pass-scoped warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithParallelism caps the file-read fan-out width.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallel = n
		}
	}
}

// New creates an Engine for the given configuration. The cache lives under
// cfg.CacheDir unless caching is disabled, in which case an in-memory cache
// is used and every pass re-extracts.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		log:      slog.Default(),
		trans:    envimport.New(),
		parallel: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.scanner = scan.New(cfg.IncludePatterns, cfg.ExcludePatterns, e.log)

	var (
		c   *cache.Cache
		err error
	)
	if cfg.DisableCache {
		c, err = cache.OpenMemory()
	} else {
		c, err = cache.Open(cfg.CacheDir)
	}
	if err != nil {
		return nil, fmt.Errorf("opening extraction cache: %w", err)
	}
	e.cache = c

	return e, nil
}

// Close releases the cache.
func (e *Engine) Close() error {
	return e.cache.Close()
}

// Summary reports what a pass did.
type Summary struct {
	FilesScanned      int
	CacheHits         int
	Exports           int
	EnvVars           int
	DuplicatesDropped int
	ModuleChanged     bool
}

// Resolve reports whether this engine owns the requested module identifier.
func (e *Engine) Resolve(id string) bool {
	return id == e.cfg.VirtualModuleID || id == resolvedPrefix+e.cfg.VirtualModuleID
}

// Load returns the current synthesized module text for an owned identifier,
// generating it first if no pass has completed yet. A consumer sees either a
// complete previous generation or a complete new one, never a partial.
func (e *Engine) Load(ctx context.Context, id string) (string, error) {
	if !e.Resolve(id) {
		return "", fmt.Errorf("module %q is not owned by triggerkit", id)
	}

	e.mu.Lock()
	if e.generated {
		text := e.moduleText
		e.mu.Unlock()
		return text, nil
	}
	e.mu.Unlock()

	if _, err := e.Generate(ctx); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.moduleText, nil
}

// Invalidate handles a changed file path: if the path can contribute to the
// aggregate set (or previously did), the engine re-runs a pass — cheap for
// all unchanged files — and reports whether the module text actually
// changed, so the host knows whether to propagate a reload.
func (e *Engine) Invalidate(ctx context.Context, path string) (bool, error) {
	if !e.ownsPath(path) {
		if _, cached, err := e.cache.Digest(path); err != nil || !cached {
			return false, err
		}
	}

	summary, err := e.Generate(ctx)
	if err != nil {
		return false, err
	}
	return summary.ModuleChanged, nil
}

// ownsPath reports whether path falls under a configured include directory
// and matches the include/exclude patterns.
func (e *Engine) ownsPath(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, root := range e.cfg.IncludeDirs {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absRoot, abs)
		if err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator) {
			continue
		}
		if match.Matches(rel, e.cfg.IncludePatterns, e.cfg.ExcludePatterns) {
			return true
		}
	}
	return false
}

// ModuleText returns the last complete generation, or "" before the first.
func (e *Engine) ModuleText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.moduleText
}

// DeclarationText returns the last complete declaration generation.
func (e *Engine) DeclarationText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.declText
}

// ModuleDigest returns the blake3 digest of the current module text.
func (e *Engine) ModuleDigest() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.digest
}

// TransformSource returns the env-import-rewritten text of one source file,
// for hosts that serve transformed copies of re-exported files.
func (e *Engine) TransformSource(ctx context.Context, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return e.trans.Transform(ctx, content)
}

// Generate runs one full scan/extract/synthesize pass. Any in-flight pass is
// cancelled first; the aggregate set and artifacts are replaced only once
// the pass runs to completion.
func (e *Engine) Generate(ctx context.Context) (*Summary, error) {
	passCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if prev := e.inflight.Swap(&cancel); prev != nil {
		(*prev)()
	}
	defer e.inflight.CompareAndSwap(&cancel, nil)

	e.mu.Lock()
	defer e.mu.Unlock()

	candidates, err := e.scanner.Scan(e.cfg.IncludeDirs)
	if err != nil {
		return nil, fmt.Errorf("scanning include directories: %w", err)
	}

	results, hits, err := e.extractAll(passCtx, candidates)
	if err != nil {
		return nil, err
	}

	if _, err := e.cache.Prune(candidates); err != nil {
		e.log.Warn("cache prune failed", "error", err)
	}

	items, envVars, duplicates := e.aggregate(candidates, results)

	moduleText, err := synth.Synthesize(items, envVars, e.cfg.ExportStrategy)
	if err != nil {
		// Synthesis failures leave the previous generation (and the cache)
		// intact; the host sees a load error for this module only.
		return nil, fmt.Errorf("synthesizing virtual module: %w", err)
	}
	declText := declgen.Emit(items, envVars, e.cfg.ExportStrategy)

	sum := blake3.Sum256([]byte(moduleText))
	digest := hex.EncodeToString(sum[:])
	changed := digest != e.digest

	e.moduleText = moduleText
	e.declText = declText
	e.digest = digest
	e.generated = true

	if e.cfg.DeclarationPath != "" {
		if err := os.WriteFile(e.cfg.DeclarationPath, []byte(declText), 0644); err != nil {
			e.log.Warn("writing declaration file failed", "path", e.cfg.DeclarationPath, "error", err)
		}
	}

	return &Summary{
		FilesScanned:      len(candidates),
		CacheHits:         hits,
		Exports:           len(items),
		EnvVars:           len(envVars),
		DuplicatesDropped: duplicates,
		ModuleChanged:     changed,
	}, nil
}

// extractAll fans out stat/read/extract across candidates and joins before
// returning. Slots in the result slice line up with candidates, so the
// completion order of the fan-out never affects aggregation.
func (e *Engine) extractAll(ctx context.Context, candidates []string) ([]*extract.Result, int, error) {
	results := make([]*extract.Result, len(candidates))
	var hits atomic.Int64

	extractors := make(chan *extract.Extractor, e.parallel)
	for i := 0; i < e.parallel; i++ {
		extractors <- extract.New()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallel)

	for i, path := range candidates {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			info, err := os.Stat(path)
			if err != nil {
				e.log.Warn("cannot stat file, contributing no exports", "path", path, "error", err)
				results[i] = &extract.Result{}
				return nil
			}

			if res, ok, err := e.cache.Lookup(path, info); err == nil && ok {
				results[i] = res
				hits.Add(1)
				return nil
			} else if err != nil {
				e.log.Warn("cache lookup failed", "path", path, "error", err)
			}

			content, err := os.ReadFile(path)
			if err != nil {
				e.log.Warn("cannot read file, contributing no exports", "path", path, "error", err)
				results[i] = &extract.Result{}
				return nil
			}

			ex := <-extractors
			res, err := ex.Extract(gctx, content, path)
			extractors <- ex
			if err != nil {
				e.log.Warn("extraction failed, contributing no exports", "path", path, "error", err)
				res = &extract.Result{}
			}
			results[i] = res

			sum := blake3.Sum256(content)
			if err := e.cache.Put(path, info, hex.EncodeToString(sum[:]), res); err != nil {
				e.log.Warn("cache store failed", "path", path, "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return results, int(hits.Load()), nil
}

// aggregate folds per-file results into the ordered aggregate export set,
// applying kind filtering and the first-discovered-wins duplicate policy.
// Env-var names share one namespace with export names: a collision between
// the two drops the later discovery, so synthesis never binds a name twice.
func (e *Engine) aggregate(candidates []string, results []*extract.Result) ([]*extract.Item, []string, int) {
	var (
		items      []*extract.Item
		envVars    []string
		duplicates int
	)
	owner := map[string]string{}
	envSeen := map[string]bool{}

	for i, res := range results {
		if res == nil {
			continue
		}
		for _, item := range res.Items {
			if !e.kindIncluded(item.Kind) {
				continue
			}
			if prev, taken := owner[item.Name]; taken {
				duplicates++
				e.log.Warn("duplicate export name, keeping first discovery",
					"name", item.Name, "kept", prev, "dropped", candidates[i])
				continue
			}
			owner[item.Name] = item.File
			items = append(items, item)
		}
		for _, name := range res.EnvVars {
			if envSeen[name] {
				continue
			}
			if prev, taken := owner[name]; taken {
				duplicates++
				e.log.Warn("env var name conflicts with an exported declaration, keeping first discovery",
					"name", name, "kept", prev, "dropped", candidates[i])
				continue
			}
			owner[name] = candidates[i]
			envSeen[name] = true
			envVars = append(envVars, name)
		}
	}
	return items, envVars, duplicates
}

func (e *Engine) kindIncluded(k extract.Kind) bool {
	switch k {
	case extract.KindFunction:
		return e.cfg.IncludeKinds.Functions
	case extract.KindClass:
		return e.cfg.IncludeKinds.Classes
	case extract.KindConstant:
		return e.cfg.IncludeKinds.Constants
	}
	return false
}
