// Package cache persists per-file extraction results keyed by path with a
// (size, mtime) freshness marker and a blake3 content digest, so repeated
// scan passes skip re-reading unchanged files.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/EnoughXP/triggerkit/internal/extract"
)

// Cache is an explicitly owned store with its own construction/reset
// lifecycle; one scan pass owns it at a time.
type Cache struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

const schema = `
CREATE TABLE IF NOT EXISTS extract_cache (
	path TEXT PRIMARY KEY,
	size INTEGER NOT NULL,
	mtime INTEGER NOT NULL,
	digest TEXT NOT NULL,
	payload BLOB NOT NULL
);
`

// Open opens or creates the cache database at {baseDir}/.triggerkit/cache.db.
func Open(baseDir string) (*Cache, error) {
	cacheDir := filepath.Join(baseDir, ".triggerkit")
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return open(filepath.Join(cacheDir, "cache.db"))
}

// OpenMemory opens a throwaway in-memory cache, used by tests and by runs
// with caching disabled.
func OpenMemory() (*Cache, error) {
	return open(":memory:")
}

func open(dsn string) (*Cache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying cache schema: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db, enc: enc, dec: dec}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	c.enc.Close()
	c.dec.Close()
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Lookup returns the cached extraction result for path if the stored
// (size, mtime) marker matches the live file info. A stale or missing entry
// returns ok = false without touching file content.
func (c *Cache) Lookup(path string, info os.FileInfo) (*extract.Result, bool, error) {
	var size, mtime int64
	var payload []byte
	err := c.db.QueryRow(
		"SELECT size, mtime, payload FROM extract_cache WHERE path = ?", path,
	).Scan(&size, &mtime, &payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup for %s: %w", path, err)
	}

	if size != info.Size() || mtime != info.ModTime().UnixNano() {
		return nil, false, nil
	}

	res, err := c.decode(payload)
	if err != nil {
		// A corrupt payload behaves like a miss; the pass re-extracts and
		// overwrites it.
		return nil, false, nil
	}
	return res, true, nil
}

// Digest returns the stored content digest for path, if any.
func (c *Cache) Digest(path string) (string, bool, error) {
	var digest string
	err := c.db.QueryRow(
		"SELECT digest FROM extract_cache WHERE path = ?", path,
	).Scan(&digest)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return digest, true, nil
}

// Put stores a freshly extracted result, replacing any previous entry for
// the path wholesale.
func (c *Cache) Put(path string, info os.FileInfo, digest string, res *extract.Result) error {
	payload, err := c.encode(res)
	if err != nil {
		return err
	}
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO extract_cache (path, size, mtime, digest, payload)
		 VALUES (?, ?, ?, ?, ?)`,
		path, info.Size(), info.ModTime().UnixNano(), digest, payload,
	)
	if err != nil {
		return fmt.Errorf("cache put for %s: %w", path, err)
	}
	return nil
}

// Prune deletes every entry whose path is not in the current candidate set,
// so renamed or newly excluded files cannot leak stale exports into later
// passes. Returns the number of evicted entries.
func (c *Cache) Prune(keep []string) (int, error) {
	keepSet := make(map[string]bool, len(keep))
	for _, p := range keep {
		keepSet[p] = true
	}

	rows, err := c.db.Query("SELECT path FROM extract_cache")
	if err != nil {
		return 0, err
	}
	var stale []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return 0, err
		}
		if !keepSet[p] {
			stale = append(stale, p)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, p := range stale {
		if _, err := c.db.Exec("DELETE FROM extract_cache WHERE path = ?", p); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

// Remove deletes a single entry.
func (c *Cache) Remove(path string) error {
	_, err := c.db.Exec("DELETE FROM extract_cache WHERE path = ?", path)
	return err
}

// Clear removes all entries.
func (c *Cache) Clear() error {
	_, err := c.db.Exec("DELETE FROM extract_cache")
	return err
}

// Stats reports cache size.
type Stats struct {
	TotalEntries int64
}

func (c *Cache) Stats() (*Stats, error) {
	var count int64
	if err := c.db.QueryRow("SELECT COUNT(*) FROM extract_cache").Scan(&count); err != nil {
		return nil, err
	}
	return &Stats{TotalEntries: count}, nil
}

func (c *Cache) encode(res *extract.Result) ([]byte, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encoding cache payload: %w", err)
	}
	return c.enc.EncodeAll(raw, nil), nil
}

func (c *Cache) decode(payload []byte) (*extract.Result, error) {
	raw, err := c.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, err
	}
	var res extract.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
