// Package cache implements the content-addressed compile cache
// (SPEC_FULL.md §1 "Compile cache"): a mapping from a source file's content
// hash to the path of a previously loaded/verified PZ module, backed by
// sqlite the same way lib/runtime/persistence.go backs instance storage.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jimbxb/plasma/gc"
)

// ErrNotFound indicates the requested cache key has no entry.
var ErrNotFound = errors.New("cache: not found")

// Entry is one cached compilation's result.
type Entry struct {
	Key        string
	PZPath     string
	SourceHash string
	CachedAt   time.Time
	Stats      gc.HeapStats
}

// Cache handles sqlite storage for compiled-module cache entries.
type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if necessary) the sqlite database at dbPath and
// ensures its schema exists.
func Open(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("cache: opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		key         TEXT PRIMARY KEY,
		pz_path     TEXT NOT NULL,
		source_hash TEXT NOT NULL,
		cached_at   INTEGER NOT NULL,
		collections INTEGER NOT NULL DEFAULT 0,
		live_words  INTEGER NOT NULL DEFAULT 0,
		blocks      INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// SourceHash returns the cache key for a source file's contents: the hex
// -encoded SHA-256 digest, matching the "source-hash" SPEC_FULL.md §1
// names as the cache's lookup key.
func SourceHash(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}

// Put records a compiled module's cache entry, replacing any existing
// entry under the same key.
func (c *Cache) Put(key, pzPath, sourceHash string, stats gc.HeapStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO entries
			(key, pz_path, source_hash, cached_at, collections, live_words, blocks)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		key, pzPath, sourceHash, timestamp(),
		stats.Collections, stats.LiveWords, stats.Blocks,
	)
	if err != nil {
		return fmt.Errorf("cache: writing entry %s: %w", key, err)
	}
	return nil
}

// Get looks up a cache entry by key, returning ErrNotFound if absent.
func (c *Cache) Get(key string) (Entry, error) {
	row := c.db.QueryRow(
		`SELECT key, pz_path, source_hash, cached_at, collections, live_words, blocks
		 FROM entries WHERE key = ?`, key,
	)

	var e Entry
	var cachedAt int64
	err := row.Scan(&e.Key, &e.PZPath, &e.SourceHash, &cachedAt,
		&e.Stats.Collections, &e.Stats.LiveWords, &e.Stats.Blocks)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("cache: querying entry %s: %w", key, err)
	}
	e.CachedAt = time.Unix(cachedAt, 0).UTC()
	return e, nil
}

// Lookup is a convenience wrapper for the common "is this source already
// compiled" check: it hashes src, looks up the entry, and reports whether
// one exists.
func (c *Cache) Lookup(src []byte) (Entry, bool, error) {
	e, err := c.Get(SourceHash(src))
	if errors.Is(err, ErrNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// Delete removes a cache entry by key.
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec("DELETE FROM entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("cache: deleting entry %s: %w", key, err)
	}
	return nil
}

// All returns every cache entry, for plzstat's ad-hoc inspection.
func (c *Cache) All() ([]Entry, error) {
	rows, err := c.db.Query(
		`SELECT key, pz_path, source_hash, cached_at, collections, live_words, blocks
		 FROM entries ORDER BY cached_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("cache: querying all entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var cachedAt int64
		if err := rows.Scan(&e.Key, &e.PZPath, &e.SourceHash, &cachedAt,
			&e.Stats.Collections, &e.Stats.LiveWords, &e.Stats.Blocks); err != nil {
			return nil, fmt.Errorf("cache: scanning entry: %w", err)
		}
		e.CachedAt = time.Unix(cachedAt, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// DB exposes the underlying database handle for plzstat's ad-hoc queries
// (SPEC_FULL.md §3.3: "a thin CLI wrapping database/sql against the same
// cache database").
func (c *Cache) DB() *sql.DB { return c.db }

func timestamp() int64 { return time.Now().Unix() }
