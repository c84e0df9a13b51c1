package cache_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jimbxb/plasma/cache"
	"github.com/jimbxb/plasma/gc"
)

func openTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	c, err := cache.Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPutAndGetRoundTrips(t *testing.T) {
	c := openTestCache(t)
	key := cache.SourceHash([]byte("proc Main() { }"))
	stats := gc.HeapStats{Collections: 2, LiveWords: 128, Blocks: 3}

	if err := c.Put(key, "/tmp/out.pz", key, stats); err != nil {
		t.Fatalf("Put: %v", err)
	}

	e, err := c.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e.PZPath != "/tmp/out.pz" || e.Stats.Collections != 2 || e.Stats.Blocks != 3 {
		t.Fatalf("Get returned %#v, want matching entry", e)
	}
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	c := openTestCache(t)
	_, err := c.Get("does-not-exist")
	if !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("Get: err = %v, want ErrNotFound", err)
	}
}

func TestLookupBySourceBytes(t *testing.T) {
	c := openTestCache(t)
	src := []byte("proc Main() { }")
	key := cache.SourceHash(src)
	if err := c.Put(key, "/tmp/out.pz", key, gc.HeapStats{}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	e, ok, err := c.Lookup(src)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatalf("Lookup: expected a hit for previously-put source")
	}
	if e.PZPath != "/tmp/out.pz" {
		t.Fatalf("Lookup: PZPath = %q, want /tmp/out.pz", e.PZPath)
	}

	_, ok, err = c.Lookup([]byte("different source"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Fatalf("Lookup: expected a miss for unseen source")
	}
}

func TestDeleteRemovesEntry(t *testing.T) {
	c := openTestCache(t)
	key := cache.SourceHash([]byte("x"))
	if err := c.Put(key, "/tmp/x.pz", key, gc.HeapStats{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(key); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("Get after Delete: err = %v, want ErrNotFound", err)
	}
}

func TestAllReturnsEveryEntry(t *testing.T) {
	c := openTestCache(t)
	if err := c.Put("a", "/tmp/a.pz", "a", gc.HeapStats{}); err != nil {
		t.Fatalf("Put a: %v", err)
	}
	if err := c.Put("b", "/tmp/b.pz", "b", gc.HeapStats{}); err != nil {
		t.Fatalf("Put b: %v", err)
	}

	entries, err := c.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("All: len = %d, want 2", len(entries))
	}
}
