// Package config handles plasma.toml project configuration, mirroring
// package manifest's maggie.toml handling: same file-discovery walk, same
// TOML-to-struct approach, and the same directory-relative path helpers.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is a plasma.toml project configuration (SPEC_FULL.md §1).
type Config struct {
	Project  Project  `toml:"project"`
	Source   Source   `toml:"source"`
	Compiler Compiler `toml:"compiler"`
	Cache    Cache    `toml:"cache"`

	// Dir is the directory containing the plasma.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures source/module discovery.
type Source struct {
	Dirs  []string `toml:"dirs"`
	Entry string   `toml:"entry"`
}

// Compiler configures compile-time behavior.
type Compiler struct {
	DumpStages bool   `toml:"dump-stages"`
	DumpDir    string `toml:"dump-dir"`
	Variant    string `toml:"variant"` // "32" or "64"; empty means host word size
}

// Cache configures the sqlite-backed compile cache (package cache).
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

const fileName = "plasma.toml"

// Load parses a plasma.toml file from the given directory, validates it
// against the CUE schema in schema.go (Validate), and fills in defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %s: %w", path, err)
	}

	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("config: cannot resolve path %s: %w", dir, err)
	}

	if len(c.Source.Dirs) == 0 {
		c.Source.Dirs = []string{"src"}
	}
	if c.Cache.Path == "" {
		c.Cache.Path = filepath.Join(c.Dir, ".plasma", "cache.db")
	}
	if c.Compiler.DumpDir == "" {
		c.Compiler.DumpDir = filepath.Join(c.Dir, ".plasma", "dumps")
	}

	return &c, nil
}

// FindAndLoad walks up from startDir to find a plasma.toml file, then loads
// and returns it. Returns nil, nil if no config file is found anywhere on
// the way to the filesystem root.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, fileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (c *Config) SourceDirPaths() []string {
	paths := make([]string, 0, len(c.Source.Dirs))
	for _, d := range c.Source.Dirs {
		paths = append(paths, filepath.Join(c.Dir, d))
	}
	return paths
}

// CacheDBPath returns the absolute path to the compile-cache database.
func (c *Config) CacheDBPath() string {
	if filepath.IsAbs(c.Cache.Path) {
		return c.Cache.Path
	}
	return filepath.Join(c.Dir, c.Cache.Path)
}
