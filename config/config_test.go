package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jimbxb/plasma/config"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "plasma.toml"), []byte(body), 0o644); err != nil {
		t.Fatalf("writing plasma.toml: %v", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[project]
name = "demo"
`)

	c, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Source.Dirs) != 1 || c.Source.Dirs[0] != "src" {
		t.Fatalf("Source.Dirs = %v, want default [src]", c.Source.Dirs)
	}
	if c.CacheDBPath() == "" {
		t.Fatalf("CacheDBPath is empty after Load")
	}
}

func TestLoadRejectsMissingProjectName(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[source]
dirs = ["src"]
`)

	if _, err := config.Load(dir); err == nil {
		t.Fatalf("Load: expected a schema validation error for a missing project.name")
	}
}

func TestLoadRejectsBadVariant(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[project]
name = "demo"

[compiler]
variant = "16"
`)

	if _, err := config.Load(dir); err == nil {
		t.Fatalf("Load: expected a schema validation error for an unsupported compiler.variant")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[project]
name = "demo"
`)
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	c, err := config.FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if c == nil {
		t.Fatalf("FindAndLoad: expected to find plasma.toml at %s", root)
	}
	if c.Project.Name != "demo" {
		t.Fatalf("Project.Name = %q, want demo", c.Project.Name)
	}
}

func TestFindAndLoadReturnsNilWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	c, err := config.FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if c != nil {
		t.Fatalf("FindAndLoad: expected nil config, got %#v", c)
	}
}
