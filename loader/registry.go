package loader

import (
	"sync"

	"github.com/jimbxb/plasma/library"
)

// Registry tracks previously loaded libraries by name, so import resolution
// (spec.md §4.5 step 6) can look one up by module name. A single Registry is
// shared across every Load call for a program's transitive dependencies.
type Registry struct {
	mu   sync.RWMutex
	libs map[string]*library.Library
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{libs: make(map[string]*library.Library)}
}

// Get looks up a previously registered library by name.
func (r *Registry) Get(name string) (*library.Library, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lib, ok := r.libs[name]
	return lib, ok
}

// Register makes lib available to later Load calls under its own name.
// Re-registering the same name overwrites the previous entry.
func (r *Registry) Register(lib *library.Library) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.libs[lib.Name] = lib
}
