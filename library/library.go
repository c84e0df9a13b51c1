// Package library holds the loaded runtime entities a PZ module resolves
// into (spec.md §3.2) and the pre-sized arena (LibraryLoading,
// spec.md §4.4) the loader populates while a NoGCScope is open.
package library

import (
	"unsafe"

	"github.com/jimbxb/plasma/gc"
	"github.com/jimbxb/plasma/pzformat"
)

// DataItem is a loaded data entry: a GC-heap address for its payload plus
// enough shape information for the interpreter to interpret it.
type DataItem struct {
	Addr uintptr
	Kind pzformat.DataKind
	Len  int // payload size in bytes, so a consumer can bound a read without over-running the allocation
}

// ContextEntry maps a code offset to a source location, present only when
// the module was compiled with debug tracing enabled (spec.md §3.1 meta
// items, §3.2 "context table").
type ContextEntry struct {
	Offset  int
	HasFile bool
	File    int32 // data id of the filename string, valid when HasFile
	Line    int32
}

// Proc is a loaded procedure: its resolved code buffer plus the block
// byte-offset table computed by the loader's first pass and an optional
// debug context table (spec.md §3.2).
type Proc struct {
	Name         string
	Code         []byte
	BlockOffsets []int
	Context      []ContextEntry
}

// Closure is a loaded (code_ptr, env_ptr) pair (spec.md §3.2). CodePtr
// stands in for an absolute machine code pointer: since this port's
// interpreter dispatches procs by table index rather than by raw address,
// CodePtr is the target proc's index into Library.Procs. EnvPtr is the
// GC-heap address of the environment datum, or 0 if the closure captures
// no environment.
type Closure struct {
	CodePtr uint32
	EnvPtr  uintptr

	// Lib is the closure's owning Library, set once by loader.Load right
	// after Freeze returns that Library (a closure cannot point at its own
	// not-yet-constructed Library while LibraryLoading is still being
	// populated). The interpreter uses it to resolve CodePtr and any
	// import table a called closure's code references against the right
	// module, since a call can cross a module boundary.
	Lib *Library
}

// Addr returns c's identity as a machine word, the representation a
// closure-ref/import-ref data slot stores (spec.md §3.1). c is kept alive by
// its owning Library.Closures slice for as long as this word is in use,
// which is why taking its address this way is sound: nothing outlives its
// keeper the way it would with a raw pointer into GC-managed payload memory.
func (c *Closure) Addr() uintptr {
	return uintptr(unsafe.Pointer(c))
}

// Export binds an exported name to a local closure (spec.md §3.2).
type Export struct {
	ID      uint32
	Closure *Closure
}

// ResolvedImport is an import request resolved against a previously
// loaded library's export table (spec.md §4.5 step 6).
type ResolvedImport struct {
	Module string
	Symbol string
	Export *Export
}

// EntryPoint is the optional program entry point recorded from the
// ENTRY_CLOSURE option (spec.md §3.1, §4.5 step 14).
type EntryPoint struct {
	Signature pzformat.EntrySignature
	Closure   *Closure
}

// Library is a fully loaded, frozen module (spec.md §3.2).
type Library struct {
	Name     string
	Variant  pzformat.Variant
	Names    []string
	Structs  []pzformat.Struct
	Datas    []DataItem
	Procs    []*Proc
	Closures []*Closure
	Imports  []*ResolvedImport

	// Exports is keyed by "module.symbol" so cross-module import lookups
	// (spec.md §4.5 step 6) are a single map access.
	Exports map[string]*Export

	Entry *EntryPoint
}

// Export looks up a fully-qualified "module.symbol" export.
func (l *Library) Export(qualifiedName string) (*Export, bool) {
	e, ok := l.Exports[qualifiedName]
	return e, ok
}

// LibraryLoading is the pre-sized arena a load populates in file order
// (spec.md §4.4). It must be constructed inside a NoGCScope and never
// triggers a collection while being filled; only Freeze, itself called
// inside a second NoGCScope (spec.md §4.5 step 14), turns it into an
// immutable Library.
type LibraryLoading struct {
	Structs  []pzformat.Struct
	Datas    []DataItem
	Procs    []*Proc
	Closures []*Closure
	Imports  []*ResolvedImport

	scope *gc.NoGCScope
}

// NewLibraryLoading pre-sizes every arena to the counts read from the file
// header (spec.md §4.5 step 4-5). scope must already be open.
func NewLibraryLoading(scope *gc.NoGCScope, numStructs, numDatas, numProcs, numClosures, numImports int) *LibraryLoading {
	ll := &LibraryLoading{
		Structs:  make([]pzformat.Struct, numStructs),
		Datas:    make([]DataItem, numDatas),
		Procs:    make([]*Proc, numProcs),
		Closures: make([]*Closure, numClosures),
		Imports:  make([]*ResolvedImport, numImports),
		scope:    scope,
	}
	// Closures are pre-allocated (not just pre-sized) so a data entry loaded
	// before the closure section (spec.md §4.5 steps 8 vs 11) can already
	// take a stable Addr() for a closure-ref slot; step 11 only fills in
	// CodePtr/EnvPtr on the same object.
	for i := range ll.Closures {
		ll.Closures[i] = &Closure{}
	}
	return ll
}

// Scope returns the NoGCScope this arena was constructed under, so the
// loader can allocate data payloads through it.
func (ll *LibraryLoading) Scope() *gc.NoGCScope { return ll.scope }

// Freeze produces the immutable Library once every slot has been
// populated (spec.md §4.5 step 14).
func (ll *LibraryLoading) Freeze(name string, variant pzformat.Variant, names []string, exports map[string]*Export, entry *EntryPoint) *Library {
	return &Library{
		Name:     name,
		Variant:  variant,
		Names:    names,
		Structs:  ll.Structs,
		Datas:    ll.Datas,
		Procs:    ll.Procs,
		Closures: ll.Closures,
		Imports:  ll.Imports,
		Exports:  exports,
		Entry:    entry,
	}
}
