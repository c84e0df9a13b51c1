// Package domain implements the Herbrand-style type-constraint solver
// (spec.md §3.3, §4.7): solver variables and their domains, constraint
// literals and clauses, CNF normalisation, and the round-based solver loop.
// It has no dependency on any concrete source-language AST — spec.md §4.8
// documents the constraint grammar a caller (package typecheck) must honour,
// but generating that grammar from a real IR is that caller's job.
package domain

import "fmt"

// VarKind distinguishes the three solver-variable flavours spec.md §3.3
// names.
type VarKind uint8

const (
	// VarNamed identifies a user-visible program variable; its domain must
	// be ground by the time the solver accepts a solution.
	VarNamed VarKind = iota
	// VarAnon identifies a compiler-introduced temporary with no source
	// name; it may remain free without floundering the solve.
	VarAnon
	// VarTypeVar identifies a solver variable standing in for a source
	// type variable, distinct from VarNamed for the same reason: it may
	// remain free (e.g. an unconstrained polymorphic parameter).
	VarTypeVar
)

// Var is a solver variable (spec.md §3.3 "named(V), anon(n), or
// type_var(n)"). It is comparable so it can key a Store map directly.
type Var struct {
	Kind VarKind
	Name string // set for VarNamed and, for readability, VarTypeVar
	N    int    // set for VarAnon and VarTypeVar; distinguishes otherwise-identical vars
}

// Named returns the solver variable for a user-visible program variable.
func Named(name string) Var { return Var{Kind: VarNamed, Name: name} }

// Anon returns a fresh compiler-introduced solver variable. Callers
// typically get n from a monotonic counter (see TypeVarScope for the
// type-variable equivalent).
func Anon(n int) Var { return Var{Kind: VarAnon, N: n} }

// TypeVarOf returns the solver variable a scoped type-variable mapping
// interns a source type-variable name to.
func TypeVarOf(name string, n int) Var { return Var{Kind: VarTypeVar, Name: name, N: n} }

// key gives Var a total order so `var = var` literals can canonicalise
// which side is "lower" (spec.md §4.7.2) without depending on map
// iteration order or pointer identity.
func (v Var) key() string {
	return fmt.Sprintf("%d:%s:%d", v.Kind, v.Name, v.N)
}

// Less reports whether v sorts before w under the canonical ordering used
// to normalise `var = var` literals.
func (v Var) Less(w Var) bool { return v.key() < w.key() }

func (v Var) String() string {
	switch v.Kind {
	case VarNamed:
		return "named(" + v.Name + ")"
	case VarAnon:
		return fmt.Sprintf("anon(%d)", v.N)
	case VarTypeVar:
		return fmt.Sprintf("type_var(%s#%d)", v.Name, v.N)
	default:
		return fmt.Sprintf("Var(%d,%s,%d)", v.Kind, v.Name, v.N)
	}
}

// TypeVarScope implements the scoped type-variable mapping spec.md §4.7.1
// describes: source type-variable names are interned to solver variables
// within a declaration's scope, so `T` in one signature is never confused
// with `T` in another. Nesting is supported by snapshotting and restoring
// the mapping, matching `start_type_var_mapping` / `end_type_var_mapping`.
type TypeVarScope struct {
	counter *int
	mapping map[string]Var
}

// NewTypeVarScope returns a root scope backed by a fresh counter.
func NewTypeVarScope() *TypeVarScope {
	c := 0
	return &TypeVarScope{counter: &c, mapping: map[string]Var{}}
}

// Start snapshots the current mapping into a child scope; the counter is
// shared so type-variable ids stay globally unique across nested scopes.
func (s *TypeVarScope) Start() *TypeVarScope {
	child := make(map[string]Var, len(s.mapping))
	for k, v := range s.mapping {
		child[k] = v
	}
	return &TypeVarScope{counter: s.counter, mapping: child}
}

// GetOrMake interns name to a solver variable within this scope, minting a
// fresh one on first use.
func (s *TypeVarScope) GetOrMake(name string) Var {
	if v, ok := s.mapping[name]; ok {
		return v
	}
	*s.counter++
	v := TypeVarOf(name, *s.counter)
	s.mapping[name] = v
	return v
}

// FreshAnon mints a fresh anonymous solver variable, sharing this scope's
// counter so anon and type-var ids never collide across a single problem.
func (s *TypeVarScope) FreshAnon() Var {
	*s.counter++
	return Anon(*s.counter)
}
