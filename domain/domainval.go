package domain

import (
	"fmt"
	"sort"
)

// Resources is a function domain's resource signature (spec.md §3.3):
// either `unknown` or a concrete used/observed resource-name set.
type Resources struct {
	Known    bool
	Used     map[string]struct{}
	Observed map[string]struct{}
}

// UnknownResources is the `unknown` resource signature.
func UnknownResources() Resources { return Resources{} }

// KnownResources builds a concrete resource signature from name slices.
func KnownResources(used, observed []string) Resources {
	r := Resources{Known: true, Used: map[string]struct{}{}, Observed: map[string]struct{}{}}
	for _, u := range used {
		r.Used[u] = struct{}{}
	}
	for _, o := range observed {
		r.Observed[o] = struct{}{}
	}
	return r
}

// unify implements spec.md §3.3's resource-unification invariant: unifying
// a ground func domain with an unknown resource set yields the other
// side's set; unifying two known sets unions used/observed.
func (r Resources) unify(other Resources) Resources {
	if !r.Known {
		return other
	}
	if !other.Known {
		return r
	}
	return KnownResources(unionKeys(r.Used, other.Used), unionKeys(r.Observed, other.Observed))
}

func (r Resources) equal(other Resources) bool {
	if r.Known != other.Known {
		return false
	}
	if !r.Known {
		return true
	}
	return setEqual(r.Used, other.Used) && setEqual(r.Observed, other.Observed)
}

func unionKeys(a, b map[string]struct{}) []string {
	seen := map[string]struct{}{}
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// Domain is a solved (or partially solved) type shape (spec.md §3.3). Like
// Type, it is a closed tagged union dispatched by Go's own type switch.
type Domain interface {
	isDomain()
}

// FreeDomain is the unbound domain every solver variable starts at.
type FreeDomain struct{}

func (FreeDomain) isDomain() {}

// BuiltinDomain pins a variable to one of the scalar built-in types.
type BuiltinDomain struct {
	Kind BuiltinKind
}

func (BuiltinDomain) isDomain() {}

// TypeDomain is `type(id, [domain])`. Args are snapshotted from the
// argument solver variables' own domains at the point of unification (see
// solver.go's evalVarEqUserType); this is what makes the representation
// Herbrand-style rather than a plain union-find over opaque domain values —
// a type domain's shape is only ever as concrete as the variables it was
// built from, and each solver round re-derives it from their latest state.
type TypeDomain struct {
	ID   string
	Args []Domain
}

func (TypeDomain) isDomain() {}

// FuncDomain is `func(inputs, outputs, resources)`.
type FuncDomain struct {
	Inputs, Outputs []Domain
	Resources       Resources
}

func (FuncDomain) isDomain() {}

// UnivVarDomain is `univ_var(name)` — a rigid (universally quantified)
// type variable that only unifies with an identically named one.
type UnivVarDomain struct {
	Name string
}

func (UnivVarDomain) isDomain() {}

// IsGround reports whether d contains no FreeDomain transitively (spec.md
// §3.3's "ground" vs "bound-with-holes-or-free" groundness classification).
func IsGround(d Domain) bool {
	switch t := d.(type) {
	case FreeDomain:
		return false
	case BuiltinDomain, UnivVarDomain:
		return true
	case TypeDomain:
		for _, a := range t.Args {
			if !IsGround(a) {
				return false
			}
		}
		return true
	case FuncDomain:
		for _, a := range t.Inputs {
			if !IsGround(a) {
				return false
			}
		}
		for _, a := range t.Outputs {
			if !IsGround(a) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Equal reports structural equality of two domains, used to detect whether
// a unification actually changed anything (spec.md §4.7.3's "at least one
// domain was updated").
func Equal(a, b Domain) bool {
	switch av := a.(type) {
	case FreeDomain:
		_, ok := b.(FreeDomain)
		return ok
	case BuiltinDomain:
		bv, ok := b.(BuiltinDomain)
		return ok && av.Kind == bv.Kind
	case UnivVarDomain:
		bv, ok := b.(UnivVarDomain)
		return ok && av.Name == bv.Name
	case TypeDomain:
		bv, ok := b.(TypeDomain)
		if !ok || av.ID != bv.ID || len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			if !Equal(av.Args[i], bv.Args[i]) {
				return false
			}
		}
		return true
	case FuncDomain:
		bv, ok := b.(FuncDomain)
		if !ok || len(av.Inputs) != len(bv.Inputs) || len(av.Outputs) != len(bv.Outputs) {
			return false
		}
		for i := range av.Inputs {
			if !Equal(av.Inputs[i], bv.Inputs[i]) {
				return false
			}
		}
		for i := range av.Outputs {
			if !Equal(av.Outputs[i], bv.Outputs[i]) {
				return false
			}
		}
		return av.Resources.equal(bv.Resources)
	default:
		return false
	}
}

// UnifyStatus records how strongly a unification progressed (spec.md
// §4.7.5): status ordering when aggregating over several sub-unifications
// is new > delayed > old.
type UnifyStatus uint8

const (
	StatusOld UnifyStatus = iota
	StatusDelayed
	StatusNew
)

func strongest(a, b UnifyStatus) UnifyStatus {
	if a > b {
		return a
	}
	return b
}

// UnifyDomains implements spec.md §4.7.5's domain-unification table.
func UnifyDomains(d1, d2 Domain) (Domain, UnifyStatus, error) {
	switch a := d1.(type) {
	case FreeDomain:
		if _, ok := d2.(FreeDomain); ok {
			return FreeDomain{}, StatusDelayed, nil
		}
		return d2, StatusNew, nil
	default:
		if _, ok := d2.(FreeDomain); ok {
			return d1, StatusNew, nil
		}
		return unifyBound(a, d2)
	}
}

func unifyBound(a Domain, d2 Domain) (Domain, UnifyStatus, error) {
	switch av := a.(type) {
	case BuiltinDomain:
		bv, ok := d2.(BuiltinDomain)
		if !ok || av.Kind != bv.Kind {
			return nil, 0, fmt.Errorf("domain: builtin %s does not unify with %v", av.Kind, d2)
		}
		return av, StatusOld, nil
	case UnivVarDomain:
		bv, ok := d2.(UnivVarDomain)
		if !ok || av.Name != bv.Name {
			return nil, 0, fmt.Errorf("domain: univ_var %q does not unify with %v", av.Name, d2)
		}
		return av, StatusOld, nil
	case TypeDomain:
		bv, ok := d2.(TypeDomain)
		if !ok || av.ID != bv.ID || len(av.Args) != len(bv.Args) {
			return nil, 0, fmt.Errorf("domain: type(%s,%d) does not unify with %v", av.ID, len(av.Args), d2)
		}
		return unifyType(av, bv)
	case FuncDomain:
		bv, ok := d2.(FuncDomain)
		if !ok || len(av.Inputs) != len(bv.Inputs) || len(av.Outputs) != len(bv.Outputs) {
			return nil, 0, fmt.Errorf("domain: func/%d->%d does not unify with %v", len(av.Inputs), len(av.Outputs), d2)
		}
		return unifyFunc(av, bv)
	default:
		return nil, 0, fmt.Errorf("domain: unrecognised domain %v", a)
	}
}

func unifyType(av, bv TypeDomain) (Domain, UnifyStatus, error) {
	status := StatusOld
	changed := false
	args := make([]Domain, len(av.Args))
	for i := range av.Args {
		merged, st, err := UnifyDomains(av.Args[i], bv.Args[i])
		if err != nil {
			return nil, 0, fmt.Errorf("domain: type(%s) arg %d: %w", av.ID, i, err)
		}
		if !Equal(merged, av.Args[i]) {
			changed = true
		}
		args[i] = merged
		status = strongest(status, st)
	}
	if !changed {
		return av, status, nil
	}
	return TypeDomain{ID: av.ID, Args: args}, status, nil
}

func unifyFunc(av, bv FuncDomain) (Domain, UnifyStatus, error) {
	status := StatusOld
	ins := make([]Domain, len(av.Inputs))
	for i := range av.Inputs {
		merged, st, err := UnifyDomains(av.Inputs[i], bv.Inputs[i])
		if err != nil {
			return nil, 0, fmt.Errorf("domain: func input %d: %w", i, err)
		}
		ins[i] = merged
		status = strongest(status, st)
	}
	outs := make([]Domain, len(av.Outputs))
	for i := range av.Outputs {
		merged, st, err := UnifyDomains(av.Outputs[i], bv.Outputs[i])
		if err != nil {
			return nil, 0, fmt.Errorf("domain: func output %d: %w", i, err)
		}
		outs[i] = merged
		status = strongest(status, st)
	}
	// Function domains always propagate with delay (spec.md §4.7.5):
	// higher-order calls only learn their true resource signature late,
	// so a func unification is never allowed to look "settled" to the
	// outer round-progress check even when every component already
	// matched exactly.
	return FuncDomain{Inputs: ins, Outputs: outs, Resources: av.Resources.unify(bv.Resources)}, StatusDelayed, nil
}
