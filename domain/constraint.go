package domain

// constraintKind tags a Constraint's shape (spec.md §3.3 "literal,
// conjunction, or disjunction").
type constraintKind uint8

const (
	ckLiteral constraintKind = iota
	ckConj
	ckDisj
)

// Constraint is the nested tree §4.7.1's problem construction builds,
// before CNF normalisation flattens it into clauses.
type Constraint struct {
	kind constraintKind
	lit  Literal
	sub  []Constraint
}

// Lit wraps a single literal as a Constraint leaf.
func Lit(l Literal) Constraint { return Constraint{kind: ckLiteral, lit: l} }

// And builds a conjunction of sub-constraints.
func And(cs ...Constraint) Constraint { return Constraint{kind: ckConj, sub: cs} }

// Or builds a disjunction of sub-constraints, exactly one of which must
// hold (spec.md §4.7.4's single-answer semantics).
func Or(cs ...Constraint) Constraint { return Constraint{kind: ckDisj, sub: cs} }

// Clause is a CNF clause: a disjunction of literals. A single-literal
// clause is spec.md's `single(literal)`; a longer one is `disj(literal,
// [literal])`.
type Clause []Literal

// ToCNF normalises a Constraint tree into a conjunction of clauses (spec.md
// §4.7.2). Conjunctions flatten directly into the clause list; disjunctions
// distribute across each other (a Cartesian product of their inner clause
// sets), which is the standard product-of-sums construction for turning a
// tree of ANDs/ORs of literals into a flat AND-of-ORs.
func ToCNF(c Constraint) []Clause {
	return toClauses(c)
}

func toClauses(c Constraint) []Clause {
	switch c.kind {
	case ckLiteral:
		return []Clause{{c.lit}}
	case ckConj:
		var out []Clause
		for _, s := range c.sub {
			out = append(out, toClauses(s)...)
		}
		return out
	case ckDisj:
		if len(c.sub) == 0 {
			return nil
		}
		acc := toClauses(c.sub[0])
		for _, s := range c.sub[1:] {
			acc = distribute(acc, toClauses(s))
		}
		return acc
	default:
		return nil
	}
}

func distribute(a, b []Clause) []Clause {
	out := make([]Clause, 0, len(a)*len(b))
	for _, ca := range a {
		for _, cb := range b {
			merged := make(Clause, 0, len(ca)+len(cb))
			merged = append(merged, ca...)
			merged = append(merged, cb...)
			out = append(out, merged)
		}
	}
	return out
}
