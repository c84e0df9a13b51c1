package domain

// LiteralKind tags a Literal's shape (spec.md §3.3 "constraint literal").
type LiteralKind uint8

const (
	LitTrue LiteralKind = iota
	LitVarEqBuiltin
	LitVarEqUserType
	LitVarEqFunc
	LitVarEqFreeTypeVar
	LitVarEqVar
)

// Literal is one constraint literal. Only the fields relevant to Kind are
// populated; a single struct (rather than an interface per kind) keeps
// Literal comparable enough to appear directly inside a Clause slice
// without boxing, and keeps evalLiteral's dispatch a single switch.
type Literal struct {
	Kind LiteralKind

	Var Var // the constrained variable, for every kind but LitTrue

	Builtin BuiltinKind // LitVarEqBuiltin

	TypeID string // LitVarEqUserType
	Args   []Var  // LitVarEqUserType: the type's argument variables

	Inputs, Outputs []Var      // LitVarEqFunc
	FuncResources   *Resources // LitVarEqFunc; nil means "not yet known" (unknown resources)

	FreeTypeVarName string // LitVarEqFreeTypeVar

	Other Var // LitVarEqVar: the other side (Var holds the canonically-lower one)
}

// True is the trivially-satisfied literal.
var True = Literal{Kind: LitTrue}

// EqBuiltin posts `v = builtin(b)`.
func EqBuiltin(v Var, b BuiltinKind) Literal {
	return Literal{Kind: LitVarEqBuiltin, Var: v, Builtin: b}
}

// EqUserType posts `v = usertype(id, args)`.
func EqUserType(v Var, typeID string, args []Var) Literal {
	return Literal{Kind: LitVarEqUserType, Var: v, TypeID: typeID, Args: args}
}

// EqFunc posts `v = func(inputs, outputs, resources?)`. resources may be
// nil for "not yet known".
func EqFunc(v Var, inputs, outputs []Var, resources *Resources) Literal {
	return Literal{Kind: LitVarEqFunc, Var: v, Inputs: inputs, Outputs: outputs, FuncResources: resources}
}

// EqFreeTypeVar posts `v = free_type_var(name)`.
func EqFreeTypeVar(v Var, name string) Literal {
	return Literal{Kind: LitVarEqFreeTypeVar, Var: v, FreeTypeVarName: name}
}

// EqVar posts `v = w`, applying spec.md §4.7.2's simplify_literal rule:
// `var = var` for the same variable collapses to True, and otherwise the
// lower-ordered variable (Var.Less) is canonicalised onto the left so two
// syntactically different postings of the same equality normalise
// identically.
func EqVar(v, w Var) Literal {
	if v == w {
		return True
	}
	if w.Less(v) {
		v, w = w, v
	}
	return Literal{Kind: LitVarEqVar, Var: v, Other: w}
}
