// Package typecheck builds a domain.Solver problem from a typed-core IR
// (spec.md §4.7.1) and drives it to a substitution (spec.md §4.7.6). The
// lowering that produces this IR from source is an external collaborator
// (spec.md §4.8's own words); this package defines the minimal IR shape
// the constraint-generation table needs to be exercised and tested.
package typecheck

import "github.com/jimbxb/plasma/domain"

// Expr is one ANF-normalised expression node (spec.md §4.8's left column).
type Expr interface {
	isExpr()
}

// VarExpr references a bound program variable.
type VarExpr struct{ Name string }

func (VarExpr) isExpr() {}

// ConstNumberExpr is a numeric literal.
type ConstNumberExpr struct{}

func (ConstNumberExpr) isExpr() {}

// ConstStringExpr is a string literal; Value is inspected only for its
// rune count (spec.md §4.8: a single-codepoint literal is ambiguous
// between string and codepoint).
type ConstStringExpr struct{ Value string }

func (ConstStringExpr) isExpr() {}

// ConstFuncExpr closes over a declared function by reference (no captures).
type ConstFuncExpr struct{ Func FuncSig }

func (ConstFuncExpr) isExpr() {}

// TupleExpr groups several sub-expressions positionally.
type TupleExpr struct{ Elems []Expr }

func (TupleExpr) isExpr() {}

// LetExpr binds Name to Value's result within Body.
type LetExpr struct {
	Name  string
	Value Expr
	Body  Expr
}

func (LetExpr) isExpr() {}

// CallExpr is a first-order call to a statically known function.
type CallExpr struct {
	Func FuncSig
	Args []Expr
}

func (CallExpr) isExpr() {}

// HOCallExpr is a higher-order call through a variable holding a function
// value, whose signature (beyond arity) is not statically known.
type HOCallExpr struct {
	Var  string
	Args []Expr
}

func (HOCallExpr) isExpr() {}

// MatchExpr scrutinises Scrutinee against each case in order.
type MatchExpr struct {
	Scrutinee Expr
	Cases     []MatchCase
}

func (MatchExpr) isExpr() {}

// MatchCase pairs a pattern with the body it guards.
type MatchCase struct {
	Pattern Pattern
	Body    Expr
}

// Pattern is a match arm's pattern.
type Pattern interface {
	isPattern()
}

// VarPattern binds the scrutinee (or sub-scrutinee) to a name unconditionally.
type VarPattern struct{ Name string }

func (VarPattern) isPattern() {}

// CtorPattern matches one of several candidate constructors, recursively
// binding each field pattern (spec.md §4.8's "pattern p_ctor(C, args)").
type CtorPattern struct {
	Candidates []CtorSig
	Args       []Pattern
}

func (CtorPattern) isPattern() {}

// ConstructionExpr builds a value of one of several candidate constructors
// (spec.md §4.8's "construction(C, args)" — candidates matter when the
// same field arity/shape is ambiguous across constructors until argument
// types are known).
type ConstructionExpr struct {
	Candidates []CtorSig
	Args       []Expr
}

func (ConstructionExpr) isExpr() {}

// ClosureExpr builds a function value capturing a set of enclosing
// variables (spec.md §4.8's "closure(f, captured)").
type ClosureExpr struct {
	Func     FuncSig
	Captured []string
}

func (ClosureExpr) isExpr() {}

// FuncSig is a function's declared type-level signature: parameter and
// output types (possibly mentioning type variables, resolved through a
// fresh TypeVarScope per spec.md §4.7.1) plus its resource signature.
type FuncSig struct {
	Name       string
	Params     []Param
	Outputs    []domain.Type
	Resources  *domain.Resources
	TypeParams []string
}

// Param is one declared function parameter.
type Param struct {
	Name string
	Type domain.Type
}

// CtorSig is one user-type constructor: the user type it belongs to and
// the declared type of each of its fields.
type CtorSig struct {
	OwnerTypeID string
	OwnerArity  int
	FieldTypes  []domain.Type
}
