package domain

// BuiltinKind enumerates the built-in scalar types spec.md §3.3 names.
type BuiltinKind uint8

const (
	Int BuiltinKind = iota
	String
	Codepoint
	StringPos
)

func (b BuiltinKind) String() string {
	switch b {
	case Int:
		return "Int"
	case String:
		return "String"
	case Codepoint:
		return "Codepoint"
	case StringPos:
		return "StringPos"
	default:
		return "Builtin(?)"
	}
}

// Type is a source-level type, the shape a solved domain converts back into
// (spec.md §3.3, §4.7.6). It is a closed tagged union; callers switch on
// the concrete type rather than a Kind field, matching how the corpus
// represents small closed unions of AST-adjacent shapes (e.g. daios-ai-msg's
// S-expression type nodes) with Go's own type system instead of hand-rolled
// tags.
type Type interface {
	isType()
}

// BuiltinType is `builtin(B)`.
type BuiltinType struct {
	Kind BuiltinKind
}

func (BuiltinType) isType() {}

// TypeVarType is `type_var(name)` — a free (universally quantified) type
// variable in a resolved signature.
type TypeVarType struct {
	Name string
}

func (TypeVarType) isType() {}

// TypeRefType is `type_ref(type_id, [type])` — a user-defined type applied
// to argument types.
type TypeRefType struct {
	TypeID string
	Args   []Type
}

func (TypeRefType) isType() {}

// FuncType is `func(inputs, outputs, uses, observes)`.
type FuncType struct {
	Inputs, Outputs []Type
	Uses, Observes  []string
}

func (FuncType) isType() {}
