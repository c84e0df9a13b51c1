package typecheck

import (
	"strconv"

	"github.com/jimbxb/plasma/domain"
)

// outputVarName names the solver variable standing for a function's i'th
// declared output, so PostProblem can unify the body's actual result
// against it. It is a named variable, so its checked type is reported in
// Result (see Result.OutputType), and the index keeps two outputs of the
// same function from colliding.
func outputVarName(name string, i int) string {
	if len(name) == 0 {
		name = "$anon"
	}
	return name + ".output(" + strconv.Itoa(i) + ")"
}

// PostProblem implements spec.md §4.7.1's full problem statement for one
// function declaration: a fresh type-variable scope is opened, every
// declared parameter is constrained against its named solver variable,
// the body's constraints are generated and posted, and the body's result
// variable is unified against each declared output in turn (spec.md §4.8's
// requirement that a body's inferred result match its signature).
func PostProblem(solver *domain.Solver, f FuncSig, body Expr) {
	sc := domain.NewTypeVarScope()

	for _, p := range f.Params {
		solver.Post(constrainVarToType(sc, domain.Named(p.Name), p.Type))
	}

	resultVar, bodyC := GenerateConstraints(sc, body)
	solver.Post(bodyC)

	if len(f.Outputs) == 0 {
		return
	}
	if len(f.Outputs) == 1 {
		outVar := domain.Named(outputVarName(f.Name, 0))
		solver.Post(constrainVarToType(sc, outVar, f.Outputs[0]))
		solver.Post(domain.Lit(domain.EqVar(outVar, resultVar)))
		return
	}

	// Multiple declared outputs: the body's result is the Tuple wrapping
	// them, matching how TupleExpr and multi-output calls represent
	// multiple values (GenerateConstraints's resultOf/TupleExpr).
	fieldVars := make([]domain.Var, len(f.Outputs))
	for i, ot := range f.Outputs {
		outVar := domain.Named(outputVarName(f.Name, i))
		solver.Post(constrainVarToType(sc, outVar, ot))
		fieldVars[i] = outVar
	}
	tupleVar := sc.FreshAnon()
	solver.Post(domain.Lit(domain.EqUserType(tupleVar, "Tuple", fieldVars)))
	solver.Post(domain.Lit(domain.EqVar(tupleVar, resultVar)))
}
