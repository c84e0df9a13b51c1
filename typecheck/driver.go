package typecheck

import (
	"fmt"

	"github.com/jimbxb/plasma/domain"
	"github.com/jimbxb/plasma/logging"
)

// Result is one function declaration's checked signature: every named
// solver variable's ground type, keyed by variable name — parameter names
// directly, and each declared output under outputVarName(f.Name, i).
type Result struct {
	Types map[string]domain.Type
}

// ParamType looks up the checked type of a declared parameter by name.
func (r Result) ParamType(name string) (domain.Type, bool) {
	t, ok := r.Types[name]
	return t, ok
}

// OutputType looks up the checked type of the i'th declared output.
func (r Result) OutputType(f FuncSig, i int) (domain.Type, bool) {
	t, ok := r.Types[outputVarName(f.Name, i)]
	return t, ok
}

// Check runs spec.md §4.7's full pipeline for one function body: post the
// problem (§4.7.1), drive the solver to a fixed point (§4.7.3), and build
// the accepted domains back into source types (§4.7.6). A floundered or
// otherwise rejected solve is returned as an error without a Result.
func Check(f FuncSig, body Expr, log logging.Logger) (Result, error) {
	solver := domain.NewSolver(log)
	PostProblem(solver, f, body)

	store, err := solver.Run()
	if err != nil {
		return Result{}, fmt.Errorf("typecheck: %s: %w", f.Name, err)
	}

	types, err := domain.BuildResults(store, solver.Vars())
	if err != nil {
		return Result{}, fmt.Errorf("typecheck: %s: %w", f.Name, err)
	}
	return Result{Types: types}, nil
}
