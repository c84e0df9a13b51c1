package domain

import (
	"errors"
	"fmt"

	"github.com/jimbxb/plasma/logging"
)

// Outcome is the result of evaluating one clause against a Store (spec.md
// §4.7.3).
type Outcome uint8

const (
	OutcomeSuccessUpdated Outcome = iota
	OutcomeSuccessNotUpdated
	OutcomeFailed
	OutcomeDelayedUpdated
	OutcomeDelayedNotUpdated
)

func classify(changed bool, status UnifyStatus) Outcome {
	if status == StatusDelayed {
		if changed {
			return OutcomeDelayedUpdated
		}
		return OutcomeDelayedNotUpdated
	}
	if changed {
		return OutcomeSuccessUpdated
	}
	return OutcomeSuccessNotUpdated
}

// unifyVar unifies v's current domain in store with d, returning the store
// with v rebound (only if the domain actually changed) and the outcome the
// unification produced.
func unifyVar(store Store, v Var, d Domain) (Store, Outcome, error) {
	old := store.Get(v)
	merged, status, err := UnifyDomains(old, d)
	if err != nil {
		return store, OutcomeFailed, fmt.Errorf("%s: %w", v, err)
	}
	if Equal(old, merged) {
		return store, classify(false, status), nil
	}
	return store.Set(v, merged), classify(true, status), nil
}

// evalLiteral evaluates a single non-True, non-var-equality literal that
// binds exactly one variable's domain shape.
func evalLiteral(store Store, lit Literal) (Store, Outcome, error) {
	switch lit.Kind {
	case LitTrue:
		return store, OutcomeSuccessNotUpdated, nil

	case LitVarEqBuiltin:
		return unifyVar(store, lit.Var, BuiltinDomain{Kind: lit.Builtin})

	case LitVarEqFreeTypeVar:
		return unifyVar(store, lit.Var, UnivVarDomain{Name: lit.FreeTypeVarName})

	case LitVarEqUserType:
		return evalVarEqUserType(store, lit)

	case LitVarEqFunc:
		return evalVarEqFunc(store, lit)

	case LitVarEqVar:
		return evalVarEqVar(store, lit)

	default:
		return store, OutcomeFailed, fmt.Errorf("domain: unrecognised literal kind %d", lit.Kind)
	}
}

// evalVarEqUserType implements `v = usertype(id, args)`. The candidate type
// domain is built from the argument variables' *current* domains — this is
// what makes the representation Herbrand-style: args are shared solver
// variables, not copies, so unify_domains's point-wise argument unification
// (spec.md §4.7.5) is propagated back into each argument variable's own
// store slot, keeping the graph consistent across rounds.
func evalVarEqUserType(store Store, lit Literal) (Store, Outcome, error) {
	argDomains := make([]Domain, len(lit.Args))
	for i, av := range lit.Args {
		argDomains[i] = store.Get(av)
	}
	old := store.Get(lit.Var)
	merged, status, err := UnifyDomains(old, TypeDomain{ID: lit.TypeID, Args: argDomains})
	if err != nil {
		return store, OutcomeFailed, fmt.Errorf("%s: %w", lit.Var, err)
	}
	next := store
	changed := !Equal(old, merged)
	if mt, ok := merged.(TypeDomain); ok {
		for i, av := range lit.Args {
			if i >= len(mt.Args) {
				break
			}
			prev := next.Get(av)
			if !Equal(prev, mt.Args[i]) {
				next = next.Set(av, mt.Args[i])
				changed = true
			}
		}
	}
	if changed {
		next = next.Set(lit.Var, merged)
	}
	// Stays in play (delayed) until fully ground: an argument variable
	// can still be refined by a literal that runs in a later round, and
	// this literal needs to re-run then to pick that refinement back up
	// into the type domain it owns (the Herbrand graph-consistency work
	// described on TypeDomain).
	if !IsGround(merged) {
		if changed {
			return next, OutcomeDelayedUpdated, nil
		}
		return next, OutcomeDelayedNotUpdated, nil
	}
	return next, classify(changed, status), nil
}

// evalVarEqFunc implements `v = func(inputs, outputs, resources?)`,
// propagating point-wise argument/result unification back to those
// variables the same way evalVarEqUserType does.
func evalVarEqFunc(store Store, lit Literal) (Store, Outcome, error) {
	inDomains := make([]Domain, len(lit.Inputs))
	for i, v := range lit.Inputs {
		inDomains[i] = store.Get(v)
	}
	outDomains := make([]Domain, len(lit.Outputs))
	for i, v := range lit.Outputs {
		outDomains[i] = store.Get(v)
	}
	res := UnknownResources()
	if lit.FuncResources != nil {
		res = *lit.FuncResources
	}
	old := store.Get(lit.Var)
	merged, _, err := UnifyDomains(old, FuncDomain{Inputs: inDomains, Outputs: outDomains, Resources: res})
	if err != nil {
		return store, OutcomeFailed, fmt.Errorf("%s: %w", lit.Var, err)
	}
	next := store
	changed := !Equal(old, merged)
	if mf, ok := merged.(FuncDomain); ok {
		for i, v := range lit.Inputs {
			if prev := next.Get(v); !Equal(prev, mf.Inputs[i]) {
				next = next.Set(v, mf.Inputs[i])
				changed = true
			}
		}
		for i, v := range lit.Outputs {
			if prev := next.Get(v); !Equal(prev, mf.Outputs[i]) {
				next = next.Set(v, mf.Outputs[i])
				changed = true
			}
		}
	}
	if changed {
		next = next.Set(lit.Var, merged)
	}
	// Function domains always propagate with delay (spec.md §4.7.5).
	return next, classify(changed, StatusDelayed), nil
}

func evalVarEqVar(store Store, lit Literal) (Store, Outcome, error) {
	a, b := lit.Var, lit.Other
	old1, old2 := store.Get(a), store.Get(b)
	merged, status, err := UnifyDomains(old1, old2)
	if err != nil {
		return store, OutcomeFailed, fmt.Errorf("%s = %s: %w", a, b, err)
	}
	next := store
	changed := false
	if !Equal(old1, merged) {
		next = next.Set(a, merged)
		changed = true
	}
	if !Equal(old2, merged) {
		next = next.Set(b, merged)
		changed = true
	}
	return next, classify(changed, status), nil
}

// runClause evaluates one clause. A single-literal clause delegates
// straight to evalLiteral; a multi-literal clause is a disjunction and
// follows spec.md §4.7.4's single-answer algorithm.
func runClause(store Store, cl Clause) (Store, Outcome, error) {
	if len(cl) == 1 {
		return evalLiteral(store, cl[0])
	}
	return runDisjunction(store, cl)
}

// candidateResult is one disjunct's dry-run outcome against a private copy
// of the store, never applied unless it turns out to be the sole survivor.
type candidateResult struct {
	lit     Literal
	store   Store
	outcome Outcome
	err     error
}

func runDisjunction(store Store, cl Clause) (Store, Outcome, error) {
	results := make([]candidateResult, len(cl))
	for i, lit := range cl {
		s, outcome, err := evalLiteral(store.Clone(), lit)
		results[i] = candidateResult{lit: lit, store: s, outcome: outcome, err: err}
	}

	var noWrite, needsWrite []int
	var failReasons []string
	for i, r := range results {
		switch r.outcome {
		case OutcomeFailed:
			failReasons = append(failReasons, r.err.Error())
		case OutcomeSuccessNotUpdated:
			noWrite = append(noWrite, i)
		default: // SuccessUpdated, DelayedUpdated, DelayedNotUpdated
			needsWrite = append(needsWrite, i)
		}
	}

	// Rule 1: a disjunct that already holds without touching the store
	// settles the disjunction only when every other disjunct fails. If any
	// other disjunct could still hold, the choice is ambiguous and the
	// clause is delayed without committing anything.
	if len(noWrite) > 0 {
		if len(noWrite) == 1 && len(needsWrite) == 0 {
			return store, OutcomeSuccessNotUpdated, nil
		}
		return store, OutcomeDelayedNotUpdated, nil
	}

	// Rule 3: every disjunct failed.
	if len(needsWrite) == 0 {
		return store, OutcomeFailed, fmt.Errorf("disjunction: all %d branches failed: %v", len(cl), failReasons)
	}

	// Rule 2/4: exactly one branch would write — commit it. More than one
	// candidate write means the choice is still ambiguous; delay without
	// committing anything (spec.md: "the solver never speculatively
	// commits a write").
	if len(needsWrite) > 1 {
		return store, OutcomeDelayedNotUpdated, nil
	}
	only := results[needsWrite[0]]
	return only.store, only.outcome, nil
}

// FloundersError reports a solve that reached a fixed point with named
// (user-visible) variables still unresolved.
type FloundersError struct {
	Remaining []Clause
}

func (e *FloundersError) Error() string {
	return fmt.Sprintf("domain: floundered with %d unresolved constraint(s)", len(e.Remaining))
}

// Solver runs the round-based clause loop spec.md §4.7.3 describes.
type Solver struct {
	store   Store
	clauses []Clause
	vars    map[Var]struct{}
	log     logging.Logger
}

// NewSolver returns an empty solver.
func NewSolver(log logging.Logger) *Solver {
	return &Solver{store: NewStore(), vars: map[Var]struct{}{}, log: logging.OrNop(log)}
}

// Post normalises c to CNF (spec.md §4.7.2) and adds its clauses to the
// outstanding set.
func (s *Solver) Post(c Constraint) {
	clauses := ToCNF(c)
	s.clauses = append(s.clauses, clauses...)
	for _, cl := range clauses {
		for _, lit := range cl {
			s.trackVars(lit)
		}
	}
}

func (s *Solver) trackVars(lit Literal) {
	switch lit.Kind {
	case LitTrue:
		return
	}
	s.vars[lit.Var] = struct{}{}
	for _, v := range lit.Args {
		s.vars[v] = struct{}{}
	}
	for _, v := range lit.Inputs {
		s.vars[v] = struct{}{}
	}
	for _, v := range lit.Outputs {
		s.vars[v] = struct{}{}
	}
	if lit.Kind == LitVarEqVar {
		s.vars[lit.Other] = struct{}{}
	}
}

// Run drives the outer round loop to a fixed point (spec.md §4.7.3) and
// then applies the floundering check: a fixed point with only anon/type-var
// solver variables left unbound is an accepted solution; a fixed point with
// any unbound named variable is reported as floundering.
func (s *Solver) Run() (Store, error) {
	for len(s.clauses) > 0 {
		var remaining []Clause
		progressed := false
		for _, cl := range s.clauses {
			next, outcome, err := runClause(s.store, cl)
			switch outcome {
			case OutcomeFailed:
				return s.store, err
			case OutcomeSuccessUpdated:
				s.store = next
				progressed = true
			case OutcomeSuccessNotUpdated:
				progressed = true
			case OutcomeDelayedUpdated:
				s.store = next
				remaining = append(remaining, cl)
				progressed = true
			case OutcomeDelayedNotUpdated:
				remaining = append(remaining, cl)
			}
		}
		s.log.Debug("domain: solver round", "clauses_before", len(s.clauses), "clauses_after", len(remaining), "progressed", progressed)
		s.clauses = remaining
		if !progressed {
			break
		}
	}

	if len(s.clauses) == 0 {
		return s.store, nil
	}
	for v := range s.vars {
		if v.Kind != VarNamed {
			continue
		}
		if !IsGround(s.store.Get(v)) {
			return s.store, &FloundersError{Remaining: s.clauses}
		}
	}
	return s.store, nil
}

// Store exposes the solver's current variable-domain assignment, valid to
// call at any point (e.g. from a caller inspecting a floundered solve).
func (s *Solver) Store() Store { return s.store }

// Vars returns every solver variable this solver has ever seen posted in a
// literal, for a caller (package typecheck's BuildResults call) that needs
// the full variable set rather than just the ones still outstanding.
func (s *Solver) Vars() map[Var]struct{} { return s.vars }

var errUnresolvedFree = errors.New("domain: unresolved free domain in accepted solution")
