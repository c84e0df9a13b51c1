package typecheck

import (
	"unicode/utf8"

	"github.com/jimbxb/plasma/domain"
)

// constrainVarToType posts the recursive-descent constraint spec.md §4.7.1
// describes for a declared type: builtins pin the variable directly; a
// type variable aliases it to this scope's rigid solver variable for that
// name; a user type or function type allocates a fresh solver variable per
// nested component and recurses.
func constrainVarToType(sc *domain.TypeVarScope, v domain.Var, t domain.Type) domain.Constraint {
	switch tt := t.(type) {
	case domain.BuiltinType:
		return domain.Lit(domain.EqBuiltin(v, tt.Kind))

	case domain.TypeVarType:
		tv := sc.GetOrMake(tt.Name)
		return domain.And(
			domain.Lit(domain.EqFreeTypeVar(tv, tv.String())),
			domain.Lit(domain.EqVar(v, tv)),
		)

	case domain.TypeRefType:
		argVars := make([]domain.Var, len(tt.Args))
		cs := make([]domain.Constraint, 0, len(tt.Args)+1)
		for i, a := range tt.Args {
			argVars[i] = sc.FreshAnon()
			cs = append(cs, constrainVarToType(sc, argVars[i], a))
		}
		cs = append(cs, domain.Lit(domain.EqUserType(v, tt.TypeID, argVars)))
		return domain.And(cs...)

	case domain.FuncType:
		return constrainFuncVar(sc, v, FuncSig{
			Params:    paramsFromTypes(tt.Inputs),
			Outputs:   tt.Outputs,
			Resources: resourcesFromLists(tt.Uses, tt.Observes),
		})

	default:
		return domain.Lit(domain.True)
	}
}

func paramsFromTypes(ts []domain.Type) []Param {
	ps := make([]Param, len(ts))
	for i, t := range ts {
		ps[i] = Param{Type: t}
	}
	return ps
}

func resourcesFromLists(uses, observes []string) *domain.Resources {
	if uses == nil && observes == nil {
		return nil
	}
	r := domain.KnownResources(uses, observes)
	return &r
}

// constrainFuncVar posts `v = func(inputs, outputs, resources?)` (spec.md
// §4.8 "const(func f)" / "closure(f, captured)"), allocating a fresh
// solver variable per declared parameter and output and recursing into
// their types.
func constrainFuncVar(sc *domain.TypeVarScope, v domain.Var, f FuncSig) domain.Constraint {
	inVars := make([]domain.Var, len(f.Params))
	cs := make([]domain.Constraint, 0, len(f.Params)+len(f.Outputs)+1)
	for i, p := range f.Params {
		inVars[i] = sc.FreshAnon()
		cs = append(cs, constrainVarToType(sc, inVars[i], p.Type))
	}
	outVars := make([]domain.Var, len(f.Outputs))
	for i, ot := range f.Outputs {
		outVars[i] = sc.FreshAnon()
		cs = append(cs, constrainVarToType(sc, outVars[i], ot))
	}
	cs = append(cs, domain.Lit(domain.EqFunc(v, inVars, outVars, f.Resources)))
	return domain.And(cs...)
}

// GenerateConstraints implements spec.md §4.8's constraint-generation
// table: for expr, it returns the solver variable standing for expr's
// result and the constraint that must be posted to pin that variable's
// domain. sc is the enclosing declaration's type-variable scope; call
// sites that open their own generic scope (function/closure literals,
// first-order calls) call sc.Start() themselves before recursing into the
// callee's declared signature.
func GenerateConstraints(sc *domain.TypeVarScope, e Expr) (domain.Var, domain.Constraint) {
	switch ex := e.(type) {
	case VarExpr:
		return domain.Named(ex.Name), domain.Lit(domain.True)

	case ConstNumberExpr:
		v := sc.FreshAnon()
		return v, domain.Lit(domain.EqBuiltin(v, domain.Int))

	case ConstStringExpr:
		v := sc.FreshAnon()
		if utf8.RuneCountInString(ex.Value) == 1 {
			return v, domain.Or(
				domain.Lit(domain.EqBuiltin(v, domain.String)),
				domain.Lit(domain.EqBuiltin(v, domain.Codepoint)),
			)
		}
		return v, domain.Lit(domain.EqBuiltin(v, domain.String))

	case ConstFuncExpr:
		v := sc.FreshAnon()
		inner := sc.Start()
		return v, constrainFuncVar(inner, v, ex.Func)

	case TupleExpr:
		v := sc.FreshAnon()
		elemVars := make([]domain.Var, len(ex.Elems))
		cs := make([]domain.Constraint, 0, len(ex.Elems)+1)
		for i, el := range ex.Elems {
			ev, ec := GenerateConstraints(sc, el)
			elemVars[i] = ev
			cs = append(cs, ec)
		}
		cs = append(cs, domain.Lit(domain.EqUserType(v, "Tuple", elemVars)))
		return v, domain.And(cs...)

	case LetExpr:
		valueVar, valueC := GenerateConstraints(sc, ex.Value)
		bind := domain.Lit(domain.EqVar(domain.Named(ex.Name), valueVar))
		bodyVar, bodyC := GenerateConstraints(sc, ex.Body)
		return bodyVar, domain.And(valueC, bind, bodyC)

	case CallExpr:
		return generateCall(sc, ex)

	case HOCallExpr:
		return generateHOCall(sc, ex)

	case MatchExpr:
		return generateMatch(sc, ex)

	case ConstructionExpr:
		return generateConstruction(sc, ex)

	case ClosureExpr:
		return generateClosure(sc, ex)

	default:
		v := sc.FreshAnon()
		return v, domain.Lit(domain.True)
	}
}

// generateCall implements spec.md §4.8's `call(f, args)`: inside a fresh
// type-var scope for f's signature, each argument is unified with the
// corresponding declared parameter type, and fresh output variables are
// constrained to the declared outputs.
func generateCall(sc *domain.TypeVarScope, ex CallExpr) (domain.Var, domain.Constraint) {
	inner := sc.Start()
	cs := make([]domain.Constraint, 0, len(ex.Args)+len(ex.Func.Outputs))
	for i, a := range ex.Args {
		av, ac := GenerateConstraints(sc, a)
		cs = append(cs, ac)
		if i < len(ex.Func.Params) {
			cs = append(cs, constrainVarToType(inner, av, ex.Func.Params[i].Type))
		}
	}
	outVars := make([]domain.Var, len(ex.Func.Outputs))
	for i, ot := range ex.Func.Outputs {
		outVars[i] = inner.FreshAnon()
		cs = append(cs, constrainVarToType(inner, outVars[i], ot))
	}
	return resultOf(sc, outVars, cs)
}

// generateHOCall implements spec.md §4.8's `ho_call(v, args)`: the callee's
// signature is not statically known, so a func(args, results, unknown)
// domain is posted directly against the callee variable.
func generateHOCall(sc *domain.TypeVarScope, ex HOCallExpr) (domain.Var, domain.Constraint) {
	argVars := make([]domain.Var, len(ex.Args))
	cs := make([]domain.Constraint, 0, len(ex.Args)+2)
	for i, a := range ex.Args {
		av, ac := GenerateConstraints(sc, a)
		argVars[i] = sc.FreshAnon()
		cs = append(cs, ac, domain.Lit(domain.EqVar(argVars[i], av)))
	}
	resultVar := sc.FreshAnon()
	cs = append(cs, domain.Lit(domain.EqFunc(domain.Named(ex.Var), argVars, []domain.Var{resultVar}, nil)))
	return resultVar, domain.And(cs...)
}

// generateMatch implements spec.md §4.8's `match(v, cases)`: every case
// body's result variable is unified into one shared result, and each
// pattern contributes its own constraint against the scrutinee's variable.
func generateMatch(sc *domain.TypeVarScope, ex MatchExpr) (domain.Var, domain.Constraint) {
	scrutVar, scrutC := GenerateConstraints(sc, ex.Scrutinee)
	resultVar := sc.FreshAnon()
	cs := []domain.Constraint{scrutC}
	for _, c := range ex.Cases {
		cs = append(cs, generatePattern(sc, scrutVar, c.Pattern))
		bodyVar, bodyC := GenerateConstraints(sc, c.Body)
		cs = append(cs, bodyC, domain.Lit(domain.EqVar(resultVar, bodyVar)))
	}
	return resultVar, domain.And(cs...)
}

// generatePattern implements spec.md §4.8's "pattern p_ctor(C, args)
// against v": a disjunction over candidate constructors, each unifying v
// with that constructor's owning user type and recursively constraining
// field patterns.
func generatePattern(sc *domain.TypeVarScope, v domain.Var, p Pattern) domain.Constraint {
	switch pp := p.(type) {
	case VarPattern:
		return domain.Lit(domain.EqVar(domain.Named(pp.Name), v))

	case CtorPattern:
		disjuncts := make([]domain.Constraint, 0, len(pp.Candidates))
		for _, ctor := range pp.Candidates {
			fieldVars := make([]domain.Var, len(ctor.FieldTypes))
			cs := make([]domain.Constraint, 0, len(ctor.FieldTypes)*2+1)
			for i, ft := range ctor.FieldTypes {
				fieldVars[i] = sc.FreshAnon()
				cs = append(cs, constrainVarToType(sc, fieldVars[i], ft))
				if i < len(pp.Args) {
					cs = append(cs, generatePattern(sc, fieldVars[i], pp.Args[i]))
				}
			}
			cs = append(cs, domain.Lit(domain.EqUserType(v, ctor.OwnerTypeID, fieldVars)))
			disjuncts = append(disjuncts, domain.And(cs...))
		}
		return domain.Or(disjuncts...)

	default:
		return domain.Lit(domain.True)
	}
}

// generateConstruction implements spec.md §4.8's `construction(C, args)`:
// arguments are generated once (evaluated once, as in any real
// implementation) and then, per candidate constructor, unified against
// that candidate's declared field types inside a disjunction.
func generateConstruction(sc *domain.TypeVarScope, ex ConstructionExpr) (domain.Var, domain.Constraint) {
	resultVar := sc.FreshAnon()
	argVars := make([]domain.Var, len(ex.Args))
	argCs := make([]domain.Constraint, 0, len(ex.Args))
	for i, a := range ex.Args {
		av, ac := GenerateConstraints(sc, a)
		argVars[i] = av
		argCs = append(argCs, ac)
	}
	disjuncts := make([]domain.Constraint, 0, len(ex.Candidates))
	for _, ctor := range ex.Candidates {
		cs := []domain.Constraint{domain.Lit(domain.EqUserType(resultVar, ctor.OwnerTypeID, argVars))}
		for i, ft := range ctor.FieldTypes {
			if i < len(argVars) {
				cs = append(cs, constrainVarToType(sc, argVars[i], ft))
			}
		}
		disjuncts = append(disjuncts, domain.And(cs...))
	}
	return resultVar, domain.And(append(argCs, domain.Or(disjuncts...))...)
}

// generateClosure implements spec.md §4.8's `closure(f, captured)`.
func generateClosure(sc *domain.TypeVarScope, ex ClosureExpr) (domain.Var, domain.Constraint) {
	resultVar := sc.FreshAnon()
	inner := sc.Start()
	cs := make([]domain.Constraint, 0, len(ex.Captured)+1)
	for i, name := range ex.Captured {
		if i < len(ex.Func.Params) {
			cs = append(cs, constrainVarToType(inner, domain.Named(name), ex.Func.Params[i].Type))
		}
	}
	cs = append(cs, constrainFuncVar(inner, resultVar, ex.Func))
	return resultVar, domain.And(cs...)
}

// resultOf collapses zero-or-more output variables into a single result
// variable: a nullary result is a fresh unconstrained var (never observed,
// so it is fine for it to stay free), a single output is returned
// directly, and multiple outputs are wrapped the same way TupleExpr is.
func resultOf(sc *domain.TypeVarScope, outVars []domain.Var, cs []domain.Constraint) (domain.Var, domain.Constraint) {
	switch len(outVars) {
	case 0:
		return sc.FreshAnon(), domain.And(cs...)
	case 1:
		return outVars[0], domain.And(cs...)
	default:
		v := sc.FreshAnon()
		cs = append(cs, domain.Lit(domain.EqUserType(v, "Tuple", outVars)))
		return v, domain.And(cs...)
	}
}
