package domain_test

import (
	"errors"
	"testing"

	"github.com/jimbxb/plasma/domain"
)

// TestSolveSimpleBuiltin covers spec.md §8.2 scenario 5's shape at the
// solver-only level: a single named variable constrained directly to a
// builtin type accepts immediately.
func TestSolveSimpleBuiltin(t *testing.T) {
	s := domain.NewSolver(nil)
	v := domain.Named("x")
	s.Post(domain.Lit(domain.EqBuiltin(v, domain.Int)))

	store, err := s.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	d := store.Get(v)
	bd, ok := d.(domain.BuiltinDomain)
	if !ok || bd.Kind != domain.Int {
		t.Fatalf("x domain = %#v, want BuiltinDomain{Int}", d)
	}
}

// TestSolveConsUnification covers spec.md §8.2 scenario 5 ("type-check
// cons"): two named variables unified with each other, one of which is
// separately pinned to a concrete builtin, must both resolve to that
// builtin.
func TestSolveConsUnification(t *testing.T) {
	s := domain.NewSolver(nil)
	head, tail := domain.Named("head"), domain.Named("elem")
	s.Post(domain.And(
		domain.Lit(domain.EqBuiltin(head, domain.Int)),
		domain.Lit(domain.EqVar(head, tail)),
	))

	store, err := s.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, v := range []domain.Var{head, tail} {
		bd, ok := store.Get(v).(domain.BuiltinDomain)
		if !ok || bd.Kind != domain.Int {
			t.Fatalf("%s domain = %#v, want BuiltinDomain{Int}", v, store.Get(v))
		}
	}
}

// TestSolveAmbiguousStringDisjunction covers spec.md §8.2 scenario 6: a
// single-character string literal posts a disjunction between `string` and
// `codepoint`; with no further constraint pinning it, the solver must
// delay rather than pick one, and the solve must end in a FloundersError
// because a named variable never grounded.
func TestSolveAmbiguousStringDisjunction(t *testing.T) {
	s := domain.NewSolver(nil)
	v := domain.Named("c")
	s.Post(domain.Or(
		domain.Lit(domain.EqBuiltin(v, domain.String)),
		domain.Lit(domain.EqBuiltin(v, domain.Codepoint)),
	))

	_, err := s.Run()
	if err == nil {
		t.Fatalf("Run: expected floundering, got nil error")
	}
	var fe *domain.FloundersError
	if !errors.As(err, &fe) {
		t.Fatalf("Run: error = %v, want *FloundersError", err)
	}
}

// TestSolveAmbiguousStringDisjunctionResolvesWhenPinned mirrors the same
// scenario but with an outer constraint that pins the variable to one
// disjunct, exercising spec.md §4.7.4 rule 4 (all-but-one fails).
func TestSolveAmbiguousStringDisjunctionResolvesWhenPinned(t *testing.T) {
	s := domain.NewSolver(nil)
	v := domain.Named("c")
	s.Post(domain.And(
		domain.Lit(domain.EqBuiltin(v, domain.Codepoint)),
		domain.Or(
			domain.Lit(domain.EqBuiltin(v, domain.String)),
			domain.Lit(domain.EqBuiltin(v, domain.Codepoint)),
		),
	))

	store, err := s.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	bd, ok := store.Get(v).(domain.BuiltinDomain)
	if !ok || bd.Kind != domain.Codepoint {
		t.Fatalf("c domain = %#v, want BuiltinDomain{Codepoint}", store.Get(v))
	}
}

// TestSolveUserTypePropagatesToArgs exercises evalVarEqUserType's
// re-derivation: constraining a list's element variable after the list
// itself was already unified with a usertype(id, [elem]) literal must still
// reach the list's own stored type domain.
func TestSolveUserTypePropagatesToArgs(t *testing.T) {
	s := domain.NewSolver(nil)
	list, elem := domain.Named("xs"), domain.Anon(1)
	s.Post(domain.And(
		domain.Lit(domain.EqUserType(list, "List", []domain.Var{elem})),
		domain.Lit(domain.EqBuiltin(elem, domain.String)),
	))

	store, err := s.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	td, ok := store.Get(list).(domain.TypeDomain)
	if !ok || td.ID != "List" || len(td.Args) != 1 {
		t.Fatalf("xs domain = %#v, want TypeDomain{List,[String]}", store.Get(list))
	}
	bd, ok := td.Args[0].(domain.BuiltinDomain)
	if !ok || bd.Kind != domain.String {
		t.Fatalf("xs elem arg = %#v, want BuiltinDomain{String}", td.Args[0])
	}
}

// TestUnifyDomainsFuncAlwaysDelayed pins down spec.md §4.7.5's "function
// domains always propagate with delay" rule directly against
// UnifyDomains, independent of the solver loop.
func TestUnifyDomainsFuncAlwaysDelayed(t *testing.T) {
	f1 := domain.FuncDomain{
		Inputs:    []domain.Domain{domain.BuiltinDomain{Kind: domain.Int}},
		Outputs:   []domain.Domain{domain.BuiltinDomain{Kind: domain.String}},
		Resources: domain.UnknownResources(),
	}
	f2 := domain.FuncDomain{
		Inputs:    []domain.Domain{domain.BuiltinDomain{Kind: domain.Int}},
		Outputs:   []domain.Domain{domain.BuiltinDomain{Kind: domain.String}},
		Resources: domain.KnownResources([]string{"io"}, nil),
	}
	merged, status, err := domain.UnifyDomains(f1, f2)
	if err != nil {
		t.Fatalf("UnifyDomains: %v", err)
	}
	if status != domain.StatusDelayed {
		t.Fatalf("status = %v, want StatusDelayed", status)
	}
	mf, ok := merged.(domain.FuncDomain)
	if !ok || !mf.Resources.Known {
		t.Fatalf("merged resources = %#v, want known {io}", mf.Resources)
	}
}

// TestUnifyDomainsBuiltinMismatchFails covers the straightforward failure
// path of spec.md §4.7.5.
func TestUnifyDomainsBuiltinMismatchFails(t *testing.T) {
	_, _, err := domain.UnifyDomains(domain.BuiltinDomain{Kind: domain.Int}, domain.BuiltinDomain{Kind: domain.String})
	if err == nil {
		t.Fatalf("UnifyDomains: expected error for Int vs String")
	}
}

// TestToCNFDistributesDisjunctionOverConjunction exercises §4.7.2's
// Cartesian-product distribution directly: (a) ∨ (b ∧ c) must become
// (a∨b) ∧ (a∨c).
func TestToCNFDistributesDisjunctionOverConjunction(t *testing.T) {
	v := domain.Named("v")
	a := domain.EqBuiltin(v, domain.Int)
	b := domain.EqBuiltin(v, domain.String)
	c := domain.EqBuiltin(v, domain.Codepoint)

	clauses := domain.ToCNF(domain.Or(domain.Lit(a), domain.And(domain.Lit(b), domain.Lit(c))))
	if len(clauses) != 2 {
		t.Fatalf("len(clauses) = %d, want 2", len(clauses))
	}
	for _, cl := range clauses {
		if len(cl) != 2 {
			t.Fatalf("clause %v has %d literals, want 2", cl, len(cl))
		}
	}
}

// TestEqVarCanonicalisesOrderAndSelf covers simplify_literal (§4.7.2): a
// self-equality collapses to True, and two equalities between the same
// pair of variables (posted in either order) must normalise identically.
func TestEqVarCanonicalisesOrderAndSelf(t *testing.T) {
	v := domain.Named("v")
	if domain.EqVar(v, v).Kind != domain.LitTrue {
		t.Fatalf("EqVar(v,v) did not collapse to True")
	}
	a, b := domain.Named("a"), domain.Named("b")
	l1, l2 := domain.EqVar(a, b), domain.EqVar(b, a)
	if l1.Var != l2.Var || l1.Other != l2.Other {
		t.Fatalf("EqVar(a,b) = %#v != EqVar(b,a) = %#v", l1, l2)
	}
}
