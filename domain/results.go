package domain

import "fmt"

// BuildResults implements spec.md §4.7.6: after the solver accepts, convert
// every named(V) solver variable's ground domain back to a source Type.
// anon and type_var solver variables are dropped from the result, and an
// unresolved free domain on a named variable is a bug in the caller (the
// solver would have reported floundering instead of accepting) rather than
// a normal error, so it returns a sentinel error instead of a recoverable
// one — matching spec.md's own "unresolved free domains are a bug and
// abort".
func BuildResults(store Store, vars map[Var]struct{}) (map[string]Type, error) {
	out := make(map[string]Type)
	for v := range vars {
		if v.Kind != VarNamed {
			continue
		}
		t, err := domainToType(store.Get(v))
		if err != nil {
			return nil, fmt.Errorf("domain: building result for %s: %w", v, err)
		}
		out[v.Name] = t
	}
	return out, nil
}

func domainToType(d Domain) (Type, error) {
	switch dv := d.(type) {
	case FreeDomain:
		return nil, errUnresolvedFree
	case BuiltinDomain:
		return BuiltinType{Kind: dv.Kind}, nil
	case UnivVarDomain:
		return TypeVarType{Name: dv.Name}, nil
	case TypeDomain:
		args := make([]Type, len(dv.Args))
		for i, a := range dv.Args {
			t, err := domainToType(a)
			if err != nil {
				return nil, err
			}
			args[i] = t
		}
		return TypeRefType{TypeID: dv.ID, Args: args}, nil
	case FuncDomain:
		ins := make([]Type, len(dv.Inputs))
		for i, a := range dv.Inputs {
			t, err := domainToType(a)
			if err != nil {
				return nil, err
			}
			ins[i] = t
		}
		outs := make([]Type, len(dv.Outputs))
		for i, a := range dv.Outputs {
			t, err := domainToType(a)
			if err != nil {
				return nil, err
			}
			outs[i] = t
		}
		var uses, observes []string
		if dv.Resources.Known {
			for u := range dv.Resources.Used {
				uses = append(uses, u)
			}
			for o := range dv.Resources.Observed {
				observes = append(observes, o)
			}
		}
		return FuncType{Inputs: ins, Outputs: outs, Uses: uses, Observes: observes}, nil
	default:
		return nil, fmt.Errorf("domain: unrecognised domain %v", d)
	}
}
