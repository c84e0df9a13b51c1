package dump_test

import (
	"path/filepath"
	"testing"

	"github.com/jimbxb/plasma/domain"
	"github.com/jimbxb/plasma/dump"
)

func TestFromResultOrdersDeterministically(t *testing.T) {
	types := map[string]domain.Type{
		"tail": domain.BuiltinType{Kind: domain.Int},
		"head": domain.BuiltinType{Kind: domain.Int},
	}
	s := dump.FromResult("cons", types)
	if len(s.Types) != 2 || s.Types[0].Var != "head" || s.Types[1].Var != "tail" {
		t.Fatalf("Types = %#v, want [head, tail] in sorted order", s.Types)
	}
}

func TestMarshalUnmarshalRoundTrips(t *testing.T) {
	types := map[string]domain.Type{
		"xs": domain.TypeRefType{TypeID: "List", Args: []domain.Type{domain.BuiltinType{Kind: domain.String}}},
		"f":  domain.FuncType{Inputs: []domain.Type{domain.BuiltinType{Kind: domain.Int}}, Outputs: []domain.Type{domain.BuiltinType{Kind: domain.Int}}, Uses: []string{"io"}},
	}
	s := dump.FromResult("demo", types)

	data, err := dump.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := dump.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Function != "demo" || len(got.Types) != 2 {
		t.Fatalf("round-tripped stage = %#v, want Function=demo with 2 entries", got)
	}
}

func TestWriteFileReadFileRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := dump.FromResult("cons", map[string]domain.Type{"head": domain.BuiltinType{Kind: domain.Int}})

	if err := dump.WriteFile(dir, "cons", s); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := dump.ReadFile(filepath.Join(dir, "cons.typecheck.cbor"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Function != "cons" || len(got.Types) != 1 || got.Types[0].Var != "head" {
		t.Fatalf("ReadFile = %#v, want the written stage back", got)
	}
}
