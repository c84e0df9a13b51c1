// Package dump implements the compile-stage snapshot files SPEC_FULL.md §1
// adds ("Compile-stage dumps"): it encodes a type-check substitution and
// writes it to a CBOR file per compilation unit, in the same canonical-CBOR
// style vm/dist/wire.go uses for its own wire messages. No other package in
// this module calls it; the compiler.dump-stages setting is parsed by
// package config but does not trigger a dump.
package dump

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/jimbxb/plasma/domain"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dump: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// TypeEntry is one named variable's resolved type, in a form CBOR can
// serialize directly (domain.Type is an interface, so it is flattened into
// a self-describing tagged record rather than encoded polymorphically).
type TypeEntry struct {
	Var  string
	Kind string // "builtin", "type_var", "type_ref", "func"

	Builtin string `cbor:",omitempty"`

	TypeVar string `cbor:",omitempty"`

	TypeID string      `cbor:",omitempty"`
	Args   []TypeEntry `cbor:",omitempty"`

	Inputs, Outputs []TypeEntry `cbor:",omitempty"`
	Uses, Observes  []string    `cbor:",omitempty"`
}

// Stage is one compilation unit's dumped type-check stage: the checked
// function's name and its full resolved substitution.
type Stage struct {
	Function string
	Types    []TypeEntry
}

// FromResult flattens a typecheck result (a map[string]domain.Type) into a
// deterministically-ordered Stage, ready to marshal.
func FromResult(function string, types map[string]domain.Type) Stage {
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]TypeEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, entryFromType(name, types[name]))
	}
	return Stage{Function: function, Types: entries}
}

func entryFromType(name string, t domain.Type) TypeEntry {
	switch tt := t.(type) {
	case domain.BuiltinType:
		return TypeEntry{Var: name, Kind: "builtin", Builtin: tt.Kind.String()}
	case domain.TypeVarType:
		return TypeEntry{Var: name, Kind: "type_var", TypeVar: tt.Name}
	case domain.TypeRefType:
		args := make([]TypeEntry, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = entryFromType("", a)
		}
		return TypeEntry{Var: name, Kind: "type_ref", TypeID: tt.TypeID, Args: args}
	case domain.FuncType:
		ins := make([]TypeEntry, len(tt.Inputs))
		for i, a := range tt.Inputs {
			ins[i] = entryFromType("", a)
		}
		outs := make([]TypeEntry, len(tt.Outputs))
		for i, a := range tt.Outputs {
			outs[i] = entryFromType("", a)
		}
		return TypeEntry{Var: name, Kind: "func", Inputs: ins, Outputs: outs, Uses: tt.Uses, Observes: tt.Observes}
	default:
		return TypeEntry{Var: name, Kind: "unknown"}
	}
}

// Marshal serializes a Stage to canonical CBOR bytes.
func Marshal(s Stage) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// Unmarshal deserializes a Stage from CBOR bytes.
func Unmarshal(data []byte) (Stage, error) {
	var s Stage
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Stage{}, fmt.Errorf("dump: unmarshal stage: %w", err)
	}
	return s, nil
}

// WriteFile marshals s and writes it to dir/<unit>.typecheck.cbor,
// creating dir if necessary.
func WriteFile(dir, unit string, s Stage) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("dump: creating %s: %w", dir, err)
	}
	data, err := Marshal(s)
	if err != nil {
		return fmt.Errorf("dump: marshal: %w", err)
	}
	path := filepath.Join(dir, unit+".typecheck.cbor")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("dump: writing %s: %w", path, err)
	}
	return nil
}

// ReadFile reads and unmarshals a stage dump previously written by
// WriteFile.
func ReadFile(path string) (Stage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Stage{}, fmt.Errorf("dump: reading %s: %w", path, err)
	}
	return Unmarshal(data)
}
