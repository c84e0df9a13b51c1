package config

import (
	"bytes"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
)

// schema is the CUE constraint plasma.toml must satisfy: project.name is
// mandatory, the compiler variant is either unset or one of "32"/"64", and
// dump-stages implies nothing else about the shape of the file (SPEC_FULL.md
// §1's "config schema validation" addition, so a malformed manifest fails
// fast with a field-level error instead of surfacing as a confusing
// downstream compiler error).
const schema = `
project: name: string & !=""
project: version?: string
source?: {
	dirs?: [...string]
	entry?: string
}
compiler?: {
	"dump-stages"?: bool
	"dump-dir"?: string
	variant?: "32" | "64" | ""
}
cache?: {
	enabled?: bool
	path?: string
}
`

// Validate decodes raw TOML bytes into a generic document, lifts it into a
// CUE value via cuecontext's Go-value encoder, and unifies it against
// schema, reporting the first field-level constraint violation.
func Validate(data []byte) error {
	var doc map[string]any
	if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return fmt.Errorf("decoding TOML: %w", err)
	}

	ctx := cuecontext.New()
	docValue := ctx.Encode(doc)
	if err := docValue.Err(); err != nil {
		return fmt.Errorf("lifting to CUE: %w", err)
	}

	sv := ctx.CompileString(schema)
	if err := sv.Err(); err != nil {
		return fmt.Errorf("internal schema error: %w", err)
	}

	unified := sv.Unify(docValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
