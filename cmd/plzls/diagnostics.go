package main

import (
	"bytes"

	"github.com/jimbxb/plasma/gc"
	"github.com/jimbxb/plasma/loader"
	"github.com/jimbxb/plasma/logging"
)

// checkDocument verifies a document's raw bytes as a PZ module, the same
// check plzc runs before accepting a compiled unit. Parsing and
// type-checking a surface source language is out of scope here for the same
// reason it is out of scope for plzc (spec.md §9, SPEC_FULL.md §2 names
// source-to-PZ lowering an external collaborator's responsibility): plzls
// can only offer diagnostics on the artifact this toolchain actually
// understands, the PZ binary itself, so an editor pointed at a .pz file
// gets live header/reference verification as it's edited.
func checkDocument(text string) (msg string, ok bool) {
	raw := []byte(text)
	r := bytes.NewReader(raw)

	if _, err := loader.Peek(r, "<document>"); err != nil {
		return err.Error(), false
	}

	reg := loader.NewRegistry()
	heap := gc.NewHeap(gc.WithLogger(logging.Nop))
	root := gc.NewRootCapability("plzls")
	if _, err := r.Seek(0, 0); err != nil {
		return err.Error(), false
	}
	if _, err := loader.Load(reg, heap, root, r, "<document>", loader.WithLogger(logging.Nop)); err != nil {
		return err.Error(), false
	}
	return "", true
}
