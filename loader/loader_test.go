package loader

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/jimbxb/plasma/binio"
	"github.com/jimbxb/plasma/gc"
	"github.com/jimbxb/plasma/pzformat"
)

// buildHeader writes the magic/desc/version/options/names common prefix
// shared by every fixture in this file.
func buildHeader(w *binio.Writer, variant pzformat.Variant, moduleName string, entry *pzformat.EntryClosure) {
	switch variant {
	case pzformat.VariantProgram:
		w.U32(pzformat.MagicProgram).Str16("Plasma program v1")
	case pzformat.VariantLibrary:
		w.U32(pzformat.MagicLibrary).Str16("Plasma library v1")
	case pzformat.VariantObject:
		w.U32(pzformat.MagicObject).Str16("Plasma object v1")
	}
	w.U16(pzformat.FormatVersion)

	if entry != nil {
		w.U16(1)                                // num_opts
		w.U16(uint16(pzformat.OptEntryClosure))
		w.U16(5)
		w.U8(uint8(entry.Signature))
		w.U32(entry.ClosureID)
	} else {
		w.U16(0)
	}

	w.U32(1)
	w.Str16(moduleName)
}

// TestLoadEmptyProgram covers spec.md §8.2 scenario 1: one proc with no
// instructions, entry closure referencing it, load succeeds.
func TestLoadEmptyProgram(t *testing.T) {
	w := binio.NewWriter()
	entry := &pzformat.EntryClosure{Signature: pzformat.EntryPlain, ClosureID: 0}
	buildHeader(w, pzformat.VariantProgram, "main", entry)

	w.U32(0) // imports
	w.U32(0) // structs
	w.U32(0) // datas
	w.U32(1) // procs
	w.U32(1) // closures
	w.U32(0) // exports

	// proc 0: "main", 1 block, 0 items.
	w.Str16("main").U32(1)
	w.U32(0)

	// closure 0: proc_id=0, data_id=no-env sentinel.
	w.U32(0).U32(0xFFFFFFFF)

	r := bytes.NewReader(w.Bytes())
	reg := NewRegistry()
	heap := gc.NewHeap()
	root := gc.NewRootCapability("test")

	lib, err := Load(reg, heap, root, r, "empty.pz")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if lib.Variant != pzformat.VariantProgram {
		t.Fatalf("variant = %v, want program", lib.Variant)
	}
	if lib.Entry == nil {
		t.Fatal("expected an entry point")
	}
	if lib.Entry.Signature != pzformat.EntryPlain {
		t.Fatalf("entry signature = %v, want plain", lib.Entry.Signature)
	}
	if len(lib.Procs) != 1 || len(lib.Procs[0].Code) != 0 {
		t.Fatalf("expected one empty proc, got %+v", lib.Procs)
	}
	if lib.Entry.Closure.CodePtr != 0 {
		t.Fatalf("entry closure code ptr = %d, want 0", lib.Entry.Closure.CodePtr)
	}
}

// TestLoadForwardDataReferenceRejected covers spec.md §8.2 scenario 3.
func TestLoadForwardDataReferenceRejected(t *testing.T) {
	w := binio.NewWriter()
	buildHeader(w, pzformat.VariantLibrary, "testlib", nil)

	w.U32(0) // imports
	w.U32(0) // structs
	w.U32(2) // datas
	w.U32(0) // procs
	w.U32(0) // closures
	w.U32(0) // exports

	// data 0: array of 1 word, whose sole element is a data-ref to data 1
	// (a strictly higher id than its own — forbidden forward reference).
	w.U8(uint8(pzformat.DataArray))
	w.U16(1)
	w.U8(uint8(pzformat.WPtr))
	w.U8(pzformat.EncodeEncByte(pzformat.EncData, 4))
	w.U32(1)

	// data 1 is never reached; its bytes are deliberately omitted.

	r := bytes.NewReader(w.Bytes())
	reg := NewRegistry()
	heap := gc.NewHeap()
	root := gc.NewRootCapability("test")

	_, err := Load(reg, heap, root, r, "forward.pz")
	if err == nil {
		t.Fatal("expected an error for a forward data reference")
	}
	if !strings.Contains(err.Error(), "forward reference") {
		t.Fatalf("error %q does not mention a forward reference", err.Error())
	}
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("error is not a *FormatError: %T", err)
	}
}

// TestLoadRejectsObjectVariant covers spec.md §4.5 step 1.
func TestLoadRejectsObjectVariant(t *testing.T) {
	w := binio.NewWriter()
	buildHeader(w, pzformat.VariantObject, "obj", nil)
	w.U32(0).U32(0).U32(0).U32(0).U32(0).U32(0)

	r := bytes.NewReader(w.Bytes())
	reg := NewRegistry()
	heap := gc.NewHeap()
	root := gc.NewRootCapability("test")

	_, err := Load(reg, heap, root, r, "obj.pz")
	if err == nil {
		t.Fatal("expected object variant to be rejected")
	}
}

// TestLoadRejectsBadVersion covers spec.md §6.1: version must match exactly.
func TestLoadRejectsBadVersion(t *testing.T) {
	w := binio.NewWriter()
	w.U32(pzformat.MagicLibrary).Str16("Plasma library v1")
	w.U16(pzformat.FormatVersion + 1)
	w.U16(0)
	w.U32(0)
	w.U32(0).U32(0).U32(0).U32(0).U32(0).U32(0)

	r := bytes.NewReader(w.Bytes())
	reg := NewRegistry()
	heap := gc.NewHeap()
	root := gc.NewRootCapability("test")

	_, err := Load(reg, heap, root, r, "badversion.pz")
	if err == nil {
		t.Fatal("expected a version mismatch error")
	}
}

// TestLoadRejectsTrailingJunk covers spec.md §4.5 step 13.
func TestLoadRejectsTrailingJunk(t *testing.T) {
	w := binio.NewWriter()
	buildHeader(w, pzformat.VariantLibrary, "lib", nil)
	w.U32(0).U32(0).U32(0).U32(0).U32(0).U32(0)
	w.U8(0xFF) // trailing junk

	r := bytes.NewReader(w.Bytes())
	reg := NewRegistry()
	heap := gc.NewHeap()
	root := gc.NewRootCapability("test")

	_, err := Load(reg, heap, root, r, "junk.pz")
	if err == nil {
		t.Fatal("expected trailing junk to be rejected")
	}
	if !strings.Contains(err.Error(), "junk") {
		t.Fatalf("error %q does not mention junk", err.Error())
	}
}

// TestLoadResolvesImportAcrossModules exercises step 6 end to end: a
// library exports a closure, a second module imports it and refers to it
// via an import-ref slot inside its own data section.
func TestLoadResolvesImportAcrossModules(t *testing.T) {
	reg := NewRegistry()
	heap := gc.NewHeap()
	root := gc.NewRootCapability("test")

	// lib.pz: one proc, one closure, exported as "lib.greet".
	lw := binio.NewWriter()
	buildHeader(lw, pzformat.VariantLibrary, "lib", nil)
	lw.U32(0).U32(0).U32(0) // imports, structs, datas
	lw.U32(1)               // procs
	lw.U32(1)               // closures
	lw.U32(1)               // exports
	lw.Str16("greet").U32(1)
	lw.U32(0) // block 0, 0 items
	lw.U32(0).U32(0xFFFFFFFF)
	lw.Str16("greet").U32(0)

	libLib, err := Load(reg, heap, root, bytes.NewReader(lw.Bytes()), "lib.pz")
	if err != nil {
		t.Fatalf("loading lib.pz: %v", err)
	}
	reg.Register(libLib)

	// main.pz: imports lib.greet, stores its closure pointer in a
	// one-word data array via an import-ref slot.
	mw := binio.NewWriter()
	buildHeader(mw, pzformat.VariantProgram, "main", nil)
	mw.U32(1) // imports
	mw.U32(0) // structs
	mw.U32(1) // datas
	mw.U32(0) // procs
	mw.U32(0) // closures
	mw.U32(0) // exports

	mw.Str16("lib").Str16("greet")

	mw.U8(uint8(pzformat.DataArray))
	mw.U16(1)
	mw.U8(uint8(pzformat.WPtr))
	mw.U8(pzformat.EncodeEncByte(pzformat.EncImport, 4))
	mw.U32(0)

	mainLib, err := Load(reg, heap, root, bytes.NewReader(mw.Bytes()), "main.pz")
	if err != nil {
		t.Fatalf("loading main.pz: %v", err)
	}
	if len(mainLib.Imports) != 1 {
		t.Fatalf("expected 1 resolved import, got %d", len(mainLib.Imports))
	}
	if mainLib.Imports[0].Export.Closure != libLib.Closures[0] {
		t.Fatal("resolved import does not point at lib's closure")
	}

	got := gc.BytesView(mainLib.Datas[0].Addr, 8)
	want := uintBytes(libLib.Closures[0].Addr(), 8)
	if !bytes.Equal(got, want) {
		t.Fatal("data slot does not contain the imported closure's address")
	}
}
