package loader

import (
	"io"

	"github.com/jimbxb/plasma/binio"
	"github.com/jimbxb/plasma/pzformat"
)

// Info is the result of a cheap header-only inspection (SPEC_FULL.md §3.2),
// used by cmd/plzstat and cmd/plzls to classify a file without paying for a
// full two-pass load.
type Info struct {
	Variant pzformat.Variant
	Desc    string
	Version uint16
}

// Peek reads just the header (magic, description, version) and reports it,
// leaving r positioned after the version field. It does not validate the
// description prefix or version the way Load does; callers that need a
// go/no-go answer should call Load.
func Peek(r io.ReadSeeker, filename string) (Info, error) {
	br := binio.NewReader(r)

	magic, err := br.U32()
	if err != nil {
		return Info{}, formatErrorf(filename, 0, "reading magic: %v", err)
	}
	variant, ok := pzformat.VariantFromMagic(magic)
	if !ok {
		return Info{}, formatErrorf(filename, 0, "unrecognised magic 0x%08x", magic)
	}
	desc, err := br.Str16()
	if err != nil {
		return Info{}, formatErrorf(filename, 4, "reading description: %v", err)
	}
	version, err := br.U16()
	if err != nil {
		return Info{}, formatErrorf(filename, -1, "reading version: %v", err)
	}
	return Info{Variant: variant, Desc: desc, Version: version}, nil
}
