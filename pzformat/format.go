// Package pzformat defines the PZ binary format's constants and in-memory
// representations of file-level structures (spec.md §3.1, §6.1). It is pure
// data: the loader (package loader) is the only consumer that interprets
// these bytes with I/O.
package pzformat

import "fmt"

// Magic numbers distinguish the three module variants.
const (
	MagicProgram uint32 = 0x505A5000
	MagicLibrary uint32 = 0x505A4C00
	MagicObject  uint32 = 0x505A4F00
)

// DescPrefix is the required prefix of the description string that follows
// the magic number; the suffix (version text) is not interpreted.
const (
	DescPrefixProgram = "Plasma program"
	DescPrefixLibrary = "Plasma library"
)

// FormatVersion is the only version this reader accepts. There is no
// backward compatibility (spec.md §6.1).
const FormatVersion uint16 = 1

// Variant identifies which of the three module kinds a file declares.
type Variant uint8

const (
	VariantObject Variant = iota
	VariantProgram
	VariantLibrary
)

func (v Variant) String() string {
	switch v {
	case VariantObject:
		return "object"
	case VariantProgram:
		return "program"
	case VariantLibrary:
		return "library"
	default:
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
}

// VariantFromMagic maps a magic number to its Variant, or reports false if
// the magic number is unrecognised.
func VariantFromMagic(magic uint32) (Variant, bool) {
	switch magic {
	case MagicProgram:
		return VariantProgram, true
	case MagicLibrary:
		return VariantLibrary, true
	case MagicObject:
		return VariantObject, true
	default:
		return 0, false
	}
}

// Width is the operand/value width enumeration used throughout the format.
type Width uint8

const (
	W8 Width = iota
	W16
	W32
	W64
	WFast // "efficient integer width", platform-chosen >= 32 bits
	WPtr  // native pointer width
)

func (w Width) String() string {
	switch w {
	case W8:
		return "w8"
	case W16:
		return "w16"
	case W32:
		return "w32"
	case W64:
		return "w64"
	case WFast:
		return "fast"
	case WPtr:
		return "ptr"
	default:
		return fmt.Sprintf("Width(%d)", uint8(w))
	}
}

// Platform describes the host word sizes used to resolve WFast/WPtr to a
// concrete byte count (spec.md §4.5 step 7).
type Platform struct {
	FastBytes int // bytes for WFast (>=4; this implementation always uses 4)
	PtrBytes  int // bytes for WPtr (4 on 32-bit hosts, 8 on 64-bit hosts)
}

// Platform64 is the little-endian 64-bit host platform.
var Platform64 = Platform{FastBytes: 4, PtrBytes: 8}

// Platform32 is the little-endian 32-bit host platform.
var Platform32 = Platform{FastBytes: 4, PtrBytes: 4}

// Bytes returns the concrete byte width of w on this platform. Panics on an
// unknown width; the loader validates widths before calling this.
func (p Platform) Bytes(w Width) int {
	switch w {
	case W8:
		return 1
	case W16:
		return 2
	case W32:
		return 4
	case W64:
		return 8
	case WFast:
		return p.FastBytes
	case WPtr:
		return p.PtrBytes
	default:
		panic(fmt.Sprintf("pzformat: unknown width %v", w))
	}
}

// OptionType identifies a recognised option entry; unknown types are
// skipped by length (spec.md §4.5 step 2).
type OptionType uint16

const (
	OptEntryClosure OptionType = 0
)

// EntrySignature distinguishes the two calling conventions an entry
// closure may declare.
type EntrySignature uint8

const (
	EntryPlain EntrySignature = 0
	EntryArgs  EntrySignature = 1
)

func (s EntrySignature) String() string {
	if s == EntryArgs {
		return "argv"
	}
	return "plain"
}

// EntryClosure records the ENTRY_CLOSURE option's payload.
type EntryClosure struct {
	Signature EntrySignature
	ClosureID uint32
}

// DataEncType is the 4-bit tag half of a data-slot encoding byte.
type DataEncType uint8

const (
	EncNormal DataEncType = 0x0
	EncFast   DataEncType = 0x1
	EncWPtr   DataEncType = 0x2
	EncData   DataEncType = 0x3
	EncImport DataEncType = 0x4
	EncClosure DataEncType = 0x5
)

// DecodeEncByte splits a data-slot tag byte into its type and byte-width
// nibbles (spec.md §3.1, §6.1: "(type:4, bytes:4)").
func DecodeEncByte(b uint8) (DataEncType, uint8) {
	return DataEncType(b >> 4), b & 0x0F
}

// EncodeEncByte packs a type/width pair into a tag byte, mostly useful for
// tests' fixture builders.
func EncodeEncByte(t DataEncType, bytes uint8) uint8 {
	return uint8(t)<<4 | (bytes & 0x0F)
}

// DataKind identifies which shape a data entry has.
type DataKind uint8

const (
	DataArray DataKind = iota
	DataStruct
	DataString
)

// CodeItemTag is the leading byte of a code item within a proc block.
type CodeItemTag uint8

const (
	ItemInstr             CodeItemTag = 0
	ItemMetaContext       CodeItemTag = 1
	ItemMetaContextShort  CodeItemTag = 2
	ItemMetaContextNil    CodeItemTag = 3
)

// StructField is one field's declared width within a Struct definition.
type StructField struct {
	Width Width
}

// LaidOutField is a field after layout: its byte offset and width.
type LaidOutField struct {
	Width  Width
	Offset int
}

// Struct is a struct definition after layout (spec.md §3.1).
type Struct struct {
	Fields    []LaidOutField
	TotalSize int
}

// LayoutStruct computes per-field byte offsets and the total size for a
// list of declared field widths, in declaration order, with no padding
// (spec.md §4.5 step 7).
func LayoutStruct(plat Platform, fields []Width) Struct {
	s := Struct{Fields: make([]LaidOutField, len(fields))}
	offset := 0
	for i, w := range fields {
		s.Fields[i] = LaidOutField{Width: w, Offset: offset}
		offset += plat.Bytes(w)
	}
	s.TotalSize = offset
	return s
}

// Import is a single (module, symbol) import request.
type Import struct {
	Module string
	Symbol string
}

// Export binds a name to a local closure id.
type Export struct {
	Name      string
	ClosureID uint32
}

// ClosureDef binds a proc id to an environment data id, before resolution.
type ClosureDef struct {
	ProcID uint32
	DataID uint32
}
