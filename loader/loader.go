package loader

import (
	"encoding/binary"
	"io"

	"github.com/jimbxb/plasma/binio"
	"github.com/jimbxb/plasma/gc"
	"github.com/jimbxb/plasma/library"
	"github.com/jimbxb/plasma/logging"
	"github.com/jimbxb/plasma/pzformat"
)

// Option configures a Load call.
type Option func(*loadState)

// WithDebugTrace enables recording of context (file/line) meta-items into
// each Proc's context table (spec.md §4.5 step 10). Off by default, since
// most loads (every dependency of a program, not just the program itself)
// never need it.
func WithDebugTrace(on bool) Option {
	return func(s *loadState) { s.debugTrace = on }
}

// WithPlatform selects the width platform structs and instructions resolve
// against (spec.md §4.5 step 7); defaults to pzformat.Platform64.
func WithPlatform(p pzformat.Platform) Option {
	return func(s *loadState) { s.plat = p }
}

// WithLogger attaches a structured logger; defaults to logging.Nop.
func WithLogger(l logging.Logger) Option {
	return func(s *loadState) { s.log = logging.OrNop(l) }
}

type loadState struct {
	br         *binio.Reader
	filename   string
	plat       pzformat.Platform
	debugTrace bool
	log        logging.Logger

	reg  *Registry
	heap *gc.Heap

	variant pzformat.Variant
	names   []string
	entry   *pzformat.EntryClosure
	ll      *library.LibraryLoading
}

// Load implements the two-pass PZ reader, spec.md §4.5's read(pz, filename,
// &library, &names): a single failure at any step abandons the
// partially-loaded library and the caller treats the module as unavailable.
// The caller registers the returned library with reg itself, once satisfied
// with it (e.g. after also checking Variant), so a program file never
// pollutes the import namespace.
func Load(reg *Registry, heap *gc.Heap, parentCap *gc.Capability, r io.ReadSeeker, filename string, opts ...Option) (*library.Library, error) {
	s := &loadState{
		br:       binio.NewReader(r),
		filename: filename,
		plat:     pzformat.Platform64,
		log:      logging.Nop,
		reg:      reg,
		heap:     heap,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.readHeader(); err != nil {
		return nil, err
	}
	if err := s.readOptions(); err != nil {
		return nil, err
	}
	if err := s.readNames(); err != nil {
		return nil, err
	}

	counts, err := s.readCounts()
	if err != nil {
		return nil, err
	}

	scope1 := gc.EnterNoGCScope(parentCap, "loader:read:"+filename)
	s.ll = library.NewLibraryLoading(scope1, counts.structs, counts.datas, counts.procs, counts.closures, counts.imports)

	if err := s.readImports(counts.imports); err != nil {
		scope1.Close()
		return nil, err
	}
	if err := s.readStructs(counts.structs); err != nil {
		scope1.Close()
		return nil, err
	}
	if err := s.readData(counts.datas); err != nil {
		scope1.Close()
		return nil, err
	}
	codeStart, err := s.readCodeFirstPass(counts.procs)
	if err != nil {
		scope1.Close()
		return nil, err
	}
	if err := s.readCodeSecondPass(counts.procs, codeStart); err != nil {
		scope1.Close()
		return nil, err
	}
	if err := s.readClosures(counts.closures); err != nil {
		scope1.Close()
		return nil, err
	}
	exports, err := s.readExports(counts.exports)
	if err != nil {
		scope1.Close()
		return nil, err
	}
	if err := s.checkTail(); err != nil {
		scope1.Close()
		return nil, err
	}
	scope1.Close()

	scope2 := gc.EnterNoGCScope(parentCap, "loader:freeze:"+filename)
	defer scope2.Close()

	var entry *library.EntryPoint
	if s.entry != nil {
		if int(s.entry.ClosureID) >= len(s.ll.Closures) {
			return nil, resolutionErrorf(filename, "entry closure", "closure id %d out of range (%d closures)", s.entry.ClosureID, len(s.ll.Closures))
		}
		entry = &library.EntryPoint{Signature: s.entry.Signature, Closure: s.ll.Closures[s.entry.ClosureID]}
	}

	moduleName := filename
	if len(s.names) > 0 {
		moduleName = s.names[0]
	}
	lib := s.ll.Freeze(moduleName, s.variant, s.names, exports, entry)
	// A closure's Lib can only be set once the Library it belongs to exists;
	// every closure-ref/import-closure-ref resolved during loading captured
	// the *library.Closure object itself, so this only needs to fill in the
	// back-pointer, not touch any already-resolved code or data.
	for _, c := range lib.Closures {
		c.Lib = lib
	}
	s.log.Info("loader: module loaded", "file", filename, "module", moduleName, "variant", s.variant.String())
	return lib, nil
}

// readHeader implements spec.md §4.5 step 1.
func (s *loadState) readHeader() error {
	magic, err := s.br.U32()
	if err != nil {
		return formatErrorf(s.filename, 0, "reading magic: %v", err)
	}
	variant, ok := pzformat.VariantFromMagic(magic)
	if !ok {
		return formatErrorf(s.filename, 0, "unrecognised magic 0x%08x", magic)
	}
	if variant == pzformat.VariantObject {
		return formatErrorf(s.filename, 0, "object variant cannot be loaded for execution or import")
	}
	s.variant = variant

	desc, err := s.br.Str16()
	if err != nil {
		return formatErrorf(s.filename, 4, "reading description: %v", err)
	}
	wantPrefix := pzformat.DescPrefixLibrary
	if variant == pzformat.VariantProgram {
		wantPrefix = pzformat.DescPrefixProgram
	}
	if len(desc) < len(wantPrefix) || desc[:len(wantPrefix)] != wantPrefix {
		return formatErrorf(s.filename, 4, "description %q does not start with %q", desc, wantPrefix)
	}

	version, err := s.br.U16()
	if err != nil {
		return formatErrorf(s.filename, -1, "reading version: %v", err)
	}
	if version != pzformat.FormatVersion {
		return formatErrorf(s.filename, -1, "unsupported format version %d (want %d)", version, pzformat.FormatVersion)
	}
	return nil
}

// readOptions implements spec.md §4.5 step 2.
func (s *loadState) readOptions() error {
	numOpts, err := s.br.U16()
	if err != nil {
		return formatErrorf(s.filename, -1, "reading option count: %v", err)
	}
	for i := uint16(0); i < numOpts; i++ {
		typ, err := s.br.U16()
		if err != nil {
			return formatErrorf(s.filename, -1, "reading option %d type: %v", i, err)
		}
		length, err := s.br.U16()
		if err != nil {
			return formatErrorf(s.filename, -1, "reading option %d length: %v", i, err)
		}
		value, err := s.br.Bytes(int(length))
		if err != nil {
			return formatErrorf(s.filename, -1, "reading option %d value: %v", i, err)
		}
		if pzformat.OptionType(typ) == pzformat.OptEntryClosure {
			if len(value) != 5 {
				return formatErrorf(s.filename, -1, "entry-closure option has length %d, want 5", len(value))
			}
			s.entry = &pzformat.EntryClosure{
				Signature: pzformat.EntrySignature(value[0]),
				ClosureID: binary.LittleEndian.Uint32(value[1:5]),
			}
		}
		// Unknown option types are simply skipped by length.
	}
	return nil
}

// readNames implements spec.md §4.5 step 3.
func (s *loadState) readNames() error {
	numNames, err := s.br.U32()
	if err != nil {
		return formatErrorf(s.filename, -1, "reading name count: %v", err)
	}
	s.names = make([]string, numNames)
	for i := range s.names {
		n, err := s.br.Str16()
		if err != nil {
			return formatErrorf(s.filename, -1, "reading name %d: %v", i, err)
		}
		s.names[i] = n
	}
	return nil
}

type counts struct {
	imports, structs, datas, procs, closures, exports int
}

// readCounts implements spec.md §4.5 step 4.
func (s *loadState) readCounts() (counts, error) {
	var c counts
	fields := []*int{&c.imports, &c.structs, &c.datas, &c.procs, &c.closures, &c.exports}
	names := []string{"imports", "structs", "datas", "procs", "closures", "exports"}
	for i, f := range fields {
		v, err := s.br.U32()
		if err != nil {
			return counts{}, formatErrorf(s.filename, -1, "reading %s count: %v", names[i], err)
		}
		*f = int(v)
	}
	return c, nil
}

// readImports implements spec.md §4.5 step 6.
func (s *loadState) readImports(n int) error {
	for i := 0; i < n; i++ {
		moduleName, err := s.br.Str16()
		if err != nil {
			return formatErrorf(s.filename, -1, "reading import %d module name: %v", i, err)
		}
		symbolName, err := s.br.Str16()
		if err != nil {
			return formatErrorf(s.filename, -1, "reading import %d symbol name: %v", i, err)
		}
		lib, ok := s.reg.Get(moduleName)
		if !ok {
			return resolutionErrorf(s.filename, moduleName, "module not loaded")
		}
		qualified := moduleName + "." + symbolName
		export, ok := lib.Export(qualified)
		if !ok {
			return resolutionErrorf(s.filename, qualified, "symbol not exported by %q", moduleName)
		}
		s.ll.Imports[i] = &library.ResolvedImport{Module: moduleName, Symbol: symbolName, Export: export}
	}
	return nil
}

// readStructs implements spec.md §4.5 step 7.
func (s *loadState) readStructs(n int) error {
	for i := 0; i < n; i++ {
		numFields, err := s.br.U32()
		if err != nil {
			return formatErrorf(s.filename, -1, "reading struct %d field count: %v", i, err)
		}
		widths := make([]pzformat.Width, numFields)
		for j := range widths {
			wb, err := s.br.U8()
			if err != nil {
				return formatErrorf(s.filename, -1, "reading struct %d field %d width: %v", i, j, err)
			}
			if wb > uint8(pzformat.WPtr) {
				return formatErrorf(s.filename, -1, "struct %d field %d: unknown width code %d", i, j, wb)
			}
			widths[j] = pzformat.Width(wb)
		}
		s.ll.Structs[i] = pzformat.LayoutStruct(s.plat, widths)
	}
	return nil
}

func wordsForBytes(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + gc.WordSize - 1) / gc.WordSize
}

func uintBytes(v uintptr, n int) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	out := make([]byte, n)
	copy(out, buf[:n])
	return out
}

// readDataSlot decodes one (enc_type, enc_bytes) tag and value, returning
// targetBytes bytes ready to be copied into the destination payload
// (spec.md §3.1 "data slot encoding", §4.5 step 8's per-encoding semantics).
func (s *loadState) readDataSlot(targetBytes, dataIndex int) ([]byte, error) {
	tag, err := s.br.U8()
	if err != nil {
		return nil, formatErrorf(s.filename, -1, "reading data slot tag: %v", err)
	}
	encType, nibble := pzformat.DecodeEncByte(tag)

	switch encType {
	case pzformat.EncNormal:
		if int(nibble) != targetBytes {
			return nil, formatErrorf(s.filename, -1, "data %d: normal encoding width %d does not match target width %d", dataIndex, nibble, targetBytes)
		}
		raw, err := s.br.Bytes(targetBytes)
		if err != nil {
			return nil, formatErrorf(s.filename, -1, "data %d: reading normal value: %v", dataIndex, err)
		}
		return raw, nil

	case pzformat.EncFast, pzformat.EncWPtr:
		raw, err := s.br.I32()
		if err != nil {
			return nil, formatErrorf(s.filename, -1, "data %d: reading fast/wptr value: %v", dataIndex, err)
		}
		return uintBytes(uintptr(int64(raw)), targetBytes), nil

	case pzformat.EncData:
		id, err := s.br.U32()
		if err != nil {
			return nil, formatErrorf(s.filename, -1, "data %d: reading data-ref id: %v", dataIndex, err)
		}
		if int(id) >= dataIndex {
			return nil, formatErrorf(s.filename, -1, "data %d: forward reference to data %d", dataIndex, id)
		}
		return uintBytes(s.ll.Datas[id].Addr, targetBytes), nil

	case pzformat.EncImport:
		id, err := s.br.U32()
		if err != nil {
			return nil, formatErrorf(s.filename, -1, "data %d: reading import-ref id: %v", dataIndex, err)
		}
		if int(id) >= len(s.ll.Imports) {
			return nil, resolutionErrorf(s.filename, "import-ref", "data %d: import id %d out of range", dataIndex, id)
		}
		return uintBytes(s.ll.Imports[id].Export.Closure.Addr(), targetBytes), nil

	case pzformat.EncClosure:
		id, err := s.br.U32()
		if err != nil {
			return nil, formatErrorf(s.filename, -1, "data %d: reading closure-ref id: %v", dataIndex, err)
		}
		if int(id) >= len(s.ll.Closures) {
			return nil, resolutionErrorf(s.filename, "closure-ref", "data %d: closure id %d out of range", dataIndex, id)
		}
		return uintBytes(s.ll.Closures[id].Addr(), targetBytes), nil

	default:
		return nil, formatErrorf(s.filename, -1, "data %d: unknown encoding tag %d", dataIndex, encType)
	}
}

// readData implements spec.md §4.5 step 8.
func (s *loadState) readData(n int) error {
	for i := 0; i < n; i++ {
		kindByte, err := s.br.U8()
		if err != nil {
			return formatErrorf(s.filename, -1, "reading data %d kind: %v", i, err)
		}
		kind := pzformat.DataKind(kindByte)

		switch kind {
		case pzformat.DataArray, pzformat.DataString:
			numElems, err := s.br.U16()
			if err != nil {
				return formatErrorf(s.filename, -1, "data %d: reading element count: %v", i, err)
			}
			ewb, err := s.br.U8()
			if err != nil {
				return formatErrorf(s.filename, -1, "data %d: reading element width: %v", i, err)
			}
			if ewb > uint8(pzformat.WPtr) {
				return formatErrorf(s.filename, -1, "data %d: unknown element width code %d", i, ewb)
			}
			elemBytes := s.plat.Bytes(pzformat.Width(ewb))
			total := int(numElems) * elemBytes

			addr, err := s.heap.Alloc(wordsForBytes(total), s.ll.Scope().Capability)
			if err != nil {
				return formatErrorf(s.filename, -1, "data %d: allocating payload: %v", i, err)
			}
			view := gc.BytesView(addr, total)
			for e := 0; e < int(numElems); e++ {
				val, err := s.readDataSlot(elemBytes, i)
				if err != nil {
					return err
				}
				copy(view[e*elemBytes:(e+1)*elemBytes], val)
			}
			s.ll.Datas[i] = library.DataItem{Addr: addr, Kind: kind, Len: total}

		case pzformat.DataStruct:
			structID, err := s.br.U32()
			if err != nil {
				return formatErrorf(s.filename, -1, "data %d: reading struct id: %v", i, err)
			}
			if int(structID) >= len(s.ll.Structs) {
				return resolutionErrorf(s.filename, "struct", "data %d: struct id %d out of range", i, structID)
			}
			st := s.ll.Structs[structID]

			addr, err := s.heap.Alloc(wordsForBytes(st.TotalSize), s.ll.Scope().Capability)
			if err != nil {
				return formatErrorf(s.filename, -1, "data %d: allocating payload: %v", i, err)
			}
			view := gc.BytesView(addr, st.TotalSize)
			for _, field := range st.Fields {
				fieldBytes := s.plat.Bytes(field.Width)
				val, err := s.readDataSlot(fieldBytes, i)
				if err != nil {
					return err
				}
				copy(view[field.Offset:field.Offset+fieldBytes], val)
			}
			s.ll.Datas[i] = library.DataItem{Addr: addr, Kind: kind, Len: st.TotalSize}

		default:
			return formatErrorf(s.filename, -1, "data %d: unknown data kind %d", i, kindByte)
		}
	}
	return nil
}
