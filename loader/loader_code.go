package loader

import (
	"github.com/jimbxb/plasma/library"
	"github.com/jimbxb/plasma/pzformat"
)

// readCodeFirstPass implements spec.md §4.5 step 9: record the current file
// offset, then for every proc scan its blocks and items only far enough to
// compute the proc's total resolved byte size and each block's byte offset
// within it. No code is written yet; this pass exists so pass two can
// resolve label-refs (which target a block, not a byte) into concrete
// offsets that are already known before any instruction is written.
func (s *loadState) readCodeFirstPass(n int) (int64, error) {
	codeStart, err := s.br.Tell()
	if err != nil {
		return 0, formatErrorf(s.filename, -1, "recording code section offset: %v", err)
	}

	for i := 0; i < n; i++ {
		name, err := s.br.Str16()
		if err != nil {
			return 0, formatErrorf(s.filename, -1, "proc %d: reading name: %v", i, err)
		}
		numBlocks, err := s.br.U32()
		if err != nil {
			return 0, formatErrorf(s.filename, -1, "proc %d: reading block count: %v", i, err)
		}
		blockOffsets := make([]int, numBlocks)
		size := 0
		for b := uint32(0); b < numBlocks; b++ {
			blockOffsets[b] = size
			delta, err := s.scanBlockSize(i, int(b))
			if err != nil {
				return 0, err
			}
			size += delta
		}
		s.ll.Procs[i] = &library.Proc{Name: name, Code: make([]byte, size), BlockOffsets: blockOffsets}
	}
	return codeStart, nil
}

// scanBlockSize consumes one block's items from the file (sizing only) and
// returns the number of resolved code bytes it will occupy.
func (s *loadState) scanBlockSize(procIdx, blockIdx int) (int, error) {
	numItems, err := s.br.U32()
	if err != nil {
		return 0, formatErrorf(s.filename, -1, "proc %d block %d: reading item count: %v", procIdx, blockIdx, err)
	}
	size := 0
	for it := uint32(0); it < numItems; it++ {
		tag, err := s.br.U8()
		if err != nil {
			return 0, formatErrorf(s.filename, -1, "proc %d block %d item %d: reading tag: %v", procIdx, blockIdx, it, err)
		}
		switch pzformat.CodeItemTag(tag) {
		case pzformat.ItemInstr:
			op, err := s.br.U8()
			if err != nil {
				return 0, formatErrorf(s.filename, -1, "proc %d block %d item %d: reading opcode: %v", procIdx, blockIdx, it, err)
			}
			info, ok := pzformat.Info(pzformat.Opcode(op))
			if !ok {
				return 0, formatErrorf(s.filename, -1, "proc %d block %d item %d: unknown opcode %d", procIdx, blockIdx, it, op)
			}
			if _, err := s.br.Bytes(info.NumWidthBytes); err != nil {
				return 0, formatErrorf(s.filename, -1, "proc %d block %d item %d: reading width bytes: %v", procIdx, blockIdx, it, err)
			}
			immSize := pzformat.ImmediateByteSize(s.plat, info.Immediate)
			if _, err := s.br.Bytes(immSize); err != nil {
				return 0, formatErrorf(s.filename, -1, "proc %d block %d item %d: reading immediate: %v", procIdx, blockIdx, it, err)
			}
			size += 1 + pzformat.ResolvedSize(s.plat, info.Immediate)

		case pzformat.ItemMetaContext:
			if _, err := s.br.Bytes(8); err != nil {
				return 0, formatErrorf(s.filename, -1, "proc %d block %d item %d: reading context: %v", procIdx, blockIdx, it, err)
			}
		case pzformat.ItemMetaContextShort:
			if _, err := s.br.Bytes(4); err != nil {
				return 0, formatErrorf(s.filename, -1, "proc %d block %d item %d: reading short context: %v", procIdx, blockIdx, it, err)
			}
		case pzformat.ItemMetaContextNil:
			// no payload

		default:
			return 0, formatErrorf(s.filename, -1, "proc %d block %d item %d: unknown item tag %d", procIdx, blockIdx, it, tag)
		}
	}
	return size, nil
}

// readCodeSecondPass implements spec.md §4.5 step 10: seek back to
// codeStart and re-read every item, this time resolving each instruction's
// immediate into the proc's already-allocated Code buffer.
func (s *loadState) readCodeSecondPass(n int, codeStart int64) error {
	if err := s.br.SeekSet(codeStart); err != nil {
		return formatErrorf(s.filename, -1, "seeking back to code section: %v", err)
	}

	for i := 0; i < n; i++ {
		if _, err := s.br.Str16(); err != nil { // proc name, already recorded
			return formatErrorf(s.filename, -1, "proc %d: re-reading name: %v", i, err)
		}
		numBlocks, err := s.br.U32()
		if err != nil {
			return formatErrorf(s.filename, -1, "proc %d: re-reading block count: %v", i, err)
		}
		proc := s.ll.Procs[i]
		pos := 0
		for b := uint32(0); b < numBlocks; b++ {
			if err := s.resolveBlock(i, int(b), proc, &pos); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *loadState) resolveBlock(procIdx, blockIdx int, proc *library.Proc, pos *int) error {
	numItems, err := s.br.U32()
	if err != nil {
		return formatErrorf(s.filename, -1, "proc %d block %d: re-reading item count: %v", procIdx, blockIdx, err)
	}
	for it := uint32(0); it < numItems; it++ {
		tag, err := s.br.U8()
		if err != nil {
			return formatErrorf(s.filename, -1, "proc %d block %d item %d: re-reading tag: %v", procIdx, blockIdx, it, err)
		}
		switch pzformat.CodeItemTag(tag) {
		case pzformat.ItemInstr:
			op, err := s.br.U8()
			if err != nil {
				return formatErrorf(s.filename, -1, "proc %d block %d item %d: re-reading opcode: %v", procIdx, blockIdx, it, err)
			}
			info, ok := pzformat.Info(pzformat.Opcode(op))
			if !ok {
				return formatErrorf(s.filename, -1, "proc %d block %d item %d: unknown opcode %d", procIdx, blockIdx, it, op)
			}
			if _, err := s.br.Bytes(info.NumWidthBytes); err != nil {
				return formatErrorf(s.filename, -1, "proc %d block %d item %d: re-reading width bytes: %v", procIdx, blockIdx, it, err)
			}
			resolved, err := s.resolveImmediate(info.Immediate, procIdx, proc)
			if err != nil {
				return err
			}
			proc.Code[*pos] = op
			*pos = *pos + 1
			copy(proc.Code[*pos:], resolved)
			*pos = *pos + len(resolved)

		case pzformat.ItemMetaContext:
			dataID, err := s.br.U32()
			if err != nil {
				return formatErrorf(s.filename, -1, "proc %d block %d item %d: re-reading context data id: %v", procIdx, blockIdx, it, err)
			}
			line, err := s.br.I32()
			if err != nil {
				return formatErrorf(s.filename, -1, "proc %d block %d item %d: re-reading context line: %v", procIdx, blockIdx, it, err)
			}
			if s.debugTrace {
				proc.Context = append(proc.Context, library.ContextEntry{Offset: *pos, HasFile: true, File: int32(dataID), Line: line})
			}

		case pzformat.ItemMetaContextShort:
			line, err := s.br.I32()
			if err != nil {
				return formatErrorf(s.filename, -1, "proc %d block %d item %d: re-reading short context line: %v", procIdx, blockIdx, it, err)
			}
			if s.debugTrace {
				proc.Context = append(proc.Context, library.ContextEntry{Offset: *pos, HasFile: false, Line: line})
			}

		case pzformat.ItemMetaContextNil:
			// Clears any pending context; nothing to record.

		default:
			return formatErrorf(s.filename, -1, "proc %d block %d item %d: unknown item tag %d", procIdx, blockIdx, it, tag)
		}
	}
	return nil
}

// resolveImmediate implements spec.md §4.5 step 10's per-kind resolution
// rules. Every symbolic reference is a raw 32-bit local id on disk
// (pzformat.ImmediateByteSize) and resolves to one platform-width value.
func (s *loadState) resolveImmediate(kind pzformat.ImmediateKind, procIdx int, proc *library.Proc) ([]byte, error) {
	ptrBytes := s.plat.PtrBytes

	switch kind {
	case pzformat.ImmNone:
		return nil, nil

	case pzformat.ImmRaw8:
		return s.br.Bytes(1)
	case pzformat.ImmRaw16:
		return s.br.Bytes(2)
	case pzformat.ImmRaw32:
		return s.br.Bytes(4)
	case pzformat.ImmRaw64:
		return s.br.Bytes(8)

	case pzformat.ImmClosureRef:
		id, err := s.br.U32()
		if err != nil {
			return nil, formatErrorf(s.filename, -1, "proc %d: reading closure-ref: %v", procIdx, err)
		}
		if int(id) >= len(s.ll.Closures) {
			return nil, resolutionErrorf(s.filename, "closure-ref", "proc %d: closure id %d out of range", procIdx, id)
		}
		return uintBytes(s.ll.Closures[id].Addr(), ptrBytes), nil

	case pzformat.ImmProcRef:
		id, err := s.br.U32()
		if err != nil {
			return nil, formatErrorf(s.filename, -1, "proc %d: reading proc-ref: %v", procIdx, err)
		}
		if int(id) >= len(s.ll.Procs) {
			return nil, resolutionErrorf(s.filename, "proc-ref", "proc %d: proc id %d out of range", procIdx, id)
		}
		// Table index, not a machine address: this port's interpreter
		// dispatches procs by index into Library.Procs (library.go's
		// Closure.CodePtr doc).
		return uintBytes(uintptr(id), ptrBytes), nil

	case pzformat.ImmLabelRef:
		id, err := s.br.U32()
		if err != nil {
			return nil, formatErrorf(s.filename, -1, "proc %d: reading label-ref: %v", procIdx, err)
		}
		if int(id) >= len(proc.BlockOffsets) {
			return nil, resolutionErrorf(s.filename, "label-ref", "proc %d: block id %d out of range", procIdx, id)
		}
		return uintBytes(uintptr(proc.BlockOffsets[id]), ptrBytes), nil

	case pzformat.ImmStructRef:
		id, err := s.br.U32()
		if err != nil {
			return nil, formatErrorf(s.filename, -1, "proc %d: reading struct-ref: %v", procIdx, err)
		}
		if int(id) >= len(s.ll.Structs) {
			return nil, resolutionErrorf(s.filename, "struct-ref", "proc %d: struct id %d out of range", procIdx, id)
		}
		return uintBytes(uintptr(s.ll.Structs[id].TotalSize), ptrBytes), nil

	case pzformat.ImmStructRefField:
		structID, err := s.br.U32()
		if err != nil {
			return nil, formatErrorf(s.filename, -1, "proc %d: reading struct-ref-field struct id: %v", procIdx, err)
		}
		fieldIdx, err := s.br.U32()
		if err != nil {
			return nil, formatErrorf(s.filename, -1, "proc %d: reading struct-ref-field field index: %v", procIdx, err)
		}
		if int(structID) >= len(s.ll.Structs) {
			return nil, resolutionErrorf(s.filename, "struct-ref-field", "proc %d: struct id %d out of range", procIdx, structID)
		}
		st := s.ll.Structs[structID]
		if int(fieldIdx) >= len(st.Fields) {
			return nil, resolutionErrorf(s.filename, "struct-ref-field", "proc %d: field index %d out of range for struct %d", procIdx, fieldIdx, structID)
		}
		return uintBytes(uintptr(st.Fields[fieldIdx].Offset), ptrBytes), nil

	case pzformat.ImmImportRef:
		id, err := s.br.U32()
		if err != nil {
			return nil, formatErrorf(s.filename, -1, "proc %d: reading import-ref: %v", procIdx, err)
		}
		if int(id) >= len(s.ll.Imports) {
			return nil, resolutionErrorf(s.filename, "import-ref", "proc %d: import id %d out of range", procIdx, id)
		}
		// spec.md §4.5 step 10: "emit the import's offset within the
		// environment struct (import_id * pointer_size)".
		return uintBytes(uintptr(int(id)*ptrBytes), ptrBytes), nil

	case pzformat.ImmImportClosureRef:
		id, err := s.br.U32()
		if err != nil {
			return nil, formatErrorf(s.filename, -1, "proc %d: reading import-closure-ref: %v", procIdx, err)
		}
		if int(id) >= len(s.ll.Imports) {
			return nil, resolutionErrorf(s.filename, "import-closure-ref", "proc %d: import id %d out of range", procIdx, id)
		}
		// Not one of the kinds spec.md §4.5 step 10 enumerates explicitly;
		// resolved here to the already-known target closure's address,
		// since the imported symbol was fully resolved back in step 6 and
		// carries no forward-reference risk (see DESIGN.md).
		return uintBytes(s.ll.Imports[id].Export.Closure.Addr(), ptrBytes), nil

	default:
		return nil, formatErrorf(s.filename, -1, "proc %d: unknown immediate kind %d", procIdx, kind)
	}
}

// readClosures implements spec.md §4.5 step 11.
func (s *loadState) readClosures(n int) error {
	const noEnv = 0xFFFFFFFF
	for i := 0; i < n; i++ {
		procID, err := s.br.U32()
		if err != nil {
			return formatErrorf(s.filename, -1, "closure %d: reading proc id: %v", i, err)
		}
		dataID, err := s.br.U32()
		if err != nil {
			return formatErrorf(s.filename, -1, "closure %d: reading data id: %v", i, err)
		}
		if int(procID) >= len(s.ll.Procs) {
			return resolutionErrorf(s.filename, "closure proc", "closure %d: proc id %d out of range", i, procID)
		}
		var envAddr uintptr
		if dataID != noEnv {
			if int(dataID) >= len(s.ll.Datas) {
				return resolutionErrorf(s.filename, "closure env", "closure %d: data id %d out of range", i, dataID)
			}
			envAddr = s.ll.Datas[dataID].Addr
		}
		c := s.ll.Closures[i]
		c.CodePtr = procID
		c.EnvPtr = envAddr
	}
	return nil
}

// readExports implements spec.md §4.5 step 12. The export table is keyed
// by "module.symbol" so a later importer's lookup (step 6) is one map
// access; module is this library's own name, by convention names[0]
// (spec.md §3.1).
func (s *loadState) readExports(n int) (map[string]*library.Export, error) {
	moduleName := s.filename
	if len(s.names) > 0 {
		moduleName = s.names[0]
	}
	exports := make(map[string]*library.Export, n)
	for i := 0; i < n; i++ {
		name, err := s.br.Str16()
		if err != nil {
			return nil, formatErrorf(s.filename, -1, "export %d: reading name: %v", i, err)
		}
		closureID, err := s.br.U32()
		if err != nil {
			return nil, formatErrorf(s.filename, -1, "export %d: reading closure id: %v", i, err)
		}
		if int(closureID) >= len(s.ll.Closures) {
			return nil, resolutionErrorf(s.filename, "export", "export %d: closure id %d out of range", i, closureID)
		}
		exports[moduleName+"."+name] = &library.Export{ID: closureID, Closure: s.ll.Closures[closureID]}
	}
	return exports, nil
}

// checkTail implements spec.md §4.5 step 13.
func (s *loadState) checkTail() error {
	ok, err := s.br.AtValidEOF()
	if err != nil {
		return formatErrorf(s.filename, -1, "checking end of file: %v", err)
	}
	if !ok {
		return formatErrorf(s.filename, -1, "junk at end of file")
	}
	return nil
}
