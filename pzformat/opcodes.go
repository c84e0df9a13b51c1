package pzformat

// Opcode is a single PZ instruction opcode (spec.md §3.1: "opcode:8").
type Opcode uint8

// A representative subset of the PZ instruction set: enough opcodes to
// exercise every immediate kind the loader's second pass must resolve.
// Real Plasma has a larger set generated by the (external) codegen stage;
// this table is the loader/interpreter's authoritative contract for how
// many bytes each opcode's immediate occupies and how it is decoded.
const (
	OpNop Opcode = iota
	OpPushImm8
	OpPushImm16
	OpPushImm32
	OpPushImm64
	OpDrop
	OpDup
	OpSwap
	OpAdd
	OpSub
	OpMul
	OpCall        // ClosureRef immediate
	OpCallProc    // ProcRef immediate (direct intra-module call)
	OpCallImport  // ImportRef immediate
	OpCallImportClosure
	OpJump        // LabelRef immediate
	OpJumpIfZero  // LabelRef immediate
	OpReturn
	OpAllocStruct // StructRef immediate (struct size): allocates a struct, pushes its address
	OpFieldAddr   // StructRefField immediate (field offset): pops a base, pushes base+offset
	OpTailCall
	OpCCallBuiltin // ImportRef immediate targeting the Builtin pseudo-library
)

// ImmediateKind classifies what an instruction's immediate operand means.
type ImmediateKind uint8

const (
	ImmNone ImmediateKind = iota
	ImmRaw8
	ImmRaw16
	ImmRaw32
	ImmRaw64
	ImmClosureRef
	ImmProcRef
	ImmImportRef
	ImmImportClosureRef
	ImmLabelRef
	ImmStructRef
	ImmStructRefField
)

// InstructionInfo is one row of the static opcode table (spec.md §3.1's
// "instruction_info"): how many width bytes follow the opcode byte and how
// to interpret the immediate that follows those width bytes.
type InstructionInfo struct {
	NumWidthBytes int // 0, 1, or 2 width bytes follow the opcode
	Immediate     ImmediateKind
}

// instructionInfo is the static opcode table. It is the loader's single
// source of truth for how many bytes to skip (pass one) and how to decode
// an instruction (pass two); see spec.md §4.5 steps 9-10.
var instructionInfo = map[Opcode]InstructionInfo{
	OpNop:                {0, ImmNone},
	OpPushImm8:           {0, ImmRaw8},
	OpPushImm16:          {0, ImmRaw16},
	OpPushImm32:          {0, ImmRaw32},
	OpPushImm64:          {0, ImmRaw64},
	OpDrop:               {0, ImmNone},
	OpDup:                {0, ImmNone},
	OpSwap:               {0, ImmNone},
	OpAdd:                {0, ImmNone},
	OpSub:                {0, ImmNone},
	OpMul:                {0, ImmNone},
	OpCall:               {0, ImmClosureRef},
	OpCallProc:           {0, ImmProcRef},
	OpCallImport:         {0, ImmImportRef},
	OpCallImportClosure:  {0, ImmImportClosureRef},
	OpJump:               {0, ImmLabelRef},
	OpJumpIfZero:         {0, ImmLabelRef},
	OpReturn:             {0, ImmNone},
	OpAllocStruct:        {0, ImmStructRef},
	OpFieldAddr:          {1, ImmStructRefField}, // one width byte, skipped by the loader; the field index is always 32-bit
	OpTailCall:           {0, ImmClosureRef},
	OpCCallBuiltin:       {0, ImmImportRef},
}

// Info returns the static decoding info for op, and whether op is known.
func Info(op Opcode) (InstructionInfo, bool) {
	info, ok := instructionInfo[op]
	return info, ok
}

// ImmediateByteSize returns the number of bytes the immediate itself
// occupies (not counting width bytes or the opcode byte) for a raw
// immediate kind, on the given platform. Symbolic references (closure,
// proc, import, label, struct) are always encoded as a raw 32-bit local id
// in the file and resolved to a platform-width absolute value by the
// loader's second pass, so their on-disk size is fixed at 4 bytes
// regardless of platform.
func ImmediateByteSize(plat Platform, kind ImmediateKind) int {
	switch kind {
	case ImmNone:
		return 0
	case ImmRaw8:
		return 1
	case ImmRaw16:
		return 2
	case ImmRaw32:
		return 4
	case ImmRaw64:
		return 8
	case ImmClosureRef, ImmProcRef, ImmImportRef, ImmImportClosureRef, ImmLabelRef, ImmStructRef:
		return 4
	case ImmStructRefField:
		return 4 + 4 // struct id + field index, both local ids on disk
	default:
		return 0
	}
}

// ResolvedSize is the number of bytes the immediate occupies once written
// into the proc's executable code buffer (after resolution). Raw
// immediates keep their declared width; every symbolic reference resolves
// to one platform-width value (an absolute address, or a byte size/offset
// for struct references).
func ResolvedSize(plat Platform, kind ImmediateKind) int {
	switch kind {
	case ImmNone:
		return 0
	case ImmRaw8:
		return 1
	case ImmRaw16:
		return 2
	case ImmRaw32:
		return 4
	case ImmRaw64:
		return 8
	case ImmClosureRef, ImmProcRef, ImmLabelRef, ImmImportRef, ImmImportClosureRef:
		return plat.PtrBytes
	case ImmStructRef, ImmStructRefField:
		return plat.PtrBytes
	default:
		return 0
	}
}
