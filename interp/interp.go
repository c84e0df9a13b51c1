// Package interp implements the stack-based bytecode interpreter that
// consumes a loaded library (spec.md §4.6): it is specified only as the
// loader's downstream consumer, so this port keeps it deliberately small —
// just enough to run the closure-call/return/arithmetic/builtin-print
// scenarios spec.md §8.2 names.
package interp

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/jimbxb/plasma/gc"
	"github.com/jimbxb/plasma/library"
	"github.com/jimbxb/plasma/logging"
	"github.com/jimbxb/plasma/pzformat"
)

// Value is the stack_value union spec.md §4.6 names: every value on the
// interpreter's stack is one machine word, either an integer or a pointer.
// Representing both as uint64 (truncated on 32-bit platforms) mirrors the
// PZ value stack directly instead of introducing a tagged Go interface,
// matching the teacher's own NaN-boxed-word approach to value
// representation (vm/value.go) rather than a boxed interface{} stack.
type Value uint64

// Frame is one call's activation: the library its code belongs to (imports
// and proc-refs it contains resolve against this library, not necessarily
// the caller's), its resolved code buffer, and its captured environment
// pointer.
type frame struct {
	lib    *library.Library
	proc   *library.Proc
	pc     int
	envPtr uintptr
}

// Builtin is a host function reachable from bytecode via OpCCallBuiltin.
// Builtins operate directly on the interpreter's stack.
type Builtin func(m *Machine) error

// Machine executes one loaded library's entry point or an arbitrary
// closure. It is not reentrant across goroutines: spec.md §5 states the
// runtime interpreter is single-threaded.
type Machine struct {
	stack []Value
	log   logging.Logger
	heap  *gc.Heap
	cap   *gc.Capability

	builtins map[string]Builtin

	out func(string) // where builtin.print writes; defaults to stdout via cmd/pzrun

	curLib *library.Library // the library currently executing, for data-item length lookups
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger attaches a structured logger; defaults to logging.Nop.
func WithLogger(l logging.Logger) Option {
	return func(m *Machine) { m.log = logging.OrNop(l) }
}

// WithOutput overrides where builtin.print writes; defaults to a no-op.
func WithOutput(out func(string)) Option {
	return func(m *Machine) { m.out = out }
}

// NewMachine returns an empty machine with the standard Builtin pseudo
// -library registered (spec.md §4.6 "Built-ins are registered by name in a
// special 'Builtin' module pseudo-library").
func NewMachine(heap *gc.Heap, cap *gc.Capability, opts ...Option) *Machine {
	m := &Machine{
		heap:     heap,
		cap:      cap,
		log:      logging.Nop,
		builtins: make(map[string]Builtin),
		out:      func(string) {},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.registerStandardBuiltins()
	return m
}

func (m *Machine) push(v Value)   { m.stack = append(m.stack, v) }
func (m *Machine) pop() (Value, error) {
	n := len(m.stack)
	if n == 0 {
		return 0, fmt.Errorf("interp: stack underflow")
	}
	v := m.stack[n-1]
	m.stack = m.stack[:n-1]
	return v, nil
}

// registerStandardBuiltins wires the minimal Builtin surface spec.md §8.2
// scenario 2 exercises: printing a narrow-character string data blob.
func (m *Machine) registerStandardBuiltins() {
	m.builtins["Builtin.print"] = func(mm *Machine) error {
		addr, err := mm.pop()
		if err != nil {
			return err
		}
		s, err := mm.readString(uintptr(addr))
		if err != nil {
			return err
		}
		mm.out(s)
		return nil
	}
}

// readString reads a narrow-character (1-byte-per-element) string data
// payload given its base address (spec.md §3.1 "flat narrow-character
// buffer"). It bounds the read by the matching DataItem.Len recorded at
// load time rather than scanning for a terminator past the allocation's
// actual size — a raw machine-word address alone carries no length, and
// guessing one via gc.BytesView risks reading past the allocated cell.
func (m *Machine) readString(addr uintptr) (string, error) {
	if m.curLib == nil {
		return "", fmt.Errorf("interp: readString called outside a running library")
	}
	for _, d := range m.curLib.Datas {
		if d.Addr == addr {
			view := gc.BytesView(addr, d.Len)
			if nul := bytes.IndexByte(view, 0); nul >= 0 {
				return string(view[:nul]), nil
			}
			return string(view), nil
		}
	}
	return "", fmt.Errorf("interp: address %x does not match any loaded data item", addr)
}

// RunEntry executes a program library's entry closure (spec.md §4.5 step 14,
// §4.6, §8.2 scenarios 1-2) and returns its exit code. argv is only used
// when the entry signature is EntryArgs.
func (m *Machine) RunEntry(lib *library.Library, argv []string) (int, error) {
	if lib.Entry == nil {
		return 0, fmt.Errorf("interp: library %q has no entry point", lib.Name)
	}
	if lib.Entry.Signature == pzformat.EntryArgs {
		// Argv calling convention (SPEC_FULL.md §3.4): push each
		// argument's data address, high-to-low, then argc on top, so a
		// proc pops argc first and then argv[0], argv[1], ... in order.
		for i := len(argv) - 1; i >= 0; i-- {
			m.push(Value(m.internArg(argv[i])))
		}
		m.push(Value(len(argv)))
	}
	m.curLib = lib
	if err := m.call(lib.Entry.Closure); err != nil {
		return 1, err
	}
	if len(m.stack) == 0 {
		return 0, nil
	}
	v, _ := m.pop()
	return int(int64(v)), nil
}

// internArg allocates a NUL-terminated narrow string for one argv element.
// A real Plasma runtime would keep these on a small permanent arena; this
// port allocates through the heap under the machine's own capability since
// argv strings never need to survive past the run.
func (m *Machine) internArg(s string) uintptr {
	b := append([]byte(s), 0)
	addr, err := m.heap.Alloc((len(b)+gc.WordSize-1)/gc.WordSize, m.cap)
	if err != nil {
		panic(err) // interpreter-level OOM outside any NoGCScope: abort per spec.md §7 item 3
	}
	copy(gc.BytesView(addr, len(b)), b)
	return addr
}

// call dispatches into closure's target proc and runs it to completion (a
// Return instruction), including nested closure calls. closure.Lib supplies
// the library its proc-refs, import-refs, and struct-refs resolve against,
// which is not necessarily the calling frame's library once a call crosses
// a module boundary (OpCall/OpCallImportClosure targeting an imported
// closure).
func (m *Machine) call(closure *library.Closure) error {
	lib := closure.Lib
	if int(closure.CodePtr) >= len(lib.Procs) {
		return fmt.Errorf("interp: closure targets out-of-range proc %d", closure.CodePtr)
	}
	fr := &frame{lib: lib, proc: lib.Procs[closure.CodePtr], pc: 0, envPtr: closure.EnvPtr}
	return m.run(fr)
}

// run is the dispatch loop for one frame (spec.md §4.6): immediates are
// already resolved absolute values, so decoding is a direct switch.
func (m *Machine) run(fr *frame) error {
	lib := fr.lib
	m.curLib = lib
	code := fr.proc.Code
	ptrBytes := 8 // this port always resolves against pzformat.Platform64

	for fr.pc < len(code) {
		op := pzformat.Opcode(code[fr.pc])
		fr.pc++
		info, ok := pzformat.Info(op)
		if !ok {
			return fmt.Errorf("interp: unknown opcode %d in proc %q", op, fr.proc.Name)
		}

		switch op {
		case pzformat.OpNop:
		case pzformat.OpPushImm8:
			m.push(Value(code[fr.pc]))
			fr.pc++
		case pzformat.OpPushImm16:
			m.push(Value(binary.LittleEndian.Uint16(code[fr.pc:])))
			fr.pc += 2
		case pzformat.OpPushImm32:
			m.push(Value(binary.LittleEndian.Uint32(code[fr.pc:])))
			fr.pc += 4
		case pzformat.OpPushImm64:
			m.push(Value(binary.LittleEndian.Uint64(code[fr.pc:])))
			fr.pc += 8
		case pzformat.OpDrop:
			if _, err := m.pop(); err != nil {
				return err
			}
		case pzformat.OpDup:
			v, err := m.pop()
			if err != nil {
				return err
			}
			m.push(v)
			m.push(v)
		case pzformat.OpSwap:
			b, err := m.pop()
			if err != nil {
				return err
			}
			a, err := m.pop()
			if err != nil {
				return err
			}
			m.push(b)
			m.push(a)
		case pzformat.OpAdd, pzformat.OpSub, pzformat.OpMul:
			b, err := m.pop()
			if err != nil {
				return err
			}
			a, err := m.pop()
			if err != nil {
				return err
			}
			m.push(arith(op, a, b))
		case pzformat.OpReturn:
			return nil
		case pzformat.OpJump:
			target := binary.LittleEndian.Uint64(code[fr.pc:])
			fr.pc = int(target)
			continue
		case pzformat.OpJumpIfZero:
			target := binary.LittleEndian.Uint64(code[fr.pc:])
			v, err := m.pop()
			if err != nil {
				return err
			}
			if v == 0 {
				fr.pc = int(target)
				continue
			}
			fr.pc += ptrBytes
		case pzformat.OpCall, pzformat.OpTailCall:
			// This port does not implement tail-call elimination for
			// OpTailCall: it runs exactly like OpCall, growing the Go call
			// stack instead of reusing the current frame. A real Plasma
			// runtime relies on TCE for its stated no-native-stack-growth
			// guarantee under recursive style; that guarantee is out of
			// reach without also reworking run's recursion into a trampoline,
			// which the loader/GC/solver CORE this port targets does not
			// require exercising.
			addr := binary.LittleEndian.Uint64(code[fr.pc:])
			fr.pc += ptrBytes
			if err := m.call(addrToClosure(uintptr(addr))); err != nil {
				return err
			}
			m.curLib = lib // restore: the callee may belong to another library
		case pzformat.OpCallProc:
			idx := binary.LittleEndian.Uint64(code[fr.pc:])
			fr.pc += ptrBytes
			if int(idx) >= len(lib.Procs) {
				return fmt.Errorf("interp: proc-ref out of range: %d", idx)
			}
			if err := m.run(&frame{lib: lib, proc: lib.Procs[idx], pc: 0, envPtr: fr.envPtr}); err != nil {
				return err
			}
			m.curLib = lib
		case pzformat.OpCallImport, pzformat.OpCCallBuiltin:
			off := binary.LittleEndian.Uint64(code[fr.pc:])
			fr.pc += ptrBytes
			idx := int(off) / ptrBytes
			if idx < 0 || idx >= len(lib.Imports) {
				return fmt.Errorf("interp: import-ref out of range: %d", idx)
			}
			imp := lib.Imports[idx]
			qualified := imp.Module + "." + imp.Symbol
			if b, ok := m.builtins[qualified]; ok {
				if err := b(m); err != nil {
					return err
				}
				break
			}
			if err := m.call(imp.Export.Closure); err != nil {
				return err
			}
			m.curLib = lib
		case pzformat.OpCallImportClosure:
			addr := binary.LittleEndian.Uint64(code[fr.pc:])
			fr.pc += ptrBytes
			if err := m.call(addrToClosure(uintptr(addr))); err != nil {
				return err
			}
			m.curLib = lib
		case pzformat.OpAllocStruct:
			size := binary.LittleEndian.Uint64(code[fr.pc:])
			fr.pc += ptrBytes
			addr, err := m.heap.Alloc((int(size)+gc.WordSize-1)/gc.WordSize, m.cap)
			if err != nil {
				return err
			}
			m.push(Value(addr))
		case pzformat.OpFieldAddr:
			offset := binary.LittleEndian.Uint64(code[fr.pc:])
			fr.pc += ptrBytes
			base, err := m.pop()
			if err != nil {
				return err
			}
			m.push(Value(uintptr(base) + uintptr(offset)))
		default:
			_ = info
			return fmt.Errorf("interp: unhandled opcode %d", op)
		}
	}
	return nil
}

func arith(op pzformat.Opcode, a, b Value) Value {
	switch op {
	case pzformat.OpAdd:
		return a + b
	case pzformat.OpSub:
		return a - b
	case pzformat.OpMul:
		return a * b
	default:
		return 0
	}
}

// addrToClosure recovers a *library.Closure from the machine word an
// OpCall/OpCallImportClosure immediate resolves to (library.Closure.Addr's
// inverse). Sound for the same reason Addr is: the closure's owning
// Library.Closures slice keeps the real Go pointer alive for the machine's
// entire run.
func addrToClosure(addr uintptr) *library.Closure {
	return (*library.Closure)(ptrFromUintptr(addr))
}
