package gc

import "unsafe"

// ReadWord reads the word at byte offset off*WordSize from a cell address
// returned by Alloc. Used by package library and package interp to read
// object fields; kept as free functions (rather than Block methods) since
// callers only ever hold the opaque address, not the owning Block.
func ReadWord(addr uintptr, off int) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr + uintptr(off*WordSize)))
}

// WriteWord writes v at byte offset off*WordSize from a cell address.
func WriteWord(addr uintptr, off int, v uintptr) {
	*(*uintptr)(unsafe.Pointer(addr + uintptr(off*WordSize))) = v
}

// BytesView returns a mutable []byte view of n bytes starting at addr, for
// byte-granular field writes into an object whose fields don't line up on
// word boundaries (struct/array/string data payloads). The caller must
// ensure addr was allocated with at least n bytes of capacity.
func BytesView(addr uintptr, n int) []byte {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}
