package binio

import (
	"bytes"
	"encoding/binary"
)

// Writer accumulates little-endian PZ primitives into a byte buffer. It is
// used by tests to build fixture files; the PZ writer proper belongs to the
// compiler's external codegen/lowering stage (spec.md §1).
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// U8 appends one byte.
func (w *Writer) U8(v uint8) *Writer {
	w.buf.WriteByte(v)
	return w
}

// U16 appends a little-endian uint16.
func (w *Writer) U16(v uint16) *Writer {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
	return w
}

// U32 appends a little-endian uint32.
func (w *Writer) U32(v uint32) *Writer {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
	return w
}

// U64 appends a little-endian uint64.
func (w *Writer) U64(v uint64) *Writer {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
	return w
}

// I32 appends a little-endian signed 32-bit integer.
func (w *Writer) I32(v int32) *Writer {
	return w.U32(uint32(v))
}

// Raw appends raw bytes verbatim.
func (w *Writer) Raw(b []byte) *Writer {
	w.buf.Write(b)
	return w
}

// Str16 appends a 16-bit length-prefixed string.
func (w *Writer) Str16(s string) *Writer {
	w.U16(uint16(len(s)))
	w.buf.WriteString(s)
	return w
}
