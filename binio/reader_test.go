package binio

import (
	"bytes"
	"errors"
	"testing"
)

func TestReaderPrimitives(t *testing.T) {
	w := NewWriter().U8(0x42).U16(0x1234).U32(0xdeadbeef).U64(0x0102030405060708).Str16("hi")
	r := NewReader(bytes.NewReader(w.Bytes()))

	u8, err := r.U8()
	if err != nil || u8 != 0x42 {
		t.Fatalf("U8 = %v, %v", u8, err)
	}
	u16, err := r.U16()
	if err != nil || u16 != 0x1234 {
		t.Fatalf("U16 = %v, %v", u16, err)
	}
	u32, err := r.U32()
	if err != nil || u32 != 0xdeadbeef {
		t.Fatalf("U32 = %v, %v", u32, err)
	}
	u64, err := r.U64()
	if err != nil || u64 != 0x0102030405060708 {
		t.Fatalf("U64 = %v, %v", u64, err)
	}
	s, err := r.Str16()
	if err != nil || s != "hi" {
		t.Fatalf("Str16 = %q, %v", s, err)
	}

	atEOF, err := r.AtValidEOF()
	if err != nil || !atEOF {
		t.Fatalf("AtValidEOF = %v, %v", atEOF, err)
	}
}

func TestReaderShortReadNotZeroExtended(t *testing.T) {
	// Only one byte available where a uint32 is expected.
	r := NewReader(bytes.NewReader([]byte{0x01}))
	_, err := r.U32()
	if err == nil {
		t.Fatal("expected short-read error, got nil")
	}
	if !errors.Is(err, ErrShortRead) {
		t.Fatalf("expected ErrShortRead, got %v", err)
	}
}

func TestReaderSeekTell(t *testing.T) {
	w := NewWriter().U32(1).U32(2).U32(3)
	r := NewReader(bytes.NewReader(w.Bytes()))

	if _, err := r.U32(); err != nil {
		t.Fatal(err)
	}
	pos, err := r.Tell()
	if err != nil || pos != 4 {
		t.Fatalf("Tell = %d, %v", pos, err)
	}

	if err := r.SeekCur(4); err != nil {
		t.Fatal(err)
	}
	v, err := r.U32()
	if err != nil || v != 3 {
		t.Fatalf("after seek, U32 = %v, %v", v, err)
	}

	if err := r.SeekSet(0); err != nil {
		t.Fatal(err)
	}
	v, err = r.U32()
	if err != nil || v != 1 {
		t.Fatalf("after seek-set, U32 = %v, %v", v, err)
	}
}

func TestAtValidEOFWithTrailingData(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2, 3}))
	atEOF, err := r.AtValidEOF()
	if err != nil {
		t.Fatal(err)
	}
	if atEOF {
		t.Fatal("expected not at EOF")
	}
	// Reading should still work after the peek.
	v, err := r.U8()
	if err != nil || v != 1 {
		t.Fatalf("U8 after peek = %v, %v", v, err)
	}
}
