// Package binio implements the little-endian primitive reads that every PZ
// structure (the header, options, imports, structs, data, procs, and
// closures) is built from. Every read reports success or failure instead of
// silently zero-extending a short read, so callers can treat any I/O error
// as "bad file" without inspecting byte counts themselves.
package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrShortRead is returned when fewer bytes were available than the
// primitive being read requires. It is never zero-extended.
var ErrShortRead = errors.New("binio: short read")

// Reader wraps an io.ReadSeeker with the positional primitives the PZ loader
// needs: fixed-width little-endian integers, length-prefixed strings, and
// seek/tell.
type Reader struct {
	r   io.ReadSeeker
	buf [8]byte
}

// NewReader wraps r for PZ-style reads.
func NewReader(r io.ReadSeeker) *Reader {
	return &Reader{r: r}
}

func (r *Reader) fill(n int) ([]byte, error) {
	b := r.buf[:n]
	if _, err := io.ReadFull(r.r, b); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: wanted %d bytes: %v", ErrShortRead, n, err)
		}
		return nil, err
	}
	return b, nil
}

// U8 reads one unsigned byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.fill(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() (uint16, error) {
	b, err := r.fill(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() (uint32, error) {
	b, err := r.fill(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() (uint64, error) {
	b, err := r.fill(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// I32 reads a little-endian signed 32-bit integer.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r.r, out); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: wanted %d bytes: %v", ErrShortRead, n, err)
		}
		return nil, err
	}
	return out, nil
}

// Str16 reads a 16-bit length-prefixed string.
func (r *Reader) Str16() (string, error) {
	n, err := r.U16()
	if err != nil {
		return "", err
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SeekCur seeks relative to the current position.
func (r *Reader) SeekCur(off int64) error {
	_, err := r.r.Seek(off, io.SeekCurrent)
	return err
}

// SeekSet seeks to an absolute offset.
func (r *Reader) SeekSet(off int64) error {
	_, err := r.r.Seek(off, io.SeekStart)
	return err
}

// Tell reports the current offset.
func (r *Reader) Tell() (int64, error) {
	return r.r.Seek(0, io.SeekCurrent)
}

// AtValidEOF reports whether the reader is exactly at end-of-stream: a
// zero-length read at the current position hits io.EOF. Used for the
// loader's "junk at end of file" tail check (spec §4.5 step 13).
func (r *Reader) AtValidEOF() (bool, error) {
	pos, err := r.Tell()
	if err != nil {
		return false, err
	}
	var one [1]byte
	n, err := r.r.Read(one[:])
	if n > 0 {
		// Push back by seeking to the recorded position.
		if serr := r.SeekSet(pos); serr != nil {
			return false, serr
		}
		return false, nil
	}
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}
