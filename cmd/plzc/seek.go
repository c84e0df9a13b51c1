package main

import (
	"bytes"
	"io"
)

// newSeekable wraps an in-memory buffer as an io.ReadSeeker, letting a
// single already-read byte slice serve both loader.Peek's header-only pass
// and loader.Load's full pass without re-reading the file from disk twice.
func newSeekable(data []byte) io.ReadSeeker {
	return bytes.NewReader(data)
}
