// Package loader implements the two-pass PZ file reader (spec.md §4.5): the
// entry point read(pz, filename, &library, &names), generalised here as
// Load. It is the sole consumer that interprets PZ bytes with I/O; package
// pzformat only defines the format's constants and layouts.
package loader

import "fmt"

// FormatError is spec.md §7 category 1: bad magic, bad version, malformed
// option length, truncated read, forward data reference, unknown encoding
// tag. Reported with filename and, when known, a file offset.
type FormatError struct {
	Filename string
	Offset   int64
	Reason   string
}

func (e *FormatError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s: at offset %d: %s", e.Filename, e.Offset, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Filename, e.Reason)
}

func formatErrorf(filename string, offset int64, format string, args ...any) error {
	return &FormatError{Filename: filename, Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

// ResolutionError is spec.md §7 category 2: missing imported module,
// missing imported symbol, or a reference to a non-existent closure/proc/
// data/struct id within the module. Reported with the unresolved name.
type ResolutionError struct {
	Filename string
	Name     string
	Reason   string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: cannot resolve %q: %s", e.Filename, e.Name, e.Reason)
}

func resolutionErrorf(filename, name, format string, args ...any) error {
	return &ResolutionError{Filename: filename, Name: name, Reason: fmt.Sprintf(format, args...)}
}
