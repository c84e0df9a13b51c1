// Package logging defines the small structured-logging interface the GC,
// loader, and solver accept. CORE packages depend only on this interface;
// package logging/commonlogadapter (used by the cmd/ entry points) is the
// only place that actually imports github.com/tliron/commonlog, so a
// mismatch against that library's exact surface can never break a CORE
// package's compilation.
package logging

// Logger is the structured-logging surface CORE packages use. Field pairs
// follow the common key/value convention (an even number of arguments,
// alternating key, value).
type Logger interface {
	Debug(message string, fields ...any)
	Info(message string, fields ...any)
	Warning(message string, fields ...any)
	Error(message string, fields ...any)
}

// Nop is a Logger that discards everything; used as the default when no
// logger is supplied, so CORE packages never need a nil check.
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)   {}
func (nopLogger) Info(string, ...any)    {}
func (nopLogger) Warning(string, ...any) {}
func (nopLogger) Error(string, ...any)   {}

// OrNop returns l, or Nop if l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop
	}
	return l
}
