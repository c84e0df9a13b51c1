package gc

// NoGCScope is a scoped CANNOT_GC capability: "this region must not see a
// collection" (spec.md §4.3, §9). Allocations within are attempted
// normally; on failure the size is recorded but no abort happens yet. On
// Close, if an OOM was recorded and never acknowledged via IsOOM/
// AbortIfOOM, the scope aborts with a diagnostic.
type NoGCScope struct {
	*Capability
	label  string
	closed bool
}

// EnterNoGCScope opens a CANNOT_GC scope as a child of parent.
func EnterNoGCScope(parent *Capability, label string) *NoGCScope {
	return &NoGCScope{
		Capability: parent.NewCannotGCCapability(label),
		label:      label,
	}
}

// Close ends the scope, aborting if an OOM was silently swallowed
// (spec.md §4.3, §7 item 3).
func (s *NoGCScope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.oomPending && !s.oomAcknowledged {
		s.AbortIfOOM(s.label)
	}
}
