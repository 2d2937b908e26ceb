package diag

// Nop is a Recorder that does nothing. Use when diagnostics are disabled:
// the dispatch path stays identical, only the measurements vanish.
type Nop struct{}

// Compile-time interface check.
var _ Recorder = Nop{}

// Begin returns nil, disabling the trace for this publish.
func (Nop) Begin(_, _ string) *Trace { return nil }

// Record does nothing.
func (Nop) Record(_ *Trace, _ Invocation) {}

// End does nothing.
func (Nop) End(_ *Trace, _ bool) {}
