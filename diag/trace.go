package diag

import "time"

// Invocation is one handler measurement inside a trace.
type Invocation struct {
	// Subscriber names the handler's subscriber.
	Subscriber string

	// Priority is the record's dispatch priority ordinal.
	Priority int

	// Duration is the handler's wall time.
	Duration time.Duration

	// Err carries the handler failure, nil on success. Panics arrive
	// wrapped as errors with Panicked set.
	Err error

	// Panicked reports that the handler panicked.
	Panicked bool
}

// Trace captures one publish call: which event went out, where from, and
// how each handler fared. Traces are built by the recorder; treat
// retrieved traces as read-only.
type Trace struct {
	// ID uniquely identifies the trace.
	ID string

	// EventType is the published event's concrete type name.
	EventType string

	// Origin is the producer call site, file:line.
	Origin string

	// Start is when the publish began.
	Start time.Time

	// Invocations lists handler measurements in execution order.
	Invocations []Invocation

	// Canceled is the event's cancellation state when dispatch finished.
	Canceled bool

	// Total is the summed duration of all handler invocations.
	Total time.Duration
}

// clone returns a copy safe to hand out after the recorder's lock is
// released.
func (t *Trace) clone() *Trace {
	c := *t
	c.Invocations = append([]Invocation(nil), t.Invocations...)
	return &c
}
