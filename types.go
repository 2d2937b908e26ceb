package synapse

import (
	"context"
	"fmt"
)

// Priority controls the order handlers run within a single publish.
// Lower values run first.
type Priority int

// Dispatch priorities, in ascending execution order.
const (
	// PriorityEssential handlers run before everything else and are never
	// skipped, even after the event has been canceled.
	PriorityEssential Priority = iota

	// PriorityHigh is the default for static (bound method) subscriptions.
	PriorityHigh

	// PriorityMedium is the default for dynamic (closure) subscriptions.
	PriorityMedium

	// PriorityLow handlers run after the conventional tiers.
	PriorityLow

	// PriorityCleanup handlers run last and, like Essential, run even
	// after cancellation.
	PriorityCleanup
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch p {
	case PriorityEssential:
		return "essential"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	case PriorityCleanup:
		return "cleanup"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Valid reports whether p is one of the five dispatch priorities.
func (p Priority) Valid() bool {
	return p >= PriorityEssential && p <= PriorityCleanup
}

// AlwaysRuns reports whether handlers at this priority still run after the
// event has been canceled. Only Essential and Cleanup do.
func (p Priority) AlwaysRuns() bool {
	return p == PriorityEssential || p == PriorityCleanup
}

// HandlerFunc is a dynamic event callback. The engine recovers panics and
// captures returned errors; neither reaches the publisher.
type HandlerFunc func(ctx context.Context, ev Event) error

// MethodFunc is the invocation thunk of a static subscription. It receives
// the resolved live target and must perform the bound method call itself,
// keeping runtime type inspection out of the dispatch loop.
type MethodFunc func(ctx context.Context, target any, ev Event) error

// PanicHandler observes a panic recovered from a handler. It runs after
// the panic has been logged and recorded and must not panic itself; if it
// does, the engine contains that too.
type PanicHandler func(ev Event, recovered any, stack []byte)

// Stats is a point-in-time snapshot of engine activity.
type Stats struct {
	// Published counts Publish calls, including those that found no
	// subscribers.
	Published uint64

	// Delivered counts handler invocations that completed without error.
	Delivered uint64

	// Errors counts handler invocations that returned an error.
	Errors uint64

	// Panics counts handler invocations that panicked.
	Panics uint64

	// Skipped counts handler invocations suppressed by event
	// cancellation or an already-done context.
	Skipped uint64

	// Swept counts subscriptions removed because their subscriber was no
	// longer live.
	Swept uint64

	// Active is the current number of registered subscriptions.
	Active int
}
