package synapse

import (
	"reflect"
	"sync/atomic"
)

// Event is implemented by every value published through an Engine. Concrete
// event kinds embed Base, which supplies the cancellation contract, and are
// always published as pointers so every handler in one dispatch observes
// the same cancellation flag.
//
// Aside from that flag, events are treated as immutable: the engine never
// stores them past the Publish call that delivered them.
type Event interface {
	// Canceled reports whether propagation has been stopped.
	Canceled() bool

	// StopPropagation marks the event canceled for the remainder of the
	// current dispatch. The flag is one-way; it cannot be cleared.
	StopPropagation()
}

// Base is the embeddable cancellation state shared by all event kinds.
// The zero value is ready to use. Base methods use pointer receivers, so
// only a pointer to the embedding struct satisfies Event.
type Base struct {
	canceled atomic.Bool
}

// Canceled reports whether StopPropagation has been called.
func (b *Base) Canceled() bool { return b.canceled.Load() }

// StopPropagation permanently marks the event canceled.
func (b *Base) StopPropagation() { b.canceled.Store(true) }

// TypeOf returns the registry key for event kind E, the reflect.Type of
// the event pointer itself.
func TypeOf[E Event]() reflect.Type {
	return reflect.TypeOf((*E)(nil)).Elem()
}

// eventIface is the Event interface type, used to validate registrations.
var eventIface = reflect.TypeOf((*Event)(nil)).Elem()

// typeName formats a registry key for logs and diagnostics.
func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
