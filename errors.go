package synapse

import (
	"errors"
	"fmt"
)

// Sentinel errors for registration and dispatch. Every registration
// failure matches ErrInvalidSubscription through errors.Is.
var (
	// ErrInvalidSubscription is the root of the registration error family.
	ErrInvalidSubscription = errors.New("invalid subscription")

	// ErrNilEventType is returned when registering with a nil event type.
	ErrNilEventType = fmt.Errorf("%w: nil event type", ErrInvalidSubscription)

	// ErrNonPointerEvent is returned when the event type is not a pointer.
	ErrNonPointerEvent = fmt.Errorf("%w: event type must be a pointer", ErrInvalidSubscription)

	// ErrNotEvent is returned when the event type does not implement Event.
	ErrNotEvent = fmt.Errorf("%w: type does not implement Event", ErrInvalidSubscription)

	// ErrNilRef is returned when the subscriber reference is nil.
	ErrNilRef = fmt.Errorf("%w: nil subscriber reference", ErrInvalidSubscription)

	// ErrNilThunk is returned when a static subscription has no method thunk.
	ErrNilThunk = fmt.Errorf("%w: static subscription requires a method thunk", ErrInvalidSubscription)

	// ErrNilCallback is returned when a dynamic subscription has no callback.
	ErrNilCallback = fmt.Errorf("%w: dynamic subscription requires a callback", ErrInvalidSubscription)

	// ErrInvalidPriority is returned when the priority is outside the five
	// dispatch levels.
	ErrInvalidPriority = fmt.Errorf("%w: priority out of range", ErrInvalidSubscription)

	// ErrHandlerPanic is matched by panics recovered from handlers.
	ErrHandlerPanic = errors.New("handler panicked")

	// ErrSubscriberClosed is returned when subscribing through a closed
	// Subscriber.
	ErrSubscriberClosed = errors.New("subscriber is closed")
)

// HandlerError wraps an error returned by a handler with dispatch context.
// It never propagates out of Publish; it reaches logs and diagnostics.
type HandlerError struct {
	// Subscriber names the subscriber whose handler failed.
	Subscriber string

	// EventType is the concrete type of the event being delivered.
	EventType string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return "handler error for subscriber " + e.Subscriber + " on " + e.EventType + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a panic recovered from a handler as an error.
type PanicError struct {
	// Subscriber names the subscriber whose handler panicked.
	Subscriber string

	// EventType is the concrete type of the event being delivered.
	EventType string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace captured at the recovery point.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return "handler panic for subscriber " + e.Subscriber + " on " + e.EventType
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
