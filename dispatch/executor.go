package dispatch

import (
	"context"
	"runtime/debug"
	"time"
)

// Thunk is a fully bound handler invocation: the subscription's method or
// callback with target and event already applied.
type Thunk func(ctx context.Context) error

// Result describes the outcome of one handler invocation.
type Result struct {
	// Success is true if the handler completed without error or panic.
	Success bool

	// Error is the error returned by the handler, if any.
	Error error

	// Panicked is true if the handler panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace at the point of panic.
	PanicStack []byte

	// Duration is how long the handler took to execute.
	Duration time.Duration

	// Skipped is true if the handler was not executed because the
	// context was already done.
	Skipped bool
}

// IsSuccess returns true if the result indicates successful execution.
func (r Result) IsSuccess() bool {
	return r.Success && !r.Panicked && r.Error == nil
}

// IsError returns true if the result indicates an error (not panic).
func (r Result) IsError() bool {
	return r.Error != nil && !r.Panicked
}

// IsPanic returns true if the result indicates a panic.
func (r Result) IsPanic() bool {
	return r.Panicked
}

// Executor runs handler thunks with panic recovery and timing. Faults stay
// inside the Result; nothing escapes to the caller.
type Executor struct{}

// NewExecutor creates a new executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Execute runs fn and returns the outcome. A panic inside fn is recovered
// here, with its stack captured, and never reaches the caller.
func (e *Executor) Execute(ctx context.Context, fn Thunk) (result Result) {
	select {
	case <-ctx.Done():
		return Result{Error: ctx.Err(), Skipped: true}
	default:
	}

	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			result.Success = false
			result.Panicked = true
			result.PanicValue = r
			result.PanicStack = debug.Stack()
		}
	}()

	if err := fn(ctx); err != nil {
		result.Error = err
		return result
	}

	result.Success = true
	return result
}
