// Package dispatch executes handler thunks with full fault isolation.
//
// The engine hands each subscription invocation to an Executor as a Thunk,
// a closure with the target and event already bound. The executor times
// the call, recovers panics with their stack traces, and reports the
// outcome as a Result. Nothing a handler does, short of corrupting memory,
// can escape into the dispatch loop.
//
// # Panic Recovery
//
// A panicking thunk produces a Result with Panicked set, the recovered
// value in PanicValue and the stack in PanicStack. The caller decides how
// to log or surface it.
//
// # Context Support
//
// Execute checks the context before invoking the thunk. If it is already
// done, the thunk is skipped and the Result carries the context error with
// Skipped set. A thunk that ignores context cancellation mid-call simply
// runs to completion; there is no preemption.
//
// # Usage
//
//	exec := dispatch.NewExecutor()
//	res := exec.Execute(ctx, func(ctx context.Context) error {
//	    return handler(ctx, ev)
//	})
//	if res.IsPanic() {
//	    log.Printf("panic in handler: %v\n%s", res.PanicValue, res.PanicStack)
//	}
package dispatch
