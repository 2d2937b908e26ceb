// Package diag records dispatch diagnostics: one trace per publish, rolling
// per-subscriber latency windows, and event frequency counters.
//
// The engine feeds a Recorder three calls per publish: Begin when the event
// goes out, Record after each handler invocation, End when dispatch
// finishes. InMemory keeps everything in bounded process-local structures
// sized at construction; Nop discards everything so production builds pay
// nothing for the hooks.
//
// # Queries
//
// InMemory answers the questions the measurements exist for:
//
//	rec.SlowSubscribers(5 * time.Millisecond) // who is stalling publishers
//	rec.Frequencies()                         // which events dominate
//	rec.Recent(20, "")                        // what just happened
//
// Reset drops all accumulated state, typically between test scenarios or
// profiling runs.
//
// # Failure contract
//
// Diagnostics never alter dispatch outcomes. Recorder implementations are
// expected not to panic, and the engine recovers around every recorder call
// regardless, so at worst a fault costs the measurements of one publish.
package diag
