// Package ref provides non-owning subscriber references with pluggable
// liveness checks.
//
// A subscription registry that holds its subscribers strongly leaks every
// subscriber whose owner forgets to unsubscribe. The references here
// invert that: Weak tracks a subscriber through a runtime weak pointer, so
// the registry never extends the subscriber's lifetime, and a Probe lets
// the host declare additional per-kind teardown checks for objects that
// stay allocated after the host has destroyed them.
package ref
