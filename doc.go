// Package synapse is an in-process publish/subscribe event-dispatch
// engine: producers publish typed event objects, consumers register
// handlers keyed by event type, and the engine delivers each event to all
// live handlers in a deterministic priority order, with cooperative
// cancellation and leak-resistant subscriber lifecycle management.
//
// # Architecture
//
// The engine is built from four cooperating pieces:
//
//   - Registry: a concurrent map from event type to ordered subscription
//     records. Duplicate registrations are legal and produce multiple
//     invocations.
//   - Dispatch: synchronous, on the publisher's goroutine. Records are
//     snapshotted, sorted by priority (ties in registration order) and
//     invoked one by one with per-handler fault isolation.
//   - References: the registry holds subscribers through ref.Ref values,
//     weak by default, so a subscription never keeps its subscriber
//     alive. Stale records are skipped, then swept.
//   - Diagnostics: an optional diag.Recorder observes every publish,
//     timing handlers and counting event frequency. The no-op recorder
//     keeps the dispatch path identical when diagnostics are off.
//
// # Events
//
// An event kind is a struct embedding Base and published by pointer:
//
//	type Damage struct {
//	    synapse.Base
//	    Amount int
//	}
//
//	eng.Publish(ctx, &Damage{Amount: 12})
//
// Events carry one piece of mutable state, the cancellation flag. Any
// handler may call StopPropagation; from that moment only Essential and
// Cleanup handlers still run for this publish. The flag is one-way and
// scoped to the current dispatch.
//
// # Priorities
//
// Five levels run in ascending order: Essential, High, Medium, Low,
// Cleanup. Essential and Cleanup are exempt from cancellation. Static
// subscriptions default to High, dynamic ones to Medium.
//
// # Subscribing
//
// Bind attaches a method of a target object, held weakly:
//
//	h, err := synapse.Bind(eng, player, (*Player).OnDamage)
//
// On attaches a standalone callback, alive until its handle is canceled:
//
//	h, err := synapse.On(eng, func(ctx context.Context, ev *Damage) error {
//	    log.Printf("damage: %d", ev.Amount)
//	    return nil
//	})
//	defer h.Cancel()
//
// Subscriptions never outlive their subscriber: when a bound target is
// garbage collected, or a host liveness predicate reports it torn down,
// the record goes stale and the engine removes it during a later publish
// or sweep. Hosts with explicit teardown should still call UnregisterAll
// from their destruction hooks for promptness.
//
// # Fault isolation
//
// A handler that returns an error or panics never affects other handlers
// or the publisher. Faults are logged, counted in Stats and, when
// diagnostics are enabled, attached to the publish trace. Publish itself
// has no error return; the only outcome a producer can observe is the
// event's final cancellation state.
package synapse
