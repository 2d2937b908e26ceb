package synapse

import (
	"context"
	"reflect"
	"sync/atomic"

	"github.com/dshills/synapse/ref"
)

// State represents the lifecycle state of a subscription.
type State int32

const (
	// StateActive means the subscription is receiving events.
	StateActive State = iota

	// StatePaused means the subscription is temporarily not receiving
	// events but stays registered.
	StatePaused

	// StateCanceled means the subscription is permanently dead; the
	// registry drops it on the next removal pass.
	StateCanceled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// SubConfig contains per-subscription configuration.
type SubConfig struct {
	// Priority determines execution order (lower values execute first).
	Priority Priority

	// Filter is an optional predicate; events are delivered only if it
	// returns true.
	Filter FilterFunc

	// Once auto-cancels the subscription after its first successful
	// delivery.
	Once bool

	// Owner ties a dynamic subscription's liveness to another object.
	Owner ref.Ref

	// Label overrides the subscriber name reported to diagnostics.
	Label string
}

// SubOption configures a single subscription.
type SubOption func(*SubConfig)

// WithPriority overrides the default dispatch priority (High for static
// subscriptions, Medium for dynamic ones).
func WithPriority(p Priority) SubOption {
	return func(c *SubConfig) {
		c.Priority = p
	}
}

// WithFilter sets a filter predicate.
func WithFilter(f FilterFunc) SubOption {
	return func(c *SubConfig) {
		c.Filter = f
	}
}

// WithOnce sets the subscription to auto-cancel after the first
// successful delivery.
func WithOnce() SubOption {
	return func(c *SubConfig) {
		c.Once = true
	}
}

// WithOwner ties a dynamic subscription's liveness to owner: once owner
// dies, the subscription goes stale and is swept.
func WithOwner(r ref.Ref) SubOption {
	return func(c *SubConfig) {
		c.Owner = r
	}
}

// WithLabel sets the subscriber name used in logs and diagnostics.
func WithLabel(name string) SubOption {
	return func(c *SubConfig) {
		c.Label = name
	}
}

func newSubConfig(def Priority, opts []SubOption) SubConfig {
	c := SubConfig{Priority: def}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// subscription is one handler binding in the registry. Everything but the
// state is immutable after construction.
type subscription struct {
	seq      uint64       // registration order, breaks priority ties
	event    reflect.Type // concrete event pointer type
	sub      ref.Ref      // subscriber reference, never owning
	invoke   MethodFunc   // static thunk, nil on dynamic records
	callback HandlerFunc  // dynamic callback, nil on static records
	priority Priority
	dynamic  bool
	once     bool
	filter   FilterFunc
	label    string // subscriber name for logs and diagnostics
	state    atomic.Int32
}

// State returns the current subscription state.
func (s *subscription) State() State {
	return State(s.state.Load())
}

// cancel moves the subscription to Canceled from any state and reports
// whether this call performed the transition.
func (s *subscription) cancel() bool {
	for {
		cur := s.state.Load()
		if State(cur) == StateCanceled {
			return false
		}
		if s.state.CompareAndSwap(cur, int32(StateCanceled)) {
			return true
		}
	}
}

// pause stops delivery if the subscription is active.
func (s *subscription) pause() bool {
	return s.state.CompareAndSwap(int32(StateActive), int32(StatePaused))
}

// resume restarts delivery if the subscription is paused.
func (s *subscription) resume() bool {
	return s.state.CompareAndSwap(int32(StatePaused), int32(StateActive))
}

// live reports whether the subscriber reference still resolves.
func (s *subscription) live() bool {
	_, ok := s.sub.Target()
	return ok
}

// matchesTarget reports whether the subscriber reference resolves to
// exactly target.
func (s *subscription) matchesTarget(target any) bool {
	got, ok := s.sub.Target()
	return ok && got == target
}

// shouldDeliver reports whether dispatch should invoke this record for ev.
// Liveness and the cancellation priority rule are checked by the engine;
// this covers state and filter.
func (s *subscription) shouldDeliver(ev Event) bool {
	if s.State() != StateActive {
		return false
	}
	if s.filter != nil && !s.filter(ev) {
		return false
	}
	return true
}

// run invokes the record's thunk or callback against the resolved target.
func (s *subscription) run(ctx context.Context, target any, ev Event) error {
	if s.dynamic {
		return s.callback(ctx, ev)
	}
	return s.invoke(ctx, target, ev)
}

// Handle identifies one registered subscription and controls its
// lifecycle. All methods are safe for concurrent use and tolerate a nil
// receiver.
type Handle struct {
	rec *subscription
	reg *registry
}

// Cancel removes the subscription from the registry. It is idempotent:
// the second and later calls do nothing.
func (h *Handle) Cancel() {
	if h == nil || h.rec == nil {
		return
	}
	if h.rec.cancel() {
		h.reg.remove(h.rec)
	}
}

// Pause temporarily stops delivery. It reports whether the subscription
// was active.
func (h *Handle) Pause() bool {
	if h == nil || h.rec == nil {
		return false
	}
	return h.rec.pause()
}

// Resume restarts delivery after Pause. It reports whether the
// subscription was paused.
func (h *Handle) Resume() bool {
	if h == nil || h.rec == nil {
		return false
	}
	return h.rec.resume()
}

// State returns the subscription's current state.
func (h *Handle) State() State {
	if h == nil || h.rec == nil {
		return StateCanceled
	}
	return h.rec.State()
}

// Priority returns the subscription's dispatch priority.
func (h *Handle) Priority() Priority {
	if h == nil || h.rec == nil {
		return PriorityMedium
	}
	return h.rec.priority
}

// EventType returns the registered event type.
func (h *Handle) EventType() reflect.Type {
	if h == nil || h.rec == nil {
		return nil
	}
	return h.rec.event
}
