package ref

import (
	"reflect"
	"sync"
	"weak"
)

// Ref is a non-owning handle to a subscriber. A Ref never keeps its target
// alive; holding one in a registry therefore cannot leak the target.
type Ref interface {
	// Target returns the referent and true while it is live. A false
	// return means the referent was reclaimed or its host tore it down;
	// the subscription holding this ref is then stale.
	Target() (any, bool)

	// Kind returns the referent's concrete type, cached at construction.
	// It stays available after the referent dies.
	Kind() reflect.Type
}

// Alive is implemented by subscribers that can report their own liveness,
// typically wrappers around host objects with explicit teardown.
type Alive interface {
	Alive() bool
}

// LivenessFunc reports whether a host-managed subscriber is still usable.
// It receives the resolved referent and must be cheap; it runs on the
// dispatch hot path.
type LivenessFunc func(target any) bool

// Probe holds the per-kind liveness predicates injected by a host
// integration. Some hosts keep objects allocated after tearing them down,
// so reference liveness alone is not enough; the probe closes that gap.
//
// A nil *Probe is valid and reports every target usable.
type Probe struct {
	mu    sync.RWMutex
	preds map[reflect.Type]LivenessFunc
}

// NewProbe returns an empty Probe.
func NewProbe() *Probe {
	return &Probe{preds: make(map[reflect.Type]LivenessFunc)}
}

// Bind registers a liveness predicate for referents of the given kind,
// replacing any previous one. Binding a nil predicate removes the entry.
func (p *Probe) Bind(kind reflect.Type, fn LivenessFunc) {
	if p == nil || kind == nil {
		return
	}
	p.mu.Lock()
	if fn == nil {
		delete(p.preds, kind)
	} else {
		p.preds[kind] = fn
	}
	p.mu.Unlock()
}

// Check reports whether target is still usable. A target implementing
// Alive is asked first; then the predicate bound to its kind, if any.
// Targets with neither are usable by definition.
func (p *Probe) Check(target any) bool {
	if a, ok := target.(Alive); ok && !a.Alive() {
		return false
	}
	if p == nil {
		return true
	}
	p.mu.RLock()
	fn := p.preds[reflect.TypeOf(target)]
	p.mu.RUnlock()
	if fn != nil && !fn(target) {
		return false
	}
	return true
}

// weakRef tracks its target through a runtime weak pointer.
type weakRef[T any] struct {
	ptr   weak.Pointer[T]
	kind  reflect.Type
	probe *Probe
}

// Weak returns a Ref that does not keep target alive. Once the collector
// reclaims target, or the probe reports it dead, the Ref goes stale. A nil
// target yields a Ref that is already dead.
func Weak[T any](target *T, probe *Probe) Ref {
	r := &weakRef[T]{kind: reflect.TypeOf(target), probe: probe}
	if target != nil {
		r.ptr = weak.Make(target)
	}
	return r
}

func (r *weakRef[T]) Target() (any, bool) {
	t := r.ptr.Value()
	if t == nil {
		return nil, false
	}
	if !r.probe.Check(t) {
		return nil, false
	}
	return t, true
}

func (r *weakRef[T]) Kind() reflect.Type { return r.kind }

// pinnedRef holds its target strongly.
type pinnedRef struct {
	target any
	kind   reflect.Type
	probe  *Probe
}

// Pinned returns a Ref that holds target strongly, for subscribers whose
// lifetime is managed explicitly. Liveness then depends entirely on the
// probe and on the target's own Alive report; the owner must remove the
// subscription at teardown to release the target.
func Pinned(target any, probe *Probe) Ref {
	return &pinnedRef{target: target, kind: reflect.TypeOf(target), probe: probe}
}

func (r *pinnedRef) Target() (any, bool) {
	if r.target == nil {
		return nil, false
	}
	if !r.probe.Check(r.target) {
		return nil, false
	}
	return r.target, true
}

func (r *pinnedRef) Kind() reflect.Type { return r.kind }

// freeRef has no referent at all.
type freeRef struct{}

// Free returns a Ref with no referent that always reports live. It backs
// closure subscriptions without an owning subscriber; such records live
// until explicitly canceled.
func Free() Ref { return freeRef{} }

func (freeRef) Target() (any, bool) { return nil, true }

func (freeRef) Kind() reflect.Type { return nil }
