package synapse

import (
	"reflect"
	"sync"
)

// registry is the concurrent mapping from event type to subscription
// records. Records keep insertion order; dispatch sorts its own snapshot
// by priority so equal priorities run first-registered-first.
type registry struct {
	mu   sync.RWMutex
	subs map[reflect.Type][]*subscription
	seq  uint64 // last assigned registration sequence, guarded by mu
}

// newRegistry creates an empty registry.
func newRegistry() *registry {
	return &registry{
		subs: make(map[reflect.Type][]*subscription),
	}
}

// add validates rec and appends it to the list for its event type,
// creating the list if absent. Duplicate registrations are legal and
// result in multiple invocations per publish.
func (r *registry) add(rec *subscription) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	rec.seq = r.seq
	r.subs[rec.event] = append(r.subs[rec.event], rec)
	return nil
}

// validateRecord checks the registration invariants.
func validateRecord(rec *subscription) error {
	switch {
	case rec.event == nil:
		return ErrNilEventType
	case rec.event.Kind() != reflect.Pointer:
		return ErrNonPointerEvent
	case !rec.event.Implements(eventIface):
		return ErrNotEvent
	case rec.sub == nil:
		return ErrNilRef
	case rec.dynamic && rec.callback == nil:
		return ErrNilCallback
	case !rec.dynamic && rec.invoke == nil:
		return ErrNilThunk
	case !rec.priority.Valid():
		return ErrInvalidPriority
	}
	return nil
}

// snapshot returns a copy of the records for t. Dispatch iterates the
// copy, so a concurrent register or remove can never skip or duplicate an
// entry mid-pass.
func (r *registry) snapshot(t reflect.Type) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.subs[t]
	if len(list) == 0 {
		return nil
	}
	out := make([]*subscription, len(list))
	copy(out, list)
	return out
}

// remove deletes rec from its event type's list. Records already removed
// are tolerated.
func (r *registry) remove(rec *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(rec)
}

// removeAll deletes the given records in one lock acquisition.
func (r *registry) removeAll(recs []*subscription) {
	if len(recs) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range recs {
		r.removeLocked(rec)
	}
}

func (r *registry) removeLocked(rec *subscription) {
	list := r.subs[rec.event]
	for i, s := range list {
		if s == rec {
			// Full slice expression: keep the shared backing array
			// intact for readers holding older snapshots.
			r.subs[rec.event] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(r.subs[rec.event]) == 0 {
		delete(r.subs, rec.event)
	}
}

// removeByTarget cancels and removes every record across all event types
// whose subscriber reference resolves to target and whose dynamic flag
// matches. Returns the number removed.
func (r *registry) removeByTarget(target any, dynamic bool) int {
	if target == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for t, list := range r.subs {
		kept := list[:0:0]
		for _, s := range list {
			if s.dynamic == dynamic && s.matchesTarget(target) {
				s.cancel()
				removed++
				continue
			}
			kept = append(kept, s)
		}
		if len(kept) == 0 {
			delete(r.subs, t)
		} else {
			r.subs[t] = kept
		}
	}
	return removed
}

// sweepStale removes every record whose subscriber is no longer live, plus
// records already canceled through their handles. Returns the number
// removed.
func (r *registry) sweepStale() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for t, list := range r.subs {
		kept := list[:0:0]
		for _, s := range list {
			if s.State() == StateCanceled || !s.live() {
				s.cancel()
				removed++
				continue
			}
			kept = append(kept, s)
		}
		if len(kept) == 0 {
			delete(r.subs, t)
		} else {
			r.subs[t] = kept
		}
	}
	return removed
}

// count returns the total number of registered records.
func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, list := range r.subs {
		n += len(list)
	}
	return n
}

// countFor returns the number of records for one event type.
func (r *registry) countFor(t reflect.Type) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[t])
}
