package synapse

import (
	"reflect"
	"sync"

	"github.com/dshills/synapse/ref"
)

// Subscriber bundles the subscriptions of one consumer so they can be torn
// down together. Host lifecycle integrations typically create one
// Subscriber per managed object and call Close from the object's
// destruction callback, alongside UnregisterAll for static bindings.
type Subscriber struct {
	d      Dispatcher
	mu     sync.Mutex
	hs     []*Handle
	closed bool
}

// NewSubscriber creates a Subscriber wrapping the given dispatcher.
func NewSubscriber(d Dispatcher) *Subscriber {
	return &Subscriber{d: d}
}

// Subscribe adds a dynamic subscription tracked for cleanup on Close.
func (s *Subscriber) Subscribe(eventType reflect.Type, fn HandlerFunc, opts ...SubOption) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSubscriberClosed
	}
	h, err := s.d.Subscribe(eventType, fn, opts...)
	if err != nil {
		return nil, err
	}
	s.hs = append(s.hs, h)
	return h, nil
}

// Register adds a static subscription tracked for cleanup on Close.
func (s *Subscriber) Register(eventType reflect.Type, sub ref.Ref, invoke MethodFunc, opts ...SubOption) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSubscriberClosed
	}
	h, err := s.d.Register(eventType, sub, invoke, opts...)
	if err != nil {
		return nil, err
	}
	s.hs = append(s.hs, h)
	return h, nil
}

// Track adds an externally created handle to the set canceled by Close.
// After Close, tracked handles are canceled immediately. It returns h.
func (s *Subscriber) Track(h *Handle) *Handle {
	if h == nil {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		h.Cancel()
		return h
	}
	s.hs = append(s.hs, h)
	s.mu.Unlock()
	return h
}

// Count returns the number of tracked subscriptions.
func (s *Subscriber) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hs)
}

// Close cancels every tracked subscription. It is idempotent.
func (s *Subscriber) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	hs := s.hs
	s.hs = nil
	s.mu.Unlock()

	for _, h := range hs {
		h.Cancel()
	}
}
