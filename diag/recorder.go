package diag

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Recorder observes dispatch for diagnostics. Implementations must be
// safe for concurrent use. The engine contains recorder faults, so a
// broken recorder degrades diagnostics, never delivery.
type Recorder interface {
	// Begin opens a trace for one publish call. Returning nil disables
	// tracing for that publish.
	Begin(eventType, origin string) *Trace

	// Record appends one handler measurement to the trace and to the
	// subscriber's rolling duration window.
	Record(tr *Trace, inv Invocation)

	// End finalizes the trace with the event's cancellation outcome.
	End(tr *Trace, canceled bool)
}

// Default sizing for the in-memory recorder.
const (
	// DefaultTraceCapacity bounds the recent-trace ring.
	DefaultTraceCapacity = 128

	// DefaultWindowSize bounds each rolling duration window.
	DefaultWindowSize = 32

	// DefaultWindowKeys bounds how many subscriber and event type pairs
	// keep windows at once; the least recently updated are evicted.
	DefaultWindowKeys = 256
)

// InMemory is the standard Recorder: a bounded ring of recent traces,
// rolling per-subscriber duration windows and per-event frequency
// counters. All state is process local.
type InMemory struct {
	mu      sync.Mutex
	clk     clock.Clock
	traces  []*Trace // ring storage
	head    int      // index of the oldest trace
	count   int      // traces currently held
	windows *lru.Cache[string, *window]
	winSize int
	freq    map[string]uint64
}

var _ Recorder = (*InMemory)(nil)

// InMemoryOption configures an InMemory recorder.
type InMemoryOption func(*InMemory)

// WithTraceCapacity bounds the recent-trace ring. Values below one keep
// the default.
func WithTraceCapacity(n int) InMemoryOption {
	return func(m *InMemory) {
		if n > 0 {
			m.traces = make([]*Trace, n)
		}
	}
}

// WithWindowSize bounds each rolling duration window. Values below one
// keep the default.
func WithWindowSize(n int) InMemoryOption {
	return func(m *InMemory) {
		if n > 0 {
			m.winSize = n
		}
	}
}

// WithWindowKeys bounds the number of tracked subscriber and event type
// pairs. Values below one keep the default.
func WithWindowKeys(n int) InMemoryOption {
	return func(m *InMemory) {
		if n > 0 {
			m.windows, _ = lru.New[string, *window](n)
		}
	}
}

// WithClock substitutes the recorder's time source.
func WithClock(clk clock.Clock) InMemoryOption {
	return func(m *InMemory) {
		if clk != nil {
			m.clk = clk
		}
	}
}

// NewInMemory creates a recorder with the given options.
func NewInMemory(opts ...InMemoryOption) *InMemory {
	m := &InMemory{
		clk:     clock.New(),
		traces:  make([]*Trace, DefaultTraceCapacity),
		winSize: DefaultWindowSize,
		freq:    make(map[string]uint64),
	}
	m.windows, _ = lru.New[string, *window](DefaultWindowKeys)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Begin opens a trace: generated ID, capture timestamp, producer call
// site. It also counts the event occurrence and enqueues the trace,
// evicting the oldest when the ring is full.
func (m *InMemory) Begin(eventType, origin string) *Trace {
	tr := &Trace{
		ID:        uuid.New().String(),
		EventType: eventType,
		Origin:    origin,
		Start:     m.clk.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.freq[eventType]++
	m.push(tr)
	return tr
}

// push appends tr to the ring, evicting the oldest entry on overflow.
// Callers hold mu.
func (m *InMemory) push(tr *Trace) {
	capacity := len(m.traces)
	m.traces[(m.head+m.count)%capacity] = tr
	if m.count < capacity {
		m.count++
		return
	}
	m.head = (m.head + 1) % capacity
}

// Record appends inv to the trace and folds its duration into the rolling
// window for the subscriber and event type pair.
func (m *InMemory) Record(tr *Trace, inv Invocation) {
	if tr == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tr.Invocations = append(tr.Invocations, inv)
	tr.Total += inv.Duration

	key := windowKey(inv.Subscriber, tr.EventType)
	w, ok := m.windows.Get(key)
	if !ok {
		w = newWindow(m.winSize)
		m.windows.Add(key, w)
	}
	w.add(inv.Duration)
}

// End stamps the trace with the event's final cancellation state.
func (m *InMemory) End(tr *Trace, canceled bool) {
	if tr == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tr.Canceled = canceled
}

// SlowReport describes one subscriber whose rolling average duration for
// one event type exceeds a threshold.
type SlowReport struct {
	Subscriber string
	EventType  string
	Average    time.Duration
	Samples    int
}

// SlowSubscribers returns the subscriber and event type pairs whose
// rolling average duration exceeds threshold, slowest first.
func (m *InMemory) SlowSubscribers(threshold time.Duration) []SlowReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []SlowReport
	for _, key := range m.windows.Keys() {
		w, ok := m.windows.Peek(key)
		if !ok {
			continue
		}
		avg := w.average()
		if avg <= threshold {
			continue
		}
		sub, eventType := splitKey(key)
		out = append(out, SlowReport{
			Subscriber: sub,
			EventType:  eventType,
			Average:    avg,
			Samples:    w.samples(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Average > out[j].Average })
	return out
}

// FrequencyReport counts publishes of one event type.
type FrequencyReport struct {
	EventType string
	Count     uint64
}

// Frequencies returns per-event publish counts, most frequent first.
func (m *InMemory) Frequencies() []FrequencyReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]FrequencyReport, 0, len(m.freq))
	for t, c := range m.freq {
		out = append(out, FrequencyReport{EventType: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].EventType < out[j].EventType
	})
	return out
}

// Recent returns up to n of the most recent traces, newest first,
// optionally filtered by event type name; an empty name matches all. The
// returned traces are copies. n below one means no limit.
func (m *InMemory) Recent(n int, eventType string) []*Trace {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n < 1 {
		n = m.count
	}
	capacity := len(m.traces)
	var out []*Trace
	for i := m.count - 1; i >= 0 && len(out) < n; i-- {
		tr := m.traces[(m.head+i)%capacity]
		if eventType != "" && tr.EventType != eventType {
			continue
		}
		out = append(out, tr.clone())
	}
	return out
}

// Reset discards all traces, windows and counters.
func (m *InMemory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.traces = make([]*Trace, len(m.traces))
	m.head, m.count = 0, 0
	m.windows.Purge()
	m.freq = make(map[string]uint64)
}

// windowKey joins a subscriber label and event type into one map key.
func windowKey(sub, eventType string) string {
	return sub + "|" + eventType
}

// splitKey undoes windowKey. Event type names never contain '|', so the
// last separator wins.
func splitKey(key string) (sub, eventType string) {
	i := strings.LastIndex(key, "|")
	if i < 0 {
		return key, ""
	}
	return key[:i], key[i+1:]
}

// window is a rolling set of recent durations for one subscriber and
// event type pair.
type window struct {
	durs []time.Duration
	next int
	full bool
	sum  time.Duration
}

func newWindow(size int) *window {
	return &window{durs: make([]time.Duration, size)}
}

// add records a duration, evicting the oldest once the window is full.
func (w *window) add(d time.Duration) {
	if w.full {
		w.sum -= w.durs[w.next]
	}
	w.durs[w.next] = d
	w.sum += d
	w.next++
	if w.next == len(w.durs) {
		w.next = 0
		w.full = true
	}
}

// samples returns how many durations the window currently holds.
func (w *window) samples() int {
	if w.full {
		return len(w.durs)
	}
	return w.next
}

// average returns the mean of the held durations, zero when empty.
func (w *window) average() time.Duration {
	n := w.samples()
	if n == 0 {
		return 0
	}
	return w.sum / time.Duration(n)
}
