package synapse

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/dshills/synapse/diag"
	"github.com/dshills/synapse/dispatch"
	"github.com/dshills/synapse/ref"
)

// Dispatcher is the engine's public surface: producers publish events,
// consumers register handlers keyed by event type.
type Dispatcher interface {
	// Publish delivers ev to every live subscription for its concrete
	// type. It never fails observably; the only outcome a producer can
	// inspect is the event's cancellation flag afterwards.
	Publish(ctx context.Context, ev Event)

	// Register adds a static subscription from an explicit subscriber
	// reference and invocation thunk. Most callers use Bind instead.
	Register(eventType reflect.Type, sub ref.Ref, invoke MethodFunc, opts ...SubOption) (*Handle, error)

	// Subscribe adds a dynamic closure subscription. Most callers use On
	// or OnOwned instead.
	Subscribe(eventType reflect.Type, fn HandlerFunc, opts ...SubOption) (*Handle, error)

	// UnregisterAll removes every static subscription bound to target,
	// returning the number removed. Host teardown hooks call this when
	// target is destroyed.
	UnregisterAll(target any) int

	// SetSweepInterval reconfigures the automatic stale-sweep cadence.
	// Zero or negative disables automatic sweeping.
	SetSweepInterval(d time.Duration)

	// SweepNow removes stale subscriptions immediately and returns the
	// number removed.
	SweepNow() int

	// Stats returns a snapshot of engine counters.
	Stats() Stats
}

// Engine delivers published events to subscribed handlers synchronously on
// the publisher's goroutine, in ascending priority order with ties broken
// by registration order. Handler faults are contained per handler. The
// zero value is not usable; construct with New.
type Engine struct {
	registry *registry
	probe    *ref.Probe
	exec     *dispatch.Executor
	recorder diag.Recorder
	clk      clock.Clock
	log      zerolog.Logger
	panicFn  PanicHandler

	sweepEvery atomic.Int64 // sweep interval in nanoseconds; <=0 disables
	lastSweep  atomic.Int64 // unix nanoseconds of the last sweep

	published atomic.Uint64
	delivered atomic.Uint64
	errCount  atomic.Uint64
	panics    atomic.Uint64
	skipped   atomic.Uint64
	swept     atomic.Uint64
}

var _ Dispatcher = (*Engine)(nil)

// New creates an Engine with the given options.
func New(opts ...Option) *Engine {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Engine{
		registry: newRegistry(),
		probe:    ref.NewProbe(),
		exec:     dispatch.NewExecutor(),
		recorder: cfg.recorder,
		clk:      cfg.clock,
		log:      cfg.logger.With().Str("component", "synapse").Logger(),
		panicFn:  cfg.panicHandler,
	}
	e.sweepEvery.Store(int64(cfg.sweepInterval))
	e.lastSweep.Store(cfg.clock.Now().UnixNano())
	for kind, fn := range cfg.liveness {
		e.probe.Bind(kind, fn)
	}
	return e
}

// Probe exposes the engine's liveness probe so host integrations can bind
// per-kind predicates after construction.
func (e *Engine) Probe() *ref.Probe { return e.probe }

// Register adds a static subscription: invoke is the bound-method thunk
// called with the resolved live target. The default priority is High.
func (e *Engine) Register(eventType reflect.Type, sub ref.Ref, invoke MethodFunc, opts ...SubOption) (*Handle, error) {
	cfg := newSubConfig(PriorityHigh, opts)
	rec := &subscription{
		event:    eventType,
		sub:      sub,
		invoke:   invoke,
		priority: cfg.Priority,
		once:     cfg.Once,
		filter:   cfg.Filter,
		label:    cfg.Label,
	}
	return e.attach(rec)
}

// Subscribe adds a dynamic closure subscription for the given event type.
// The default priority is Medium. Without WithOwner the subscription lives
// until its handle is canceled; with it, delivery additionally requires
// the owner to be live.
func (e *Engine) Subscribe(eventType reflect.Type, fn HandlerFunc, opts ...SubOption) (*Handle, error) {
	cfg := newSubConfig(PriorityMedium, opts)
	owner := cfg.Owner
	if owner == nil {
		owner = ref.Free()
	}
	rec := &subscription{
		event:    eventType,
		sub:      owner,
		callback: fn,
		priority: cfg.Priority,
		dynamic:  true,
		once:     cfg.Once,
		filter:   cfg.Filter,
		label:    cfg.Label,
	}
	return e.attach(rec)
}

func (e *Engine) attach(rec *subscription) (*Handle, error) {
	if rec.label == "" {
		rec.label = subscriberLabel(rec)
	}
	if err := e.registry.add(rec); err != nil {
		return nil, err
	}
	e.log.Debug().
		Str("event", typeName(rec.event)).
		Str("subscriber", rec.label).
		Str("priority", rec.priority.String()).
		Bool("dynamic", rec.dynamic).
		Msg("subscription added")
	return &Handle{rec: rec, reg: e.registry}, nil
}

// subscriberLabel derives a diagnostics name for a record: the subscriber
// type when there is one, otherwise the callback's function name.
func subscriberLabel(rec *subscription) string {
	if rec.sub != nil {
		if kind := rec.sub.Kind(); kind != nil {
			return kind.String()
		}
	}
	if rec.callback != nil {
		if fn := runtime.FuncForPC(reflect.ValueOf(rec.callback).Pointer()); fn != nil {
			return fn.Name()
		}
	}
	return "anonymous"
}

// Publish delivers ev to every live subscription registered for its
// concrete type. Dispatch order is priority ascending, ties in
// registration order. Once ev is canceled, only Essential and Cleanup
// handlers still run. Handler errors and panics are contained per handler;
// internal faults are contained per publish. Publish never panics and has
// nothing to return.
func (e *Engine) Publish(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Interface("panic", r).
				Msg("publish aborted by internal fault")
		}
	}()

	if ev == nil {
		return
	}
	e.published.Add(1)
	e.sweepIfDue()

	t := reflect.TypeOf(ev)
	recs := e.registry.snapshot(t)
	if len(recs) == 0 {
		return
	}
	sortRecords(recs)

	tr := e.beginTrace(t)
	var stale, retired []*subscription
	for _, rec := range recs {
		target, live := rec.sub.Target()
		if !live {
			rec.cancel()
			stale = append(stale, rec)
			continue
		}
		if ev.Canceled() && !rec.priority.AlwaysRuns() {
			e.skipped.Add(1)
			continue
		}
		if !rec.shouldDeliver(ev) {
			continue
		}

		res := e.exec.Execute(ctx, func(c context.Context) error {
			return rec.run(c, target, ev)
		})
		e.account(t, rec, ev, res)
		e.recordInvocation(tr, rec, res)

		if rec.once && res.IsSuccess() && rec.cancel() {
			retired = append(retired, rec)
		}
	}
	e.endTrace(tr, ev)

	if len(stale) > 0 {
		e.registry.removeAll(stale)
		e.swept.Add(uint64(len(stale)))
		e.log.Debug().
			Str("event", typeName(t)).
			Int("removed", len(stale)).
			Msg("stale subscriptions purged during publish")
	}
	e.registry.removeAll(retired)
}

// account updates counters and logs one invocation outcome.
func (e *Engine) account(t reflect.Type, rec *subscription, ev Event, res dispatch.Result) {
	switch {
	case res.Panicked:
		e.panics.Add(1)
		e.log.Error().
			Str("event", typeName(t)).
			Str("subscriber", rec.label).
			Str("priority", rec.priority.String()).
			Interface("panic", res.PanicValue).
			Bytes("stack", res.PanicStack).
			Msg("handler panicked")
		if e.panicFn != nil {
			e.safePanicHook(ev, res)
		}
	case res.Error != nil && !res.Skipped:
		e.errCount.Add(1)
		e.log.Error().
			Err(res.Error).
			Str("event", typeName(t)).
			Str("subscriber", rec.label).
			Str("priority", rec.priority.String()).
			Msg("handler failed")
	case res.Skipped:
		e.skipped.Add(1)
	default:
		e.delivered.Add(1)
	}
}

// safePanicHook shields dispatch from a faulty panic callback.
func (e *Engine) safePanicHook(ev Event, res dispatch.Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Interface("panic", r).
				Msg("panic handler panicked")
		}
	}()
	e.panicFn(ev, res.PanicValue, res.PanicStack)
}

// beginTrace opens a diagnostics trace. Recorder faults are contained so
// diagnostics can never affect delivery.
func (e *Engine) beginTrace(t reflect.Type) (tr *diag.Trace) {
	defer func() {
		if r := recover(); r != nil {
			tr = nil
			e.log.Warn().Interface("panic", r).Msg("recorder failed in Begin")
		}
	}()
	return e.recorder.Begin(typeName(t), callSite(3))
}

// recordInvocation reports one handler measurement to the recorder.
func (e *Engine) recordInvocation(tr *diag.Trace, rec *subscription, res dispatch.Result) {
	if tr == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn().Interface("panic", r).Msg("recorder failed in Record")
		}
	}()

	inv := diag.Invocation{
		Subscriber: rec.label,
		Priority:   int(rec.priority),
		Duration:   res.Duration,
		Panicked:   res.Panicked,
	}
	switch {
	case res.Panicked:
		inv.Err = &PanicError{
			Subscriber: rec.label,
			EventType:  typeName(rec.event),
			Value:      res.PanicValue,
			Stack:      string(res.PanicStack),
		}
	case res.Error != nil:
		inv.Err = &HandlerError{
			Subscriber: rec.label,
			EventType:  typeName(rec.event),
			Err:        res.Error,
		}
	}
	e.recorder.Record(tr, inv)
}

// endTrace finalizes a diagnostics trace.
func (e *Engine) endTrace(tr *diag.Trace, ev Event) {
	if tr == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn().Interface("panic", r).Msg("recorder failed in End")
		}
	}()
	e.recorder.End(tr, ev.Canceled())
}

// callSite formats the producer's file:line for trace records.
func callSite(skip int) string {
	if _, file, line, ok := runtime.Caller(skip); ok {
		return fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	return "unknown"
}

// sortRecords orders a snapshot for dispatch: priority ascending, then
// registration sequence, so equal priorities run first-registered-first.
func sortRecords(recs []*subscription) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].priority != recs[j].priority {
			return recs[i].priority < recs[j].priority
		}
		return recs[i].seq < recs[j].seq
	})
}

// UnregisterAll removes every static subscription bound to target and
// returns the number removed. Dynamic subscriptions are controlled by
// their handles and owner liveness instead.
func (e *Engine) UnregisterAll(target any) int {
	n := e.registry.removeByTarget(target, false)
	if n > 0 {
		e.log.Debug().
			Str("target", fmt.Sprintf("%T", target)).
			Int("removed", n).
			Msg("target unregistered")
	}
	return n
}

// SetSweepInterval reconfigures the automatic sweep cadence. Zero or a
// negative duration disables automatic sweeping; SweepNow stays available.
func (e *Engine) SetSweepInterval(d time.Duration) {
	e.sweepEvery.Store(int64(d))
}

// SweepNow removes stale subscriptions immediately, regardless of the
// sweep interval, and resets the interval timer.
func (e *Engine) SweepNow() int {
	e.lastSweep.Store(e.clk.Now().UnixNano())
	n := e.registry.sweepStale()
	e.swept.Add(uint64(n))
	if n > 0 {
		e.log.Debug().Int("removed", n).Msg("stale subscriptions swept")
	}
	return n
}

// sweepIfDue runs a stale sweep when the configured interval has elapsed.
// The collector is passive: it only ever runs here or in SweepNow, never
// on a background goroutine.
func (e *Engine) sweepIfDue() {
	every := e.sweepEvery.Load()
	if every <= 0 {
		return
	}
	now := e.clk.Now().UnixNano()
	last := e.lastSweep.Load()
	if now-last < every {
		return
	}
	if !e.lastSweep.CompareAndSwap(last, now) {
		return // a concurrent publisher won this sweep
	}
	n := e.registry.sweepStale()
	e.swept.Add(uint64(n))
	if n > 0 {
		e.log.Debug().Int("removed", n).Msg("stale subscriptions swept")
	}
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Published: e.published.Load(),
		Delivered: e.delivered.Load(),
		Errors:    e.errCount.Load(),
		Panics:    e.panics.Load(),
		Skipped:   e.skipped.Load(),
		Swept:     e.swept.Load(),
		Active:    e.registry.count(),
	}
}

// Bind subscribes a method of target to events of kind E, holding target
// weakly: if target is garbage collected, or the engine's probe reports it
// torn down, the subscription goes stale and is swept without ever
// invoking the method again. The method parameter is shaped for method
// expressions, so the usual call is
//
//	synapse.Bind(eng, player, (*Player).OnDamage)
//
// The default priority is High.
func Bind[T any, E Event](d Dispatcher, target *T, method func(*T, context.Context, E) error, opts ...SubOption) (*Handle, error) {
	if method == nil {
		return nil, ErrNilThunk
	}
	thunk := func(ctx context.Context, tgt any, ev Event) error {
		return method(tgt.(*T), ctx, ev.(E))
	}
	return d.Register(TypeOf[E](), ref.Weak(target, probeOf(d)), thunk, opts...)
}

// On subscribes a standalone callback to events of kind E. The
// subscription lives until its handle is canceled. The default priority is
// Medium.
func On[E Event](d Dispatcher, fn func(context.Context, E) error, opts ...SubOption) (*Handle, error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	cb := func(ctx context.Context, ev Event) error {
		return fn(ctx, ev.(E))
	}
	return d.Subscribe(TypeOf[E](), cb, opts...)
}

// OnOwned subscribes a callback whose liveness follows owner: once owner
// is reclaimed or reported dead, the subscription goes stale and is swept.
func OnOwned[T any, E Event](d Dispatcher, owner *T, fn func(context.Context, E) error, opts ...SubOption) (*Handle, error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	cb := func(ctx context.Context, ev Event) error {
		return fn(ctx, ev.(E))
	}
	opts = append(opts[:len(opts):len(opts)], WithOwner(ref.Weak(owner, probeOf(d))))
	return d.Subscribe(TypeOf[E](), cb, opts...)
}

// probeOf extracts the engine's probe when d is an Engine; other
// Dispatcher implementations fall back to reference liveness only.
func probeOf(d Dispatcher) *ref.Probe {
	if e, ok := d.(*Engine); ok {
		return e.probe
	}
	return nil
}
