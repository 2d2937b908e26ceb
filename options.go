package synapse

import (
	"reflect"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/dshills/synapse/diag"
	"github.com/dshills/synapse/ref"
)

// DefaultSweepInterval is the automatic stale-sweep cadence used when no
// option or configuration overrides it.
const DefaultSweepInterval = 30 * time.Second

// Option configures an Engine at construction.
type Option func(*engineConfig)

// engineConfig contains configuration for an engine.
type engineConfig struct {
	// logger receives dispatch faults and sweep activity.
	logger zerolog.Logger

	// clock is the time source for the stale collector.
	clock clock.Clock

	// recorder observes dispatch for diagnostics.
	recorder diag.Recorder

	// sweepInterval gates the opportunistic stale sweep inside Publish.
	sweepInterval time.Duration

	// panicHandler is called after a handler panic has been contained.
	panicHandler PanicHandler

	// liveness holds per-kind host liveness predicates.
	liveness map[reflect.Type]ref.LivenessFunc
}

// defaultEngineConfig returns sensible default configuration.
func defaultEngineConfig() engineConfig {
	return engineConfig{
		logger:        zerolog.Nop(),
		clock:         clock.New(),
		recorder:      diag.Nop{},
		sweepInterval: DefaultSweepInterval,
	}
}

// WithLogger sets the structured logger. The engine logs handler faults,
// sweep results and publish-path recoveries; the default discards
// everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *engineConfig) {
		c.logger = l
	}
}

// WithClock substitutes the time source used by the stale collector.
func WithClock(clk clock.Clock) Option {
	return func(c *engineConfig) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithRecorder enables diagnostics with the given recorder. Passing nil
// keeps the no-op recorder.
func WithRecorder(r diag.Recorder) Option {
	return func(c *engineConfig) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithSweepInterval sets how often Publish opportunistically sweeps stale
// subscriptions. Zero or a negative duration disables automatic sweeping;
// SweepNow stays available.
func WithSweepInterval(d time.Duration) Option {
	return func(c *engineConfig) {
		c.sweepInterval = d
	}
}

// WithPanicHandler installs a callback observing recovered handler panics.
func WithPanicHandler(h PanicHandler) Option {
	return func(c *engineConfig) {
		c.panicHandler = h
	}
}

// WithLiveness injects a host liveness predicate for subscribers of the
// given kind. Reference liveness alone cannot see hosts that destroy an
// object while it is still reachable; the predicate closes that gap.
func WithLiveness(kind reflect.Type, fn ref.LivenessFunc) Option {
	return func(c *engineConfig) {
		if kind == nil || fn == nil {
			return
		}
		if c.liveness == nil {
			c.liveness = make(map[reflect.Type]ref.LivenessFunc)
		}
		c.liveness[kind] = fn
	}
}
