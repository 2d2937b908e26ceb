package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"

	"github.com/dshills/synapse"
	"github.com/dshills/synapse/diag"
)

// Config holds the tunable settings of a dispatch engine. Zero values are
// not useful on their own; start from Default and layer overrides on top
// via Load.
type Config struct {
	Sweep       SweepConfig       `koanf:"sweep"`       // Stale-collector settings
	Diagnostics DiagnosticsConfig `koanf:"diagnostics"` // Trace recorder settings
	Log         LogConfig         `koanf:"log"`         // Logging settings
}

// SweepConfig controls the passive stale-subscription collector.
type SweepConfig struct {
	// Interval is the minimum time between automatic sweeps. Zero or
	// negative disables automatic sweeping; SweepNow still works.
	Interval time.Duration `koanf:"interval"`
}

// DiagnosticsConfig controls the in-memory trace recorder.
type DiagnosticsConfig struct {
	Enabled       bool          `koanf:"enabled"`                 // Attach a recorder to the engine
	TraceCapacity int           `koanf:"traces" validate:"min=1"` // Trace ring size
	WindowSize    int           `koanf:"window" validate:"min=1"` // Samples per duration window
	SlowThreshold time.Duration `koanf:"slow" validate:"min=0"`   // Latency floor for slow-subscriber queries
}

// LogConfig controls engine logging.
type LogConfig struct {
	Level string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
}

// Default returns the baseline configuration: sweep every 30 seconds,
// diagnostics off, info-level logging.
func Default() Config {
	return Config{
		Sweep: SweepConfig{
			Interval: synapse.DefaultSweepInterval,
		},
		Diagnostics: DiagnosticsConfig{
			Enabled:       false,
			TraceCapacity: diag.DefaultTraceCapacity,
			WindowSize:    diag.DefaultWindowSize,
			SlowThreshold: 5 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// defaultMap flattens Default into dotted koanf keys for the confmap
// provider, so every key exists before higher-priority sources override it.
func defaultMap() map[string]interface{} {
	def := Default()
	return map[string]interface{}{
		"sweep.interval": def.Sweep.Interval,

		"diagnostics.enabled": def.Diagnostics.Enabled,
		"diagnostics.traces":  def.Diagnostics.TraceCapacity,
		"diagnostics.window":  def.Diagnostics.WindowSize,
		"diagnostics.slow":    def.Diagnostics.SlowThreshold,

		"log.level": def.Log.Level,
	}
}

var validate = validator.New()

// Load merges configuration sources in ascending priority order and returns
// the validated result. The built-in layering is defaults (10), then the
// YAML file at path if it exists (20), then SYNAPSE_* environment variables
// (30); extra sources are merged at their own priorities.
func Load(path string, extra ...Source) (Config, error) {
	sources := append(Sources(path), extra...)
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority() < sources[j].Priority()
	})

	k := koanf.New(".")
	for _, src := range sources {
		if err := src.Load(k); err != nil {
			return Config{}, fmt.Errorf("config source %s: %w", src.Name(), err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints. Load calls this automatically; call it
// directly when building a Config by hand.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Options converts the configuration into engine options. The logger is
// leveled per Log.Level and wired in along with the sweep interval. When
// diagnostics are enabled the returned recorder is non-nil and already
// included in the options; keep it to run queries against, passing
// Diagnostics.SlowThreshold to its SlowSubscribers method.
func (c Config) Options(log zerolog.Logger) ([]synapse.Option, *diag.InMemory) {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	opts := []synapse.Option{
		synapse.WithLogger(log.Level(level)),
		synapse.WithSweepInterval(c.Sweep.Interval),
	}

	var rec *diag.InMemory
	if c.Diagnostics.Enabled {
		rec = diag.NewInMemory(
			diag.WithTraceCapacity(c.Diagnostics.TraceCapacity),
			diag.WithWindowSize(c.Diagnostics.WindowSize),
		)
		opts = append(opts, synapse.WithRecorder(rec))
	}
	return opts, rec
}
