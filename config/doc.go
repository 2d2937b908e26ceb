// Package config provides layered configuration for the dispatch engine.
//
// Configuration is merged from prioritized sources, higher priorities
// overriding lower ones key by key:
//
//	1. Built-in defaults      (priority 10)
//	2. YAML config file       (priority 20)
//	3. Environment variables  (priority 30, SYNAPSE_* prefix)
//
// Custom Source implementations can slot in at any priority.
//
// # Basic Usage
//
// Load configuration and build an engine from it:
//
//	cfg, err := config.Load("synapse.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	opts, rec := cfg.Options(logger)
//	eng := synapse.New(opts...)
//
// The returned recorder is non-nil when diagnostics are enabled and serves
// the slow-subscriber and frequency queries.
//
// # Live Reload
//
// Watcher monitors the config file and delivers validated reloads to a
// callback, debounced against rapid successive writes:
//
//	w, err := config.NewWatcher("synapse.yaml", func(cfg config.Config) {
//	    eng.SetSweepInterval(cfg.Sweep.Interval)
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go w.Start(ctx)
//	defer w.Close()
//
// Reloads that fail to parse or validate are logged and dropped; the
// running engine keeps its previous settings.
package config
