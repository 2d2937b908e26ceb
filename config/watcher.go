package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher watches a config file and reloads it when modifications are
// detected, delivering each valid reload to a callback. A typical embedder
// feeds the result into a running engine:
//
//	w, _ := config.NewWatcher(path, func(cfg config.Config) {
//		eng.SetSweepInterval(cfg.Sweep.Interval)
//	}, logger)
//	go w.Start(ctx)
type Watcher struct {
	// path is the config file to watch and reload
	path string

	// extra sources are merged on every reload, same as in Load
	extra []Source

	// onChange receives each successfully reloaded configuration
	onChange func(Config)

	// watcher is the fsnotify file watcher
	watcher *fsnotify.Watcher

	// debounceDelay is the time to wait before reloading after a change
	// (prevents multiple reloads for rapid successive writes)
	debounceDelay time.Duration

	logger zerolog.Logger

	// mu protects the debounce timer
	mu sync.Mutex

	// debounceTimer is the active debounce timer (if any)
	debounceTimer *time.Timer
}

// NewWatcher creates a watcher for the config file at path. Changes are
// debounced (100ms) to avoid redundant reloads during rapid successive
// writes. Reloads that fail to parse or validate are logged and dropped;
// the callback only ever sees valid configurations.
func NewWatcher(path string, onChange func(Config), logger zerolog.Logger, extra ...Source) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("config watcher: empty path")
	}
	if onChange == nil {
		return nil, errors.New("config watcher: nil callback")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		path:          path,
		extra:         extra,
		onChange:      onChange,
		watcher:       fw,
		debounceDelay: 100 * time.Millisecond,
		logger:        logger.With().Str("component", "config.watcher").Logger(),
	}, nil
}

// Start begins watching the config file for changes. It blocks until the
// context is canceled and should be run in its own goroutine:
//
//	go w.Start(ctx)
func (w *Watcher) Start(ctx context.Context) error {
	// fsnotify watches directories, not files, so watch the parent and
	// filter events down to the config file itself.
	dir := filepath.Dir(w.path)
	base := filepath.Base(w.path)

	if err := w.watcher.Add(dir); err != nil {
		w.logger.Error().
			Err(err).
			Str("dir", dir).
			Msg("Failed to watch config directory")
		return err
	}

	w.logger.Info().
		Str("file", w.path).
		Dur("debounce", w.debounceDelay).
		Msg("Started watching config file")

	defer func() {
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("Error closing watcher")
		}
		w.logger.Info().Msg("Stopped watching config file")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Base(event.Name) != base {
				continue
			}

			// Only react to write/create events (remove is handled by
			// create on the next write).
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				w.logger.Debug().
					Str("op", event.Op.String()).
					Str("file", event.Name).
					Msg("Detected config file change")

				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn().
				Err(err).
				Msg("File watcher error")
		}
	}
}

// scheduleReload schedules a reload after the debounce delay. If a reload
// is already scheduled, the timer is reset.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		cfg, err := Load(w.path, w.extra...)
		if err != nil {
			w.logger.Error().
				Err(err).
				Msg("Failed to reload config")
			return
		}

		w.logger.Info().Msg("Config reloaded successfully")
		w.onChange(cfg)
	})
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
