package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Source is a configuration layer that loads values into koanf. Sources are
// loaded in priority order (lowest first); later sources override earlier
// values key by key.
//
// Built-in sources and their priorities:
//   - DefaultSource (10): hardcoded defaults
//   - FileSource (20): YAML config file
//   - EnvSource (30): environment variables (SYNAPSE_*)
//
// Custom sources can slot between these (for example a secrets store at 25).
type Source interface {
	// Name returns a human-readable name for this source, used in errors.
	Name() string

	// Priority returns the load priority. Lower values load first, higher
	// values override lower ones.
	Priority() int

	// Load loads this source's values into the provided koanf instance.
	Load(k *koanf.Koanf) error
}

// DefaultSource provides the hardcoded default values.
// Priority: 10 (lowest, loaded first)
type DefaultSource struct{}

func (s *DefaultSource) Name() string  { return "defaults" }
func (s *DefaultSource) Priority() int { return 10 }

func (s *DefaultSource) Load(k *koanf.Koanf) error {
	if err := k.Load(confmap.Provider(defaultMap(), "."), nil); err != nil {
		return fmt.Errorf("error loading defaults: %w", err)
	}
	return nil
}

// FileSource loads configuration from a YAML file.
// Priority: 20
type FileSource struct {
	Path string // Path to config file (optional, silently skipped if empty or missing)
}

func (s *FileSource) Name() string  { return "file:" + s.Path }
func (s *FileSource) Priority() int { return 20 }

func (s *FileSource) Load(k *koanf.Koanf) error {
	if s.Path == "" {
		return nil // No file specified, skip silently
	}

	if _, err := os.Stat(s.Path); err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, skip silently
		}
		return fmt.Errorf("error checking config file %s: %w", s.Path, err)
	}

	if err := k.Load(file.Provider(s.Path), yaml.Parser()); err != nil {
		return fmt.Errorf("error loading config file %s: %w", s.Path, err)
	}
	return nil
}

// EnvSource loads configuration from environment variables. Variables must
// carry the SYNAPSE_ prefix; underscores map to dots:
//
//	SYNAPSE_LOG_LEVEL -> log.level
//	SYNAPSE_SWEEP_INTERVAL -> sweep.interval
//
// Priority: 30
type EnvSource struct {
	Prefix string // Environment variable prefix (default: "SYNAPSE_")
}

func (s *EnvSource) Name() string  { return "env" }
func (s *EnvSource) Priority() int { return 30 }

func (s *EnvSource) Load(k *koanf.Koanf) error {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "SYNAPSE_"
	}

	if err := k.Load(env.Provider(prefix, ".", func(key string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(key, prefix)), "_", ".")
	}), nil); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}
	return nil
}

// Sources returns the standard configuration layers for the given config
// file path. Order: defaults -> file -> env.
func Sources(configPath string) []Source {
	return []Source{
		&DefaultSource{},
		&FileSource{Path: configPath},
		&EnvSource{Prefix: "SYNAPSE_"},
	}
}
