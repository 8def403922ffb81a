package interp

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default resource ceilings.
const (
	DefaultMaxInstructions = 100000
	DefaultTimeoutMS       = 1000
	DefaultMaxMemory       = 10 << 20 // 10 MiB
)

// Config is the executor options bag. Zero fields fall back to the
// defaults; unrecognized keys in a config file are ignored.
type Config struct {
	MaxInstructions int   `yaml:"maxInstructions"`
	TimeoutMS       int   `yaml:"timeout"` // milliseconds
	MaxMemory       int64 `yaml:"maxMemory"`
}

// DefaultConfig returns the default ceilings.
func DefaultConfig() Config {
	return Config{
		MaxInstructions: DefaultMaxInstructions,
		TimeoutMS:       DefaultTimeoutMS,
		MaxMemory:       DefaultMaxMemory,
	}
}

// LoadConfig reads ceilings from a YAML file. A missing file yields the
// defaults; present keys override them.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.MaxInstructions <= 0 {
		c.MaxInstructions = DefaultMaxInstructions
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = DefaultTimeoutMS
	}
	if c.MaxMemory <= 0 {
		c.MaxMemory = DefaultMaxMemory
	}
	return c
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}
