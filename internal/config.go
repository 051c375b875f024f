package internal

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v2"
)

// Config holds the tunable parameters of an environment.
type Config struct {
	// EphemeralCountMax and EphemeralSizeMax are the initial thresholds of
	// heuristic garbage collection passes.
	EphemeralCountMax int `yaml:"ephemeral_count_max"`
	EphemeralSizeMax  int `yaml:"ephemeral_size_max"`
	// CountIncrement and SizeIncrement are the steps by which thresholds are
	// raised after a pass that freed too little.
	CountIncrement int `yaml:"count_increment"`
	SizeIncrement  int `yaml:"size_increment"`
	// PeriodicFunctions enables periodic functions at startup.
	PeriodicFunctions bool `yaml:"periodic_functions"`
	// Watch lists the watch items to enable at startup.
	Watch []string `yaml:"watch"`

	// Stdout and Stderr receive the output of the default router. Nil means
	// os.Stdout and os.Stderr.
	Stdout io.Writer `yaml:"-"`
	Stderr io.Writer `yaml:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		EphemeralCountMax: DefaultEphemeralCountMax,
		EphemeralSizeMax:  DefaultEphemeralSizeMax,
		CountIncrement:    DefaultCountIncrement,
		SizeIncrement:     DefaultSizeIncrement,
	}
}

// Environment variables overriding configuration fields.
const (
	EnvEphemeralCount = "CLIPS_EPHEMERAL_COUNT"
	EnvEphemeralSize  = "CLIPS_EPHEMERAL_SIZE"
	EnvCountIncrement = "CLIPS_COUNT_INCREMENT"
	EnvSizeIncrement  = "CLIPS_SIZE_INCREMENT"
	EnvPeriodic       = "CLIPS_PERIODIC"
)

// LoadConfig reads a YAML configuration file. Fields missing from the file
// keep their defaults, and environment variables override both.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading config")
	}
	if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() {
	c.EphemeralCountMax = env.Int(EnvEphemeralCount, c.EphemeralCountMax)
	c.EphemeralSizeMax = env.Int(EnvEphemeralSize, c.EphemeralSizeMax)
	c.CountIncrement = env.Int(EnvCountIncrement, c.CountIncrement)
	c.SizeIncrement = env.Int(EnvSizeIncrement, c.SizeIncrement)
	if env.Has(EnvPeriodic) {
		c.PeriodicFunctions = env.Bool(EnvPeriodic)
	}
}

// Validate checks that thresholds and increments are positive.
func (c *Config) Validate() error {
	switch {
	case c.EphemeralCountMax <= 0:
		return errors.Errorf("ephemeral_count_max must be positive, have %d", c.EphemeralCountMax)
	case c.EphemeralSizeMax <= 0:
		return errors.Errorf("ephemeral_size_max must be positive, have %d", c.EphemeralSizeMax)
	case c.CountIncrement <= 0:
		return errors.Errorf("count_increment must be positive, have %d", c.CountIncrement)
	case c.SizeIncrement <= 0:
		return errors.Errorf("size_increment must be positive, have %d", c.SizeIncrement)
	}
	return nil
}
