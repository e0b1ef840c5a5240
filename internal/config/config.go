// Package config holds the tuning of the tick driver. Values come from
// built-in defaults, an optional YAML file and COLONYBOT_ environment
// variables, in that order of precedence (later wins).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvMinCPUBucket      = "COLONYBOT_MIN_CPU_BUCKET"
	EnvCleanupEveryTicks = "COLONYBOT_CLEANUP_EVERY_TICKS"
	EnvCleanupOffset     = "COLONYBOT_CLEANUP_OFFSET"
	EnvExpiringTicks     = "COLONYBOT_EXPIRING_TICKS"
	EnvLogLevel          = "COLONYBOT_LOG_LEVEL"
	EnvLogFormat         = "COLONYBOT_LOG_FORMAT"
	EnvJournalDir        = "COLONYBOT_JOURNAL_DIR"
)

// Log output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the driver tuning.
type Config struct {
	// MinCPUBucket is the lowest computation budget at which a tick runs.
	MinCPUBucket int `yaml:"min_cpu_bucket"`
	// Memory cleanup runs on ticks where time % CleanupEveryTicks == CleanupOffset.
	CleanupEveryTicks uint64 `yaml:"cleanup_every_ticks"`
	CleanupOffset     uint64 `yaml:"cleanup_offset"`
	ExpiringTicks     int    `yaml:"expiring_ticks"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	// JournalDir enables the tick journal when non-empty.
	JournalDir string `yaml:"journal_dir"`
}

// Default returns the built-in tuning.
func Default() Config {
	return Config{
		MinCPUBucket:      500,
		CleanupEveryTicks: 128,
		CleanupOffset:     3,
		ExpiringTicks:     150,
		LogLevel:          "info",
		LogFormat:         FormatText,
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(raw); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(raw []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from the variables visible through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	ints := []struct {
		env string
		dst *int
	}{
		{EnvMinCPUBucket, &c.MinCPUBucket},
		{EnvExpiringTicks, &c.ExpiringTicks},
	}
	for _, f := range ints {
		if v, ok := lookup(f.env); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", f.env, err)
			}
			*f.dst = n
		}
	}
	uints := []struct {
		env string
		dst *uint64
	}{
		{EnvCleanupEveryTicks, &c.CleanupEveryTicks},
		{EnvCleanupOffset, &c.CleanupOffset},
	}
	for _, f := range uints {
		if v, ok := lookup(f.env); ok && v != "" {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", f.env, err)
			}
			*f.dst = n
		}
	}
	strs := []struct {
		env string
		dst *string
	}{
		{EnvLogLevel, &c.LogLevel},
		{EnvLogFormat, &c.LogFormat},
		{EnvJournalDir, &c.JournalDir},
	}
	for _, f := range strs {
		if v, ok := lookup(f.env); ok {
			*f.dst = v
		}
	}
	return nil
}

// Validate reports the first inconsistent value.
func (c Config) Validate() error {
	switch {
	case c.MinCPUBucket < 0:
		return fmt.Errorf("min_cpu_bucket must not be negative")
	case c.CleanupEveryTicks == 0:
		return fmt.Errorf("cleanup_every_ticks must be positive")
	case c.CleanupOffset >= c.CleanupEveryTicks:
		return fmt.Errorf("cleanup_offset %d must be below cleanup_every_ticks %d", c.CleanupOffset, c.CleanupEveryTicks)
	case c.ExpiringTicks <= 0:
		return fmt.Errorf("expiring_ticks must be positive")
	case c.LogFormat != FormatText && c.LogFormat != FormatJSON:
		return fmt.Errorf("log_format must be %q or %q, got %q", FormatText, FormatJSON, c.LogFormat)
	}
	_, err := c.SlogLevel()
	return err
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// CleanupDue reports whether memory cleanup runs at tick.
func (c Config) CleanupDue(tick uint64) bool {
	return c.CleanupEveryTicks > 0 && tick%c.CleanupEveryTicks == c.CleanupOffset
}
