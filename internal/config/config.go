// Package config loads settings for the rxmarble demo command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalid is wrapped by every validation failure returned from Load.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the rxmarble configuration.
type Config struct {
	Scenario string        `mapstructure:"scenario"`
	LogLevel string        `mapstructure:"log_level"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Sources  []Source      `mapstructure:"sources"`
}

// Source describes one interval-based input stream.
type Source struct {
	Name   string        `mapstructure:"name"`
	Period time.Duration `mapstructure:"period"`
	Take   int           `mapstructure:"take"`
}

// Load reads configuration from path (optional, YAML/TOML/JSON by extension)
// and from RXMARBLE_* environment variables, on top of built-in defaults.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("scenario", "merge")
	v.SetDefault("log_level", "info")
	v.SetDefault("timeout", "30s")
	v.SetDefault("sources", []map[string]any{
		{"name": "A", "period": "1s", "take": 3},
		{"name": "B", "period": "2s", "take": 4},
		{"name": "C", "period": "3s", "take": 5},
	})

	v.SetEnvPrefix("RXMARBLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first problem with cfg.
func (c Config) Validate() error {
	if c.Scenario == "" {
		return fmt.Errorf("%w: scenario must not be empty", ErrInvalid)
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("%w: at least one source is required", ErrInvalid)
	}
	for i, s := range c.Sources {
		if s.Period <= 0 {
			return fmt.Errorf("%w: source %d (%q): period must be positive", ErrInvalid, i, s.Name)
		}
		if s.Take <= 0 {
			return fmt.Errorf("%w: source %d (%q): take must be positive", ErrInvalid, i, s.Name)
		}
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the slog level named by LogLevel.
// Validate has already rejected unknown names.
func (c Config) Level() slog.Level {
	lvl, _ := parseLevel(c.LogLevel)
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q: %v", ErrInvalid, s, err)
	}
	return lvl, nil
}
