package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if PODIUM_CONFIG is set
//  3. env (prefix PODIUM_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("PODIUM_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: PODIUM_ADDR, PODIUM_MIN_VISIBLE, ...
	// Map env keys like PODIUM_MIN_VISIBLE -> min_visible (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("PODIUM_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "podium_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.UpstreamURL == "" {
		return fmt.Errorf("%w: upstream_url must not be empty", ErrInvalidConfig)
	}
	if c.UpstreamMode != ModePoll && c.UpstreamMode != ModeSSE {
		return fmt.Errorf("%w: upstream_mode must be poll or sse, got %q", ErrInvalidConfig, c.UpstreamMode)
	}
	if c.MinVisible < 0 {
		return fmt.Errorf("%w: min_visible must not be negative", ErrInvalidConfig)
	}
	if c.ReconnectFloorMS <= 0 || c.ReconnectCeilingMS < c.ReconnectFloorMS {
		return fmt.Errorf("%w: reconnect bounds must satisfy 0 < floor <= ceiling", ErrInvalidConfig)
	}
	return nil
}
