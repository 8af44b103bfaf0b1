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
//  2. file (YAML) if POSELOOP_CONFIG is set
//  3. env (prefix POSELOOP_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("POSELOOP_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: POSELOOP_ADDR, POSELOOP_TICK_INTERVAL_MS, ...
	// Map env keys like POSELOOP_TICK_INTERVAL_MS -> tick_interval_ms
	// (flat keys, underscores preserved to match koanf tags on the struct).
	envProvider := env.Provider("POSELOOP_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "poseloop_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Endpoint == "":
		return fmt.Errorf("%w: endpoint must not be empty", ErrInvalidConfig)
	case c.Transport != "http" && c.Transport != "ws":
		return fmt.Errorf("%w: transport must be http or ws, got %q", ErrInvalidConfig, c.Transport)
	case c.TickIntervalMS <= 0:
		return fmt.Errorf("%w: tick_interval_ms must be positive", ErrInvalidConfig)
	case c.AnnounceCooldownMS < 0 || c.AnnouncePaceMS < 0:
		return fmt.Errorf("%w: announcement intervals must not be negative", ErrInvalidConfig)
	case c.AnnounceBacklog <= 0:
		return fmt.Errorf("%w: announce_backlog must be positive", ErrInvalidConfig)
	case c.VisibilityThreshold <= 0 || c.VisibilityThreshold >= 1:
		return fmt.Errorf("%w: visibility_threshold must be in (0, 1)", ErrInvalidConfig)
	case c.StartScore <= c.ScoreFloor:
		return fmt.Errorf("%w: start_score must exceed score_floor", ErrInvalidConfig)
	case c.SourceWidth <= 0 || c.SourceHeight <= 0:
		return fmt.Errorf("%w: source dimensions must be positive", ErrInvalidConfig)
	case c.DisplayWidth <= 0 || c.DisplayHeight <= 0:
		return fmt.Errorf("%w: display dimensions must be positive", ErrInvalidConfig)
	}
	return nil
}
