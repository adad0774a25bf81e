package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/meepleai/gateway/auth"
	"github.com/meepleai/gateway/ratelimit"
	"github.com/meepleai/gateway/secret"
)

// Config is the gateway's full runtime configuration.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `env:"MEEPLE_LISTEN_ADDR" envDefault:":8080"`

	// EngineURL is the reasoning engine's base URL.
	EngineURL string `env:"MEEPLE_ENGINE_URL" envDefault:"http://localhost:9090"`

	// GenerationTimeout bounds one engine call.
	GenerationTimeout time.Duration `env:"MEEPLE_GENERATION_TIMEOUT" envDefault:"60s"`

	// MaxStreams caps concurrent answer streams.
	MaxStreams int `env:"MEEPLE_MAX_STREAMS" envDefault:"256"`

	// SigningKey signs session tokens. May be a secret reference.
	SigningKey string `env:"MEEPLE_SIGNING_KEY,required"`

	// SessionDBPath is the SQLite session store location.
	SessionDBPath string `env:"MEEPLE_SESSION_DB" envDefault:"sessions.db"`

	// RedisAddr enables the Redis session cache when non-empty; left
	// empty the gateway uses the in-process cache.
	RedisAddr string `env:"MEEPLE_REDIS_ADDR"`

	// RedisPassword may be a secret reference.
	RedisPassword string `env:"MEEPLE_REDIS_PASSWORD"`

	// RedisDB selects the Redis logical database.
	RedisDB int `env:"MEEPLE_REDIS_DB" envDefault:"0"`

	// TierFile points at a YAML tier table; empty means defaults.
	TierFile string `env:"MEEPLE_TIER_FILE"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"MEEPLE_LOG_LEVEL" envDefault:"info"`

	// TracingExporter selects the trace exporter (stdout, otlp, none).
	TracingExporter string `env:"MEEPLE_TRACING_EXPORTER" envDefault:"none"`

	// MetricsExporter selects the metrics exporter (stdout, otlp,
	// prometheus, none).
	MetricsExporter string `env:"MEEPLE_METRICS_EXPORTER" envDefault:"none"`

	// Tiers is the resolved rate-limit table. Populated by Load.
	Tiers ratelimit.Config `env:"-"`
}

// Load parses the environment, resolves secret references, and loads
// the tier table.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}

	resolver := secret.NewResolver(secret.EnvProvider{}, secret.FileProvider{})

	signingKey, err := resolver.ResolveValue(ctx, cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("config: resolve signing key: %w", err)
	}
	cfg.SigningKey = signingKey

	if cfg.RedisPassword != "" {
		password, err := resolver.ResolveValue(ctx, cfg.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("config: resolve redis password: %w", err)
		}
		cfg.RedisPassword = password
	}

	cfg.Tiers, err = loadTiers(cfg.TierFile)
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SigningKey == "" {
		return errors.New("config: signing key is empty")
	}
	if c.GenerationTimeout <= 0 {
		return errors.New("config: generation timeout must be positive")
	}
	if c.MaxStreams <= 0 {
		return errors.New("config: max streams must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}

// tierFile is the YAML shape of the tier table.
type tierFile struct {
	Tiers map[string]ratelimit.TierLimit `yaml:"tiers"`
}

// loadTiers reads the tier table, falling back to the built-in
// defaults when no file is configured. A file replaces the table
// wholesale; it is not merged with the defaults.
func loadTiers(path string) (ratelimit.Config, error) {
	if path == "" {
		return ratelimit.DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read tier file: %w", err)
	}

	var parsed tierFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("config: parse tier file: %w", err)
	}

	tiers := make(ratelimit.Config, len(parsed.Tiers))
	for name, limit := range parsed.Tiers {
		// ParseTier coerces unknown names to anonymous; a typo in the
		// table must fail loudly instead.
		tier := auth.Tier(name)
		if auth.ParseTier(name) != tier {
			return nil, fmt.Errorf("config: tier file: unknown tier %q", name)
		}
		tiers[tier] = limit
	}
	if err := tiers.Validate(); err != nil {
		return nil, fmt.Errorf("config: tier file: %w", err)
	}
	return tiers, nil
}
