package ratelimit

import "github.com/meepleai/gateway/auth"

// TierLimit is the statically configured capacity for one tier.
type TierLimit struct {
	// MaxTokens is the bucket capacity (burst size).
	MaxTokens float64 `yaml:"max_tokens"`

	// RefillPerSecond is the continuous refill rate.
	RefillPerSecond float64 `yaml:"refill_per_second"`
}

// Config maps each tier to its bucket parameters. The table is loaded once
// at startup and never mutated afterwards.
type Config map[auth.Tier]TierLimit

// DefaultConfig returns the default tier table.
func DefaultConfig() Config {
	return Config{
		auth.TierAnonymous:     {MaxTokens: 60, RefillPerSecond: 1},
		auth.TierAuthenticated: {MaxTokens: 120, RefillPerSecond: 2},
		auth.TierElevated:      {MaxTokens: 300, RefillPerSecond: 5},
		auth.TierAdmin:         {MaxTokens: 600, RefillPerSecond: 10},
	}
}

// Limit returns the configured limit for a tier, falling back to the
// anonymous tier for unknown values.
func (c Config) Limit(tier auth.Tier) TierLimit {
	if l, ok := c[tier]; ok {
		return l
	}
	return c[auth.TierAnonymous]
}

// Validate checks that every configured tier has positive parameters and
// that the anonymous fallback tier is present.
func (c Config) Validate() error {
	if _, ok := c[auth.TierAnonymous]; !ok {
		return errMissingAnonymous
	}
	for tier, l := range c {
		if l.MaxTokens <= 0 || l.RefillPerSecond <= 0 {
			return &InvalidTierError{Tier: tier}
		}
	}
	return nil
}
