package ratelimit

import (
	"errors"
	"fmt"

	"github.com/meepleai/gateway/auth"
)

// Sentinel errors for admission control.
var (
	// ErrRateLimitExceeded is returned when a principal's bucket is empty.
	ErrRateLimitExceeded = errors.New("ratelimit: rate limit exceeded")

	errMissingAnonymous = errors.New("ratelimit: anonymous tier is required")
)

// InvalidTierError reports a tier configured with non-positive parameters.
type InvalidTierError struct {
	Tier auth.Tier
}

func (e *InvalidTierError) Error() string {
	return fmt.Sprintf("ratelimit: tier %q has invalid parameters", e.Tier)
}
