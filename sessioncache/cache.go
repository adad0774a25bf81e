package sessioncache

import (
	"context"
	"time"

	"github.com/meepleai/gateway/auth"
)

// Store is the interface for session cache backends.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Get returns (nil, false, nil) on miss; a non-nil error is a backend
//   failure the caller must treat as a miss.
// - Set with an expiry at or before now is a no-op: an already-expired
//   session is never cached.
// - Invalidate and InvalidateAllForUser are idempotent.
type Store interface {
	// Get retrieves the cached principal for a token hash.
	Get(ctx context.Context, tokenHash string) (*auth.Principal, bool, error)

	// Set stores the principal with TTL = expiresAt - now.
	Set(ctx context.Context, tokenHash string, principal *auth.Principal, expiresAt time.Time) error

	// Invalidate removes one entry.
	Invalidate(ctx context.Context, tokenHash string) error

	// InvalidateAllForUser removes every entry for the user via the
	// secondary user index.
	InvalidateAllForUser(ctx context.Context, userID string) error
}
