package auth

import "time"

// Tier classifies a principal for admission control. Each tier maps to a
// statically configured token-bucket capacity.
type Tier string

const (
	TierAnonymous     Tier = "anonymous"
	TierAuthenticated Tier = "authenticated"
	TierElevated      Tier = "elevated"
	TierAdmin         Tier = "admin"
)

// ParseTier parses a string tier, defaulting to anonymous for unknown values.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierAuthenticated, TierElevated, TierAdmin:
		return Tier(s)
	default:
		return TierAnonymous
	}
}

// Principal represents a validated caller.
type Principal struct {
	// ID is the unique rate-limit identity (user ID, or a synthetic
	// identity for anonymous callers).
	ID string

	// UserID is the durable account identifier. Empty for anonymous.
	UserID string

	// SessionID is the identifier of the backing session, if any.
	SessionID string

	// Tier determines admission-control capacity.
	Tier Tier

	// Roles are the roles assigned to this principal.
	Roles []string

	// IssuedAt is when the backing session was created.
	IssuedAt time.Time

	// ExpiresAt is when the backing session expires.
	ExpiresAt time.Time
}

// HasRole checks if the principal has a specific role.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsExpired checks if the backing session has expired.
func (p *Principal) IsExpired() bool {
	if p.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(p.ExpiresAt)
}

// IsAnonymous returns true if this principal has no backing account.
func (p *Principal) IsAnonymous() bool {
	return p.UserID == "" || p.Tier == TierAnonymous
}

// AnonymousPrincipal creates a principal for an unauthenticated caller.
// The clientKey (typically the remote address) scopes rate limiting so
// anonymous callers do not share a single bucket.
func AnonymousPrincipal(clientKey string) *Principal {
	return &Principal{
		ID:   "anon:" + clientKey,
		Tier: TierAnonymous,
	}
}
