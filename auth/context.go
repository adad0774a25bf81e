package auth

import (
	"context"
)

// Context keys for auth-related values.
type contextKey int

const (
	principalKey contextKey = iota
	tokenHashKey
)

// WithPrincipal returns a new context with the given principal attached.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the principal from the context.
// Returns nil if no principal is present.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// PrincipalIDFromContext retrieves the principal ID from the context.
// Returns empty string if no principal is present.
func PrincipalIDFromContext(ctx context.Context) string {
	p := PrincipalFromContext(ctx)
	if p == nil {
		return ""
	}
	return p.ID
}

// TierFromContext retrieves the principal's tier from the context.
// Returns TierAnonymous if no principal is present.
func TierFromContext(ctx context.Context) Tier {
	p := PrincipalFromContext(ctx)
	if p == nil {
		return TierAnonymous
	}
	return p.Tier
}

// WithTokenHash returns a new context carrying the opaque hash of the
// presented session token. The raw token is never stored in the context.
func WithTokenHash(ctx context.Context, hash string) context.Context {
	return context.WithValue(ctx, tokenHashKey, hash)
}

// TokenHashFromContext retrieves the session token hash from the context.
// Returns empty string if none is present.
func TokenHashFromContext(ctx context.Context) string {
	h, _ := ctx.Value(tokenHashKey).(string)
	return h
}
