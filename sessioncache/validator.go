package sessioncache

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/meepleai/gateway/auth"
	"github.com/meepleai/gateway/observe"
	"github.com/meepleai/gateway/sessionstore"
)

// Validator resolves session tokens to principals through the cache,
// falling back to the durable session store on a miss.
//
// Cache backend failures are logged and treated as misses; the durable
// store remains the only source of truth. Concurrent validations of the
// same token hash are collapsed into a single store lookup.
type Validator struct {
	cache  Store
	source sessionstore.Store
	logger observe.Logger
	group  singleflight.Group
}

// NewValidator creates a session validator. A nil logger is replaced
// with a no-op logger.
func NewValidator(cache Store, source sessionstore.Store, logger observe.Logger) *Validator {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Validator{
		cache:  cache,
		source: source,
		logger: logger.WithComponent("sessioncache"),
	}
}

// Validate resolves a raw session token to its principal.
//
// Returns auth.ErrSessionRevoked when the durable store has no live
// session for the token.
func (v *Validator) Validate(ctx context.Context, token string) (*auth.Principal, error) {
	hash := auth.HashToken(token)

	principal, ok, err := v.cache.Get(ctx, hash)
	if err != nil {
		// Fail open: the cache is an optimization, never a gate.
		v.logger.Warn(ctx, "session cache get failed, falling back to store",
			observe.Field{Key: "error", Value: err.Error()})
	} else if ok {
		return principal, nil
	}

	result, err, _ := v.group.Do(hash, func() (any, error) {
		return v.validateAgainstStore(ctx, hash)
	})
	if err != nil {
		return nil, err
	}
	return result.(*auth.Principal), nil
}

func (v *Validator) validateAgainstStore(ctx context.Context, hash string) (*auth.Principal, error) {
	session, err := v.source.GetByTokenHash(ctx, hash)
	if errors.Is(err, sessionstore.ErrNotFound) || errors.Is(err, sessionstore.ErrExpired) {
		return nil, auth.ErrSessionRevoked
	}
	if err != nil {
		return nil, fmt.Errorf("validate session: %w", err)
	}

	principal := session.Principal()

	// Best effort: TTL equals the session's remaining lifetime.
	if err := v.cache.Set(ctx, hash, principal, session.ExpiresAt); err != nil {
		v.logger.Warn(ctx, "session cache set failed",
			observe.Field{Key: "error", Value: err.Error()})
	}

	return principal, nil
}

// Invalidate drops one cached session, used on logout. Failures are
// logged and swallowed.
func (v *Validator) Invalidate(ctx context.Context, tokenHash string) {
	if err := v.cache.Invalidate(ctx, tokenHash); err != nil {
		v.logger.Warn(ctx, "session cache invalidate failed",
			observe.Field{Key: "error", Value: err.Error()})
	}
}

// InvalidateAllForUser drops every cached session for a user, used on
// logout-everywhere and credential rotation. Failures are logged and
// swallowed.
func (v *Validator) InvalidateAllForUser(ctx context.Context, userID string) {
	if err := v.cache.InvalidateAllForUser(ctx, userID); err != nil {
		v.logger.Warn(ctx, "session cache bulk invalidate failed",
			observe.Field{Key: "user_id", Value: userID},
			observe.Field{Key: "error", Value: err.Error()})
	}
}
