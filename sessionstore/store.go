package sessionstore

import (
	"context"
	"errors"
	"time"

	"github.com/meepleai/gateway/auth"
)

// Sentinel errors for session storage.
var (
	// ErrNotFound is returned when no session exists for a token hash.
	ErrNotFound = errors.New("sessionstore: session not found")

	// ErrExpired is returned when the session exists but has lapsed.
	ErrExpired = errors.New("sessionstore: session expired")
)

// Session is one durable session record.
type Session struct {
	ID        string
	TokenHash string
	UserID    string
	Tier      auth.Tier
	Roles     []string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Principal converts the session record into the principal it vouches for.
func (s *Session) Principal() *auth.Principal {
	return &auth.Principal{
		ID:        s.UserID,
		UserID:    s.UserID,
		SessionID: s.ID,
		Tier:      s.Tier,
		Roles:     append([]string(nil), s.Roles...),
		IssuedAt:  s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}

// Store is the durable session source.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - GetByTokenHash returns ErrNotFound for unknown hashes and ErrExpired
//   for lapsed sessions; any other error is a backend failure.
type Store interface {
	// GetByTokenHash resolves a token hash to its live session.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// Put persists a session record.
	Put(ctx context.Context, session *Session) error

	// Delete removes one session by token hash. Idempotent.
	Delete(ctx context.Context, tokenHash string) error

	// DeleteAllForUser removes every session belonging to a user.
	// Returns the number of sessions removed.
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
}
