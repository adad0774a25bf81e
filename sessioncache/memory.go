package sessioncache

import (
	"context"
	"sync"
	"time"

	"github.com/meepleai/gateway/auth"
)

// MemoryStore is an in-memory session cache backend.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	byUser  map[string]map[string]struct{}
	clock   func() time.Time
}

type memoryEntry struct {
	principal *auth.Principal
	userID    string
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory session cache.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		byUser:  make(map[string]map[string]struct{}),
		clock:   time.Now,
	}
}

// Get retrieves the cached principal. Expired entries are cleaned up
// lazily and reported as misses.
func (s *MemoryStore) Get(_ context.Context, tokenHash string) (*auth.Principal, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[tokenHash]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if s.clock().After(e.expiresAt) {
		s.mu.Lock()
		s.removeLocked(tokenHash)
		s.mu.Unlock()
		return nil, false, nil
	}

	return e.principal, true, nil
}

// Set stores the principal until expiresAt. A no-op when the expiry is
// not in the future.
func (s *MemoryStore) Set(_ context.Context, tokenHash string, principal *auth.Principal, expiresAt time.Time) error {
	if !expiresAt.After(s.clock()) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(tokenHash)
	s.entries[tokenHash] = &memoryEntry{
		principal: principal,
		userID:    principal.UserID,
		expiresAt: expiresAt,
	}
	if principal.UserID != "" {
		hashes, ok := s.byUser[principal.UserID]
		if !ok {
			hashes = make(map[string]struct{})
			s.byUser[principal.UserID] = hashes
		}
		hashes[tokenHash] = struct{}{}
	}
	return nil
}

// Invalidate removes one entry. Idempotent.
func (s *MemoryStore) Invalidate(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	s.removeLocked(tokenHash)
	s.mu.Unlock()
	return nil
}

// InvalidateAllForUser removes every entry belonging to the user.
func (s *MemoryStore) InvalidateAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for hash := range s.byUser[userID] {
		delete(s.entries, hash)
	}
	delete(s.byUser, userID)
	return nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// removeLocked deletes an entry and its user index reference. Caller
// holds the write lock.
func (s *MemoryStore) removeLocked(tokenHash string) {
	e, ok := s.entries[tokenHash]
	if !ok {
		return
	}
	delete(s.entries, tokenHash)
	if e.userID != "" {
		if hashes, ok := s.byUser[e.userID]; ok {
			delete(hashes, tokenHash)
			if len(hashes) == 0 {
				delete(s.byUser, e.userID)
			}
		}
	}
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
