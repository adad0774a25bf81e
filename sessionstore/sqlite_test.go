package sessionstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/meepleai/gateway/auth"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testSession(tokenHash, userID string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        "sess-" + tokenHash,
		TokenHash: tokenHash,
		UserID:    userID,
		Tier:      auth.TierAuthenticated,
		Roles:     []string{"player"},
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	want := testSession("hash-1", "user-1", time.Hour)
	if err := store.Put(ctx, want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.GetByTokenHash(ctx, "hash-1")
	if err != nil {
		t.Fatalf("GetByTokenHash failed: %v", err)
	}
	if got.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", got.UserID)
	}
	if got.Tier != auth.TierAuthenticated {
		t.Errorf("Tier = %q, want authenticated", got.Tier)
	}
	if len(got.Roles) != 1 || got.Roles[0] != "player" {
		t.Errorf("Roles = %v, want [player]", got.Roles)
	}

	p := got.Principal()
	if p.UserID != "user-1" || p.SessionID != got.ID {
		t.Errorf("Principal = %+v, want session-derived principal", p)
	}
}

func TestSQLiteStore_NotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetByTokenHash(context.Background(), "unknown")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByTokenHash = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_Expired(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, testSession("hash-old", "user-1", -time.Minute)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	_, err := store.GetByTokenHash(ctx, "hash-old")
	if !errors.Is(err, ErrExpired) {
		t.Errorf("GetByTokenHash = %v, want ErrExpired", err)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, testSession("hash-1", "user-1", time.Hour)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete(ctx, "hash-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByTokenHash(ctx, "hash-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByTokenHash after delete = %v, want ErrNotFound", err)
	}

	// Idempotent.
	if err := store.Delete(ctx, "hash-1"); err != nil {
		t.Errorf("second Delete = %v, want nil", err)
	}
}

func TestSQLiteStore_DeleteAllForUser(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, hash := range []string{"h1", "h2", "h3"} {
		if err := store.Put(ctx, testSession(hash, "user-1", time.Hour)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	if err := store.Put(ctx, testSession("h4", "user-2", time.Hour)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	n, err := store.DeleteAllForUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("DeleteAllForUser failed: %v", err)
	}
	if n != 3 {
		t.Errorf("removed = %d, want 3", n)
	}

	if _, err := store.GetByTokenHash(ctx, "h4"); err != nil {
		t.Errorf("other user's session should survive, got %v", err)
	}
}

func TestSQLiteStore_PurgeExpired(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, testSession("live", "user-1", time.Hour)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, testSession("dead", "user-1", -time.Hour)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	n, err := store.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
}
