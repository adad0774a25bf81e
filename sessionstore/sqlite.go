package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/meepleai/gateway/auth"
)

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS sessions (
	token_hash TEXT PRIMARY KEY,
	id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	tier TEXT NOT NULL,
	roles TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_user_id ON sessions (user_id);
`

// SQLiteStore is a Store backed by SQLite.
type SQLiteStore struct {
	db    *sql.DB
	clock func() time.Time
}

// OpenSQLite opens (and migrates) a SQLite-backed session store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	if _, err := db.Exec(createSessionsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate session db: %w", err)
	}

	return &SQLiteStore{db: db, clock: time.Now}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetByTokenHash resolves a token hash to its live session.
func (s *SQLiteStore) GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error) {
	var (
		sess      Session
		roles     string
		createdAt int64
		expiresAt int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, tier, roles, created_at, expires_at FROM sessions WHERE token_hash = ?`,
		tokenHash,
	).Scan(&sess.ID, &sess.UserID, (*string)(&sess.Tier), &roles, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	sess.TokenHash = tokenHash
	sess.Tier = auth.ParseTier(string(sess.Tier))
	if roles != "" {
		sess.Roles = strings.Split(roles, ",")
	}
	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.ExpiresAt = time.Unix(expiresAt, 0)

	if s.clock().After(sess.ExpiresAt) {
		return nil, ErrExpired
	}

	return &sess, nil
}

// Put persists a session record, replacing any record with the same
// token hash.
func (s *SQLiteStore) Put(ctx context.Context, session *Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (token_hash, id, user_id, tier, roles, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.TokenHash,
		session.ID,
		session.UserID,
		string(session.Tier),
		strings.Join(session.Roles, ","),
		session.CreatedAt.Unix(),
		session.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// Delete removes one session by token hash. Idempotent.
func (s *SQLiteStore) Delete(ctx context.Context, tokenHash string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteAllForUser removes every session belonging to a user.
func (s *SQLiteStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	return int(n), nil
}

// PurgeExpired removes sessions whose expiry has passed. Intended for a
// periodic maintenance sweep.
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, s.clock().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return int(n), nil
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
