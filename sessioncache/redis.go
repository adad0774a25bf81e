package sessioncache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meepleai/gateway/auth"
)

// RedisStore is a session cache backend on Redis. Entries are stored
// under the token hash with a server-side TTL; a per-user set provides
// the secondary index for bulk invalidation.
type RedisStore struct {
	client *redis.Client
}

// RedisConfig configures the Redis session cache backend.
type RedisConfig struct {
	// Addr is the Redis host:port.
	Addr string

	// Password authenticates against Redis. Empty for no auth.
	Password string

	// DB is the logical database number.
	DB int
}

// NewRedisStore creates a Redis-backed session cache. Connectivity is
// verified with a ping so misconfiguration fails at startup instead of
// degrading every request.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func sessionKey(tokenHash string) string {
	return "session:" + tokenHash
}

func userIndexKey(userID string) string {
	return "user-sessions:" + userID
}

// Get retrieves the cached principal for a token hash.
func (s *RedisStore) Get(ctx context.Context, tokenHash string) (*auth.Principal, bool, error) {
	data, err := s.client.Get(ctx, sessionKey(tokenHash)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var p auth.Principal
	if err := json.Unmarshal(data, &p); err != nil {
		// A corrupt entry is as good as a miss; drop it.
		s.client.Del(ctx, sessionKey(tokenHash))
		return nil, false, nil
	}

	return &p, true, nil
}

// Set stores the principal with TTL = expiresAt - now and records the
// token hash in the user's index set.
func (s *RedisStore) Set(ctx context.Context, tokenHash string, principal *auth.Principal, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(principal)
	if err != nil {
		return fmt.Errorf("marshal principal: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(tokenHash), data, ttl)
	if principal.UserID != "" {
		idx := userIndexKey(principal.UserID)
		pipe.SAdd(ctx, idx, tokenHash)
		// Keep the index alive at least as long as its newest member.
		pipe.Expire(ctx, idx, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate removes one entry. Idempotent.
func (s *RedisStore) Invalidate(ctx context.Context, tokenHash string) error {
	if err := s.client.Del(ctx, sessionKey(tokenHash)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// InvalidateAllForUser removes every cached session for the user.
func (s *RedisStore) InvalidateAllForUser(ctx context.Context, userID string) error {
	idx := userIndexKey(userID)

	hashes, err := s.client.SMembers(ctx, idx).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("redis smembers: %w", err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, sessionKey(h))
	}
	keys = append(keys, idx)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
