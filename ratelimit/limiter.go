package ratelimit

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meepleai/gateway/auth"
)

// shardCount is the number of bucket shards. Power of two so the shard
// index reduces to a mask.
const shardCount = 32

// Decision is the outcome of one admission check.
type Decision struct {
	// Allowed reports whether the request was admitted.
	Allowed bool

	// Remaining is the number of tokens left after this check.
	Remaining float64

	// Limit is the bucket capacity for the principal's tier.
	Limit float64

	// RetryAfter is how long until one full token is available.
	// Zero when the request was admitted.
	RetryAfter time.Duration
}

// bucketState is the volatile part of a bucket. Tokens and the refill
// timestamp are packed together and swapped atomically so refill and
// consume form a single update.
type bucketState struct {
	tokens     float64
	lastRefill time.Time
}

// bucket holds the atomically swapped state for one principal.
type bucket struct {
	state atomic.Pointer[bucketState]
}

// shard is one slice of the bucket map with its own lock.
type shard struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
}

// Limiter implements tiered token-bucket admission control.
type Limiter struct {
	tiers  Config
	shards [shardCount]*shard
	clock  func() time.Time
}

// New creates a limiter with the given immutable tier table.
func New(tiers Config) *Limiter {
	if tiers == nil {
		tiers = DefaultConfig()
	}
	l := &Limiter{
		tiers: tiers,
		clock: time.Now,
	}
	for i := range l.shards {
		l.shards[i] = &shard{buckets: make(map[string]*bucket)}
	}
	return l
}

// Consume attempts to take one token from the principal's bucket.
//
// Elapsed time is credited before consumption and clamped to the tier's
// capacity. On an empty bucket the state is left untouched and
// ErrRateLimitExceeded is returned alongside the decision. Consume never
// blocks.
func (l *Limiter) Consume(principalID string, tier auth.Tier) (Decision, error) {
	limit := l.tiers.Limit(tier)
	b := l.bucket(principalID, limit)

	for {
		prev := b.state.Load()
		now := l.clock()

		// Refill against the previous snapshot. The refill only becomes
		// visible if the CAS below succeeds, so a failed consume leaves
		// the stored state unchanged.
		tokens := prev.tokens + now.Sub(prev.lastRefill).Seconds()*limit.RefillPerSecond
		if tokens > limit.MaxTokens {
			tokens = limit.MaxTokens
		}

		if tokens < 1 {
			return Decision{
				Allowed:    false,
				Remaining:  tokens,
				Limit:      limit.MaxTokens,
				RetryAfter: retryAfter(tokens, limit.RefillPerSecond),
			}, ErrRateLimitExceeded
		}

		next := &bucketState{tokens: tokens - 1, lastRefill: now}
		if b.state.CompareAndSwap(prev, next) {
			return Decision{
				Allowed:   true,
				Remaining: next.tokens,
				Limit:     limit.MaxTokens,
			}, nil
		}
		// Lost the race with a concurrent call for the same principal.
	}
}

// Remaining reports the current token count for a principal without
// consuming. Used for telemetry headers on responses that are not
// admission-checked themselves.
func (l *Limiter) Remaining(principalID string, tier auth.Tier) Decision {
	limit := l.tiers.Limit(tier)
	b := l.bucket(principalID, limit)

	prev := b.state.Load()
	tokens := prev.tokens + l.clock().Sub(prev.lastRefill).Seconds()*limit.RefillPerSecond
	if tokens > limit.MaxTokens {
		tokens = limit.MaxTokens
	}

	return Decision{Allowed: true, Remaining: tokens, Limit: limit.MaxTokens}
}

// bucket returns the principal's bucket, creating it lazily with a full
// allowance on first use.
func (l *Limiter) bucket(principalID string, limit TierLimit) *bucket {
	s := l.shards[shardIndex(principalID)]

	s.mu.RLock()
	b, ok := s.buckets[principalID]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.buckets[principalID]; ok {
		return b
	}

	b = &bucket{}
	b.state.Store(&bucketState{tokens: limit.MaxTokens, lastRefill: l.clock()})
	s.buckets[principalID] = b
	return b
}

func shardIndex(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() & (shardCount - 1)
}

func retryAfter(tokens, refillPerSecond float64) time.Duration {
	deficit := 1 - tokens
	if deficit <= 0 {
		return 0
	}
	return time.Duration(deficit / refillPerSecond * float64(time.Second))
}
