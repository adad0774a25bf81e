package answercache

import (
	"encoding/json"
	"errors"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// shardCount is the number of entry shards. Power of two so the shard
// index reduces to a mask.
const shardCount = 32

// MaxTargetLength is the maximum allowed length for a game ID or tag
// passed to an invalidation call.
const MaxTargetLength = 128

// ErrInvalidTarget is returned for a malformed game ID or tag supplied
// to an invalidation call.
var ErrInvalidTarget = errors.New("answercache: invalid invalidation target")

// ValidateTarget checks a game ID or tag used as an invalidation
// scope. Targets are slug-like: letters, digits, and -_.: only.
func ValidateTarget(target string) error {
	if target == "" || len(target) > MaxTargetLength {
		return ErrInvalidTarget
	}
	for _, r := range target {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == ':':
		default:
			return ErrInvalidTarget
		}
	}
	return nil
}

// entry is one live cache entry. The hit fields are atomics so hits can
// be recorded under the shard's read lock.
type entry struct {
	fingerprint string
	gameID      string
	question    string
	payload     Answer
	tags        map[string]struct{}
	sizeBytes   int64
	createdAt   time.Time
	hitCount    atomic.Int64
	lastHitAt   atomic.Int64
}

// shard is one slice of the entry map with its own lock.
type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// Cache is the in-memory response cache.
//
// Contract:
// - Concurrency: safe for concurrent use; unrelated fingerprints never
//   share a lock.
// - At most one live entry exists per fingerprint; Store is a full
//   replacement, never a merge.
// - Invalidation is synchronous: once it returns, no lookup observes a
//   removed entry.
type Cache struct {
	shards [shardCount]*shard

	hits   atomic.Int64
	misses atomic.Int64

	gameMu       sync.Mutex
	gameCounters map[string]*counter

	clock func() time.Time
}

// New creates an empty response cache.
func New() *Cache {
	c := &Cache{
		gameCounters: make(map[string]*counter),
		clock:        time.Now,
	}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return c
}

// Lookup retrieves the cached answer for a (game, question) pair.
// Returns (zero, false) on miss. The question is normalized before
// fingerprinting, so casing and whitespace do not affect hits.
func (c *Cache) Lookup(gameID, question string) (Answer, bool) {
	fp := Fingerprint(gameID, question)
	s := c.shards[shardIndex(fp)]

	s.mu.RLock()
	e, ok := s.entries[fp]
	s.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		c.countGame(gameID, false)
		return Answer{}, false
	}

	e.hitCount.Add(1)
	e.lastHitAt.Store(c.clock().UnixNano())
	c.hits.Add(1)
	c.countGame(gameID, true)

	return e.payload, true
}

// Store creates or replaces the entry for the (game, question)
// fingerprint. Hit tracking starts over on replacement.
func (c *Cache) Store(gameID, question string, payload Answer, tags []string) {
	fp := Fingerprint(gameID, question)
	now := c.clock()

	tagSet := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		tagSet[t] = struct{}{}
	}

	e := &entry{
		fingerprint: fp,
		gameID:      gameID,
		question:    NormalizeQuestion(question),
		payload:     payload,
		tags:        tagSet,
		sizeBytes:   payloadSize(payload),
		createdAt:   now,
	}
	e.lastHitAt.Store(now.UnixNano())

	s := c.shards[shardIndex(fp)]
	s.mu.Lock()
	s.entries[fp] = e
	s.mu.Unlock()
}

// InvalidateByGame removes every entry whose game matches. Returns the
// number of entries removed.
func (c *Cache) InvalidateByGame(gameID string) int {
	return c.removeMatching(func(e *entry) bool {
		return e.gameID == gameID
	})
}

// InvalidateByTag removes every entry carrying the tag. Returns the
// number of entries removed.
func (c *Cache) InvalidateByTag(tag string) int {
	return c.removeMatching(func(e *entry) bool {
		_, ok := e.tags[tag]
		return ok
	})
}

// removeMatching sweeps all shards under their write locks. Every
// matching entry is gone before this returns.
func (c *Cache) removeMatching(match func(*entry) bool) int {
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for fp, e := range s.entries {
			if match(e) {
				delete(s.entries, fp)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Stats computes a point-in-time projection over live entries. An empty
// gameID means the whole cache; otherwise counts and rankings are scoped
// to that game.
func (c *Cache) Stats(gameID string) Stats {
	var stats Stats

	if gameID == "" {
		stats.HitCount = c.hits.Load()
		stats.MissCount = c.misses.Load()
	} else {
		c.gameMu.Lock()
		if ctr, ok := c.gameCounters[gameID]; ok {
			stats.HitCount = ctr.hits
			stats.MissCount = ctr.misses
		}
		c.gameMu.Unlock()
	}
	computeRates(&stats)

	var top []TopEntry
	for _, s := range c.shards {
		s.mu.RLock()
		for _, e := range s.entries {
			if gameID != "" && e.gameID != gameID {
				continue
			}
			stats.Entries++
			stats.SizeBytes += e.sizeBytes
			top = append(top, TopEntry{
				Question:  e.question,
				GameID:    e.gameID,
				HitCount:  e.hitCount.Load(),
				LastHitAt: time.Unix(0, e.lastHitAt.Load()),
			})
		}
		s.mu.RUnlock()
	}

	sort.Slice(top, func(i, j int) bool {
		if top[i].HitCount != top[j].HitCount {
			return top[i].HitCount > top[j].HitCount
		}
		return top[i].LastHitAt.After(top[j].LastHitAt)
	})
	if len(top) > TopEntriesLimit {
		top = top[:TopEntriesLimit]
	}
	stats.TopEntries = top

	return stats
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

func (c *Cache) countGame(gameID string, hit bool) {
	c.gameMu.Lock()
	ctr, ok := c.gameCounters[gameID]
	if !ok {
		ctr = &counter{}
		c.gameCounters[gameID] = ctr
	}
	if hit {
		ctr.hits++
	} else {
		ctr.misses++
	}
	c.gameMu.Unlock()
}

func payloadSize(payload Answer) int64 {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0
	}
	return int64(len(data))
}

func shardIndex(fingerprint string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(fingerprint))
	return h.Sum32() & (shardCount - 1)
}
