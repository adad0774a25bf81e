package answercache

import "time"

// TopEntriesLimit caps the number of entries reported in Stats.TopEntries.
const TopEntriesLimit = 10

// Stats is a point-in-time projection over the live entry set. It is
// never persisted; every call recomputes it.
type Stats struct {
	HitCount      int64      `json:"hitCount"`
	MissCount     int64      `json:"missCount"`
	TotalRequests int64      `json:"totalRequests"`
	HitRate       float64    `json:"hitRate"`
	MissRate      float64    `json:"missRate"`
	Entries       int        `json:"entries"`
	SizeBytes     int64      `json:"sizeBytes"`
	TopEntries    []TopEntry `json:"topEntries"`
}

// TopEntry is one row of the most-hit entry ranking.
type TopEntry struct {
	Question  string    `json:"question"`
	GameID    string    `json:"gameId"`
	HitCount  int64     `json:"hitCount"`
	LastHitAt time.Time `json:"lastHitAt"`
}

// counter tracks lookup outcomes for one scope.
type counter struct {
	hits   int64
	misses int64
}

func computeRates(s *Stats) {
	s.TotalRequests = s.HitCount + s.MissCount
	if s.TotalRequests > 0 {
		s.HitRate = float64(s.HitCount) / float64(s.TotalRequests)
		s.MissRate = float64(s.MissCount) / float64(s.TotalRequests)
	}
}
