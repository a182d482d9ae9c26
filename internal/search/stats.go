package search

import (
	"sync"
	"time"
)

// statsWindow is the number of recent search durations kept for the
// rolling average.
const statsWindow = 100

// Stats collects counters for the search pipeline: cache activity and a
// rolling average of search latency over the last statsWindow runs.
// The zero value is ready to use and safe for concurrent callers.
type Stats struct {
	mu        sync.Mutex
	samples   [statsWindow]time.Duration
	recorded  uint64
	hits      uint64
	misses    uint64
	evictions uint64
	expiries  uint64
}

// Snapshot is a point-in-time copy of the collected counters.
type Snapshot struct {
	Searches     uint64  `json:"searches"`
	AvgSearchMS  float64 `json:"avg_search_ms"`
	CacheHits    uint64  `json:"cache_hits"`
	CacheMisses  uint64  `json:"cache_misses"`
	CacheHitRate float64 `json:"cache_hit_rate"`
	Evictions    uint64  `json:"evictions"`
	Expiries     uint64  `json:"expiries"`
}

// RecordSearch adds one search duration to the rolling window.
func (s *Stats) RecordSearch(d time.Duration) {
	s.mu.Lock()
	s.samples[s.recorded%statsWindow] = d
	s.recorded++
	s.mu.Unlock()
}

// RecordHit counts a cache hit.
func (s *Stats) RecordHit() {
	s.mu.Lock()
	s.hits++
	s.mu.Unlock()
}

// RecordMiss counts a cache miss.
func (s *Stats) RecordMiss() {
	s.mu.Lock()
	s.misses++
	s.mu.Unlock()
}

// RecordEviction counts a capacity eviction.
func (s *Stats) RecordEviction() {
	s.mu.Lock()
	s.evictions++
	s.mu.Unlock()
}

// RecordExpiry counts a TTL expiry.
func (s *Stats) RecordExpiry() {
	s.mu.Lock()
	s.expiries++
	s.mu.Unlock()
}

// Snapshot returns a copy of the current counters. The average covers at
// most the last statsWindow searches.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.recorded
	if n > statsWindow {
		n = statsWindow
	}
	var total time.Duration
	for i := uint64(0); i < n; i++ {
		total += s.samples[i]
	}
	snap := Snapshot{
		Searches:    s.recorded,
		CacheHits:   s.hits,
		CacheMisses: s.misses,
		Evictions:   s.evictions,
		Expiries:    s.expiries,
	}
	if n > 0 {
		snap.AvgSearchMS = float64(total.Milliseconds()) / float64(n)
	}
	if lookups := s.hits + s.misses; lookups > 0 {
		snap.CacheHitRate = float64(s.hits) / float64(lookups)
	}
	return snap
}
