package cache

import (
	"sync"
	"time"
)

// Store is a process-wide TTL cache. One shared store backs multiple
// logical buckets; callers namespace keys ("trades_<id>", "holders_<id>").
// Entries are tagged with wall-clock insertion time and evicted lazily;
// when maxEntries is exceeded the least recently accessed entry goes.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	maxEntries int
	now        func() time.Time
	stats      Stats
}

type entry struct {
	value    interface{}
	ts       time.Time
	accessed time.Time
}

// Stats tracks hit/miss/stale counters for observability.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	StaleHits int64 `json:"stale_hits"`
	Evictions int64 `json:"evictions"`
}

// Bucket TTLs. Keys are prefixed with the bucket name.
const (
	TTLMarketList  = 15 * time.Minute
	TTLTrades      = 5 * time.Minute
	TTLHolders     = 10 * time.Minute
	TTLPositions   = 10 * time.Minute
	TTLWhaleTrades = 10 * time.Minute
	TTLActivity    = 15 * time.Minute
	TTLCorrelation = 15 * time.Minute
	TTLSlug        = 15 * time.Minute
)

// NewStore creates a store bounded to maxEntries (0 means unbounded).
func NewStore(maxEntries int) *Store {
	return &Store{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// SetClock overrides the wall clock, for tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Get returns the cached value when it is younger than ttl.
func (s *Store) Get(key string, ttl time.Duration) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		s.stats.Misses++
		return nil, false
	}
	if s.now().Sub(e.ts) >= ttl {
		s.stats.Misses++
		return nil, false
	}
	e.accessed = s.now()
	s.stats.Hits++
	return e.value, true
}

// Set stores a value tagged with the current wall clock.
func (s *Store) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		if _, exists := s.entries[key]; !exists {
			s.evictOldest()
		}
	}
	now := s.now()
	s.entries[key] = &entry{value: value, ts: now, accessed: now}
}

// Compute returns the fresh cached value when present; otherwise it calls
// fn and caches the result. When fn fails and a stale entry exists, the
// stale entry is returned (stale-on-error) so a venue outage degrades to
// old data instead of no data. Only when there is nothing to fall back on
// does the error propagate.
func (s *Store) Compute(key string, ttl time.Duration, fn func() (interface{}, error)) (interface{}, error) {
	if v, ok := s.Get(key, ttl); ok {
		return v, nil
	}

	v, err := fn()
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if e, ok := s.entries[key]; ok {
			s.stats.StaleHits++
			e.accessed = s.now()
			return e.value, nil
		}
		return nil, err
	}

	s.Set(key, v)
	return v, nil
}

// Len returns the number of live entries (expired-but-unevicted included).
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats returns a copy of the counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Purge drops entries older than maxAge regardless of bucket TTLs.
func (s *Store) Purge(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	cutoff := s.now().Add(-maxAge)
	for k, e := range s.entries {
		if e.ts.Before(cutoff) {
			delete(s.entries, k)
			removed++
		}
	}
	s.stats.Evictions += int64(removed)
	return removed
}

// evictOldest removes the least recently accessed entry. Caller holds the lock.
func (s *Store) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	first := true
	for k, e := range s.entries {
		if first || e.accessed.Before(oldestTime) {
			oldestKey, oldestTime, first = k, e.accessed, false
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
		s.stats.Evictions++
	}
}
