package search

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/OpenChatGit/autosearch/internal/telemetry"
	"github.com/OpenChatGit/autosearch/models"
)

// Cache stores assembled search contexts keyed by normalized query, so
// repeated questions about the same thing skip the whole pipeline.
type Cache interface {
	// Get returns the cached context for query, if present and fresh.
	Get(ctx context.Context, query string) (models.SearchContext, bool, error)
	// Set stores the context under the normalized query.
	Set(ctx context.Context, query string, sc models.SearchContext) error
	// Delete drops a single entry.
	Delete(ctx context.Context, query string) error
	// Clear drops every entry.
	Clear(ctx context.Context) error
	// SetTTL changes the lifetime applied to entries stored from now on.
	SetTTL(d time.Duration)
	// Close releases background resources.
	Close() error
}

// NopCache stores nothing. It backs deployments that turn caching off
// while keeping the orchestrator's cache path uniform.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (models.SearchContext, bool, error) {
	return models.SearchContext{}, false, nil
}
func (NopCache) Set(context.Context, string, models.SearchContext) error { return nil }
func (NopCache) Delete(context.Context, string) error                    { return nil }
func (NopCache) Clear(context.Context) error                             { return nil }
func (NopCache) SetTTL(time.Duration)                                    {}
func (NopCache) Close() error                                            { return nil }

// CacheOptions tunes the memory cache. Zero values fall back to the
// defaults below.
type CacheOptions struct {
	TTL           time.Duration // entry lifetime (default 1h)
	MaxEntries    int           // entry ceiling (default 100)
	MaxBytes      int64         // estimated size ceiling (default 100 MiB)
	SweepInterval time.Duration // janitor period (default 5m)
	SweepCron     string        // optional cron gate for sweeps
}

func (o CacheOptions) withDefaults() CacheOptions {
	if o.TTL <= 0 {
		o.TTL = time.Hour
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = 100
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = 100 << 20
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 5 * time.Minute
	}
	return o
}

type cacheEntry struct {
	context  models.SearchContext
	storedAt time.Time
	ttl      time.Duration
	bytes    int64
}

// MemoryCache is the in-process Cache. Keys are normalized queries, so
// lookups ignore case and extra whitespace. Recency is tracked with an
// explicit access list: index 0 is the least recently used entry, and
// both ceilings evict from there.
type MemoryCache struct {
	mu      sync.Mutex
	opts    CacheOptions
	entries map[string]*cacheEntry
	access  []string
	bytes   int64
	stats   *Stats
	logger  *log.Logger
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryCache builds a memory cache and starts its sweep janitor.
// stats may be nil.
func NewMemoryCache(opts CacheOptions, stats *Stats, logger *log.Logger) *MemoryCache {
	if logger == nil {
		logger = log.New(log.Writer(), "[CACHE] ", log.LstdFlags)
	}
	c := &MemoryCache{
		opts:    opts.withDefaults(),
		entries: make(map[string]*cacheEntry),
		stats:   stats,
		logger:  logger,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

// Get implements Cache. An expired entry is removed on the spot and
// reported as a miss.
func (c *MemoryCache) Get(_ context.Context, query string) (models.SearchContext, bool, error) {
	key := models.NormalizeQuery(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return models.SearchContext{}, false, nil
	}
	if c.now().Sub(entry.storedAt) > entry.ttl {
		c.removeLocked(key)
		if c.stats != nil {
			c.stats.RecordExpiry()
		}
		telemetry.CacheEvent(telemetry.CacheExpiry)
		return models.SearchContext{}, false, nil
	}
	c.touchLocked(key)
	return entry.context, true, nil
}

// Set implements Cache. The entry size is estimated from the JSON
// encoding; when either ceiling would be exceeded, least recently used
// entries are evicted until the new one fits.
func (c *MemoryCache) Set(_ context.Context, query string, sc models.SearchContext) error {
	key := models.NormalizeQuery(query)
	data, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	size := int64(len(data)) * 2

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.removeLocked(key)
	}
	for (len(c.entries) >= c.opts.MaxEntries || c.bytes+size > c.opts.MaxBytes) && len(c.access) > 0 {
		c.evictLocked()
	}
	c.entries[key] = &cacheEntry{
		context:  sc,
		storedAt: c.now(),
		ttl:      c.opts.TTL,
		bytes:    size,
	}
	c.bytes += size
	c.access = append(c.access, key)
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, query string) error {
	key := models.NormalizeQuery(query)
	c.mu.Lock()
	c.removeLocked(key)
	c.mu.Unlock()
	return nil
}

// Clear implements Cache.
func (c *MemoryCache) Clear(context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.access = nil
	c.bytes = 0
	c.mu.Unlock()
	return nil
}

// SetTTL implements Cache. Entries already stored keep the lifetime
// they were written with.
func (c *MemoryCache) SetTTL(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.opts.TTL = d
	c.mu.Unlock()
}

// Close stops the janitor. The cache itself stays usable.
func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

// Size reports the current entry count and estimated bytes.
func (c *MemoryCache) Size() (entries int, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), c.bytes
}

// Sweep removes every entry older than its TTL and returns how many
// were dropped.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := c.now()
	for key, entry := range c.entries {
		if now.Sub(entry.storedAt) > entry.ttl {
			c.removeLocked(key)
			if c.stats != nil {
				c.stats.RecordExpiry()
			}
			telemetry.CacheEvent(telemetry.CacheExpiry)
			removed++
		}
	}
	return removed
}

func (c *MemoryCache) janitor() {
	ticker := time.NewTicker(c.opts.SweepInterval)
	defer ticker.Stop()
	last := c.now()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := c.now()
			if !sweepDue(c.opts.SweepCron, last, now) {
				continue
			}
			last = now
			if removed := c.Sweep(); removed > 0 {
				c.logger.Printf("sweep removed %d expired entries", removed)
			}
		}
	}
}

// sweepDue gates ticker firings on an optional cron expression: the
// sweep runs when the spec's next activation since the previous sweep
// has passed. An empty or invalid spec means every tick is due.
func sweepDue(spec string, last, now time.Time) bool {
	if spec == "" {
		return true
	}
	expr, err := cronexpr.Parse(spec)
	if err != nil {
		return true
	}
	next := expr.Next(last)
	return !next.IsZero() && !next.After(now)
}

// touchLocked moves key to the most recently used end of the list.
func (c *MemoryCache) touchLocked(key string) {
	for i, k := range c.access {
		if k == key {
			c.access = append(append(c.access[:i], c.access[i+1:]...), key)
			return
		}
	}
}

// evictLocked drops the least recently used entry.
func (c *MemoryCache) evictLocked() {
	key := c.access[0]
	c.access = c.access[1:]
	if entry, ok := c.entries[key]; ok {
		c.bytes -= entry.bytes
		delete(c.entries, key)
		if c.stats != nil {
			c.stats.RecordEviction()
		}
		telemetry.CacheEvent(telemetry.CacheEviction)
	}
}

func (c *MemoryCache) removeLocked(key string) {
	entry, ok := c.entries[key]
	if !ok {
		return
	}
	c.bytes -= entry.bytes
	delete(c.entries, key)
	for i, k := range c.access {
		if k == key {
			c.access = append(c.access[:i], c.access[i+1:]...)
			break
		}
	}
}
