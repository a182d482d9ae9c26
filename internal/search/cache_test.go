package search

import (
	"context"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/OpenChatGit/autosearch/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// newTestCache builds a memory cache without the background janitor so
// tests control time completely.
func newTestCache(opts CacheOptions, stats *Stats, now func() time.Time) *MemoryCache {
	return &MemoryCache{
		opts:    opts.withDefaults(),
		entries: make(map[string]*cacheEntry),
		stats:   stats,
		logger:  testLogger(),
		now:     now,
		stop:    make(chan struct{}),
	}
}

func testContext(query, summary string) models.SearchContext {
	return models.SearchContext{
		Query:     query,
		Summary:   summary,
		Timestamp: time.Unix(1700000000, 0).UTC(),
	}
}

func TestMemoryCacheKeyNormalization(t *testing.T) {
	t.Parallel()

	c := newTestCache(CacheOptions{}, nil, time.Now)
	ctx := context.Background()

	if err := c.Set(ctx, "  Golang News  ", testContext("Golang News", "stored")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, ok, err := c.Get(ctx, "golang news")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !ok {
		t.Fatal("Get() with differently cased query missed, want hit")
	}
	if got.Summary != "stored" {
		t.Fatalf("Get() summary %q, want %q", got.Summary, "stored")
	}
}

func TestMemoryCacheExpiresOnRead(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	stats := &Stats{}
	c := newTestCache(CacheOptions{TTL: time.Hour}, stats, clock.Now)
	ctx := context.Background()

	if err := c.Set(ctx, "stale query", testContext("stale query", "old")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	clock.Advance(2 * time.Hour)

	if _, ok, _ := c.Get(ctx, "stale query"); ok {
		t.Fatal("Get() after TTL returned a hit, want miss")
	}
	if entries, _ := c.Size(); entries != 0 {
		t.Fatalf("expired entry still stored, got %d entries", entries)
	}
	if snap := stats.Snapshot(); snap.Expiries != 1 {
		t.Fatalf("Snapshot().Expiries = %d, want 1", snap.Expiries)
	}
}

func TestMemoryCacheEvictsLeastRecentlyAccessed(t *testing.T) {
	t.Parallel()

	stats := &Stats{}
	c := newTestCache(CacheOptions{MaxEntries: 3}, stats, time.Now)
	ctx := context.Background()

	for _, q := range []string{"alpha", "beta", "gamma"} {
		if err := c.Set(ctx, q, testContext(q, q)); err != nil {
			t.Fatalf("Set(%q) error: %v", q, err)
		}
	}
	// Touch alpha so beta becomes the oldest access.
	if _, ok, _ := c.Get(ctx, "alpha"); !ok {
		t.Fatal("Get(alpha) missed before eviction")
	}
	if err := c.Set(ctx, "delta", testContext("delta", "delta")); err != nil {
		t.Fatalf("Set(delta) error: %v", err)
	}

	if _, ok, _ := c.Get(ctx, "beta"); ok {
		t.Fatal("beta survived eviction, want it dropped as least recently used")
	}
	for _, q := range []string{"alpha", "gamma", "delta"} {
		if _, ok, _ := c.Get(ctx, q); !ok {
			t.Fatalf("Get(%q) missed, want hit", q)
		}
	}
	if snap := stats.Snapshot(); snap.Evictions != 1 {
		t.Fatalf("Snapshot().Evictions = %d, want 1", snap.Evictions)
	}
}

func TestMemoryCacheByteCeiling(t *testing.T) {
	t.Parallel()

	c := newTestCache(CacheOptions{MaxBytes: 2000}, nil, time.Now)
	ctx := context.Background()

	big := testContext("big", strings.Repeat("x", 600))
	if err := c.Set(ctx, "first", big); err != nil {
		t.Fatalf("Set(first) error: %v", err)
	}
	if err := c.Set(ctx, "second", big); err != nil {
		t.Fatalf("Set(second) error: %v", err)
	}

	if _, ok, _ := c.Get(ctx, "first"); ok {
		t.Fatal("first entry survived byte-ceiling eviction")
	}
	if _, ok, _ := c.Get(ctx, "second"); !ok {
		t.Fatal("second entry missing after insert")
	}
	if _, bytes := c.Size(); bytes > 2000 {
		t.Fatalf("cache holds %d estimated bytes, ceiling is 2000", bytes)
	}
}

func TestMemoryCacheUpdateReplacesEntry(t *testing.T) {
	t.Parallel()

	c := newTestCache(CacheOptions{}, nil, time.Now)
	ctx := context.Background()

	c.Set(ctx, "query", testContext("query", "v1"))
	c.Set(ctx, "Query", testContext("query", "v2"))

	got, ok, _ := c.Get(ctx, "query")
	if !ok {
		t.Fatal("Get() missed after update")
	}
	if got.Summary != "v2" {
		t.Fatalf("Get() summary %q, want %q", got.Summary, "v2")
	}
	if entries, _ := c.Size(); entries != 1 {
		t.Fatalf("update left %d entries, want 1", entries)
	}
}

func TestMemoryCacheSweep(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c := newTestCache(CacheOptions{TTL: time.Hour}, nil, clock.Now)
	ctx := context.Background()

	c.Set(ctx, "old", testContext("old", "old"))
	clock.Advance(30 * time.Minute)
	c.Set(ctx, "fresh", testContext("fresh", "fresh"))
	clock.Advance(45 * time.Minute)

	if removed := c.Sweep(); removed != 1 {
		t.Fatalf("Sweep() removed %d entries, want 1", removed)
	}
	if _, ok, _ := c.Get(ctx, "old"); ok {
		t.Fatal("swept entry still readable")
	}
	if _, ok, _ := c.Get(ctx, "fresh"); !ok {
		t.Fatal("fresh entry swept too early")
	}
}

func TestMemoryCacheClear(t *testing.T) {
	t.Parallel()

	c := newTestCache(CacheOptions{}, nil, time.Now)
	ctx := context.Background()

	c.Set(ctx, "one", testContext("one", "1"))
	c.Set(ctx, "two", testContext("two", "2"))
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	entries, bytes := c.Size()
	if entries != 0 || bytes != 0 {
		t.Fatalf("Size() after Clear = (%d, %d), want (0, 0)", entries, bytes)
	}
	if _, ok, _ := c.Get(ctx, "one"); ok {
		t.Fatal("Get() hit after Clear")
	}
}

func TestMemoryCacheJanitorSweeps(t *testing.T) {
	t.Parallel()

	c := NewMemoryCache(CacheOptions{TTL: time.Millisecond, SweepInterval: 5 * time.Millisecond}, nil, testLogger())
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "ephemeral", testContext("ephemeral", "x"))

	deadline := time.Now().Add(time.Second)
	for {
		if entries, _ := c.Size(); entries == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("janitor never removed the expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSweepDue(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 1, 1, 0, 1, 0, 0, time.UTC)
	tests := []struct {
		name string
		spec string
		last time.Time
		now  time.Time
		want bool
	}{
		{name: "empty spec always due", spec: "", last: base, now: base, want: true},
		{name: "before next activation", spec: "*/5 * * * *", last: base, now: base.Add(time.Minute), want: false},
		{name: "after next activation", spec: "*/5 * * * *", last: base, now: base.Add(5 * time.Minute), want: true},
		{name: "invalid spec falls back to due", spec: "not a cron", last: base, now: base, want: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := sweepDue(tt.spec, tt.last, tt.now); got != tt.want {
				t.Fatalf("sweepDue(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}
