// Package telemetry holds the Prometheus collectors for the search
// pipeline. Collectors register lazily into the default registry, which
// the HTTP server exposes on /metrics.
package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cache event labels.
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheEviction = "eviction"
	CacheExpiry   = "expiry"
)

var (
	once sync.Once

	searchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autosearch_searches_total",
			Help: "Search executions by outcome.",
		},
		[]string{"outcome"},
	)
	searchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "autosearch_search_duration_seconds",
			Help:    "End-to-end search latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	cacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autosearch_cache_events_total",
			Help: "Cache activity by event type.",
		},
		[]string{"event"},
	)
	scrapeResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autosearch_scrape_results_total",
			Help: "Scraped pages by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register installs the collectors into the default registry. Safe to
// call more than once; every recording helper calls it first.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(searchesTotal, searchDuration, cacheEvents, scrapeResults)
	})
}

// ObserveSearch records one search execution and its latency.
func ObserveSearch(d time.Duration, ok bool) {
	Register()
	searchesTotal.WithLabelValues(outcome(ok)).Inc()
	searchDuration.Observe(d.Seconds())
}

// CacheEvent counts a cache hit, miss, eviction or expiry.
func CacheEvent(event string) {
	Register()
	cacheEvents.WithLabelValues(event).Inc()
}

// ScrapeResult counts one scraped URL by outcome.
func ScrapeResult(ok bool) {
	Register()
	scrapeResults.WithLabelValues(outcome(ok)).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
