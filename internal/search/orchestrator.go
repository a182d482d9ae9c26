// Package search coordinates the pipeline stages behind one façade:
// cached context lookup, retried engine search, failure-tolerant content
// acquisition and relevance processing. The auto-search manager drives
// these stages and decorates them with progress events.
package search

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/OpenChatGit/autosearch/internal/rag"
	"github.com/OpenChatGit/autosearch/internal/registry"
	"github.com/OpenChatGit/autosearch/internal/telemetry"
	"github.com/OpenChatGit/autosearch/models"
	"github.com/OpenChatGit/autosearch/tools/web_scrape"
	"github.com/OpenChatGit/autosearch/tools/web_search"
)

// Options bundles the orchestrator knobs.
type Options struct {
	MaxResults    int           // results requested per search (default 5)
	MaxRetries    int           // retries around the search call (default 3)
	SearchTimeout time.Duration // per-attempt search deadline (default 10s)
}

// Deps are the collaborators the orchestrator is assembled from.
// Searcher and Acquirer are required; the rest fall back to working
// defaults.
type Deps struct {
	Searcher web_search.Searcher
	Acquirer *Acquirer
	RAG      *rag.Processor
	Registry *registry.SourceRegistry
	Cache    Cache
	Stats    *Stats
	Logger   *log.Logger
}

// Orchestrator owns the cache, the citation registry and the stats, and
// exposes the pipeline stages to callers.
type Orchestrator struct {
	searcher web_search.Searcher
	acquirer *Acquirer
	rag      *rag.Processor
	registry *registry.SourceRegistry
	cache    Cache
	stats    *Stats
	opts     Options
	logger   *log.Logger

	mu    sync.Mutex
	retry RetryOptions
}

// NewOrchestrator validates the dependencies and fills in defaults.
func NewOrchestrator(deps Deps, opts Options) (*Orchestrator, error) {
	if deps.Searcher == nil {
		return nil, errors.New("search: orchestrator requires a searcher")
	}
	if deps.Acquirer == nil {
		return nil, errors.New("search: orchestrator requires an acquirer")
	}
	if deps.Logger == nil {
		deps.Logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	if deps.RAG == nil {
		proc, err := rag.NewProcessor(rag.DefaultConfig(), nil)
		if err != nil {
			return nil, err
		}
		deps.RAG = proc
	}
	if deps.Registry == nil {
		deps.Registry = registry.New()
	}
	if deps.Stats == nil {
		deps.Stats = &Stats{}
	}
	if deps.Cache == nil {
		deps.Cache = NewMemoryCache(CacheOptions{}, deps.Stats, nil)
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 5
	}
	return &Orchestrator{
		searcher: deps.Searcher,
		acquirer: deps.Acquirer,
		rag:      deps.RAG,
		registry: deps.Registry,
		cache:    deps.Cache,
		stats:    deps.Stats,
		opts:     opts,
		retry: RetryOptions{
			MaxRetries: opts.MaxRetries,
			Timeout:    opts.SearchTimeout,
			Phase:      models.PhaseSearch,
		},
		logger: deps.Logger,
	}, nil
}

// Search runs the query through the engines, retrying transient
// failures with exponential backoff. max <= 0 falls back to the
// configured default. Latency is recorded whether or not the search
// succeeds.
func (o *Orchestrator) Search(ctx context.Context, query string, max int) ([]models.SearchResult, error) {
	if max <= 0 {
		max = o.opts.MaxResults
	}
	o.mu.Lock()
	ropts := o.retry
	o.mu.Unlock()

	start := time.Now()
	results, err := ExecuteWithRetry(ctx, "search", ropts, o.logger, func(ctx context.Context) ([]models.SearchResult, error) {
		return o.searcher.Search(ctx, query, max)
	})
	elapsed := time.Since(start)
	o.stats.RecordSearch(elapsed)
	telemetry.ObserveSearch(elapsed, err == nil)
	return results, err
}

// SetSearchTimeout adjusts the per-attempt search deadline at runtime.
// Non-positive values are ignored.
func (o *Orchestrator) SetSearchTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	o.mu.Lock()
	o.retry.Timeout = d
	o.mu.Unlock()
}

// Scrape fetches the result pages as failure-tolerant records.
func (o *Orchestrator) Scrape(ctx context.Context, urls []string) []web_scrape.Result {
	results := o.acquirer.AcquireAll(ctx, urls)
	for _, r := range results {
		telemetry.ScrapeResult(r.Success)
	}
	return results
}

// Process selects the most relevant chunks for the query.
func (o *Orchestrator) Process(query string, pages []*models.ScrapedContent) models.ProcessedContext {
	return o.rag.Process(query, pages)
}

// GetCached looks the query up in the cache. Backend errors are logged
// and treated as a miss so a broken cache never breaks a search.
func (o *Orchestrator) GetCached(ctx context.Context, query string) (models.SearchContext, bool) {
	sc, ok, err := o.cache.Get(ctx, query)
	if err != nil {
		o.logger.Printf("cache get failed: %v", err)
	}
	if ok {
		o.stats.RecordHit()
		telemetry.CacheEvent(telemetry.CacheHit)
	} else {
		o.stats.RecordMiss()
		telemetry.CacheEvent(telemetry.CacheMiss)
	}
	return sc, ok
}

// StoreContext caches an assembled context under its query.
func (o *Orchestrator) StoreContext(ctx context.Context, query string, sc models.SearchContext) {
	if err := o.cache.Set(ctx, query, sc); err != nil {
		o.logger.Printf("cache set failed: %v", err)
	}
}

// ClearCache drops every cached context.
func (o *Orchestrator) ClearCache(ctx context.Context) error {
	return o.cache.Clear(ctx)
}

// SetCacheTTL adjusts the lifetime for contexts cached from now on.
func (o *Orchestrator) SetCacheTTL(d time.Duration) {
	o.cache.SetTTL(d)
}

// Registry exposes the citation source registry.
func (o *Orchestrator) Registry() *registry.SourceRegistry {
	return o.registry
}

// StatsSnapshot returns the current pipeline counters.
func (o *Orchestrator) StatsSnapshot() Snapshot {
	return o.stats.Snapshot()
}

// ConfigureRAG swaps in a new processing config after validating it.
func (o *Orchestrator) ConfigureRAG(cfg rag.Config) error {
	return o.rag.Configure(cfg)
}

// RAGConfig returns the active processing config.
func (o *Orchestrator) RAGConfig() rag.Config {
	return o.rag.Config()
}

// Close releases cache resources.
func (o *Orchestrator) Close() error {
	return o.cache.Close()
}
