// Package autosearch decides when a chat message needs a web search,
// distills it into a search query, runs the pipeline and folds the
// outcome back into the conversation as an enriched prompt. Progress is
// published on an event stream so a UI can follow along.
package autosearch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/OpenChatGit/autosearch/internal/formatter"
	"github.com/OpenChatGit/autosearch/internal/helpers"
	"github.com/OpenChatGit/autosearch/internal/registry"
	"github.com/OpenChatGit/autosearch/internal/search"
	"github.com/OpenChatGit/autosearch/models"
)

// contextPreamble introduces the injected search context to the model.
const contextPreamble = "You have access to current web search results gathered for the user's question. " +
	"Use this information to give an accurate, up-to-date answer. " +
	"If the results do not cover the question, say so instead of guessing."

// Turn is one prior conversation message the classifier inspects.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Config holds the manager's runtime options.
type Config struct {
	Enabled          bool             `json:"enabled"`
	MaxResults       int              `json:"max_results"`
	Timeout          time.Duration    `json:"timeout"`
	OutputFormat     formatter.Format `json:"output_format"`
	MaxContextLength int              `json:"max_context_length"`
}

// DefaultConfig returns the settings used until Configure changes them.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		MaxResults:       5,
		Timeout:          10 * time.Second,
		OutputFormat:     formatter.FormatVerbose,
		MaxContextLength: 4000,
	}
}

// ConfigUpdate is a partial reconfiguration; nil fields keep their
// current value. An invalid field rejects the whole update.
type ConfigUpdate struct {
	Enabled          *bool          `json:"enabled,omitempty"`
	MaxResults       *int           `json:"max_results,omitempty"`
	Timeout          *time.Duration `json:"timeout,omitempty"`
	OutputFormat     *string        `json:"output_format,omitempty"`
	MaxContextLength *int           `json:"max_context_length,omitempty"`
}

// SearchOptions tweaks a single PerformSearch call.
type SearchOptions struct {
	MaxResults int  // overrides the configured default when > 0
	Force      bool // bypass the cache for this call
}

// Manager is the chat flow's entry point to the search pipeline.
type Manager struct {
	mu     sync.RWMutex
	cfg    Config
	orch   *search.Orchestrator
	events *Emitter
	logger *log.Logger
	now    func() time.Time
}

// New wires a manager to an orchestrator.
func New(orch *search.Orchestrator, cfg Config, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(log.Writer(), "[AUTOSEARCH] ", log.LstdFlags)
	}
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	m := &Manager{
		cfg:    cfg,
		orch:   orch,
		events: NewEmitter(logger),
		logger: logger,
		now:    time.Now,
	}
	m.orch.SetSearchTimeout(cfg.Timeout)
	return m
}

// Config returns a copy of the active configuration.
func (m *Manager) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Configure applies a partial update. Invalid values reject the update
// and leave the previous configuration in place.
func (m *Manager) Configure(update ConfigUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.cfg
	if update.Enabled != nil {
		next.Enabled = *update.Enabled
	}
	if update.MaxResults != nil {
		if *update.MaxResults < 1 {
			return fmt.Errorf("autosearch: max results must be at least 1, got %d", *update.MaxResults)
		}
		next.MaxResults = *update.MaxResults
	}
	if update.Timeout != nil {
		if *update.Timeout <= 0 {
			return fmt.Errorf("autosearch: timeout must be positive, got %s", *update.Timeout)
		}
		next.Timeout = *update.Timeout
	}
	if update.OutputFormat != nil {
		format, err := formatter.ParseFormat(*update.OutputFormat)
		if err != nil {
			return err
		}
		next.OutputFormat = format
	}
	if update.MaxContextLength != nil {
		if *update.MaxContextLength < 100 {
			return fmt.Errorf("autosearch: max context length must be at least 100, got %d", *update.MaxContextLength)
		}
		next.MaxContextLength = *update.MaxContextLength
	}

	m.cfg = next
	m.orch.SetSearchTimeout(next.Timeout)
	return nil
}

// Events exposes the progress stream for subscriptions.
func (m *Manager) Events() *Emitter {
	return m.events
}

// Orchestrator exposes the underlying pipeline, mainly for source
// registry access and stats.
func (m *Manager) Orchestrator() *search.Orchestrator {
	return m.orch
}

// ShouldSearch reports whether the query warrants a web search given
// the recent conversation. It never fails.
func (m *Manager) ShouldSearch(query string, history []Turn) bool {
	return shouldSearch(query, history, m.Config().Enabled, m.now())
}

// ExtractSearchQuery turns a conversational message into search terms.
func (m *Manager) ExtractSearchQuery(query string) string {
	return extractSearchQuery(query, m.now())
}

// PerformSearch runs the whole pipeline for one query and always
// returns a usable SearchContext: every failure collapses into an empty
// context whose Summary explains what happened, paired with a
// search_error event. Callers never need search-specific error
// handling.
func (m *Manager) PerformSearch(ctx context.Context, query string, opts *SearchOptions) models.SearchContext {
	cfg := m.Config()
	searchID := uuid.NewString()
	start := m.now()

	maxResults := cfg.MaxResults
	force := false
	if opts != nil {
		if opts.MaxResults > 0 {
			maxResults = opts.MaxResults
		}
		force = opts.Force
	}

	optimized := extractSearchQuery(query, start)
	m.emit(searchID, EventSearchStarted, SearchStartedPayload{Query: query, Optimized: optimized})

	if !force {
		if cached, ok := m.orch.GetCached(ctx, optimized); ok {
			m.emit(searchID, EventSearchCompleted, SearchCompletedPayload{
				Query:   optimized,
				Chunks:  len(cached.Chunks),
				Sources: len(cached.Sources),
				Cached:  true,
			})
			return cached
		}
	}

	results, err := m.orch.Search(ctx, optimized, maxResults)
	if err != nil {
		m.emit(searchID, EventSearchError, SearchErrorPayload{
			Query: optimized,
			Phase: phaseOf(err, models.PhaseSearch),
			Error: err.Error(),
		})
		return m.emptyContext(optimized, "Web search failed: "+err.Error())
	}
	if len(results) == 0 {
		m.emit(searchID, EventSearchError, SearchErrorPayload{
			Query: optimized,
			Phase: models.PhaseSearch,
			Error: "no results",
		})
		return m.emptyContext(optimized, fmt.Sprintf("Web search found no results for %q.", optimized))
	}
	m.emit(searchID, EventSearchResultsFound, SearchResultsFoundPayload{Query: optimized, Results: len(results)})

	urls := make([]string, 0, len(results))
	for _, r := range results {
		if r.URL != "" {
			urls = append(urls, r.URL)
		}
	}
	urls = helpers.DedupURLs(urls)

	m.emit(searchID, EventScrapingStarted, ScrapingStartedPayload{URLs: len(urls)})
	records := m.orch.Scrape(ctx, urls)
	pages := search.Usable(records)
	m.emit(searchID, EventScrapingCompleted, ScrapingCompletedPayload{
		Succeeded: len(pages),
		Failed:    len(records) - len(pages),
	})
	if len(pages) == 0 {
		m.emit(searchID, EventSearchError, SearchErrorPayload{
			Query: optimized,
			Phase: models.PhaseScraping,
			Error: "no scrapeable pages",
		})
		return m.emptyContext(optimized, "Web search found results, but none of the pages could be read.")
	}

	m.emit(searchID, EventProcessingStarted, ProcessingStartedPayload{Pages: len(pages)})
	processed := m.orch.Process(optimized, pages)
	m.emit(searchID, EventProcessingCompleted, ProcessingCompletedPayload{
		TotalChunks:    processed.TotalChunks,
		SelectedChunks: processed.SelectedChunks,
	})

	sc := buildSearchContext(optimized, processed, pages, m.now())
	m.orch.StoreContext(ctx, optimized, sc)
	m.emit(searchID, EventSearchCompleted, SearchCompletedPayload{
		Query:     optimized,
		Chunks:    len(sc.Chunks),
		Sources:   len(sc.Sources),
		ElapsedMS: m.now().Sub(start).Milliseconds(),
	})
	return sc
}

// InjectContext renders the search context with citation markers,
// bounds it to the configured length, appends source attribution and
// wraps everything with the system preamble and the original question
// into the one string the model receives. An empty context returns the
// message unchanged.
func (m *Manager) InjectContext(message string, sc models.SearchContext) string {
	if sc.IsEmpty() {
		return message
	}
	cfg := m.Config()

	rendered, err := formatter.RenderWithCitations(sc, cfg.OutputFormat, m.orch.Registry())
	if err != nil {
		m.logger.Printf("render context: %v", err)
		return message
	}
	rendered = formatter.OptimizeLength(rendered, cfg.MaxContextLength)
	if cfg.OutputFormat != formatter.FormatJSON {
		rendered += sourceAttribution(sc, m.orch.Registry())
	}

	var b strings.Builder
	b.WriteString(contextPreamble)
	b.WriteString("\n\n")
	b.WriteString(rendered)
	b.WriteString("\n\n---\n\nUser question: ")
	b.WriteString(message)
	return b.String()
}

func (m *Manager) emit(searchID string, t EventType, payload any) {
	m.events.Emit(Event{Type: t, SearchID: searchID, Timestamp: m.now(), Payload: payload})
}

func (m *Manager) emptyContext(query, note string) models.SearchContext {
	return models.SearchContext{
		Query:     query,
		Chunks:    []models.ContentChunk{},
		Sources:   []models.Source{},
		Summary:   note,
		Timestamp: m.now(),
	}
}

// buildSearchContext assembles the cacheable result: the selected
// chunks plus one Source entry per distinct contributing URL, in chunk
// order.
func buildSearchContext(query string, processed models.ProcessedContext, pages []*models.ScrapedContent, ts time.Time) models.SearchContext {
	pageByURL := make(map[string]*models.ScrapedContent, len(pages))
	for _, p := range pages {
		pageByURL[p.URL] = p
	}

	seen := make(map[string]struct{}, len(pages))
	sources := make([]models.Source, 0, len(pages))
	for _, chunk := range processed.Chunks {
		if _, dup := seen[chunk.Source]; dup {
			continue
		}
		seen[chunk.Source] = struct{}{}
		src := models.Source{
			URL:           chunk.Source,
			Domain:        chunk.Metadata.Domain,
			PublishedDate: chunk.Metadata.PublishedDate,
		}
		if page, ok := pageByURL[chunk.Source]; ok {
			src.Title = page.Title
		}
		sources = append(sources, src)
	}

	return models.SearchContext{
		Query:     query,
		Chunks:    processed.Chunks,
		Sources:   sources,
		Summary:   fmt.Sprintf("Found %d relevant sections from %d sources.", len(processed.Chunks), len(sources)),
		Timestamp: ts,
	}
}

// sourceAttribution lists the sources with their stable citation IDs.
func sourceAttribution(sc models.SearchContext, reg *registry.SourceRegistry) string {
	if len(sc.Sources) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nSources used:")
	for _, src := range sc.Sources {
		id := reg.Register(src.URL, src.Title, src.Domain)
		fmt.Fprintf(&b, "\n[%d] %s", id, src.URL)
	}
	return b.String()
}

func phaseOf(err error, fallback string) string {
	if phase := models.PhaseOf(err); phase != "" {
		return phase
	}
	return fallback
}
