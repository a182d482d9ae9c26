package autosearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/OpenChatGit/autosearch/internal/rag"
	"github.com/OpenChatGit/autosearch/internal/search"
	"github.com/OpenChatGit/autosearch/models"
	"github.com/OpenChatGit/autosearch/tools/web_scrape"
	"github.com/OpenChatGit/autosearch/tools/web_search"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// scriptedSearcher returns a fixed result set (or error) and records how
// it was called.
type scriptedSearcher struct {
	mu      sync.Mutex
	calls   int
	sawMax  int
	results []models.SearchResult
	err     error
}

func (s *scriptedSearcher) Search(ctx context.Context, query string, max int) ([]models.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.sawMax = max
	if s.err != nil {
		return nil, s.err
	}
	out := s.results
	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func (s *scriptedSearcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// cannedScraper serves page bodies from a map; unknown URLs fail.
type cannedScraper struct {
	pages map[string]string
}

func (s *cannedScraper) ScrapeOne(ctx context.Context, url string) web_scrape.Result {
	body, ok := s.pages[url]
	if !ok {
		return web_scrape.Result{URL: url, Error: "no such page"}
	}
	return web_scrape.Result{
		URL:     url,
		Success: true,
		Content: &models.ScrapedContent{
			URL:     url,
			Title:   "Page " + url,
			Content: body,
			Metadata: models.ContentMetadata{
				Domain:    models.Domain(url),
				WordCount: len(strings.Fields(body)),
			},
		},
	}
}

func (s *cannedScraper) ScrapeAll(ctx context.Context, urls []string) []web_scrape.Result {
	results := make([]web_scrape.Result, len(urls))
	for i, u := range urls {
		results[i] = s.ScrapeOne(ctx, u)
	}
	return results
}

// pageText produces prose that mentions the topic in every sentence, long
// enough to chunk.
func pageText(topic string, sentences int) string {
	templates := []string{
		"The %s shapes how modern services stay responsive under heavy load.",
		"Understanding the %s takes patient reading of the runtime sources.",
		"Most teams revisit the %s before every major production rollout.",
	}
	var b strings.Builder
	for i := 0; i < sentences; i++ {
		fmt.Fprintf(&b, templates[i%len(templates)], topic)
		b.WriteString(" ")
	}
	return strings.TrimSpace(b.String())
}

func newTestManager(t *testing.T, searcher web_search.Searcher, scraper web_scrape.Scraper) *Manager {
	t.Helper()
	proc, err := rag.NewProcessor(rag.DefaultConfig(), discardLogger())
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}
	stats := &search.Stats{}
	orch, err := search.NewOrchestrator(search.Deps{
		Searcher: searcher,
		Acquirer: search.NewAcquirer(scraper, 250*time.Millisecond, discardLogger()),
		RAG:      proc,
		Cache:    search.NewMemoryCache(search.CacheOptions{}, stats, discardLogger()),
		Stats:    stats,
		Logger:   discardLogger(),
	}, search.Options{})
	if err != nil {
		t.Fatalf("NewOrchestrator() error: %v", err)
	}
	t.Cleanup(func() { orch.Close() })
	return New(orch, DefaultConfig(), discardLogger())
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]EventType, len(r.events))
	for i, ev := range r.events {
		types[i] = ev.Type
	}
	return types
}

func (r *eventRecorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}
	}
	return r.events[len(r.events)-1]
}

func assertEventTypes(t *testing.T, got []EventType, want ...EventType) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("event sequence %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d is %s, want %s (full sequence %v)", i, got[i], want[i], got)
		}
	}
}

func TestPerformSearchHappyPath(t *testing.T) {
	t.Parallel()

	urlA := "https://go.dev/blog/gc"
	urlB := "https://tip.golang.org/doc/gc-guide"
	searcher := &scriptedSearcher{results: []models.SearchResult{
		{Title: "GC blog", URL: urlA, Rank: 1},
		{Title: "GC guide", URL: urlB, Rank: 2},
	}}
	scraper := &cannedScraper{pages: map[string]string{
		urlA: pageText("golang garbage collector", 12),
		urlB: pageText("golang garbage collector pacing", 12),
	}}
	m := newTestManager(t, searcher, scraper)

	rec := &eventRecorder{}
	m.Events().OnAny(rec.record)

	sc := m.PerformSearch(context.Background(), "How does the golang garbage collector work?", nil)

	if sc.IsEmpty() {
		t.Fatal("PerformSearch() returned an empty context on the happy path")
	}
	if want := "golang garbage collector work"; sc.Query != want {
		t.Fatalf("context query %q, want optimized %q", sc.Query, want)
	}
	if len(sc.Sources) == 0 {
		t.Fatal("context carries no sources")
	}
	if !strings.Contains(sc.Summary, "relevant sections") {
		t.Fatalf("summary %q does not describe the selection", sc.Summary)
	}

	assertEventTypes(t, rec.types(),
		EventSearchStarted,
		EventSearchResultsFound,
		EventScrapingStarted,
		EventScrapingCompleted,
		EventProcessingStarted,
		EventProcessingCompleted,
		EventSearchCompleted,
	)

	first := rec.events[0]
	if first.SearchID == "" {
		t.Fatal("events carry no search ID")
	}
	for _, ev := range rec.events {
		if ev.SearchID != first.SearchID {
			t.Fatalf("event %s has search ID %q, want %q", ev.Type, ev.SearchID, first.SearchID)
		}
	}
	done, ok := rec.last().Payload.(SearchCompletedPayload)
	if !ok {
		t.Fatalf("final payload is %T", rec.last().Payload)
	}
	if done.Cached {
		t.Fatal("fresh search reported as cached")
	}
	if done.Chunks != len(sc.Chunks) || done.Sources != len(sc.Sources) {
		t.Fatalf("completion payload %+v does not match context (%d chunks, %d sources)",
			done, len(sc.Chunks), len(sc.Sources))
	}

	if got := m.Orchestrator().StatsSnapshot().Searches; got != 1 {
		t.Fatalf("recorded %d searches, want 1", got)
	}
}

func TestPerformSearchServesCachedContext(t *testing.T) {
	t.Parallel()

	url := "https://go.dev/blog/gc"
	searcher := &scriptedSearcher{results: []models.SearchResult{{Title: "GC", URL: url}}}
	scraper := &cannedScraper{pages: map[string]string{url: pageText("golang garbage collector", 12)}}
	m := newTestManager(t, searcher, scraper)

	query := "How does the golang garbage collector work?"
	firstRun := m.PerformSearch(context.Background(), query, nil)

	rec := &eventRecorder{}
	m.Events().OnAny(rec.record)
	secondRun := m.PerformSearch(context.Background(), query, nil)

	assertEventTypes(t, rec.types(), EventSearchStarted, EventSearchCompleted)
	done, ok := rec.last().Payload.(SearchCompletedPayload)
	if !ok || !done.Cached {
		t.Fatalf("cache hit payload %+v, want Cached=true", rec.last().Payload)
	}
	if searcher.callCount() != 1 {
		t.Fatalf("searcher called %d times, want 1 (second run should hit the cache)", searcher.callCount())
	}
	if secondRun.Summary != firstRun.Summary || len(secondRun.Chunks) != len(firstRun.Chunks) {
		t.Fatal("cached context differs from the stored one")
	}
}

func TestPerformSearchForceBypassesCache(t *testing.T) {
	t.Parallel()

	url := "https://go.dev/blog/gc"
	searcher := &scriptedSearcher{results: []models.SearchResult{{Title: "GC", URL: url}}}
	scraper := &cannedScraper{pages: map[string]string{url: pageText("golang garbage collector", 12)}}
	m := newTestManager(t, searcher, scraper)

	query := "How does the golang garbage collector work?"
	m.PerformSearch(context.Background(), query, nil)

	rec := &eventRecorder{}
	m.Events().OnAny(rec.record)
	m.PerformSearch(context.Background(), query, &SearchOptions{Force: true})

	if searcher.callCount() != 2 {
		t.Fatalf("searcher called %d times, want 2 (force should bypass the cache)", searcher.callCount())
	}
	types := rec.types()
	if len(types) != 7 || types[1] != EventSearchResultsFound {
		t.Fatalf("forced run emitted %v, want the full pipeline sequence", types)
	}
}

func TestPerformSearchMaxResultsOverride(t *testing.T) {
	t.Parallel()

	url := "https://go.dev/blog/gc"
	searcher := &scriptedSearcher{results: []models.SearchResult{{Title: "GC", URL: url}}}
	scraper := &cannedScraper{pages: map[string]string{url: pageText("golang garbage collector", 12)}}
	m := newTestManager(t, searcher, scraper)

	m.PerformSearch(context.Background(), "How does the golang garbage collector work?", &SearchOptions{MaxResults: 2})

	if searcher.sawMax != 2 {
		t.Fatalf("searcher asked for %d results, want 2", searcher.sawMax)
	}
}

func TestPerformSearchFailureYieldsEmptyContext(t *testing.T) {
	t.Parallel()

	searcher := &scriptedSearcher{err: models.NewParseError(models.PhaseSearch, errors.New("malformed result page"))}
	m := newTestManager(t, searcher, &cannedScraper{})

	rec := &eventRecorder{}
	m.Events().OnAny(rec.record)
	sc := m.PerformSearch(context.Background(), "latest golang compiler release", nil)

	assertEventTypes(t, rec.types(), EventSearchStarted, EventSearchError)
	if !sc.IsEmpty() {
		t.Fatal("failed search returned a non-empty context")
	}
	if sc.Chunks == nil || sc.Sources == nil {
		t.Fatal("empty context must carry empty, non-nil slices")
	}
	if !strings.Contains(sc.Summary, "Web search failed") {
		t.Fatalf("summary %q does not explain the failure", sc.Summary)
	}
	errPayload, ok := rec.last().Payload.(SearchErrorPayload)
	if !ok {
		t.Fatalf("error payload is %T", rec.last().Payload)
	}
	if errPayload.Phase != models.PhaseSearch {
		t.Fatalf("error phase %q, want %q", errPayload.Phase, models.PhaseSearch)
	}
}

func TestPerformSearchNoResults(t *testing.T) {
	t.Parallel()

	searcher := &scriptedSearcher{}
	m := newTestManager(t, searcher, &cannedScraper{})

	rec := &eventRecorder{}
	m.Events().OnAny(rec.record)
	sc := m.PerformSearch(context.Background(), "latest golang compiler release", nil)

	assertEventTypes(t, rec.types(), EventSearchStarted, EventSearchError)
	if !sc.IsEmpty() {
		t.Fatal("no-result search returned a non-empty context")
	}
	if !strings.Contains(sc.Summary, "no results") {
		t.Fatalf("summary %q does not mention the empty result set", sc.Summary)
	}
}

func TestPerformSearchAllPagesUnreadable(t *testing.T) {
	t.Parallel()

	searcher := &scriptedSearcher{results: []models.SearchResult{
		{Title: "A", URL: "https://example.com/a"},
		{Title: "B", URL: "https://example.org/b"},
	}}
	m := newTestManager(t, searcher, &cannedScraper{})

	rec := &eventRecorder{}
	m.Events().OnAny(rec.record)
	sc := m.PerformSearch(context.Background(), "latest golang compiler release", nil)

	assertEventTypes(t, rec.types(),
		EventSearchStarted,
		EventSearchResultsFound,
		EventScrapingStarted,
		EventScrapingCompleted,
		EventSearchError,
	)
	if !sc.IsEmpty() {
		t.Fatal("unreadable pages returned a non-empty context")
	}
	if !strings.Contains(sc.Summary, "none of the pages could be read") {
		t.Fatalf("summary %q does not explain the scrape failure", sc.Summary)
	}

	var completed ScrapingCompletedPayload
	for _, ev := range rec.events {
		if ev.Type == EventScrapingCompleted {
			completed = ev.Payload.(ScrapingCompletedPayload)
		}
	}
	if completed.Succeeded != 0 || completed.Failed != 2 {
		t.Fatalf("scraping_completed payload %+v, want 0 succeeded / 2 failed", completed)
	}
}

func TestInjectContextAssemblesPrompt(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &scriptedSearcher{}, &cannedScraper{})
	sc := models.SearchContext{
		Query: "go generics",
		Chunks: []models.ContentChunk{{
			Content:        "Type parameters arrived in Go 1.18 and changed how libraries are designed.",
			Source:         "https://go.dev/blog/intro-generics",
			RelevanceScore: 0.9,
			Metadata:       models.ChunkMetadata{Domain: "go.dev"},
		}},
		Sources: []models.Source{{
			URL:    "https://go.dev/blog/intro-generics",
			Title:  "An Introduction To Generics",
			Domain: "go.dev",
		}},
		Summary:   "Found 1 relevant sections from 1 sources.",
		Timestamp: time.Now(),
	}

	got := m.InjectContext("What changed with generics?", sc)

	if !strings.HasPrefix(got, "You have access to current web search results") {
		t.Fatalf("prompt does not open with the preamble: %q", got[:min(len(got), 80)])
	}
	if !strings.HasSuffix(got, "User question: What changed with generics?") {
		t.Fatalf("prompt does not end with the user question: %q", got[max(0, len(got)-80):])
	}
	if !strings.Contains(got, "## Source 1: An Introduction To Generics (go.dev)") {
		t.Fatal("prompt is missing the rendered source header")
	}
	if !strings.Contains(got, "【Source") {
		t.Fatal("prompt is missing the citation instructions")
	}
	if !strings.Contains(got, "Sources used:") || !strings.Contains(got, "[1] https://go.dev/blog/intro-generics") {
		t.Fatal("prompt is missing the source attribution block")
	}
	if m.Orchestrator().Registry().Len() != 1 {
		t.Fatalf("registry holds %d sources, want 1", m.Orchestrator().Registry().Len())
	}
}

func TestInjectContextEmptyContextPassesThrough(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &scriptedSearcher{}, &cannedScraper{})
	msg := "Just a chat message"
	if got := m.InjectContext(msg, models.SearchContext{}); got != msg {
		t.Fatalf("InjectContext() on empty context = %q, want the message unchanged", got)
	}
}

func TestInjectContextJSONStaysMachineReadable(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &scriptedSearcher{}, &cannedScraper{})
	format := "json"
	if err := m.Configure(ConfigUpdate{OutputFormat: &format}); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	sc := models.SearchContext{
		Query:   "go generics",
		Chunks:  []models.ContentChunk{{Content: "Type parameters arrived in Go 1.18.", Source: "https://go.dev/blog/intro-generics"}},
		Sources: []models.Source{{URL: "https://go.dev/blog/intro-generics", Domain: "go.dev"}},
	}

	got := m.InjectContext("What changed?", sc)

	if strings.Contains(got, "Sources used:") {
		t.Fatal("JSON output must not carry the attribution block")
	}
	if !strings.Contains(got, `"query"`) {
		t.Fatal("JSON output is missing the serialized context")
	}
}

func TestConfigure(t *testing.T) {
	t.Parallel()

	boolPtr := func(b bool) *bool { return &b }
	intPtr := func(n int) *int { return &n }
	strPtr := func(s string) *string { return &s }
	durPtr := func(d time.Duration) *time.Duration { return &d }

	tests := []struct {
		name    string
		update  ConfigUpdate
		wantErr bool
	}{
		{name: "disable", update: ConfigUpdate{Enabled: boolPtr(false)}},
		{name: "valid max results", update: ConfigUpdate{MaxResults: intPtr(8)}},
		{name: "zero max results", update: ConfigUpdate{MaxResults: intPtr(0)}, wantErr: true},
		{name: "negative timeout", update: ConfigUpdate{Timeout: durPtr(-time.Second)}, wantErr: true},
		{name: "valid format", update: ConfigUpdate{OutputFormat: strPtr("compact")}},
		{name: "unknown format", update: ConfigUpdate{OutputFormat: strPtr("xml")}, wantErr: true},
		{name: "tiny context length", update: ConfigUpdate{MaxContextLength: intPtr(50)}, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := newTestManager(t, &scriptedSearcher{}, &cannedScraper{})
			before := m.Config()
			err := m.Configure(tt.update)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Configure() accepted an invalid update")
				}
				if m.Config() != before {
					t.Fatal("rejected update still changed the configuration")
				}
				return
			}
			if err != nil {
				t.Fatalf("Configure() error: %v", err)
			}
		})
	}
}

func TestConfigurePartialUpdateKeepsOtherFields(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &scriptedSearcher{}, &cannedScraper{})
	n := 9
	if err := m.Configure(ConfigUpdate{MaxResults: &n}); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}

	cfg := m.Config()
	def := DefaultConfig()
	if cfg.MaxResults != 9 {
		t.Fatalf("MaxResults = %d, want 9", cfg.MaxResults)
	}
	if cfg.Enabled != def.Enabled || cfg.Timeout != def.Timeout || cfg.OutputFormat != def.OutputFormat {
		t.Fatalf("partial update disturbed unrelated fields: %+v", cfg)
	}
}

func TestManagerShouldSearchHonorsEnabled(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &scriptedSearcher{}, &cannedScraper{})
	query := "What is the latest Go release in 2025?"

	if !m.ShouldSearch(query, nil) {
		t.Fatalf("ShouldSearch(%q) = false with the feature enabled", query)
	}
	off := false
	if err := m.Configure(ConfigUpdate{Enabled: &off}); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	if m.ShouldSearch(query, nil) {
		t.Fatalf("ShouldSearch(%q) = true with the feature disabled", query)
	}
}
