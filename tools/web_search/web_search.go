// Package web_search executes rate-limited queries against keyless HTML
// search engines and parses the returned markup with per-field selector
// fallbacks. The actual HTTP exchange is behind the PageFetcher
// capability so the parsing and failover logic stays testable offline.
package web_search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"

	"github.com/OpenChatGit/autosearch/models"
)

// Searcher is the surface the orchestrator consumes.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]models.SearchResult, error)
}

// PageRequest describes one exchange with a search engine.
type PageRequest struct {
	URL     string
	Method  string // GET when empty
	Form    url.Values
	Headers map[string]string
}

// PageFetcher is the page-fetch capability: it performs the raw request
// and returns the response body as HTML.
type PageFetcher interface {
	FetchPage(ctx context.Context, req PageRequest) (string, error)
}

type EngineName string

const (
	EngineDuckDuckGo     EngineName = "duckduckgo"
	EngineDuckDuckGoLite EngineName = "duckduckgo_lite"
)

var ErrUnsupportedEngine = errors.New("web_search: unsupported engine")

// Config selects the engines and the per-engine request budget.
type Config struct {
	Engines           []string
	RequestsPerMinute int
}

// New builds one rate-limited executor per configured engine and wraps
// them in a round-robin failover. Unknown engine names fail
// construction.
func New(cfg Config, fetcher PageFetcher, logger *log.Logger) (Searcher, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	names := cfg.Engines
	if len(names) == 0 {
		names = []string{string(EngineDuckDuckGo)}
	}
	execs := make([]EngineSearcher, 0, len(names))
	for _, name := range names {
		var engine Engine
		switch EngineName(name) {
		case EngineDuckDuckGo:
			engine = DuckDuckGo()
		case EngineDuckDuckGoLite:
			engine = DuckDuckGoLite()
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedEngine, name)
		}
		execs = append(execs, NewExecutor(engine, fetcher, cfg.RequestsPerMinute, logger))
	}
	return NewFailover(execs, logger), nil
}
