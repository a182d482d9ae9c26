package web_search

import (
	"context"
	"errors"
	"log"
	"strings"

	"golang.org/x/net/html"

	"github.com/OpenChatGit/autosearch/models"
)

// Executor runs queries against a single engine, taking a bucket token
// before every request so sustained traffic stays inside the
// per-minute budget.
type Executor struct {
	engine  Engine
	fetcher PageFetcher
	bucket  *tokenBucket
	logger  *log.Logger
}

func NewExecutor(engine Engine, fetcher PageFetcher, requestsPerMinute int, logger *log.Logger) *Executor {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	return &Executor{
		engine:  engine,
		fetcher: fetcher,
		bucket:  newTokenBucket(requestsPerMinute),
		logger:  logger,
	}
}

func (e *Executor) Name() string { return e.engine.Name }

// Search blocks on the token bucket, fetches the results page and
// parses it. Fetch failures are classified into timeout or network
// errors so the retry layer can decide what to do with them.
func (e *Executor) Search(ctx context.Context, query string, max int) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return []models.SearchResult{}, nil
	}
	if err := e.bucket.waitToken(ctx); err != nil {
		return nil, err
	}
	body, err := e.fetcher.FetchPage(ctx, e.engine.BuildRequest(query))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &models.SearchError{Kind: models.ErrKindTimeout, Phase: models.PhaseSearch, Retryable: true, Err: err}
		}
		return nil, models.NewNetworkError(models.PhaseSearch, err)
	}
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, models.NewParseError(models.PhaseSearch, err)
	}
	results := ParseResults(doc, e.engine, max)
	e.logger.Printf("engine %s returned %d results for %q", e.engine.Name, len(results), query)
	return results, nil
}
