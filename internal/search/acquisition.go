package search

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/OpenChatGit/autosearch/models"
	"github.com/OpenChatGit/autosearch/tools/web_scrape"
)

// batchGrace is added on top of the per-URL budgets when deriving the
// overall deadline for a batch.
const batchGrace = 10 * time.Second

// Acquirer turns search results into page content. It never fails as a
// whole: URLs that could not be fetched come back as failure records so
// the pipeline can continue with whatever did arrive.
type Acquirer struct {
	scraper web_scrape.Scraper
	timeout time.Duration
	logger  *log.Logger
}

// NewAcquirer wraps a scraper. perURLTimeout is the single-page budget
// the batch deadline is derived from; zero falls back to the scraper
// default.
func NewAcquirer(scraper web_scrape.Scraper, perURLTimeout time.Duration, logger *log.Logger) *Acquirer {
	if perURLTimeout <= 0 {
		perURLTimeout = web_scrape.DefaultTimeout
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[ACQUIRE] ", log.LstdFlags)
	}
	return &Acquirer{scraper: scraper, timeout: perURLTimeout, logger: logger}
}

// AcquireAll fetches every URL concurrently under one overall deadline
// of timeout*len(urls) plus a fixed grace period. If the whole batch
// exceeds that budget, every URL is reported as a failure record rather
// than an error.
func (a *Acquirer) AcquireAll(ctx context.Context, urls []string) []web_scrape.Result {
	if len(urls) == 0 {
		return nil
	}
	budget := a.timeout*time.Duration(len(urls)) + batchGrace
	batchCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	done := make(chan []web_scrape.Result, 1)
	go func() { done <- a.scraper.ScrapeAll(batchCtx, urls) }()

	select {
	case results := <-done:
		return results
	case <-batchCtx.Done():
		a.logger.Printf("batch of %d URLs exceeded the %s budget", len(urls), budget)
		results := make([]web_scrape.Result, len(urls))
		for i, u := range urls {
			results[i] = web_scrape.Result{URL: u, Error: "content acquisition timed out"}
		}
		return results
	}
}

// AcquireSequential fetches URLs one at a time, keeping whatever has
// been collected when the context ends. Slower than AcquireAll, but
// partial progress survives cancellation.
func (a *Acquirer) AcquireSequential(ctx context.Context, urls []string) []web_scrape.Result {
	results := make([]web_scrape.Result, 0, len(urls))
	for i, u := range urls {
		if ctx.Err() != nil {
			for _, rest := range urls[i:] {
				results = append(results, web_scrape.Result{URL: rest, Error: "cancelled before fetch"})
			}
			break
		}
		results = append(results, a.scraper.ScrapeOne(ctx, u))
	}
	return results
}

// Usable extracts the successfully scraped pages in input order.
func Usable(results []web_scrape.Result) []*models.ScrapedContent {
	var pages []*models.ScrapedContent
	for _, r := range results {
		if r.Success && r.Content != nil && strings.TrimSpace(r.Content.Content) != "" {
			pages = append(pages, r.Content)
		}
	}
	return pages
}
