// Package web_scrape fetches pages and extracts readable article text
// plus lightweight metadata. Batches run under a concurrency cap with
// per-URL retries and deadlines; a failed URL yields a failure record,
// never an error for the whole batch.
package web_scrape

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/OpenChatGit/autosearch/models"
)

const (
	DefaultTimeout       = 15 * time.Second
	DefaultMaxRetries    = 3
	DefaultMaxConcurrent = 5
	MaxCharsDefault      = 20000
)

// Result is the per-URL outcome of a batch. Content is set only on
// success; Error carries the last attempt's failure otherwise.
type Result struct {
	URL     string                 `json:"url"`
	Success bool                   `json:"success"`
	Content *models.ScrapedContent `json:"content,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Scraper is the content-acquisition surface.
type Scraper interface {
	ScrapeAll(ctx context.Context, urls []string) []Result
	ScrapeOne(ctx context.Context, url string) Result
}

type FetcherType string

const (
	HTTPFetcherType     FetcherType = "http"
	ChromedpFetcherType FetcherType = "chromedp"
)

var ErrUnsupportedFetcher = errors.New("web_scrape: unsupported fetcher type")

// Options bounds one scraping campaign. Timeout applies per attempt;
// each URL additionally gets an overall deadline of Timeout+5s across
// all its retries.
type Options struct {
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int
	MaxChars      int
	UserAgent     string
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = DefaultMaxConcurrent
	}
	if o.MaxChars <= 0 {
		o.MaxChars = MaxCharsDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	return o
}

func New(fetcherType FetcherType, opts Options, logger *log.Logger) (Scraper, error) {
	opts = opts.withDefaults()
	if logger == nil {
		logger = log.New(log.Writer(), "[SCRAPE] ", log.LstdFlags)
	}
	switch fetcherType {
	case HTTPFetcherType:
		return &scraper{fetch: newHTTPFetcher(opts.UserAgent), opts: opts, logger: logger}, nil
	case ChromedpFetcherType:
		return &scraper{fetch: chromedpFetcher{ua: opts.UserAgent}, opts: opts, logger: logger}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFetcher, fetcherType)
	}
}

// pageFetcher retrieves the raw HTML for one page.
type pageFetcher interface {
	fetchHTML(ctx context.Context, pageURL string) (string, error)
}

type scraper struct {
	fetch  pageFetcher
	opts   Options
	logger *log.Logger
}

// ScrapeAll scrapes every URL under the concurrency cap and returns one
// record per URL in input order.
func (s *scraper) ScrapeAll(ctx context.Context, urls []string) []Result {
	if len(urls) == 0 {
		return []Result{}
	}
	results := make([]Result, len(urls))
	sem := make(chan struct{}, s.opts.MaxConcurrent)
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.scrapeWithDeadline(ctx, u)
		}(i, u)
	}
	wg.Wait()

	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	s.logger.Printf("scraped %d urls: %d ok, %d failed", len(urls), ok, len(urls)-ok)
	return results
}

func (s *scraper) ScrapeOne(ctx context.Context, url string) Result {
	return s.scrapeWithDeadline(ctx, url)
}

// scrapeWithDeadline bounds one URL's retries with an overall deadline
// of Timeout+5s, mirroring the per-task budget the retry schedule
// assumes.
func (s *scraper) scrapeWithDeadline(ctx context.Context, pageURL string) Result {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout+5*time.Second)
	defer cancel()

	done := make(chan Result, 1)
	go func() { done <- s.scrapeWithRetry(ctx, pageURL) }()
	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		return Result{URL: pageURL, Error: "overall timeout exceeded"}
	}
}

// scrapeWithRetry attempts a URL up to MaxRetries times with
// exponential backoff (1s, 2s, 4s, ...) between attempts.
func (s *scraper) scrapeWithRetry(ctx context.Context, pageURL string) Result {
	var lastErr string
	for attempt := 1; attempt <= s.opts.MaxRetries; attempt++ {
		content, err := s.scrapeOnce(ctx, pageURL)
		if err == nil {
			return Result{URL: pageURL, Success: true, Content: content}
		}
		lastErr = fmt.Sprintf("attempt %d/%d: %v", attempt, s.opts.MaxRetries, err)
		s.logger.Printf("scrape %s failed: %s", pageURL, lastErr)
		if attempt < s.opts.MaxRetries {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			if err := sleepCtx(ctx, backoff); err != nil {
				break
			}
		}
	}
	return Result{URL: pageURL, Error: lastErr}
}

func (s *scraper) scrapeOnce(ctx context.Context, pageURL string) (*models.ScrapedContent, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	switch parsed.Scheme {
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	body, err := s.fetch.fetchHTML(attemptCtx, pageURL)
	if err != nil {
		return nil, err
	}
	return ExtractContent(pageURL, body, s.opts.MaxChars)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
