package web_scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Desktop Firefox UA; several news sites serve bot agents a stub page.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/115.0"

const maxBodyBytes = 2 << 20

// httpFetcher retrieves pages with a plain GET. Attempt deadlines come
// from the caller's context.
type httpFetcher struct {
	client *http.Client
	ua     string
}

func newHTTPFetcher(ua string) *httpFetcher {
	return &httpFetcher{client: &http.Client{}, ua: ua}
}

func (f *httpFetcher) fetchHTML(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("request failed with status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
