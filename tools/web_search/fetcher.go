package web_search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Desktop Firefox UA; the keyless HTML endpoints reject obvious bot
// agents.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/115.0"

const maxResponseBytes = 1 << 20

// HTTPPageFetcher performs search-engine requests over a shared
// http.Client.
type HTTPPageFetcher struct {
	client *http.Client
}

func NewHTTPPageFetcher(timeout time.Duration) *HTTPPageFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPPageFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *HTTPPageFetcher) FetchPage(ctx context.Context, req PageRequest) (string, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(req.Form) > 0 {
		body = strings.NewReader(req.Form.Encode())
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml")
	if len(req.Form) > 0 {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("engine responded %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
