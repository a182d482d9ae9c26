package web_search

import "net/url"

// Engine describes one HTML search engine: how to build its request and
// where result fields live in the returned markup. Selector lists are
// ordered primary-first; the parser walks them until one matches.
// An empty selector list means the field is read from the result
// container itself.
type Engine struct {
	Name      string
	Host      string // engine host, used to filter self-referential links
	Selectors ResultSelectors
	build     func(query string) PageRequest
}

// ResultSelectors holds the per-field CSS selector fallbacks.
type ResultSelectors struct {
	Result  []string
	Title   []string
	URL     []string
	Snippet []string
}

// BuildRequest produces the page-fetch request for a query.
func (e Engine) BuildRequest(query string) PageRequest { return e.build(query) }

// DuckDuckGo targets the html.duckduckgo.com endpoint. The request
// mirrors the browser form post: q plus the b and kl=wt-wt fields the
// endpoint expects for a region-free first page.
func DuckDuckGo() Engine {
	return Engine{
		Name: string(EngineDuckDuckGo),
		Host: "duckduckgo.com",
		Selectors: ResultSelectors{
			Result:  []string{"div.result", "div.web-result", "div.results_links"},
			Title:   []string{"h2.result__title a", "a.result__a", "h2 a"},
			URL:     []string{"a.result__a", "a.result__url", "h2 a"},
			Snippet: []string{"a.result__snippet", "div.result__snippet"},
		},
		build: func(query string) PageRequest {
			return PageRequest{
				URL:    "https://html.duckduckgo.com/html/",
				Method: "POST",
				Form: url.Values{
					"q":  {query},
					"b":  {""},
					"kl": {"wt-wt"},
				},
			}
		},
	}
}

// DuckDuckGoLite targets the table-based lite endpoint. Its markup has
// no per-result container, so the result link itself is the container
// and snippets are frequently absent.
func DuckDuckGoLite() Engine {
	return Engine{
		Name: string(EngineDuckDuckGoLite),
		Host: "duckduckgo.com",
		Selectors: ResultSelectors{
			Result:  []string{"a.result-link", "td a[href]"},
			Snippet: []string{"td.result-snippet"},
		},
		build: func(query string) PageRequest {
			return PageRequest{
				URL:    "https://lite.duckduckgo.com/lite/",
				Method: "POST",
				Form: url.Values{
					"q":  {query},
					"b":  {""},
					"kl": {"wt-wt"},
				},
			}
		},
	}
}
