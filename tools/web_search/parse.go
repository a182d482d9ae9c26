package web_search

import (
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/OpenChatGit/autosearch/models"
)

// ParseResults extracts search hits from an engine results page.
// Per-field selectors are tried in order so minor markup drift does not
// blank the whole page. Elements lacking both a title and a resolvable
// URL are dropped; ranks are 1-based in parse order.
func ParseResults(doc *html.Node, engine Engine, max int) []models.SearchResult {
	containers := matchFirstSelector(doc, engine.Selectors.Result)
	results := make([]models.SearchResult, 0, len(containers))
	seen := make(map[string]struct{}, len(containers))
	for _, node := range containers {
		title := strings.TrimSpace(fieldText(node, engine.Selectors.Title))
		href := fieldHref(node, engine.Selectors.URL)
		resultURL := resolveResultURL(href, engine.Host)
		if title == "" && resultURL == "" {
			continue
		}
		if resultURL != "" {
			if _, dup := seen[resultURL]; dup {
				continue
			}
			seen[resultURL] = struct{}{}
		}
		results = append(results, models.SearchResult{
			Title:   title,
			URL:     resultURL,
			Snippet: strings.TrimSpace(fieldText(node, engine.Selectors.Snippet)),
			Rank:    len(results) + 1,
		})
		if max > 0 && len(results) >= max {
			break
		}
	}
	return results
}

// matchFirstSelector returns the matches of the first selector that
// yields any nodes.
func matchFirstSelector(doc *html.Node, selectors []string) []*html.Node {
	for _, sel := range selectors {
		matcher, err := cascadia.Compile(sel)
		if err != nil {
			continue
		}
		if nodes := matcher.MatchAll(doc); len(nodes) > 0 {
			return nodes
		}
	}
	return nil
}

// fieldText extracts the text of the first matching child, or of the
// container itself when no selectors are given.
func fieldText(container *html.Node, selectors []string) string {
	if len(selectors) == 0 {
		return nodeText(container)
	}
	for _, sel := range selectors {
		matcher, err := cascadia.Compile(sel)
		if err != nil {
			continue
		}
		if n := matcher.MatchFirst(container); n != nil {
			return nodeText(n)
		}
	}
	return ""
}

// fieldHref finds the first href among the selector fallbacks, falling
// back to the container's own href attribute.
func fieldHref(container *html.Node, selectors []string) string {
	if len(selectors) == 0 {
		return attr(container, "href")
	}
	for _, sel := range selectors {
		matcher, err := cascadia.Compile(sel)
		if err != nil {
			continue
		}
		if n := matcher.MatchFirst(container); n != nil {
			if href := attr(n, "href"); href != "" {
				return href
			}
		}
	}
	return attr(container, "href")
}

// resolveResultURL normalises a raw result href. Protocol-relative URLs
// are upgraded to https; engine redirect links (uddg parameter) are
// decoded to their destination; remaining links pointing back at the
// engine host are dropped as self-referential.
func resolveResultURL(raw, engineHost string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	if parsed.Host == "" {
		// Relative link on the engine page itself.
		return ""
	}
	host := strings.ToLower(parsed.Host)
	if engineHost != "" && (host == engineHost || strings.HasSuffix(host, "."+engineHost)) {
		return ""
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	return parsed.String()
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
