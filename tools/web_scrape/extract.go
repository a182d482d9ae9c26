package web_scrape

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/andybalholm/cascadia"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/OpenChatGit/autosearch/models"
)

// contentSelectors mark the main-content region of a page, tried in
// order when readability cannot produce an article.
var contentSelectors = []string{
	"main",
	"article",
	"[role=main]",
	".main-content",
	"#main-content",
	".content",
	"#content",
}

var (
	publishedSelectors = []string{
		`meta[property="article:published_time"]`,
		`meta[name="date"]`,
	}
	authorSelectors = []string{
		`meta[name="author"]`,
		`meta[property="article:author"]`,
	}
	timeElementSel = cascadia.MustCompile("time[datetime]")
	relAuthorSel   = cascadia.MustCompile(`[rel="author"]`)
	titleSel       = cascadia.MustCompile("title")
	bodySel        = cascadia.MustCompile("body")
)

// ExtractContent turns a fetched page into a ScrapedContent record:
// readable article text (readability first, content-region selectors
// as fallback, whole body as last resort) plus title, author,
// published date, domain and word count.
func ExtractContent(pageURL, body string, maxChars int) (*models.ScrapedContent, error) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	var text, title, byline string
	var published *time.Time
	if article, err := readability.FromReader(strings.NewReader(body), lenientURL(pageURL)); err == nil {
		text = article.TextContent
		title = article.Title
		byline = article.Byline
		published = article.PublishedTime
	}
	if strings.TrimSpace(text) == "" {
		text = contentRegionText(doc)
	}
	if strings.TrimSpace(title) == "" {
		if n := titleSel.MatchFirst(doc); n != nil {
			title = nodeText(n)
		}
	}

	content := cleanText(text)
	if maxChars > 0 {
		content = truncateRunes(content, maxChars)
	}

	meta := models.ContentMetadata{
		Domain:    models.Domain(pageURL),
		WordCount: len(strings.Fields(content)),
		Author:    extractAuthor(doc, byline),
	}
	if t := extractPublished(doc); t != nil {
		meta.PublishedDate = t
	} else {
		meta.PublishedDate = published
	}

	return &models.ScrapedContent{
		URL:      pageURL,
		Title:    cleanText(title),
		Content:  content,
		Metadata: meta,
	}, nil
}

// contentRegionText returns the text of the first main-content region,
// or the whole body when none is marked up.
func contentRegionText(doc *html.Node) string {
	for _, sel := range contentSelectors {
		matcher, err := cascadia.Compile(sel)
		if err != nil {
			continue
		}
		if n := matcher.MatchFirst(doc); n != nil {
			if text := nodeText(n); text != "" {
				return text
			}
		}
	}
	if n := bodySel.MatchFirst(doc); n != nil {
		return nodeText(n)
	}
	return ""
}

func extractPublished(doc *html.Node) *time.Time {
	for _, sel := range publishedSelectors {
		matcher, err := cascadia.Compile(sel)
		if err != nil {
			continue
		}
		if n := matcher.MatchFirst(doc); n != nil {
			if t := parseDate(attr(n, "content")); t != nil {
				return t
			}
		}
	}
	if n := timeElementSel.MatchFirst(doc); n != nil {
		if t := parseDate(attr(n, "datetime")); t != nil {
			return t
		}
	}
	return nil
}

func extractAuthor(doc *html.Node, byline string) string {
	for _, sel := range authorSelectors {
		matcher, err := cascadia.Compile(sel)
		if err != nil {
			continue
		}
		if n := matcher.MatchFirst(doc); n != nil {
			if author := strings.TrimSpace(attr(n, "content")); author != "" {
				return author
			}
		}
	}
	if n := relAuthorSel.MatchFirst(doc); n != nil {
		if author := strings.TrimSpace(nodeText(n)); author != "" {
			return author
		}
	}
	return strings.TrimSpace(byline)
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil
	}
	return &t
}

// cleanText collapses all whitespace runs into single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes caps s at max bytes without splitting a rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			b.WriteByte(' ')
		}
		if node.Type == html.ElementNode {
			switch node.Data {
			case "script", "style", "noscript":
				return
			}
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

func lenientURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
