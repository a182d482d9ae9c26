package models

import (
	"fmt"
	"strings"
	"time"
)

// SearchResult is a single parsed hit from a search engine results page.
// Rank is 1-based and assigned in parse order.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Rank    int    `json:"rank"`
}

// ContentMetadata describes the provenance of a scraped page.
type ContentMetadata struct {
	Domain        string     `json:"domain"`
	WordCount     int        `json:"word_count"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	Author        string     `json:"author,omitempty"`
}

// ScrapedContent is the usable text of one fetched page.
type ScrapedContent struct {
	URL      string          `json:"url"`
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Metadata ContentMetadata `json:"metadata"`
}

// ChunkMetadata carries the per-chunk signals the scorer consumes.
type ChunkMetadata struct {
	WordCount       int        `json:"word_count"`
	PublishedDate   *time.Time `json:"published_date,omitempty"`
	Domain          string     `json:"domain"`
	IsTrustedDomain bool       `json:"is_trusted_domain"`
}

// ContentChunk is a bounded excerpt of one scraped page. Position is
// 0-based within its source page. RelevanceScore is recomputed on every
// scoring run and must never be read across queries.
type ContentChunk struct {
	Content        string        `json:"content"`
	Source         string        `json:"source"`
	RelevanceScore float64       `json:"relevance_score"`
	Position       int           `json:"position"`
	Metadata       ChunkMetadata `json:"metadata"`
}

// ProcessedContext is the outcome of one chunk-score-select pass.
type ProcessedContext struct {
	Query          string         `json:"query"`
	Chunks         []ContentChunk `json:"chunks"`
	TotalChunks    int            `json:"total_chunks"`
	SelectedChunks int            `json:"selected_chunks"`
}

// Source is a unique web page (by URL) contributing one or more chunks.
type Source struct {
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	Domain        string     `json:"domain"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
}

// SearchContext is the unit that gets cached and injected into the chat
// flow. Summary is always human-readable, including on failure.
type SearchContext struct {
	Query     string         `json:"query"`
	Chunks    []ContentChunk `json:"chunks"`
	Sources   []Source       `json:"sources"`
	Summary   string         `json:"summary"`
	Timestamp time.Time      `json:"timestamp"`
}

// IsEmpty reports whether the context carries no usable chunks.
func (c SearchContext) IsEmpty() bool {
	return len(c.Chunks) == 0
}

// SourceMetadata is a registry entry: a stable citation ID for one URL
// plus the numbered sections registered under it.
type SourceMetadata struct {
	ID            int            `json:"id"`
	URL           string         `json:"url"`
	Title         string         `json:"title"`
	Domain        string         `json:"domain"`
	PublishedDate *time.Time     `json:"published_date,omitempty"`
	Sections      map[int]string `json:"sections,omitempty"`
}

// NormalizeQuery produces the canonical cache key form of a query.
// Every cache path must key on this, never on the raw string.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Domain extracts the host of a URL without scheme or www prefix.
// Unparseable input degrades to the input itself.
func Domain(rawURL string) string {
	s := rawURL
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "www.")
	return strings.ToLower(s)
}

// FormatAge renders a published date as a short relative label for the
// verbose report ("3 days ago", "today").
func FormatAge(published *time.Time, now time.Time) string {
	if published == nil {
		return "date unknown"
	}
	days := int(now.Sub(*published).Hours() / 24)
	switch {
	case days < 0:
		return published.Format("2006-01-02")
	case days == 0:
		return "today"
	case days == 1:
		return "yesterday"
	case days < 30:
		return fmt.Sprintf("%d days ago", days)
	default:
		return published.Format("2006-01-02")
	}
}
