package rag

import (
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/OpenChatGit/autosearch/internal/helpers"
	"github.com/OpenChatGit/autosearch/models"
)

// Composite weights. TF-IDF dominates; position, recency, quality and
// domain trust adjust the ordering. Recency and quality weights come
// from the config.
const (
	tfidfWeight    = 0.5
	positionWeight = 0.2
	trustWeight    = 0.1
)

// chunkStats carries the per-chunk term data shared between scoring
// and similarity checks, so tokenization runs once per chunk.
type chunkStats struct {
	freqs map[string]int
	terms int
}

func newChunkStats(content string) chunkStats {
	terms := helpers.ContentTerms(content)
	return chunkStats{freqs: helpers.TermFrequencies(terms), terms: len(terms)}
}

// scoreChunks computes the composite relevance score for every chunk.
// IDF is derived from the candidate set itself: a query term carried
// by few chunks separates them better than one carried by all.
func scoreChunks(query string, chunks []models.ContentChunk, stats []chunkStats, cfg Config, now time.Time) {
	queryTerms := uniqueTerms(helpers.ContentTerms(query))

	containing := make(map[string]int, len(queryTerms))
	for _, term := range queryTerms {
		for _, st := range stats {
			if st.freqs[term] > 0 {
				containing[term]++
			}
		}
	}

	total := float64(len(chunks))
	for i := range chunks {
		tfidf := 0.0
		if stats[i].terms > 0 {
			norm := math.Sqrt(float64(stats[i].terms))
			for _, term := range queryTerms {
				tf := stats[i].freqs[term]
				if tf == 0 {
					continue
				}
				idf := math.Log(total / float64(containing[term]))
				tfidf += float64(tf) * idf / norm
			}
		}

		position := math.Exp(-0.1 * float64(chunks[i].Position))
		recency := recencyScore(chunks[i].Metadata.PublishedDate, now)
		quality := qualityScore(chunks[i].Content)
		trust := 0.5
		if chunks[i].Metadata.IsTrustedDomain {
			trust = 1.0
		}

		chunks[i].RelevanceScore = tfidfWeight*tfidf +
			positionWeight*position +
			cfg.RecencyWeight*recency +
			cfg.QualityWeight*quality +
			trustWeight*trust
	}
}

// recencyScore maps content age to a step value. Missing or future
// dates land on the neutral 0.5.
func recencyScore(published *time.Time, now time.Time) float64 {
	if published == nil {
		return 0.5
	}
	age := now.Sub(*published)
	if age < 0 {
		return 0.5
	}
	days := age.Hours() / 24
	switch {
	case days < 7:
		return 1.0
	case days < 30:
		return 0.9
	case days < 90:
		return 0.7
	case days < 365:
		return 0.5
	default:
		return 0.3
	}
}

// qualityScore grades prose quality in [0,1]: a length preference
// peaking at 50-300 words, presence of sentence punctuation and sane
// capitalization, and a penalty for text dominated by very long words
// (minified or code-like content).
func qualityScore(content string) float64 {
	words := strings.Fields(content)
	n := len(words)

	var length float64
	switch {
	case n >= 50 && n <= 300:
		length = 0.4
	case (n >= 20 && n < 50) || (n > 300 && n <= 500):
		length = 0.25
	case n >= 10 && n < 20:
		length = 0.15
	default:
		length = 0.05
	}

	var structure float64
	if strings.ContainsAny(content, ".!?") {
		structure += 0.15
	}
	letters, upper := 0, 0
	for _, r := range content {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters > 0 {
		ratio := float64(upper) / float64(letters)
		if ratio > 0.005 && ratio < 0.3 {
			structure += 0.15
		}
	}

	readable := 0.3
	if n > 0 {
		long := 0
		for _, w := range words {
			if utf8.RuneCountInString(w) > 12 {
				long++
			}
		}
		readable = 0.3 * (1 - math.Min(1, 4*float64(long)/float64(n)))
	}

	return length + structure + readable
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
