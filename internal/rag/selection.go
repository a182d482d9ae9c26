package rag

import (
	"math"
	"sort"

	"github.com/OpenChatGit/autosearch/models"
)

const similarityCutoff = 0.9

// selectChunks picks the final context: drop sub-threshold chunks,
// order by score, then take greedily while holding every source to
// perSourceCap and the total to MaxChunks, skipping any chunk that is
// a near-duplicate of one already taken.
func selectChunks(chunks []models.ContentChunk, stats []chunkStats, cfg Config) []models.ContentChunk {
	type candidate struct {
		chunk models.ContentChunk
		stats chunkStats
	}
	candidates := make([]candidate, 0, len(chunks))
	for i := range chunks {
		if chunks[i].RelevanceScore >= cfg.RelevanceThreshold {
			candidates = append(candidates, candidate{chunks[i], stats[i]})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].chunk.RelevanceScore > candidates[j].chunk.RelevanceScore
	})

	selected := make([]models.ContentChunk, 0, cfg.MaxChunks)
	taken := make([]chunkStats, 0, cfg.MaxChunks)
	perSource := make(map[string]int)
	for _, c := range candidates {
		if len(selected) >= cfg.MaxChunks {
			break
		}
		if perSource[c.chunk.Source] >= perSourceCap {
			continue
		}
		if isNearDuplicate(c.stats, taken) {
			continue
		}
		selected = append(selected, c.chunk)
		taken = append(taken, c.stats)
		perSource[c.chunk.Source]++
	}
	return selected
}

func isNearDuplicate(st chunkStats, taken []chunkStats) bool {
	for _, other := range taken {
		if cosineSimilarity(st.freqs, other.freqs) > similarityCutoff {
			return true
		}
	}
	return false
}

// cosineSimilarity compares two term-frequency vectors. Empty vectors
// are treated as dissimilar.
func cosineSimilarity(a, b map[string]int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	dot := 0.0
	for term, fa := range a {
		if fb, ok := b[term]; ok {
			dot += float64(fa) * float64(fb)
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (vectorNorm(a) * vectorNorm(b))
}

func vectorNorm(v map[string]int) float64 {
	sum := 0.0
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}
