package rag

import (
	"fmt"
	"testing"

	"github.com/OpenChatGit/autosearch/models"
)

func scoredChunk(content, source string, score float64) (models.ContentChunk, chunkStats) {
	return models.ContentChunk{
		Content:        content,
		Source:         source,
		RelevanceScore: score,
	}, newChunkStats(content)
}

func TestSelectFiltersThreshold(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.RelevanceThreshold = 0.5

	var chunks []models.ContentChunk
	var stats []chunkStats
	for i, score := range []float64{0.9, 0.5, 0.49, 0.1} {
		c, s := scoredChunk(fmt.Sprintf("distinct content number %d about topic %d", i, i), fmt.Sprintf("https://s%d.example.com", i), score)
		chunks = append(chunks, c)
		stats = append(stats, s)
	}

	selected := selectChunks(chunks, stats, cfg)
	if len(selected) != 2 {
		t.Fatalf("selected: got %d, want 2 (threshold inclusive)", len(selected))
	}
	for _, c := range selected {
		if c.RelevanceScore < 0.5 {
			t.Fatalf("sub-threshold chunk selected: %v", c.RelevanceScore)
		}
	}
}

func TestSelectOrdersByScore(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	var chunks []models.ContentChunk
	var stats []chunkStats
	scores := []float64{0.4, 0.9, 0.6}
	for i, score := range scores {
		c, s := scoredChunk(fmt.Sprintf("completely different subject matter %d with terms %d", i, i), fmt.Sprintf("https://s%d.example.com", i), score)
		chunks = append(chunks, c)
		stats = append(stats, s)
	}

	selected := selectChunks(chunks, stats, cfg)
	if len(selected) != 3 {
		t.Fatalf("selected: got %d, want 3", len(selected))
	}
	for i := 1; i < len(selected); i++ {
		if selected[i].RelevanceScore > selected[i-1].RelevanceScore {
			t.Fatalf("selection not sorted by score: %v", selected)
		}
	}
}

func TestSelectPerSourceCap(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.MaxChunks = 10

	var chunks []models.ContentChunk
	var stats []chunkStats
	for i := 0; i < 6; i++ {
		c, s := scoredChunk(fmt.Sprintf("section %d covers an entirely separate aspect %d of the library", i, i), "https://docs.example.com/guide", 0.9)
		chunks = append(chunks, c)
		stats = append(stats, s)
	}
	other, otherStats := scoredChunk("a different site contributes this independent view of the topic", "https://other.example.com", 0.8)
	chunks = append(chunks, other)
	stats = append(stats, otherStats)

	selected := selectChunks(chunks, stats, cfg)
	perSource := map[string]int{}
	for _, c := range selected {
		perSource[c.Source]++
	}
	if got := perSource["https://docs.example.com/guide"]; got != 3 {
		t.Fatalf("per-source count: got %d, want 3", got)
	}
	if got := perSource["https://other.example.com"]; got != 1 {
		t.Fatalf("other source count: got %d, want 1", got)
	}
}

func TestSelectDropsNearDuplicates(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	// Same sentence twice; the repeat differs by one word only.
	a, aStats := scoredChunk("goroutines communicate over channels to share memory safely", "https://a.example.com", 0.9)
	b, bStats := scoredChunk("goroutines communicate over channels to share memory safely today", "https://b.example.com", 0.8)
	c, cStats := scoredChunk("the garbage collector runs concurrently with the program mutator threads", "https://c.example.com", 0.7)

	selected := selectChunks(
		[]models.ContentChunk{a, b, c},
		[]chunkStats{aStats, bStats, cStats},
		cfg,
	)
	if len(selected) != 2 {
		t.Fatalf("selected: got %d, want 2 (duplicate dropped)", len(selected))
	}
	if selected[0].Source != "https://a.example.com" {
		t.Fatalf("higher-scored duplicate should win: %+v", selected[0])
	}
	if selected[1].Source != "https://c.example.com" {
		t.Fatalf("distinct chunk should survive: %+v", selected[1])
	}
}

func TestSelectHonorsMaxChunks(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.MaxChunks = 2

	var chunks []models.ContentChunk
	var stats []chunkStats
	for i := 0; i < 5; i++ {
		c, s := scoredChunk(fmt.Sprintf("subject %d has nothing in common with subject %d text", i, i+10), fmt.Sprintf("https://s%d.example.com", i), 0.9)
		chunks = append(chunks, c)
		stats = append(stats, s)
	}

	selected := selectChunks(chunks, stats, cfg)
	if len(selected) != 2 {
		t.Fatalf("selected: got %d, want 2", len(selected))
	}
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()
	a := map[string]int{"alpha": 2, "beta": 1}
	same := map[string]int{"alpha": 2, "beta": 1}
	disjoint := map[string]int{"gamma": 3}

	if got := cosineSimilarity(a, same); got < 0.999 {
		t.Fatalf("identical vectors: got %v, want ~1", got)
	}
	if got := cosineSimilarity(a, disjoint); got != 0 {
		t.Fatalf("disjoint vectors: got %v, want 0", got)
	}
	if got := cosineSimilarity(a, map[string]int{}); got != 0 {
		t.Fatalf("empty vector: got %v, want 0", got)
	}
}
