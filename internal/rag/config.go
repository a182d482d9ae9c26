package rag

import "fmt"

const (
	// MinChunkChars is both the smallest allowed chunk size and the
	// minimum length an emitted chunk must reach; shorter fragments
	// are discarded.
	MinChunkChars = 100
	// HardChunkCeiling force-flushes a chunk that grows this large
	// regardless of the configured size.
	HardChunkCeiling = 2000
	// perSourceCap limits how many chunks a single source may
	// contribute to a selection.
	perSourceCap = 3
)

// Config tunes chunking, scoring and selection. Zero values are not
// usable; start from DefaultConfig.
type Config struct {
	ChunkSize          int      `json:"chunk_size" mapstructure:"chunk_size"`
	ChunkOverlap       int      `json:"chunk_overlap" mapstructure:"chunk_overlap"`
	MaxChunks          int      `json:"max_chunks" mapstructure:"max_chunks"`
	RelevanceThreshold float64  `json:"relevance_threshold" mapstructure:"relevance_threshold"`
	RecencyWeight      float64  `json:"recency_weight" mapstructure:"recency_weight"`
	QualityWeight      float64  `json:"quality_weight" mapstructure:"quality_weight"`
	TrustedDomains     []string `json:"trusted_domains" mapstructure:"trusted_domains"`
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:          500,
		ChunkOverlap:       50,
		MaxChunks:          8,
		RelevanceThreshold: 0.3,
		RecencyWeight:      0.2,
		QualityWeight:      0.2,
		TrustedDomains: []string{
			"wikipedia.org",
			"github.com",
			"stackoverflow.com",
			"developer.mozilla.org",
			"docs.python.org",
			"arxiv.org",
			"reuters.com",
			"apnews.com",
			"heise.de",
			"golem.de",
		},
	}
}

// Validate enforces the configuration bounds. Every reconfigure goes
// through this, so a bad update never reaches the processor.
func (c Config) Validate() error {
	if c.ChunkSize < MinChunkChars || c.ChunkSize > HardChunkCeiling {
		return fmt.Errorf("rag: chunk_size %d out of range [%d,%d]", c.ChunkSize, MinChunkChars, HardChunkCeiling)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("rag: chunk_overlap %d must be in [0,chunk_size)", c.ChunkOverlap)
	}
	if c.MaxChunks < 1 {
		return fmt.Errorf("rag: max_chunks %d must be at least 1", c.MaxChunks)
	}
	if c.RelevanceThreshold < 0 || c.RelevanceThreshold > 1 {
		return fmt.Errorf("rag: relevance_threshold %g out of range [0,1]", c.RelevanceThreshold)
	}
	if c.RecencyWeight < 0 || c.RecencyWeight > 1 {
		return fmt.Errorf("rag: recency_weight %g out of range [0,1]", c.RecencyWeight)
	}
	if c.QualityWeight < 0 || c.QualityWeight > 1 {
		return fmt.Errorf("rag: quality_weight %g out of range [0,1]", c.QualityWeight)
	}
	return nil
}

// trusts reports whether domain belongs to (or is a subdomain of) a
// trusted domain.
func (c Config) trusts(domain string) bool {
	for _, trusted := range c.TrustedDomains {
		if domain == trusted {
			return true
		}
		if len(domain) > len(trusted) && domain[len(domain)-len(trusted)-1] == '.' &&
			domain[len(domain)-len(trusted):] == trusted {
			return true
		}
	}
	return false
}
