// Package rag distills scraped pages into a compact, query-relevant
// context. Pages are chunked along sentence boundaries, every chunk is
// scored against the query, and a small diverse selection survives:
// near-duplicates are dropped and no single source may dominate.
package rag

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/OpenChatGit/autosearch/models"
)

// Processor holds the active configuration. Reconfiguration is
// validated and atomic; a rejected update leaves the previous
// configuration in place.
type Processor struct {
	mu     sync.RWMutex
	cfg    Config
	logger *log.Logger
	now    func() time.Time
}

func NewProcessor(cfg Config, logger *log.Logger) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[RAG] ", log.LstdFlags)
	}
	return &Processor{cfg: cfg, logger: logger, now: time.Now}, nil
}

// Configure validates and swaps the configuration.
func (p *Processor) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
	return nil
}

// Config returns the active configuration.
func (p *Processor) Config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// Process chunks the scraped pages, scores every chunk against the
// query and returns the selection alongside chunk counters.
func (p *Processor) Process(query string, contents []*models.ScrapedContent) models.ProcessedContext {
	cfg := p.Config()

	var chunks []models.ContentChunk
	for _, content := range contents {
		if content == nil || strings.TrimSpace(content.Content) == "" {
			continue
		}
		texts := chunkText(content.Content, cfg.ChunkSize, cfg.ChunkOverlap)
		for i, text := range texts {
			chunks = append(chunks, models.ContentChunk{
				Content:  text,
				Source:   content.URL,
				Position: i,
				Metadata: models.ChunkMetadata{
					WordCount:       len(strings.Fields(text)),
					PublishedDate:   content.Metadata.PublishedDate,
					Domain:          content.Metadata.Domain,
					IsTrustedDomain: cfg.trusts(content.Metadata.Domain),
				},
			})
		}
	}

	stats := make([]chunkStats, len(chunks))
	for i := range chunks {
		stats[i] = newChunkStats(chunks[i].Content)
	}
	scoreChunks(query, chunks, stats, cfg, p.now())
	selected := selectChunks(chunks, stats, cfg)

	p.logger.Printf("distilled %d pages into %d chunks, selected %d for %q",
		len(contents), len(chunks), len(selected), query)
	return models.ProcessedContext{
		Query:          query,
		Chunks:         selected,
		TotalChunks:    len(chunks),
		SelectedChunks: len(selected),
	}
}
