package web_search

import (
	"context"
	"log"
	"sync"

	"github.com/OpenChatGit/autosearch/models"
)

// EngineSearcher is one engine-bound executor inside the failover ring.
type EngineSearcher interface {
	Name() string
	Search(ctx context.Context, query string, max int) ([]models.SearchResult, error)
}

// Failover cycles through its executors starting at the engine that
// last succeeded, so a healthy engine keeps serving until it degrades.
// The first engine to return any results short-circuits the ring; when
// every engine errors the last error is returned.
type Failover struct {
	mu     sync.Mutex
	execs  []EngineSearcher
	last   int
	logger *log.Logger
}

func NewFailover(execs []EngineSearcher, logger *log.Logger) *Failover {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	return &Failover{execs: execs, logger: logger}
}

func (f *Failover) Search(ctx context.Context, query string, max int) ([]models.SearchResult, error) {
	f.mu.Lock()
	start := f.last
	execs := f.execs
	f.mu.Unlock()

	if len(execs) == 0 {
		return []models.SearchResult{}, nil
	}

	var lastErr error
	for i := 0; i < len(execs); i++ {
		idx := (start + i) % len(execs)
		exec := execs[idx]
		results, err := exec.Search(ctx, query, max)
		if err != nil {
			f.logger.Printf("engine %s failed: %v", exec.Name(), err)
			lastErr = err
			continue
		}
		if len(results) > 0 {
			f.mu.Lock()
			f.last = idx
			f.mu.Unlock()
			return results, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return []models.SearchResult{}, nil
}
