// Package registry tracks the sources cited in generated answers.
// Each distinct URL gets a stable numeric ID for the lifetime of a
// session, so citation markers keep pointing at the same source no
// matter how often or in which order later searches return it.
package registry

import (
	"sort"
	"sync"

	"github.com/OpenChatGit/autosearch/models"
)

// SourceRegistry assigns monotonically increasing IDs (starting at 1)
// to source URLs. Safe for concurrent use.
type SourceRegistry struct {
	mu     sync.RWMutex
	byURL  map[string]*models.SourceMetadata
	byID   map[int]*models.SourceMetadata
	nextID int
}

func New() *SourceRegistry {
	return &SourceRegistry{
		byURL:  make(map[string]*models.SourceMetadata),
		byID:   make(map[int]*models.SourceMetadata),
		nextID: 1,
	}
}

// Register returns the ID for url, assigning the next free one on
// first sight. Re-registering an existing URL refreshes empty fields
// but never changes the ID.
func (r *SourceRegistry) Register(url, title, domain string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if src, ok := r.byURL[url]; ok {
		if src.Title == "" {
			src.Title = title
		}
		if src.Domain == "" {
			src.Domain = domain
		}
		return src.ID
	}

	src := &models.SourceMetadata{
		ID:       r.nextID,
		URL:      url,
		Title:    title,
		Domain:   domain,
		Sections: make(map[int]string),
	}
	r.byURL[url] = src
	r.byID[src.ID] = src
	r.nextID++
	return src.ID
}

// AddSection records a numbered section excerpt under a source so that
// a citation marker like source 2, section 3 can be resolved back to
// the cited text.
func (r *SourceRegistry) AddSection(sourceID, section int, excerpt string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.byID[sourceID]
	if !ok {
		return false
	}
	src.Sections[section] = excerpt
	return true
}

// Resolve looks a source up by ID.
func (r *SourceRegistry) Resolve(id int) (models.SourceMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.byID[id]
	if !ok {
		return models.SourceMetadata{}, false
	}
	return copySource(src), true
}

// ResolveSection returns the excerpt registered for a source section.
func (r *SourceRegistry) ResolveSection(sourceID, section int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.byID[sourceID]
	if !ok {
		return "", false
	}
	excerpt, ok := src.Sections[section]
	return excerpt, ok
}

// List returns all registered sources ordered by ID.
func (r *SourceRegistry) List() []models.SourceMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.SourceMetadata, 0, len(r.byID))
	for _, src := range r.byID {
		out = append(out, copySource(src))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports the number of registered sources.
func (r *SourceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byURL)
}

// Clear drops every source and resets the ID counter to 1. Called when
// a chat session ends so the next session starts numbering fresh.
func (r *SourceRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byURL = make(map[string]*models.SourceMetadata)
	r.byID = make(map[int]*models.SourceMetadata)
	r.nextID = 1
}

func copySource(src *models.SourceMetadata) models.SourceMetadata {
	out := *src
	out.Sections = make(map[int]string, len(src.Sections))
	for k, v := range src.Sections {
		out.Sections[k] = v
	}
	return out
}
