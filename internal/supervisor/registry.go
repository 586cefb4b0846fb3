package supervisor

import (
	"sync"

	"github.com/mevdschee/openspec-ui/internal/config"
)

// SourceRegistry holds the current source list. Readers get copies; Update replaces the whole list.
type SourceRegistry struct {
	mu      sync.RWMutex
	sources []config.Source
}

// NewSourceRegistry creates a registry holding sources.
func NewSourceRegistry(sources []config.Source) *SourceRegistry {
	return &SourceRegistry{sources: append([]config.Source{}, sources...)}
}

// Sources returns a snapshot of all sources, invalid ones included.
func (r *SourceRegistry) Sources() []config.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]config.Source{}, r.sources...)
}

// Valid returns a snapshot of the sources that resolved to a directory.
func (r *SourceRegistry) Valid() []config.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	valid := make([]config.Source, 0, len(r.sources))
	for _, s := range r.sources {
		if s.Valid {
			valid = append(valid, s)
		}
	}
	return valid
}

// Lookup returns the source with the given id. With duplicate ids the last one wins.
func (r *SourceRegistry) Lookup(id string) (config.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.sources) - 1; i >= 0; i-- {
		if r.sources[i].ID == id {
			return r.sources[i], true
		}
	}
	return config.Source{}, false
}

// Update replaces the source list.
func (r *SourceRegistry) Update(sources []config.Source) {
	next := append([]config.Source{}, sources...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = next
}
