package integration

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/i474232898/nws-weather/internal/weather"
)

// Entry is one configured location.
type Entry struct {
	ID       string           `json:"id"`
	APIKey   string           `json:"-"`
	Location weather.Location `json:"location"`
	// Station is empty when the nearest station should be resolved.
	Station string `json:"station,omitempty"`
}

// Loaded is an entry whose coordinator has been set up.
type Loaded struct {
	Entry       Entry
	Coordinator *weather.Coordinator
}

// Registry holds loaded entries per domain. It is owned by the host and passed
// into setup and unload; a domain disappears once its last entry is removed.
type Registry struct {
	mu      sync.RWMutex
	domains map[string]map[string]Loaded
}

func NewRegistry() *Registry {
	return &Registry{domains: make(map[string]map[string]Loaded)}
}

func (r *Registry) put(domain string, l Loaded) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries, ok := r.domains[domain]
	if !ok {
		entries = make(map[string]Loaded)
		r.domains[domain] = entries
	}
	entries[l.Entry.ID] = l
}

func (r *Registry) pop(domain, entryID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries, ok := r.domains[domain]
	if !ok {
		return
	}
	delete(entries, entryID)
	if len(entries) == 0 {
		delete(r.domains, domain)
	}
}

// Lookup returns the loaded entry with the given id.
func (r *Registry) Lookup(domain, entryID string) (Loaded, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.domains[domain][entryID]
	return l, ok
}

// Entries returns the loaded entries of a domain ordered by location key.
func (r *Registry) Entries(domain string) []Loaded {
	r.mu.RLock()
	out := lo.Values(r.domains[domain])
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Entry.Location.Key() < out[j].Entry.Location.Key()
	})
	return out
}

// HasDomain reports whether any entry of domain is loaded.
func (r *Registry) HasDomain(domain string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.domains[domain]
	return ok
}
