package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/i474232898/nws-weather/internal/weather"
)

var (
	// ErrNotFound is returned when no state is available for a given location.
	ErrNotFound = errors.New("no weather data for location")
)

// MemoryStore is a concurrency-safe in-memory holder of the latest state per
// location. Each save replaces the previous state; no history is kept.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location key
	data map[string]weather.State
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]weather.State),
	}
}

// Save replaces the state stored for the state's location.
func (s *MemoryStore) Save(state weather.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[state.Location.Key()] = state
}

// Get returns the latest state for a location.
func (s *MemoryStore) Get(loc weather.Location) (weather.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[loc.Key()]
	if !ok {
		return weather.State{}, ErrNotFound
	}
	return state, nil
}

// Delete forgets the state for a location.
func (s *MemoryStore) Delete(loc weather.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, loc.Key())
}

// List returns all stored states ordered by location key.
func (s *MemoryStore) List() []weather.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]weather.State, 0, len(s.data))
	for _, state := range s.data {
		out = append(out, state)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Location.Key() < out[j].Location.Key()
	})
	return out
}
