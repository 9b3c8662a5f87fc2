// Package entity presents each loaded location as a weather entity whose
// state is refreshed on every coordinator signal.
package entity

import (
	"context"
	"log/slog"
	"sync"

	"github.com/i474232898/nws-weather/internal/dispatcher"
	"github.com/i474232898/nws-weather/internal/integration"
	"github.com/i474232898/nws-weather/internal/weather"
)

// Subscriber registers handlers for coordinator signals.
type Subscriber interface {
	Subscribe(key string, handler dispatcher.Handler) func()
}

// Store keeps the latest state per location.
type Store interface {
	Save(state weather.State)
	Delete(loc weather.Location)
}

// Platform is the weather platform.
type Platform struct {
	bus    Subscriber
	store  Store
	logger *slog.Logger

	mu     sync.Mutex
	unsubs map[string]func()
}

var _ integration.Platform = (*Platform)(nil)

func NewPlatform(bus Subscriber, store Store, logger *slog.Logger) *Platform {
	if logger == nil {
		logger = slog.Default()
	}
	return &Platform{
		bus:    bus,
		store:  store,
		logger: logger.With("component", "entity"),
		unsubs: make(map[string]func()),
	}
}

func (p *Platform) Name() string { return "weather" }

// SetupEntry stores the current state and refreshes it on every signal.
func (p *Platform) SetupEntry(_ context.Context, entry integration.Entry, c *weather.Coordinator) error {
	refresh := func() {
		state := BuildState(entry.ID, c)
		p.store.Save(state)
		p.logger.Debug("state updated", "entry_id", entry.ID, "location", state.Location.Key(),
			"available", state.Available, "condition", state.Condition)
	}

	refresh()
	unsub := p.bus.Subscribe(c.SignalKey(), refresh)

	p.mu.Lock()
	if prev, ok := p.unsubs[entry.ID]; ok {
		prev()
	}
	p.unsubs[entry.ID] = unsub
	p.mu.Unlock()
	return nil
}

// UnloadEntry stops listening for the entry's signals and forgets its state.
func (p *Platform) UnloadEntry(_ context.Context, entry integration.Entry) (bool, error) {
	p.mu.Lock()
	unsub, ok := p.unsubs[entry.ID]
	delete(p.unsubs, entry.ID)
	p.mu.Unlock()

	if ok {
		unsub()
	}
	p.store.Delete(entry.Location)
	return true, nil
}
