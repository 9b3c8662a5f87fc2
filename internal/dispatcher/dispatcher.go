// Package dispatcher implements the keyed publish/subscribe bus coordinators
// use to tell subscribers that new data is available.
package dispatcher

import (
	"log/slog"
	"sync"
)

// Handler is invoked for every publish on the key it subscribed to.
type Handler func()

type subscription struct {
	id      uint64
	handler Handler
}

// Dispatcher fans a key-only signal out to its subscribers. Handlers run
// synchronously on the publishing goroutine, in subscription order.
type Dispatcher struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	nextID uint64
	logger *slog.Logger
}

func New(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		subs:   make(map[string][]subscription),
		logger: logger.With("component", "dispatcher"),
	}
}

// Subscribe registers handler for key and returns a function that removes it.
// The returned function is safe to call more than once.
func (d *Dispatcher) Subscribe(key string, handler Handler) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.subs[key] = append(d.subs[key], subscription{id: id, handler: handler})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.unsubscribe(key, id) })
	}
}

func (d *Dispatcher) unsubscribe(key string, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.subs[key]
	for i, s := range subs {
		if s.id == id {
			subs = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(d.subs, key)
		return
	}
	d.subs[key] = subs
}

// Publish calls every handler subscribed to key. Handlers may subscribe or
// unsubscribe while being called; the change applies to the next publish.
func (d *Dispatcher) Publish(key string) {
	d.mu.RLock()
	subs := d.subs[key]
	d.mu.RUnlock()

	d.logger.Debug("publish", "key", key, "subscribers", len(subs))
	for _, s := range subs {
		s.handler()
	}
}

// Subscribers returns the number of handlers registered for key.
func (d *Dispatcher) Subscribers(key string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs[key])
}
