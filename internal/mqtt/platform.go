// Package mqtt mirrors every location's state to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/i474232898/nws-weather/internal/dispatcher"
	"github.com/i474232898/nws-weather/internal/entity"
	"github.com/i474232898/nws-weather/internal/integration"
	"github.com/i474232898/nws-weather/internal/weather"
)

// Publisher sends a retained message.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Platform publishes the JSON state of a location after every update cycle.
type Platform struct {
	bus    entity.Subscriber
	pub    Publisher
	prefix string
	logger *slog.Logger

	mu     sync.Mutex
	unsubs map[string]func()
}

var _ integration.Platform = (*Platform)(nil)

func NewPlatform(bus entity.Subscriber, pub Publisher, topicPrefix string, logger *slog.Logger) *Platform {
	if logger == nil {
		logger = slog.Default()
	}
	return &Platform{
		bus:    bus,
		pub:    pub,
		prefix: strings.TrimRight(topicPrefix, "/"),
		logger: logger.With("component", "mqtt"),
		unsubs: make(map[string]func()),
	}
}

func (p *Platform) Name() string { return "mqtt" }

// StateTopic returns the topic a location's state is published to.
func (p *Platform) StateTopic(loc weather.Location) string {
	return fmt.Sprintf("%s/%s/state", p.prefix, loc.Key())
}

func (p *Platform) SetupEntry(_ context.Context, entry integration.Entry, c *weather.Coordinator) error {
	var handler dispatcher.Handler = func() { p.publish(entry.ID, c) }
	handler()

	unsub := p.bus.Subscribe(c.SignalKey(), handler)
	p.mu.Lock()
	if prev, ok := p.unsubs[entry.ID]; ok {
		prev()
	}
	p.unsubs[entry.ID] = unsub
	p.mu.Unlock()
	return nil
}

func (p *Platform) UnloadEntry(_ context.Context, entry integration.Entry) (bool, error) {
	p.mu.Lock()
	unsub, ok := p.unsubs[entry.ID]
	delete(p.unsubs, entry.ID)
	p.mu.Unlock()

	if ok {
		unsub()
	}
	return true, nil
}

func (p *Platform) publish(entryID string, c *weather.Coordinator) {
	state := entity.BuildState(entryID, c)
	topic := p.StateTopic(state.Location)

	data, err := json.Marshal(state)
	if err != nil {
		p.logger.Error("marshal state", "entry_id", entryID, "error", err)
		return
	}

	if err := p.pub.Publish(topic, data); err != nil {
		if errors.Is(err, ErrNotConnected) {
			p.logger.Debug("publish skipped; not connected", "topic", topic)
			return
		}
		p.logger.Error("publish state", "topic", topic, "error", err)
		return
	}
	p.logger.Debug("published state", "topic", topic, "available", state.Available)
}
