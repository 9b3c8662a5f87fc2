package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/i474232898/nws-weather/internal/config"
	"github.com/i474232898/nws-weather/internal/dispatcher"
	"github.com/i474232898/nws-weather/internal/integration"
	"github.com/i474232898/nws-weather/internal/weather"
)

type message struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	err  error
	sent []message
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, message{topic, payload})
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type stubClient struct{}

func (stubClient) SetStation(context.Context, string) error   { return nil }
func (stubClient) UpdateObservation(context.Context) error    { return nil }
func (stubClient) UpdateForecast(context.Context) error       { return weather.ErrTransient }
func (stubClient) UpdateForecastHourly(context.Context) error { return nil }
func (stubClient) Station() string                            { return "KBJC" }
func (stubClient) Stations() []string                         { return []string{"KBJC"} }
func (stubClient) Observation() (*weather.Observation, bool)  { return nil, false }
func (stubClient) Forecast() (*weather.Forecast, bool)        { return nil, false }
func (stubClient) ForecastHourly() (*weather.Forecast, bool)  { return nil, false }

func TestPlatformPublishesOnSignal(t *testing.T) {
	bus := dispatcher.New(nil)
	pub := &fakePublisher{}
	p := NewPlatform(bus, pub, "nws/", nil)

	loc := weather.Location{Latitude: 40, Longitude: -105.5}
	coord := weather.NewCoordinator(loc, stubClient{}, bus, nil)
	entry := integration.Entry{ID: "e1", Location: loc}
	ctx := context.Background()

	if err := p.SetupEntry(ctx, entry, coord); err != nil {
		t.Fatalf("SetupEntry: %v", err)
	}
	if pub.count() != 1 {
		t.Fatalf("published %d on setup, want 1", pub.count())
	}

	if err := coord.Update(ctx); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if pub.count() != 2 {
		t.Fatalf("published %d after update, want 2", pub.count())
	}

	last := pub.sent[1]
	if last.topic != "nws/40_-105.5/state" {
		t.Errorf("topic = %q", last.topic)
	}
	var state weather.State
	if err := json.Unmarshal(last.payload, &state); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if state.EntryID != "e1" || state.Station != "KBJC" || state.Available {
		t.Errorf("state = %+v; want e1, KBJC, unavailable", state)
	}

	if ok, err := p.UnloadEntry(ctx, entry); !ok || err != nil {
		t.Fatalf("UnloadEntry = %v, %v", ok, err)
	}
	if err := coord.Update(ctx); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if pub.count() != 2 {
		t.Errorf("published after unload")
	}
}

func TestPlatformToleratesPublishErrors(t *testing.T) {
	bus := dispatcher.New(nil)
	pub := &fakePublisher{err: ErrNotConnected}
	p := NewPlatform(bus, pub, "nws", nil)

	loc := weather.Location{Latitude: 40, Longitude: -105}
	coord := weather.NewCoordinator(loc, stubClient{}, bus, nil)
	if err := p.SetupEntry(context.Background(), integration.Entry{ID: "e1", Location: loc}, coord); err != nil {
		t.Fatalf("SetupEntry: %v", err)
	}

	pub.err = errors.New("broker refused")
	if err := coord.Update(context.Background()); err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestClientPublishRequiresConnection(t *testing.T) {
	c := NewClient(config.MQTTConfig{Broker: "127.0.0.1", Port: 1, ClientID: "test"}, nil)
	if err := c.Publish("nws/x/state", []byte("{}")); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Publish = %v, want ErrNotConnected", err)
	}
	c.Disconnect()
	c.Disconnect()
	if err := c.Connect(context.Background()); err == nil {
		t.Fatal("Connect after Disconnect: want error")
	}
}
