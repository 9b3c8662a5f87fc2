package weather

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	itemObservation    = "observation"
	itemForecast       = "forecast"
	itemForecastHourly = "forecast_hourly"
)

// Coordinator polls one location's client and notifies subscribers after
// every update cycle.
type Coordinator struct {
	location Location
	client   Client
	bus      Publisher
	logger   *slog.Logger
	now      func() time.Time

	// cycleMu serializes update cycles; statusMu guards the flags so that
	// subscribers can read Status while a cycle publishes.
	cycleMu  sync.Mutex
	statusMu sync.RWMutex
	status   Status
}

// NewCoordinator creates a Coordinator. All items start out as successful so
// that the first successful fetch is not reported as a recovery.
func NewCoordinator(loc Location, client Client, bus Publisher, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		location: loc,
		client:   client,
		bus:      bus,
		logger:   logger.With("component", "coordinator", "location", loc.Key()),
		now:      time.Now,
		status: Status{
			Observation:    true,
			Forecast:       true,
			ForecastHourly: true,
		},
	}
}

// SetStation binds the client to station. An empty station resolves the
// nearest one, which requires provider I/O.
func (c *Coordinator) SetStation(ctx context.Context, station string) error {
	if err := c.client.SetStation(ctx, station); err != nil {
		return fmt.Errorf("set station: %w", err)
	}
	c.logger.Debug("nearby station list", "stations", c.client.Stations())
	return nil
}

// Update fetches observation, forecast and hourly forecast in that order and
// then publishes the location's signal, even if every item failed.
//
// Transient fetch errors are absorbed. Any other error stops the cycle,
// leaves the failing item's flag untouched and is returned without publishing.
func (c *Coordinator) Update(ctx context.Context) error {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	station := c.client.Station()
	items := []struct {
		name  string
		fetch func(context.Context) error
		flag  func(*Status) *bool
	}{
		{itemObservation, c.client.UpdateObservation, func(s *Status) *bool { return &s.Observation }},
		{itemForecast, c.client.UpdateForecast, func(s *Status) *bool { return &s.Forecast }},
		{itemForecastHourly, c.client.UpdateForecastHourly, func(s *Status) *bool { return &s.ForecastHourly }},
	}

	for _, it := range items {
		c.statusMu.RLock()
		previous := *it.flag(&c.status)
		c.statusMu.RUnlock()

		success, err := c.updateItem(ctx, it.name, it.fetch, station, previous)
		if err != nil {
			return fmt.Errorf("update %s: %w", it.name, err)
		}

		c.statusMu.Lock()
		*it.flag(&c.status) = success
		c.statusMu.Unlock()
	}

	c.statusMu.Lock()
	c.status.LastAttempt = c.now().UTC()
	c.statusMu.Unlock()

	c.bus.Publish(c.location.SignalKey())
	return nil
}

func (c *Coordinator) updateItem(ctx context.Context, item string, fetch func(context.Context) error, station string, previous bool) (bool, error) {
	c.logger.Debug("updating item", "item", item, "station", station)

	if err := fetch(ctx); err != nil {
		if !IsTransient(err) {
			return previous, err
		}
		if previous {
			c.logger.Warn("error updating item", "item", item, "station", station, "error", err)
		}
		return false, nil
	}

	if !previous {
		c.logger.Info("success updating item", "item", item, "station", station)
	}
	return true, nil
}

// Status returns the outcome of the latest attempt of each item.
func (c *Coordinator) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

func (c *Coordinator) Location() Location {
	return c.location
}

func (c *Coordinator) SignalKey() string {
	return c.location.SignalKey()
}

func (c *Coordinator) Station() string {
	return c.client.Station()
}

func (c *Coordinator) Stations() []string {
	return c.client.Stations()
}

// Observation returns the client's current observation; false means no
// observation has been fetched yet.
func (c *Coordinator) Observation() (*Observation, bool) {
	return c.client.Observation()
}

// Forecast returns the client's current day/night forecast.
func (c *Coordinator) Forecast() (*Forecast, bool) {
	return c.client.Forecast()
}

// ForecastHourly returns the client's current hourly forecast.
func (c *Coordinator) ForecastHourly() (*Forecast, bool) {
	return c.client.ForecastHourly()
}
