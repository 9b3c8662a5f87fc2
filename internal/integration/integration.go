// Package integration sets up and tears down one coordinator per configured
// location and forwards each entry to the subscriber platforms.
package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/nws-weather/internal/weather"
)

const (
	// DefaultScanInterval is the fixed polling interval of every coordinator.
	DefaultScanInterval = 10 * time.Minute
	// DefaultUpdateTimeout bounds a single scheduled update cycle.
	DefaultUpdateTimeout = 30 * time.Second
)

// ErrNotLoaded is returned when unloading an entry that is not set up.
var ErrNotLoaded = errors.New("entry not loaded")

// Timer registers recurring jobs and cancels them by tag.
type Timer interface {
	Every(tag string, interval time.Duration, job func()) error
	Cancel(tag string) error
}

// Platform consumes the data of a loaded entry.
type Platform interface {
	Name() string
	SetupEntry(ctx context.Context, entry Entry, c *weather.Coordinator) error
	// UnloadEntry reports false when the platform could not release the entry.
	UnloadEntry(ctx context.Context, entry Entry) (bool, error)
}

// ClientFactory builds the provider client of an entry.
type ClientFactory func(entry Entry) weather.Client

// Host performs entry setup and unload against an explicit Registry.
type Host struct {
	Bus           weather.Publisher
	Timer         Timer
	NewClient     ClientFactory
	Platforms     []Platform
	Logger        *slog.Logger
	ScanInterval  time.Duration
	UpdateTimeout time.Duration
}

func (h *Host) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// SetupEntry creates the entry's coordinator, binds its station, runs one
// update cycle, schedules further cycles and forwards the entry to every
// platform. On error nothing is left registered.
func (h *Host) SetupEntry(ctx context.Context, reg *Registry, entry Entry) (*weather.Coordinator, error) {
	logger := h.logger().With("entry_id", entry.ID, "location", entry.Location.Key())

	coord := weather.NewCoordinator(entry.Location, h.NewClient(entry), h.Bus, h.Logger)
	reg.put(weather.Domain, Loaded{Entry: entry, Coordinator: coord})

	fail := func(err error) (*weather.Coordinator, error) {
		reg.pop(weather.Domain, entry.ID)
		return nil, err
	}

	// Only does I/O when no station is configured.
	if err := coord.SetStation(ctx, entry.Station); err != nil {
		return fail(fmt.Errorf("setup %s: %w", entry.ID, err))
	}
	if err := coord.Update(ctx); err != nil {
		return fail(fmt.Errorf("setup %s: initial update: %w", entry.ID, err))
	}

	interval := lo.Ternary(h.ScanInterval > 0, h.ScanInterval, DefaultScanInterval)
	if err := h.Timer.Every(entry.ID, interval, h.scheduledUpdate(coord, logger)); err != nil {
		return fail(fmt.Errorf("setup %s: %w", entry.ID, err))
	}

	for _, p := range h.Platforms {
		if err := p.SetupEntry(ctx, entry, coord); err != nil {
			logger.Error("platform setup failed", "platform", p.Name(), "error", err)
			continue
		}
		logger.Debug("platform set up", "platform", p.Name())
	}

	logger.Info("entry set up", "station", coord.Station())
	return coord, nil
}

func (h *Host) scheduledUpdate(coord *weather.Coordinator, logger *slog.Logger) func() {
	timeout := lo.Ternary(h.UpdateTimeout > 0, h.UpdateTimeout, DefaultUpdateTimeout)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := coord.Update(ctx); err != nil {
			logger.Error("scheduled update failed", "error", err)
		}
	}
}

// UnloadEntry unloads the entry from every platform concurrently. Only when
// all of them succeed is the timer cancelled and the entry removed from the
// registry; the domain is removed with its last entry.
func (h *Host) UnloadEntry(ctx context.Context, reg *Registry, entryID string) (bool, error) {
	loaded, ok := reg.Lookup(weather.Domain, entryID)
	if !ok {
		return false, fmt.Errorf("unload %s: %w", entryID, ErrNotLoaded)
	}
	logger := h.logger().With("entry_id", entryID, "location", loaded.Entry.Location.Key())

	results := make([]bool, len(h.Platforms))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range h.Platforms {
		g.Go(func() error {
			ok, err := p.UnloadEntry(gctx, loaded.Entry)
			if err != nil {
				return fmt.Errorf("platform %s: %w", p.Name(), err)
			}
			results[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, fmt.Errorf("unload %s: %w", entryID, err)
	}

	if !lo.EveryBy(results, func(ok bool) bool { return ok }) {
		logger.Warn("entry not unloaded; a platform refused")
		return false, nil
	}

	if err := h.Timer.Cancel(entryID); err != nil {
		logger.Warn("cancel timer", "error", err)
	}
	reg.pop(weather.Domain, entryID)
	logger.Info("entry unloaded")
	return true, nil
}
