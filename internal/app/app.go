// Package app wires configuration, coordinators, platforms and the HTTP API
// into one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/nws-weather/internal/api/http"
	"github.com/i474232898/nws-weather/internal/config"
	"github.com/i474232898/nws-weather/internal/dispatcher"
	"github.com/i474232898/nws-weather/internal/entity"
	"github.com/i474232898/nws-weather/internal/integration"
	"github.com/i474232898/nws-weather/internal/mqtt"
	"github.com/i474232898/nws-weather/internal/scheduler"
	"github.com/i474232898/nws-weather/internal/store"
	"github.com/i474232898/nws-weather/internal/weather"
	"github.com/i474232898/nws-weather/internal/weather/providers"
)

const (
	AppName         = "nws-weather"
	shutdownTimeout = 10 * time.Second
	mqttWait        = 10 * time.Second
)

// App owns every long-lived component of the service.
type App struct {
	cfg    *config.AppConfig
	logger *slog.Logger

	bus      *dispatcher.Dispatcher
	sched    *scheduler.Scheduler
	store    *store.MemoryStore
	registry *integration.Registry
	host     *integration.Host
	mqtt     *mqtt.Client
	http     *fiber.App
}

func New(cfg *config.AppConfig, log *slog.Logger) *App {
	a := &App{
		cfg:      cfg,
		logger:   log,
		bus:      dispatcher.New(log),
		sched:    scheduler.New(log),
		store:    store.NewMemoryStore(),
		registry: integration.NewRegistry(),
	}

	platforms := []integration.Platform{entity.NewPlatform(a.bus, a.store, log)}
	if cfg.MQTT.Enabled() {
		a.mqtt = mqtt.NewClient(cfg.MQTT, log)
		platforms = append(platforms, mqtt.NewPlatform(a.bus, a.mqtt, cfg.MQTT.TopicPrefix, log))
	}

	a.host = &integration.Host{
		Bus:   a.bus,
		Timer: a.sched,
		NewClient: func(e integration.Entry) weather.Client {
			return providers.NewNWSClient(e.Location, providers.NWSOptions{
				BaseURL: cfg.NWSBaseURL,
				APIKey:  e.APIKey,
				Timeout: cfg.HTTPTimeout,
				RPS:     cfg.NWSRateLimit,
			})
		},
		Platforms:     platforms,
		Logger:        log,
		ScanInterval:  integration.DefaultScanInterval,
		UpdateTimeout: cfg.UpdateTimeout,
	}

	a.http = newHTTPApp(a.registry, a.store)
	return a
}

func newHTTPApp(reg *integration.Registry, states httpapi.StateReader) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               AppName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          40 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, reg, states)
	return app
}

// Start connects to the broker, sets up every configured location and starts
// the scheduler. Locations that fail to set up are logged and skipped.
func (a *App) Start(ctx context.Context) error {
	entries, err := integration.EntriesFromConfig(a.cfg.Locations, a.cfg.Home, a.logger)
	if err != nil {
		return err
	}

	if a.mqtt != nil {
		cctx, cancel := context.WithTimeout(ctx, mqttWait)
		if err := a.mqtt.Connect(cctx); err != nil {
			a.logger.Warn("mqtt not connected yet; state publishing is skipped until it is", "error", err)
		}
		cancel()
	}

	loaded := 0
	for _, e := range entries {
		if _, err := a.host.SetupEntry(ctx, a.registry, e); err != nil {
			a.logger.Error("entry setup failed", "entry_id", e.ID, "location", e.Location.Key(), "error", err)
			continue
		}
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("none of %d locations could be set up", len(entries))
	}

	a.sched.Start()
	return nil
}

// Run starts the service and blocks until ctx is done, then shuts down.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.http.Listen(":" + a.cfg.Port)
	}()
	a.logger.Info("listening", "port", a.cfg.Port)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		a.logger.Error("http server stopped", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown unloads every entry, stops the scheduler and closes connections.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if err := a.http.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	for _, l := range a.registry.Entries(weather.Domain) {
		if _, err := a.host.UnloadEntry(ctx, a.registry, l.Entry.ID); err != nil {
			errs = append(errs, err)
		}
	}

	a.sched.Stop()
	if a.mqtt != nil {
		a.mqtt.Disconnect()
	}

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
