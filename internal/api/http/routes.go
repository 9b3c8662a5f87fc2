package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/i474232898/nws-weather/internal/entity"
	"github.com/i474232898/nws-weather/internal/integration"
	"github.com/i474232898/nws-weather/internal/store"
	"github.com/i474232898/nws-weather/internal/weather"
)

var validate = validator.New()

// refreshTimeout bounds a refresh request, which runs a full update cycle.
const refreshTimeout = 30 * time.Second

// StateReader exposes the latest state per location.
type StateReader interface {
	Get(loc weather.Location) (weather.State, error)
}

type locationView struct {
	ID       string           `json:"id"`
	Location weather.Location `json:"location"`
	Station  string           `json:"station"`
	Stations []string         `json:"stations"`
	Status   weather.Status   `json:"status"`
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, reg *integration.Registry, states StateReader) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "nws-weather",
			"locations": len(reg.Entries(weather.Domain)),
		})
	})

	v1 := app.Group("/api/v1")

	v1.Get("/locations", func(c *fiber.Ctx) error {
		views := lo.Map(reg.Entries(weather.Domain), func(l integration.Loaded, _ int) locationView {
			return locationView{
				ID:       l.Entry.ID,
				Location: l.Entry.Location,
				Station:  l.Coordinator.Station(),
				Stations: l.Coordinator.Stations(),
				Status:   l.Coordinator.Status(),
			}
		})
		return c.JSON(views)
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		locReq, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		state, err := states.Get(locReq.toLocation())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data for requested location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}

		state.Forecast, state.ForecastHourly = nil, nil
		return c.JSON(state)
	})

	v1.Get("/weather/forecast", func(c *fiber.Ctx) error {
		var req forecastQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := req.Location.toLocation()
		state, err := states.Get(loc)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data for requested location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch forecast")
		}

		periods := lo.Ternary(req.Hourly, state.ForecastHourly, state.Forecast)
		if len(periods) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "no forecast available yet")
		}

		return c.JSON(fiber.Map{
			"location":    loc,
			"station":     state.Station,
			"hourly":      req.Hourly,
			"lastAttempt": state.LastAttempt,
			"periods":     periods,
		})
	})

	v1.Post("/locations/:id/refresh", func(c *fiber.Ctx) error {
		id := c.Params("id")
		loaded, ok := reg.Lookup(weather.Domain, id)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown location id")
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), refreshTimeout)
		defer cancel()

		if err := loaded.Coordinator.Update(ctx); err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}

		state := entity.BuildState(id, loaded.Coordinator)
		state.Forecast, state.ForecastHourly = nil, nil
		return c.JSON(state)
	})
}

// locationQuery holds query parameters for identifying a location.
type locationQuery struct {
	Latitude  *float64 `validate:"required,min=-90,max=90"`
	Longitude *float64 `validate:"required,min=-180,max=180"`
}

func (l locationQuery) toLocation() weather.Location {
	return weather.Location{
		Latitude:  *l.Latitude,
		Longitude: *l.Longitude,
	}
}

func parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	var q locationQuery

	lat, err := parseFloatQuery(c, "latitude")
	if err != nil {
		return q, err
	}
	lon, err := parseFloatQuery(c, "longitude")
	if err != nil {
		return q, err
	}
	q.Latitude, q.Longitude = lat, lon

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

func parseFloatQuery(c *fiber.Ctx, key string) (*float64, error) {
	s := c.Query(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New("invalid " + key + "; use a decimal number")
	}
	return &v, nil
}

// forecastQuery holds query parameters for the forecast endpoint.
type forecastQuery struct {
	Location locationQuery
	Hourly   bool
}

func (f *forecastQuery) bind(c *fiber.Ctx) error {
	loc, err := parseLocationQuery(c)
	if err != nil {
		return err
	}
	f.Location = loc

	if s := c.Query("hourly"); s != "" {
		hourly, err := strconv.ParseBool(s)
		if err != nil {
			return errors.New("invalid hourly; use true or false")
		}
		f.Hourly = hourly
	}
	return nil
}
