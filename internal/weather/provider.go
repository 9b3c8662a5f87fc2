package weather

import (
	"context"
	"errors"
	"net"
)

// ErrTransient marks provider failures that are expected to clear on their own:
// network errors, timeouts, error responses and an open circuit.
var ErrTransient = errors.New("transient provider error")

// Client abstracts the weather provider a Coordinator polls.
//
// The accessors return values owned by the client. They are replaced, not
// mutated, on each successful fetch and must be treated as read-only.
type Client interface {
	// SetStation binds the client to station, or resolves the nearest
	// station when station is empty.
	SetStation(ctx context.Context, station string) error

	UpdateObservation(ctx context.Context) error
	UpdateForecast(ctx context.Context) error
	UpdateForecastHourly(ctx context.Context) error

	Station() string
	Stations() []string
	Observation() (*Observation, bool)
	Forecast() (*Forecast, bool)
	ForecastHourly() (*Forecast, bool)
}

// Publisher broadcasts a key-only notification to whoever listens on it.
type Publisher interface {
	Publish(key string)
}

// IsTransient reports whether err belongs to the recoverable fetch error category.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
