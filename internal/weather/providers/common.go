package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/nws-weather/internal/weather"
)

// HTTPClientConfig bundles the HTTP client and its resilience settings.
type HTTPClientConfig struct {
	Client  *resty.Client
	Limiter *rate.Limiter
}

var (
	errNoHTTPClient = errors.New("http client not configured")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Unwrap() error {
	return errUnexpected
}

// getJSON performs a rate-limited GET through the circuit breaker and decodes
// the body into out. Transport failures, error responses and an open circuit
// are wrapped with weather.ErrTransient; a body that does not decode is not.
// Failed requests are not retried.
func getJSON(ctx context.Context, cfg HTTPClientConfig, cb *gobreaker.CircuitBreaker, url string, out any) error {
	if cfg.Client == nil {
		return errNoHTTPClient
	}

	if cfg.Limiter != nil {
		if err := cfg.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limit wait: %w", weather.ErrTransient, err)
		}
	}

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.R().
			SetContext(ctx).
			SetHeader("Accept", "application/geo+json").
			Get(url)
		if execErr != nil {
			return nil, execErr
		}
		if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
			return nil, &StatusError{URL: url, StatusCode: resp.StatusCode()}
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %w: %v", weather.ErrTransient, errCircuitOpen, err)
		}
		return fmt.Errorf("%w: %w", weather.ErrTransient, err)
	}

	resp, ok := result.(*resty.Response)
	if !ok {
		return fmt.Errorf("unexpected result type from circuit breaker")
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
