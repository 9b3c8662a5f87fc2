package providers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/nws-weather/internal/weather"
)

const (
	DefaultNWSBaseURL = "https://api.weather.gov"
	userAgentSuffix   = "nws-weather"
)

// ErrNoStations is returned when the provider lists no station near the location.
var ErrNoStations = errors.New("no observation stations found")

// NWSOptions configures an NWSClient.
type NWSOptions struct {
	BaseURL string
	// APIKey is sent as part of the User-Agent, which is how api.weather.gov
	// identifies callers.
	APIKey  string
	Timeout time.Duration
	// RPS bounds outgoing requests per second; zero disables limiting.
	RPS float64
	// BreakerTimeout is how long a tripped endpoint stays open before a
	// trial request is let through. Zero means two minutes.
	BreakerTimeout time.Duration
}

const defaultBreakerTimeout = 2 * time.Minute

// breakers trip independently so a failing endpoint cannot starve the others.
type breakers struct {
	points         *gobreaker.CircuitBreaker
	observation    *gobreaker.CircuitBreaker
	forecast       *gobreaker.CircuitBreaker
	forecastHourly *gobreaker.CircuitBreaker
}

func newBreakers(prefix string, timeout time.Duration) breakers {
	newCB := func(item string) *gobreaker.CircuitBreaker {
		return gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        prefix + "_" + item,
			MaxRequests: 1,
			Interval:    10 * time.Minute,
			Timeout:     timeout,
		})
	}
	return breakers{
		points:         newCB("points"),
		observation:    newCB("observation"),
		forecast:       newCB("forecast"),
		forecastHourly: newCB("forecast_hourly"),
	}
}

// NWSClient implements weather.Client for the National Weather Service API.
type NWSClient struct {
	name     string
	location weather.Location
	baseURL  string
	httpCfg  HTTPClientConfig
	circuits breakers

	mu             sync.RWMutex
	station        string
	stations       []string
	points         *pointsInfo
	observation    *weather.Observation
	forecast       *weather.Forecast
	forecastHourly *weather.Forecast
}

type pointsInfo struct {
	forecastURL       string
	forecastHourlyURL string
	stationsURL       string
}

var _ weather.Client = (*NWSClient)(nil)

func NewNWSClient(loc weather.Location, opts NWSOptions) *NWSClient {
	baseURL := strings.TrimRight(lo.CoalesceOrEmpty(opts.BaseURL, DefaultNWSBaseURL), "/")

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", strings.TrimSpace(opts.APIKey+" "+userAgentSuffix))

	var limiter *rate.Limiter
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}

	breakerTimeout := lo.Ternary(opts.BreakerTimeout > 0, opts.BreakerTimeout, defaultBreakerTimeout)

	return &NWSClient{
		name:     "nws",
		location: loc,
		baseURL:  baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Limiter: limiter,
		},
		circuits: newBreakers("nws_"+loc.Key(), breakerTimeout),
	}
}

func (p *NWSClient) Name() string {
	return p.name
}

// SetStation binds the client to station without any request. An empty
// station resolves the stations near the location and picks the nearest.
func (p *NWSClient) SetStation(ctx context.Context, station string) error {
	if station != "" {
		p.mu.Lock()
		p.station = station
		p.stations = []string{station}
		p.mu.Unlock()
		return nil
	}

	points, err := p.ensurePoints(ctx)
	if err != nil {
		return err
	}

	var payload struct {
		Features []struct {
			Properties struct {
				StationIdentifier string `json:"stationIdentifier"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuits.points, points.stationsURL, &payload); err != nil {
		return fmt.Errorf("get stations: %w", err)
	}

	stations := make([]string, 0, len(payload.Features))
	for _, f := range payload.Features {
		if f.Properties.StationIdentifier != "" {
			stations = append(stations, f.Properties.StationIdentifier)
		}
	}
	if len(stations) == 0 {
		return fmt.Errorf("%w for %s", ErrNoStations, p.location.Key())
	}

	p.mu.Lock()
	p.stations = stations
	p.station = stations[0]
	p.mu.Unlock()
	return nil
}

func (p *NWSClient) ensurePoints(ctx context.Context) (*pointsInfo, error) {
	p.mu.RLock()
	points := p.points
	p.mu.RUnlock()
	if points != nil {
		return points, nil
	}

	var payload struct {
		Properties struct {
			Forecast            string `json:"forecast"`
			ForecastHourly      string `json:"forecastHourly"`
			ObservationStations string `json:"observationStations"`
		} `json:"properties"`
	}
	u := fmt.Sprintf("%s/points/%.4f,%.4f", p.baseURL, p.location.Latitude, p.location.Longitude)
	if err := getJSON(ctx, p.httpCfg, p.circuits.points, u, &payload); err != nil {
		return nil, fmt.Errorf("get points: %w", err)
	}

	points = &pointsInfo{
		forecastURL:       payload.Properties.Forecast,
		forecastHourlyURL: payload.Properties.ForecastHourly,
		stationsURL:       payload.Properties.ObservationStations,
	}
	p.mu.Lock()
	p.points = points
	p.mu.Unlock()
	return points, nil
}

// quantity is an NWS measurement; Value is null when not reported.
type quantity struct {
	UnitCode string   `json:"unitCode"`
	Value    *float64 `json:"value"`
}

func (p *NWSClient) UpdateObservation(ctx context.Context) error {
	station := p.Station()
	if station == "" {
		return fmt.Errorf("update observation: station not set")
	}

	var payload struct {
		Properties struct {
			Timestamp          time.Time `json:"timestamp"`
			TextDescription    string    `json:"textDescription"`
			Icon               string    `json:"icon"`
			Temperature        quantity  `json:"temperature"`
			Dewpoint           quantity  `json:"dewpoint"`
			RelativeHumidity   quantity  `json:"relativeHumidity"`
			WindSpeed          quantity  `json:"windSpeed"`
			WindGust           quantity  `json:"windGust"`
			WindDirection      quantity  `json:"windDirection"`
			BarometricPressure quantity  `json:"barometricPressure"`
			SeaLevelPressure   quantity  `json:"seaLevelPressure"`
			Visibility         quantity  `json:"visibility"`
		} `json:"properties"`
	}
	u := fmt.Sprintf("%s/stations/%s/observations/latest", p.baseURL, station)
	if err := getJSON(ctx, p.httpCfg, p.circuits.observation, u, &payload); err != nil {
		return fmt.Errorf("get observation: %w", err)
	}

	props := payload.Properties
	obs := &weather.Observation{
		Station:            station,
		Timestamp:          props.Timestamp.UTC(),
		Description:        props.TextDescription,
		Icon:               props.Icon,
		TemperatureC:       props.Temperature.Value,
		DewpointC:          props.Dewpoint.Value,
		HumidityPct:        props.RelativeHumidity.Value,
		WindSpeedKmh:       props.WindSpeed.Value,
		WindGustKmh:        props.WindGust.Value,
		WindDirectionDeg:   props.WindDirection.Value,
		PressurePa:         props.BarometricPressure.Value,
		SeaLevelPressurePa: props.SeaLevelPressure.Value,
		VisibilityM:        props.Visibility.Value,
	}

	p.mu.Lock()
	p.observation = obs
	p.mu.Unlock()
	return nil
}

func (p *NWSClient) UpdateForecast(ctx context.Context) error {
	points, err := p.ensurePoints(ctx)
	if err != nil {
		return err
	}
	fc, err := p.fetchForecast(ctx, p.circuits.forecast, points.forecastURL)
	if err != nil {
		return fmt.Errorf("get forecast: %w", err)
	}
	p.mu.Lock()
	p.forecast = fc
	p.mu.Unlock()
	return nil
}

func (p *NWSClient) UpdateForecastHourly(ctx context.Context) error {
	points, err := p.ensurePoints(ctx)
	if err != nil {
		return err
	}
	fc, err := p.fetchForecast(ctx, p.circuits.forecastHourly, points.forecastHourlyURL)
	if err != nil {
		return fmt.Errorf("get hourly forecast: %w", err)
	}
	p.mu.Lock()
	p.forecastHourly = fc
	p.mu.Unlock()
	return nil
}

func (p *NWSClient) fetchForecast(ctx context.Context, cb *gobreaker.CircuitBreaker, url string) (*weather.Forecast, error) {
	if url == "" {
		return nil, fmt.Errorf("forecast url not provided for %s", p.location.Key())
	}

	var payload struct {
		Properties struct {
			UpdateTime time.Time `json:"updateTime"`
			Periods    []struct {
				Number                     int       `json:"number"`
				Name                       string    `json:"name"`
				StartTime                  time.Time `json:"startTime"`
				EndTime                    time.Time `json:"endTime"`
				IsDaytime                  bool      `json:"isDaytime"`
				Temperature                float64   `json:"temperature"`
				TemperatureUnit            string    `json:"temperatureUnit"`
				ProbabilityOfPrecipitation quantity  `json:"probabilityOfPrecipitation"`
				WindSpeed                  string    `json:"windSpeed"`
				WindDirection              string    `json:"windDirection"`
				Icon                       string    `json:"icon"`
				ShortForecast              string    `json:"shortForecast"`
				DetailedForecast           string    `json:"detailedForecast"`
			} `json:"periods"`
		} `json:"properties"`
	}
	if err := getJSON(ctx, p.httpCfg, cb, url, &payload); err != nil {
		return nil, err
	}

	periods := make([]weather.ForecastPeriod, 0, len(payload.Properties.Periods))
	for _, pr := range payload.Properties.Periods {
		periods = append(periods, weather.ForecastPeriod{
			Number:           pr.Number,
			Name:             pr.Name,
			StartTime:        pr.StartTime,
			EndTime:          pr.EndTime,
			IsDaytime:        pr.IsDaytime,
			Temperature:      pr.Temperature,
			TemperatureUnit:  pr.TemperatureUnit,
			PrecipitationPct: pr.ProbabilityOfPrecipitation.Value,
			WindSpeed:        pr.WindSpeed,
			WindDirection:    pr.WindDirection,
			Icon:             pr.Icon,
			ShortForecast:    pr.ShortForecast,
			DetailedForecast: pr.DetailedForecast,
		})
	}

	return &weather.Forecast{
		Updated: payload.Properties.UpdateTime.UTC(),
		Periods: periods,
	}, nil
}

func (p *NWSClient) Station() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.station
}

// Stations returns a copy of the candidate stations, nearest first.
func (p *NWSClient) Stations() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.stations)
}

func (p *NWSClient) Observation() (*weather.Observation, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.observation, p.observation != nil
}

func (p *NWSClient) Forecast() (*weather.Forecast, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.forecast, p.forecast != nil
}

func (p *NWSClient) ForecastHourly() (*weather.Forecast, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.forecastHourly, p.forecastHourly != nil
}
