package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/i474232898/nws-weather/internal/config"
	"github.com/i474232898/nws-weather/internal/weather"
)

func newFakeNWS(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/geo+json")
		switch r.URL.Path {
		case "/points/40.0000,-105.0000":
			fmt.Fprintf(w, `{"properties": {
				"forecast": "%[1]s/gridpoints/BOU/1,1/forecast",
				"forecastHourly": "%[1]s/gridpoints/BOU/1,1/forecast/hourly",
				"observationStations": "%[1]s/gridpoints/BOU/1,1/stations"}}`, srv.URL)
		case "/gridpoints/BOU/1,1/stations":
			fmt.Fprint(w, `{"features": [{"properties": {"stationIdentifier": "KBJC"}}]}`)
		case "/stations/KBJC/observations/latest":
			fmt.Fprint(w, `{"properties": {"timestamp": "2024-05-01T12:00:00+00:00",
				"textDescription": "Clear", "temperature": {"value": 18}}}`)
		case "/gridpoints/BOU/1,1/forecast", "/gridpoints/BOU/1,1/forecast/hourly":
			fmt.Fprint(w, `{"properties": {"updateTime": "2024-05-01T11:00:00+00:00", "periods": [
				{"number": 1, "name": "Today", "startTime": "2024-05-01T06:00:00-06:00",
				 "temperature": 50, "temperatureUnit": "F", "shortForecast": "Sunny"}]}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAppStartServeShutdown(t *testing.T) {
	srv := newFakeNWS(t)
	lat, lon := 40.0, -105.0
	cfg := &config.AppConfig{
		Env:           "prod",
		Port:          "0",
		HTTPTimeout:   5 * time.Second,
		UpdateTimeout: 5 * time.Second,
		NWSBaseURL:    srv.URL,
		Locations:     []config.LocationConfig{{APIKey: "me@example.com", Latitude: &lat, Longitude: &lon}},
	}
	a := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if n := a.sched.Len(); n != 1 {
		t.Errorf("scheduled jobs = %d, want 1", n)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/current?latitude=40&longitude=-105", nil)
	resp, err := a.http.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var state weather.State
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Station != "KBJC" || !state.Available || state.Condition != weather.ConditionClear {
		t.Errorf("state = %+v", state)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if a.registry.HasDomain(weather.Domain) {
		t.Error("entries still loaded after shutdown")
	}
	if n := a.sched.Len(); n != 0 {
		t.Errorf("scheduled jobs after shutdown = %d, want 0", n)
	}
}

func TestAppStartFailsWithoutLocations(t *testing.T) {
	cfg := &config.AppConfig{
		NWSBaseURL: "http://127.0.0.1:1",
		Locations:  []config.LocationConfig{{APIKey: "k"}},
	}
	a := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := a.Start(context.Background()); err == nil {
		t.Fatal("Start without home location: want error")
	}
}
