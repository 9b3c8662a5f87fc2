package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/i474232898/nws-weather/internal/weather"
)

func fp(v float64) *float64 { return &v }

func TestLocationConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		lc      LocationConfig
		wantErr error
		ok      bool
	}{
		{name: "key only", lc: LocationConfig{APIKey: "k"}, ok: true},
		{name: "key and both coordinates", lc: LocationConfig{APIKey: "k", Latitude: fp(40), Longitude: fp(-105)}, ok: true},
		{name: "station", lc: LocationConfig{APIKey: "k", Station: "KBJC"}, ok: true},
		{name: "latitude only", lc: LocationConfig{APIKey: "k", Latitude: fp(40)}, wantErr: ErrIncompleteCoordinates},
		{name: "longitude only", lc: LocationConfig{APIKey: "k", Longitude: fp(-105)}, wantErr: ErrIncompleteCoordinates},
		{name: "missing key", lc: LocationConfig{}},
		{name: "latitude out of range", lc: LocationConfig{APIKey: "k", Latitude: fp(91), Longitude: fp(0)}},
		{name: "longitude out of range", lc: LocationConfig{APIKey: "k", Latitude: fp(0), Longitude: fp(-181)}},
		{name: "station not alphanumeric", lc: LocationConfig{APIKey: "k", Station: "K-BJC"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.lc.Validate()
			if tt.ok {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLocationConfigResolve(t *testing.T) {
	home := &weather.Location{Latitude: 39.7, Longitude: -104.9}

	got, err := LocationConfig{APIKey: "k", Latitude: fp(40), Longitude: fp(-105)}.Resolve(home)
	if err != nil || got != (weather.Location{Latitude: 40, Longitude: -105}) {
		t.Fatalf("Resolve with coordinates = %+v, %v", got, err)
	}

	got, err = LocationConfig{APIKey: "k"}.Resolve(home)
	if err != nil || got != *home {
		t.Fatalf("Resolve from home = %+v, %v", got, err)
	}

	if _, err := (LocationConfig{APIKey: "k"}).Resolve(nil); !errors.Is(err, ErrNoLocation) {
		t.Fatalf("Resolve without home = %v, want ErrNoLocation", err)
	}
}

func TestParseLocations(t *testing.T) {
	single := []byte(`
nws:
  api_key: abc
  latitude: 40
  longitude: -105
`)
	list := []byte(`
nws:
  - api_key: abc
    station: KBJC
  - api_key: def
    latitude: 35.2
    longitude: -97.4
`)

	got, err := ParseLocations(single)
	if err != nil {
		t.Fatalf("single: %v", err)
	}
	if len(got) != 1 || got[0].APIKey != "abc" || *got[0].Latitude != 40 {
		t.Fatalf("single = %+v", got)
	}

	got, err = ParseLocations(list)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Station != "KBJC" || got[0].HasCoordinates() || *got[1].Longitude != -97.4 {
		t.Fatalf("list = %+v", got)
	}

	if _, err := ParseLocations([]byte("other: 1\n")); err == nil {
		t.Fatal("missing nws key: want error")
	}
	if _, err := ParseLocations([]byte("nws: abc\n")); err == nil {
		t.Fatal("scalar nws: want error")
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "LOG_LEVEL", "PORT", "HTTP_TIMEOUT", "UPDATE_TIMEOUT",
		"NWS_BASE_URL", "NWS_RATE_LIMIT_RPS", "NWS_LOCATIONS_FILE", "NWS_API_KEY",
		"NWS_LATITUDES", "NWS_LONGITUDES", "NWS_STATIONS",
		"HOME_LATITUDE", "HOME_LONGITUDE", "HOME_CITY", "HOME_COUNTRY", "GEOCODER_API_KEY",
		"MQTT_BROKER", "MQTT_PORT", "MQTT_CLIENT_ID", "MQTT_TOPIC_PREFIX",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("NWS_API_KEY", "me@example.com")
	t.Setenv("NWS_LATITUDES", "40, 35.2")
	t.Setenv("NWS_LONGITUDES", "-105,-97.4")
	t.Setenv("NWS_STATIONS", ",KOUN")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("UPDATE_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.UpdateTimeout != 5*time.Second || cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("timeouts = %v, %v", cfg.UpdateTimeout, cfg.HTTPTimeout)
	}
	if cfg.Port != "8080" || cfg.NWSRateLimit != 1 || cfg.MQTT.Enabled() {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if len(cfg.Locations) != 2 {
		t.Fatalf("Locations = %d, want 2", len(cfg.Locations))
	}
	if cfg.Locations[0].Station != "" || cfg.Locations[1].Station != "KOUN" {
		t.Errorf("stations = %q, %q", cfg.Locations[0].Station, cfg.Locations[1].Station)
	}
	if cfg.Home != nil {
		t.Errorf("Home = %+v, want nil", cfg.Home)
	}
}

func TestLoadMismatchedCoordinateLists(t *testing.T) {
	clearEnv(t)
	t.Setenv("NWS_API_KEY", "k")
	t.Setenv("NWS_LATITUDES", "40,41")
	t.Setenv("NWS_LONGITUDES", "-105")

	if _, err := Load(); !errors.Is(err, ErrIncompleteCoordinates) {
		t.Fatalf("Load() = %v, want ErrIncompleteCoordinates", err)
	}
}

func TestLoadFromFileRejectsHalfCoordinates(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "locations.yaml")
	if err := os.WriteFile(path, []byte("nws:\n  api_key: k\n  latitude: 40\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NWS_LOCATIONS_FILE", path)

	if _, err := Load(); !errors.Is(err, ErrIncompleteCoordinates) {
		t.Fatalf("Load() = %v, want ErrIncompleteCoordinates", err)
	}
}

func TestLoadNoLocations(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("Load() with no locations: want error")
	}
}

func TestLoadHome(t *testing.T) {
	clearEnv(t)
	t.Setenv("NWS_API_KEY", "k")
	t.Setenv("HOME_CITY", "Boulder")
	t.Setenv("HOME_COUNTRY", "US")
	t.Setenv("GEOCODER_API_KEY", "g")

	orig := geocode
	t.Cleanup(func() { geocode = orig })
	geocode = func(apiKey, city, country string) (weather.Location, error) {
		if apiKey != "g" || city != "Boulder" || country != "US" {
			t.Errorf("geocode(%q, %q, %q)", apiKey, city, country)
		}
		return weather.Location{Latitude: 40.01, Longitude: -105.27}, nil
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Home == nil || cfg.Home.Latitude != 40.01 {
		t.Fatalf("Home = %+v", cfg.Home)
	}

	t.Setenv("HOME_LATITUDE", "39.5")
	t.Setenv("HOME_LONGITUDE", "-104")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *cfg.Home != (weather.Location{Latitude: 39.5, Longitude: -104}) {
		t.Fatalf("Home = %+v, want explicit coordinates", cfg.Home)
	}
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Error("ParseLogLevel(loud): want error")
	}
}
