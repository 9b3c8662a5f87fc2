package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"github.com/i474232898/nws-weather/internal/weather"
	"github.com/i474232898/nws-weather/internal/weather/providers"
)

type AppConfig struct {
	// Env is "dev" or "prod" and selects the log format.
	Env      string
	LogLevel slog.Level
	Port     string

	HTTPTimeout   time.Duration
	UpdateTimeout time.Duration

	NWSBaseURL   string
	NWSRateLimit float64

	// Locations to track, before home location resolution.
	Locations []LocationConfig
	// Home is used by locations without coordinates; nil when not configured.
	Home *weather.Location

	MQTT MQTTConfig
}

type MQTTConfig struct {
	Broker      string
	Port        int
	ClientID    string
	TopicPrefix string
}

// Enabled reports whether a broker is configured.
func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

// Load reads configuration from .env, the environment and the optional
// locations file, and validates every location.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}

	cfg.Env = getenvDefault("APP_ENV", "dev")
	level, err := ParseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level
	cfg.Port = getenvDefault("PORT", "8080")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.UpdateTimeout, err = getenvDuration("UPDATE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	cfg.NWSBaseURL = getenvDefault("NWS_BASE_URL", providers.DefaultNWSBaseURL)
	cfg.NWSRateLimit, err = strconv.ParseFloat(getenvDefault("NWS_RATE_LIMIT_RPS", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid NWS_RATE_LIMIT_RPS: %w", err)
	}

	cfg.MQTT = MQTTConfig{
		Broker:      os.Getenv("MQTT_BROKER"),
		Port:        getenvInt("MQTT_PORT", 1883),
		ClientID:    getenvDefault("MQTT_CLIENT_ID", "nws-weather"),
		TopicPrefix: getenvDefault("MQTT_TOPIC_PREFIX", weather.Domain),
	}

	if path := os.Getenv("NWS_LOCATIONS_FILE"); path != "" {
		cfg.Locations, err = LoadLocationsFile(path)
	} else {
		cfg.Locations, err = locationsFromEnv()
	}
	if err != nil {
		return nil, err
	}
	if len(cfg.Locations) == 0 {
		return nil, errors.New("no locations configured: set NWS_LOCATIONS_FILE or NWS_API_KEY")
	}
	for i, lc := range cfg.Locations {
		if err := lc.Validate(); err != nil {
			return nil, fmt.Errorf("location %d: %w", i, err)
		}
	}

	cfg.Home, err = loadHome()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// locationsFromEnv builds locations from NWS_API_KEY and the comma-separated
// NWS_LATITUDES, NWS_LONGITUDES and NWS_STATIONS lists.
func locationsFromEnv() ([]LocationConfig, error) {
	apiKey := os.Getenv("NWS_API_KEY")
	if apiKey == "" {
		return nil, nil
	}

	lats := splitList(os.Getenv("NWS_LATITUDES"))
	lons := splitList(os.Getenv("NWS_LONGITUDES"))
	stations := splitList(os.Getenv("NWS_STATIONS"))
	if len(lats) != len(lons) {
		return nil, fmt.Errorf("number of latitudes and longitudes must be the same: %w", ErrIncompleteCoordinates)
	}

	n := max(len(lats), len(stations), 1)
	locs := make([]LocationConfig, 0, n)
	for i := range n {
		lc := LocationConfig{APIKey: apiKey}
		if i < len(lats) {
			lat, err := strconv.ParseFloat(lats[i], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid NWS_LATITUDES[%d]: %w", i, err)
			}
			lon, err := strconv.ParseFloat(lons[i], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid NWS_LONGITUDES[%d]: %w", i, err)
			}
			lc.Latitude, lc.Longitude = &lat, &lon
		}
		if i < len(stations) {
			lc.Station = stations[i]
		}
		locs = append(locs, lc)
	}
	return locs, nil
}

func loadHome() (*weather.Location, error) {
	latStr, lonStr := os.Getenv("HOME_LATITUDE"), os.Getenv("HOME_LONGITUDE")
	if latStr != "" || lonStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid HOME_LATITUDE: %w", err)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid HOME_LONGITUDE: %w", err)
		}
		return &weather.Location{Latitude: lat, Longitude: lon}, nil
	}

	city, country := os.Getenv("HOME_CITY"), os.Getenv("HOME_COUNTRY")
	apiKey := os.Getenv("GEOCODER_API_KEY")
	if city == "" || apiKey == "" {
		return nil, nil
	}
	loc, err := geocode(apiKey, city, country)
	if err != nil {
		return nil, fmt.Errorf("geocode home %q: %w", city, err)
	}
	return &loc, nil
}

// ParseLogLevel accepts debug, info, warn and error.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

// splitList keeps empty positions so that "KBJC,,KDEN" stays aligned with
// the coordinate lists.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return lo.Map(strings.Split(s, ","), func(p string, _ int) string {
		return strings.TrimSpace(p)
	})
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
