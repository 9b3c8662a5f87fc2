package weather

import (
	"strconv"
	"time"
)

// Domain is the namespace used for signal keys and the registry.
const Domain = "nws"

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
	ConditionWindy   Condition = "windy"
)

// Location is an immutable latitude/longitude pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Key returns the base unique id of the location, e.g. "40.7_-74.01".
func (l Location) Key() string {
	return formatCoord(l.Latitude) + "_" + formatCoord(l.Longitude)
}

// SignalKey returns the key subscribers listen on for this location's updates.
func (l Location) SignalKey() string {
	return Domain + "_" + l.Key()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Observation is the latest reading reported by a station. Quantities the
// station did not report are nil.
type Observation struct {
	Station     string    `json:"station"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`

	TemperatureC       *float64 `json:"temperatureC"`
	DewpointC          *float64 `json:"dewpointC"`
	HumidityPct        *float64 `json:"humidityPct"`
	WindSpeedKmh       *float64 `json:"windSpeedKmh"`
	WindGustKmh        *float64 `json:"windGustKmh"`
	WindDirectionDeg   *float64 `json:"windDirectionDeg"`
	PressurePa         *float64 `json:"pressurePa"`
	SeaLevelPressurePa *float64 `json:"seaLevelPressurePa"`
	VisibilityM        *float64 `json:"visibilityM"`
}

// ForecastPeriod is one entry of a day/night or hourly forecast.
type ForecastPeriod struct {
	Number          int       `json:"number"`
	Name            string    `json:"name"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	IsDaytime       bool      `json:"isDaytime"`
	Temperature     float64   `json:"temperature"`
	TemperatureUnit string    `json:"temperatureUnit"`

	// PrecipitationPct is nil when the period carries no probability.
	PrecipitationPct *float64 `json:"precipitationPct"`
	WindSpeed        string   `json:"windSpeed"`
	WindDirection    string   `json:"windDirection"`
	Icon             string   `json:"icon"`
	ShortForecast    string   `json:"shortForecast"`
	DetailedForecast string   `json:"detailedForecast"`
}

// Forecast is an ordered list of periods as published by the provider.
type Forecast struct {
	Updated time.Time        `json:"updated"`
	Periods []ForecastPeriod `json:"periods"`
}

// Status reports the outcome of the latest attempt of each item.
type Status struct {
	Observation    bool      `json:"observation"`
	Forecast       bool      `json:"forecast"`
	ForecastHourly bool      `json:"forecastHourly"`
	LastAttempt    time.Time `json:"lastAttempt"`
}

// State is the presentation of one location as seen by subscribers.
type State struct {
	EntryID   string    `json:"entryId"`
	Location  Location  `json:"location"`
	Station   string    `json:"station"`
	Condition Condition `json:"condition"`

	TemperatureC *float64  `json:"temperatureC"`
	DewpointC    *float64  `json:"dewpointC"`
	HumidityPct  *float64  `json:"humidityPct"`
	PressureHpa  *float64  `json:"pressureHpa"`
	WindSpeedKmh *float64  `json:"windSpeedKmh"`
	WindBearing  *float64  `json:"windBearing"`
	VisibilityKm *float64  `json:"visibilityKm"`
	ObservedAt   time.Time `json:"observedAt,omitempty"`

	Available   bool      `json:"available"`
	LastAttempt time.Time `json:"lastAttempt"`

	Forecast       []ForecastEntry `json:"forecast,omitempty"`
	ForecastHourly []ForecastEntry `json:"forecastHourly,omitempty"`
}

// ForecastEntry is a forecast period normalized to metric units.
type ForecastEntry struct {
	Time             time.Time `json:"time"`
	Name             string    `json:"name,omitempty"`
	Daytime          bool      `json:"daytime"`
	Condition        Condition `json:"condition"`
	TemperatureC     float64   `json:"temperatureC"`
	PrecipitationPct *float64  `json:"precipitationPct,omitempty"`
	WindSpeed        string    `json:"windSpeed,omitempty"`
	WindBearing      string    `json:"windBearing,omitempty"`
	Detailed         string    `json:"detailed,omitempty"`
}
