package entity

import (
	"strings"

	"github.com/samber/lo"

	"github.com/i474232898/nws-weather/internal/weather"
)

// Source is the read side of a coordinator.
type Source interface {
	Location() weather.Location
	Station() string
	Status() weather.Status
	Observation() (*weather.Observation, bool)
	Forecast() (*weather.Forecast, bool)
	ForecastHourly() (*weather.Forecast, bool)
}

// BuildState converts the coordinator's current data into metric state.
// The state is available only when both observation and forecast are fresh.
func BuildState(entryID string, src Source) weather.State {
	status := src.Status()
	state := weather.State{
		EntryID:     entryID,
		Location:    src.Location(),
		Station:     src.Station(),
		Condition:   weather.ConditionUnknown,
		Available:   status.Observation && status.Forecast,
		LastAttempt: status.LastAttempt,
	}

	fc, hasForecast := src.Forecast()
	if hasForecast {
		state.Forecast = forecastEntries(fc)
	}
	if hourly, ok := src.ForecastHourly(); ok {
		state.ForecastHourly = forecastEntries(hourly)
	}

	obs, ok := src.Observation()
	if ok {
		state.TemperatureC = obs.TemperatureC
		state.DewpointC = obs.DewpointC
		state.HumidityPct = obs.HumidityPct
		state.WindSpeedKmh = obs.WindSpeedKmh
		state.WindBearing = obs.WindDirectionDeg
		state.PressureHpa = scale(lo.CoalesceOrEmpty(obs.SeaLevelPressurePa, obs.PressurePa), 0.01)
		state.VisibilityKm = scale(obs.VisibilityM, 0.001)
		state.ObservedAt = obs.Timestamp
		state.Condition = weather.ConditionFromText(obs.Description, obs.Icon)
	}
	if state.Condition == weather.ConditionUnknown && len(state.Forecast) > 0 {
		state.Condition = state.Forecast[0].Condition
	}

	return state
}

func forecastEntries(fc *weather.Forecast) []weather.ForecastEntry {
	return lo.Map(fc.Periods, func(p weather.ForecastPeriod, _ int) weather.ForecastEntry {
		temp := p.Temperature
		if strings.EqualFold(p.TemperatureUnit, "F") {
			temp = weather.FahrenheitToCelsius(temp)
		}
		return weather.ForecastEntry{
			Time:             p.StartTime,
			Name:             p.Name,
			Daytime:          p.IsDaytime,
			Condition:        weather.ConditionFromText(p.ShortForecast, p.Icon),
			TemperatureC:     temp,
			PrecipitationPct: p.PrecipitationPct,
			WindSpeed:        p.WindSpeed,
			WindBearing:      p.WindDirection,
			Detailed:         p.DetailedForecast,
		}
	})
}

func scale(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	return lo.ToPtr(*v * factor)
}
