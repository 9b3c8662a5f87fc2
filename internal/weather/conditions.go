package weather

import (
	"strings"

	"github.com/i474232898/nws-weather/internal/common"
)

// ConditionFromText maps an NWS text description to a Condition, falling back
// to the icon URL when the text is empty. More severe conditions win when
// several keywords are present.
func ConditionFromText(text, icon string) Condition {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return conditionFromIcon(icon)
	}

	switch {
	case common.HasAny(s, "thunder", "tornado", "hurricane", "tropical storm"):
		return ConditionStorm
	case common.HasAny(s, "snow", "sleet", "flurr", "blizzard", "freezing", "ice"):
		return ConditionSnow
	case common.HasAny(s, "rain", "shower", "drizzle"):
		return ConditionRain
	case common.HasAny(s, "fog", "haze", "mist", "smoke", "dust"):
		return ConditionMist
	case common.HasAny(s, "wind", "breezy", "blustery"):
		return ConditionWindy
	case common.HasAny(s, "cloud", "overcast"):
		return ConditionCloudy
	case common.HasAny(s, "sunny", "clear", "fair"):
		return ConditionClear
	default:
		return ConditionUnknown
	}
}

// iconConditions maps NWS icon codes to conditions.
var iconConditions = map[string]Condition{
	"skc":             ConditionClear,
	"few":             ConditionClear,
	"hot":             ConditionClear,
	"cold":            ConditionClear,
	"sct":             ConditionCloudy,
	"bkn":             ConditionCloudy,
	"ovc":             ConditionCloudy,
	"wind_skc":        ConditionWindy,
	"wind_few":        ConditionWindy,
	"wind_sct":        ConditionWindy,
	"wind_bkn":        ConditionWindy,
	"wind_ovc":        ConditionWindy,
	"rain":            ConditionRain,
	"rain_showers":    ConditionRain,
	"rain_showers_hi": ConditionRain,
	"snow":            ConditionSnow,
	"rain_snow":       ConditionSnow,
	"rain_sleet":      ConditionSnow,
	"snow_sleet":      ConditionSnow,
	"fzra":            ConditionSnow,
	"rain_fzra":       ConditionSnow,
	"snow_fzra":       ConditionSnow,
	"sleet":           ConditionSnow,
	"blizzard":        ConditionSnow,
	"tsra":            ConditionStorm,
	"tsra_sct":        ConditionStorm,
	"tsra_hi":         ConditionStorm,
	"tornado":         ConditionStorm,
	"hurricane":       ConditionStorm,
	"tropical_storm":  ConditionStorm,
	"dust":            ConditionMist,
	"smoke":           ConditionMist,
	"haze":            ConditionMist,
	"fog":             ConditionMist,
}

// conditionFromIcon reads the condition code from an icon URL such as
// https://api.weather.gov/icons/land/day/tsra,40?size=medium. Icons with two
// codes (.../night/bkn/rain,30) are classified by the first one.
func conditionFromIcon(icon string) Condition {
	if i := strings.IndexByte(icon, '?'); i >= 0 {
		icon = icon[:i]
	}
	segments := strings.Split(icon, "/")
	code := segments[len(segments)-1]
	for i, seg := range segments[:len(segments)-1] {
		if seg == "day" || seg == "night" {
			code = segments[i+1]
			break
		}
	}
	if i := strings.IndexByte(code, ','); i >= 0 {
		code = code[:i]
	}
	if cond, ok := iconConditions[strings.ToLower(code)]; ok {
		return cond
	}
	return ConditionUnknown
}

// FahrenheitToCelsius converts a temperature in °F to °C.
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}
