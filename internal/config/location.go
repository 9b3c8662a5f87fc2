package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelvins/geocoder"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/nws-weather/internal/weather"
)

var (
	// ErrIncompleteCoordinates is returned when only one of latitude and
	// longitude is given.
	ErrIncompleteCoordinates = errors.New("latitude and longitude must be given together")
	// ErrNoLocation is returned when a location has no coordinates and no home
	// location is configured.
	ErrNoLocation = errors.New("no coordinates and no home location configured")
)

// LocationConfig is one configured location as read from the locations file
// or the environment.
type LocationConfig struct {
	APIKey    string   `yaml:"api_key" validate:"required"`
	Latitude  *float64 `yaml:"latitude" validate:"omitnil,min=-90,max=90"`
	Longitude *float64 `yaml:"longitude" validate:"omitnil,min=-180,max=180"`
	Station   string   `yaml:"station" validate:"omitempty,alphanum"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		lc := sl.Current().Interface().(LocationConfig)
		if (lc.Latitude == nil) != (lc.Longitude == nil) {
			sl.ReportError(lc.Latitude, "latitude", "Latitude", "coordinates", "")
		}
	}, LocationConfig{})
	return v
}

// Validate checks the location. Exactly one coordinate yields an error
// wrapping ErrIncompleteCoordinates.
func (lc LocationConfig) Validate() error {
	err := validate.Struct(lc)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "coordinates" {
				return ErrIncompleteCoordinates
			}
		}
	}
	return fmt.Errorf("invalid location: %w", err)
}

// HasCoordinates reports whether both coordinates are set.
func (lc LocationConfig) HasCoordinates() bool {
	return lc.Latitude != nil && lc.Longitude != nil
}

// Resolve returns the configured coordinates, falling back to home.
func (lc LocationConfig) Resolve(home *weather.Location) (weather.Location, error) {
	if lc.HasCoordinates() {
		return weather.Location{Latitude: *lc.Latitude, Longitude: *lc.Longitude}, nil
	}
	if home == nil {
		return weather.Location{}, ErrNoLocation
	}
	return *home, nil
}

// LoadLocationsFile reads the locations file. Its nws key holds either a
// single location or a list of them.
func LoadLocationsFile(path string) ([]LocationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locations file: %w", err)
	}
	return ParseLocations(data)
}

// ParseLocations decodes a locations document.
func ParseLocations(data []byte) ([]LocationConfig, error) {
	var doc struct {
		NWS yaml.Node `yaml:"nws"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse locations: %w", err)
	}

	switch doc.NWS.Kind {
	case 0:
		return nil, errors.New("parse locations: missing nws key")
	case yaml.MappingNode:
		var lc LocationConfig
		if err := doc.NWS.Decode(&lc); err != nil {
			return nil, fmt.Errorf("parse locations: %w", err)
		}
		return []LocationConfig{lc}, nil
	case yaml.SequenceNode:
		var lcs []LocationConfig
		if err := doc.NWS.Decode(&lcs); err != nil {
			return nil, fmt.Errorf("parse locations: %w", err)
		}
		return lcs, nil
	default:
		return nil, fmt.Errorf("parse locations: nws must be a mapping or a list (line %d)", doc.NWS.Line)
	}
}

// geocode resolves a city to coordinates through the Google geocoding API.
var geocode = func(apiKey, city, country string) (weather.Location, error) {
	geocoder.ApiKey = apiKey
	loc, err := geocoder.Geocoding(geocoder.Address{City: city, Country: country})
	if err != nil {
		return weather.Location{}, err
	}
	return weather.Location{Latitude: loc.Latitude, Longitude: loc.Longitude}, nil
}
