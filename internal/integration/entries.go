package integration

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/i474232898/nws-weather/internal/config"
	"github.com/i474232898/nws-weather/internal/weather"
)

// EntriesFromConfig resolves configured locations into entries with fresh
// ids. A location whose key was already seen is skipped.
func EntriesFromConfig(locs []config.LocationConfig, home *weather.Location, logger *slog.Logger) ([]Entry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[string]struct{}, len(locs))
	entries := make([]Entry, 0, len(locs))
	for i, lc := range locs {
		if err := lc.Validate(); err != nil {
			return nil, fmt.Errorf("location %d: %w", i, err)
		}
		loc, err := lc.Resolve(home)
		if err != nil {
			return nil, fmt.Errorf("location %d: %w", i, err)
		}
		if _, dup := seen[loc.Key()]; dup {
			logger.Warn("duplicate location skipped", "location", loc.Key(), "index", i)
			continue
		}
		seen[loc.Key()] = struct{}{}

		entries = append(entries, Entry{
			ID:       uuid.NewString(),
			APIKey:   lc.APIKey,
			Location: loc,
			Station:  lc.Station,
		})
	}
	return entries, nil
}
