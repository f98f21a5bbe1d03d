// Package worker provides background refresh of air quality reports.
package worker

import (
	"time"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/location"
)

// RefreshConfig holds configuration for the report refresh job.
type RefreshConfig struct {
	// Locations are always refreshed, whether or not anyone asked for them.
	// If empty, uses DefaultRefreshLocations.
	Locations []airquality.Location

	// IncludeRecent also refreshes every location currently in the cache.
	// Default: true
	IncludeRecent bool

	// Concurrency is the number of concurrent refresh operations.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each refresh operation.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Locations:     DefaultRefreshLocations(),
		IncludeRecent: true,
		Concurrency:   3,
		Timeout:       30 * time.Second,
	}
}

// DefaultRefreshLocations returns the locations kept warm by default.
func DefaultRefreshLocations() []airquality.Location {
	return []airquality.Location{
		location.Default,
		{Name: "Newcastle upon Tyne", Country: "GB", Admin1: "England", Latitude: 54.97, Longitude: -1.61},
		{Name: "Sunderland", Country: "GB", Admin1: "England", Latitude: 54.90, Longitude: -1.38},
		{Name: "Durham", Country: "GB", Admin1: "England", Latitude: 54.78, Longitude: -1.57},
	}
}

// Targets returns the pinned locations followed by recent ones, without
// duplicates at cache-key resolution.
func (c RefreshConfig) Targets(recent []airquality.Location) []airquality.Location {
	seen := make(map[string]bool, len(c.Locations)+len(recent))
	targets := make([]airquality.Location, 0, len(c.Locations)+len(recent))

	add := func(loc airquality.Location) {
		if seen[loc.Key()] {
			return
		}
		seen[loc.Key()] = true
		targets = append(targets, loc)
	}

	for _, loc := range c.Locations {
		add(loc)
	}
	if c.IncludeRecent {
		for _, loc := range recent {
			add(loc)
		}
	}
	return targets
}
