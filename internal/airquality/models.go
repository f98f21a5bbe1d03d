// Package airquality provides the air quality data model, pollen species
// and a cached per-location report service.
package airquality

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Provider errors.
var (
	ErrProviderUnavailable = errors.New("air quality provider unavailable")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrMisalignedSeries    = errors.New("hourly series arrays are misaligned")
)

// Location is a named point the service reports on.
type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks the coordinates are finite and in range.
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinates, l.Latitude)
	}
	if math.IsNaN(l.Longitude) || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinates, l.Longitude)
	}
	return nil
}

// Key identifies the location for caching, at roughly 1km resolution.
func (l Location) Key() string {
	return fmt.Sprintf("%.2f,%.2f", l.Latitude, l.Longitude)
}

// Snapshot is a single current reading. Pollen fields are nil when the
// upstream has no data for the season or region.
type Snapshot struct {
	Time            time.Time `json:"time"`
	EuropeanAQI     float64   `json:"european_aqi"`
	USAQI           float64   `json:"us_aqi"`
	PM10            float64   `json:"pm10"`
	PM25            float64   `json:"pm2_5"`
	CarbonMonoxide  float64   `json:"carbon_monoxide"`
	NitrogenDioxide float64   `json:"nitrogen_dioxide"`
	SulphurDioxide  float64   `json:"sulphur_dioxide"`
	Ozone           float64   `json:"ozone"`
	UVIndex         float64   `json:"uv_index"`
	UVIndexClearSky float64   `json:"uv_index_clear_sky"`
	Dust            float64   `json:"dust"`

	Alder   *float64 `json:"alder_pollen"`
	Birch   *float64 `json:"birch_pollen"`
	Grass   *float64 `json:"grass_pollen"`
	Mugwort *float64 `json:"mugwort_pollen"`
	Olive   *float64 `json:"olive_pollen"`
	Ragweed *float64 `json:"ragweed_pollen"`
}

// Pollen returns the snapshot reading for a species.
func (s *Snapshot) Pollen(sp Species) *float64 {
	switch sp {
	case Alder:
		return s.Alder
	case Birch:
		return s.Birch
	case Olive:
		return s.Olive
	case Grass:
		return s.Grass
	case Mugwort:
		return s.Mugwort
	case Ragweed:
		return s.Ragweed
	}
	return nil
}

// Hour is one hourly record. Every measurement is nullable.
type Hour struct {
	Time time.Time `json:"time"`

	EuropeanAQI         *float64 `json:"european_aqi"`
	USAQI               *float64 `json:"us_aqi"`
	PM10                *float64 `json:"pm10"`
	PM25                *float64 `json:"pm2_5"`
	CarbonMonoxide      *float64 `json:"carbon_monoxide"`
	NitrogenDioxide     *float64 `json:"nitrogen_dioxide"`
	SulphurDioxide      *float64 `json:"sulphur_dioxide"`
	Ozone               *float64 `json:"ozone"`
	UVIndex             *float64 `json:"uv_index"`
	UVIndexClearSky     *float64 `json:"uv_index_clear_sky"`
	Dust                *float64 `json:"dust"`
	AerosolOpticalDepth *float64 `json:"aerosol_optical_depth"`
	CarbonDioxide       *float64 `json:"carbon_dioxide"`
	Methane             *float64 `json:"methane"`
	Ammonia             *float64 `json:"ammonia"`

	Alder   *float64 `json:"alder_pollen"`
	Birch   *float64 `json:"birch_pollen"`
	Grass   *float64 `json:"grass_pollen"`
	Mugwort *float64 `json:"mugwort_pollen"`
	Olive   *float64 `json:"olive_pollen"`
	Ragweed *float64 `json:"ragweed_pollen"`
}

// Pollen returns the hourly reading for a species.
func (h *Hour) Pollen(sp Species) *float64 {
	switch sp {
	case Alder:
		return h.Alder
	case Birch:
		return h.Birch
	case Olive:
		return h.Olive
	case Grass:
		return h.Grass
	case Mugwort:
		return h.Mugwort
	case Ragweed:
		return h.Ragweed
	}
	return nil
}

// PeakPollen returns the highest positive pollen reading across species.
// ok is false when no species registers above zero.
func (h *Hour) PeakPollen() (peak float64, ok bool) {
	for _, sp := range AllSpecies {
		if v := h.Pollen(sp); v != nil && *v > 0 {
			if !ok || *v > peak {
				peak = *v
			}
			ok = true
		}
	}
	return peak, ok
}

// Series is an ascending sequence of hourly records.
type Series []Hour

// StartIndex returns the index of the first hour at or after now, or
// len(s) when every hour is in the past.
func (s Series) StartIndex(now time.Time) int {
	for i := range s {
		if !s[i].Time.Before(now) {
			return i
		}
	}
	return len(s)
}

// Report is everything fetched for one location.
type Report struct {
	Location         Location  `json:"location"`
	Current          Snapshot  `json:"current"`
	Hourly           Series    `json:"hourly"`
	Timezone         string    `json:"timezone"`
	UTCOffsetSeconds int       `json:"utc_offset_seconds"`
	FetchedAt        time.Time `json:"fetched_at"`
	Provider         string    `json:"provider"`
}

// Value dereferences v, returning def when it is nil.
func Value(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
