// Package settings provides runtime-adjustable service settings.
package settings

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/airas/airas/internal/banding"
)

// Setting keys.
const (
	// KeyAutoRefresh enables the background refresh poller.
	KeyAutoRefresh = "auto_refresh"

	// KeyRefreshIntervalMinutes sets the poller interval.
	KeyRefreshIntervalMinutes = "refresh_interval_minutes"

	// KeyAQIScale selects the AQI scale used for headline bands.
	KeyAQIScale = "aqi_scale"

	// KeyCachedOnlyAirQuality serves air quality from cache without
	// contacting the provider.
	KeyCachedOnlyAirQuality = "cached_only_air_quality"
)

// Limits for the refresh interval.
const (
	MinRefreshIntervalMinutes = 1
	MaxRefreshIntervalMinutes = 24 * 60
)

var (
	// ErrSettingNotFound is returned when a setting is not stored.
	ErrSettingNotFound = errors.New("setting not found")

	// ErrUnknownSetting is returned for a key that is not recognised.
	ErrUnknownSetting = errors.New("unknown setting")

	// ErrInvalidValue is returned when a value has the wrong type or range.
	ErrInvalidValue = errors.New("invalid setting value")
)

// Setting is a single stored value. Values decoded from JSON arrive as
// bool, float64 or string.
type Setting struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Update is one requested change.
type Update struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// UpdateRequest is the body of a settings change.
type UpdateRequest struct {
	Updates []Update `json:"updates"`
	Reason  string   `json:"reason,omitempty"`
}

// BoolValue returns the value as a boolean, or def when absent or mistyped.
func (s *Setting) BoolValue(def bool) bool {
	if s == nil {
		return def
	}
	switch v := s.Value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return def
	}
}

// IntValue returns the value as an integer, or def when absent or mistyped.
func (s *Setting) IntValue(def int) int {
	if s == nil {
		return def
	}
	switch v := s.Value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// StringValue returns the value as a string, or def when absent or mistyped.
func (s *Setting) StringValue(def string) string {
	if s == nil {
		return def
	}
	if v, ok := s.Value.(string); ok {
		return v
	}
	return def
}

// Defaults returns the default value of every known setting.
func Defaults() map[string]*Setting {
	now := time.Now()
	return map[string]*Setting{
		KeyAutoRefresh:            {Key: KeyAutoRefresh, Value: true, UpdatedAt: now},
		KeyRefreshIntervalMinutes: {Key: KeyRefreshIntervalMinutes, Value: float64(15), UpdatedAt: now},
		KeyAQIScale:               {Key: KeyAQIScale, Value: string(banding.ScaleEuropean), UpdatedAt: now},
		KeyCachedOnlyAirQuality:   {Key: KeyCachedOnlyAirQuality, Value: false, UpdatedAt: now},
	}
}

// Normalize checks an update against its key and returns the value in
// its stored form.
func Normalize(u Update) (interface{}, error) {
	switch u.Key {
	case KeyAutoRefresh, KeyCachedOnlyAirQuality:
		v, ok := u.Value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a boolean", ErrInvalidValue, u.Key)
		}
		return v, nil

	case KeyRefreshIntervalMinutes:
		var n float64
		switch v := u.Value.(type) {
		case float64:
			n = v
		case int:
			n = float64(v)
		default:
			return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidValue, u.Key)
		}
		if n != math.Trunc(n) || n < MinRefreshIntervalMinutes || n > MaxRefreshIntervalMinutes {
			return nil, fmt.Errorf("%w: %s must be a whole number between %d and %d",
				ErrInvalidValue, u.Key, MinRefreshIntervalMinutes, MaxRefreshIntervalMinutes)
		}
		return n, nil

	case KeyAQIScale:
		v, ok := u.Value.(string)
		if !ok || !banding.Scale(v).Valid() {
			return nil, fmt.Errorf("%w: %s must be %q or %q", ErrInvalidValue, u.Key, banding.ScaleEuropean, banding.ScaleUS)
		}
		return v, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSetting, u.Key)
	}
}

// Snapshot is a typed view of every setting.
type Snapshot struct {
	AutoRefresh          bool
	RefreshInterval      time.Duration
	AQIScale             banding.Scale
	CachedOnlyAirQuality bool
}

func snapshotOf(all map[string]*Setting) Snapshot {
	scale := banding.Scale(all[KeyAQIScale].StringValue(string(banding.ScaleEuropean)))
	if !scale.Valid() {
		scale = banding.ScaleEuropean
	}
	minutes := all[KeyRefreshIntervalMinutes].IntValue(15)
	if minutes < MinRefreshIntervalMinutes {
		minutes = 15
	}
	return Snapshot{
		AutoRefresh:          all[KeyAutoRefresh].BoolValue(true),
		RefreshInterval:      time.Duration(minutes) * time.Minute,
		AQIScale:             scale,
		CachedOnlyAirQuality: all[KeyCachedOnlyAirQuality].BoolValue(false),
	}
}
