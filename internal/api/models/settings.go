package models

import "github.com/airas/airas/internal/settings"

// EffectiveSettings is the typed view the service is running with.
type EffectiveSettings struct {
	AutoRefresh            bool   `json:"auto_refresh"`
	RefreshIntervalMinutes int    `json:"refresh_interval_minutes"`
	AQIScale               string `json:"aqi_scale"`
	CachedOnlyAirQuality   bool   `json:"cached_only_air_quality"`
}

// NewEffectiveSettings converts a settings snapshot.
func NewEffectiveSettings(s settings.Snapshot) EffectiveSettings {
	return EffectiveSettings{
		AutoRefresh:            s.AutoRefresh,
		RefreshIntervalMinutes: int(s.RefreshInterval.Minutes()),
		AQIScale:               string(s.AQIScale),
		CachedOnlyAirQuality:   s.CachedOnlyAirQuality,
	}
}

// SettingsResponse is the body of GET and PUT /v1/admin/settings.
type SettingsResponse struct {
	Settings  []settings.Setting `json:"settings"`
	Effective EffectiveSettings  `json:"effective"`
}

// RefreshResponse is the body of POST /v1/admin/refresh.
type RefreshResponse struct {
	Mode       string            `json:"mode"`
	Total      int               `json:"total,omitempty"`
	Successful int               `json:"successful,omitempty"`
	Failed     int               `json:"failed,omitempty"`
	DurationMS int64             `json:"duration_ms,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}
