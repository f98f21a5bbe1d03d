package models

import (
	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/banding"
	"github.com/airas/airas/internal/forecast"
	"github.com/airas/airas/internal/guidance"
	"github.com/airas/airas/internal/pollen"
)

// Source describes where and when a report was fetched.
type Source struct {
	Provider         string    `json:"provider"`
	FetchedAt        Timestamp `json:"fetched_at"`
	Timezone         string    `json:"timezone"`
	UTCOffsetSeconds int       `json:"utc_offset_seconds"`
	Cached           bool      `json:"cached"`
}

// AQISummary bands the headline AQI on both scales.
type AQISummary struct {
	Scale         banding.Scale `json:"scale"`
	Value         float64       `json:"value"`
	Band          banding.Band  `json:"band"`
	GaugePosition float64       `json:"gauge_position"`
	European      ScaleReading  `json:"european"`
	US            ScaleReading  `json:"us"`
	Tagline       string        `json:"tagline"`
}

// ScaleReading is an AQI value with its band on one scale.
type ScaleReading struct {
	Value float64      `json:"value"`
	Band  banding.Band `json:"band"`
}

// UVSummary bands the UV index and adds exposure guidance.
type UVSummary struct {
	Value         float64            `json:"value"`
	ClearSky      float64            `json:"clear_sky"`
	Band          banding.Band       `json:"band"`
	GaugePosition float64            `json:"gauge_position"`
	Exposure      banding.UVExposure `json:"exposure"`
}

// PollenSummary is the current pollen picture. Level is null when no
// species registers above zero.
type PollenSummary struct {
	HasData bool          `json:"has_data"`
	Level   *banding.Band `json:"level"`
	Note    string        `json:"practitioner_note"`
	Types   []pollen.Type `json:"types"`
}

// Conditions is the body of GET /v1/conditions.
type Conditions struct {
	Location   airquality.Location        `json:"location"`
	Source     Source                     `json:"source"`
	Current    airquality.Snapshot        `json:"current"`
	AQI        AQISummary                 `json:"aqi"`
	UV         UVSummary                  `json:"uv"`
	AirClarity string                     `json:"air_clarity,omitempty"`
	Pollen     PollenSummary              `json:"pollen"`
	Pollutants []airquality.PollutantCard `json:"pollutants"`
	Guidance   guidance.Guidance          `json:"guidance"`
}

// Forecast is the body of GET /v1/forecast.
type Forecast struct {
	Location airquality.Location      `json:"location"`
	Source   Source                   `json:"source"`
	Days     []forecast.DayForecast   `json:"days"`
	Windows  []forecast.SessionWindow `json:"windows"`
	Warnings []string                 `json:"warnings"`
}

// Trend is the body of GET /v1/trend.
type Trend struct {
	Location airquality.Location     `json:"location"`
	Source   Source                  `json:"source"`
	AQI      []airquality.TrendPoint `json:"aqi"`
	Pollen   pollen.HourlySeries     `json:"pollen"`
}

// LocationResults is the body of GET /v1/locations/search.
type LocationResults struct {
	Query string                `json:"query"`
	Items []airquality.Location `json:"items"`
}
