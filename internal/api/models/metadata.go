package models

import "github.com/airas/airas/internal/banding"

// Bands lists every band table the API grades against.
type Bands struct {
	EuropeanAQI banding.Table            `json:"european_aqi"`
	USAQI       banding.Table            `json:"us_aqi"`
	UVIndex     banding.Table            `json:"uv_index"`
	Pollen      banding.Table            `json:"pollen"`
	Pollutants  map[string]banding.Table `json:"pollutants"`
}

// Species describes one pollen species.
type Species struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Enums lists the enumerations used by the API.
type Enums struct {
	Scales   []banding.Scale `json:"aqi_scales"`
	Ratings  []string        `json:"ratings"`
	Species  []Species       `json:"pollen_species"`
	Settings []string        `json:"settings"`
}
