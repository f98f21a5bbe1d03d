package airquality

import (
	"time"

	"github.com/airas/airas/internal/banding"
)

// UnitMicrograms is the concentration unit for every pollutant card.
const UnitMicrograms = "μg/m³"

// PollutantCard summarises one pollutant for practitioners.
type PollutantCard struct {
	Key     string       `json:"key"`
	Name    string       `json:"name"`
	Formula string       `json:"formula"`
	Value   float64      `json:"value"`
	Unit    string       `json:"unit"`
	Band    banding.Band `json:"band"`
	History []float64    `json:"history"`
	Min24h  float64      `json:"min_24h"`
	Max24h  float64      `json:"max_24h"`
	Note    string       `json:"practitioner_note"`
}

// TrendPoint is one hour of the 24 hour AQI trend. Nulls read as zero.
type TrendPoint struct {
	Time            time.Time `json:"time"`
	EuropeanAQI     float64   `json:"european_aqi"`
	USAQI           float64   `json:"us_aqi"`
	PM25            float64   `json:"pm2_5"`
	PM10            float64   `json:"pm10"`
	Ozone           float64   `json:"ozone"`
	NitrogenDioxide float64   `json:"nitrogen_dioxide"`
}

type pollutantSpec struct {
	key     string
	name    string
	formula string
	note    string
	current func(*Snapshot) float64
	hourly  func(*Hour) *float64
}

var pollutantSpecs = []pollutantSpec{
	{
		key: banding.PollutantPM25, name: "PM2.5", formula: "PM₂.₅",
		note:    "Fine particles — most critical for breath practices",
		current: func(s *Snapshot) float64 { return s.PM25 },
		hourly:  func(h *Hour) *float64 { return h.PM25 },
	},
	{
		key: banding.PollutantPM10, name: "PM10", formula: "PM₁₀",
		note:    "Coarse particles — outdoor session planning",
		current: func(s *Snapshot) float64 { return s.PM10 },
		hourly:  func(h *Hour) *float64 { return h.PM10 },
	},
	{
		key: banding.PollutantNO2, name: "NO₂", formula: "NO₂",
		note:    "Traffic-related — urban session awareness",
		current: func(s *Snapshot) float64 { return s.NitrogenDioxide },
		hourly:  func(h *Hour) *float64 { return h.NitrogenDioxide },
	},
	{
		key: banding.PollutantO3, name: "Ozone", formula: "O₃",
		note:    "Peaks in afternoon — plan sessions accordingly",
		current: func(s *Snapshot) float64 { return s.Ozone },
		hourly:  func(h *Hour) *float64 { return h.Ozone },
	},
	{
		key: banding.PollutantSO2, name: "SO₂", formula: "SO₂",
		note:    "Industrial area indicator",
		current: func(s *Snapshot) float64 { return s.SulphurDioxide },
		hourly:  func(h *Hour) *float64 { return h.SulphurDioxide },
	},
	{
		key: banding.PollutantCO, name: "CO", formula: "CO",
		note:    "Indoor ventilation indicator",
		current: func(s *Snapshot) float64 { return s.CarbonMonoxide },
		hourly:  func(h *Hour) *float64 { return h.CarbonMonoxide },
	},
}

// last24 returns the hours within the 24 hours up to and including now.
func last24(series Series, now time.Time) Series {
	from := now.Add(-24 * time.Hour)
	var out Series
	for _, h := range series {
		if !h.Time.Before(from) && !h.Time.After(now) {
			out = append(out, h)
		}
	}
	return out
}

// Pollutants builds the six pollutant cards for a report.
func Pollutants(r *Report, now time.Time) []PollutantCard {
	window := last24(r.Hourly, now)
	cards := make([]PollutantCard, 0, len(pollutantSpecs))

	for _, ps := range pollutantSpecs {
		value := ps.current(&r.Current)
		history := make([]float64, 0, len(window))
		for i := range window {
			history = append(history, Value(ps.hourly(&window[i]), 0))
		}

		low, high := value, value
		for _, v := range history {
			if v > 0 && v < low {
				low = v
			}
			if v > high {
				high = v
			}
		}

		cards = append(cards, PollutantCard{
			Key:     ps.key,
			Name:    ps.name,
			Formula: ps.formula,
			Value:   value,
			Unit:    UnitMicrograms,
			Band:    banding.Pollutant(ps.key, value),
			History: history,
			Min24h:  low,
			Max24h:  high,
			Note:    ps.note,
		})
	}
	return cards
}

// Last24Hours returns the AQI trend for the day up to now.
func Last24Hours(r *Report, now time.Time) []TrendPoint {
	window := last24(r.Hourly, now)
	points := make([]TrendPoint, 0, len(window))
	for _, h := range window {
		points = append(points, TrendPoint{
			Time:            h.Time,
			EuropeanAQI:     Value(h.EuropeanAQI, 0),
			USAQI:           Value(h.USAQI, 0),
			PM25:            Value(h.PM25, 0),
			PM10:            Value(h.PM10, 0),
			Ozone:           Value(h.Ozone, 0),
			NitrogenDioxide: Value(h.NitrogenDioxide, 0),
		})
	}
	return points
}
