// Package banding maps raw measurements onto labelled severity bands.
package banding

import (
	"encoding/json"
	"math"
)

// Band is a labelled half-open interval [Min, Max).
// The last band of every table has Max = +Inf.
type Band struct {
	Min    float64
	Max    float64
	Label  string
	Colour string
}

// Contains reports whether v falls inside the band.
func (b Band) Contains(v float64) bool {
	return v >= b.Min && v < b.Max
}

// Upper returns the upper bound, or nil for the open top band.
func (b Band) Upper() *float64 {
	if math.IsInf(b.Max, 1) {
		return nil
	}
	v := b.Max
	return &v
}

type bandJSON struct {
	Min    float64  `json:"min"`
	Max    *float64 `json:"max"`
	Label  string   `json:"label"`
	Colour string   `json:"colour"`
}

// MarshalJSON encodes the open top bound as null.
func (b Band) MarshalJSON() ([]byte, error) {
	return json.Marshal(bandJSON{Min: b.Min, Max: b.Upper(), Label: b.Label, Colour: b.Colour})
}

// UnmarshalJSON reverses MarshalJSON.
func (b *Band) UnmarshalJSON(data []byte) error {
	var raw bandJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Min, b.Label, b.Colour = raw.Min, raw.Label, raw.Colour
	b.Max = inf
	if raw.Max != nil {
		b.Max = *raw.Max
	}
	return nil
}

// Table is an ordered, gapless set of bands from best to worst.
type Table []Band

// Scale selects which AQI scale to band against.
type Scale string

const (
	ScaleEuropean Scale = "european"
	ScaleUS       Scale = "us"
)

// Valid reports whether s is a known scale.
func (s Scale) Valid() bool {
	return s == ScaleEuropean || s == ScaleUS
}

// Severity colour tokens.
const (
	ColourGood          = "#34D399"
	ColourFair          = "#A8DADC"
	ColourModerate      = "#F59E0B"
	ColourPoor          = "#F97316"
	ColourVeryPoor      = "#EF4444"
	ColourExtremelyPoor = "#991B1B"
	ColourHazardous     = "#4C0519"
	ColourExtremeUV     = "#8B5CF6"
	ColourUnknown       = "#C8C4DC"
)

var inf = math.Inf(1)

// EuropeanAQI is the European AQI table.
var EuropeanAQI = Table{
	{Min: 0, Max: 20, Label: "Good", Colour: ColourGood},
	{Min: 20, Max: 40, Label: "Fair", Colour: ColourFair},
	{Min: 40, Max: 60, Label: "Moderate", Colour: ColourModerate},
	{Min: 60, Max: 80, Label: "Poor", Colour: ColourPoor},
	{Min: 80, Max: 100, Label: "Very Poor", Colour: ColourVeryPoor},
	{Min: 100, Max: inf, Label: "Extremely Poor", Colour: ColourExtremelyPoor},
}

// USAQI is the US EPA AQI table.
var USAQI = Table{
	{Min: 0, Max: 51, Label: "Good", Colour: ColourGood},
	{Min: 51, Max: 101, Label: "Moderate", Colour: ColourModerate},
	{Min: 101, Max: 151, Label: "Unhealthy for Sensitive", Colour: ColourPoor},
	{Min: 151, Max: 201, Label: "Unhealthy", Colour: ColourVeryPoor},
	{Min: 201, Max: 301, Label: "Very Unhealthy", Colour: ColourExtremelyPoor},
	{Min: 301, Max: inf, Label: "Hazardous", Colour: ColourHazardous},
}

// UVIndex is the WHO UV index table.
var UVIndex = Table{
	{Min: 0, Max: 3, Label: "Low", Colour: ColourGood},
	{Min: 3, Max: 6, Label: "Moderate", Colour: ColourModerate},
	{Min: 6, Max: 8, Label: "High", Colour: ColourPoor},
	{Min: 8, Max: 11, Label: "Very High", Colour: ColourVeryPoor},
	{Min: 11, Max: inf, Label: "Extreme", Colour: ColourExtremeUV},
}

// PollenCount is the pollen grains/m³ table shared by all species.
var PollenCount = Table{
	{Min: 0, Max: 10, Label: "None/Low", Colour: ColourGood},
	{Min: 10, Max: 30, Label: "Moderate", Colour: ColourModerate},
	{Min: 30, Max: 60, Label: "High", Colour: ColourPoor},
	{Min: 60, Max: inf, Label: "Very High", Colour: ColourVeryPoor},
}

// Pollutant keys, matching the upstream field names.
const (
	PollutantPM25 = "pm2_5"
	PollutantPM10 = "pm10"
	PollutantNO2  = "nitrogen_dioxide"
	PollutantO3   = "ozone"
	PollutantSO2  = "sulphur_dioxide"
	PollutantCO   = "carbon_monoxide"
)

// Pollutants holds the European per-pollutant concentration tables (μg/m³).
var Pollutants = map[string]Table{
	PollutantPM25: {
		{Min: 0, Max: 10, Label: "Good", Colour: ColourGood},
		{Min: 10, Max: 20, Label: "Fair", Colour: ColourFair},
		{Min: 20, Max: 25, Label: "Moderate", Colour: ColourModerate},
		{Min: 25, Max: 50, Label: "Poor", Colour: ColourPoor},
		{Min: 50, Max: 75, Label: "Very Poor", Colour: ColourVeryPoor},
		{Min: 75, Max: inf, Label: "Extremely Poor", Colour: ColourExtremelyPoor},
	},
	PollutantPM10: {
		{Min: 0, Max: 20, Label: "Good", Colour: ColourGood},
		{Min: 20, Max: 40, Label: "Fair", Colour: ColourFair},
		{Min: 40, Max: 50, Label: "Moderate", Colour: ColourModerate},
		{Min: 50, Max: 100, Label: "Poor", Colour: ColourPoor},
		{Min: 100, Max: 150, Label: "Very Poor", Colour: ColourVeryPoor},
		{Min: 150, Max: inf, Label: "Extremely Poor", Colour: ColourExtremelyPoor},
	},
	PollutantNO2: {
		{Min: 0, Max: 40, Label: "Good", Colour: ColourGood},
		{Min: 40, Max: 90, Label: "Fair", Colour: ColourFair},
		{Min: 90, Max: 120, Label: "Moderate", Colour: ColourModerate},
		{Min: 120, Max: 230, Label: "Poor", Colour: ColourPoor},
		{Min: 230, Max: 340, Label: "Very Poor", Colour: ColourVeryPoor},
		{Min: 340, Max: inf, Label: "Extremely Poor", Colour: ColourExtremelyPoor},
	},
	PollutantO3: {
		{Min: 0, Max: 50, Label: "Good", Colour: ColourGood},
		{Min: 50, Max: 100, Label: "Fair", Colour: ColourFair},
		{Min: 100, Max: 130, Label: "Moderate", Colour: ColourModerate},
		{Min: 130, Max: 240, Label: "Poor", Colour: ColourPoor},
		{Min: 240, Max: 380, Label: "Very Poor", Colour: ColourVeryPoor},
		{Min: 380, Max: inf, Label: "Extremely Poor", Colour: ColourExtremelyPoor},
	},
	PollutantSO2: {
		{Min: 0, Max: 100, Label: "Good", Colour: ColourGood},
		{Min: 100, Max: 200, Label: "Fair", Colour: ColourFair},
		{Min: 200, Max: 350, Label: "Moderate", Colour: ColourModerate},
		{Min: 350, Max: 500, Label: "Poor", Colour: ColourPoor},
		{Min: 500, Max: 750, Label: "Very Poor", Colour: ColourVeryPoor},
		{Min: 750, Max: inf, Label: "Extremely Poor", Colour: ColourExtremelyPoor},
	},
	PollutantCO: {
		{Min: 0, Max: 4400, Label: "Good", Colour: ColourGood},
		{Min: 4400, Max: 9400, Label: "Fair", Colour: ColourFair},
		{Min: 9400, Max: 12400, Label: "Moderate", Colour: ColourModerate},
		{Min: 12400, Max: 15400, Label: "Poor", Colour: ColourPoor},
		{Min: 15400, Max: inf, Label: "Very Poor", Colour: ColourVeryPoor},
	},
}

// Unknown is returned for pollutants without a table.
var Unknown = Band{Min: 0, Max: inf, Label: "Unknown", Colour: ColourUnknown}

// Lookup returns the first band whose interval contains v, or the last
// (worst) band when none does. Callers supply non-negative finite values;
// anything else lands in the worst band. t must not be empty.
func Lookup(v float64, t Table) Band {
	for _, b := range t {
		if b.Contains(v) {
			return b
		}
	}
	return t[len(t)-1]
}

// AQI bands v on the given scale. Unknown scales use the European table.
func AQI(v float64, scale Scale) Band {
	if scale == ScaleUS {
		return Lookup(v, USAQI)
	}
	return Lookup(v, EuropeanAQI)
}

// Pollutant bands a concentration for the named pollutant.
func Pollutant(name string, v float64) Band {
	t, ok := Pollutants[name]
	if !ok {
		return Unknown
	}
	return Lookup(v, t)
}

// UV bands a UV index value.
func UV(v float64) Band {
	return Lookup(v, UVIndex)
}

// Pollen bands a pollen count.
func Pollen(v float64) Band {
	return Lookup(v, PollenCount)
}
