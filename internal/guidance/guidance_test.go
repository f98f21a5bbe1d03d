package guidance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/guidance"
)

func f(v float64) *float64 { return &v }

var utc2 = time.FixedZone("CEST", 2*60*60)

// hourly builds a series starting at start with the given European AQI
// values, one per hour.
func hourly(start time.Time, aqi ...*float64) airquality.Series {
	series := make(airquality.Series, 0, len(aqi))
	for i, v := range aqi {
		series = append(series, airquality.Hour{Time: start.Add(time.Duration(i) * time.Hour), EuropeanAQI: v})
	}
	return series
}

func TestDerive_Rating(t *testing.T) {
	tests := []struct {
		name           string
		current        airquality.Snapshot
		rating         guidance.Rating
		outdoorSafe    bool
		breathworkSafe bool
	}{
		{"clean air", airquality.Snapshot{EuropeanAQI: 15, UVIndex: 2}, guidance.RatingExcellent, true, true},
		{"hazardous", airquality.Snapshot{EuropeanAQI: 85}, guidance.RatingAvoid, false, false},
		{"fair aqi", airquality.Snapshot{EuropeanAQI: 25}, guidance.RatingGood, true, true},
		{"moderate uv", airquality.Snapshot{EuropeanAQI: 10, UVIndex: 6}, guidance.RatingGood, true, true},
		{"moderate pollen", airquality.Snapshot{Grass: f(11)}, guidance.RatingGood, true, true},
		{"caution aqi", airquality.Snapshot{EuropeanAQI: 41}, guidance.RatingCaution, false, true},
		{"caution uv", airquality.Snapshot{UVIndex: 7.5}, guidance.RatingCaution, false, true},
		{"caution pollen", airquality.Snapshot{Birch: f(31)}, guidance.RatingCaution, false, true},
		{"indoor aqi", airquality.Snapshot{EuropeanAQI: 61}, guidance.RatingIndoorOnly, false, false},
		{"indoor uv", airquality.Snapshot{UVIndex: 10.5}, guidance.RatingIndoorOnly, false, false},
		{"indoor pollen", airquality.Snapshot{Ragweed: f(61)}, guidance.RatingIndoorOnly, false, false},
		{"boundaries are exclusive", airquality.Snapshot{EuropeanAQI: 20, UVIndex: 5, Grass: f(10)}, guidance.RatingExcellent, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := guidance.Derive(&airquality.Report{Current: tt.current}, time.Now())
			assert.Equal(t, tt.rating, g.Rating)
			assert.Equal(t, tt.outdoorSafe, g.OutdoorSafe)
			assert.Equal(t, tt.breathworkSafe, g.BreathworkSafe)
		})
	}
}

func TestDerive_ExcellentHasNoFactors(t *testing.T) {
	g := guidance.Derive(&airquality.Report{Current: airquality.Snapshot{EuropeanAQI: 15, UVIndex: 2}}, time.Now())

	assert.Equal(t, guidance.RatingExcellent, g.Rating)
	assert.Empty(t, g.Factors)
	assert.Contains(t, g.Summary, "Current conditions support all outdoor modalities.")
	for _, m := range g.Modalities {
		assert.True(t, m.Safe, m.Name)
		assert.Empty(t, m.Note, m.Name)
	}
}

func TestDerive_Modalities(t *testing.T) {
	g := guidance.Derive(&airquality.Report{Current: airquality.Snapshot{EuropeanAQI: 45, UVIndex: 8}}, time.Now())
	require.Len(t, g.Modalities, 6)

	byName := map[string]guidance.Modality{}
	for _, m := range g.Modalities {
		byName[m.Name] = m
	}

	assert.False(t, byName["Pranayama"].Safe)
	assert.Equal(t, "Reduce intensity — elevated air particles", byName["Pranayama"].Note)
	assert.False(t, byName["Holotropic Breathwork"].Safe)
	assert.False(t, byName["Wim Hof Method"].Safe)
	assert.Equal(t, "Consider indoor cold exposure alternatives", byName["Wim Hof Method"].Note)
	assert.False(t, byName["Sound Bath (Outdoor)"].Safe)
	assert.Equal(t, "Seek shade — high UV for prolonged sessions", byName["Sound Bath (Outdoor)"].Note)
	assert.False(t, byName["Outdoor Yoga"].Safe)
	assert.Empty(t, byName["Outdoor Yoga"].Note, "yoga note is keyed on AQI only")
	assert.True(t, byName["Walking Meditation"].Safe)
	assert.Empty(t, byName["Walking Meditation"].Note)
}

func TestDerive_PollenBlocksDeepBreathingWithoutNote(t *testing.T) {
	g := guidance.Derive(&airquality.Report{Current: airquality.Snapshot{EuropeanAQI: 10, Grass: f(35)}}, time.Now())

	assert.False(t, g.Modalities[0].Safe)
	assert.Empty(t, g.Modalities[0].Note)
	assert.True(t, g.Modalities[2].Safe)
}

func TestDerive_Factors(t *testing.T) {
	g := guidance.Derive(&airquality.Report{Current: airquality.Snapshot{
		EuropeanAQI: 65,
		UVIndex:     6,
		Grass:       f(70),
		PM25:        22.5,
	}}, time.Now())

	require.Len(t, g.Factors, 4)
	assert.Equal(t, guidance.Factor{Label: "AQI elevated (65)", Severity: guidance.SeverityWarning, Detail: "Air quality is affecting breathwork safety"}, g.Factors[0])
	assert.Equal(t, "UV index 6", g.Factors[1].Label)
	assert.Equal(t, guidance.SeverityCaution, g.Factors[1].Severity)
	assert.Equal(t, "Pollen elevated", g.Factors[2].Label)
	assert.Equal(t, guidance.SeverityWarning, g.Factors[2].Severity)
	assert.Equal(t, "PM2.5 at 22.5 μg/m³", g.Factors[3].Label)
	assert.Equal(t, guidance.SeverityCaution, g.Factors[3].Severity)
}

func TestDerive_Summary(t *testing.T) {
	tests := []struct {
		name     string
		current  airquality.Snapshot
		expected string
	}{
		{
			"good with comfortable uv",
			airquality.Snapshot{EuropeanAQI: 25, UVIndex: 2},
			"Air quality is fair (AQI 25). Standard outdoor practice is recommended. UV levels are comfortable.",
		},
		{
			"good with sunscreen",
			airquality.Snapshot{EuropeanAQI: 10, UVIndex: 5.5},
			"Air quality is fair (AQI 10). Standard outdoor practice is recommended. Apply sunscreen for longer sessions.",
		},
		{
			"caution with every clause",
			airquality.Snapshot{EuropeanAQI: 45, UVIndex: 8, Grass: f(40)},
			"Moderate conditions detected. Air quality is elevated — gentle practice only. UV is high — seek shade. Pollen is notable — check client sensitivities.",
		},
		{
			"caution from pollen only",
			airquality.Snapshot{EuropeanAQI: 10, Grass: f(40)},
			"Moderate conditions detected. Pollen is notable — check client sensitivities.",
		},
		{
			"indoor only",
			airquality.Snapshot{EuropeanAQI: 70, UVIndex: 11},
			"Outdoor conditions are not ideal for practice. Air quality is poor. UV levels are extreme. Move sessions indoors.",
		},
		{
			"indoor only from pollen",
			airquality.Snapshot{EuropeanAQI: 10, Grass: f(70)},
			"Outdoor conditions are not ideal for practice. Move sessions indoors.",
		},
		{
			"avoid",
			airquality.Snapshot{EuropeanAQI: 92},
			"Air quality is hazardous (AQI 92). All outdoor practice should be cancelled. Minimise deep breathing even indoors if poorly ventilated.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := guidance.Derive(&airquality.Report{Current: tt.current}, time.Now())
			assert.Equal(t, tt.expected, g.Summary)
		})
	}
}

func TestDerive_NextWindow(t *testing.T) {
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, utc2)
	now := start.Add(90 * time.Minute) // 10:30, first future hour is 11:00

	tests := []struct {
		name     string
		series   airquality.Series
		expected string
	}{
		{
			"good until worsening",
			hourly(start, f(80), f(80), f(10), f(20), f(35)),
			"Conditions remain good until 13:00",
		},
		{
			"good throughout",
			hourly(start, f(80), f(80), f(10), f(20), nil),
			"Good conditions expected to continue",
		},
		{
			"improves today",
			hourly(start, f(10), f(10), f(50), f(40), f(25)),
			"Air quality improves after 13:00",
		},
		{
			"null current counts as poor",
			hourly(start, f(10), f(10), nil, f(30)),
			"Air quality improves after 12:00",
		},
		{
			"improves tomorrow",
			append(hourly(start, f(10), f(10), f(50)), airquality.Hour{
				Time:        time.Date(2026, 6, 2, 6, 0, 0, 0, utc2),
				EuropeanAQI: f(20),
			}),
			"Best window tomorrow: 06:00",
		},
		{
			"never improves",
			hourly(start, f(10), f(10), f(50), f(60)),
			"Monitor conditions — check back for updates",
		},
		{
			"empty series",
			nil,
			"Monitor conditions — check back for updates",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := guidance.Derive(&airquality.Report{Hourly: tt.series}, now)
			assert.Equal(t, tt.expected, g.NextWindow)
		})
	}
}

func TestDerive_Idempotent(t *testing.T) {
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	report := &airquality.Report{
		Current: airquality.Snapshot{EuropeanAQI: 55, UVIndex: 9, PM25: 60, Birch: f(45)},
		Hourly:  hourly(start, f(55), f(40), f(25)),
	}

	assert.Equal(t, guidance.Derive(report, start), guidance.Derive(report, start))
}
