// Package forecast aggregates hourly air quality series into per-day
// forecasts, outdoor session windows and upcoming warnings.
package forecast

import (
	"math"
	"strings"
	"time"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/banding"
)

// MaxDays caps the number of daily forecasts.
const MaxDays = 5

// Safety is the coarse per-day session classification.
type Safety string

const (
	SafetyGood    Safety = "good"
	SafetyCaution Safety = "caution"
	SafetyPoor    Safety = "poor"
)

// DayForecast summarises one calendar day of the hourly series.
type DayForecast struct {
	Date        string       `json:"date"`
	DayLabel    string       `json:"day_label"`
	IsToday     bool         `json:"is_today"`
	AvgAQI      float64      `json:"avg_aqi"`
	AQIBand     banding.Band `json:"aqi_band"`
	PeakUV      float64      `json:"peak_uv"`
	UVBand      banding.Band `json:"uv_band"`
	PeakPollen  *float64     `json:"peak_pollen"`
	PollenLabel string       `json:"pollen_label"`
	SessionSafe Safety       `json:"session_safe"`
}

// dateKey is the calendar date of t in its own offset.
func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

type dayGroup struct {
	key   string
	hours []airquality.Hour
}

// groupByDay groups hours by calendar date, preserving first-seen order.
func groupByDay(series airquality.Series) []dayGroup {
	var groups []dayGroup
	index := map[string]int{}
	for _, h := range series {
		key := dateKey(h.Time)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, dayGroup{key: key})
		}
		groups[i].hours = append(groups[i].hours, h)
	}
	return groups
}

// DailyForecasts summarises up to MaxDays calendar days. Days are taken in
// the series' own offset; today is judged against now in that offset.
func DailyForecasts(series airquality.Series, now time.Time) []DayForecast {
	groups := groupByDay(series)
	if len(groups) > MaxDays {
		groups = groups[:MaxDays]
	}

	out := make([]DayForecast, 0, len(groups))
	for _, g := range groups {
		out = append(out, summariseDay(g, now))
	}
	return out
}

func summariseDay(g dayGroup, now time.Time) DayForecast {
	var sum float64
	var n int
	peakUV := 0.0
	var peakPollen *float64

	for i := range g.hours {
		h := &g.hours[i]
		if h.EuropeanAQI != nil && *h.EuropeanAQI > 0 {
			sum += *h.EuropeanAQI
			n++
		}
		if h.UVIndex != nil && *h.UVIndex > peakUV {
			peakUV = *h.UVIndex
		}
		if p, ok := h.PeakPollen(); ok && (peakPollen == nil || p > *peakPollen) {
			peakPollen = airquality.Float(p)
		}
	}

	avg := 0.0
	if n > 0 {
		avg = math.Round(sum / float64(n))
	}

	pollenMax := airquality.Value(peakPollen, 0)
	safety := SafetyGood
	switch {
	case avg > 60 || peakUV > 10 || pollenMax > 60:
		safety = SafetyPoor
	case avg > 40 || peakUV > 7 || pollenMax > 30:
		safety = SafetyCaution
	}

	first := g.hours[0].Time
	isToday := dateKey(now.In(first.Location())) == g.key
	label := first.Format("Mon")
	if isToday {
		label = "Today"
	}

	pollenLabel := "—"
	if peakPollen != nil {
		pollenLabel = strings.TrimPrefix(banding.Pollen(*peakPollen).Label, "None/")
	}

	return DayForecast{
		Date:        g.key,
		DayLabel:    label,
		IsToday:     isToday,
		AvgAQI:      avg,
		AQIBand:     banding.AQI(avg, banding.ScaleEuropean),
		PeakUV:      peakUV,
		UVBand:      banding.UV(peakUV),
		PeakPollen:  peakPollen,
		PollenLabel: pollenLabel,
		SessionSafe: safety,
	}
}
