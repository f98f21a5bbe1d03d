package forecast

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/airas/airas/internal/airquality"
)

const (
	// MinWindowHours is the shortest run of good hours reported as a window.
	MinWindowHours = 2

	// MaxWindows caps the number of windows returned.
	MaxWindows = 3

	// MaxWarnings caps the number of upcoming warnings.
	MaxWarnings = 2
)

// SessionWindow is a run of consecutive good hours, [Start, End).
type SessionWindow struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Hours          int       `json:"hours"`
	AvgAQI         float64   `json:"avg_aqi"`
	PeakUV         float64   `json:"peak_uv"`
	PeakPollen     *float64  `json:"peak_pollen"`
	Quality        float64   `json:"quality"`
	Recommendation string    `json:"recommendation"`
}

// goodHour reports whether an hour suits outdoor practice. Missing AQI
// counts as 50 and missing UV as 0.
func goodHour(h *airquality.Hour) bool {
	aqi := airquality.Value(h.EuropeanAQI, 50)
	uv := airquality.Value(h.UVIndex, 0)
	peak, ok := h.PeakPollen()
	return aqi < 30 && uv < 8 && (!ok || peak <= 30)
}

// BestWindows finds runs of at least MinWindowHours good hours from now
// onwards and returns the best MaxWindows by descending quality.
func BestWindows(series airquality.Series, now time.Time) []SessionWindow {
	future := series[series.StartIndex(now):]
	windows := []SessionWindow{}

	open := -1
	for i := range future {
		good := goodHour(&future[i])
		switch {
		case good && open < 0:
			open = i
		case !good && open >= 0:
			if i-open >= MinWindowHours {
				windows = append(windows, buildWindow(future[open:i]))
			}
			open = -1
		}
	}
	if open >= 0 && len(future)-open >= MinWindowHours {
		windows = append(windows, buildWindow(future[open:]))
	}

	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].Quality > windows[j].Quality
	})
	if len(windows) > MaxWindows {
		windows = windows[:MaxWindows]
	}
	return windows
}

func buildWindow(hours airquality.Series) SessionWindow {
	var sum float64
	peakUV := 0.0
	var peakPollen *float64

	for i := range hours {
		h := &hours[i]
		sum += airquality.Value(h.EuropeanAQI, 0)
		if uv := airquality.Value(h.UVIndex, 0); uv > peakUV {
			peakUV = uv
		}
		if p, ok := h.PeakPollen(); ok && (peakPollen == nil || p > *peakPollen) {
			peakPollen = airquality.Float(p)
		}
	}

	n := len(hours)
	avg := math.Round(sum / float64(n))
	start := hours[0].Time

	return SessionWindow{
		Start:          start,
		End:            start.Add(time.Duration(n) * time.Hour),
		Hours:          n,
		AvgAQI:         avg,
		PeakUV:         peakUV,
		PeakPollen:     peakPollen,
		Quality:        Quality(avg, n, peakUV),
		Recommendation: recommend(avg, peakUV, start),
	}
}

// Quality scores a window: lower AQI, longer duration and lower UV score
// higher.
func Quality(avgAQI float64, hours int, peakUV float64) float64 {
	aqiScore := math.Max(0, 100-avgAQI*3)
	durationScore := math.Min(30, float64(hours)*3)
	uvScore := math.Max(0, 20-peakUV*2)
	return math.Round(aqiScore + durationScore + uvScore)
}

func recommend(avgAQI, peakUV float64, start time.Time) string {
	rec := "Good conditions for outdoor practice"
	switch {
	case avgAQI <= 15 && peakUV <= 3:
		rec = "Perfect for outdoor sound healing"
	case avgAQI <= 20:
		rec = "Excellent for all breathwork modalities"
	}

	if start.Hour() < 10 {
		rec = "Excellent early-morning window — " + strings.ToLower(rec[:1]) + rec[1:]
	}
	return rec
}

// UpcomingWarnings returns at most MaxWarnings warnings, one per future
// day, for the first hour of each day with AQI at or above 40.
func UpcomingWarnings(series airquality.Series, now time.Time) []string {
	warnings := []string{}
	seen := map[string]bool{}

	for _, g := range groupByDay(series[series.StartIndex(now):]) {
		for _, h := range g.hours {
			aqi := airquality.Value(h.EuropeanAQI, 0)
			if aqi < 40 {
				continue
			}
			w := h.Time.Format("Monday") + " " + period(h.Time) +
				" elevated (AQI " + strconv.FormatFloat(aqi, 'f', -1, 64) + ") — schedule around it"
			if !seen[w] {
				seen[w] = true
				warnings = append(warnings, w)
			}
			break
		}
	}

	if len(warnings) > MaxWarnings {
		warnings = warnings[:MaxWarnings]
	}
	return warnings
}

func period(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "morning"
	case h < 17:
		return "afternoon"
	default:
		return "evening"
	}
}
