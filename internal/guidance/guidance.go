// Package guidance derives practice-safety guidance for wellness
// practitioners from an air quality report.
package guidance

import (
	"strconv"
	"strings"
	"time"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/pollen"
)

// Rating is the overall practice-safety rating, best first.
type Rating string

const (
	RatingExcellent  Rating = "excellent"
	RatingGood       Rating = "good"
	RatingCaution    Rating = "caution"
	RatingIndoorOnly Rating = "indoor-only"
	RatingAvoid      Rating = "avoid"
)

// Severity grades a risk factor.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityCaution Severity = "caution"
	SeverityWarning Severity = "warning"
)

// Modality is a named practice style with its own safety check.
type Modality struct {
	Name string `json:"name"`
	Safe bool   `json:"safe"`
	Note string `json:"note,omitempty"`
}

// Factor is a condition contributing to the rating.
type Factor struct {
	Label    string   `json:"label"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail"`
}

// Guidance is the derived advice for one snapshot.
type Guidance struct {
	Rating         Rating     `json:"overall_rating"`
	OutdoorSafe    bool       `json:"outdoor_safe"`
	BreathworkSafe bool       `json:"breathwork_safe"`
	Summary        string     `json:"summary"`
	Modalities     []Modality `json:"modalities"`
	Factors        []Factor   `json:"factors"`
	NextWindow     string     `json:"next_window"`
}

// Derive builds guidance from the report's current snapshot, using the
// hourly series from now onwards for the next-window text.
func Derive(r *airquality.Report, now time.Time) Guidance {
	aqi := r.Current.EuropeanAQI
	uv := r.Current.UVIndex
	pollenMax := pollen.Max(&r.Current)

	rating := rate(aqi, uv, pollenMax)
	return Guidance{
		Rating:         rating,
		OutdoorSafe:    rating == RatingExcellent || rating == RatingGood,
		BreathworkSafe: rating != RatingAvoid && rating != RatingIndoorOnly,
		Summary:        summarise(rating, aqi, uv, pollenMax),
		Modalities:     modalities(aqi, uv, pollenMax),
		Factors:        factors(aqi, uv, pollenMax, r.Current.PM25),
		NextWindow:     nextWindow(r.Hourly, now),
	}
}

func rate(aqi, uv, pollenMax float64) Rating {
	switch {
	case aqi > 80:
		return RatingAvoid
	case aqi > 60 || uv > 10 || pollenMax > 60:
		return RatingIndoorOnly
	case aqi > 40 || uv > 7 || pollenMax > 30:
		return RatingCaution
	case aqi > 20 || uv > 5 || pollenMax > 10:
		return RatingGood
	default:
		return RatingExcellent
	}
}

func noteIf(cond bool, note string) string {
	if cond {
		return note
	}
	return ""
}

func modalities(aqi, uv, pollenMax float64) []Modality {
	return []Modality{
		{
			Name: "Pranayama",
			Safe: aqi <= 30 && pollenMax <= 30,
			Note: noteIf(aqi > 30, "Reduce intensity — elevated air particles"),
		},
		{
			Name: "Holotropic Breathwork",
			Safe: aqi <= 30 && pollenMax <= 30,
			Note: noteIf(aqi > 30, "Rapid deep breathing not recommended — move indoors"),
		},
		{
			Name: "Wim Hof Method",
			Safe: aqi <= 40,
			Note: noteIf(aqi > 40, "Consider indoor cold exposure alternatives"),
		},
		{
			Name: "Sound Bath (Outdoor)",
			Safe: aqi <= 50 && uv <= 7,
			Note: noteIf(uv > 7, "Seek shade — high UV for prolonged sessions"),
		},
		{
			Name: "Outdoor Yoga",
			Safe: aqi <= 50 && uv <= 7,
			Note: noteIf(aqi > 50, "Physical exertion increases pollutant intake"),
		},
		{
			Name: "Walking Meditation",
			Safe: aqi <= 60,
			Note: noteIf(aqi > 60, "Gentle practice — consider shorter duration"),
		},
	}
}

func escalate(v, threshold float64) Severity {
	if v > threshold {
		return SeverityWarning
	}
	return SeverityCaution
}

func factors(aqi, uv, pollenMax, pm25 float64) []Factor {
	out := []Factor{}
	if aqi > 40 {
		out = append(out, Factor{
			Label:    "AQI elevated (" + num(aqi) + ")",
			Severity: escalate(aqi, 60),
			Detail:   "Air quality is affecting breathwork safety",
		})
	}
	if uv > 5 {
		out = append(out, Factor{
			Label:    "UV index " + num(uv),
			Severity: escalate(uv, 8),
			Detail:   "Sun protection needed for outdoor sessions",
		})
	}
	if pollenMax > 30 {
		out = append(out, Factor{
			Label:    "Pollen elevated",
			Severity: escalate(pollenMax, 60),
			Detail:   "Check with clients about allergies before outdoor sessions",
		})
	}
	if pm25 > 20 {
		out = append(out, Factor{
			Label:    "PM2.5 at " + num(pm25) + " μg/m³",
			Severity: escalate(pm25, 50),
			Detail:   "Fine particles penetrate deepest during breathwork",
		})
	}
	return out
}

// nextWindow describes when conditions next cross AQI 30.
func nextWindow(series airquality.Series, now time.Time) string {
	if len(series) == 0 {
		return "Monitor conditions — check back for updates"
	}

	start := series.StartIndex(now)
	if start == len(series) {
		start = 0
	}

	if airquality.Value(series[start].EuropeanAQI, 50) <= 30 {
		for _, h := range series[start:] {
			if airquality.Value(h.EuropeanAQI, 0) > 30 {
				return "Conditions remain good until " + clock(h.Time)
			}
		}
		return "Good conditions expected to continue"
	}

	for _, h := range series[start:] {
		if airquality.Value(h.EuropeanAQI, 50) <= 30 {
			if sameDay(h.Time, now) {
				return "Air quality improves after " + clock(h.Time)
			}
			return "Best window tomorrow: " + clock(h.Time)
		}
	}
	return "Monitor conditions — check back for updates"
}

func summarise(rating Rating, aqi, uv, pollenMax float64) string {
	switch rating {
	case RatingExcellent:
		return "Current conditions support all outdoor modalities. Air quality is clear with minimal particulate matter. UV index is low — no sun protection concerns."
	case RatingGood:
		uvClause := "UV levels are comfortable."
		if uv > 3 {
			uvClause = "Apply sunscreen for longer sessions."
		}
		return "Air quality is fair (AQI " + num(aqi) + "). Standard outdoor practice is recommended. " + uvClause
	case RatingCaution:
		parts := []string{"Moderate conditions detected."}
		if aqi > 40 {
			parts = append(parts, "Air quality is elevated — gentle practice only.")
		}
		if uv > 7 {
			parts = append(parts, "UV is high — seek shade.")
		}
		if pollenMax > 30 {
			parts = append(parts, "Pollen is notable — check client sensitivities.")
		}
		return strings.Join(parts, " ")
	case RatingIndoorOnly:
		parts := []string{"Outdoor conditions are not ideal for practice."}
		if aqi > 60 {
			parts = append(parts, "Air quality is poor.")
		}
		if uv > 10 {
			parts = append(parts, "UV levels are extreme.")
		}
		parts = append(parts, "Move sessions indoors.")
		return strings.Join(parts, " ")
	default:
		return "Air quality is hazardous (AQI " + num(aqi) + "). All outdoor practice should be cancelled. Minimise deep breathing even indoors if poorly ventilated."
	}
}

// num formats a reading without trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// clock formats t as HH:MM in its own zone.
func clock(t time.Time) string {
	return t.Format("15:04")
}

// sameDay compares calendar dates in t's zone.
func sameDay(t, now time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.In(t.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
