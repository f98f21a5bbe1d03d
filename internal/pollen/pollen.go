// Package pollen derives pollen levels and practitioner notes from
// air quality snapshots. Absent species stay absent: a missing reading is
// never treated as a count.
package pollen

import (
	"strings"
	"time"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/banding"
)

// Type is the current reading for one species.
type Type struct {
	Key      airquality.Species  `json:"key"`
	Name     string              `json:"name"`
	Category airquality.Category `json:"category"`
	Value    *float64            `json:"current_value"`
}

// Types returns every species with its current reading, trees first.
func Types(s *airquality.Snapshot) []Type {
	types := make([]Type, 0, len(airquality.AllSpecies))
	for _, sp := range airquality.AllSpecies {
		types = append(types, Type{
			Key:      sp,
			Name:     sp.Name(),
			Category: sp.Category(),
			Value:    s.Pollen(sp),
		})
	}
	return types
}

// HasData reports whether any species has a reading, zero included.
func HasData(s *airquality.Snapshot) bool {
	for _, sp := range airquality.AllSpecies {
		if s.Pollen(sp) != nil {
			return true
		}
	}
	return false
}

// dominant returns the species with the highest positive reading. On a
// tie the later species in Types order wins.
func dominant(s *airquality.Snapshot) (Type, bool) {
	var best Type
	found := false
	for _, t := range Types(s) {
		if t.Value == nil || *t.Value <= 0 {
			continue
		}
		if !found || *t.Value >= *best.Value {
			best, found = t, true
		}
	}
	return best, found
}

// OverallLevel bands the highest active species, or returns nil when no
// species registers above zero.
func OverallLevel(s *airquality.Snapshot) *banding.Band {
	t, ok := dominant(s)
	if !ok {
		return nil
	}
	b := banding.Pollen(*t.Value)
	return &b
}

// PractitionerNote returns advice for the current pollen situation.
func PractitionerNote(s *airquality.Snapshot) string {
	if !HasData(s) {
		return "Pollen data not available for this location or season."
	}

	t, ok := dominant(s)
	if !ok || *t.Value < 10 {
		return "Pollen counts are low — outdoor breathwork is unaffected."
	}

	switch v := *t.Value; {
	case v < 30:
		return "Moderate pollen — ask clients about sensitivities before outdoor sessions."
	case v < 60:
		return "High " + strings.ToLower(t.Name) + " pollen — consider indoor practice for sensitive clients."
	default:
		return "Very high pollen alert — outdoor breathwork not recommended for allergy sufferers."
	}
}

// Max returns the highest non-null reading across species, or 0 when
// every species is null.
func Max(s *airquality.Snapshot) float64 {
	peak := 0.0
	seen := false
	for _, sp := range airquality.AllSpecies {
		if v := s.Pollen(sp); v != nil {
			if !seen || *v > peak {
				peak = *v
			}
			seen = true
		}
	}
	return peak
}

// HourlySeries is the hourly pollen forecast per species.
type HourlySeries struct {
	Time   []time.Time                       `json:"time"`
	Series map[airquality.Species][]*float64 `json:"series"`
}

// Hourly extracts the per-species hourly pollen series.
func Hourly(series airquality.Series) HourlySeries {
	out := HourlySeries{
		Time:   make([]time.Time, 0, len(series)),
		Series: make(map[airquality.Species][]*float64, len(airquality.AllSpecies)),
	}
	for _, sp := range airquality.AllSpecies {
		out.Series[sp] = make([]*float64, 0, len(series))
	}
	for i := range series {
		out.Time = append(out.Time, series[i].Time)
		for _, sp := range airquality.AllSpecies {
			out.Series[sp] = append(out.Series[sp], series[i].Pollen(sp))
		}
	}
	return out
}
