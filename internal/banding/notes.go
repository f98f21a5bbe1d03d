package banding

import "math"

// UVExposure is the sun-exposure guidance for a UV reading.
type UVExposure struct {
	SafeMinutes string `json:"safe_minutes"`
	Note        string `json:"practitioner_note"`
}

// ExposureFor returns exposure guidance for a UV index value.
func ExposureFor(uv float64) UVExposure {
	switch {
	case uv < 3:
		return UVExposure{SafeMinutes: "Unlimited", Note: "No concerns for outdoor sessions."}
	case uv < 6:
		return UVExposure{SafeMinutes: "~40 min", Note: "Apply sunscreen for extended sound baths."}
	case uv < 8:
		return UVExposure{SafeMinutes: "~25 min", Note: "Seek shade for group sessions, hats recommended."}
	case uv < 11:
		return UVExposure{SafeMinutes: "~15 min", Note: "Schedule sessions for morning/evening, avoid midday."}
	default:
		return UVExposure{SafeMinutes: "< 10 min", Note: "Outdoor sessions not advisable during peak UV."}
	}
}

// AirClarity describes visibility for an aerosol optical depth.
func AirClarity(aod float64) string {
	switch {
	case aod < 0.1:
		return "Crystal clear atmosphere — exceptional visibility"
	case aod < 0.3:
		return "Clear skies — good conditions"
	case aod < 0.5:
		return "Slight haze — mild atmospheric particles"
	default:
		return "Hazy conditions — elevated particles in atmosphere"
	}
}

// Tagline returns the one-line headline for a European AQI value.
func Tagline(aqi float64) string {
	switch {
	case aqi <= 20:
		return "Perfect conditions for outdoor breathwork and sound healing"
	case aqi <= 40:
		return "Clear skies for deep breathing — gentle practice recommended"
	case aqi <= 60:
		return "Moderate air — consider indoor sessions for sensitive clients"
	case aqi <= 80:
		return "Elevated pollutants — indoor practice strongly recommended"
	default:
		return "Poor air quality — avoid outdoor breathwork today"
	}
}

// GaugePosition returns the 0-100 position of an AQI value on its scale.
func GaugePosition(v float64, scale Scale) float64 {
	top := 100.0
	if scale == ScaleUS {
		top = 300
	}
	return math.Min(v/top*100, 100)
}

// UVGaugePosition returns the 0-100 position of a UV value on a 0-14 gauge.
func UVGaugePosition(v float64) float64 {
	return math.Min(v/14*100, 100)
}
