// Package openmeteo provides a client for the Open-Meteo air quality API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the Open-Meteo air quality endpoint.
	DefaultBaseURL = "https://air-quality-api.open-meteo.com/v1/air-quality"

	// ProviderName identifies this provider.
	ProviderName = "open-meteo"

	// ForecastDays is the hourly forecast horizon requested.
	ForecastDays = 5
)

// Fields requested for the current reading.
var currentFields = []string{
	"european_aqi", "us_aqi", "pm10", "pm2_5",
	"carbon_monoxide", "nitrogen_dioxide", "sulphur_dioxide", "ozone",
	"uv_index", "uv_index_clear_sky", "dust",
	"alder_pollen", "birch_pollen", "grass_pollen",
	"mugwort_pollen", "olive_pollen", "ragweed_pollen",
}

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	// BaseURL is the API endpoint (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an Open-Meteo air quality API client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new Open-Meteo client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// API response types (from the Open-Meteo API).

type reportResponse struct {
	Latitude             float64     `json:"latitude"`
	Longitude            float64     `json:"longitude"`
	UTCOffsetSeconds     int         `json:"utc_offset_seconds"`
	Timezone             string      `json:"timezone"`
	TimezoneAbbreviation string      `json:"timezone_abbreviation"`
	Current              currentData `json:"current"`
	Hourly               hourlyData  `json:"hourly"`
}

type currentData struct {
	Time            string   `json:"time"`
	EuropeanAQI     *float64 `json:"european_aqi"`
	USAQI           *float64 `json:"us_aqi"`
	PM10            *float64 `json:"pm10"`
	PM25            *float64 `json:"pm2_5"`
	CarbonMonoxide  *float64 `json:"carbon_monoxide"`
	NitrogenDioxide *float64 `json:"nitrogen_dioxide"`
	SulphurDioxide  *float64 `json:"sulphur_dioxide"`
	Ozone           *float64 `json:"ozone"`
	UVIndex         *float64 `json:"uv_index"`
	UVIndexClearSky *float64 `json:"uv_index_clear_sky"`
	Dust            *float64 `json:"dust"`
	Alder           *float64 `json:"alder_pollen"`
	Birch           *float64 `json:"birch_pollen"`
	Grass           *float64 `json:"grass_pollen"`
	Mugwort         *float64 `json:"mugwort_pollen"`
	Olive           *float64 `json:"olive_pollen"`
	Ragweed         *float64 `json:"ragweed_pollen"`
}

// hourlyData mirrors the parallel arrays of the hourly block.
type hourlyData struct {
	Time   []string
	Fields map[string][]*float64
}

func (h *hourlyData) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	h.Fields = make(map[string][]*float64, len(raw))
	for name, msg := range raw {
		if name == "time" {
			if err := json.Unmarshal(msg, &h.Time); err != nil {
				return fmt.Errorf("decode hourly time: %w", err)
			}
			continue
		}
		var values []*float64
		if err := json.Unmarshal(msg, &values); err != nil {
			return fmt.Errorf("decode hourly %s: %w", name, err)
		}
		h.Fields[name] = values
	}
	return nil
}

// hourlyColumns maps each hourly field onto its record slot.
var hourlyColumns = []struct {
	name string
	slot func(*airquality.Hour) **float64
}{
	{"european_aqi", func(h *airquality.Hour) **float64 { return &h.EuropeanAQI }},
	{"us_aqi", func(h *airquality.Hour) **float64 { return &h.USAQI }},
	{"pm10", func(h *airquality.Hour) **float64 { return &h.PM10 }},
	{"pm2_5", func(h *airquality.Hour) **float64 { return &h.PM25 }},
	{"carbon_monoxide", func(h *airquality.Hour) **float64 { return &h.CarbonMonoxide }},
	{"nitrogen_dioxide", func(h *airquality.Hour) **float64 { return &h.NitrogenDioxide }},
	{"sulphur_dioxide", func(h *airquality.Hour) **float64 { return &h.SulphurDioxide }},
	{"ozone", func(h *airquality.Hour) **float64 { return &h.Ozone }},
	{"uv_index", func(h *airquality.Hour) **float64 { return &h.UVIndex }},
	{"uv_index_clear_sky", func(h *airquality.Hour) **float64 { return &h.UVIndexClearSky }},
	{"dust", func(h *airquality.Hour) **float64 { return &h.Dust }},
	{"aerosol_optical_depth", func(h *airquality.Hour) **float64 { return &h.AerosolOpticalDepth }},
	{"alder_pollen", func(h *airquality.Hour) **float64 { return &h.Alder }},
	{"birch_pollen", func(h *airquality.Hour) **float64 { return &h.Birch }},
	{"grass_pollen", func(h *airquality.Hour) **float64 { return &h.Grass }},
	{"mugwort_pollen", func(h *airquality.Hour) **float64 { return &h.Mugwort }},
	{"olive_pollen", func(h *airquality.Hour) **float64 { return &h.Olive }},
	{"ragweed_pollen", func(h *airquality.Hour) **float64 { return &h.Ragweed }},
	{"carbon_dioxide", func(h *airquality.Hour) **float64 { return &h.CarbonDioxide }},
	{"methane", func(h *airquality.Hour) **float64 { return &h.Methane }},
	{"ammonia", func(h *airquality.Hour) **float64 { return &h.Ammonia }},
}

func hourlyFieldNames() []string {
	names := make([]string, 0, len(hourlyColumns))
	for _, c := range hourlyColumns {
		names = append(names, c.name)
	}
	return names
}

// FetchReport retrieves the current reading and hourly forecast for a location.
func (c *Client) FetchReport(ctx context.Context, loc airquality.Location) (*airquality.Report, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	params.Set("timezone", "auto")
	params.Set("forecast_days", strconv.Itoa(ForecastDays))
	params.Set("current", strings.Join(currentFields, ","))
	params.Set("hourly", strings.Join(hourlyFieldNames(), ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch air quality: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("air quality API error: unexpected status %d", resp.StatusCode)
	}

	var result reportResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode air quality response: %w", err)
	}

	return c.toReport(&result, loc)
}

// toReport converts the API response to a domain Report.
func (c *Client) toReport(r *reportResponse, loc airquality.Location) (*airquality.Report, error) {
	zone := time.FixedZone(r.TimezoneAbbreviation, r.UTCOffsetSeconds)

	currentTime, err := parseTime(r.Current.Time, zone)
	if err != nil {
		return nil, fmt.Errorf("parse current time: %w", err)
	}

	hourly, err := toSeries(&r.Hourly, zone)
	if err != nil {
		return nil, err
	}

	cur := &r.Current
	return &airquality.Report{
		Location: loc,
		Current: airquality.Snapshot{
			Time:            currentTime,
			EuropeanAQI:     airquality.Value(cur.EuropeanAQI, 0),
			USAQI:           airquality.Value(cur.USAQI, 0),
			PM10:            airquality.Value(cur.PM10, 0),
			PM25:            airquality.Value(cur.PM25, 0),
			CarbonMonoxide:  airquality.Value(cur.CarbonMonoxide, 0),
			NitrogenDioxide: airquality.Value(cur.NitrogenDioxide, 0),
			SulphurDioxide:  airquality.Value(cur.SulphurDioxide, 0),
			Ozone:           airquality.Value(cur.Ozone, 0),
			UVIndex:         airquality.Value(cur.UVIndex, 0),
			UVIndexClearSky: airquality.Value(cur.UVIndexClearSky, 0),
			Dust:            airquality.Value(cur.Dust, 0),
			Alder:           cur.Alder,
			Birch:           cur.Birch,
			Grass:           cur.Grass,
			Mugwort:         cur.Mugwort,
			Olive:           cur.Olive,
			Ragweed:         cur.Ragweed,
		},
		Hourly:           hourly,
		Timezone:         r.Timezone,
		UTCOffsetSeconds: r.UTCOffsetSeconds,
		FetchedAt:        time.Now(),
		Provider:         ProviderName,
	}, nil
}

// toSeries zips the parallel hourly arrays into records. Every requested
// array must match the time array's length.
func toSeries(h *hourlyData, zone *time.Location) (airquality.Series, error) {
	n := len(h.Time)
	for _, col := range hourlyColumns {
		if got := len(h.Fields[col.name]); got != n {
			return nil, fmt.Errorf("%w: %s has %d values, time has %d", airquality.ErrMisalignedSeries, col.name, got, n)
		}
	}

	series := make(airquality.Series, n)
	for i, ts := range h.Time {
		t, err := parseTime(ts, zone)
		if err != nil {
			return nil, fmt.Errorf("parse hourly time %d: %w", i, err)
		}
		series[i].Time = t
		for _, col := range hourlyColumns {
			*col.slot(&series[i]) = h.Fields[col.name][i]
		}
	}
	return series, nil
}

// parseTime reads the API's local "2006-01-02T15:04" timestamps.
func parseTime(s string, zone *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02T15:04", s, zone); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
