package openmeteo_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/airquality/openmeteo"
)

var hourlyNames = []string{
	"european_aqi", "us_aqi", "pm10", "pm2_5",
	"carbon_monoxide", "nitrogen_dioxide", "sulphur_dioxide", "ozone",
	"uv_index", "uv_index_clear_sky", "dust", "aerosol_optical_depth",
	"alder_pollen", "birch_pollen", "grass_pollen",
	"mugwort_pollen", "olive_pollen", "ragweed_pollen",
	"carbon_dioxide", "methane", "ammonia",
}

// testResponse builds an API response with n hours from 2026-06-01T00:00.
func testResponse(n int) map[string]interface{} {
	times := make([]string, n)
	for i := range times {
		times[i] = fmt.Sprintf("2026-06-01T%02d:00", i)
	}

	hourly := map[string]interface{}{"time": times}
	for _, name := range hourlyNames {
		values := make([]interface{}, n)
		for i := range values {
			values[i] = float64(i + 1)
		}
		hourly[name] = values
	}
	// Pollen out of season
	grass := make([]interface{}, n)
	hourly["grass_pollen"] = grass

	return map[string]interface{}{
		"latitude":              54.96,
		"longitude":             -1.6,
		"utc_offset_seconds":    3600,
		"timezone":              "Europe/London",
		"timezone_abbreviation": "BST",
		"current": map[string]interface{}{
			"time":            "2026-06-01T02:00",
			"european_aqi":    18,
			"us_aqi":          22,
			"pm2_5":           4.5,
			"uv_index":        3.2,
			"grass_pollen":    nil,
			"birch_pollen":    12.0,
			"ozone":           61.0,
			"sulphur_dioxide": 1.2,
		},
		"hourly": hourly,
	}
}

func TestClient_FetchReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "54.96", q.Get("latitude"))
		assert.Equal(t, "-1.6", q.Get("longitude"))
		assert.Equal(t, "auto", q.Get("timezone"))
		assert.Equal(t, "5", q.Get("forecast_days"))
		assert.Contains(t, q.Get("current"), "ragweed_pollen")
		assert.Equal(t, strings.Join(hourlyNames, ","), q.Get("hourly"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(testResponse(4))
	}))
	defer server.Close()

	client := openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	loc := airquality.Location{Name: "Gateshead", Country: "GB", Latitude: 54.96, Longitude: -1.6}
	report, err := client.FetchReport(context.Background(), loc)
	require.NoError(t, err)

	assert.Equal(t, openmeteo.ProviderName, report.Provider)
	assert.Equal(t, "Gateshead", report.Location.Name)
	assert.Equal(t, "Europe/London", report.Timezone)
	assert.Equal(t, 3600, report.UTCOffsetSeconds)

	// Current reading
	assert.Equal(t, 18.0, report.Current.EuropeanAQI)
	assert.Equal(t, 4.5, report.Current.PM25)
	assert.Equal(t, 0.0, report.Current.PM10, "missing fields read as zero")
	assert.Nil(t, report.Current.Grass, "null pollen stays null")
	require.NotNil(t, report.Current.Birch)
	assert.Equal(t, 12.0, *report.Current.Birch)
	assert.Nil(t, report.Current.Olive)

	// Hourly records keep the source offset
	require.Len(t, report.Hourly, 4)
	first := report.Hourly[0]
	_, offset := first.Time.Zone()
	assert.Equal(t, 3600, offset)
	assert.Equal(t, 0, first.Time.Hour())
	assert.Equal(t, time.Date(2026, 5, 31, 23, 0, 0, 0, time.UTC), first.Time.UTC())
	assert.Equal(t, 1.0, *first.EuropeanAQI)
	assert.Equal(t, 1.0, *first.Ammonia)
	assert.Nil(t, first.Grass)
	assert.Equal(t, 4.0, *report.Hourly[3].AerosolOpticalDepth)
	assert.Equal(t, 2, report.Current.Time.Hour())
}

func TestClient_FetchReport_MisalignedSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := testResponse(4)
		resp["hourly"].(map[string]interface{})["ozone"] = []float64{1, 2, 3}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	_, err := client.FetchReport(context.Background(), airquality.Location{Latitude: 1, Longitude: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, airquality.ErrMisalignedSeries)
	assert.Contains(t, err.Error(), "ozone")
}

func TestClient_FetchReport_MissingArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := testResponse(2)
		delete(resp["hourly"].(map[string]interface{}), "methane")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := openmeteo.NewClient(openmeteo.ClientConfig{BaseURL: server.URL, HTTPClient: http.DefaultClient})

	_, err := client.FetchReport(context.Background(), airquality.Location{Latitude: 1, Longitude: 1})
	assert.ErrorIs(t, err, airquality.ErrMisalignedSeries)
}

func TestClient_FetchReport_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		errText string
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			},
			errText: "unexpected status 400",
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte("{not json"))
			},
			errText: "decode air quality response",
		},
		{
			name: "bad timestamp",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				resp := testResponse(1)
				resp["hourly"].(map[string]interface{})["time"] = []string{"yesterday"}
				json.NewEncoder(w).Encode(resp)
			},
			errText: "parse hourly time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := openmeteo.NewClient(openmeteo.ClientConfig{BaseURL: server.URL, HTTPClient: http.DefaultClient})
			_, err := client.FetchReport(context.Background(), airquality.Location{Latitude: 1, Longitude: 1})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestClient_FetchReport_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(100 * time.Millisecond)
		json.NewEncoder(w).Encode(testResponse(1))
	}))
	defer server.Close()

	client := openmeteo.NewClient(openmeteo.ClientConfig{BaseURL: server.URL, HTTPClient: http.DefaultClient})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchReport(ctx, airquality.Location{Latitude: 1, Longitude: 1})
	assert.Error(t, err)
}
