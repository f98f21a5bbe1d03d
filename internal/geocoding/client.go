// Package geocoding resolves place names to coordinates using the
// Open-Meteo geocoding API.
package geocoding

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
	// DefaultBaseURL is the Open-Meteo geocoding search endpoint.
	DefaultBaseURL = "https://geocoding-api.open-meteo.com/v1/search"

	// ProviderName identifies this provider.
	ProviderName = "open-meteo-geocoding"

	// MaxResults is the number of candidates requested per search.
	MaxResults = 5
)

// ClientConfig holds configuration for the geocoding client.
type ClientConfig struct {
	// BaseURL is the API endpoint (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use.
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Language for place names (default: "en").
	Language string

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an Open-Meteo geocoding API client.
type Client struct {
	baseURL    string
	language   string
	httpClient HTTPDoer
}

// NewClient creates a new geocoding client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	language := cfg.Language
	if language == "" {
		language = "en"
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
			MaxRetries:      2,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     time.Second,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		language:   language,
		httpClient: httpClient,
	}
}

type searchResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Country   string  `json:"country"`
		Admin1    string  `json:"admin1"`
	} `json:"results"`
}

// Search returns up to MaxResults places matching the query. An unknown
// place yields an empty slice, not an error.
func (c *Client) Search(ctx context.Context, query string) ([]airquality.Location, error) {
	params := url.Values{}
	params.Set("name", query)
	params.Set("count", strconv.Itoa(MaxResults))
	params.Set("language", c.language)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search places: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding API error: unexpected status %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode geocoding response: %w", err)
	}

	locations := make([]airquality.Location, 0, len(result.Results))
	for _, r := range result.Results {
		locations = append(locations, airquality.Location{
			Name:      r.Name,
			Country:   r.Country,
			Admin1:    r.Admin1,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
		})
	}
	return locations, nil
}
