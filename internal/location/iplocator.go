package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/provider/resilience"
)

const (
	// DefaultIPLocatorURL is the ip-api.com lookup endpoint.
	DefaultIPLocatorURL = "http://ip-api.com/json/"

	// IPLocatorProviderName identifies the IP geolocation provider.
	IPLocatorProviderName = "ip-api"

	// CurrentLocationName labels a located position with no known city.
	CurrentLocationName = "Current Location"
)

// ErrLocationDenied is returned when the lookup service refuses the request.
var ErrLocationDenied = errors.New("location lookup denied")

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// IPLocatorConfig holds configuration for the IP locator.
type IPLocatorConfig struct {
	BaseURL    string
	HTTPClient HTTPDoer
	Timeout    time.Duration
}

// IPLocator approximates position from the public IP address.
type IPLocator struct {
	baseURL    string
	httpClient HTTPDoer
}

// NewIPLocator creates an IPLocator.
func NewIPLocator(cfg IPLocatorConfig) *IPLocator {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultIPLocatorURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 5 * time.Second
		}
		// One retry at most; the resolver falls back rather than waiting.
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            IPLocatorProviderName,
			Timeout:         timeout,
			MaxRetries:      1,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
		})
	}

	return &IPLocator{baseURL: baseURL, httpClient: httpClient}
}

type ipResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	CountryCode string  `json:"countryCode"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// Locate implements Locator.
func (l *IPLocator) Locate(ctx context.Context) (airquality.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL, http.NoBody)
	if err != nil {
		return airquality.Location{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return airquality.Location{}, fmt.Errorf("locate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return airquality.Location{}, fmt.Errorf("ip location API error: unexpected status %d", resp.StatusCode)
	}

	var body ipResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return airquality.Location{}, fmt.Errorf("decode ip location response: %w", err)
	}
	if !strings.EqualFold(body.Status, "success") {
		return airquality.Location{}, fmt.Errorf("%w: %s", ErrLocationDenied, body.Message)
	}

	name := body.City
	if name == "" {
		name = CurrentLocationName
	}
	return airquality.Location{
		Name:      name,
		Country:   body.CountryCode,
		Admin1:    body.RegionName,
		Latitude:  body.Lat,
		Longitude: body.Lon,
	}, nil
}
