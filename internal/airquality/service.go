package airquality

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Provider defines the interface for air quality data providers.
type Provider interface {
	// FetchReport fetches the current reading and hourly forecast for a location.
	FetchReport(ctx context.Context, loc Location) (*Report, error)
}

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	// Provider is the air quality data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache a report (default: 15 minutes).
	CacheTTL time.Duration

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 30 minutes).
	StaleIfErrorTTL time.Duration

	// MaxLocations bounds the number of cached locations (default: 256).
	MaxLocations int
}

// Service provides air quality reports with a per-location cache.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	staleIfErrorTTL time.Duration
	maxLocations    int

	mu      sync.RWMutex
	entries map[string]*cacheEntry

	// inflight holds one provider fetch per location key. Fetches run
	// without mu so a slow location never blocks reads of another.
	inflight singleflight.Group
}

type cacheEntry struct {
	report *Report
	expiry time.Time
}

// NewService creates a new air quality service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 15 * time.Minute
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 30 * time.Minute
	}

	maxLocations := cfg.MaxLocations
	if maxLocations == 0 {
		maxLocations = 256
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		staleIfErrorTTL: staleIfErrorTTL,
		maxLocations:    maxLocations,
		entries:         make(map[string]*cacheEntry),
	}
}

// GetReport returns the report for a location.
// It uses a cached version if available and not expired.
func (s *Service) GetReport(ctx context.Context, loc Location) (*Report, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	key := loc.Key()
	s.mu.RLock()
	if e, ok := s.entries[key]; ok && time.Now().Before(e.expiry) {
		report := e.report
		s.mu.RUnlock()
		return report, nil
	}
	s.mu.RUnlock()

	return s.refresh(ctx, loc, false)
}

// Cached returns the last report fetched for a location without contacting
// the provider, as long as it is within the stale-if-error window.
func (s *Service) Cached(loc Location) (*Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[loc.Key()]
	if !ok || time.Now().After(e.report.FetchedAt.Add(s.staleIfErrorTTL)) {
		return nil, false
	}
	return e.report, true
}

// Refresh forces a provider fetch for a location.
func (s *Service) Refresh(ctx context.Context, loc Location) (*Report, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	return s.refresh(ctx, loc, true)
}

// Locations returns every cached location, most recently fetched first.
func (s *Service) Locations() []Location {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*cacheEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].report.FetchedAt.After(entries[j].report.FetchedAt)
	})

	locations := make([]Location, 0, len(entries))
	for _, e := range entries {
		locations = append(locations, e.report.Location)
	}
	return locations
}

// InvalidateCache clears every cached report.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*cacheEntry)
}

// CacheStatus returns information about the current cache state.
func (s *Service) CacheStatus() CacheStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := CacheStatus{Locations: len(s.entries)}
	if len(s.entries) == 0 {
		return status
	}

	now := time.Now()
	status.HasData = true
	for _, e := range s.entries {
		if e.report.FetchedAt.After(status.NewestFetchedAt) {
			status.NewestFetchedAt = e.report.FetchedAt
			status.Provider = e.report.Provider
		}
		if now.After(e.expiry) {
			status.Expired++
		}
		if now.After(e.report.FetchedAt.Add(s.staleIfErrorTTL)) {
			status.Stale++
		}
	}
	return status
}

// CacheStatus represents the current state of the cache.
type CacheStatus struct {
	HasData         bool
	Locations       int
	Expired         int
	Stale           int
	NewestFetchedAt time.Time
	Provider        string
}

// refresh fetches fresh data from the provider. Concurrent callers for
// the same location share one fetch; each stops waiting when its own ctx
// ends.
func (s *Service) refresh(ctx context.Context, loc Location, force bool) (*Report, error) {
	key := loc.Key()

	// Double-check: a shared fetch may have finished since GetReport looked
	if !force {
		if report, ok := s.fresh(key); ok {
			return report, nil
		}
	}

	ch := s.inflight.DoChan(key, func() (any, error) {
		return s.fetch(ctx, loc)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Report), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) fresh(key string) (*Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[key]; ok && time.Now().Before(e.expiry) {
		return e.report, true
	}
	return nil, false
}

// fetch calls the provider and stores the result. mu is only taken to
// read and write the cache around the call.
func (s *Service) fetch(ctx context.Context, loc Location) (*Report, error) {
	key := loc.Key()
	s.logger.Debug().Str("location", key).Msg("refreshing air quality report")

	report, err := s.provider.FetchReport(ctx, loc)
	if err != nil {
		s.logger.Error().Err(err).Str("location", key).Msg("failed to fetch air quality report")

		s.mu.RLock()
		prev := s.entries[key]
		s.mu.RUnlock()

		// If we have stale data that's not too old, return it
		if prev != nil && time.Now().Before(prev.report.FetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", prev.report.FetchedAt).
				Str("location", key).
				Msg("serving stale air quality data due to provider error")
			return prev.report, nil
		}

		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	if report.Location.Name == "" {
		report.Location = loc
	}

	s.mu.Lock()
	if _, ok := s.entries[key]; !ok && len(s.entries) >= s.maxLocations {
		s.evictOldest()
	}
	s.entries[key] = &cacheEntry{report: report, expiry: time.Now().Add(s.cacheTTL)}
	s.mu.Unlock()

	s.logger.Info().
		Str("location", key).
		Int("hours", len(report.Hourly)).
		Float64("european_aqi", report.Current.EuropeanAQI).
		Msg("air quality report refreshed")

	return report, nil
}

// evictOldest drops the least recently fetched entry. Caller holds mu.
func (s *Service) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range s.entries {
		if oldestKey == "" || e.report.FetchedAt.Before(oldest) {
			oldestKey, oldest = k, e.report.FetchedAt
		}
	}
	delete(s.entries, oldestKey)
}
