package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/airas/airas/internal/airquality"
)

// Refresher re-fetches reports. *airquality.Service implements it.
type Refresher interface {
	Refresh(ctx context.Context, loc airquality.Location) (*airquality.Report, error)
	Locations() []airquality.Location
}

// RefreshJob refreshes cached air quality reports.
type RefreshJob struct {
	config    RefreshConfig
	logger    zerolog.Logger
	refresher Refresher

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRuns          int64
	SuccessfulRefresh  int64
	FailedRefreshes    int64
	LastRefreshAt      time.Time
	LastRefreshTook    time.Duration
	TotalDuration      time.Duration
	LastLocationsCount int
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config    RefreshConfig
	Logger    zerolog.Logger
	Refresher Refresher
}

// NewRefreshJob creates a new refresh job.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if len(config.Locations) == 0 && !config.IncludeRecent {
		config = DefaultRefreshConfig()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &RefreshJob{
		config:    config,
		logger:    cfg.Logger,
		refresher: cfg.Refresher,
		metrics:   &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a refresh run.
type RefreshResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Total      int
	Successful int
	Failed     int
	Errors     []RefreshError
}

// RefreshError records a failed location.
type RefreshError struct {
	Location airquality.Location
	Error    string
}

// Run refreshes every target location.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	var recent []airquality.Location
	if j.refresher != nil {
		recent = j.refresher.Locations()
	}
	return j.RunFor(ctx, j.config.Targets(recent))
}

// RunFor refreshes the given locations using the job's worker pool.
func (j *RefreshJob) RunFor(ctx context.Context, locations []airquality.Location) *RefreshResult {
	startTime := time.Now()
	result := &RefreshResult{
		StartTime: startTime,
		Total:     len(locations),
	}

	j.logger.Info().
		Int("locations", result.Total).
		Int("concurrency", j.config.Concurrency).
		Msg("starting report refresh")

	if j.refresher != nil && len(locations) > 0 {
		locChan := make(chan airquality.Location, len(locations))
		resultsChan := make(chan locationResult, len(locations))

		var wg sync.WaitGroup
		for i := 0; i < j.config.Concurrency; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				j.refreshWorker(ctx, locChan, resultsChan)
			}()
		}

		for _, loc := range locations {
			locChan <- loc
		}
		close(locChan)

		go func() {
			wg.Wait()
			close(resultsChan)
		}()

		for lr := range resultsChan {
			if lr.err == nil {
				result.Successful++
				continue
			}
			result.Failed++
			result.Errors = append(result.Errors, RefreshError{
				Location: lr.location,
				Error:    lr.err.Error(),
			})
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("report refresh completed")

	return result
}

// ErrRefreshFailed is returned by PollJob when every location failed.
var ErrRefreshFailed = errors.New("report refresh failed")

// PollJob adapts a RefreshJob for a Poller. A run counts as failed only
// when no location could be refreshed.
func PollJob(job *RefreshJob) PollFunc {
	return func(ctx context.Context) error {
		result := job.Run(ctx)
		if result.Failed > 0 && result.Successful == 0 {
			return fmt.Errorf("%w: %d of %d locations: %s",
				ErrRefreshFailed, result.Failed, result.Total, result.Errors[0].Error)
		}
		return nil
	}
}

type locationResult struct {
	location airquality.Location
	err      error
}

func (j *RefreshJob) refreshWorker(ctx context.Context, locations <-chan airquality.Location, results chan<- locationResult) {
	for loc := range locations {
		if ctx.Err() != nil {
			results <- locationResult{location: loc, err: ctx.Err()}
			continue
		}
		results <- locationResult{location: loc, err: j.refreshLocation(ctx, loc)}
	}
}

func (j *RefreshJob) refreshLocation(ctx context.Context, loc airquality.Location) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	_, err := j.refresher.Refresh(ctx, loc)
	if err != nil {
		j.logger.Warn().
			Err(err).
			Str("location", loc.Name).
			Str("key", loc.Key()).
			Msg("failed to refresh report")
	}
	return err
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulRefresh += int64(result.Successful)
	j.metrics.FailedRefreshes += int64(result.Failed)
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRefreshTook = result.Duration
	j.metrics.TotalDuration += result.Duration
	j.metrics.LastLocationsCount = result.Total
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:          j.metrics.TotalRuns,
		SuccessfulRefresh:  j.metrics.SuccessfulRefresh,
		FailedRefreshes:    j.metrics.FailedRefreshes,
		LastRefreshAt:      j.metrics.LastRefreshAt,
		LastRefreshTook:    j.metrics.LastRefreshTook,
		TotalDuration:      j.metrics.TotalDuration,
		LastLocationsCount: j.metrics.LastLocationsCount,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":            m.TotalRuns,
		"successful_refreshes":  m.SuccessfulRefresh,
		"failed_refreshes":      m.FailedRefreshes,
		"last_refresh_at":       m.LastRefreshAt,
		"last_refresh_duration": m.LastRefreshTook.String(),
		"total_duration":        m.TotalDuration.String(),
		"last_locations":        m.LastLocationsCount,
	}
}
