// Package resilience wraps outbound provider HTTP calls with retries, a
// circuit breaker and a shared health registry.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for a provider's circuit breaker.
type CircuitBreakerConfig struct {
	Name string

	// MaxRequests is the number of trial requests let through when half-open.
	MaxRequests uint32

	// Interval clears the closed-state counts periodically. Zero never clears.
	Interval time.Duration

	// Timeout is how long the breaker stays open before a trial request.
	Timeout time.Duration

	// MinRequests and FailureRatio drive the default trip rule.
	MinRequests  uint32
	FailureRatio float64

	// ReadyToTrip overrides the MinRequests/FailureRatio rule.
	ReadyToTrip func(counts gobreaker.Counts) bool
}

// DefaultCircuitBreakerConfig returns the breaker used for Open-Meteo style
// providers: half the last five or more calls failing opens it for a minute.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Timeout:      60 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.5,
	}
}

// tripRule reports whether counts exceed the configured failure ratio.
func (c CircuitBreakerConfig) tripRule() func(gobreaker.Counts) bool {
	if c.ReadyToTrip != nil {
		return c.ReadyToTrip
	}
	minRequests, ratio := c.MinRequests, c.FailureRatio
	return func(counts gobreaker.Counts) bool {
		if counts.Requests == 0 || counts.Requests < minRequests {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
	}
}

// IsSuccessful treats cancellation as success. Searches abandoned by a
// newer keystroke and refreshes cut short by shutdown say nothing about
// the provider's health.
func IsSuccessful(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// NewCircuitBreaker creates a circuit breaker that logs its state
// transitions to logger.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:         cfg.Name,
		MaxRequests:  cfg.MaxRequests,
		Interval:     cfg.Interval,
		Timeout:      cfg.Timeout,
		ReadyToTrip:  cfg.tripRule(),
		IsSuccessful: IsSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			event := logger.Info()
			if to == gobreaker.StateOpen {
				event = logger.Warn()
			}
			event.
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}
