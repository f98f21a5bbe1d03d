// Package location decides which place to report on when the caller does
// not name one.
package location

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/airas/airas/internal/airquality"
)

// Default is used when nothing better is known.
var Default = airquality.Location{
	Name:      "Gateshead",
	Country:   "GB",
	Admin1:    "England",
	Latitude:  54.96,
	Longitude: -1.60,
}

// DefaultTimeout bounds a single resolution attempt.
const DefaultTimeout = 10 * time.Second

// Locator finds the caller's approximate position.
type Locator interface {
	Locate(ctx context.Context) (airquality.Location, error)
}

// ResolverConfig holds configuration for a Resolver.
type ResolverConfig struct {
	Locator  Locator
	Fallback airquality.Location
	Timeout  time.Duration
	Logger   zerolog.Logger
}

// Resolver is a best-effort location lookup. It never fails: denial,
// errors and timeouts all yield the fallback.
type Resolver struct {
	locator  Locator
	fallback airquality.Location
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewResolver creates a Resolver. A zero Fallback means Default.
func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Fallback == (airquality.Location{}) {
		cfg.Fallback = Default
	}
	return &Resolver{
		locator:  cfg.Locator,
		fallback: cfg.Fallback,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}
}

// Resolve returns the located position, or the fallback with ok false.
func (r *Resolver) Resolve(ctx context.Context) (loc airquality.Location, ok bool) {
	if r.locator == nil {
		return r.fallback, false
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		loc airquality.Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		l, err := r.locator.Locate(ctx)
		done <- result{l, err}
	}()

	select {
	case res := <-done:
		if res.err == nil {
			res.err = res.loc.Validate()
		}
		if res.err != nil {
			r.logger.Debug().Err(res.err).Msg("location lookup failed, using fallback")
			return r.fallback, false
		}
		return res.loc, true
	case <-ctx.Done():
		r.logger.Debug().Err(ctx.Err()).Dur("timeout", r.timeout).Msg("location lookup timed out, using fallback")
		return r.fallback, false
	}
}
