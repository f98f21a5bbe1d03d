// Package api provides the HTTP API for airas.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/api/handler"
	"github.com/airas/airas/internal/api/middleware"
	"github.com/airas/airas/internal/api/models"
	"github.com/airas/airas/internal/api/response"
	"github.com/airas/airas/internal/geocoding"
	"github.com/airas/airas/internal/provider/resilience"
)

// Reports is what the API needs from the air quality service.
type Reports interface {
	handler.ReportSource
	handler.CacheReporter
	handler.CacheInvalidator
}

// Poller is what the API needs from the background refresh poller.
type Poller interface {
	handler.Triggerer
	handler.PollerReporter
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	// RateLimit is the per-IP limit on read endpoints in requests per
	// minute. Zero disables it.
	RateLimit int

	// AdminToken guards /v1/admin. Empty disables the admin endpoints.
	AdminToken string

	Reports  Reports
	Settings handler.SettingsStore
	Finder   geocoding.Finder
	Fallback airquality.Location
	Registry *resilience.Registry
	Poller   Poller
	Job      handler.RefreshRunner
	DB       handler.Pinger
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "airas-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, models.NewProblem(
			models.ProblemTypeNotFound,
			"Method not allowed",
			http.StatusMethodNotAllowed,
			middleware.GetRequestID(r.Context()),
		).WithDetail(r.Method+" is not supported on "+r.URL.Path))
	})

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.Registry,
		Cache:     cfg.Reports,
		Poller:    cfg.Poller,
		DB:        cfg.DB,
	})
	aqHandler := handler.NewAirQualityHandler(handler.AirQualityConfig{
		Reports:  cfg.Reports,
		Settings: cfg.Settings,
		Fallback: cfg.Fallback,
		Logger:   cfg.Logger,
	})
	locationsHandler := handler.NewLocationsHandler(cfg.Finder, cfg.Logger)
	metadataHandler := handler.NewMetadataHandler()
	adminHandler := handler.NewAdminHandler(handler.AdminConfig{
		Settings: cfg.Settings,
		Reports:  cfg.Reports,
		Poller:   cfg.Poller,
		Job:      cfg.Job,
		Logger:   cfg.Logger,
	})

	standardRateLimit := middleware.RateLimitByIP(middleware.PerMinute(cfg.RateLimit))
	searchRateLimit := middleware.RateLimitByIP(middleware.SearchRateLimit)
	adminRateLimit := middleware.RateLimitByIP(middleware.AdminRateLimit)

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public, unthrottled for probes)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/conditions", aqHandler.Conditions)
			r.Get("/forecast", aqHandler.Forecast)
			r.Get("/trend", aqHandler.Trend)

			r.Route("/metadata", func(r chi.Router) {
				r.Get("/bands", metadataHandler.ListBands)
				r.Get("/enums", metadataHandler.GetEnums)
			})
		})

		// Search hits the geocoder on every call
		r.With(searchRateLimit).Get("/locations/search", locationsHandler.Search)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminToken(cfg.AdminToken))
			r.Use(adminRateLimit)
			r.Use(middleware.RequireJSON)

			r.Get("/settings", adminHandler.GetSettings)
			r.Put("/settings", adminHandler.UpdateSettings)
			r.Post("/refresh", adminHandler.Refresh)
			r.Post("/cache/invalidate", adminHandler.InvalidateCache)
		})
	})

	return r
}
