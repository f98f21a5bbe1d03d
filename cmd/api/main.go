// Package main provides the entrypoint for the airas API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/airquality/openmeteo"
	"github.com/airas/airas/internal/api"
	"github.com/airas/airas/internal/api/middleware"
	"github.com/airas/airas/internal/config"
	"github.com/airas/airas/internal/database"
	"github.com/airas/airas/internal/geocoding"
	"github.com/airas/airas/internal/provider/resilience"
	"github.com/airas/airas/internal/settings"
	"github.com/airas/airas/internal/telemetry"
	"github.com/airas/airas/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "airas-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	// A local .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to read .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.App.Env).
		Msg("starting airas API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, serviceName, log); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1) //nolint:gocritic // deferred stop is best-effort
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, serviceName string, log zerolog.Logger) error {
	// Initialize OpenTelemetry
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.App.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics(tp.Meter)
	if err != nil {
		return fmt.Errorf("initialize http metrics: %w", err)
	}
	providerMetrics, err := telemetry.NewProviderMetrics(tp.Meter)
	if err != nil {
		return fmt.Errorf("initialize provider metrics: %w", err)
	}

	// Settings persist in Postgres when a database is configured
	var settingsRepo settings.Repository = settings.NewInMemoryRepository()
	var pool *pgxpool.Pool
	if cfg.Database.Enabled() {
		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		settingsRepo = settings.NewPostgresRepository(pool)
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")
	} else {
		log.Warn().Msg("no database configured, settings are kept in memory")
	}

	settingsService := settings.NewService(settings.ServiceConfig{
		Repository: settingsRepo,
		Logger:     log,
	})

	// Upstream clients share one registry for /v1/ops/status
	registry := resilience.NewRegistry()

	aqHTTP := resilience.DefaultClientConfig(openmeteo.ProviderName)
	aqHTTP.Timeout = cfg.AirQuality.Timeout
	aqHTTP.InitialInterval = 200 * time.Millisecond
	aqHTTP.Registry = registry
	aqHTTP.Observer = providerMetrics
	aqHTTP.Logger = log
	reports := airquality.NewService(airquality.ServiceConfig{
		Provider: openmeteo.NewClient(openmeteo.ClientConfig{
			BaseURL:    cfg.AirQuality.BaseURL,
			HTTPClient: resilience.NewClient(aqHTTP),
		}),
		Logger:          log,
		CacheTTL:        cfg.AirQuality.CacheTTL,
		StaleIfErrorTTL: cfg.AirQuality.StaleIfErrorTTL,
		MaxLocations:    cfg.AirQuality.MaxLocations,
	})

	if err := telemetry.RegisterCacheMetrics(tp.Meter, reports, time.Now); err != nil {
		return fmt.Errorf("initialize cache metrics: %w", err)
	}

	geoHTTP := resilience.DefaultClientConfig(geocoding.ProviderName)
	geoHTTP.Timeout = cfg.Geocoding.Timeout
	geoHTTP.MaxRetries = 2
	geoHTTP.MaxInterval = time.Second
	geoHTTP.Registry = registry
	geoHTTP.Observer = providerMetrics
	geoHTTP.Logger = log
	geocoder := geocoding.NewClient(geocoding.ClientConfig{
		BaseURL:    cfg.Geocoding.BaseURL,
		Language:   cfg.Geocoding.Language,
		HTTPClient: resilience.NewClient(geoHTTP),
	})

	// Background refresh keeps the fallback and recently requested locations warm
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			Locations:     []airquality.Location{cfg.Location.Location()},
			IncludeRecent: true,
			Concurrency:   cfg.Refresh.Concurrency,
			Timeout:       cfg.Refresh.Timeout,
		},
		Logger:    log,
		Refresher: reports,
	})

	snap := settingsService.Snapshot(ctx)
	interval := cfg.Refresh.Interval
	if snap.RefreshInterval > 0 {
		interval = snap.RefreshInterval
	}
	poller := worker.NewPoller(worker.PollerConfig{
		Name:     "report-refresh",
		Interval: interval,
		Poll:     worker.PollJob(job),
		Logger:   log,
	})
	if snap.AutoRefresh {
		poller.Start(ctx)
	}
	defer poller.Stop()

	scheduler := worker.NewScheduler(ctx, poller)
	settingsService.Subscribe(func(s settings.Snapshot) {
		scheduler.Set(worker.Schedule{Enabled: s.AutoRefresh, Interval: s.RefreshInterval})
	})

	routerCfg := api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     httpMetrics,
		RequireTLS:  cfg.App.RequireTLS,
		RateLimit:   cfg.App.RateLimit,
		AdminToken:  cfg.Admin.Token,
		Reports:     reports,
		Settings:    settingsService,
		Finder:      geocoder,
		Fallback:    cfg.Location.Location(),
		Registry:    registry,
		Poller:      poller,
		Job:         job,
	}
	if pool != nil {
		routerCfg.DB = pool
	}
	if cfg.Admin.Token == "" {
		log.Warn().Msg("ADMIN_TOKEN not set, admin endpoints are disabled")
	}

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      api.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
