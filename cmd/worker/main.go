// Package main provides the entrypoint for the airas refresh worker.
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

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/airquality/openmeteo"
	"github.com/airas/airas/internal/api/handler"
	"github.com/airas/airas/internal/api/middleware"
	"github.com/airas/airas/internal/config"
	"github.com/airas/airas/internal/database"
	"github.com/airas/airas/internal/provider/resilience"
	"github.com/airas/airas/internal/settings"
	"github.com/airas/airas/internal/telemetry"
	"github.com/airas/airas/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "airas-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to read .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting airas worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, serviceName, log); err != nil {
		log.Error().Err(err).Msg("worker stopped with error")
		os.Exit(1) //nolint:gocritic // deferred stop is best-effort
	}
	log.Info().Msg("worker stopped")
}

func run(ctx context.Context, cfg *config.Config, serviceName string, log zerolog.Logger) error {
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

	providerMetrics, err := telemetry.NewProviderMetrics(tp.Meter)
	if err != nil {
		return fmt.Errorf("initialize provider metrics: %w", err)
	}

	ops := handler.OpsConfig{Version: Version, BuildTime: BuildTime}

	// Refresh settings are shared with the API through Postgres
	var settingsRepo settings.Repository = settings.NewInMemoryRepository()
	if cfg.Database.Enabled() {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		settingsRepo = settings.NewPostgresRepository(pool)
		ops.DB = pool
	}
	snap := settings.NewService(settings.ServiceConfig{
		Repository: settingsRepo,
		Logger:     log,
	}).Snapshot(ctx)

	registry := resilience.NewRegistry()
	httpCfg := resilience.DefaultClientConfig(openmeteo.ProviderName)
	httpCfg.Timeout = cfg.AirQuality.Timeout
	httpCfg.InitialInterval = 200 * time.Millisecond
	httpCfg.Registry = registry
	httpCfg.Observer = providerMetrics
	httpCfg.Logger = log

	reports := airquality.NewService(airquality.ServiceConfig{
		Provider: openmeteo.NewClient(openmeteo.ClientConfig{
			BaseURL:    cfg.AirQuality.BaseURL,
			HTTPClient: resilience.NewClient(httpCfg),
		}),
		Logger:          log,
		CacheTTL:        cfg.AirQuality.CacheTTL,
		StaleIfErrorTTL: cfg.AirQuality.StaleIfErrorTTL,
		MaxLocations:    cfg.AirQuality.MaxLocations,
	})
	if err := telemetry.RegisterCacheMetrics(tp.Meter, reports, time.Now); err != nil {
		return fmt.Errorf("initialize cache metrics: %w", err)
	}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			Locations:     append([]airquality.Location{cfg.Location.Location()}, worker.DefaultRefreshLocations()...),
			IncludeRecent: true,
			Concurrency:   cfg.Refresh.Concurrency,
			Timeout:       cfg.Refresh.Timeout,
		},
		Logger:    log,
		Refresher: reports,
	})
	ops.Registry = registry
	ops.Cache = reports

	// Without a subscription the worker refreshes on its own schedule
	errCh := make(chan error, 2)
	if cfg.PubSub.Subscription != "" {
		ps, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSub.ProjectID,
			SubscriptionName: cfg.PubSub.Subscription,
			RefreshJob:       job,
			Logger:           log,
		})
		if err != nil {
			return fmt.Errorf("create pubsub handler: %w", err)
		}
		defer func() {
			if err := ps.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close pubsub client")
			}
		}()
		go func() {
			if err := ps.Start(ctx); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("pubsub receive: %w", err)
			}
		}()
	} else if snap.AutoRefresh {
		poller := worker.NewPoller(worker.PollerConfig{
			Name:     "report-refresh",
			Interval: snap.RefreshInterval,
			Poll:     worker.PollJob(job),
			Logger:   log,
		})
		poller.Start(ctx)
		defer poller.Stop()
		ops.Poller = poller
		log.Info().Dur("interval", snap.RefreshInterval).Msg("no pubsub subscription, polling")
	} else {
		log.Warn().Msg("no pubsub subscription and auto refresh disabled, worker is idle")
	}

	// Health endpoints for Cloud Run
	opsHandler := handler.NewOpsHandler(ops)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.ContentTypeJSON)
	r.Get("/health", opsHandler.HealthCheck)
	r.Get("/ready", opsHandler.ReadinessCheck)
	r.Get("/status", opsHandler.SystemStatus)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("health server: %w", err)
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}
	return runErr
}
