// Package handler provides HTTP handlers for the airas API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/api/models"
	"github.com/airas/airas/internal/api/response"
	"github.com/airas/airas/internal/provider/resilience"
	"github.com/airas/airas/internal/worker"
)

// Pinger checks a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheReporter summarises the report cache.
type CacheReporter interface {
	CacheStatus() airquality.CacheStatus
}

// PollerReporter exposes the background refresh poller state.
type PollerReporter interface {
	Status() worker.PollerStatus
}

// OpsConfig configures the ops handler. Registry, Cache, Poller and DB are
// optional.
type OpsConfig struct {
	Version   string
	BuildTime string
	Registry  *resilience.Registry
	Cache     CacheReporter
	Poller    PollerReporter
	DB        Pinger

	// PingTimeout bounds the readiness database ping.
	// Default: 2 seconds
	PingTimeout time.Duration
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	if cfg.PingTimeout == 0 {
		cfg.PingTimeout = 2 * time.Second
	}
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if h.cfg.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.cfg.PingTimeout)
		defer cancel()
		if err := h.cfg.DB.Ping(ctx); err != nil {
			response.ServiceUnavailable(w, r, "database unreachable")
			return
		}
	}

	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	})
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: h.subsystems(r.Context()),
		Providers:  h.providers(),
		Refresh:    h.refresh(),
	}

	if h.cfg.Cache != nil {
		cs := h.cfg.Cache.CacheStatus()
		status.Cache = models.CacheStatus{
			HasData:         cs.HasData,
			Locations:       cs.Locations,
			Expired:         cs.Expired,
			Stale:           cs.Stale,
			NewestFetchedAt: models.TimestampPtr(cs.NewestFetchedAt),
			Provider:        cs.Provider,
		}
	}

	for _, p := range status.Providers {
		if p.Status == models.HealthStatusFail && !status.Cache.HasData {
			status.Status = models.HealthStatusFail
			break
		}
		if p.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
		}
	}
	if status.Status == models.HealthStatusOK {
		for _, s := range status.Subsystems {
			if s.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
				break
			}
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) subsystems(ctx context.Context) []models.SubsystemStatus {
	subs := []models.SubsystemStatus{}
	if h.cfg.DB != nil {
		db := models.SubsystemStatus{Name: "postgres", Status: models.HealthStatusOK}
		pingCtx, cancel := context.WithTimeout(ctx, h.cfg.PingTimeout)
		if err := h.cfg.DB.Ping(pingCtx); err != nil {
			msg := err.Error()
			db.Status = models.HealthStatusFail
			db.Detail = &msg
		}
		cancel()
		subs = append(subs, db)
	}
	if h.cfg.Poller != nil {
		ps := h.cfg.Poller.Status()
		poller := models.SubsystemStatus{Name: "refresh-poller", Status: models.HealthStatusOK}
		if ps.LastError != nil {
			msg := ps.LastError.Error()
			poller.Status = models.HealthStatusDegraded
			poller.Detail = &msg
		}
		subs = append(subs, poller)
	}
	return subs
}

func (h *OpsHandler) providers() []models.ProviderStatus {
	providers := []models.ProviderStatus{}
	if h.cfg.Registry == nil {
		return providers
	}
	for _, ph := range h.cfg.Registry.GetAllHealth() {
		ps := models.ProviderStatus{
			Provider:     ph.Name,
			CircuitState: ph.CircuitState.String(),
		}
		switch ph.Status() {
		case resilience.HealthHealthy:
			ps.Status = models.HealthStatusOK
		case resilience.HealthDegraded:
			ps.Status = models.HealthStatusDegraded
		default:
			ps.Status = models.HealthStatusFail
		}
		if ph.LastSuccessAt != nil {
			ps.LastSuccessAt = models.TimestampPtr(*ph.LastSuccessAt)
		}
		if ph.LastFailureAt != nil {
			ps.LastFailureAt = models.TimestampPtr(*ph.LastFailureAt)
		}
		if ph.LastError != "" {
			msg := ph.LastError
			ps.Message = &msg
		}
		providers = append(providers, ps)
	}
	return providers
}

func (h *OpsHandler) refresh() *models.RefreshStatus {
	if h.cfg.Poller == nil {
		return nil
	}
	ps := h.cfg.Poller.Status()
	rs := &models.RefreshStatus{
		Running:         ps.Running,
		IntervalSeconds: int64(ps.Interval.Seconds()),
		Runs:            ps.Runs,
		LastRunAt:       models.TimestampPtr(ps.LastRunAt),
	}
	if ps.LastError != nil {
		msg := ps.LastError.Error()
		rs.LastError = &msg
	}
	return rs
}
