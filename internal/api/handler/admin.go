package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/airas/airas/internal/api/models"
	"github.com/airas/airas/internal/api/response"
	"github.com/airas/airas/internal/settings"
	"github.com/airas/airas/internal/worker"
)

const maxSettingsBody = 16 << 10

// SettingsStore reads and updates runtime settings.
type SettingsStore interface {
	List(ctx context.Context) []settings.Setting
	Snapshot(ctx context.Context) settings.Snapshot
	Update(ctx context.Context, req settings.UpdateRequest) (settings.Snapshot, error)
	InvalidateCache()
}

// Triggerer wakes the background poller. Trigger reports false when the
// poller is not running.
type Triggerer interface {
	Trigger() bool
}

// RefreshRunner runs a refresh pass synchronously.
type RefreshRunner interface {
	Run(ctx context.Context) *worker.RefreshResult
}

// CacheInvalidator drops cached reports.
type CacheInvalidator interface {
	InvalidateCache()
}

// AdminConfig configures the admin handler. Poller and Job are optional.
type AdminConfig struct {
	Settings SettingsStore
	Reports  CacheInvalidator
	Poller   Triggerer
	Job      RefreshRunner
	Logger   zerolog.Logger
}

// AdminHandler handles token-protected admin endpoints.
type AdminHandler struct {
	cfg AdminConfig
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(cfg AdminConfig) *AdminHandler {
	return &AdminHandler{cfg: cfg}
}

// GetSettings handles GET /v1/admin/settings.
func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	response.JSON(w, r, http.StatusOK, models.SettingsResponse{
		Settings:  h.cfg.Settings.List(ctx),
		Effective: models.NewEffectiveSettings(h.cfg.Settings.Snapshot(ctx)),
	})
}

// UpdateSettings handles PUT /v1/admin/settings.
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSettingsBody)

	var req settings.UpdateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if len(req.Updates) == 0 {
		response.BadRequest(w, r, "no updates given", []models.FieldError{
			{Field: "updates", Message: "at least one update is required", Code: models.CodeRequired},
		})
		return
	}

	ctx := r.Context()
	snap, err := h.cfg.Settings.Update(ctx, req)
	if err != nil {
		if errors.Is(err, settings.ErrUnknownSetting) || errors.Is(err, settings.ErrInvalidValue) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		h.cfg.Logger.Error().Err(err).Msg("failed to update settings")
		response.InternalError(w, r, "failed to update settings")
		return
	}

	h.cfg.Logger.Info().
		Int("updates", len(req.Updates)).
		Str("reason", req.Reason).
		Msg("settings updated")

	response.JSON(w, r, http.StatusOK, models.SettingsResponse{
		Settings:  h.cfg.Settings.List(ctx),
		Effective: models.NewEffectiveSettings(snap),
	})
}

// Refresh handles POST /v1/admin/refresh. A running poller is woken and the
// request returns 202; otherwise the refresh runs inline.
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Poller != nil && h.cfg.Poller.Trigger() {
		response.Accepted(w, r, "/v1/ops/status", models.RefreshResponse{Mode: "triggered"})
		return
	}
	if h.cfg.Job == nil {
		response.ServiceUnavailable(w, r, "background refresh is not configured")
		return
	}

	result := h.cfg.Job.Run(r.Context())
	body := models.RefreshResponse{
		Mode:       "ran",
		Total:      result.Total,
		Successful: result.Successful,
		Failed:     result.Failed,
		DurationMS: result.Duration.Milliseconds(),
	}
	if len(result.Errors) > 0 {
		body.Errors = make(map[string]string, len(result.Errors))
		for _, e := range result.Errors {
			body.Errors[e.Location.Key()] = e.Error
		}
	}
	response.JSON(w, r, http.StatusOK, body)
}

// InvalidateCache handles POST /v1/admin/cache/invalidate.
func (h *AdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Reports != nil {
		h.cfg.Reports.InvalidateCache()
	}
	h.cfg.Settings.InvalidateCache()

	h.cfg.Logger.Info().Msg("caches invalidated")
	response.NoContent(w, r)
}
