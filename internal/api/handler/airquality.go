package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/api/models"
	"github.com/airas/airas/internal/api/response"
	"github.com/airas/airas/internal/banding"
	"github.com/airas/airas/internal/forecast"
	"github.com/airas/airas/internal/guidance"
	"github.com/airas/airas/internal/pollen"
	"github.com/airas/airas/internal/settings"
)

// errNoCachedData is returned in cached-only mode when nothing is cached.
var errNoCachedData = errors.New("no cached air quality data for this location")

// ReportSource supplies air quality reports.
type ReportSource interface {
	GetReport(ctx context.Context, loc airquality.Location) (*airquality.Report, error)
	Cached(loc airquality.Location) (*airquality.Report, bool)
}

// SettingsReader exposes the current runtime settings.
type SettingsReader interface {
	Snapshot(ctx context.Context) settings.Snapshot
}

// AirQualityConfig configures the air quality handler.
type AirQualityConfig struct {
	Reports  ReportSource
	Settings SettingsReader
	Fallback airquality.Location
	Logger   zerolog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// AirQualityHandler serves conditions, forecasts and trends.
type AirQualityHandler struct {
	reports  ReportSource
	settings SettingsReader
	fallback airquality.Location
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAirQualityHandler creates a new AirQualityHandler.
func NewAirQualityHandler(cfg AirQualityConfig) *AirQualityHandler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &AirQualityHandler{
		reports:  cfg.Reports,
		settings: cfg.Settings,
		fallback: cfg.Fallback,
		logger:   cfg.Logger,
		now:      now,
	}
}

// Conditions handles GET /v1/conditions - current reading with guidance.
func (h *AirQualityHandler) Conditions(w http.ResponseWriter, r *http.Request) {
	scale, ok := h.scale(w, r)
	if !ok {
		return
	}
	loc, report, src, ok := h.load(w, r)
	if !ok {
		return
	}

	now := h.now()
	cur := &report.Current
	headline := cur.EuropeanAQI
	if scale == banding.ScaleUS {
		headline = cur.USAQI
	}

	body := models.Conditions{
		Location: loc,
		Source:   src,
		Current:  *cur,
		AQI: models.AQISummary{
			Scale:         scale,
			Value:         headline,
			Band:          banding.AQI(headline, scale),
			GaugePosition: banding.GaugePosition(headline, scale),
			European:      models.ScaleReading{Value: cur.EuropeanAQI, Band: banding.AQI(cur.EuropeanAQI, banding.ScaleEuropean)},
			US:            models.ScaleReading{Value: cur.USAQI, Band: banding.AQI(cur.USAQI, banding.ScaleUS)},
			Tagline:       banding.Tagline(cur.EuropeanAQI),
		},
		UV: models.UVSummary{
			Value:         cur.UVIndex,
			ClearSky:      cur.UVIndexClearSky,
			Band:          banding.UV(cur.UVIndex),
			GaugePosition: banding.UVGaugePosition(cur.UVIndex),
			Exposure:      banding.ExposureFor(cur.UVIndex),
		},
		Pollen: models.PollenSummary{
			HasData: pollen.HasData(cur),
			Level:   pollen.OverallLevel(cur),
			Note:    pollen.PractitionerNote(cur),
			Types:   pollen.Types(cur),
		},
		Pollutants: airquality.Pollutants(report, now),
		Guidance:   guidance.Derive(report, now),
	}
	if aod := currentHour(report); aod != nil && aod.AerosolOpticalDepth != nil {
		body.AirClarity = banding.AirClarity(*aod.AerosolOpticalDepth)
	}

	response.JSON(w, r, http.StatusOK, body)
}

// Forecast handles GET /v1/forecast - daily summaries, session windows and warnings.
func (h *AirQualityHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	loc, report, src, ok := h.load(w, r)
	if !ok {
		return
	}

	now := h.now()
	response.JSON(w, r, http.StatusOK, models.Forecast{
		Location: loc,
		Source:   src,
		Days:     forecast.DailyForecasts(report.Hourly, now),
		Windows:  forecast.BestWindows(report.Hourly, now),
		Warnings: forecast.UpcomingWarnings(report.Hourly, now),
	})
}

// Trend handles GET /v1/trend - the last 24 hours of AQI and the hourly pollen series.
func (h *AirQualityHandler) Trend(w http.ResponseWriter, r *http.Request) {
	loc, report, src, ok := h.load(w, r)
	if !ok {
		return
	}

	response.JSON(w, r, http.StatusOK, models.Trend{
		Location: loc,
		Source:   src,
		AQI:      airquality.Last24Hours(report, h.now()),
		Pollen:   pollen.Hourly(report.Hourly),
	})
}

// scale reads the optional scale parameter, defaulting to the configured
// AQI scale.
func (h *AirQualityHandler) scale(w http.ResponseWriter, r *http.Request) (banding.Scale, bool) {
	if v := r.URL.Query().Get("scale"); v != "" {
		s := banding.Scale(strings.ToLower(v))
		if !s.Valid() {
			response.BadRequest(w, r, "invalid scale", []models.FieldError{
				{Field: "scale", Message: "must be european or us", Code: models.CodeInvalid},
			})
			return "", false
		}
		return s, true
	}
	if h.settings != nil {
		return h.settings.Snapshot(r.Context()).AQIScale, true
	}
	return banding.ScaleEuropean, true
}

// load resolves the requested location and its report, writing the error
// response itself when either fails.
func (h *AirQualityHandler) load(w http.ResponseWriter, r *http.Request) (airquality.Location, *airquality.Report, models.Source, bool) {
	loc, fieldErrs := LocationFromQuery(r, h.fallback)
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid coordinates", fieldErrs)
		return loc, nil, models.Source{}, false
	}

	start := time.Now()
	report, cached, err := h.fetch(r.Context(), loc)
	if err != nil {
		switch {
		case errors.Is(err, airquality.ErrInvalidCoordinates):
			response.BadRequest(w, r, err.Error(), nil)
		case errors.Is(err, errNoCachedData):
			response.ServiceUnavailable(w, r, err.Error())
		default:
			h.logger.Warn().
				Err(err).
				Str("location", loc.Key()).
				Msg("air quality unavailable")
			response.ServiceUnavailable(w, r, "air quality provider unavailable, try again shortly")
		}
		return loc, nil, models.Source{}, false
	}

	src := models.Source{
		Provider:         report.Provider,
		FetchedAt:        models.Timestamp(report.FetchedAt),
		Timezone:         report.Timezone,
		UTCOffsetSeconds: report.UTCOffsetSeconds,
		Cached:           cached || report.FetchedAt.Before(start),
	}
	return loc, report, src, true
}

func (h *AirQualityHandler) fetch(ctx context.Context, loc airquality.Location) (*airquality.Report, bool, error) {
	if h.settings != nil && h.settings.Snapshot(ctx).CachedOnlyAirQuality {
		report, ok := h.reports.Cached(loc)
		if !ok {
			return nil, false, errNoCachedData
		}
		return report, true, nil
	}
	report, err := h.reports.GetReport(ctx, loc)
	return report, false, err
}

// LocationFromQuery reads lat, lon and an optional name from the query.
// With neither coordinate set it returns fallback.
func LocationFromQuery(r *http.Request, fallback airquality.Location) (airquality.Location, []models.FieldError) {
	q := r.URL.Query()
	latRaw, lonRaw := strings.TrimSpace(q.Get("lat")), strings.TrimSpace(q.Get("lon"))
	if latRaw == "" && lonRaw == "" {
		return fallback, nil
	}

	var errs []models.FieldError
	lat := coordinate("lat", latRaw, 90, &errs)
	lon := coordinate("lon", lonRaw, 180, &errs)
	if len(errs) > 0 {
		return airquality.Location{}, errs
	}

	loc := airquality.Location{
		Name:      strings.TrimSpace(q.Get("name")),
		Country:   strings.TrimSpace(q.Get("country")),
		Latitude:  lat,
		Longitude: lon,
	}
	if loc.Name == "" {
		loc.Name = loc.Key()
	}
	return loc, nil
}

func coordinate(field, raw string, limit float64, errs *[]models.FieldError) float64 {
	if raw == "" {
		*errs = append(*errs, models.FieldError{Field: field, Message: "required with " + other(field), Code: models.CodeRequired})
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, models.FieldError{Field: field, Message: "must be a number", Code: models.CodeInvalid})
		return 0
	}
	if math.IsNaN(v) || v < -limit || v > limit {
		*errs = append(*errs, models.FieldError{
			Field:   field,
			Message: "must be between -" + strconv.Itoa(int(limit)) + " and " + strconv.Itoa(int(limit)),
			Code:    models.CodeOutOfRange,
		})
		return 0
	}
	return v
}

func other(field string) string {
	if field == "lat" {
		return "lon"
	}
	return "lat"
}

// currentHour returns the hourly record covering the current reading.
func currentHour(r *airquality.Report) *airquality.Hour {
	var found *airquality.Hour
	for i := range r.Hourly {
		if r.Hourly[i].Time.After(r.Current.Time) {
			break
		}
		found = &r.Hourly[i]
	}
	return found
}
