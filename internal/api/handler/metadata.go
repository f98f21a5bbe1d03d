package handler

import (
	"net/http"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/api/models"
	"github.com/airas/airas/internal/api/response"
	"github.com/airas/airas/internal/banding"
	"github.com/airas/airas/internal/guidance"
	"github.com/airas/airas/internal/settings"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct{}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{}
}

// ListBands handles GET /v1/metadata/bands - every band table.
func (h *MetadataHandler) ListBands(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Bands{
		EuropeanAQI: banding.EuropeanAQI,
		USAQI:       banding.USAQI,
		UVIndex:     banding.UVIndex,
		Pollen:      banding.PollenCount,
		Pollutants:  banding.Pollutants,
	})
}

// GetEnums handles GET /v1/metadata/enums - enum values used by the API.
func (h *MetadataHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	species := make([]models.Species, 0, len(airquality.AllSpecies))
	for _, sp := range airquality.AllSpecies {
		species = append(species, models.Species{
			Key:      string(sp),
			Name:     sp.Name(),
			Category: string(sp.Category()),
		})
	}

	response.JSON(w, r, http.StatusOK, models.Enums{
		Scales: []banding.Scale{banding.ScaleEuropean, banding.ScaleUS},
		Ratings: []string{
			string(guidance.RatingExcellent),
			string(guidance.RatingGood),
			string(guidance.RatingCaution),
			string(guidance.RatingIndoorOnly),
			string(guidance.RatingAvoid),
		},
		Species: species,
		Settings: []string{
			settings.KeyAutoRefresh,
			settings.KeyRefreshIntervalMinutes,
			settings.KeyAQIScale,
			settings.KeyCachedOnlyAirQuality,
		},
	})
}
