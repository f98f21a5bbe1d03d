package handler

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/api/models"
	"github.com/airas/airas/internal/api/response"
	"github.com/airas/airas/internal/geocoding"
)

// LocationsHandler handles place search.
type LocationsHandler struct {
	finder geocoding.Finder
	logger zerolog.Logger
}

// NewLocationsHandler creates a new LocationsHandler.
func NewLocationsHandler(finder geocoding.Finder, logger zerolog.Logger) *LocationsHandler {
	return &LocationsHandler{finder: finder, logger: logger}
}

// Search handles GET /v1/locations/search?q= - find places by name.
// Queries shorter than geocoding.MinQueryLength return no results without
// contacting the geocoder.
func (h *LocationsHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	body := models.LocationResults{Query: query, Items: []airquality.Location{}}

	if utf8.RuneCountInString(query) < geocoding.MinQueryLength {
		response.JSON(w, r, http.StatusOK, body)
		return
	}

	results, err := h.finder.Search(r.Context(), query)
	if err != nil {
		h.logger.Warn().Err(err).Str("query", query).Msg("location search failed")
		response.ServiceUnavailable(w, r, "location search unavailable, try again shortly")
		return
	}
	if results != nil {
		body.Items = results
	}
	response.JSON(w, r, http.StatusOK, body)
}
