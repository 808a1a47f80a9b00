package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/fixpoint-io/fixpoint-api/internal/cache"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/repository"
)

const landingCacheKey = "landing:locations"

// LandingHandler serves the public landing page data: the active branches
// with contact details. The location list is reference data and is served
// through the TTL cache.
type LandingHandler struct {
	locations repository.LocationRepository
	cache     *cache.Cache
	cacheTTL  time.Duration
	logger    zerolog.Logger
}

func NewLandingHandler(locations repository.LocationRepository, c *cache.Cache, cacheTTL time.Duration, logger zerolog.Logger) *LandingHandler {
	if c == nil {
		c = cache.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &LandingHandler{
		locations: locations,
		cache:     c,
		cacheTTL:  cacheTTL,
		logger:    logger.With().Str("handler", "landing").Logger(),
	}
}

func (h *LandingHandler) Landing(w http.ResponseWriter, r *http.Request) {
	locations, err := h.activeLocations(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":      "FixPoint Repair Centers",
		"locations": locations,
	})
}

func (h *LandingHandler) activeLocations(r *http.Request) ([]models.Location, error) {
	if cached, ok := h.cache.Get(landingCacheKey); ok {
		if locations, ok := cached.([]models.Location); ok {
			return locations, nil
		}
	}
	locations, err := h.locations.ListLocations(r.Context(), true)
	if err != nil {
		return nil, err
	}
	h.cache.Set(landingCacheKey, locations, h.cacheTTL)
	return locations, nil
}
