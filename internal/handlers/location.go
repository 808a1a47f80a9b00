package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/repository"
)

type LocationHandler struct {
	locations repository.LocationRepository
	logger    zerolog.Logger
}

func NewLocationHandler(locations repository.LocationRepository, logger zerolog.Logger) *LocationHandler {
	return &LocationHandler{
		locations: locations,
		logger:    logger.With().Str("handler", "location").Logger(),
	}
}

type locationRequest struct {
	Name    string `json:"name"`
	Code    string `json:"code"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func (h *LocationHandler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	loc, err := h.locations.CreateLocation(r.Context(), req.Name, req.Code, req.Address, req.Phone)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, loc)
}

func (h *LocationHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := h.locations.GetLocationByID(r.Context(), mux.Vars(r)["locationID"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (h *LocationHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	locs, err := h.locations.ListLocations(r.Context(), activeOnly)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

func (h *LocationHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var loc models.Location
	if err := decodeJSON(r, &loc); err != nil {
		writeError(w, h.logger, err)
		return
	}
	loc.ID = mux.Vars(r)["locationID"]
	updated, err := h.locations.UpdateLocation(r.Context(), loc)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
