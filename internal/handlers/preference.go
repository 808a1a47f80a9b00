package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/fixpoint-io/fixpoint-api/internal/apperr"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/notification"
)

type PreferenceHandler struct {
	notifications notification.Service
	logger        zerolog.Logger
}

func NewPreferenceHandler(notifications notification.Service, logger zerolog.Logger) *PreferenceHandler {
	return &PreferenceHandler{
		notifications: notifications,
		logger:        logger.With().Str("handler", "preference").Logger(),
	}
}

func (h *PreferenceHandler) ListPreferences(w http.ResponseWriter, r *http.Request) {
	userID, err := requesterID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	prefs, err := h.notifications.ListPreferences(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// GetPreference returns the effective preference for one type: the stored
// row when one exists, otherwise the channel defaults.
func (h *PreferenceHandler) GetPreference(w http.ResponseWriter, r *http.Request) {
	userID, err := requesterID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pref, err := h.notifications.EffectivePreference(r.Context(), userID, mux.Vars(r)["typeID"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pref)
}

type updatePreferenceRequest struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
	Push  bool `json:"push"`
	InApp bool `json:"in_app"`
}

func (h *PreferenceHandler) UpdatePreference(w http.ResponseWriter, r *http.Request) {
	userID, err := requesterID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	typeID := mux.Vars(r)["typeID"]
	if typeID == "" {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "type id is required"))
		return
	}

	var req updatePreferenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	pref, err := h.notifications.UpdatePreference(r.Context(), models.NotificationPreference{
		UserID: userID,
		TypeID: typeID,
		Email:  req.Email,
		SMS:    req.SMS,
		Push:   req.Push,
		InApp:  req.InApp,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pref)
}
