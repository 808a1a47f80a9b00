package handlers

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/notification"
	"github.com/fixpoint-io/fixpoint-api/internal/repository"
)

type FeedbackHandler struct {
	feedback      repository.FeedbackRepository
	notifications notification.Service
	logger        zerolog.Logger
}

func NewFeedbackHandler(feedback repository.FeedbackRepository, notifications notification.Service, logger zerolog.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		feedback:      feedback,
		notifications: notifications,
		logger:        logger.With().Str("handler", "feedback").Logger(),
	}
}

// SubmitFeedback is the public landing page form. No authentication; the
// submission notifies admins asynchronously.
func (h *FeedbackHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var fb models.Feedback
	if err := decodeJSON(r, &fb); err != nil {
		writeError(w, h.logger, err)
		return
	}

	created, err := h.feedback.CreateFeedback(r.Context(), fb)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.notifications.NotifyFeedbackSubmitted(created)
	writeJSON(w, http.StatusCreated, created)
}

func (h *FeedbackHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	entries, err := h.feedback.ListFeedback(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
