package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/fixpoint-io/fixpoint-api/internal/notification"
)

type NotificationHandler struct {
	notifications notification.Service
	logger        zerolog.Logger
}

func NewNotificationHandler(notifications notification.Service, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger.With().Str("handler", "notification").Logger(),
	}
}

// ListNotifications returns the requester's own in-app feed, newest first.
// Expired notifications are never included.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	recipientID, err := requesterID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	notifications, err := h.notifications.ListRecent(r.Context(), recipientID, unreadOnly, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	recipientID, err := requesterID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	count, err := h.notifications.UnreadCount(r.Context(), recipientID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

// MarkRead only touches rows owned by the requester; someone else's
// notification reads as not found.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	recipientID, err := requesterID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	notif, err := h.notifications.MarkRead(r.Context(), recipientID, mux.Vars(r)["notificationID"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, notif)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	recipientID, err := requesterID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	updated, err := h.notifications.MarkAllRead(r.Context(), recipientID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

func (h *NotificationHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.notifications.ListTypes(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}
