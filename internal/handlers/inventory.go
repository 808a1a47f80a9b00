package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/fixpoint-io/fixpoint-api/internal/apperr"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/notification"
	"github.com/fixpoint-io/fixpoint-api/internal/repository"
)

type InventoryHandler struct {
	inventory     repository.InventoryRepository
	notifications notification.Service
	logger        zerolog.Logger
}

func NewInventoryHandler(inventory repository.InventoryRepository, notifications notification.Service, logger zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventory:     inventory,
		notifications: notifications,
		logger:        logger.With().Str("handler", "inventory").Logger(),
	}
}

func (h *InventoryHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var item models.InventoryItem
	if err := decodeJSON(r, &item); err != nil {
		writeError(w, h.logger, err)
		return
	}
	created, err := h.inventory.CreateItem(r.Context(), item)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *InventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.inventory.GetItemByID(r.Context(), mux.Vars(r)["itemID"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	filter, err := requestScope(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	lowStockOnly := r.URL.Query().Get("low_stock") == "true"
	items, err := h.inventory.ListItems(r.Context(), filter, lowStockOnly)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *InventoryHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var item models.InventoryItem
	if err := decodeJSON(r, &item); err != nil {
		writeError(w, h.logger, err)
		return
	}
	item.ID = mux.Vars(r)["itemID"]
	updated, err := h.inventory.UpdateItem(r.Context(), item)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type adjustQuantityRequest struct {
	Delta int `json:"delta"`
}

// AdjustQuantity applies a manual stock correction. A negative delta may not
// take the quantity below zero. Dropping to or below the reorder level fires
// the low-stock notification.
func (h *InventoryHandler) AdjustQuantity(w http.ResponseWriter, r *http.Request) {
	var req adjustQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Delta == 0 {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "delta must be non-zero"))
		return
	}

	item, err := h.inventory.AdjustQuantity(r.Context(), mux.Vars(r)["itemID"], req.Delta)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if req.Delta < 0 && item.IsLowStock() {
		h.notifications.NotifyLowStock(item)
	}
	writeJSON(w, http.StatusOK, item)
}
