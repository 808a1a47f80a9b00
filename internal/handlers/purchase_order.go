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

type PurchaseOrderHandler struct {
	orders        repository.PurchaseOrderRepository
	notifications notification.Service
	logger        zerolog.Logger
}

func NewPurchaseOrderHandler(orders repository.PurchaseOrderRepository, notifications notification.Service, logger zerolog.Logger) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{
		orders:        orders,
		notifications: notifications,
		logger:        logger.With().Str("handler", "purchase_order").Logger(),
	}
}

type poLineRequest struct {
	ItemID      string  `json:"item_id"`
	Description string  `json:"description"`
	QtyOrdered  int     `json:"qty_ordered"`
	UnitCost    float64 `json:"unit_cost"`
}

type createOrderRequest struct {
	Supplier   string          `json:"supplier"`
	LocationID *string         `json:"location_id"`
	Lines      []poLineRequest `json:"lines"`
}

func (h *PurchaseOrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	createdBy, err := requesterID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if len(req.Lines) == 0 {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "purchase order requires at least one line"))
		return
	}

	po := models.PurchaseOrder{
		Supplier:   req.Supplier,
		LocationID: req.LocationID,
		CreatedBy:  createdBy,
	}
	for _, line := range req.Lines {
		po.Lines = append(po.Lines, models.PurchaseOrderLine{
			ItemID:      line.ItemID,
			Description: line.Description,
			QtyOrdered:  line.QtyOrdered,
			UnitCost:    line.UnitCost,
		})
	}

	created, err := h.orders.CreateOrder(r.Context(), po)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *PurchaseOrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	po, err := h.orders.GetOrderByID(r.Context(), mux.Vars(r)["orderID"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, po)
}

func (h *PurchaseOrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := requestScope(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	status := models.PurchaseOrderStatus(r.URL.Query().Get("status"))
	orders, err := h.orders.ListOrders(r.Context(), filter, status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *PurchaseOrderHandler) MarkOrdered(w http.ResponseWriter, r *http.Request) {
	po, err := h.orders.MarkOrdered(r.Context(), mux.Vars(r)["orderID"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, po)
}

func (h *PurchaseOrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	po, err := h.orders.CancelOrder(r.Context(), mux.Vars(r)["orderID"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, po)
}

type receiveOrderRequest struct {
	Receipts map[string]int `json:"receipts"`
}

// ReceiveOrder books received quantities against the order's lines, adds the
// stock to inventory, and advances the order status. A fully received order
// fires the received notification.
func (h *PurchaseOrderHandler) ReceiveOrder(w http.ResponseWriter, r *http.Request) {
	var req receiveOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if len(req.Receipts) == 0 {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "receipts are required"))
		return
	}

	po, err := h.orders.ReceiveOrder(r.Context(), mux.Vars(r)["orderID"], req.Receipts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if po.Status == models.POStatusReceived {
		h.notifications.NotifyPurchaseOrderReceived(po)
	}
	writeJSON(w, http.StatusOK, po)
}
