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

type SaleHandler struct {
	sales         repository.SaleRepository
	notifications notification.Service
	logger        zerolog.Logger
}

func NewSaleHandler(sales repository.SaleRepository, notifications notification.Service, logger zerolog.Logger) *SaleHandler {
	return &SaleHandler{
		sales:         sales,
		notifications: notifications,
		logger:        logger.With().Str("handler", "sale").Logger(),
	}
}

type saleLineRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type createSaleRequest struct {
	CustomerID    *string           `json:"customer_id"`
	LocationID    *string           `json:"location_id"`
	Items         []saleLineRequest `json:"items"`
	Discount      float64           `json:"discount"`
	PaymentMethod string            `json:"payment_method"`
}

// CreateSale records a receipt and decrements stock for every line in one
// transaction. Lines carry only item and quantity; name, unit price and the
// totals are taken from inventory at sale time. Items pushed below their
// reorder level by this sale trigger a low-stock notification.
func (h *SaleHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	soldBy, err := requesterID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req createSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if len(req.Items) == 0 {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "sale requires at least one item"))
		return
	}
	method := models.PaymentMethod(req.PaymentMethod)
	if !models.IsValidPaymentMethod(method) {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "unknown payment method %q", req.PaymentMethod))
		return
	}

	sale := models.Sale{
		CustomerID:    req.CustomerID,
		LocationID:    req.LocationID,
		Discount:      req.Discount,
		PaymentMethod: method,
		SoldBy:        soldBy,
	}
	for _, line := range req.Items {
		sale.Items = append(sale.Items, models.SaleItem{ItemID: line.ItemID, Quantity: line.Quantity})
	}

	created, lowStock, err := h.sales.CreateSale(r.Context(), sale)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	for _, item := range lowStock {
		h.notifications.NotifyLowStock(item)
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *SaleHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.sales.GetSaleByID(r.Context(), mux.Vars(r)["saleID"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (h *SaleHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	filter, err := requestScope(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	sales, err := h.sales.ListSales(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}
