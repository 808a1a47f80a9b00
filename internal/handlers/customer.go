package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/repository"
)

type CustomerHandler struct {
	customers repository.CustomerRepository
	logger    zerolog.Logger
}

func NewCustomerHandler(customers repository.CustomerRepository, logger zerolog.Logger) *CustomerHandler {
	return &CustomerHandler{
		customers: customers,
		logger:    logger.With().Str("handler", "customer").Logger(),
	}
}

func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var customer models.Customer
	if err := decodeJSON(r, &customer); err != nil {
		writeError(w, h.logger, err)
		return
	}
	created, err := h.customers.CreateCustomer(r.Context(), customer)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customers.GetCustomerByID(r.Context(), mux.Vars(r)["customerID"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	filter, err := requestScope(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	customers, err := h.customers.ListCustomers(r.Context(), filter, r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (h *CustomerHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var customer models.Customer
	if err := decodeJSON(r, &customer); err != nil {
		writeError(w, h.logger, err)
		return
	}
	customer.ID = mux.Vars(r)["customerID"]
	updated, err := h.customers.UpdateCustomer(r.Context(), customer)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *CustomerHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.customers.DeleteCustomer(r.Context(), mux.Vars(r)["customerID"]); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
