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

type DeviceHandler struct {
	devices       repository.DeviceRepository
	customers     repository.CustomerRepository
	notifications notification.Service
	logger        zerolog.Logger
}

func NewDeviceHandler(devices repository.DeviceRepository, customers repository.CustomerRepository, notifications notification.Service, logger zerolog.Logger) *DeviceHandler {
	return &DeviceHandler{
		devices:       devices,
		customers:     customers,
		notifications: notifications,
		logger:        logger.With().Str("handler", "device").Logger(),
	}
}

type registerDeviceRequest struct {
	CustomerID    string   `json:"customer_id"`
	LocationID    *string  `json:"location_id"`
	Brand         string   `json:"brand"`
	Model         string   `json:"model"`
	SerialNumber  string   `json:"serial_number"`
	Problem       string   `json:"problem"`
	AssignedTech  *string  `json:"assigned_tech_id"`
	EstimatedCost *float64 `json:"estimated_cost"`
}

// RegisterDevice opens a repair ticket. The ticket number is assigned by the
// database sequence and the device always starts in the received status.
func (h *DeviceHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	customer, err := h.customers.GetCustomerByID(r.Context(), req.CustomerID)
	if err != nil {
		writeError(w, h.logger, apperr.Wrap(err, apperr.KindOf(err), "customer lookup failed"))
		return
	}

	device, err := h.devices.CreateDevice(r.Context(), models.Device{
		CustomerID:     req.CustomerID,
		LocationID:     req.LocationID,
		Brand:          req.Brand,
		Model:          req.Model,
		SerialNumber:   req.SerialNumber,
		Problem:        req.Problem,
		AssignedTechID: req.AssignedTech,
		EstimatedCost:  req.EstimatedCost,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.notifications.NotifyDeviceRegistered(device, customer.FullName)
	writeJSON(w, http.StatusCreated, device)
}

func (h *DeviceHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	device, err := h.devices.GetDeviceByID(r.Context(), mux.Vars(r)["deviceID"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	filter, err := requestScope(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	status := models.DeviceStatus(r.URL.Query().Get("status"))
	if status != "" && !models.IsValidDeviceStatus(status) {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "unknown device status %q", status))
		return
	}
	devices, err := h.devices.ListDevices(r.Context(), filter, status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

type updateStatusRequest struct {
	Status    string   `json:"status"`
	FinalCost *float64 `json:"final_cost"`
}

// UpdateStatus moves a ticket along the repair workflow. Illegal transitions
// are rejected; reaching the ready status fires the pickup notification.
func (h *DeviceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	next := models.DeviceStatus(req.Status)
	if !models.IsValidDeviceStatus(next) {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "unknown device status %q", req.Status))
		return
	}

	deviceID := mux.Vars(r)["deviceID"]
	device, err := h.devices.GetDeviceByID(r.Context(), deviceID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !device.Status.CanTransition(next) {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "cannot move device from %s to %s", device.Status, next))
		return
	}

	updated, err := h.devices.UpdateDeviceStatus(r.Context(), deviceID, next, req.FinalCost)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if updated.Status == models.DeviceStatusReady {
		h.notifications.NotifyRepairCompleted(updated)
	}
	writeJSON(w, http.StatusOK, updated)
}

type assignTechRequest struct {
	TechnicianID string `json:"technician_id"`
}

func (h *DeviceHandler) AssignTechnician(w http.ResponseWriter, r *http.Request) {
	var req assignTechRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.TechnicianID == "" {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "technician id is required"))
		return
	}
	device, err := h.devices.AssignTechnician(r.Context(), mux.Vars(r)["deviceID"], req.TechnicianID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}
