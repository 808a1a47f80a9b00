package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/notification"
	"github.com/fixpoint-io/fixpoint-api/internal/repository"
	"github.com/fixpoint-io/fixpoint-api/internal/scope"
)

type fakeDeviceRepo struct {
	device        models.Device
	updatedStatus models.DeviceStatus
}

func (f *fakeDeviceRepo) CreateDevice(_ context.Context, d models.Device) (models.Device, error) {
	d.ID = "dev-1"
	d.TicketNumber = "TK-000001"
	d.Status = models.DeviceStatusReceived
	return d, nil
}

func (f *fakeDeviceRepo) GetDeviceByID(_ context.Context, id string) (models.Device, error) {
	if id != f.device.ID {
		return models.Device{}, sql.ErrNoRows
	}
	return f.device, nil
}

func (f *fakeDeviceRepo) ListDevices(context.Context, scope.Filter, models.DeviceStatus) ([]models.Device, error) {
	return []models.Device{f.device}, nil
}

func (f *fakeDeviceRepo) UpdateDeviceStatus(_ context.Context, _ string, status models.DeviceStatus, finalCost *float64) (models.Device, error) {
	f.updatedStatus = status
	updated := f.device
	updated.Status = status
	if finalCost != nil {
		updated.FinalCost = finalCost
	}
	return updated, nil
}

func (f *fakeDeviceRepo) AssignTechnician(_ context.Context, _, techID string) (models.Device, error) {
	updated := f.device
	updated.AssignedTechID = &techID
	return updated, nil
}

type stubNotificationService struct {
	notification.Service
	repairCompleted int
}

func (s *stubNotificationService) NotifyRepairCompleted(models.Device) {
	s.repairCompleted++
}

func (s *stubNotificationService) NotifyDeviceRegistered(models.Device, string) {}

func newStatusRequest(deviceID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPut, "/api/devices/"+deviceID+"/status", strings.NewReader(body))
	return mux.SetURLVars(req, map[string]string{"deviceID": deviceID})
}

func TestUpdateStatus_RejectsIllegalTransition(t *testing.T) {
	repo := &fakeDeviceRepo{device: models.Device{ID: "dev-1", Status: models.DeviceStatusReceived}}
	notifier := &stubNotificationService{}
	handler := NewDeviceHandler(repo, nil, notifier, zerolog.Nop())

	rec := httptest.NewRecorder()
	handler.UpdateStatus(rec, newStatusRequest("dev-1", `{"status":"delivered"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot move device")
	assert.Zero(t, notifier.repairCompleted)
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	repo := &fakeDeviceRepo{device: models.Device{ID: "dev-1", Status: models.DeviceStatusReceived}}
	handler := NewDeviceHandler(repo, nil, &stubNotificationService{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	handler.UpdateStatus(rec, newStatusRequest("dev-1", `{"status":"exploded"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatus_ReadyFiresPickupNotification(t *testing.T) {
	repo := &fakeDeviceRepo{device: models.Device{ID: "dev-1", Status: models.DeviceStatusInRepair}}
	notifier := &stubNotificationService{}
	handler := NewDeviceHandler(repo, nil, notifier, zerolog.Nop())

	rec := httptest.NewRecorder()
	handler.UpdateStatus(rec, newStatusRequest("dev-1", `{"status":"ready","final_cost":120.5}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.DeviceStatusReady, repo.updatedStatus)
	assert.Equal(t, 1, notifier.repairCompleted)
	assert.Contains(t, rec.Body.String(), `"final_cost":120.5`)
}

func TestUpdateStatus_UnknownDeviceIsNotFound(t *testing.T) {
	repo := &fakeDeviceRepo{device: models.Device{ID: "dev-1", Status: models.DeviceStatusReceived}}
	handler := NewDeviceHandler(repo, nil, &stubNotificationService{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	handler.UpdateStatus(rec, newStatusRequest("ghost", `{"status":"diagnosed"}`))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

var _ repository.DeviceRepository = (*fakeDeviceRepo)(nil)
