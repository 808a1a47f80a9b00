package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/fixpoint-io/fixpoint-api/internal/apperr"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/scope"
)

type DeviceRepository interface {
	CreateDevice(ctx context.Context, d models.Device) (models.Device, error)
	GetDeviceByID(ctx context.Context, id string) (models.Device, error)
	ListDevices(ctx context.Context, filter scope.Filter, status models.DeviceStatus) ([]models.Device, error)
	UpdateDeviceStatus(ctx context.Context, id string, status models.DeviceStatus, finalCost *float64) (models.Device, error)
	AssignTechnician(ctx context.Context, id, techID string) (models.Device, error)
}

type deviceRepository struct {
	db *sql.DB
}

func NewDeviceRepository(db *sql.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

const deviceColumns = `id, ticket_number, customer_id, location_id, brand, model, serial_number, problem, status, assigned_tech_id, estimated_cost, final_cost, created_at, updated_at`

func (r *deviceRepository) CreateDevice(ctx context.Context, d models.Device) (models.Device, error) {
	d.Brand = strings.TrimSpace(d.Brand)
	d.Model = strings.TrimSpace(d.Model)
	if d.CustomerID == "" {
		return models.Device{}, apperr.E(apperr.KindValidation, "customer id is required")
	}
	if d.Brand == "" || d.Model == "" {
		return models.Device{}, apperr.E(apperr.KindValidation, "device brand and model are required")
	}

	const query = `
		INSERT INTO devices (ticket_number, customer_id, location_id, brand, model, serial_number, problem, status, assigned_tech_id, estimated_cost)
		VALUES ('TK-' || to_char(nextval('ticket_number_seq'), 'FM000000'), $1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + deviceColumns

	row := r.db.QueryRowContext(ctx, query,
		d.CustomerID, d.LocationID, d.Brand, d.Model, d.SerialNumber,
		d.Problem, models.DeviceStatusReceived, d.AssignedTechID, d.EstimatedCost)
	return scanDevice(row)
}

func (r *deviceRepository) GetDeviceByID(ctx context.Context, id string) (models.Device, error) {
	const query = `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE id = $1`
	return scanDevice(r.db.QueryRowContext(ctx, query, id))
}

func (r *deviceRepository) ListDevices(ctx context.Context, filter scope.Filter, status models.DeviceStatus) ([]models.Device, error) {
	clause, args := filter.Clause("location_id", 1)
	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE ` + clause
	if status != "" {
		query += ` AND status = $` + itoa(len(args)+1)
		args = append(args, status)
	}
	query += `
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return devices, nil
}

func (r *deviceRepository) UpdateDeviceStatus(ctx context.Context, id string, status models.DeviceStatus, finalCost *float64) (models.Device, error) {
	const query = `
		UPDATE devices
		SET status = $2, final_cost = COALESCE($3, final_cost), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + deviceColumns
	return scanDevice(r.db.QueryRowContext(ctx, query, id, status, finalCost))
}

func (r *deviceRepository) AssignTechnician(ctx context.Context, id, techID string) (models.Device, error) {
	const query = `
		UPDATE devices
		SET assigned_tech_id = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + deviceColumns
	return scanDevice(r.db.QueryRowContext(ctx, query, id, techID))
}

func scanDevice(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Device, error) {
	var (
		d             models.Device
		locationID    sql.NullString
		assignedTech  sql.NullString
		estimatedCost sql.NullFloat64
		finalCost     sql.NullFloat64
	)
	if err := scanner.Scan(
		&d.ID,
		&d.TicketNumber,
		&d.CustomerID,
		&locationID,
		&d.Brand,
		&d.Model,
		&d.SerialNumber,
		&d.Problem,
		&d.Status,
		&assignedTech,
		&estimatedCost,
		&finalCost,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return models.Device{}, err
	}
	if locationID.Valid {
		val := locationID.String
		d.LocationID = &val
	}
	if assignedTech.Valid {
		val := assignedTech.String
		d.AssignedTechID = &val
	}
	if estimatedCost.Valid {
		val := estimatedCost.Float64
		d.EstimatedCost = &val
	}
	if finalCost.Valid {
		val := finalCost.Float64
		d.FinalCost = &val
	}
	return d, nil
}
