package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/fixpoint-io/fixpoint-api/internal/apperr"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
)

type LocationRepository interface {
	CreateLocation(ctx context.Context, name, code, address, phone string) (models.Location, error)
	GetLocationByID(ctx context.Context, id string) (models.Location, error)
	ListLocations(ctx context.Context, activeOnly bool) ([]models.Location, error)
	UpdateLocation(ctx context.Context, loc models.Location) (models.Location, error)
}

type locationRepository struct {
	db *sql.DB
}

func NewLocationRepository(db *sql.DB) LocationRepository {
	return &locationRepository{db: db}
}

const locationColumns = `id, name, code, address, phone, is_active, created_at, updated_at`

func (r *locationRepository) CreateLocation(ctx context.Context, name, code, address, phone string) (models.Location, error) {
	name = strings.TrimSpace(name)
	code = strings.ToUpper(strings.TrimSpace(code))
	if name == "" || code == "" {
		return models.Location{}, apperr.E(apperr.KindValidation, "location name and code are required")
	}

	const query = `
		INSERT INTO locations (name, code, address, phone, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING ` + locationColumns

	return scanLocation(r.db.QueryRowContext(ctx, query, name, code, address, phone))
}

func (r *locationRepository) GetLocationByID(ctx context.Context, id string) (models.Location, error) {
	const query = `
		SELECT ` + locationColumns + `
		FROM locations
		WHERE id = $1`
	return scanLocation(r.db.QueryRowContext(ctx, query, id))
}

func (r *locationRepository) ListLocations(ctx context.Context, activeOnly bool) ([]models.Location, error) {
	query := `
		SELECT ` + locationColumns + `
		FROM locations`
	if activeOnly {
		query += `
		WHERE is_active`
	}
	query += `
		ORDER BY code`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []models.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return locations, nil
}

func (r *locationRepository) UpdateLocation(ctx context.Context, loc models.Location) (models.Location, error) {
	const query = `
		UPDATE locations
		SET name = $2, code = $3, address = $4, phone = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + locationColumns

	return scanLocation(r.db.QueryRowContext(ctx, query, loc.ID, loc.Name, loc.Code, loc.Address, loc.Phone, loc.IsActive))
}

func scanLocation(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Location, error) {
	var loc models.Location
	err := scanner.Scan(
		&loc.ID,
		&loc.Name,
		&loc.Code,
		&loc.Address,
		&loc.Phone,
		&loc.IsActive,
		&loc.CreatedAt,
		&loc.UpdatedAt,
	)
	return loc, err
}
