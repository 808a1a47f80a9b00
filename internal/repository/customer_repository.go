package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/fixpoint-io/fixpoint-api/internal/apperr"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/scope"
)

type CustomerRepository interface {
	CreateCustomer(ctx context.Context, c models.Customer) (models.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (models.Customer, error)
	ListCustomers(ctx context.Context, filter scope.Filter, search string) ([]models.Customer, error)
	UpdateCustomer(ctx context.Context, c models.Customer) (models.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
}

type customerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepository{db: db}
}

const customerColumns = `id, full_name, phone, email, location_id, notes, created_at, updated_at`

func (r *customerRepository) CreateCustomer(ctx context.Context, c models.Customer) (models.Customer, error) {
	c.FullName = strings.TrimSpace(c.FullName)
	if c.FullName == "" {
		return models.Customer{}, apperr.E(apperr.KindValidation, "customer name is required")
	}

	const query = `
		INSERT INTO customers (full_name, phone, email, location_id, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + customerColumns

	return scanCustomer(r.db.QueryRowContext(ctx, query, c.FullName, c.Phone, c.Email, c.LocationID, c.Notes))
}

func (r *customerRepository) GetCustomerByID(ctx context.Context, id string) (models.Customer, error) {
	const query = `
		SELECT ` + customerColumns + `
		FROM customers
		WHERE id = $1`
	return scanCustomer(r.db.QueryRowContext(ctx, query, id))
}

func (r *customerRepository) ListCustomers(ctx context.Context, filter scope.Filter, search string) ([]models.Customer, error) {
	clause, args := filter.Clause("location_id", 1)
	query := `
		SELECT ` + customerColumns + `
		FROM customers
		WHERE ` + clause

	if search = strings.TrimSpace(search); search != "" {
		query += ` AND (full_name ILIKE '%' || $` + itoa(len(args)+1) + ` || '%' OR phone ILIKE '%' || $` + itoa(len(args)+1) + ` || '%')`
		args = append(args, search)
	}
	query += `
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *customerRepository) UpdateCustomer(ctx context.Context, c models.Customer) (models.Customer, error) {
	const query = `
		UPDATE customers
		SET full_name = $2, phone = $3, email = $4, location_id = $5, notes = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + customerColumns

	return scanCustomer(r.db.QueryRowContext(ctx, query, c.ID, c.FullName, c.Phone, c.Email, c.LocationID, c.Notes))
}

func (r *customerRepository) DeleteCustomer(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanCustomer(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Customer, error) {
	var (
		c          models.Customer
		locationID sql.NullString
	)
	if err := scanner.Scan(
		&c.ID,
		&c.FullName,
		&c.Phone,
		&c.Email,
		&locationID,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return models.Customer{}, err
	}
	if locationID.Valid {
		val := locationID.String
		c.LocationID = &val
	}
	return c, nil
}
