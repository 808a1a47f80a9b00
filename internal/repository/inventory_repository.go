package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/fixpoint-io/fixpoint-api/internal/apperr"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/scope"
)

type InventoryRepository interface {
	CreateItem(ctx context.Context, item models.InventoryItem) (models.InventoryItem, error)
	GetItemByID(ctx context.Context, id string) (models.InventoryItem, error)
	ListItems(ctx context.Context, filter scope.Filter, lowStockOnly bool) ([]models.InventoryItem, error)
	UpdateItem(ctx context.Context, item models.InventoryItem) (models.InventoryItem, error)
	// AdjustQuantity applies a signed delta and returns the updated item.
	// The quantity is never allowed below zero.
	AdjustQuantity(ctx context.Context, id string, delta int) (models.InventoryItem, error)
}

type inventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(db *sql.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

const inventoryColumns = `id, sku, name, location_id, quantity, reorder_level, unit_cost, unit_price, is_active, created_at, updated_at`

func (r *inventoryRepository) CreateItem(ctx context.Context, item models.InventoryItem) (models.InventoryItem, error) {
	item.SKU = strings.ToUpper(strings.TrimSpace(item.SKU))
	item.Name = strings.TrimSpace(item.Name)
	if item.SKU == "" || item.Name == "" {
		return models.InventoryItem{}, apperr.E(apperr.KindValidation, "item sku and name are required")
	}
	if item.Quantity < 0 {
		return models.InventoryItem{}, apperr.E(apperr.KindValidation, "quantity cannot be negative")
	}

	const query = `
		INSERT INTO inventory_items (sku, name, location_id, quantity, reorder_level, unit_cost, unit_price, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING ` + inventoryColumns

	row := r.db.QueryRowContext(ctx, query,
		item.SKU, item.Name, item.LocationID, item.Quantity, item.ReorderLevel, item.UnitCost, item.UnitPrice)
	return scanInventoryItem(row)
}

func (r *inventoryRepository) GetItemByID(ctx context.Context, id string) (models.InventoryItem, error) {
	const query = `
		SELECT ` + inventoryColumns + `
		FROM inventory_items
		WHERE id = $1`
	return scanInventoryItem(r.db.QueryRowContext(ctx, query, id))
}

func (r *inventoryRepository) ListItems(ctx context.Context, filter scope.Filter, lowStockOnly bool) ([]models.InventoryItem, error) {
	clause, args := filter.Clause("location_id", 1)
	query := `
		SELECT ` + inventoryColumns + `
		FROM inventory_items
		WHERE is_active AND ` + clause
	if lowStockOnly {
		query += ` AND quantity <= reorder_level`
	}
	query += `
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *inventoryRepository) UpdateItem(ctx context.Context, item models.InventoryItem) (models.InventoryItem, error) {
	const query = `
		UPDATE inventory_items
		SET name = $2, location_id = $3, reorder_level = $4, unit_cost = $5, unit_price = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + inventoryColumns

	row := r.db.QueryRowContext(ctx, query,
		item.ID, item.Name, item.LocationID, item.ReorderLevel, item.UnitCost, item.UnitPrice, item.IsActive)
	return scanInventoryItem(row)
}

func (r *inventoryRepository) AdjustQuantity(ctx context.Context, id string, delta int) (models.InventoryItem, error) {
	const query = `
		UPDATE inventory_items
		SET quantity = quantity + $2, updated_at = NOW()
		WHERE id = $1 AND quantity + $2 >= 0
		RETURNING ` + inventoryColumns

	item, err := scanInventoryItem(r.db.QueryRowContext(ctx, query, id, delta))
	if err == sql.ErrNoRows {
		// Either the item is missing or the delta would drive stock negative.
		if _, getErr := r.GetItemByID(ctx, id); getErr == nil {
			return models.InventoryItem{}, apperr.E(apperr.KindValidation, "insufficient stock for adjustment of %d", delta)
		}
		return models.InventoryItem{}, err
	}
	return item, err
}

func scanInventoryItem(scanner interface {
	Scan(dest ...interface{}) error
}) (models.InventoryItem, error) {
	var (
		item       models.InventoryItem
		locationID sql.NullString
	)
	if err := scanner.Scan(
		&item.ID,
		&item.SKU,
		&item.Name,
		&locationID,
		&item.Quantity,
		&item.ReorderLevel,
		&item.UnitCost,
		&item.UnitPrice,
		&item.IsActive,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return models.InventoryItem{}, err
	}
	if locationID.Valid {
		val := locationID.String
		item.LocationID = &val
	}
	return item, nil
}
