package repository

import (
	"context"
	"database/sql"

	"github.com/fixpoint-io/fixpoint-api/internal/apperr"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/scope"
)

type SaleRepository interface {
	// CreateSale persists the receipt and its line items and decrements
	// inventory, all in one transaction. Lines are priced from the current
	// inventory rows (name and unit price); callers supply only item and
	// quantity. It returns the created sale plus any items whose stock
	// crossed their reorder level during this sale.
	CreateSale(ctx context.Context, sale models.Sale) (models.Sale, []models.InventoryItem, error)
	GetSaleByID(ctx context.Context, id string) (models.Sale, error)
	ListSales(ctx context.Context, filter scope.Filter) ([]models.Sale, error)
}

type saleRepository struct {
	db *sql.DB
}

func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepository{db: db}
}

const saleColumns = `id, receipt_number, customer_id, location_id, subtotal, discount, total, payment_method, sold_by, created_at`

func (r *saleRepository) CreateSale(ctx context.Context, sale models.Sale) (models.Sale, []models.InventoryItem, error) {
	if len(sale.Items) == 0 {
		return models.Sale{}, nil, apperr.E(apperr.KindValidation, "sale requires at least one line item")
	}
	if !models.IsValidPaymentMethod(sale.PaymentMethod) {
		return models.Sale{}, nil, apperr.E(apperr.KindValidation, "unknown payment method %q", sale.PaymentMethod)
	}
	if sale.Discount < 0 {
		return models.Sale{}, nil, apperr.E(apperr.KindValidation, "discount cannot be negative")
	}
	for _, item := range sale.Items {
		if item.Quantity <= 0 {
			return models.Sale{}, nil, apperr.E(apperr.KindValidation, "line quantity must be positive")
		}
	}

	var (
		created  models.Sale
		lowStock []models.InventoryItem
	)
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		const decrement = `
			UPDATE inventory_items
			SET quantity = quantity - $2, updated_at = NOW()
			WHERE id = $1 AND quantity >= $2
			RETURNING ` + inventoryColumns + `, (quantity + $2 > reorder_level) AS was_above`

		// Price every line from its inventory row before writing the
		// receipt; the decrement already returns name and unit price.
		lines := make([]models.SaleItem, 0, len(sale.Items))
		var subtotal float64
		for _, line := range sale.Items {
			var wasAbove bool
			item, err := scanInventoryItemWith(tx.QueryRowContext(ctx, decrement, line.ItemID, line.Quantity), &wasAbove)
			if err != nil {
				if err == sql.ErrNoRows {
					return apperr.E(apperr.KindValidation, "insufficient stock for item %s", line.ItemID)
				}
				return err
			}
			if wasAbove && item.IsLowStock() {
				lowStock = append(lowStock, item)
			}
			line.Name = item.Name
			line.UnitPrice = item.UnitPrice
			subtotal += float64(line.Quantity) * item.UnitPrice
			lines = append(lines, line)
		}
		if sale.Discount > subtotal {
			return apperr.E(apperr.KindValidation, "discount %.2f exceeds subtotal %.2f", sale.Discount, subtotal)
		}

		const insertSale = `
			INSERT INTO sales (receipt_number, customer_id, location_id, subtotal, discount, total, payment_method, sold_by)
			VALUES ('RC-' || to_char(nextval('receipt_number_seq'), 'FM000000'), $1, $2, $3, $4, $5, $6, $7)
			RETURNING ` + saleColumns

		row := tx.QueryRowContext(ctx, insertSale,
			sale.CustomerID, sale.LocationID, subtotal, sale.Discount, subtotal-sale.Discount, sale.PaymentMethod, sale.SoldBy)
		var err error
		created, err = scanSale(row)
		if err != nil {
			return err
		}

		const insertItem = `
			INSERT INTO sale_items (sale_id, item_id, name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`
		for i := range lines {
			lines[i].SaleID = created.ID
			if err := tx.QueryRowContext(ctx, insertItem,
				created.ID, lines[i].ItemID, lines[i].Name, lines[i].Quantity, lines[i].UnitPrice).Scan(&lines[i].ID); err != nil {
				return err
			}
		}
		created.Items = lines
		return nil
	})
	if err != nil {
		return models.Sale{}, nil, err
	}
	return created, lowStock, nil
}

func (r *saleRepository) GetSaleByID(ctx context.Context, id string) (models.Sale, error) {
	const query = `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE id = $1`
	sale, err := scanSale(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return models.Sale{}, err
	}

	const itemsQuery = `
		SELECT id, sale_id, item_id, name, quantity, unit_price
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, itemsQuery, id)
	if err != nil {
		return models.Sale{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item models.SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ItemID, &item.Name, &item.Quantity, &item.UnitPrice); err != nil {
			return models.Sale{}, err
		}
		sale.Items = append(sale.Items, item)
	}
	if err := rows.Err(); err != nil {
		return models.Sale{}, err
	}
	return sale, nil
}

func (r *saleRepository) ListSales(ctx context.Context, filter scope.Filter) ([]models.Sale, error) {
	clause, args := filter.Clause("location_id", 1)
	query := `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE ` + clause + `
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []models.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func scanSale(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Sale, error) {
	var (
		sale       models.Sale
		customerID sql.NullString
		locationID sql.NullString
	)
	if err := scanner.Scan(
		&sale.ID,
		&sale.ReceiptNumber,
		&customerID,
		&locationID,
		&sale.Subtotal,
		&sale.Discount,
		&sale.Total,
		&sale.PaymentMethod,
		&sale.SoldBy,
		&sale.CreatedAt,
	); err != nil {
		return models.Sale{}, err
	}
	if customerID.Valid {
		val := customerID.String
		sale.CustomerID = &val
	}
	if locationID.Valid {
		val := locationID.String
		sale.LocationID = &val
	}
	return sale, nil
}

func scanInventoryItemWith(row *sql.Row, extra ...interface{}) (models.InventoryItem, error) {
	var (
		item       models.InventoryItem
		locationID sql.NullString
	)
	dest := []interface{}{
		&item.ID, &item.SKU, &item.Name, &locationID, &item.Quantity,
		&item.ReorderLevel, &item.UnitCost, &item.UnitPrice, &item.IsActive,
		&item.CreatedAt, &item.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return models.InventoryItem{}, err
	}
	if locationID.Valid {
		val := locationID.String
		item.LocationID = &val
	}
	return item, nil
}
