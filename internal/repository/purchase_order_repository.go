package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/fixpoint-io/fixpoint-api/internal/apperr"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/scope"
)

type PurchaseOrderRepository interface {
	CreateOrder(ctx context.Context, po models.PurchaseOrder) (models.PurchaseOrder, error)
	GetOrderByID(ctx context.Context, id string) (models.PurchaseOrder, error)
	ListOrders(ctx context.Context, filter scope.Filter, status models.PurchaseOrderStatus) ([]models.PurchaseOrder, error)
	MarkOrdered(ctx context.Context, id string) (models.PurchaseOrder, error)
	CancelOrder(ctx context.Context, id string) (models.PurchaseOrder, error)
	// ReceiveOrder reconciles received quantities against ordered ones:
	// each receipt is capped by the outstanding quantity, received stock
	// increments inventory, and the order status flips to received or
	// partially_received. One transaction covers the whole receipt.
	ReceiveOrder(ctx context.Context, id string, receipts map[string]int) (models.PurchaseOrder, error)
}

type purchaseOrderRepository struct {
	db *sql.DB
}

func NewPurchaseOrderRepository(db *sql.DB) PurchaseOrderRepository {
	return &purchaseOrderRepository{db: db}
}

const poColumns = `id, po_number, supplier, location_id, status, created_by, created_at, updated_at`

func (r *purchaseOrderRepository) CreateOrder(ctx context.Context, po models.PurchaseOrder) (models.PurchaseOrder, error) {
	po.Supplier = strings.TrimSpace(po.Supplier)
	if po.Supplier == "" {
		return models.PurchaseOrder{}, apperr.E(apperr.KindValidation, "supplier is required")
	}
	if len(po.Lines) == 0 {
		return models.PurchaseOrder{}, apperr.E(apperr.KindValidation, "purchase order requires at least one line")
	}
	for _, line := range po.Lines {
		if line.QtyOrdered <= 0 {
			return models.PurchaseOrder{}, apperr.E(apperr.KindValidation, "ordered quantity must be positive")
		}
	}

	var created models.PurchaseOrder
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		const insertOrder = `
			INSERT INTO purchase_orders (po_number, supplier, location_id, status, created_by)
			VALUES ('PO-' || to_char(nextval('po_number_seq'), 'FM000000'), $1, $2, $3, $4)
			RETURNING ` + poColumns

		row := tx.QueryRowContext(ctx, insertOrder, po.Supplier, po.LocationID, models.POStatusDraft, po.CreatedBy)
		var err error
		created, err = scanPurchaseOrder(row)
		if err != nil {
			return err
		}

		const insertLine = `
			INSERT INTO purchase_order_lines (order_id, item_id, description, qty_ordered, qty_received, unit_cost)
			VALUES ($1, $2, $3, $4, 0, $5)
			RETURNING id`
		for _, line := range po.Lines {
			created.Lines = append(created.Lines, line)
			idx := len(created.Lines) - 1
			created.Lines[idx].OrderID = created.ID
			if err := tx.QueryRowContext(ctx, insertLine,
				created.ID, line.ItemID, line.Description, line.QtyOrdered, line.UnitCost).Scan(&created.Lines[idx].ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.PurchaseOrder{}, err
	}
	return created, nil
}

func (r *purchaseOrderRepository) GetOrderByID(ctx context.Context, id string) (models.PurchaseOrder, error) {
	const query = `
		SELECT ` + poColumns + `
		FROM purchase_orders
		WHERE id = $1`
	po, err := scanPurchaseOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return models.PurchaseOrder{}, err
	}
	po.Lines, err = r.listLines(ctx, id)
	return po, err
}

func (r *purchaseOrderRepository) listLines(ctx context.Context, orderID string) ([]models.PurchaseOrderLine, error) {
	const query = `
		SELECT id, order_id, item_id, description, qty_ordered, qty_received, unit_cost
		FROM purchase_order_lines
		WHERE order_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []models.PurchaseOrderLine
	for rows.Next() {
		var line models.PurchaseOrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ItemID, &line.Description, &line.QtyOrdered, &line.QtyReceived, &line.UnitCost); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *purchaseOrderRepository) ListOrders(ctx context.Context, filter scope.Filter, status models.PurchaseOrderStatus) ([]models.PurchaseOrder, error) {
	clause, args := filter.Clause("location_id", 1)
	query := `
		SELECT ` + poColumns + `
		FROM purchase_orders
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

	var orders []models.PurchaseOrder
	for rows.Next() {
		po, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, po)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *purchaseOrderRepository) MarkOrdered(ctx context.Context, id string) (models.PurchaseOrder, error) {
	return r.setStatus(ctx, id, models.POStatusOrdered, models.POStatusDraft)
}

func (r *purchaseOrderRepository) CancelOrder(ctx context.Context, id string) (models.PurchaseOrder, error) {
	return r.setStatus(ctx, id, models.POStatusCancelled, models.POStatusDraft, models.POStatusOrdered)
}

func (r *purchaseOrderRepository) setStatus(ctx context.Context, id string, next models.PurchaseOrderStatus, allowedFrom ...models.PurchaseOrderStatus) (models.PurchaseOrder, error) {
	po, err := r.GetOrderByID(ctx, id)
	if err != nil {
		return models.PurchaseOrder{}, err
	}
	ok := false
	for _, from := range allowedFrom {
		if po.Status == from {
			ok = true
			break
		}
	}
	if !ok {
		return models.PurchaseOrder{}, apperr.E(apperr.KindValidation, "cannot move order from %s to %s", po.Status, next)
	}

	const query = `
		UPDATE purchase_orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + poColumns
	updated, err := scanPurchaseOrder(r.db.QueryRowContext(ctx, query, id, next))
	if err != nil {
		return models.PurchaseOrder{}, err
	}
	updated.Lines = po.Lines
	return updated, nil
}

func (r *purchaseOrderRepository) ReceiveOrder(ctx context.Context, id string, receipts map[string]int) (models.PurchaseOrder, error) {
	if len(receipts) == 0 {
		return models.PurchaseOrder{}, apperr.E(apperr.KindValidation, "no receipt quantities supplied")
	}
	for lineID, qty := range receipts {
		if qty <= 0 {
			return models.PurchaseOrder{}, apperr.E(apperr.KindValidation, "receipt quantity for line %s must be positive", lineID)
		}
	}

	po, err := r.GetOrderByID(ctx, id)
	if err != nil {
		return models.PurchaseOrder{}, err
	}
	if po.Status != models.POStatusOrdered && po.Status != models.POStatusPartiallyReceived {
		return models.PurchaseOrder{}, apperr.E(apperr.KindValidation, "order in status %s cannot receive stock", po.Status)
	}

	lineByID := make(map[string]*models.PurchaseOrderLine, len(po.Lines))
	for i := range po.Lines {
		lineByID[po.Lines[i].ID] = &po.Lines[i]
	}
	for lineID, qty := range receipts {
		line, ok := lineByID[lineID]
		if !ok {
			return models.PurchaseOrder{}, apperr.E(apperr.KindNotFound, "line %s not on this order", lineID)
		}
		if qty > line.Outstanding() {
			return models.PurchaseOrder{}, apperr.E(apperr.KindValidation,
				"receipt of %d exceeds outstanding %d on line %s", qty, line.Outstanding(), lineID)
		}
	}

	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		const updateLine = `
			UPDATE purchase_order_lines
			SET qty_received = qty_received + $2
			WHERE id = $1`
		const incrementStock = `
			UPDATE inventory_items
			SET quantity = quantity + $2, updated_at = NOW()
			WHERE id = $1`

		for lineID, qty := range receipts {
			if _, err := tx.ExecContext(ctx, updateLine, lineID, qty); err != nil {
				return err
			}
			line := lineByID[lineID]
			line.QtyReceived += qty
			if _, err := tx.ExecContext(ctx, incrementStock, line.ItemID, qty); err != nil {
				return err
			}
		}

		next := models.POStatusPartiallyReceived
		if po.FullyReceived() {
			next = models.POStatusReceived
		}
		po.Status = next

		const updateOrder = `
			UPDATE purchase_orders
			SET status = $2, updated_at = NOW()
			WHERE id = $1`
		_, err := tx.ExecContext(ctx, updateOrder, id, next)
		return err
	})
	if err != nil {
		return models.PurchaseOrder{}, err
	}
	return po, nil
}

func scanPurchaseOrder(scanner interface {
	Scan(dest ...interface{}) error
}) (models.PurchaseOrder, error) {
	var (
		po         models.PurchaseOrder
		locationID sql.NullString
	)
	if err := scanner.Scan(
		&po.ID,
		&po.PONumber,
		&po.Supplier,
		&locationID,
		&po.Status,
		&po.CreatedBy,
		&po.CreatedAt,
		&po.UpdatedAt,
	); err != nil {
		return models.PurchaseOrder{}, err
	}
	if locationID.Valid {
		val := locationID.String
		po.LocationID = &val
	}
	return po, nil
}
