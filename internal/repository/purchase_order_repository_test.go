package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fixpoint-io/fixpoint-api/internal/apperr"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func poRow(id, poNumber string, status models.PurchaseOrderStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "po_number", "supplier", "location_id", "status", "created_by", "created_at", "updated_at",
	}).AddRow(id, poNumber, "ACME Parts", nil, string(status), "user-1", time.Now(), time.Now())
}

func poLineRows(lines ...models.PurchaseOrderLine) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "order_id", "item_id", "description", "qty_ordered", "qty_received", "unit_cost",
	})
	for _, line := range lines {
		rows.AddRow(line.ID, line.OrderID, line.ItemID, line.Description, line.QtyOrdered, line.QtyReceived, line.UnitCost)
	}
	return rows
}

func expectGetOrder(mock sqlmock.Sqlmock, id string, status models.PurchaseOrderStatus, lines ...models.PurchaseOrderLine) {
	mock.ExpectQuery("SELECT (.+) FROM purchase_orders").
		WithArgs(id).
		WillReturnRows(poRow(id, "PO-000001", status))
	mock.ExpectQuery("SELECT (.+) FROM purchase_order_lines").
		WithArgs(id).
		WillReturnRows(poLineRows(lines...))
}

func TestReceiveOrder_RejectsOverReceipt(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectGetOrder(mock, "po-1", models.POStatusOrdered, models.PurchaseOrderLine{
		ID: "line-1", OrderID: "po-1", ItemID: "item-1", QtyOrdered: 10, QtyReceived: 8,
	})

	repo := NewPurchaseOrderRepository(db)
	_, err = repo.ReceiveOrder(context.Background(), "po-1", map[string]int{"line-1": 5})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "exceeds outstanding")
	assert.NoError(t, mock.ExpectationsWereMet(), "over-receipt must be rejected before any write")
}

func TestReceiveOrder_RejectsDraftOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectGetOrder(mock, "po-1", models.POStatusDraft, models.PurchaseOrderLine{
		ID: "line-1", OrderID: "po-1", ItemID: "item-1", QtyOrdered: 10,
	})

	repo := NewPurchaseOrderRepository(db)
	_, err = repo.ReceiveOrder(context.Background(), "po-1", map[string]int{"line-1": 5})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiveOrder_RejectsUnknownLine(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectGetOrder(mock, "po-1", models.POStatusOrdered, models.PurchaseOrderLine{
		ID: "line-1", OrderID: "po-1", ItemID: "item-1", QtyOrdered: 10,
	})

	repo := NewPurchaseOrderRepository(db)
	_, err = repo.ReceiveOrder(context.Background(), "po-1", map[string]int{"line-99": 5})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiveOrder_PartialReceiptAdvancesStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectGetOrder(mock, "po-1", models.POStatusOrdered, models.PurchaseOrderLine{
		ID: "line-1", OrderID: "po-1", ItemID: "item-1", QtyOrdered: 10,
	})

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE purchase_order_lines").
		WithArgs("line-1", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE inventory_items").
		WithArgs("item-1", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE purchase_orders").
		WithArgs("po-1", string(models.POStatusPartiallyReceived)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewPurchaseOrderRepository(db)
	po, err := repo.ReceiveOrder(context.Background(), "po-1", map[string]int{"line-1": 4})
	require.NoError(t, err)
	assert.Equal(t, models.POStatusPartiallyReceived, po.Status)
	require.Len(t, po.Lines, 1)
	assert.Equal(t, 4, po.Lines[0].QtyReceived)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiveOrder_FinalReceiptCompletesOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectGetOrder(mock, "po-1", models.POStatusPartiallyReceived, models.PurchaseOrderLine{
		ID: "line-1", OrderID: "po-1", ItemID: "item-1", QtyOrdered: 10, QtyReceived: 6,
	})

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE purchase_order_lines").
		WithArgs("line-1", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE inventory_items").
		WithArgs("item-1", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE purchase_orders").
		WithArgs("po-1", string(models.POStatusReceived)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewPurchaseOrderRepository(db)
	po, err := repo.ReceiveOrder(context.Background(), "po-1", map[string]int{"line-1": 4})
	require.NoError(t, err)
	assert.Equal(t, models.POStatusReceived, po.Status)
	assert.True(t, po.FullyReceived())
	assert.NoError(t, mock.ExpectationsWereMet())
}
