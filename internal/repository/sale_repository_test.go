package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fixpoint-io/fixpoint-api/internal/apperr"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saleRow(id, receipt string, subtotal, discount, total float64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "receipt_number", "customer_id", "location_id", "subtotal",
		"discount", "total", "payment_method", "sold_by", "created_at",
	}).AddRow(id, receipt, nil, nil, subtotal, discount, total, "cash", "user-1", time.Now())
}

func inventoryRowWithWasAbove(id string, quantity, reorderLevel int, unitPrice float64, wasAbove bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "sku", "name", "location_id", "quantity", "reorder_level",
		"unit_cost", "unit_price", "is_active", "created_at", "updated_at", "was_above",
	}).AddRow(id, "SKU-1", "Screen kit", nil, quantity, reorderLevel, 10.0, unitPrice, true, time.Now(), time.Now(), wasAbove)
}

func TestCreateSale_RejectsInvalidPaymentMethod(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSaleRepository(db)
	_, _, err = repo.CreateSale(context.Background(), models.Sale{
		PaymentMethod: "barter",
		Items:         []models.SaleItem{{ItemID: "item-1", Quantity: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet(), "validation failures must not touch the database")
}

// The caller supplies only item ids and quantities; the receipt must come
// back priced from inventory with the money columns computed, never zero.
func TestCreateSale_PricesLinesFromInventory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE inventory_items").
		WithArgs("item-1", 4).
		WillReturnRows(inventoryRowWithWasAbove("item-1", 20, 5, 25.0, false))
	mock.ExpectQuery("INSERT INTO sales").
		WithArgs(nil, nil, 100.0, 10.0, 90.0, models.PaymentCash, "user-1").
		WillReturnRows(saleRow("sale-1", "RC-000004", 100.0, 10.0, 90.0))
	mock.ExpectQuery("INSERT INTO sale_items").
		WithArgs("sale-1", "item-1", "Screen kit", 4, 25.0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("line-1"))
	mock.ExpectCommit()

	repo := NewSaleRepository(db)
	sale, _, err := repo.CreateSale(context.Background(), models.Sale{
		PaymentMethod: models.PaymentCash,
		SoldBy:        "user-1",
		Discount:      10,
		Items:         []models.SaleItem{{ItemID: "item-1", Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, sale.Subtotal)
	assert.Equal(t, 90.0, sale.Total)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, "Screen kit", sale.Items[0].Name)
	assert.Equal(t, 25.0, sale.Items[0].UnitPrice)
	assert.Equal(t, "sale-1", sale.Items[0].SaleID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSale_RejectsDiscountExceedingSubtotal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE inventory_items").
		WithArgs("item-1", 1).
		WillReturnRows(inventoryRowWithWasAbove("item-1", 20, 5, 25.0, false))
	mock.ExpectRollback()

	repo := NewSaleRepository(db)
	_, _, err = repo.CreateSale(context.Background(), models.Sale{
		PaymentMethod: models.PaymentCash,
		SoldBy:        "user-1",
		Discount:      50,
		Items:         []models.SaleItem{{ItemID: "item-1", Quantity: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "exceeds subtotal")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSale_InsufficientStockRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE inventory_items").
		WithArgs("item-1", 5).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	repo := NewSaleRepository(db)
	_, _, err = repo.CreateSale(context.Background(), models.Sale{
		PaymentMethod: models.PaymentCash,
		SoldBy:        "user-1",
		Items:         []models.SaleItem{{ItemID: "item-1", Quantity: 5}},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "insufficient stock")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSale_ReportsItemsCrossingReorderLevel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	// Quantity 3 with reorder level 5: the sale pushed it below the line.
	mock.ExpectQuery("UPDATE inventory_items").
		WithArgs("item-1", 4).
		WillReturnRows(inventoryRowWithWasAbove("item-1", 3, 5, 25.0, true))
	mock.ExpectQuery("INSERT INTO sales").
		WillReturnRows(saleRow("sale-1", "RC-000002", 100.0, 0.0, 100.0))
	mock.ExpectQuery("INSERT INTO sale_items").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("line-1"))
	mock.ExpectCommit()

	repo := NewSaleRepository(db)
	sale, lowStock, err := repo.CreateSale(context.Background(), models.Sale{
		PaymentMethod: models.PaymentCash,
		SoldBy:        "user-1",
		Items:         []models.SaleItem{{ItemID: "item-1", Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, "RC-000002", sale.ReceiptNumber)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, "sale-1", sale.Items[0].SaleID)

	require.Len(t, lowStock, 1)
	assert.Equal(t, "item-1", lowStock[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSale_AlreadyLowItemDoesNotReportAgain(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	// was_above false: the item was at or below the level before this sale.
	mock.ExpectQuery("UPDATE inventory_items").
		WithArgs("item-1", 1).
		WillReturnRows(inventoryRowWithWasAbove("item-1", 2, 5, 25.0, false))
	mock.ExpectQuery("INSERT INTO sales").
		WillReturnRows(saleRow("sale-1", "RC-000003", 25.0, 0.0, 25.0))
	mock.ExpectQuery("INSERT INTO sale_items").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("line-1"))
	mock.ExpectCommit()

	repo := NewSaleRepository(db)
	_, lowStock, err := repo.CreateSale(context.Background(), models.Sale{
		PaymentMethod: models.PaymentCard,
		SoldBy:        "user-1",
		Items:         []models.SaleItem{{ItemID: "item-1", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Empty(t, lowStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}
