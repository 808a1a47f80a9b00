package models

import "time"

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

func IsValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

type SaleItem struct {
	ID        string  `json:"id" db:"id"`
	SaleID    string  `json:"sale_id" db:"sale_id"`
	ItemID    string  `json:"item_id" db:"item_id"`
	Name      string  `json:"name" db:"name"`
	Quantity  int     `json:"quantity" db:"quantity"`
	UnitPrice float64 `json:"unit_price" db:"unit_price"`
}

// Sale is a point-of-sale receipt. Creating a sale decrements inventory
// for each line item.
type Sale struct {
	ID            string        `json:"id" db:"id"`
	ReceiptNumber string        `json:"receipt_number" db:"receipt_number"`
	CustomerID    *string       `json:"customer_id,omitempty" db:"customer_id"`
	LocationID    *string       `json:"location_id,omitempty" db:"location_id"`
	Items         []SaleItem    `json:"items"`
	Subtotal      float64       `json:"subtotal" db:"subtotal"`
	Discount      float64       `json:"discount" db:"discount"`
	Total         float64       `json:"total" db:"total"`
	PaymentMethod PaymentMethod `json:"payment_method" db:"payment_method"`
	SoldBy        string        `json:"sold_by" db:"sold_by"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}
