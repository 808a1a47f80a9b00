package models

import "time"

type PurchaseOrderStatus string

const (
	POStatusDraft             PurchaseOrderStatus = "draft"
	POStatusOrdered           PurchaseOrderStatus = "ordered"
	POStatusPartiallyReceived PurchaseOrderStatus = "partially_received"
	POStatusReceived          PurchaseOrderStatus = "received"
	POStatusCancelled         PurchaseOrderStatus = "cancelled"
)

type PurchaseOrderLine struct {
	ID          string  `json:"id" db:"id"`
	OrderID     string  `json:"order_id" db:"order_id"`
	ItemID      string  `json:"item_id" db:"item_id"`
	Description string  `json:"description" db:"description"`
	QtyOrdered  int     `json:"qty_ordered" db:"qty_ordered"`
	QtyReceived int     `json:"qty_received" db:"qty_received"`
	UnitCost    float64 `json:"unit_cost" db:"unit_cost"`
}

// Outstanding is the quantity still expected on this line.
func (l PurchaseOrderLine) Outstanding() int {
	return l.QtyOrdered - l.QtyReceived
}

type PurchaseOrder struct {
	ID         string              `json:"id" db:"id"`
	PONumber   string              `json:"po_number" db:"po_number"`
	Supplier   string              `json:"supplier" db:"supplier"`
	LocationID *string             `json:"location_id,omitempty" db:"location_id"`
	Status     PurchaseOrderStatus `json:"status" db:"status"`
	Lines      []PurchaseOrderLine `json:"lines"`
	CreatedBy  string              `json:"created_by" db:"created_by"`
	CreatedAt  time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at" db:"updated_at"`
}

// FullyReceived reports whether every line has been received in full.
func (po PurchaseOrder) FullyReceived() bool {
	for _, line := range po.Lines {
		if line.Outstanding() > 0 {
			return false
		}
	}
	return len(po.Lines) > 0
}
