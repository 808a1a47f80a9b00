package models

import "time"

// InventoryItem is stock held at a location. Quantity at or below the
// reorder level marks the item as low stock.
type InventoryItem struct {
	ID           string    `json:"id" db:"id"`
	SKU          string    `json:"sku" db:"sku"`
	Name         string    `json:"name" db:"name"`
	LocationID   *string   `json:"location_id,omitempty" db:"location_id"`
	Quantity     int       `json:"quantity" db:"quantity"`
	ReorderLevel int       `json:"reorder_level" db:"reorder_level"`
	UnitCost     float64   `json:"unit_cost" db:"unit_cost"`
	UnitPrice    float64   `json:"unit_price" db:"unit_price"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (i InventoryItem) IsLowStock() bool {
	return i.Quantity <= i.ReorderLevel
}
