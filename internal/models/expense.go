package models

import "time"

type Expense struct {
	ID         string    `json:"id" db:"id"`
	LocationID *string   `json:"location_id,omitempty" db:"location_id"`
	Category   string    `json:"category" db:"category"`
	Amount     float64   `json:"amount" db:"amount"`
	Note       string    `json:"note" db:"note"`
	IncurredOn time.Time `json:"incurred_on" db:"incurred_on"`
	RecordedBy string    `json:"recorded_by" db:"recorded_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
