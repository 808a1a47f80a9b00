package models

import "time"

// DeviceStatus tracks a repair ticket through the shop workflow.
type DeviceStatus string

const (
	DeviceStatusReceived      DeviceStatus = "received"
	DeviceStatusDiagnosed     DeviceStatus = "diagnosed"
	DeviceStatusInRepair      DeviceStatus = "in_repair"
	DeviceStatusAwaitingParts DeviceStatus = "awaiting_parts"
	DeviceStatusReady         DeviceStatus = "ready"
	DeviceStatusDelivered     DeviceStatus = "delivered"
	DeviceStatusCancelled     DeviceStatus = "cancelled"
)

// deviceTransitions lists the allowed next statuses for each status.
// Delivered and cancelled are terminal.
var deviceTransitions = map[DeviceStatus][]DeviceStatus{
	DeviceStatusReceived:      {DeviceStatusDiagnosed, DeviceStatusInRepair, DeviceStatusCancelled},
	DeviceStatusDiagnosed:     {DeviceStatusInRepair, DeviceStatusAwaitingParts, DeviceStatusReady, DeviceStatusCancelled},
	DeviceStatusInRepair:      {DeviceStatusAwaitingParts, DeviceStatusReady, DeviceStatusCancelled},
	DeviceStatusAwaitingParts: {DeviceStatusInRepair, DeviceStatusCancelled},
	DeviceStatusReady:         {DeviceStatusDelivered, DeviceStatusInRepair},
}

func IsValidDeviceStatus(status DeviceStatus) bool {
	if status == DeviceStatusDelivered || status == DeviceStatusCancelled {
		return true
	}
	_, ok := deviceTransitions[status]
	return ok
}

// CanTransition reports whether moving from one status to the next is allowed.
func (s DeviceStatus) CanTransition(next DeviceStatus) bool {
	for _, allowed := range deviceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Device is an intake record for a customer device under repair.
type Device struct {
	ID             string       `json:"id" db:"id"`
	TicketNumber   string       `json:"ticket_number" db:"ticket_number"`
	CustomerID     string       `json:"customer_id" db:"customer_id"`
	LocationID     *string      `json:"location_id,omitempty" db:"location_id"`
	Brand          string       `json:"brand" db:"brand"`
	Model          string       `json:"model" db:"model"`
	SerialNumber   string       `json:"serial_number" db:"serial_number"`
	Problem        string       `json:"problem" db:"problem"`
	Status         DeviceStatus `json:"status" db:"status"`
	AssignedTechID *string      `json:"assigned_tech_id,omitempty" db:"assigned_tech_id"`
	EstimatedCost  *float64     `json:"estimated_cost,omitempty" db:"estimated_cost"`
	FinalCost      *float64     `json:"final_cost,omitempty" db:"final_cost"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}
