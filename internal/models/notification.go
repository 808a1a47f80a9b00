package models

import (
	"encoding/json"
	"time"
)

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityNormal NotificationPriority = "normal"
	NotificationPriorityHigh   NotificationPriority = "high"
)

type NotificationStatus string

const (
	NotificationStatusUnread NotificationStatus = "unread"
	NotificationStatusRead   NotificationStatus = "read"
)

// NotificationType is a catalog entry defining a class of event. Reference
// data, rarely mutated; reads go through the TTL cache.
type NotificationType struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Category  string    `json:"category" db:"category"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Well-known notification type names fired by business operations.
const (
	NotificationTypeDeviceRegistered  = "device_registered"
	NotificationTypeRepairCompleted   = "repair_completed"
	NotificationTypeFeedbackSubmitted = "feedback_submitted"
	NotificationTypeLowStock          = "low_stock"
	NotificationTypePOReceived        = "purchase_order_received"
)

// Notification is one in-app message addressed to a single recipient.
// Content is immutable after creation; only the read state changes.
type Notification struct {
	ID          string               `json:"id" db:"id"`
	RecipientID string               `json:"recipient_id" db:"recipient_id"`
	TypeID      string               `json:"type_id" db:"type_id"`
	TypeName    string               `json:"type_name,omitempty" db:"type_name"`
	Title       string               `json:"title" db:"title"`
	Message     string               `json:"message" db:"message"`
	Payload     json.RawMessage      `json:"payload,omitempty" db:"payload"`
	RelatedKind *string              `json:"related_kind,omitempty" db:"related_kind"`
	RelatedID   *string              `json:"related_id,omitempty" db:"related_id"`
	Priority    NotificationPriority `json:"priority" db:"priority"`
	Status      NotificationStatus   `json:"status" db:"status"`
	ExpiresAt   *time.Time           `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt   time.Time            `json:"created_at" db:"created_at"`
	ReadAt      *time.Time           `json:"read_at,omitempty" db:"read_at"`
}

// NotificationPreference holds per (user, type) channel flags.
type NotificationPreference struct {
	UserID    string    `json:"user_id" db:"user_id"`
	TypeID    string    `json:"type_id" db:"type_id"`
	Email     bool      `json:"email" db:"email"`
	SMS       bool      `json:"sms" db:"sms"`
	Push      bool      `json:"push" db:"push"`
	InApp     bool      `json:"in_app" db:"in_app"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultPreference is the effective preference when no row exists for a
// (user, type) pair: email and push and in-app on, sms off.
func DefaultPreference(userID, typeID string) NotificationPreference {
	return NotificationPreference{
		UserID: userID,
		TypeID: typeID,
		Email:  true,
		SMS:    false,
		Push:   true,
		InApp:  true,
	}
}
