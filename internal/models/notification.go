package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// События уведомлений, которые рассылает ядро.
const (
	EventOrderAssigned      = "order_assigned"
	EventOrderReassigned    = "order_reassigned"
	EventOrderUnassigned    = "order_unassigned"
	EventOrderStatusChanged = "order_status_changed"
	EventDisputeRaised      = "dispute_raised"
	EventDisputeResolved    = "dispute_resolved"
	EventAcceptanceRequired = "acceptance_required"
)

// Notification — внутриплатформенное уведомление пользователя.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	WebsiteID uuid.UUID       `db:"website_id" json:"website_id"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
