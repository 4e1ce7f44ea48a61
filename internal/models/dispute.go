package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы спора. resolved — терминальный: выхода из него нет.
const (
	DisputeStatusOpen      = "open"
	DisputeStatusInReview  = "in_review"
	DisputeStatusEscalated = "escalated"
	DisputeStatusResolved  = "resolved"
)

// Исходы разрешения спора.
const (
	DisputeOutcomeWriterWins     = "writer_wins"
	DisputeOutcomeClientWins     = "client_wins"
	DisputeOutcomeExtendDeadline = "extend_deadline"
	DisputeOutcomeReassign       = "reassign"
)

// IsKnownDisputeOutcome сообщает, входит ли исход в фиксированный набор.
func IsKnownDisputeOutcome(outcome string) bool {
	switch outcome {
	case DisputeOutcomeWriterWins, DisputeOutcomeClientWins,
		DisputeOutcomeExtendDeadline, DisputeOutcomeReassign:
		return true
	}
	return false
}

// Dispute описывает спор по заказу.
type Dispute struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	OrderID          uuid.UUID  `db:"order_id" json:"order_id"`
	WebsiteID        uuid.UUID  `db:"website_id" json:"website_id"`
	RaisedBy         uuid.UUID  `db:"raised_by" json:"raised_by"`
	Reason           string     `db:"reason" json:"reason"`
	Status           string     `db:"status" json:"status"`
	Outcome          *string    `db:"outcome" json:"outcome,omitempty"`
	ResolutionNotes  *string    `db:"resolution_notes" json:"resolution_notes,omitempty"`
	WriterResponded  bool       `db:"writer_responded" json:"writer_responded"`
	ExtendedDeadline *time.Time `db:"extended_deadline" json:"extended_deadline,omitempty"`
	ResolvedBy       *uuid.UUID `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}
