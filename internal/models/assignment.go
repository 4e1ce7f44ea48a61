package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы предложения заказа писателю.
const (
	AcceptanceStatusPending  = "pending"
	AcceptanceStatusAccepted = "accepted"
	AcceptanceStatusRejected = "rejected"
)

// AssignmentAcceptance — предложение заказа конкретному писателю,
// ожидающее его ответа. На заказ существует не более одной активной
// записи: при переназначении строка перезаписывается, а прежнее
// pending-предложение помечается rejected.
type AssignmentAcceptance struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	OrderID     uuid.UUID  `db:"order_id" json:"order_id"`
	WriterID    uuid.UUID  `db:"writer_id" json:"writer_id"`
	AssignedBy  *uuid.UUID `db:"assigned_by" json:"assigned_by,omitempty"`
	Status      string     `db:"status" json:"status"`
	Reason      string     `db:"reason" json:"reason"`
	AssignedAt  time.Time  `db:"assigned_at" json:"assigned_at"`
	RespondedAt *time.Time `db:"responded_at" json:"responded_at,omitempty"`
}

// ReassignmentLog — историческая запись о передаче заказа от одного
// писателя другому. Создаётся один раз на переназначение.
type ReassignmentLog struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	OrderID          uuid.UUID  `db:"order_id" json:"order_id"`
	PreviousWriterID uuid.UUID  `db:"previous_writer_id" json:"previous_writer_id"`
	NewWriterID      uuid.UUID  `db:"new_writer_id" json:"new_writer_id"`
	ActorID          *uuid.UUID `db:"actor_id" json:"actor_id,omitempty"`
	Reason           string     `db:"reason" json:"reason"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// WriterRequest — заявка писателя на свободный заказ. Именно эти записи
// ранжирует очередь приоритетов при выборе кандидата.
type WriterRequest struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OrderID   uuid.UUID `db:"order_id" json:"order_id"`
	WriterID  uuid.UUID `db:"writer_id" json:"writer_id"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ScoredRequest — заявка писателя вместе с рассчитанным приоритетом.
type ScoredRequest struct {
	Request WriterRequest `json:"request"`
	Profile WriterProfile `json:"profile"`
	Score   float64       `json:"score"`
}
