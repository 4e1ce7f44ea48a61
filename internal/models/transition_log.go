package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransitionLog — неизменяемая запись журнала о смене статуса заказа.
// Создаётся исполнителем переходов в той же транзакции, что и смена
// статуса; никогда не изменяется и не удаляется (кроме каскада с заказом).
type TransitionLog struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	OrderID     uuid.UUID       `db:"order_id" json:"order_id"`
	OldStatus   string          `db:"old_status" json:"old_status"`
	NewStatus   string          `db:"new_status" json:"new_status"`
	ActorID     *uuid.UUID      `db:"actor_id" json:"actor_id,omitempty"`
	Reason      string          `db:"reason" json:"reason"`
	Action      string          `db:"action" json:"action"`
	IsAutomatic bool            `db:"is_automatic" json:"is_automatic"`
	Metadata    json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
