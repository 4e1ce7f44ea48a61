package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Website — граница мультитенантности. Каждый заказ и пользователь
// принадлежат ровно одному сайту.
type Website struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Domain    string    `db:"domain" json:"domain"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	// PaymentGatedStatuses переопределяет набор статусов, закрытых для
	// неоплаченных заказов. Пустой список означает дефолтный набор.
	PaymentGatedStatuses pq.StringArray `db:"payment_gated_statuses" json:"payment_gated_statuses"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
