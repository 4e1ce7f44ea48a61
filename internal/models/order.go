package models

import (
	"time"

	"github.com/google/uuid"
)

// Order описывает заказ на написание работы. Центральная сущность:
// журнал переходов, назначения и споры принадлежат заказу и удаляются
// вместе с ним.
type Order struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	WebsiteID          uuid.UUID  `db:"website_id" json:"website_id"`
	ClientID           uuid.UUID  `db:"client_id" json:"client_id"`
	Title              string     `db:"title" json:"title"`
	Status             string     `db:"status" json:"status"`
	AssignedWriterID   *uuid.UUID `db:"assigned_writer_id" json:"assigned_writer_id,omitempty"`
	PreferredWriterID  *uuid.UUID `db:"preferred_writer_id" json:"preferred_writer_id,omitempty"`
	RequiredLevel      string     `db:"required_level" json:"required_level"`
	IsPaid             bool       `db:"is_paid" json:"is_paid"`
	IsUrgent           bool       `db:"is_urgent" json:"is_urgent"`
	Pages              int        `db:"pages" json:"pages"`
	Price              float64    `db:"price" json:"price"`
	WriterCompensation *float64   `db:"writer_compensation" json:"writer_compensation,omitempty"`
	DeadlineAt         *time.Time `db:"deadline_at" json:"deadline_at,omitempty"`
	PreferredExpiresAt *time.Time `db:"preferred_expires_at" json:"preferred_expires_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// HasWriter сообщает, назначен ли на заказ писатель.
func (o *Order) HasWriter() bool {
	return o.AssignedWriterID != nil && *o.AssignedWriterID != uuid.Nil
}

// IsUrgentNow считает заказ срочным, если дедлайн ближе 24 часов.
// Флаг IsUrgent позволяет пометить заказ срочным вручную.
func (o *Order) IsUrgentNow(now time.Time) bool {
	if o.IsUrgent {
		return true
	}
	if o.DeadlineAt == nil {
		return false
	}
	return o.DeadlineAt.Sub(now) < 24*time.Hour
}

// OrderFile описывает файл, загруженный к заказу (например, готовую работу).
type OrderFile struct {
	ID         uuid.UUID `db:"id" json:"id"`
	OrderID    uuid.UUID `db:"order_id" json:"order_id"`
	UploaderID uuid.UUID `db:"uploader_id" json:"uploader_id"`
	FilePath   string    `db:"file_path" json:"file_path"`
	FileType   string    `db:"file_type" json:"file_type"`
	FileSize   int64     `db:"file_size" json:"file_size"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
