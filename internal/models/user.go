package models

import (
	"time"

	"github.com/google/uuid"
)

// Роли пользователей платформы.
const (
	RoleClient  = "client"
	RoleWriter  = "writer"
	RoleEditor  = "editor"
	RoleSupport = "support"
	RoleAdmin   = "admin"
)

// Уровни писателей, по возрастанию.
const (
	WriterLevelBeginner = "beginner"
	WriterLevelStandard = "standard"
	WriterLevelAdvanced = "advanced"
	WriterLevelExpert   = "expert"
)

// WriterLevelRank возвращает порядковый номер уровня для сравнения.
// Неизвестный уровень считается ниже всех.
func WriterLevelRank(level string) int {
	switch level {
	case WriterLevelBeginner:
		return 1
	case WriterLevelStandard:
		return 2
	case WriterLevelAdvanced:
		return 3
	case WriterLevelExpert:
		return 4
	default:
		return 0
	}
}

// User описывает пользователя платформы.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	WebsiteID    uuid.UUID `db:"website_id" json:"website_id"`
	Email        string    `db:"email" json:"email"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// IsStaff сообщает, обладает ли пользователь правами администратора
// или поддержки (override-права при назначении и переходах).
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleSupport
}

// WriterProfile хранит уровень и рабочие метрики писателя.
// Метрики используются при ранжировании запросов на заказ.
type WriterProfile struct {
	UserID            uuid.UUID `db:"user_id" json:"user_id"`
	Level             string    `db:"level" json:"level"`
	MaxActiveOrders   int       `db:"max_active_orders" json:"max_active_orders"`
	Rating            float64   `db:"rating" json:"rating"`
	AvgResponseHours  float64   `db:"avg_response_hours" json:"avg_response_hours"`
	CompletedOrders   int       `db:"completed_orders" json:"completed_orders"`
	TotalAssigned     int       `db:"total_assigned" json:"total_assigned"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
