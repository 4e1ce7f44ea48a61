package service

import (
	"context"

	"github.com/StuffMaster78/acad-system-backend/internal/models"
)

// AccessPolicy решает, может ли писатель получить заказ.
// Реализация подменяется тенантом; ядро опирается только на контракт.
type AccessPolicy interface {
	CanBeAssigned(ctx context.Context, writer *models.User, profile *models.WriterProfile, order *models.Order, byAdmin bool) bool
}

// LevelAccessPolicy — дефолтная политика: уровень писателя должен быть
// не ниже требуемого уровня заказа. Администратор ограничение обходит.
type LevelAccessPolicy struct{}

func NewLevelAccessPolicy() *LevelAccessPolicy {
	return &LevelAccessPolicy{}
}

func (p *LevelAccessPolicy) CanBeAssigned(ctx context.Context, writer *models.User, profile *models.WriterProfile, order *models.Order, byAdmin bool) bool {
	if byAdmin {
		return true
	}
	if profile == nil {
		return false
	}
	if order.RequiredLevel == "" {
		return true
	}
	return models.WriterLevelRank(profile.Level) >= models.WriterLevelRank(order.RequiredLevel)
}
