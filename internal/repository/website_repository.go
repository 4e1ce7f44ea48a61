package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/StuffMaster78/acad-system-backend/internal/models"
	"github.com/StuffMaster78/acad-system-backend/internal/repository/common"
)

// WebsiteRepository отвечает за сайты-тенанты.
type WebsiteRepository struct {
	db *sqlx.DB
}

func NewWebsiteRepository(db *sqlx.DB) *WebsiteRepository {
	return &WebsiteRepository{db: db}
}

// GetByID возвращает сайт по идентификатору.
func (r *WebsiteRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Website, error) {
	return common.GetByID[models.Website](ctx, r.db, "websites", id, ErrWebsiteNotFound)
}

// PaymentGatedStatuses возвращает набор статусов, закрытых для
// неоплаченных заказов этого сайта. Пустой список означает, что сайт
// использует дефолтный набор.
func (r *WebsiteRepository) PaymentGatedStatuses(ctx context.Context, websiteID uuid.UUID) ([]string, error) {
	website, err := r.GetByID(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	if len(website.PaymentGatedStatuses) == 0 {
		return models.DefaultPaymentGatedStatuses, nil
	}
	return website.PaymentGatedStatuses, nil
}
