package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/StuffMaster78/acad-system-backend/internal/models"
)

// TransitionLogRepository пишет и читает журнал переходов статуса.
// Записи создаются только исполнителем переходов и никогда не меняются.
type TransitionLogRepository struct {
	db *sqlx.DB
}

func NewTransitionLogRepository(db *sqlx.DB) *TransitionLogRepository {
	return &TransitionLogRepository{db: db}
}

// CreateTx добавляет запись журнала в рамках транзакции перехода.
func (r *TransitionLogRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, entry *models.TransitionLog) error {
	query := `
		INSERT INTO transition_logs (order_id, old_status, new_status, actor_id, reason, action, is_automatic, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, '{}'::jsonb))
		RETURNING id, created_at
	`
	err := tx.QueryRowxContext(ctx, query,
		entry.OrderID, entry.OldStatus, entry.NewStatus, entry.ActorID,
		entry.Reason, entry.Action, entry.IsAutomatic, entry.Metadata,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("transition log repository: create %w", err)
	}
	return nil
}

// ListByOrder возвращает журнал заказа в порядке создания записей.
func (r *TransitionLogRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.TransitionLog, error) {
	var logs []models.TransitionLog
	query := `SELECT * FROM transition_logs WHERE order_id = $1 ORDER BY created_at, id`
	if err := r.db.SelectContext(ctx, &logs, query, orderID); err != nil {
		return nil, fmt.Errorf("transition log repository: list by order %w", err)
	}
	return logs, nil
}
