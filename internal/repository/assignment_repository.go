package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/StuffMaster78/acad-system-backend/internal/models"
)

var (
	ErrAcceptanceNotFound = errors.New("assignment acceptance not found")
	ErrRequestNotFound    = errors.New("writer request not found")
)

// AssignmentRepository отвечает за предложения заказов писателям,
// историю переназначений и заявки писателей на заказы.
type AssignmentRepository struct {
	db *sqlx.DB
}

func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// GetAcceptanceByOrder возвращает актуальное предложение по заказу.
func (r *AssignmentRepository) GetAcceptanceByOrder(ctx context.Context, orderID uuid.UUID) (*models.AssignmentAcceptance, error) {
	var acc models.AssignmentAcceptance
	query := `SELECT * FROM assignment_acceptances WHERE order_id = $1`
	if err := r.db.GetContext(ctx, &acc, query, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAcceptanceNotFound
		}
		return nil, fmt.Errorf("assignment repository: get acceptance %w", err)
	}
	return &acc, nil
}

// UpsertAcceptanceTx создаёт предложение писателю или перезаписывает
// существующую строку заказа (get-or-create-and-overwrite семантика:
// на заказ существует не более одной строки предложения).
func (r *AssignmentRepository) UpsertAcceptanceTx(ctx context.Context, tx *sqlx.Tx, acc *models.AssignmentAcceptance) error {
	query := `
		INSERT INTO assignment_acceptances (order_id, writer_id, assigned_by, status, reason, assigned_at, responded_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NULL)
		ON CONFLICT (order_id) DO UPDATE
		SET writer_id = EXCLUDED.writer_id,
		    assigned_by = EXCLUDED.assigned_by,
		    status = EXCLUDED.status,
		    reason = EXCLUDED.reason,
		    assigned_at = NOW(),
		    responded_at = NULL
		RETURNING id, assigned_at
	`
	err := tx.QueryRowxContext(ctx, query,
		acc.OrderID, acc.WriterID, acc.AssignedBy, acc.Status, acc.Reason,
	).Scan(&acc.ID, &acc.AssignedAt)
	if err != nil {
		return fmt.Errorf("assignment repository: upsert acceptance %w", err)
	}
	return nil
}

// RejectPendingAcceptanceTx переводит ещё не отвеченное предложение по
// заказу в rejected с пояснением. Возвращает id писателя, чьё
// предложение было отклонено, или uuid.Nil, если отклонять нечего.
func (r *AssignmentRepository) RejectPendingAcceptanceTx(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID, reason string) (uuid.UUID, error) {
	var writerID uuid.UUID
	query := `
		UPDATE assignment_acceptances
		SET status = $2, reason = $3, responded_at = NOW()
		WHERE order_id = $1 AND status = $4
		RETURNING writer_id
	`
	err := tx.QueryRowxContext(ctx, query,
		orderID, models.AcceptanceStatusRejected, reason, models.AcceptanceStatusPending,
	).Scan(&writerID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("assignment repository: reject pending acceptance %w", err)
	}
	return writerID, nil
}

// RespondAcceptanceTx фиксирует ответ писателя на предложение.
func (r *AssignmentRepository) RespondAcceptanceTx(ctx context.Context, tx *sqlx.Tx, orderID, writerID uuid.UUID, status, reason string) (*models.AssignmentAcceptance, error) {
	var acc models.AssignmentAcceptance
	query := `
		UPDATE assignment_acceptances
		SET status = $3, reason = $4, responded_at = NOW()
		WHERE order_id = $1 AND writer_id = $2 AND status = $5
		RETURNING *
	`
	err := tx.QueryRowxContext(ctx, query,
		orderID, writerID, status, reason, models.AcceptanceStatusPending,
	).StructScan(&acc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAcceptanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("assignment repository: respond acceptance %w", err)
	}
	return &acc, nil
}

// CreateReassignmentLogTx пишет запись истории переназначений.
func (r *AssignmentRepository) CreateReassignmentLogTx(ctx context.Context, tx *sqlx.Tx, entry *models.ReassignmentLog) error {
	query := `
		INSERT INTO reassignment_logs (order_id, previous_writer_id, new_writer_id, actor_id, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := tx.QueryRowxContext(ctx, query,
		entry.OrderID, entry.PreviousWriterID, entry.NewWriterID, entry.ActorID, entry.Reason,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("assignment repository: create reassignment log %w", err)
	}
	return nil
}

// ListReassignments возвращает историю переназначений заказа.
func (r *AssignmentRepository) ListReassignments(ctx context.Context, orderID uuid.UUID) ([]models.ReassignmentLog, error) {
	var logs []models.ReassignmentLog
	query := `SELECT * FROM reassignment_logs WHERE order_id = $1 ORDER BY created_at, id`
	if err := r.db.SelectContext(ctx, &logs, query, orderID); err != nil {
		return nil, fmt.Errorf("assignment repository: list reassignments %w", err)
	}
	return logs, nil
}

// CreateRequest сохраняет заявку писателя на заказ. Повторная заявка
// того же писателя на тот же заказ не создаёт дубликата.
func (r *AssignmentRepository) CreateRequest(ctx context.Context, req *models.WriterRequest) error {
	query := `
		INSERT INTO writer_requests (order_id, writer_id, message)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id, writer_id) DO UPDATE SET message = EXCLUDED.message
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query, req.OrderID, req.WriterID, req.Message).
		Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return fmt.Errorf("assignment repository: create request %w", err)
	}
	return nil
}

// ListRequestsByOrder возвращает заявки писателей в порядке подачи.
func (r *AssignmentRepository) ListRequestsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.WriterRequest, error) {
	var requests []models.WriterRequest
	query := `SELECT * FROM writer_requests WHERE order_id = $1 ORDER BY created_at, id`
	if err := r.db.SelectContext(ctx, &requests, query, orderID); err != nil {
		return nil, fmt.Errorf("assignment repository: list requests %w", err)
	}
	return requests, nil
}

// DeleteRequestsTx удаляет заявки по заказу после состоявшегося назначения.
func (r *AssignmentRepository) DeleteRequestsTx(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM writer_requests WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("assignment repository: delete requests %w", err)
	}
	return nil
}
