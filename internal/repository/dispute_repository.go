package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/StuffMaster78/acad-system-backend/internal/models"
	"github.com/StuffMaster78/acad-system-backend/internal/repository/common"
)

var ErrDisputeNotFound = errors.New("dispute not found")

// DisputeRepository отвечает за споры по заказам.
type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// CreateTx сохраняет спор в рамках транзакции, переводящей заказ в disputed.
func (r *DisputeRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (order_id, website_id, raised_by, reason, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := tx.QueryRowxContext(ctx, query, d.OrderID, d.WebsiteID, d.RaisedBy, d.Reason, d.Status).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("dispute repository: create %w", err)
	}
	return nil
}

// GetByID возвращает спор по идентификатору.
func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetByID[models.Dispute](ctx, r.db, "disputes", id, ErrDisputeNotFound)
}

// GetForUpdateTx читает спор под эксклюзивной блокировкой строки.
func (r *DisputeRepository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	query := `SELECT * FROM disputes WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &d, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: get for update %w", err)
	}
	return &d, nil
}

// GetOpenByOrder возвращает неразрешённый спор по заказу, если он есть.
func (r *DisputeRepository) GetOpenByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	query := `SELECT * FROM disputes WHERE order_id = $1 AND status <> $2 ORDER BY created_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &d, query, orderID, models.DisputeStatusResolved); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: get open by order %w", err)
	}
	return &d, nil
}

// UpdateStatus переводит спор в in_review или escalated.
func (r *DisputeRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Dispute, error) {
	var d models.Dispute
	query := `
		UPDATE disputes SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status <> $3
		RETURNING *
	`
	err := r.db.QueryRowxContext(ctx, query, id, status, models.DisputeStatusResolved).StructScan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dispute repository: update status %w", err)
	}
	return &d, nil
}

// SetWriterResponded отмечает, что писатель ответил на спор.
func (r *DisputeRepository) SetWriterResponded(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE disputes SET writer_responded = TRUE, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("dispute repository: set writer responded %w", err)
	}
	return nil
}

// ResolveTx фиксирует разрешение спора в рамках транзакции,
// переводящей заказ в итоговый статус.
func (r *DisputeRepository) ResolveTx(ctx context.Context, tx *sqlx.Tx, d *models.Dispute) error {
	query := `
		UPDATE disputes
		SET status = $2, outcome = $3, resolution_notes = $4, extended_deadline = $5,
		    resolved_by = $6, resolved_at = NOW(), updated_at = NOW()
		WHERE id = $1
		RETURNING resolved_at, updated_at
	`
	err := tx.QueryRowxContext(ctx, query,
		d.ID, d.Status, d.Outcome, d.ResolutionNotes, d.ExtendedDeadline, d.ResolvedBy,
	).Scan(&d.ResolvedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("dispute repository: resolve %w", err)
	}
	return nil
}

// ListByOrder возвращает все споры заказа.
func (r *DisputeRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Dispute, error) {
	var disputes []models.Dispute
	query := `SELECT * FROM disputes WHERE order_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &disputes, query, orderID); err != nil {
		return nil, fmt.Errorf("dispute repository: list by order %w", err)
	}
	return disputes, nil
}
