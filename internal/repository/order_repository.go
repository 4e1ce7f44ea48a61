package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/StuffMaster78/acad-system-backend/internal/models"
	"github.com/StuffMaster78/acad-system-backend/internal/repository/common"
)

// Ошибки уровня репозитория.
var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrWebsiteNotFound = errors.New("website not found")
)

const orderColumns = `
	id, website_id, client_id, title, status, assigned_writer_id, preferred_writer_id,
	required_level, is_paid, is_urgent, pages, price, writer_compensation,
	deadline_at, preferred_expires_at, created_at, updated_at
`

// OrderRepository отвечает за работу с заказами. Строка заказа — точка
// сериализации: любые операции вида «прочитал статус — изменил статус»
// обязаны идти через WithOrderLock.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository создаёт новый экземпляр.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create сохраняет новый заказ.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (website_id, client_id, title, status, assigned_writer_id, preferred_writer_id,
		                    required_level, is_paid, is_urgent, pages, price, writer_compensation,
		                    deadline_at, preferred_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		order.WebsiteID, order.ClientID, order.Title, order.Status,
		order.AssignedWriterID, order.PreferredWriterID, order.RequiredLevel,
		order.IsPaid, order.IsUrgent, order.Pages, order.Price,
		order.WriterCompensation, order.DeadlineAt, order.PreferredExpiresAt,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("order repository: create %w", err)
	}
	return nil
}

// GetByID возвращает заказ по идентификатору.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("order repository: get by id %w", err)
	}
	return &order, nil
}

// WithOrderLock выполняет fn внутри транзакции, удерживая эксклюзивную
// блокировку строки заказа (SELECT ... FOR UPDATE). Пока fn не вернётся,
// конкурентные переходы по этому заказу ждут на блокировке, поэтому
// валидация против прочитанного статуса не может устареть.
func (r *OrderRepository) WithOrderLock(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context, tx *sqlx.Tx, order *models.Order) error) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var order models.Order
		query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &order, query, orderID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("order repository: lock order %w", err)
		}
		return fn(ctx, tx, &order)
	})
}

// UpdateStatusTx сохраняет статус заказа в рамках открытой транзакции.
func (r *OrderRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
	query := `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`
	if err := tx.QueryRowxContext(ctx, query, order.ID, order.Status).Scan(&order.UpdatedAt); err != nil {
		return fmt.Errorf("order repository: update status %w", err)
	}
	return nil
}

// UpdateWriterTx сохраняет назначенного писателя и его компенсацию.
func (r *OrderRepository) UpdateWriterTx(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
	query := `
		UPDATE orders SET assigned_writer_id = $2, writer_compensation = $3, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at
	`
	err := tx.QueryRowxContext(ctx, query, order.ID, order.AssignedWriterID, order.WriterCompensation).
		Scan(&order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("order repository: update writer %w", err)
	}
	return nil
}

// UpdateDeadlineTx сохраняет новый дедлайн заказа.
func (r *OrderRepository) UpdateDeadlineTx(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
	query := `UPDATE orders SET deadline_at = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`
	if err := tx.QueryRowxContext(ctx, query, order.ID, order.DeadlineAt).Scan(&order.UpdatedAt); err != nil {
		return fmt.Errorf("order repository: update deadline %w", err)
	}
	return nil
}

// UpdatePreferredTx сохраняет предпочтительного писателя и срок его ответа.
func (r *OrderRepository) UpdatePreferredTx(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
	query := `
		UPDATE orders SET preferred_writer_id = $2, preferred_expires_at = $3, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at
	`
	err := tx.QueryRowxContext(ctx, query, order.ID, order.PreferredWriterID, order.PreferredExpiresAt).
		Scan(&order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("order repository: update preferred %w", err)
	}
	return nil
}

// ListPreferredExpired возвращает заказы, у которых предложение
// предпочтительному писателю просрочено. Используется внешним свипером.
func (r *OrderRepository) ListPreferredExpired(ctx context.Context, now time.Time) ([]models.Order, error) {
	var orders []models.Order
	query := `
		SELECT ` + orderColumns + ` FROM orders
		WHERE status = $1 AND preferred_expires_at IS NOT NULL AND preferred_expires_at < $2
		ORDER BY preferred_expires_at
	`
	if err := r.db.SelectContext(ctx, &orders, query, models.OrderStatusPendingPreferred, now); err != nil {
		return nil, fmt.Errorf("order repository: list preferred expired %w", err)
	}
	return orders, nil
}

// CreateFile сохраняет запись о файле заказа.
func (r *OrderRepository) CreateFile(ctx context.Context, file *models.OrderFile) error {
	query := `
		INSERT INTO order_files (order_id, uploader_id, file_path, file_type, file_size)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		file.OrderID, file.UploaderID, file.FilePath, file.FileType, file.FileSize,
	).Scan(&file.ID, &file.CreatedAt)
	if err != nil {
		return fmt.Errorf("order repository: create file %w", err)
	}
	return nil
}

// ListFiles возвращает файлы заказа.
func (r *OrderRepository) ListFiles(ctx context.Context, orderID uuid.UUID) ([]models.OrderFile, error) {
	var files []models.OrderFile
	query := `SELECT * FROM order_files WHERE order_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &files, query, orderID); err != nil {
		return nil, fmt.Errorf("order repository: list files %w", err)
	}
	return files, nil
}
