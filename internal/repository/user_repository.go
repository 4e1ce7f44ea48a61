package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/StuffMaster78/acad-system-backend/internal/models"
	"github.com/StuffMaster78/acad-system-backend/internal/repository/common"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrWriterProfileNotFound = errors.New("writer profile not found")
)

// UserRepository отвечает за пользователей и профили писателей.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create сохраняет пользователя.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (website_id, email, username, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		user.WebsiteID, user.Email, user.Username, user.PasswordHash, user.Role, user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("user repository: create %w", err)
	}
	return nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByID[models.User](ctx, r.db, "users", id, ErrUserNotFound)
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "email", email, ErrUserNotFound)
}

// GetWriterProfile возвращает профиль писателя.
func (r *UserRepository) GetWriterProfile(ctx context.Context, userID uuid.UUID) (*models.WriterProfile, error) {
	return common.GetByField[models.WriterProfile](ctx, r.db, "writer_profiles", "user_id", userID, ErrWriterProfileNotFound)
}

// UpsertWriterProfile сохраняет профиль писателя.
func (r *UserRepository) UpsertWriterProfile(ctx context.Context, profile *models.WriterProfile) error {
	query := `
		INSERT INTO writer_profiles (user_id, level, max_active_orders, rating, avg_response_hours, completed_orders, total_assigned)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET level = EXCLUDED.level,
		    max_active_orders = EXCLUDED.max_active_orders,
		    rating = EXCLUDED.rating,
		    avg_response_hours = EXCLUDED.avg_response_hours,
		    completed_orders = EXCLUDED.completed_orders,
		    total_assigned = EXCLUDED.total_assigned,
		    updated_at = NOW()
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		profile.UserID, profile.Level, profile.MaxActiveOrders, profile.Rating,
		profile.AvgResponseHours, profile.CompletedOrders, profile.TotalAssigned,
	).Scan(&profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("user repository: upsert writer profile %w", err)
	}
	return nil
}

// GetWriterProfiles возвращает профили писателей по списку идентификаторов.
func (r *UserRepository) GetWriterProfiles(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*models.WriterProfile, error) {
	if len(userIDs) == 0 {
		return map[uuid.UUID]*models.WriterProfile{}, nil
	}

	var profiles []models.WriterProfile
	query := `SELECT * FROM writer_profiles WHERE user_id = ANY($1)`
	if err := r.db.SelectContext(ctx, &profiles, query, pq.Array(userIDs)); err != nil {
		return nil, fmt.Errorf("user repository: get writer profiles %w", err)
	}

	result := make(map[uuid.UUID]*models.WriterProfile, len(profiles))
	for i := range profiles {
		result[profiles[i].UserID] = &profiles[i]
	}
	return result, nil
}

// CountActiveAssignments возвращает число активных заказов писателя —
// заказов, где он назначен и работа ещё идёт.
func (r *UserRepository) CountActiveAssignments(ctx context.Context, writerID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM orders WHERE assigned_writer_id = $1 AND status = ANY($2)`
	err := r.db.GetContext(ctx, &count, query, writerID, pq.Array(models.AssignedOrderStatuses))
	if err != nil {
		return 0, fmt.Errorf("user repository: count active assignments %w", err)
	}
	return count, nil
}

// ListStaff возвращает активных администраторов и поддержку сайта.
func (r *UserRepository) ListStaff(ctx context.Context, websiteID uuid.UUID) ([]models.User, error) {
	var staff []models.User
	query := `
		SELECT * FROM users
		WHERE website_id = $1 AND role = ANY($2) AND is_active
		ORDER BY created_at
	`
	roles := pq.Array([]string{models.RoleAdmin, models.RoleSupport})
	if err := r.db.SelectContext(ctx, &staff, query, websiteID, roles); err != nil {
		return nil, fmt.Errorf("user repository: list staff %w", err)
	}
	return staff, nil
}
