package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/StuffMaster78/acad-system-backend/internal/logger"
	"github.com/StuffMaster78/acad-system-backend/internal/models"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// WSNotifier интерфейс для отправки WebSocket уведомлений.
type WSNotifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data interface{}) error
}

// Notifier — исходящий интерфейс ядра: уведомить пользователя о событии.
// Доставка best-effort: сбой уведомления никогда не валит операцию,
// которая его породила.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}, websiteID uuid.UUID)
}

// NotificationService содержит бизнес-логику работы с уведомлениями и
// реализует Notifier для движков ядра.
type NotificationService struct {
	repo NotificationRepository
	hub  WSNotifier
}

// NewNotificationService создаёт новый сервис уведомлений.
func NewNotificationService(repo NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// SetHub устанавливает WebSocket hub для мгновенной доставки.
func (s *NotificationService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// Notify сохраняет уведомление и пытается доставить его через WebSocket.
// Любые ошибки логируются и проглатываются.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}, websiteID uuid.UUID) {
	if userID == uuid.Nil {
		return
	}

	if _, err := s.create(ctx, userID, websiteID, event, data); err != nil {
		logger.Log.WithError(err).WithField("event", event).
			Warn("notification: не удалось сохранить уведомление")
	}

	if s.hub != nil {
		if err := s.hub.BroadcastToUser(userID, event, data); err != nil {
			logger.Log.WithError(err).WithField("event", event).
				Warn("notification: не удалось отправить уведомление по WebSocket")
		}
	}
}

func (s *NotificationService) create(ctx context.Context, userID, websiteID uuid.UUID, event string, data interface{}) (*models.Notification, error) {
	payload := map[string]interface{}{
		"event": event,
		"data":  data,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("notification service: marshal payload %w", err)
	}

	notification := &models.Notification{
		UserID:    userID,
		WebsiteID: websiteID,
		Payload:   payloadBytes,
		IsRead:    false,
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	return notification, nil
}

// ListNotifications возвращает список уведомлений пользователя.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead отмечает уведомление как прочитанное.
func (s *NotificationService) MarkAsRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if notification.UserID != userID {
		return fmt.Errorf("notification service: у вас нет прав на это уведомление")
	}

	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
