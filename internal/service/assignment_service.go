package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/StuffMaster78/acad-system-backend/internal/logger"
	"github.com/StuffMaster78/acad-system-backend/internal/models"
	"github.com/StuffMaster78/acad-system-backend/internal/pkg/apperror"
)

// Лимит активных заказов для писателя без заполненного профиля.
const defaultMaxActiveOrders = 5

// UserStore описывает взаимодействие движков ядра с хранилищем пользователей.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetWriterProfile(ctx context.Context, userID uuid.UUID) (*models.WriterProfile, error)
	GetWriterProfiles(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*models.WriterProfile, error)
	CountActiveAssignments(ctx context.Context, writerID uuid.UUID) (int, error)
	ListStaff(ctx context.Context, websiteID uuid.UUID) ([]models.User, error)
}

// AssignmentStore описывает хранилище предложений, переназначений и заявок.
type AssignmentStore interface {
	GetAcceptanceByOrder(ctx context.Context, orderID uuid.UUID) (*models.AssignmentAcceptance, error)
	UpsertAcceptanceTx(ctx context.Context, tx *sqlx.Tx, acc *models.AssignmentAcceptance) error
	RejectPendingAcceptanceTx(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID, reason string) (uuid.UUID, error)
	RespondAcceptanceTx(ctx context.Context, tx *sqlx.Tx, orderID, writerID uuid.UUID, status, reason string) (*models.AssignmentAcceptance, error)
	CreateReassignmentLogTx(ctx context.Context, tx *sqlx.Tx, entry *models.ReassignmentLog) error
	ListReassignments(ctx context.Context, orderID uuid.UUID) ([]models.ReassignmentLog, error)
	CreateRequest(ctx context.Context, req *models.WriterRequest) error
	ListRequestsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.WriterRequest, error)
	DeleteRequestsTx(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID) error
}

// AssignmentService управляет связкой писатель-заказ: назначение,
// переназначение, снятие, ответ писателя на предложение. Все смены
// статуса идут через TransitionService внутри одной блокировки заказа.
type AssignmentService struct {
	orders      OrderStore
	users       UserStore
	assignments AssignmentStore
	transitions *TransitionService
	access      AccessPolicy
	notifier    Notifier
}

// NewAssignmentService создаёт сервис назначений.
func NewAssignmentService(orders OrderStore, users UserStore, assignments AssignmentStore, transitions *TransitionService, access AccessPolicy, notifier Notifier) *AssignmentService {
	return &AssignmentService{
		orders:      orders,
		users:       users,
		assignments: assignments,
		transitions: transitions,
		access:      access,
		notifier:    notifier,
	}
}

// AssignWriterInput описывает запрос на назначение писателя.
type AssignWriterInput struct {
	OrderID  uuid.UUID
	WriterID uuid.UUID
	Actor    *models.User
	Reason   string
	// PaymentOverrideAmount — индивидуальная компенсация писателя,
	// заменяющая расчётную.
	PaymentOverrideAmount *float64
}

// AssignWriter назначает или переназначает писателя на заказ.
func (s *AssignmentService) AssignWriter(ctx context.Context, in AssignWriterInput) (*models.Order, error) {
	writer, err := s.users.GetByID(ctx, in.WriterID)
	if err != nil || writer.Role != models.RoleWriter || !writer.IsActive {
		return nil, apperror.New(apperror.ErrCodeNotFound,
			fmt.Sprintf("писатель %s не найден или неактивен", in.WriterID))
	}

	isStaff := in.Actor != nil && in.Actor.IsStaff()

	profile, err := s.users.GetWriterProfile(ctx, in.WriterID)
	if err != nil {
		profile = nil
	}

	var (
		updated     *models.Order
		after       func()
		isReassign  bool
		oldWriterID uuid.UUID
	)
	err = s.orders.WithOrderLock(ctx, in.OrderID, func(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
		if order.HasWriter() && !isStaff {
			return apperror.ErrAlreadyAssigned
		}

		if !s.access.CanBeAssigned(ctx, writer, profile, order, isStaff) {
			return apperror.New(apperror.ErrCodeForbidden,
				fmt.Sprintf("уровень писателя %s ниже требуемого для заказа", writer.Username))
		}

		active, err := s.users.CountActiveAssignments(ctx, in.WriterID)
		if err != nil {
			return err
		}
		limit := defaultMaxActiveOrders
		if profile != nil && profile.MaxActiveOrders > 0 {
			limit = profile.MaxActiveOrders
		}
		if active >= limit && !isStaff {
			return apperror.NewWorkloadExceeded(in.WriterID, active, limit)
		}

		isReassign = order.HasWriter() && *order.AssignedWriterID != in.WriterID
		if isReassign {
			oldWriterID = *order.AssignedWriterID
			rejectReason := fmt.Sprintf("заказ передан другому писателю (%s)", writer.Username)
			if _, err := s.assignments.RejectPendingAcceptanceTx(ctx, tx, order.ID, rejectReason); err != nil {
				return err
			}
		}

		writerID := in.WriterID
		order.AssignedWriterID = &writerID
		if in.PaymentOverrideAmount != nil {
			order.WriterCompensation = in.PaymentOverrideAmount
		}
		if err := s.orders.UpdateWriterTx(ctx, tx, order); err != nil {
			return err
		}

		target, err := s.pickAssignmentTarget(order, isReassign)
		if err != nil {
			return err
		}

		action := "writer_assigned"
		if isReassign {
			action = "writer_reassigned"
		}
		after, err = s.transitions.TransitionTx(ctx, tx, order, TransitionInput{
			TargetStatus:     target,
			Actor:            in.Actor,
			Reason:           in.Reason,
			Action:           action,
			SkipPaymentCheck: isStaff,
			Metadata: map[string]any{
				"writer_id": in.WriterID.String(),
			},
		})
		if err != nil {
			return err
		}

		acc := &models.AssignmentAcceptance{
			OrderID:  order.ID,
			WriterID: in.WriterID,
			Status:   models.AcceptanceStatusPending,
			Reason:   in.Reason,
		}
		if in.Actor != nil {
			actorID := in.Actor.ID
			acc.AssignedBy = &actorID
		}
		if err := s.assignments.UpsertAcceptanceTx(ctx, tx, acc); err != nil {
			return err
		}

		if isReassign {
			entry := &models.ReassignmentLog{
				OrderID:          order.ID,
				PreviousWriterID: oldWriterID,
				NewWriterID:      in.WriterID,
				Reason:           in.Reason,
			}
			if in.Actor != nil {
				actorID := in.Actor.ID
				entry.ActorID = &actorID
			}
			if err := s.assignments.CreateReassignmentLogTx(ctx, tx, entry); err != nil {
				return err
			}
		}

		// Заявки других писателей на этот заказ больше не актуальны.
		if err := s.assignments.DeleteRequestsTx(ctx, tx, order.ID); err != nil {
			return err
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if after != nil {
		after()
	}

	// Уведомления best-effort: их сбой назначение не отменяет.
	data := map[string]any{
		"order_id": updated.ID,
		"title":    updated.Title,
	}
	if isReassign {
		s.notifier.Notify(ctx, in.WriterID, models.EventOrderReassigned, data, updated.WebsiteID)
		s.notifier.Notify(ctx, oldWriterID, models.EventOrderUnassigned, data, updated.WebsiteID)
	} else {
		s.notifier.Notify(ctx, in.WriterID, models.EventOrderAssigned, data, updated.WebsiteID)
	}
	s.notifier.Notify(ctx, in.WriterID, models.EventAcceptanceRequired, data, updated.WebsiteID)

	return updated, nil
}

// pickAssignmentTarget выбирает целевой статус после назначения писателя.
// Документированный порядок фолбэка: reassigned (только при
// переназначении) -> pending_writer_assignment -> available. При
// расширении таблицы переходов эту цепочку нужно пересматривать.
func (s *AssignmentService) pickAssignmentTarget(order *models.Order, isReassign bool) (string, error) {
	var candidates []string
	if isReassign {
		candidates = append(candidates, models.OrderStatusReassigned)
	}
	candidates = append(candidates, models.OrderStatusPendingWriterAssignment, models.OrderStatusAvailable)

	for _, candidate := range candidates {
		if candidate == order.Status {
			continue
		}
		for _, next := range models.StatusTransitions[order.Status] {
			if next == candidate {
				return candidate, nil
			}
		}
	}
	return "", apperror.New(apperror.ErrCodeInvalidTransition,
		fmt.Sprintf("из статуса %q нет допустимого перехода для назначения писателя", order.Status))
}

// UnassignWriter снимает писателя с заказа и возвращает заказ в available.
func (s *AssignmentService) UnassignWriter(ctx context.Context, orderID uuid.UUID, actor *models.User) (*models.Order, error) {
	isStaff := actor != nil && actor.IsStaff()

	var (
		updated     *models.Order
		after       func()
		oldWriterID uuid.UUID
	)
	err := s.orders.WithOrderLock(ctx, orderID, func(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
		if !order.HasWriter() {
			return apperror.ErrNotAssigned
		}
		oldWriterID = *order.AssignedWriterID

		if _, err := s.assignments.RejectPendingAcceptanceTx(ctx, tx, order.ID, "назначение снято"); err != nil {
			return err
		}

		order.AssignedWriterID = nil
		if err := s.orders.UpdateWriterTx(ctx, tx, order); err != nil {
			return err
		}

		var err error
		after, err = s.transitions.TransitionTx(ctx, tx, order, TransitionInput{
			TargetStatus:     models.OrderStatusAvailable,
			Actor:            actor,
			Reason:           "писатель снят с заказа",
			Action:           "writer_unassigned",
			SkipPaymentCheck: isStaff,
		})
		if err != nil {
			return err
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if after != nil {
		after()
	}

	data := map[string]any{
		"order_id": updated.ID,
		"title":    updated.Title,
	}
	s.notifier.Notify(ctx, oldWriterID, models.EventOrderUnassigned, data, updated.WebsiteID)
	s.notifier.Notify(ctx, updated.ClientID, models.EventOrderStatusChanged, data, updated.WebsiteID)

	return updated, nil
}

// RespondAcceptance фиксирует ответ писателя на предложение заказа.
// Принятие переводит заказ в in_progress, отказ освобождает заказ.
func (s *AssignmentService) RespondAcceptance(ctx context.Context, orderID uuid.UUID, writer *models.User, accept bool, reason string) (*models.Order, error) {
	var (
		updated *models.Order
		after   func()
	)
	err := s.orders.WithOrderLock(ctx, orderID, func(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
		status := models.AcceptanceStatusAccepted
		if !accept {
			status = models.AcceptanceStatusRejected
		}
		if _, err := s.assignments.RespondAcceptanceTx(ctx, tx, orderID, writer.ID, status, reason); err != nil {
			return err
		}

		in := TransitionInput{
			Actor:            writer,
			Reason:           reason,
			SkipPaymentCheck: true,
		}
		if accept {
			in.TargetStatus = models.OrderStatusInProgress
			in.Action = "assignment_accepted"
		} else {
			order.AssignedWriterID = nil
			if err := s.orders.UpdateWriterTx(ctx, tx, order); err != nil {
				return err
			}
			in.TargetStatus = models.OrderStatusAvailable
			in.Action = "assignment_declined"
		}

		var err error
		after, err = s.transitions.TransitionTx(ctx, tx, order, in)
		if err != nil {
			return err
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if after != nil {
		after()
	}

	event := models.EventOrderStatusChanged
	s.notifier.Notify(ctx, updated.ClientID, event, map[string]any{
		"order_id": updated.ID,
		"title":    updated.Title,
		"accepted": accept,
	}, updated.WebsiteID)

	return updated, nil
}

// RequestOrder регистрирует заявку писателя на свободный заказ.
func (s *AssignmentService) RequestOrder(ctx context.Context, orderID uuid.UUID, writer *models.User, message string) (*models.WriterRequest, error) {
	if writer.Role != models.RoleWriter || !writer.IsActive {
		return nil, apperror.ErrForbidden
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusAvailable && order.Status != models.OrderStatusPendingPreferred {
		return nil, apperror.New(apperror.ErrCodeConflict, "заказ недоступен для заявок")
	}

	req := &models.WriterRequest{
		OrderID:  orderID,
		WriterID: writer.ID,
		Message:  message,
	}
	if err := s.assignments.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ListReassignments возвращает историю переназначений заказа.
func (s *AssignmentService) ListReassignments(ctx context.Context, orderID uuid.UUID) ([]models.ReassignmentLog, error) {
	return s.assignments.ListReassignments(ctx, orderID)
}

// ReleasePreferredOffers возвращает в available заказы с просроченным
// предложением предпочтительному писателю. Вызывается внешним свипером;
// возвращает количество освобождённых заказов.
func (s *AssignmentService) ReleasePreferredOffers(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.orders.ListPreferredExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, candidate := range expired {
		var after func()
		err := s.orders.WithOrderLock(ctx, candidate.ID, func(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
			// Перепроверяем под блокировкой: заказ мог уйти из
			// pending_preferred, пока мы собирали список.
			if order.Status != models.OrderStatusPendingPreferred {
				return nil
			}
			if order.PreferredExpiresAt == nil || order.PreferredExpiresAt.After(now) {
				return nil
			}

			order.PreferredWriterID = nil
			order.PreferredExpiresAt = nil
			if err := s.orders.UpdatePreferredTx(ctx, tx, order); err != nil {
				return err
			}

			var err error
			after, err = s.transitions.TransitionTx(ctx, tx, order, TransitionInput{
				TargetStatus:     models.OrderStatusAvailable,
				Reason:           "предпочтительный писатель не ответил вовремя",
				Action:           "preferred_offer_released",
				IsAutomatic:      true,
				SkipPaymentCheck: true,
			})
			return err
		})
		if err != nil {
			logger.Log.WithError(err).WithFields(logrus.Fields{
				"order_id": candidate.ID,
			}).Warn("assignment: не удалось освободить просроченное предложение")
			continue
		}
		if after != nil {
			after()
			released++
		}
	}
	return released, nil
}
