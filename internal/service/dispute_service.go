package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/StuffMaster78/acad-system-backend/internal/models"
	"github.com/StuffMaster78/acad-system-backend/internal/pkg/apperror"
)

// DisputeStore описывает хранилище споров.
type DisputeStore interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, d *models.Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Dispute, error)
	GetOpenByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Dispute, error)
	SetWriterResponded(ctx context.Context, id uuid.UUID) error
	ResolveTx(ctx context.Context, tx *sqlx.Tx, d *models.Dispute) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Dispute, error)
}

// DisputeService ведёт споры по заказам: открытие, эскалация, разрешение.
// Все сопутствующие смены статуса заказа идут через TransitionService в
// одной транзакции с мутацией спора.
type DisputeService struct {
	disputes    DisputeStore
	orders      OrderStore
	users       UserStore
	transitions *TransitionService
	notifier    Notifier
}

// NewDisputeService создаёт сервис споров.
func NewDisputeService(disputes DisputeStore, orders OrderStore, users UserStore, transitions *TransitionService, notifier Notifier) *DisputeService {
	return &DisputeService{
		disputes:    disputes,
		orders:      orders,
		users:       users,
		transitions: transitions,
		notifier:    notifier,
	}
}

// RaiseDispute открывает спор по заказу и переводит заказ в disputed.
// По отменённому или завершённому заказу спор открыть нельзя.
func (s *DisputeService) RaiseDispute(ctx context.Context, orderID uuid.UUID, raisedBy *models.User, reason string) (*models.Dispute, error) {
	if existing, err := s.disputes.GetOpenByOrder(ctx, orderID); err == nil && existing != nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "по заказу уже открыт спор")
	}

	var (
		dispute *models.Dispute
		after   func()
		order   *models.Order
	)
	err := s.orders.WithOrderLock(ctx, orderID, func(ctx context.Context, tx *sqlx.Tx, locked *models.Order) error {
		if models.IsTerminalStatus(locked.Status) {
			return apperror.New(apperror.ErrCodeConflict, "по завершённому или отменённому заказу спор открыть нельзя")
		}

		var err error
		after, err = s.transitions.TransitionTx(ctx, tx, locked, TransitionInput{
			TargetStatus:     models.OrderStatusDisputed,
			Actor:            raisedBy,
			Reason:           reason,
			Action:           "dispute_raised",
			SkipPaymentCheck: true,
		})
		if err != nil {
			return err
		}

		dispute = &models.Dispute{
			OrderID:   locked.ID,
			WebsiteID: locked.WebsiteID,
			RaisedBy:  raisedBy.ID,
			Reason:    reason,
			Status:    models.DisputeStatusOpen,
		}
		if err := s.disputes.CreateTx(ctx, tx, dispute); err != nil {
			return err
		}

		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	if after != nil {
		after()
	}

	s.notifyDisputeParties(ctx, order, raisedBy.ID, models.EventDisputeRaised, map[string]any{
		"order_id":   order.ID,
		"dispute_id": dispute.ID,
		"reason":     reason,
	})

	return dispute, nil
}

// StartReview переводит спор из open в in_review.
func (s *DisputeService) StartReview(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	return s.advance(ctx, disputeID, models.DisputeStatusInReview)
}

// Escalate переводит спор из open в escalated.
func (s *DisputeService) Escalate(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	return s.advance(ctx, disputeID, models.DisputeStatusEscalated)
}

func (s *DisputeService) advance(ctx context.Context, disputeID uuid.UUID, target string) (*models.Dispute, error) {
	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status == models.DisputeStatusResolved {
		return nil, apperror.ErrDisputeAlreadyResolved
	}
	return s.disputes.UpdateStatus(ctx, disputeID, target)
}

// MarkWriterResponded отмечает, что писатель ответил по спору.
func (s *DisputeService) MarkWriterResponded(ctx context.Context, disputeID uuid.UUID) error {
	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return err
	}
	if dispute.Status == models.DisputeStatusResolved {
		return apperror.ErrDisputeAlreadyResolved
	}
	return s.disputes.SetWriterResponded(ctx, disputeID)
}

// ResolveDisputeInput описывает решение по спору.
type ResolveDisputeInput struct {
	DisputeID        uuid.UUID
	Outcome          string
	ResolvedBy       *models.User
	Notes            string
	ExtendedDeadline *time.Time
}

// ResolveDispute применяет исход спора: доводит заказ до нужного статуса
// через исполнителя переходов и фиксирует разрешение. Всё — одна
// атомарная единица: если переход заказа не прошёл, спор не изменяется.
func (s *DisputeService) ResolveDispute(ctx context.Context, in ResolveDisputeInput) (*models.Dispute, error) {
	dispute, err := s.disputes.GetByID(ctx, in.DisputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status == models.DisputeStatusResolved {
		return nil, apperror.ErrDisputeAlreadyResolved
	}
	if !models.IsKnownDisputeOutcome(in.Outcome) {
		return nil, apperror.ErrUnknownOutcome
	}
	if in.Outcome == models.DisputeOutcomeExtendDeadline && in.ExtendedDeadline == nil {
		return nil, apperror.ErrMissingDeadline
	}

	var (
		resolved *models.Dispute
		after    func()
		order    *models.Order
	)
	err = s.orders.WithOrderLock(ctx, dispute.OrderID, func(ctx context.Context, tx *sqlx.Tx, locked *models.Order) error {
		// Перечитываем спор под блокировкой: конкурентное разрешение
		// должно упереться в уже проставленный resolved.
		current, err := s.disputes.GetForUpdateTx(ctx, tx, in.DisputeID)
		if err != nil {
			return err
		}
		if current.Status == models.DisputeStatusResolved {
			return apperror.ErrDisputeAlreadyResolved
		}

		transition := TransitionInput{
			Actor:            in.ResolvedBy,
			Reason:           in.Notes,
			Action:           "dispute_resolved",
			SkipPaymentCheck: true,
			Metadata: map[string]any{
				"dispute_id": in.DisputeID.String(),
				"outcome":    in.Outcome,
			},
		}

		switch in.Outcome {
		case models.DisputeOutcomeWriterWins:
			transition.TargetStatus = models.OrderStatusClosed
		case models.DisputeOutcomeClientWins:
			transition.TargetStatus = models.OrderStatusCancelled
		case models.DisputeOutcomeExtendDeadline:
			locked.DeadlineAt = in.ExtendedDeadline
			if err := s.orders.UpdateDeadlineTx(ctx, tx, locked); err != nil {
				return err
			}
			transition.TargetStatus = models.OrderStatusRevisionRequested
		case models.DisputeOutcomeReassign:
			locked.AssignedWriterID = nil
			if err := s.orders.UpdateWriterTx(ctx, tx, locked); err != nil {
				return err
			}
			transition.TargetStatus = models.OrderStatusAvailable
		}

		after, err = s.transitions.TransitionTx(ctx, tx, locked, transition)
		if err != nil {
			return err
		}

		outcome := in.Outcome
		notes := in.Notes
		current.Status = models.DisputeStatusResolved
		current.Outcome = &outcome
		current.ResolutionNotes = &notes
		current.ExtendedDeadline = in.ExtendedDeadline
		if in.ResolvedBy != nil {
			resolvedBy := in.ResolvedBy.ID
			current.ResolvedBy = &resolvedBy
		}
		if err := s.disputes.ResolveTx(ctx, tx, current); err != nil {
			return err
		}

		resolved = current
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	if after != nil {
		after()
	}

	s.notifyDisputeParties(ctx, order, resolved.RaisedBy, models.EventDisputeResolved, map[string]any{
		"order_id":   order.ID,
		"dispute_id": resolved.ID,
		"outcome":    in.Outcome,
	})

	return resolved, nil
}

// GetDispute возвращает спор по идентификатору.
func (s *DisputeService) GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return s.disputes.GetByID(ctx, id)
}

// ListOrderDisputes возвращает споры по заказу.
func (s *DisputeService) ListOrderDisputes(ctx context.Context, orderID uuid.UUID) ([]models.Dispute, error) {
	return s.disputes.ListByOrder(ctx, orderID)
}

// notifyDisputeParties уведомляет писателя, инициатора и персонал сайта.
// Доставка best-effort.
func (s *DisputeService) notifyDisputeParties(ctx context.Context, order *models.Order, raisedBy uuid.UUID, event string, data map[string]any) {
	if order.AssignedWriterID != nil {
		s.notifier.Notify(ctx, *order.AssignedWriterID, event, data, order.WebsiteID)
	}
	s.notifier.Notify(ctx, raisedBy, event, data, order.WebsiteID)

	staff, err := s.users.ListStaff(ctx, order.WebsiteID)
	if err != nil {
		return
	}
	for _, admin := range staff {
		if admin.ID == raisedBy {
			continue
		}
		s.notifier.Notify(ctx, admin.ID, event, data, order.WebsiteID)
	}
}
