package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/StuffMaster78/acad-system-backend/internal/models"
	"github.com/StuffMaster78/acad-system-backend/internal/pkg/apperror"
)

// Весовые коэффициенты ранжирования заявок писателей.
const (
	weightRating       = 0.30
	weightResponseTime = 0.25
	weightSuccessRate  = 0.25
	weightUrgency      = 0.20

	// responseDecayHours — среднее время ответа, после которого
	// компонент скорости отклика обнуляется.
	responseDecayHours = 48.0

	// experienceCap — потолок числа завершённых заказов, учитываемый
	// для срочных заказов.
	experienceCap = 50.0
)

// PriorityService ранжирует заявки писателей на заказ и умеет назначить
// лучшего кандидата.
type PriorityService struct {
	orders      OrderStore
	users       UserStore
	assignments AssignmentStore
	assigner    *AssignmentService

	now func() time.Time
}

// NewPriorityService создаёт сервис очереди приоритетов.
func NewPriorityService(orders OrderStore, users UserStore, assignments AssignmentStore, assigner *AssignmentService) *PriorityService {
	return &PriorityService{
		orders:      orders,
		users:       users,
		assignments: assignments,
		assigner:    assigner,
		now:         time.Now,
	}
}

// ScoreRequest считает приоритет заявки писателя на заказ.
//
// score = 0.30*ratingNorm + 0.25*responseScore + 0.25*successRate + 0.20*urgencyOrWorkload
//
// Для срочного заказа (дедлайн ближе 24 часов) четвёртый компонент
// поощряет опыт писателя, для обычного — запас по загрузке.
func ScoreRequest(profile *models.WriterProfile, activeAssignments int, order *models.Order, now time.Time) float64 {
	if profile == nil {
		profile = &models.WriterProfile{MaxActiveOrders: defaultMaxActiveOrders}
	}

	ratingNorm := profile.Rating / 5
	if ratingNorm > 1 {
		ratingNorm = 1
	}
	if ratingNorm < 0 {
		ratingNorm = 0
	}

	// Линейное затухание: 1.0 при мгновенном ответе, 0.0 при >= 48 часах.
	responseScore := 1 - profile.AvgResponseHours/responseDecayHours
	if responseScore < 0 {
		responseScore = 0
	}
	if responseScore > 1 {
		responseScore = 1
	}

	successRate := 0.5
	if profile.TotalAssigned > 0 {
		successRate = float64(profile.CompletedOrders) / float64(profile.TotalAssigned)
		if successRate > 1 {
			successRate = 1
		}
	}

	var fourth float64
	if order.IsUrgentNow(now) {
		experience := float64(profile.CompletedOrders)
		if experience > experienceCap {
			experience = experienceCap
		}
		fourth = experience / experienceCap
	} else {
		limit := profile.MaxActiveOrders
		if limit <= 0 {
			limit = defaultMaxActiveOrders
		}
		fourth = 1 - float64(activeAssignments)/float64(limit)
		if fourth < 0 {
			fourth = 0
		}
	}

	return weightRating*ratingNorm +
		weightResponseTime*responseScore +
		weightSuccessRate*successRate +
		weightUrgency*fourth
}

// PrioritizedRequests возвращает заявки писателей на заказ, отсортированные
// по убыванию приоритета. При равных оценках сохраняется порядок подачи.
func (s *PriorityService) PrioritizedRequests(ctx context.Context, orderID uuid.UUID) ([]models.ScoredRequest, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	requests, err := s.assignments.ListRequestsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, nil
	}

	writerIDs := make([]uuid.UUID, 0, len(requests))
	for _, req := range requests {
		writerIDs = append(writerIDs, req.WriterID)
	}
	profiles, err := s.users.GetWriterProfiles(ctx, writerIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	scored := make([]models.ScoredRequest, 0, len(requests))
	for _, req := range requests {
		profile := profiles[req.WriterID]
		active, err := s.users.CountActiveAssignments(ctx, req.WriterID)
		if err != nil {
			return nil, err
		}

		item := models.ScoredRequest{
			Request: req,
			Score:   ScoreRequest(profile, active, order, now),
		}
		if profile != nil {
			item.Profile = *profile
		}
		scored = append(scored, item)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored, nil
}

// AssignFromQueue назначает на заказ лучшего кандидата из очереди заявок.
// При usePriority=false берётся самая старая заявка.
func (s *PriorityService) AssignFromQueue(ctx context.Context, orderID uuid.UUID, actor *models.User, usePriority bool) (*models.Order, error) {
	var writerID uuid.UUID
	if usePriority {
		scored, err := s.PrioritizedRequests(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if len(scored) == 0 {
			return nil, apperror.New(apperror.ErrCodeNotFound, "на заказ нет заявок писателей")
		}
		writerID = scored[0].Request.WriterID
	} else {
		requests, err := s.assignments.ListRequestsByOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if len(requests) == 0 {
			return nil, apperror.New(apperror.ErrCodeNotFound, "на заказ нет заявок писателей")
		}
		writerID = requests[0].WriterID
	}

	return s.assigner.AssignWriter(ctx, AssignWriterInput{
		OrderID:  orderID,
		WriterID: writerID,
		Actor:    actor,
		Reason:   "назначение из очереди заявок",
	})
}
