package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StuffMaster78/acad-system-backend/internal/models"
	"github.com/StuffMaster78/acad-system-backend/internal/pkg/apperror"
)

type priorityFixture struct {
	svc      *PriorityService
	assigner *assignmentFixture
}

func newPriorityFixture(orders ...*models.Order) *priorityFixture {
	af := newAssignmentFixture(orders...)
	svc := NewPriorityService(af.orders, af.users, af.assigns, af.svc)
	return &priorityFixture{svc: svc, assigner: af}
}

func (f *priorityFixture) addRequest(t *testing.T, orderID uuid.UUID, writer *models.User) {
	t.Helper()
	require.NoError(t, f.assigner.assigns.CreateRequest(context.Background(), &models.WriterRequest{
		OrderID:  orderID,
		WriterID: writer.ID,
	}))
}

func TestScoreRequest_RatingDominates(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	now := time.Now()

	high := &models.WriterProfile{Rating: 5, MaxActiveOrders: 5, TotalAssigned: 10, CompletedOrders: 8}
	low := &models.WriterProfile{Rating: 2, MaxActiveOrders: 5, TotalAssigned: 10, CompletedOrders: 8}

	assert.Greater(t, ScoreRequest(high, 0, order, now), ScoreRequest(low, 0, order, now))
}

func TestScoreRequest_UrgentOrderFavorsExperience(t *testing.T) {
	deadline := time.Now().Add(2 * time.Hour)
	order := testOrder(models.OrderStatusAvailable)
	order.DeadlineAt = &deadline
	now := time.Now()

	veteran := &models.WriterProfile{Rating: 4, MaxActiveOrders: 5, TotalAssigned: 60, CompletedOrders: 55}
	novice := &models.WriterProfile{Rating: 4, MaxActiveOrders: 5, TotalAssigned: 1, CompletedOrders: 1}

	// У обоих полная success rate, но для срочного заказа опыт решает.
	assert.Greater(t, ScoreRequest(veteran, 0, order, now), ScoreRequest(novice, 0, order, now))
}

func TestScoreRequest_RegularOrderFavorsFreeCapacity(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	now := time.Now()
	profile := &models.WriterProfile{Rating: 4, MaxActiveOrders: 5, TotalAssigned: 10, CompletedOrders: 9}

	assert.Greater(t, ScoreRequest(profile, 0, order, now), ScoreRequest(profile, 5, order, now))
}

func TestScoreRequest_NilProfile(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	score := ScoreRequest(nil, 0, order, time.Now())
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestScoreRequest_SlowResponderPenalized(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	now := time.Now()

	fast := &models.WriterProfile{Rating: 4, MaxActiveOrders: 5, AvgResponseHours: 1}
	slow := &models.WriterProfile{Rating: 4, MaxActiveOrders: 5, AvgResponseHours: 72}

	assert.Greater(t, ScoreRequest(fast, 0, order, now), ScoreRequest(slow, 0, order, now))
}

func TestPrioritizedRequests_SortedByScore(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	order.IsPaid = true
	f := newPriorityFixture(order)

	middle := f.assigner.users.addWriter(models.WriterLevelStandard, 5)
	best := f.assigner.users.addWriter(models.WriterLevelStandard, 5)
	worst := f.assigner.users.addWriter(models.WriterLevelStandard, 5)
	f.assigner.users.profiles[middle.ID].Rating = 4
	f.assigner.users.profiles[best.ID].Rating = 5
	f.assigner.users.profiles[worst.ID].Rating = 3

	f.addRequest(t, order.ID, middle)
	f.addRequest(t, order.ID, best)
	f.addRequest(t, order.ID, worst)

	scored, err := f.svc.PrioritizedRequests(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, scored, 3)

	assert.Equal(t, best.ID, scored[0].Request.WriterID)
	assert.Equal(t, middle.ID, scored[1].Request.WriterID)
	assert.Equal(t, worst.ID, scored[2].Request.WriterID)
	assert.Greater(t, scored[0].Score, scored[1].Score)
}

func TestPrioritizedRequests_StableForEqualScores(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	f := newPriorityFixture(order)

	first := f.assigner.users.addWriter(models.WriterLevelStandard, 5)
	second := f.assigner.users.addWriter(models.WriterLevelStandard, 5)
	f.assigner.users.profiles[first.ID].Rating = 4
	f.assigner.users.profiles[second.ID].Rating = 4

	f.addRequest(t, order.ID, first)
	f.addRequest(t, order.ID, second)

	scored, err := f.svc.PrioritizedRequests(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, scored, 2)

	// При равных оценках сохраняется порядок подачи заявок.
	assert.Equal(t, first.ID, scored[0].Request.WriterID)
	assert.Equal(t, second.ID, scored[1].Request.WriterID)
}

func TestPrioritizedRequests_EmptyQueue(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	f := newPriorityFixture(order)

	scored, err := f.svc.PrioritizedRequests(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Empty(t, scored)
}

func TestAssignFromQueue_PicksTopRanked(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	order.IsPaid = true
	f := newPriorityFixture(order)

	weak := f.assigner.users.addWriter(models.WriterLevelStandard, 5)
	strong := f.assigner.users.addWriter(models.WriterLevelStandard, 5)
	f.assigner.users.profiles[weak.ID].Rating = 3
	f.assigner.users.profiles[strong.ID].Rating = 5

	f.addRequest(t, order.ID, weak)
	f.addRequest(t, order.ID, strong)

	updated, err := f.svc.AssignFromQueue(context.Background(), order.ID, staffUser(), true)
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedWriterID)
	assert.Equal(t, strong.ID, *updated.AssignedWriterID)
	assert.Equal(t, models.OrderStatusPendingWriterAssignment, updated.Status)
}

func TestAssignFromQueue_OldestWhenPriorityDisabled(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	order.IsPaid = true
	f := newPriorityFixture(order)

	oldest := f.assigner.users.addWriter(models.WriterLevelStandard, 5)
	newest := f.assigner.users.addWriter(models.WriterLevelStandard, 5)
	f.assigner.users.profiles[newest.ID].Rating = 5

	f.addRequest(t, order.ID, oldest)
	f.addRequest(t, order.ID, newest)

	updated, err := f.svc.AssignFromQueue(context.Background(), order.ID, staffUser(), false)
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedWriterID)
	assert.Equal(t, oldest.ID, *updated.AssignedWriterID)
}

func TestAssignFromQueue_NoRequests(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	f := newPriorityFixture(order)

	_, err := f.svc.AssignFromQueue(context.Background(), order.ID, staffUser(), true)
	assert.True(t, apperror.Is(err, apperror.ErrCodeNotFound))
}
