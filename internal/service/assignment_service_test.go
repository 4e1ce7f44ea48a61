package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StuffMaster78/acad-system-backend/internal/models"
	"github.com/StuffMaster78/acad-system-backend/internal/pkg/apperror"
	"github.com/StuffMaster78/acad-system-backend/internal/repository"
)

type assignmentFixture struct {
	svc         *AssignmentService
	transitions *TransitionService
	orders      *fakeOrderStore
	users       *fakeUserStore
	assigns     *fakeAssignmentStore
	logs        *fakeLogStore
	notifier    *fakeNotifier
}

func newAssignmentFixture(orders ...*models.Order) *assignmentFixture {
	orderStore := newFakeOrderStore(orders...)
	logs := &fakeLogStore{}
	users := newFakeUserStore()
	assigns := newFakeAssignmentStore()
	notifier := &fakeNotifier{}
	transitions := NewTransitionService(orderStore, logs, &fakeGatedProvider{})
	svc := NewAssignmentService(orderStore, users, assigns, transitions, NewLevelAccessPolicy(), notifier)
	return &assignmentFixture{
		svc:         svc,
		transitions: transitions,
		orders:      orderStore,
		users:       users,
		assigns:     assigns,
		logs:        logs,
		notifier:    notifier,
	}
}

func TestAssignWriter_CreatesPendingAcceptance(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	order.IsPaid = true
	f := newAssignmentFixture(order)
	writer := f.users.addWriter(models.WriterLevelStandard, 5)
	admin := staffUser()

	// Заявка другого писателя должна исчезнуть после назначения.
	other := f.users.addWriter(models.WriterLevelStandard, 5)
	require.NoError(t, f.assigns.CreateRequest(context.Background(), &models.WriterRequest{
		OrderID:  order.ID,
		WriterID: other.ID,
	}))

	updated, err := f.svc.AssignWriter(context.Background(), AssignWriterInput{
		OrderID:  order.ID,
		WriterID: writer.ID,
		Actor:    admin,
		Reason:   "ручное назначение",
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPendingWriterAssignment, updated.Status)
	require.NotNil(t, updated.AssignedWriterID)
	assert.Equal(t, writer.ID, *updated.AssignedWriterID)

	acc, err := f.assigns.GetAcceptanceByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AcceptanceStatusPending, acc.Status)
	assert.Equal(t, writer.ID, acc.WriterID)
	require.NotNil(t, acc.AssignedBy)
	assert.Equal(t, admin.ID, *acc.AssignedBy)

	requests, err := f.assigns.ListRequestsByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Empty(t, requests)

	entries := f.logs.byOrder(order.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, "writer_assigned", entries[0].Action)

	assert.Equal(t, []string{models.EventOrderAssigned, models.EventAcceptanceRequired}, f.notifier.eventsFor(writer.ID))
}

func TestAssignWriter_PaymentOverrideSetsCompensation(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	order.IsPaid = true
	f := newAssignmentFixture(order)
	writer := f.users.addWriter(models.WriterLevelStandard, 5)

	amount := 120.50
	updated, err := f.svc.AssignWriter(context.Background(), AssignWriterInput{
		OrderID:               order.ID,
		WriterID:              writer.ID,
		Actor:                 staffUser(),
		PaymentOverrideAmount: &amount,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.WriterCompensation)
	assert.Equal(t, amount, *updated.WriterCompensation)
}

func TestAssignWriter_UnknownWriter(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	f := newAssignmentFixture(order)

	_, err := f.svc.AssignWriter(context.Background(), AssignWriterInput{
		OrderID:  order.ID,
		WriterID: uuid.New(),
		Actor:    staffUser(),
	})
	assert.True(t, apperror.Is(err, apperror.ErrCodeNotFound))
}

func TestAssignWriter_NonStaffCannotTakeAssignedOrder(t *testing.T) {
	order := testOrder(models.OrderStatusInProgress)
	order.IsPaid = true
	f := newAssignmentFixture(order)
	current := f.users.addWriter(models.WriterLevelStandard, 5)
	order.AssignedWriterID = &current.ID
	candidate := f.users.addWriter(models.WriterLevelStandard, 5)

	_, err := f.svc.AssignWriter(context.Background(), AssignWriterInput{
		OrderID:  order.ID,
		WriterID: candidate.ID,
		Actor:    clientUser(),
	})
	assert.True(t, errors.Is(err, apperror.ErrAlreadyAssigned))
	require.NotNil(t, f.orders.orders[order.ID].AssignedWriterID)
	assert.Equal(t, current.ID, *f.orders.orders[order.ID].AssignedWriterID)
}

func TestAssignWriter_ReassignByStaff(t *testing.T) {
	order := testOrder(models.OrderStatusInProgress)
	order.IsPaid = true
	f := newAssignmentFixture(order)
	first := f.users.addWriter(models.WriterLevelStandard, 5)
	second := f.users.addWriter(models.WriterLevelStandard, 5)
	order.AssignedWriterID = &first.ID
	admin := staffUser()

	require.NoError(t, f.assigns.UpsertAcceptanceTx(context.Background(), nil, &models.AssignmentAcceptance{
		OrderID:  order.ID,
		WriterID: first.ID,
		Status:   models.AcceptanceStatusPending,
	}))

	updated, err := f.svc.AssignWriter(context.Background(), AssignWriterInput{
		OrderID:  order.ID,
		WriterID: second.ID,
		Actor:    admin,
		Reason:   "первый писатель не укладывается в срок",
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusReassigned, updated.Status)
	require.NotNil(t, updated.AssignedWriterID)
	assert.Equal(t, second.ID, *updated.AssignedWriterID)

	// Прежнее предложение перезаписано новым pending для второго писателя.
	acc, err := f.assigns.GetAcceptanceByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, acc.WriterID)
	assert.Equal(t, models.AcceptanceStatusPending, acc.Status)

	history, err := f.svc.ListReassignments(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, first.ID, history[0].PreviousWriterID)
	assert.Equal(t, second.ID, history[0].NewWriterID)

	entries := f.logs.byOrder(order.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, "writer_reassigned", entries[0].Action)

	assert.Contains(t, f.notifier.eventsFor(first.ID), models.EventOrderUnassigned)
	assert.Contains(t, f.notifier.eventsFor(second.ID), models.EventOrderReassigned)
}

func TestAssignWriter_WorkloadLimit(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	order.IsPaid = true
	f := newAssignmentFixture(order)
	writer := f.users.addWriter(models.WriterLevelStandard, 2)
	f.users.active[writer.ID] = 2

	_, err := f.svc.AssignWriter(context.Background(), AssignWriterInput{
		OrderID:  order.ID,
		WriterID: writer.ID,
		Actor:    &models.User{ID: uuid.New(), Role: models.RoleEditor, IsActive: true},
	})
	assert.True(t, apperror.Is(err, apperror.ErrCodeWorkloadExceeded))

	// Администратор лимит обходит.
	_, err = f.svc.AssignWriter(context.Background(), AssignWriterInput{
		OrderID:  order.ID,
		WriterID: writer.ID,
		Actor:    staffUser(),
	})
	assert.NoError(t, err)
}

func TestAssignWriter_LevelBelowRequired(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	order.IsPaid = true
	order.RequiredLevel = models.WriterLevelExpert
	f := newAssignmentFixture(order)
	writer := f.users.addWriter(models.WriterLevelBeginner, 5)

	_, err := f.svc.AssignWriter(context.Background(), AssignWriterInput{
		OrderID:  order.ID,
		WriterID: writer.ID,
		Actor:    &models.User{ID: uuid.New(), Role: models.RoleEditor, IsActive: true},
	})
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))

	// Административное назначение игнорирует уровень.
	_, err = f.svc.AssignWriter(context.Background(), AssignWriterInput{
		OrderID:  order.ID,
		WriterID: writer.ID,
		Actor:    staffUser(),
	})
	assert.NoError(t, err)
}

func TestAssignWriter_UnpaidOrderRequiresStaff(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	f := newAssignmentFixture(order)
	writer := f.users.addWriter(models.WriterLevelStandard, 5)

	_, err := f.svc.AssignWriter(context.Background(), AssignWriterInput{
		OrderID:  order.ID,
		WriterID: writer.ID,
		Actor:    &models.User{ID: uuid.New(), Role: models.RoleEditor, IsActive: true},
	})
	assert.True(t, apperror.Is(err, apperror.ErrCodePaymentRequired))
	assert.Nil(t, f.orders.orders[order.ID].AssignedWriterID)
}

func TestUnassignWriter(t *testing.T) {
	order := testOrder(models.OrderStatusInProgress)
	order.IsPaid = true
	f := newAssignmentFixture(order)
	writer := f.users.addWriter(models.WriterLevelStandard, 5)
	order.AssignedWriterID = &writer.ID

	require.NoError(t, f.assigns.UpsertAcceptanceTx(context.Background(), nil, &models.AssignmentAcceptance{
		OrderID:  order.ID,
		WriterID: writer.ID,
		Status:   models.AcceptanceStatusPending,
	}))

	updated, err := f.svc.UnassignWriter(context.Background(), order.ID, staffUser())
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAvailable, updated.Status)
	assert.Nil(t, updated.AssignedWriterID)

	acc, err := f.assigns.GetAcceptanceByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AcceptanceStatusRejected, acc.Status)

	assert.Contains(t, f.notifier.eventsFor(writer.ID), models.EventOrderUnassigned)
}

func TestUnassignWriter_NoWriter(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	f := newAssignmentFixture(order)

	_, err := f.svc.UnassignWriter(context.Background(), order.ID, staffUser())
	assert.True(t, errors.Is(err, apperror.ErrNotAssigned))
}

func TestRespondAcceptance_Accept(t *testing.T) {
	order := testOrder(models.OrderStatusPendingWriterAssignment)
	order.IsPaid = true
	f := newAssignmentFixture(order)
	writer := f.users.addWriter(models.WriterLevelStandard, 5)
	order.AssignedWriterID = &writer.ID

	require.NoError(t, f.assigns.UpsertAcceptanceTx(context.Background(), nil, &models.AssignmentAcceptance{
		OrderID:  order.ID,
		WriterID: writer.ID,
		Status:   models.AcceptanceStatusPending,
	}))

	updated, err := f.svc.RespondAcceptance(context.Background(), order.ID, writer, true, "беру в работу")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInProgress, updated.Status)

	acc, err := f.assigns.GetAcceptanceByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AcceptanceStatusAccepted, acc.Status)
	assert.NotNil(t, acc.RespondedAt)

	entries := f.logs.byOrder(order.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, "assignment_accepted", entries[0].Action)
	assert.Contains(t, f.notifier.eventsFor(order.ClientID), models.EventOrderStatusChanged)
}

func TestRespondAcceptance_DeclineReleasesOrder(t *testing.T) {
	order := testOrder(models.OrderStatusPendingWriterAssignment)
	order.IsPaid = true
	f := newAssignmentFixture(order)
	writer := f.users.addWriter(models.WriterLevelStandard, 5)
	order.AssignedWriterID = &writer.ID

	require.NoError(t, f.assigns.UpsertAcceptanceTx(context.Background(), nil, &models.AssignmentAcceptance{
		OrderID:  order.ID,
		WriterID: writer.ID,
		Status:   models.AcceptanceStatusPending,
	}))

	updated, err := f.svc.RespondAcceptance(context.Background(), order.ID, writer, false, "не успеваю")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAvailable, updated.Status)
	assert.Nil(t, updated.AssignedWriterID)
	assert.Nil(t, f.orders.orders[order.ID].AssignedWriterID)

	acc, err := f.assigns.GetAcceptanceByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AcceptanceStatusRejected, acc.Status)
	assert.Equal(t, "не успеваю", acc.Reason)
}

func TestRespondAcceptance_NoPendingOffer(t *testing.T) {
	order := testOrder(models.OrderStatusPendingWriterAssignment)
	f := newAssignmentFixture(order)
	writer := f.users.addWriter(models.WriterLevelStandard, 5)

	_, err := f.svc.RespondAcceptance(context.Background(), order.ID, writer, true, "")
	assert.True(t, errors.Is(err, repository.ErrAcceptanceNotFound))
	assert.Equal(t, models.OrderStatusPendingWriterAssignment, f.orders.orders[order.ID].Status)
}

func TestRequestOrder(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	order.IsPaid = true
	f := newAssignmentFixture(order)
	writer := f.users.addWriter(models.WriterLevelStandard, 5)

	req, err := f.svc.RequestOrder(context.Background(), order.ID, writer, "готов взять")
	require.NoError(t, err)
	assert.Equal(t, writer.ID, req.WriterID)

	// Повторная заявка обновляет сообщение, не плодя дубликаты.
	_, err = f.svc.RequestOrder(context.Background(), order.ID, writer, "всё ещё готов")
	require.NoError(t, err)
	requests, err := f.assigns.ListRequestsByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "всё ещё готов", requests[0].Message)
}

func TestRequestOrder_OnlyOpenStatuses(t *testing.T) {
	order := testOrder(models.OrderStatusInProgress)
	f := newAssignmentFixture(order)
	writer := f.users.addWriter(models.WriterLevelStandard, 5)

	_, err := f.svc.RequestOrder(context.Background(), order.ID, writer, "")
	assert.True(t, apperror.Is(err, apperror.ErrCodeConflict))
}

func TestRequestOrder_WritersOnly(t *testing.T) {
	order := testOrder(models.OrderStatusAvailable)
	f := newAssignmentFixture(order)

	_, err := f.svc.RequestOrder(context.Background(), order.ID, clientUser(), "")
	assert.True(t, errors.Is(err, apperror.ErrForbidden))
}

func TestReleasePreferredOffers(t *testing.T) {
	now := time.Now()
	expiredAt := now.Add(-time.Hour)
	futureAt := now.Add(time.Hour)

	expired := testOrder(models.OrderStatusPendingPreferred)
	expired.IsPaid = true
	preferredID := uuid.New()
	expired.PreferredWriterID = &preferredID
	expired.PreferredExpiresAt = &expiredAt

	pending := testOrder(models.OrderStatusPendingPreferred)
	pending.IsPaid = true
	pending.PreferredExpiresAt = &futureAt

	f := newAssignmentFixture(expired, pending)

	released, err := f.svc.ReleasePreferredOffers(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	freed := f.orders.orders[expired.ID]
	assert.Equal(t, models.OrderStatusAvailable, freed.Status)
	assert.Nil(t, freed.PreferredWriterID)
	assert.Nil(t, freed.PreferredExpiresAt)

	assert.Equal(t, models.OrderStatusPendingPreferred, f.orders.orders[pending.ID].Status)

	entries := f.logs.byOrder(expired.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, "preferred_offer_released", entries[0].Action)
	assert.True(t, entries[0].IsAutomatic)
}
