package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StuffMaster78/acad-system-backend/internal/models"
	"github.com/StuffMaster78/acad-system-backend/internal/repository"
)

type fakeNotificationRepo struct {
	items map[uuid.UUID]*models.Notification
	order []uuid.UUID
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{items: make(map[uuid.UUID]*models.Notification)}
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	n.ID = uuid.New()
	r.items[n.ID] = n
	r.order = append(r.order, n.ID)
	return nil
}

func (r *fakeNotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	n, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotificationNotFound
	}
	return n, nil
}

func (r *fakeNotificationRepo) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	var result []models.Notification
	for _, id := range r.order {
		n := r.items[id]
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		result = append(result, *n)
	}
	return result, nil
}

func (r *fakeNotificationRepo) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	n, ok := r.items[id]
	if !ok {
		return repository.ErrNotificationNotFound
	}
	n.IsRead = true
	return nil
}

func (r *fakeNotificationRepo) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	for _, n := range r.items {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	count := 0
	for _, n := range r.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// fakeHub фиксирует push-доставки и умеет имитировать сбой.
type fakeHub struct {
	pushed []string
	err    error
}

func (h *fakeHub) BroadcastToUser(userID uuid.UUID, event string, data interface{}) error {
	if h.err != nil {
		return h.err
	}
	h.pushed = append(h.pushed, event)
	return nil
}

func TestNotify_PersistsAndPushes(t *testing.T) {
	repo := newFakeNotificationRepo()
	hub := &fakeHub{}
	svc := NewNotificationService(repo)
	svc.SetHub(hub)

	userID := uuid.New()
	svc.Notify(context.Background(), userID, models.EventOrderAssigned, map[string]any{"order_id": uuid.New()}, uuid.New())

	list, err := svc.ListNotifications(context.Background(), userID, 20, 0, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Contains(t, string(list[0].Payload), models.EventOrderAssigned)
	assert.Equal(t, []string{models.EventOrderAssigned}, hub.pushed)
}

func TestNotify_HubFailureStillPersists(t *testing.T) {
	repo := newFakeNotificationRepo()
	hub := &fakeHub{err: errors.New("клиент отключился")}
	svc := NewNotificationService(repo)
	svc.SetHub(hub)

	userID := uuid.New()
	svc.Notify(context.Background(), userID, models.EventDisputeRaised, nil, uuid.New())

	count, err := svc.CountUnread(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNotify_NilUserSkipped(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo)

	svc.Notify(context.Background(), uuid.Nil, models.EventOrderAssigned, nil, uuid.New())
	assert.Empty(t, repo.items)
}

func TestMarkAsRead_OwnershipEnforced(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo)

	owner := uuid.New()
	svc.Notify(context.Background(), owner, models.EventOrderAssigned, nil, uuid.New())
	list, err := svc.ListNotifications(context.Background(), owner, 20, 0, true)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// Чужое уведомление прочитать нельзя.
	assert.Error(t, svc.MarkAsRead(context.Background(), list[0].ID, uuid.New()))
	require.NoError(t, svc.MarkAsRead(context.Background(), list[0].ID, owner))

	unread, err := svc.ListNotifications(context.Background(), owner, 20, 0, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestMarkAllAsRead(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo)

	userID := uuid.New()
	svc.Notify(context.Background(), userID, models.EventOrderAssigned, nil, uuid.New())
	svc.Notify(context.Background(), userID, models.EventOrderStatusChanged, nil, uuid.New())

	require.NoError(t, svc.MarkAllAsRead(context.Background(), userID))
	count, err := svc.CountUnread(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
