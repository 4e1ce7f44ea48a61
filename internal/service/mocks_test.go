package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/StuffMaster78/acad-system-backend/internal/logger"
	"github.com/StuffMaster78/acad-system-backend/internal/models"
	"github.com/StuffMaster78/acad-system-backend/internal/repository"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	os.Exit(m.Run())
}

// fakeOrderStore — in-memory хранилище заказов. Мутации через *Tx методы
// записываются в карту, как это делает настоящий репозиторий в транзакции.
type fakeOrderStore struct {
	orders map[uuid.UUID]*models.Order
}

func newFakeOrderStore(orders ...*models.Order) *fakeOrderStore {
	s := &fakeOrderStore{orders: make(map[uuid.UUID]*models.Order)}
	for _, o := range orders {
		if o.ID == uuid.Nil {
			o.ID = uuid.New()
		}
		s.orders[o.ID] = o
	}
	return s
}

func (s *fakeOrderStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *fakeOrderStore) WithOrderLock(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context, tx *sqlx.Tx, order *models.Order) error) error {
	o, ok := s.orders[orderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	cp := *o
	return fn(ctx, nil, &cp)
}

func (s *fakeOrderStore) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
	s.orders[order.ID].Status = order.Status
	return nil
}

func (s *fakeOrderStore) UpdateWriterTx(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
	stored := s.orders[order.ID]
	stored.AssignedWriterID = order.AssignedWriterID
	stored.WriterCompensation = order.WriterCompensation
	return nil
}

func (s *fakeOrderStore) UpdateDeadlineTx(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
	s.orders[order.ID].DeadlineAt = order.DeadlineAt
	return nil
}

func (s *fakeOrderStore) UpdatePreferredTx(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
	stored := s.orders[order.ID]
	stored.PreferredWriterID = order.PreferredWriterID
	stored.PreferredExpiresAt = order.PreferredExpiresAt
	return nil
}

func (s *fakeOrderStore) ListPreferredExpired(ctx context.Context, now time.Time) ([]models.Order, error) {
	var result []models.Order
	for _, o := range s.orders {
		if o.Status == models.OrderStatusPendingPreferred &&
			o.PreferredExpiresAt != nil && o.PreferredExpiresAt.Before(now) {
			result = append(result, *o)
		}
	}
	return result, nil
}

// fakeLogStore копит записи журнала переходов.
type fakeLogStore struct {
	entries []models.TransitionLog
}

func (s *fakeLogStore) CreateTx(ctx context.Context, tx *sqlx.Tx, entry *models.TransitionLog) error {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *fakeLogStore) byOrder(orderID uuid.UUID) []models.TransitionLog {
	var result []models.TransitionLog
	for _, e := range s.entries {
		if e.OrderID == orderID {
			result = append(result, e)
		}
	}
	return result
}

// fakeGatedProvider отдаёт переопределение тенанта или дефолтный набор.
type fakeGatedProvider struct {
	overrides map[uuid.UUID][]string
}

func (p *fakeGatedProvider) PaymentGatedStatuses(ctx context.Context, websiteID uuid.UUID) ([]string, error) {
	if p.overrides != nil {
		if gated, ok := p.overrides[websiteID]; ok {
			return gated, nil
		}
	}
	return models.DefaultPaymentGatedStatuses, nil
}

// fakeUserStore — in-memory пользователи, профили и счётчики загрузки.
type fakeUserStore struct {
	users    map[uuid.UUID]*models.User
	profiles map[uuid.UUID]*models.WriterProfile
	active   map[uuid.UUID]int
	staff    []models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:    make(map[uuid.UUID]*models.User),
		profiles: make(map[uuid.UUID]*models.WriterProfile),
		active:   make(map[uuid.UUID]int),
	}
}

func (s *fakeUserStore) addWriter(level string, maxActive int) *models.User {
	u := &models.User{ID: uuid.New(), Role: models.RoleWriter, Username: "writer-" + uuid.NewString()[:8], IsActive: true}
	s.users[u.ID] = u
	s.profiles[u.ID] = &models.WriterProfile{UserID: u.ID, Level: level, MaxActiveOrders: maxActive}
	return u
}

func (s *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeUserStore) GetWriterProfile(ctx context.Context, userID uuid.UUID) (*models.WriterProfile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return nil, repository.ErrWriterProfileNotFound
	}
	return p, nil
}

func (s *fakeUserStore) GetWriterProfiles(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*models.WriterProfile, error) {
	result := make(map[uuid.UUID]*models.WriterProfile)
	for _, id := range userIDs {
		if p, ok := s.profiles[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (s *fakeUserStore) CountActiveAssignments(ctx context.Context, writerID uuid.UUID) (int, error) {
	return s.active[writerID], nil
}

func (s *fakeUserStore) ListStaff(ctx context.Context, websiteID uuid.UUID) ([]models.User, error) {
	return s.staff, nil
}

// fakeAssignmentStore — in-memory предложения, переназначения и заявки.
type fakeAssignmentStore struct {
	acceptances   map[uuid.UUID]*models.AssignmentAcceptance
	reassignments []models.ReassignmentLog
	requests      []models.WriterRequest
}

func newFakeAssignmentStore() *fakeAssignmentStore {
	return &fakeAssignmentStore{acceptances: make(map[uuid.UUID]*models.AssignmentAcceptance)}
}

func (s *fakeAssignmentStore) GetAcceptanceByOrder(ctx context.Context, orderID uuid.UUID) (*models.AssignmentAcceptance, error) {
	acc, ok := s.acceptances[orderID]
	if !ok {
		return nil, repository.ErrAcceptanceNotFound
	}
	cp := *acc
	return &cp, nil
}

func (s *fakeAssignmentStore) UpsertAcceptanceTx(ctx context.Context, tx *sqlx.Tx, acc *models.AssignmentAcceptance) error {
	acc.ID = uuid.New()
	acc.AssignedAt = time.Now()
	cp := *acc
	s.acceptances[acc.OrderID] = &cp
	return nil
}

func (s *fakeAssignmentStore) RejectPendingAcceptanceTx(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID, reason string) (uuid.UUID, error) {
	acc, ok := s.acceptances[orderID]
	if !ok || acc.Status != models.AcceptanceStatusPending {
		return uuid.Nil, nil
	}
	now := time.Now()
	acc.Status = models.AcceptanceStatusRejected
	acc.Reason = reason
	acc.RespondedAt = &now
	return acc.WriterID, nil
}

func (s *fakeAssignmentStore) RespondAcceptanceTx(ctx context.Context, tx *sqlx.Tx, orderID, writerID uuid.UUID, status, reason string) (*models.AssignmentAcceptance, error) {
	acc, ok := s.acceptances[orderID]
	if !ok || acc.Status != models.AcceptanceStatusPending || acc.WriterID != writerID {
		return nil, repository.ErrAcceptanceNotFound
	}
	now := time.Now()
	acc.Status = status
	acc.Reason = reason
	acc.RespondedAt = &now
	cp := *acc
	return &cp, nil
}

func (s *fakeAssignmentStore) CreateReassignmentLogTx(ctx context.Context, tx *sqlx.Tx, entry *models.ReassignmentLog) error {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	s.reassignments = append(s.reassignments, *entry)
	return nil
}

func (s *fakeAssignmentStore) ListReassignments(ctx context.Context, orderID uuid.UUID) ([]models.ReassignmentLog, error) {
	var result []models.ReassignmentLog
	for _, entry := range s.reassignments {
		if entry.OrderID == orderID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (s *fakeAssignmentStore) CreateRequest(ctx context.Context, req *models.WriterRequest) error {
	for i, existing := range s.requests {
		if existing.OrderID == req.OrderID && existing.WriterID == req.WriterID {
			s.requests[i].Message = req.Message
			return nil
		}
	}
	req.ID = uuid.New()
	req.CreatedAt = time.Now()
	s.requests = append(s.requests, *req)
	return nil
}

func (s *fakeAssignmentStore) ListRequestsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.WriterRequest, error) {
	var result []models.WriterRequest
	for _, req := range s.requests {
		if req.OrderID == orderID {
			result = append(result, req)
		}
	}
	return result, nil
}

func (s *fakeAssignmentStore) DeleteRequestsTx(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID) error {
	var kept []models.WriterRequest
	for _, req := range s.requests {
		if req.OrderID != orderID {
			kept = append(kept, req)
		}
	}
	s.requests = kept
	return nil
}

// fakeDisputeStore — in-memory споры.
type fakeDisputeStore struct {
	disputes map[uuid.UUID]*models.Dispute
}

func newFakeDisputeStore() *fakeDisputeStore {
	return &fakeDisputeStore{disputes: make(map[uuid.UUID]*models.Dispute)}
}

func (s *fakeDisputeStore) CreateTx(ctx context.Context, tx *sqlx.Tx, d *models.Dispute) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	cp := *d
	s.disputes[d.ID] = &cp
	return nil
}

func (s *fakeDisputeStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	d, ok := s.disputes[id]
	if !ok {
		return nil, repository.ErrDisputeNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *fakeDisputeStore) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Dispute, error) {
	return s.GetByID(ctx, id)
}

func (s *fakeDisputeStore) GetOpenByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	for _, d := range s.disputes {
		if d.OrderID == orderID && d.Status != models.DisputeStatusResolved {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrDisputeNotFound
}

func (s *fakeDisputeStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Dispute, error) {
	d, ok := s.disputes[id]
	if !ok {
		return nil, repository.ErrDisputeNotFound
	}
	d.Status = status
	cp := *d
	return &cp, nil
}

func (s *fakeDisputeStore) SetWriterResponded(ctx context.Context, id uuid.UUID) error {
	d, ok := s.disputes[id]
	if !ok {
		return repository.ErrDisputeNotFound
	}
	d.WriterResponded = true
	return nil
}

func (s *fakeDisputeStore) ResolveTx(ctx context.Context, tx *sqlx.Tx, d *models.Dispute) error {
	stored, ok := s.disputes[d.ID]
	if !ok {
		return repository.ErrDisputeNotFound
	}
	now := time.Now()
	stored.Status = models.DisputeStatusResolved
	stored.Outcome = d.Outcome
	stored.ResolutionNotes = d.ResolutionNotes
	stored.ExtendedDeadline = d.ExtendedDeadline
	stored.ResolvedBy = d.ResolvedBy
	stored.ResolvedAt = &now
	return nil
}

func (s *fakeDisputeStore) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Dispute, error) {
	var result []models.Dispute
	for _, d := range s.disputes {
		if d.OrderID == orderID {
			result = append(result, *d)
		}
	}
	return result, nil
}

// sentNotification — зафиксированная отправка уведомления.
type sentNotification struct {
	UserID uuid.UUID
	Event  string
}

// fakeNotifier записывает уведомления вместо доставки.
type fakeNotifier struct {
	sent []sentNotification
}

func (n *fakeNotifier) Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}, websiteID uuid.UUID) {
	n.sent = append(n.sent, sentNotification{UserID: userID, Event: event})
}

func (n *fakeNotifier) eventsFor(userID uuid.UUID) []string {
	var events []string
	for _, s := range n.sent {
		if s.UserID == userID {
			events = append(events, s.Event)
		}
	}
	return events
}

func staffUser() *models.User {
	return &models.User{ID: uuid.New(), Role: models.RoleAdmin, Username: "admin", IsActive: true}
}

func clientUser() *models.User {
	return &models.User{ID: uuid.New(), Role: models.RoleClient, Username: "client", IsActive: true}
}
