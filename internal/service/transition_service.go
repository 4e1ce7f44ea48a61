package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/StuffMaster78/acad-system-backend/internal/logger"
	"github.com/StuffMaster78/acad-system-backend/internal/models"
	"github.com/StuffMaster78/acad-system-backend/internal/pkg/apperror"
)

// OrderStore описывает взаимодействие сервисов ядра с хранилищем заказов.
// WithOrderLock — единственный способ изменить статус: он удерживает
// эксклюзивную блокировку строки заказа на время чтения-проверки-записи.
type OrderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	WithOrderLock(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context, tx *sqlx.Tx, order *models.Order) error) error
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, order *models.Order) error
	UpdateWriterTx(ctx context.Context, tx *sqlx.Tx, order *models.Order) error
	UpdateDeadlineTx(ctx context.Context, tx *sqlx.Tx, order *models.Order) error
	UpdatePreferredTx(ctx context.Context, tx *sqlx.Tx, order *models.Order) error
	ListPreferredExpired(ctx context.Context, now time.Time) ([]models.Order, error)
}

// TransitionLogStore пишет журнал переходов.
type TransitionLogStore interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, entry *models.TransitionLog) error
}

// GatedStatusProvider возвращает набор статусов, закрытых для
// неоплаченных заказов тенанта.
type GatedStatusProvider interface {
	PaymentGatedStatuses(ctx context.Context, websiteID uuid.UUID) ([]string, error)
}

// TransitionHook — слушатель перехода. Before-хук может вернуть ошибку
// и отменить переход целиком (мутаций к этому моменту ещё не было).
// Ошибка after-хука логируется и не откатывает уже зафиксированный переход.
type TransitionHook func(ctx context.Context, order *models.Order, actor *models.User, metadata map[string]any) error

// TransitionRule — дополнительное бизнес-правило для конкретной пары
// статусов, проверяемое валидатором после таблицы переходов.
type TransitionRule func(order *models.Order, actor *models.User) error

type statusPair struct {
	from string
	to   string
}

// TransitionInput описывает запрос на смену статуса заказа.
type TransitionInput struct {
	TargetStatus     string
	Actor            *models.User
	Reason           string
	Action           string
	IsAutomatic      bool
	Metadata         map[string]any
	SkipPaymentCheck bool
}

// TransitionService — валидатор и исполнитель переходов статуса заказа.
// Хранит реестры хуков и правил; конструируется один раз при старте
// процесса и передаётся всем вызывающим — глобального состояния нет.
type TransitionService struct {
	orders   OrderStore
	logs     TransitionLogStore
	websites GatedStatusProvider

	mu          sync.RWMutex
	beforeHooks map[statusPair][]TransitionHook
	afterHooks  map[statusPair][]TransitionHook
	rules       map[statusPair][]TransitionRule
}

// NewTransitionService создаёт сервис переходов и регистрирует
// дефолтные правила.
func NewTransitionService(orders OrderStore, logs TransitionLogStore, websites GatedStatusProvider) *TransitionService {
	s := &TransitionService{
		orders:      orders,
		logs:        logs,
		websites:    websites,
		beforeHooks: make(map[statusPair][]TransitionHook),
		afterHooks:  make(map[statusPair][]TransitionHook),
		rules:       make(map[statusPair][]TransitionRule),
	}
	s.registerDefaultRules()
	return s
}

// registerDefaultRules регистрирует встроенные правила: отменить
// оплаченный заказ может только администратор или поддержка.
func (s *TransitionService) registerDefaultRules() {
	paidCancelRule := func(order *models.Order, actor *models.User) error {
		if order.IsPaid && (actor == nil || !actor.IsStaff()) {
			return apperror.New(apperror.ErrCodeForbidden, "отменить оплаченный заказ может только администратор")
		}
		return nil
	}
	for from, next := range models.StatusTransitions {
		for _, to := range next {
			if to == models.OrderStatusCancelled {
				s.RegisterRule(from, to, paidCancelRule)
			}
		}
	}
}

// RegisterBeforeHook добавляет слушателя, вызываемого до мутации.
// Хуки одной пары вызываются в порядке регистрации.
func (s *TransitionService) RegisterBeforeHook(from, to string, hook TransitionHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := statusPair{from, to}
	s.beforeHooks[key] = append(s.beforeHooks[key], hook)
}

// RegisterAfterHook добавляет слушателя, вызываемого после фиксации перехода.
func (s *TransitionService) RegisterAfterHook(from, to string, hook TransitionHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := statusPair{from, to}
	s.afterHooks[key] = append(s.afterHooks[key], hook)
}

// RegisterRule добавляет бизнес-правило для пары статусов.
func (s *TransitionService) RegisterRule(from, to string, rule TransitionRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := statusPair{from, to}
	s.rules[key] = append(s.rules[key], rule)
}

// Validate проверяет переход без каких-либо побочных эффектов.
func (s *TransitionService) Validate(ctx context.Context, order *models.Order, target string, actor *models.User, skipPaymentCheck bool) error {
	if order.Status == target {
		return apperror.NewAlreadyInStatus(target)
	}

	allowed := false
	for _, next := range models.StatusTransitions[order.Status] {
		if next == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return apperror.NewInvalidTransition(order.Status, target)
	}

	if !skipPaymentCheck && !order.IsPaid && s.isPaymentGated(ctx, order.WebsiteID, target) {
		return apperror.NewPaymentRequired(target)
	}

	s.mu.RLock()
	rules := s.rules[statusPair{order.Status, target}]
	s.mu.RUnlock()
	for _, rule := range rules {
		if err := rule(order, actor); err != nil {
			return err
		}
	}

	return nil
}

// isPaymentGated проверяет, закрыт ли целевой статус для неоплаченного
// заказа. При недоступности настроек тенанта используется дефолтный набор.
func (s *TransitionService) isPaymentGated(ctx context.Context, websiteID uuid.UUID, target string) bool {
	gated := models.DefaultPaymentGatedStatuses
	if s.websites != nil {
		if override, err := s.websites.PaymentGatedStatuses(ctx, websiteID); err == nil {
			gated = override
		} else {
			logger.Log.WithError(err).WithField("website_id", websiteID).
				Warn("transition: не удалось получить настройки оплаты тенанта, используется дефолт")
		}
	}
	for _, status := range gated {
		if status == target {
			return true
		}
	}
	return false
}

// CanTransition сообщает, пройдёт ли переход валидацию.
func (s *TransitionService) CanTransition(ctx context.Context, order *models.Order, target string) bool {
	return s.Validate(ctx, order, target, nil, false) == nil
}

// AvailableTransitions возвращает статусы, в которые заказ может перейти
// из текущего с учётом оплаты и правил для данного актора.
func (s *TransitionService) AvailableTransitions(ctx context.Context, order *models.Order, actor *models.User) []string {
	var available []string
	for _, target := range models.NextStatuses(order.Status) {
		if s.Validate(ctx, order, target, actor, false) == nil {
			available = append(available, target)
		}
	}
	return available
}

// Transition применяет переход: валидация, before-хуки, атомарная смена
// статуса вместе с записью журнала, after-хуки. Возвращает обновлённый заказ.
func (s *TransitionService) Transition(ctx context.Context, orderID uuid.UUID, in TransitionInput) (*models.Order, error) {
	var (
		updated *models.Order
		after   func()
	)
	err := s.orders.WithOrderLock(ctx, orderID, func(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
		var err error
		after, err = s.TransitionTx(ctx, tx, order, in)
		if err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	// After-хуки выполняются после снятия блокировки: их ошибки переход
	// уже не откатывают.
	if after != nil {
		after()
	}
	return updated, nil
}

// TransitionTx применяет переход внутри уже открытой транзакции с
// удерживаемой блокировкой строки заказа. Составные операции (назначение,
// разрешение спора) используют его, чтобы их собственные мутации и переход
// остались одной атомарной единицей. Возвращает замыкание after-хуков,
// которое вызывающий обязан выполнить после фиксации транзакции.
func (s *TransitionService) TransitionTx(ctx context.Context, tx *sqlx.Tx, order *models.Order, in TransitionInput) (func(), error) {
	if err := s.Validate(ctx, order, in.TargetStatus, in.Actor, in.SkipPaymentCheck); err != nil {
		return nil, err
	}

	oldStatus := order.Status
	pair := statusPair{oldStatus, in.TargetStatus}

	s.mu.RLock()
	before := append([]TransitionHook(nil), s.beforeHooks[pair]...)
	afterHooks := append([]TransitionHook(nil), s.afterHooks[pair]...)
	s.mu.RUnlock()

	// Before-хук вправе отменить переход: ни одной мутации ещё не было.
	for _, hook := range before {
		if err := hook(ctx, order, in.Actor, in.Metadata); err != nil {
			return nil, err
		}
	}

	order.Status = in.TargetStatus
	if err := s.orders.UpdateStatusTx(ctx, tx, order); err != nil {
		return nil, err
	}

	entry := &models.TransitionLog{
		OrderID:     order.ID,
		OldStatus:   oldStatus,
		NewStatus:   in.TargetStatus,
		Reason:      in.Reason,
		Action:      in.Action,
		IsAutomatic: in.IsAutomatic,
		Metadata:    marshalMetadata(in.Metadata),
	}
	if in.Actor != nil {
		actorID := in.Actor.ID
		entry.ActorID = &actorID
	}
	if err := s.logs.CreateTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	orderCopy := *order
	after := func() {
		for _, hook := range afterHooks {
			if err := hook(ctx, &orderCopy, in.Actor, in.Metadata); err != nil {
				logger.Log.WithError(err).WithFields(logrus.Fields{
					"order_id":   orderCopy.ID,
					"old_status": oldStatus,
					"new_status": orderCopy.Status,
				}).Error("transition: after-хук завершился с ошибкой")
			}
		}
	}
	return after, nil
}

// marshalMetadata сериализует метаданные перехода для журнала.
func marshalMetadata(metadata map[string]any) json.RawMessage {
	if len(metadata) == 0 {
		return nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		logger.Log.WithError(err).Warn("transition: не удалось сериализовать метаданные")
		return nil
	}
	return raw
}
