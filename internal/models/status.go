package models

// Статусы заказа. Набор фиксирован: валидатор отклоняет любой переход
// в статус, которого нет в таблице.
const (
	OrderStatusUnpaid                  = "unpaid"
	OrderStatusPending                 = "pending"
	OrderStatusPaid                    = "paid"
	OrderStatusAvailable               = "available"
	OrderStatusPendingPreferred        = "pending_preferred"
	OrderStatusPendingWriterAssignment = "pending_writer_assignment"
	OrderStatusInProgress              = "in_progress"
	OrderStatusOnHold                  = "on_hold"
	OrderStatusReassigned              = "reassigned"
	OrderStatusSubmitted               = "submitted"
	OrderStatusReviewed                = "reviewed"
	OrderStatusRated                   = "rated"
	OrderStatusRevisionRequested       = "revision_requested"
	OrderStatusRevisionInProgress      = "revision_in_progress"
	OrderStatusRevised                 = "revised"
	OrderStatusUnderEditing            = "under_editing"
	OrderStatusDisputed                = "disputed"
	OrderStatusApproved                = "approved"
	OrderStatusCompleted               = "completed"
	OrderStatusClosed                  = "closed"
	OrderStatusCancelled               = "cancelled"
	OrderStatusArchived                = "archived"
)

// StatusTransitions — таблица допустимых переходов: статус -> множество
// следующих статусов. Чистые данные без поведения, чтобы таблицу можно
// было проверять исчерпывающе. Из каждого статуса достижим терминальный.
var StatusTransitions = map[string][]string{
	OrderStatusUnpaid:    {OrderStatusPending, OrderStatusPaid, OrderStatusAvailable, OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusPending:   {OrderStatusPaid, OrderStatusAvailable, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusAvailable, OrderStatusPendingPreferred, OrderStatusPendingWriterAssignment, OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusAvailable: {OrderStatusPendingWriterAssignment, OrderStatusPendingPreferred, OrderStatusInProgress, OrderStatusOnHold, OrderStatusCancelled},

	OrderStatusPendingPreferred:        {OrderStatusAvailable, OrderStatusPendingWriterAssignment, OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusPendingWriterAssignment: {OrderStatusInProgress, OrderStatusAvailable, OrderStatusReassigned, OrderStatusCancelled},

	OrderStatusInProgress: {OrderStatusSubmitted, OrderStatusOnHold, OrderStatusReassigned, OrderStatusDisputed, OrderStatusAvailable, OrderStatusCancelled},
	OrderStatusOnHold:     {OrderStatusInProgress, OrderStatusAvailable, OrderStatusDisputed, OrderStatusCancelled},
	OrderStatusReassigned: {OrderStatusInProgress, OrderStatusAvailable, OrderStatusDisputed, OrderStatusCancelled},

	OrderStatusSubmitted: {OrderStatusReviewed, OrderStatusUnderEditing, OrderStatusRevisionRequested, OrderStatusApproved, OrderStatusDisputed, OrderStatusCancelled},
	OrderStatusReviewed:  {OrderStatusRated, OrderStatusApproved, OrderStatusRevisionRequested, OrderStatusDisputed, OrderStatusCompleted},
	OrderStatusRated:     {OrderStatusApproved, OrderStatusCompleted, OrderStatusClosed},

	OrderStatusRevisionRequested:  {OrderStatusRevisionInProgress, OrderStatusReassigned, OrderStatusDisputed, OrderStatusCancelled},
	OrderStatusRevisionInProgress: {OrderStatusRevised, OrderStatusOnHold, OrderStatusDisputed, OrderStatusCancelled},
	OrderStatusRevised:            {OrderStatusReviewed, OrderStatusUnderEditing, OrderStatusApproved, OrderStatusRevisionRequested, OrderStatusDisputed},
	OrderStatusUnderEditing:       {OrderStatusApproved, OrderStatusRevisionRequested, OrderStatusDisputed},

	OrderStatusDisputed: {OrderStatusAvailable, OrderStatusRevisionRequested, OrderStatusClosed, OrderStatusCancelled},
	OrderStatusApproved: {OrderStatusCompleted, OrderStatusRated},

	OrderStatusCompleted: {OrderStatusClosed, OrderStatusArchived},
	OrderStatusClosed:    {OrderStatusArchived},
	OrderStatusCancelled: {OrderStatusArchived},
	OrderStatusArchived:  {},
}

// DefaultPaymentGatedStatuses — статусы, в которые неоплаченный заказ
// не переводится без явного override. Тенант может переопределить набор.
var DefaultPaymentGatedStatuses = []string{
	OrderStatusAvailable,
	OrderStatusPendingPreferred,
	OrderStatusPendingWriterAssignment,
	OrderStatusInProgress,
}

// TerminalOrderStatuses — статусы, после которых заказ считается
// завершённым: новые споры и назначения по нему не открываются.
var TerminalOrderStatuses = []string{
	OrderStatusCompleted,
	OrderStatusClosed,
	OrderStatusCancelled,
	OrderStatusArchived,
}

// AssignedOrderStatuses — статусы, в которых заказ занимает слот
// загрузки назначенного писателя.
var AssignedOrderStatuses = []string{
	OrderStatusPendingWriterAssignment,
	OrderStatusInProgress,
	OrderStatusOnHold,
	OrderStatusReassigned,
	OrderStatusSubmitted,
	OrderStatusRevisionRequested,
	OrderStatusRevisionInProgress,
	OrderStatusRevised,
	OrderStatusUnderEditing,
	OrderStatusDisputed,
}

// IsKnownStatus сообщает, входит ли статус в таблицу переходов.
func IsKnownStatus(status string) bool {
	_, ok := StatusTransitions[status]
	return ok
}

// IsTerminalStatus сообщает, является ли статус завершающим.
func IsTerminalStatus(status string) bool {
	for _, s := range TerminalOrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// NextStatuses возвращает допустимые следующие статусы по таблице.
func NextStatuses(status string) []string {
	return StatusTransitions[status]
}
