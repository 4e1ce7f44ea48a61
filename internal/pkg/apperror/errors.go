package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest        ErrorCode = "BAD_REQUEST"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeAlreadyInStatus   ErrorCode = "ALREADY_IN_STATUS"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodePaymentRequired   ErrorCode = "PAYMENT_REQUIRED"
	ErrCodeAlreadyAssigned   ErrorCode = "ALREADY_ASSIGNED"
	ErrCodeNotAssigned       ErrorCode = "NOT_ASSIGNED"
	ErrCodeWorkloadExceeded  ErrorCode = "WORKLOAD_EXCEEDED"
	ErrCodeDisputeResolved   ErrorCode = "DISPUTE_RESOLVED"
	ErrCodeUnknownOutcome    ErrorCode = "UNKNOWN_OUTCOME"
	ErrCodeMissingDeadline   ErrorCode = "MISSING_DEADLINE"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeMissingDeadline, ErrCodeUnknownOutcome:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeAlreadyInStatus, ErrCodeInvalidTransition,
		ErrCodeAlreadyAssigned, ErrCodeNotAssigned, ErrCodeWorkloadExceeded,
		ErrCodeDisputeResolved:
		return http.StatusConflict
	case ErrCodePaymentRequired:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// Is проверяет, что ошибка является AppError с заданным кодом.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool  { return Is(err, ErrCodeNotFound) }
func IsForbidden(err error) bool { return Is(err, ErrCodeForbidden) }

// Конструкторы ошибок ядра переходов и назначения. Сообщения пригодны
// для показа пользователю.

// NewAlreadyInStatus — заказ уже находится в запрошенном статусе.
func NewAlreadyInStatus(status string) *AppError {
	return New(ErrCodeAlreadyInStatus, fmt.Sprintf("заказ уже находится в статусе %q", status))
}

// NewInvalidTransition — переход не разрешён таблицей переходов.
func NewInvalidTransition(from, to string) *AppError {
	return New(ErrCodeInvalidTransition, fmt.Sprintf("переход из статуса %q в %q не разрешён", from, to))
}

// NewPaymentRequired — целевой статус требует оплаченного заказа.
func NewPaymentRequired(target string) *AppError {
	return New(ErrCodePaymentRequired, fmt.Sprintf("статус %q доступен только для оплаченного заказа", target))
}

// NewWorkloadExceeded — у писателя исчерпан лимит активных заказов.
func NewWorkloadExceeded(writerID fmt.Stringer, active, limit int) *AppError {
	return New(ErrCodeWorkloadExceeded,
		fmt.Sprintf("у писателя %s уже %d активных заказов при лимите %d", writerID, active, limit))
}

var (
	ErrOrderNotFound   = New(ErrCodeNotFound, "заказ не найден")
	ErrWriterNotFound  = New(ErrCodeNotFound, "писатель не найден")
	ErrDisputeNotFound = New(ErrCodeNotFound, "спор не найден")
	ErrUserNotFound    = New(ErrCodeNotFound, "пользователь не найден")
	ErrUnauthorized    = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden       = New(ErrCodeForbidden, "недостаточно прав")

	ErrAlreadyAssigned = New(ErrCodeAlreadyAssigned, "на заказ уже назначен писатель")
	ErrNotAssigned     = New(ErrCodeNotAssigned, "на заказ не назначен писатель")

	ErrDisputeAlreadyResolved = New(ErrCodeDisputeResolved, "спор уже разрешён")
	ErrUnknownOutcome         = New(ErrCodeUnknownOutcome, "неизвестный исход спора")
	ErrMissingDeadline        = New(ErrCodeMissingDeadline, "для продления требуется новый дедлайн")
)
