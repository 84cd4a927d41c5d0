package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	AccountNotFound      ErrorCode = "account_not_found"
	TransactionNotFound  ErrorCode = "transaction_not_found"
	ValidationFailed     ErrorCode = "validation_error"
	InvalidInput         ErrorCode = "invalid_input"
	Forbidden            ErrorCode = "forbidden"
	Conflict             ErrorCode = "conflict"
	DuplicateTransaction ErrorCode = "duplicate_transaction"
	StoreUnavailable     ErrorCode = "store_unavailable"
	InternalError        ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on code so wrapped or detailed copies compare equal to the sentinels.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !stderrors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy so the shared sentinels are never mutated.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case AccountNotFound, TransactionNotFound:
		return http.StatusNotFound
	case ValidationFailed, InvalidInput:
		return http.StatusBadRequest
	case Forbidden:
		return http.StatusForbidden
	case Conflict, DuplicateTransaction:
		return http.StatusConflict
	case StoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors for common cases
var (
	ErrAccountNotFound      = NewAppError(AccountNotFound, "account not found")
	ErrTransactionNotFound  = NewAppError(TransactionNotFound, "transaction not found")
	ErrInvalidAmount        = NewAppError(ValidationFailed, "amount must be a non-negative decimal")
	ErrInvalidType          = NewAppError(ValidationFailed, "invalid transaction type")
	ErrInvalidCategory      = NewAppError(ValidationFailed, "invalid category")
	ErrInvalidAccountKind   = NewAppError(ValidationFailed, "invalid account kind")
	ErrInvalidAccountID     = NewAppError(InvalidInput, "invalid account id")
	ErrInvalidTransactionID = NewAppError(InvalidInput, "invalid transaction id")
	ErrForbidden            = NewAppError(Forbidden, "account does not belong to caller")
	ErrConflict             = NewAppError(Conflict, "concurrent modification detected, retry the operation")
	ErrDuplicateTransaction = NewAppError(DuplicateTransaction, "transaction already recorded for idempotency key")
	ErrStoreUnavailable     = NewAppError(StoreUnavailable, "store unavailable")
)

func NewValidationError(message string) *AppError {
	return NewAppError(ValidationFailed, message)
}

func NewStoreUnavailable(op string, err error) *AppError {
	return NewAppErrorf(StoreUnavailable, "store unavailable: %s", op).WithDetails(err.Error())
}

// FromError converts any error into an AppError, defaulting to internal_error.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewAppError(InternalError, "an unexpected error occurred").WithDetails(err.Error())
}

func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrAccountNotFound) || stderrors.Is(err, ErrTransactionNotFound)
}

func IsConflict(err error) bool {
	return stderrors.Is(err, ErrConflict)
}
