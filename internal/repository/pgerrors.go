package repository

import (
	"context"
	stderrors "errors"

	"github.com/lib/pq"

	"account-ledger/internal/errors"
)

const (
	pqUniqueViolation      = "23505"
	pqForeignKeyViolation  = "23503"
	pqCheckViolation       = "23514"
	pqInvalidTextRepr      = "22P02"
	pqNumericOutOfRange    = "22003"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"

	idempotencyKeyIndex = "idx_transactions_idempotency_key"
)

// classifyError maps driver errors onto the application taxonomy. Errors that
// are already AppErrors pass through untouched.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewStoreUnavailable(op, err)
	}

	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable:
			return errors.ErrConflict.WithDetails(pqErr.Message)
		case pqUniqueViolation:
			if pqErr.Constraint == idempotencyKeyIndex {
				return errors.ErrDuplicateTransaction
			}
			return errors.ErrConflict.WithDetails(pqErr.Message)
		case pqForeignKeyViolation:
			return errors.ErrAccountNotFound.WithDetails(pqErr.Message)
		case pqCheckViolation, pqInvalidTextRepr, pqNumericOutOfRange:
			return errors.NewValidationError(pqErr.Message)
		}
	}

	return errors.NewStoreUnavailable(op, err)
}
