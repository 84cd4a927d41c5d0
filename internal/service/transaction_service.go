package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
	"account-ledger/internal/lock"
	"account-ledger/pkg/logger"
)

// Bounds used for the open side of a one-sided date range. Both fit in a
// Postgres timestamptz.
var (
	earliestDate = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	latestDate   = time.Date(9999, time.December, 31, 23, 59, 59, 999999000, time.UTC)
)

// TransactionService keeps account balances reconciled with the journal. Every
// mutation that changes an amount or a type computes one delta and applies it
// in the same unit of work as the journal write, under the account's lock.
type TransactionService struct {
	store   domain.Store
	locker  lock.Locker
	retrier *Retrier
	logger  *slog.Logger
}

func NewTransactionService(
	store domain.Store,
	locker lock.Locker,
	retrier *Retrier,
	logger *slog.Logger,
) *TransactionService {
	return &TransactionService{
		store:   store,
		locker:  locker,
		retrier: retrier,
		logger:  logger,
	}
}

type CreateTransactionRequest struct {
	AccountID   uuid.UUID
	Type        domain.TransactionType
	Amount      decimal.Decimal
	Category    domain.Category
	Description string
	// Date defaults to now when zero.
	Date time.Time
	// IdempotencyKey makes the call safe to repeat: a replay returns the
	// transaction recorded by the first call and leaves the balance alone.
	IdempotencyKey *uuid.UUID
}

func (s *TransactionService) CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*domain.Transaction, error) {
	log := logger.FromContext(ctx, s.logger)
	log.Info("Creating transaction",
		"account_id", req.AccountID,
		"type", req.Type,
		"amount", req.Amount,
		"idempotency_key", req.IdempotencyKey)

	tx, err := domain.NewTransaction(req.AccountID, req.Type, req.Amount, req.Category, req.Description, req.Date)
	if err != nil {
		return nil, err
	}
	tx.IdempotencyKey = req.IdempotencyKey

	if req.IdempotencyKey != nil {
		existing, err := s.replay(ctx, req)
		if err != nil || existing != nil {
			return existing, err
		}
	}

	err = withAccountLock(ctx, s.retrier, s.locker, req.AccountID, "create transaction", func(ctx context.Context) error {
		return s.store.WithTransaction(ctx, func(st domain.Store) error {
			if _, err := st.Accounts().GetAccount(ctx, req.AccountID); err != nil {
				return err
			}
			if err := st.Transactions().CreateTransaction(ctx, tx); err != nil {
				return err
			}
			_, err := st.Accounts().ApplyBalanceDelta(ctx, req.AccountID, tx.Delta())
			return err
		})
	})

	if stderrors.Is(err, errors.ErrDuplicateTransaction) && req.IdempotencyKey != nil {
		// Lost a race with a concurrent call carrying the same key.
		existing, replayErr := s.replay(ctx, req)
		if replayErr != nil {
			return nil, replayErr
		}
		if existing != nil {
			return existing, nil
		}
	}
	if err != nil {
		log.Error("Create transaction failed", "account_id", req.AccountID, "error", err)
		return nil, err
	}

	log.Info("Transaction created", "transaction_id", tx.ID, "account_id", tx.AccountID, "delta", tx.Delta())
	return tx, nil
}

// replay returns the transaction already recorded under the request's
// idempotency key, or nil when there is none.
func (s *TransactionService) replay(ctx context.Context, req *CreateTransactionRequest) (*domain.Transaction, error) {
	existing, err := s.store.Transactions().GetTransactionByIdempotencyKey(ctx, *req.IdempotencyKey)
	if err != nil || existing == nil {
		return nil, err
	}
	if existing.AccountID != req.AccountID {
		return nil, errors.ErrDuplicateTransaction.WithDetails("idempotency key was used for another account")
	}

	logger.FromContext(ctx, s.logger).Info("Returning existing transaction for idempotency key",
		"idempotency_key", *req.IdempotencyKey,
		"transaction_id", existing.ID)
	return existing, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return s.store.Transactions().GetTransaction(ctx, id)
}

// ListTransactions returns the account's transactions, newest first. With a
// nil bound the range is open on that side.
func (s *TransactionService) ListTransactions(ctx context.Context, accountID uuid.UUID, start, end *time.Time) ([]*domain.Transaction, error) {
	if _, err := s.store.Accounts().GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	if start == nil && end == nil {
		return s.store.Transactions().ListTransactions(ctx, accountID)
	}

	from, to := earliestDate, latestDate
	if start != nil {
		from = *start
	}
	if end != nil {
		to = *end
	}
	if from.After(to) {
		return nil, errors.NewValidationError("start date must not be after end date")
	}
	return s.store.Transactions().ListTransactionsInRange(ctx, accountID, from, to)
}

func (s *TransactionService) UpdateTransaction(ctx context.Context, id uuid.UUID, update domain.TransactionUpdate) (*domain.Transaction, error) {
	log := logger.FromContext(ctx, s.logger)
	log.Info("Updating transaction", "transaction_id", id, "affects_balance", update.AffectsBalance())

	if err := update.Validate(); err != nil {
		return nil, err
	}

	// account_id never changes, so this unlocked read is enough to pick the lock.
	current, err := s.store.Transactions().GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	var updated *domain.Transaction
	err = withAccountLock(ctx, s.retrier, s.locker, current.AccountID, "update transaction", func(ctx context.Context) error {
		return s.store.WithTransaction(ctx, func(st domain.Store) error {
			existing, err := st.Transactions().GetTransactionForUpdate(ctx, id)
			if err != nil {
				return err
			}

			if update.AffectsBalance() {
				if _, err := st.Accounts().GetAccount(ctx, existing.AccountID); err != nil {
					return err
				}

				next := *existing
				next.Apply(update)
				delta := next.Delta().Sub(existing.Delta())
				if !delta.IsZero() {
					if _, err := st.Accounts().ApplyBalanceDelta(ctx, existing.AccountID, delta); err != nil {
						return err
					}
				}
				log.Debug("Reconciled transaction update",
					"transaction_id", id,
					"old_delta", existing.Delta(),
					"new_delta", next.Delta())
			}

			updated, err = st.Transactions().UpdateTransaction(ctx, id, update)
			return err
		})
	})
	if err != nil {
		log.Error("Update transaction failed", "transaction_id", id, "error", err)
		return nil, err
	}

	log.Info("Transaction updated", "transaction_id", id)
	return updated, nil
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx, s.logger)
	log.Info("Deleting transaction", "transaction_id", id)

	current, err := s.store.Transactions().GetTransaction(ctx, id)
	if err != nil {
		return err
	}

	err = withAccountLock(ctx, s.retrier, s.locker, current.AccountID, "delete transaction", func(ctx context.Context) error {
		return s.store.WithTransaction(ctx, func(st domain.Store) error {
			existing, err := st.Transactions().GetTransactionForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if _, err := st.Accounts().GetAccount(ctx, existing.AccountID); err != nil {
				return err
			}
			if _, err := st.Accounts().ApplyBalanceDelta(ctx, existing.AccountID, existing.Delta().Neg()); err != nil {
				return err
			}
			return st.Transactions().DeleteTransaction(ctx, id)
		})
	})
	if err != nil {
		log.Error("Delete transaction failed", "transaction_id", id, "error", err)
		return err
	}

	log.Info("Transaction deleted", "transaction_id", id, "account_id", current.AccountID)
	return nil
}
