package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
)

type transactionRepository struct {
	store *Store
}

func (r *transactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	return r.store.run(ctx, "CreateTransaction", func(st *state) error {
		if _, ok := st.accounts[tx.AccountID]; !ok {
			return errors.ErrAccountNotFound
		}
		if tx.IdempotencyKey != nil {
			for _, existing := range st.transactions {
				if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *tx.IdempotencyKey {
					return errors.ErrDuplicateTransaction
				}
			}
		}
		cp := *tx
		st.transactions[tx.ID] = &cp
		return nil
	})
}

func (r *transactionRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.get(ctx, "GetTransaction", id)
}

// GetTransactionForUpdate needs no extra locking here: units of work are
// already serialized.
func (r *transactionRepository) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.get(ctx, "GetTransactionForUpdate", id)
}

func (r *transactionRepository) get(ctx context.Context, op string, id uuid.UUID) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.store.run(ctx, op, func(st *state) error {
		tx, ok := st.transactions[id]
		if !ok {
			return errors.ErrTransactionNotFound
		}
		cp := *tx
		out = &cp
		return nil
	})
	return out, err
}

func (r *transactionRepository) GetTransactionByIdempotencyKey(ctx context.Context, key uuid.UUID) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.store.run(ctx, "GetTransactionByIdempotencyKey", func(st *state) error {
		for _, tx := range st.transactions {
			if tx.IdempotencyKey != nil && *tx.IdempotencyKey == key {
				cp := *tx
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *transactionRepository) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	return r.list(ctx, "ListTransactions", func(tx *domain.Transaction) bool {
		return tx.AccountID == accountID
	})
}

func (r *transactionRepository) ListTransactionsInRange(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]*domain.Transaction, error) {
	return r.list(ctx, "ListTransactionsInRange", func(tx *domain.Transaction) bool {
		return tx.AccountID == accountID && !tx.Date.Before(start) && !tx.Date.After(end)
	})
}

func (r *transactionRepository) list(ctx context.Context, op string, match func(*domain.Transaction) bool) ([]*domain.Transaction, error) {
	out := make([]*domain.Transaction, 0)
	err := r.store.run(ctx, op, func(st *state) error {
		for _, tx := range st.transactions {
			if match(tx) {
				cp := *tx
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Date.After(out[j].Date)
	})
	return out, err
}

func (r *transactionRepository) UpdateTransaction(ctx context.Context, id uuid.UUID, update domain.TransactionUpdate) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.store.run(ctx, "UpdateTransaction", func(st *state) error {
		tx, ok := st.transactions[id]
		if !ok {
			return errors.ErrTransactionNotFound
		}
		tx.Apply(update)
		cp := *tx
		out = &cp
		return nil
	})
	return out, err
}

func (r *transactionRepository) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	return r.store.run(ctx, "DeleteTransaction", func(st *state) error {
		if _, ok := st.transactions[id]; !ok {
			return errors.ErrTransactionNotFound
		}
		delete(st.transactions, id)
		return nil
	})
}

func (r *transactionRepository) DeleteTransactionsForAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var deleted int64
	err := r.store.run(ctx, "DeleteTransactionsForAccount", func(st *state) error {
		for id, tx := range st.transactions {
			if tx.AccountID == accountID {
				delete(st.transactions, id)
				deleted++
			}
		}
		return nil
	})
	return deleted, err
}
