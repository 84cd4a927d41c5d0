package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
)

type accountRepository struct {
	store *Store
}

func (r *accountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	return r.store.run(ctx, "CreateAccount", func(st *state) error {
		if _, exists := st.accounts[account.ID]; exists {
			return errors.ErrConflict.WithDetails("account id already exists")
		}
		cp := *account
		st.accounts[account.ID] = &cp
		return nil
	})
}

func (r *accountRepository) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return r.get(ctx, "GetAccount", id)
}

// GetAccountForUpdate needs no row lock here: units of work are already
// serialized.
func (r *accountRepository) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return r.get(ctx, "GetAccountForUpdate", id)
}

func (r *accountRepository) get(ctx context.Context, op string, id uuid.UUID) (*domain.Account, error) {
	var out *domain.Account
	err := r.store.run(ctx, op, func(st *state) error {
		account, ok := st.accounts[id]
		if !ok {
			return errors.ErrAccountNotFound
		}
		cp := *account
		out = &cp
		return nil
	})
	return out, err
}

func (r *accountRepository) ListAccountsByOwner(ctx context.Context, ownerID string) ([]*domain.Account, error) {
	out := make([]*domain.Account, 0)
	err := r.store.run(ctx, "ListAccountsByOwner", func(st *state) error {
		for _, account := range st.accounts {
			if account.OwnerID == ownerID {
				cp := *account
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

func (r *accountRepository) UpdateAccount(ctx context.Context, id uuid.UUID, update domain.AccountUpdate) (*domain.Account, error) {
	return r.mutate(ctx, "UpdateAccount", id, func(a *domain.Account) {
		if update.Name != nil {
			a.Name = *update.Name
		}
		if update.Kind != nil {
			a.Kind = *update.Kind
		}
		a.UpdatedAt = time.Now().UTC()
	})
}

func (r *accountRepository) ApplyBalanceDelta(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (*domain.Account, error) {
	return r.mutate(ctx, "ApplyBalanceDelta", id, func(a *domain.Account) {
		a.ApplyDelta(delta)
	})
}

func (r *accountRepository) RebaseBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (*domain.Account, error) {
	return r.mutate(ctx, "RebaseBalance", id, func(a *domain.Account) {
		a.Rebase(delta)
	})
}

func (r *accountRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return r.store.run(ctx, "DeleteAccount", func(st *state) error {
		if _, ok := st.accounts[id]; !ok {
			return errors.ErrAccountNotFound
		}
		for _, tx := range st.transactions {
			if tx.AccountID == id {
				return errors.ErrConflict.WithDetails("account still has transactions")
			}
		}
		delete(st.accounts, id)
		return nil
	})
}

func (r *accountRepository) mutate(ctx context.Context, op string, id uuid.UUID, fn func(a *domain.Account)) (*domain.Account, error) {
	var out *domain.Account
	err := r.store.run(ctx, op, func(st *state) error {
		account, ok := st.accounts[id]
		if !ok {
			return errors.ErrAccountNotFound
		}
		fn(account)
		cp := *account
		out = &cp
		return nil
	})
	return out, err
}
