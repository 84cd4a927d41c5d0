package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
	"account-ledger/internal/lock"
	"account-ledger/pkg/logger"
)

var maxInitialBalance = decimal.NewFromInt(10_000_000_000) // 10 billion

type AccountService struct {
	store   domain.Store
	locker  lock.Locker
	retrier *Retrier
	logger  *slog.Logger
}

func NewAccountService(store domain.Store, locker lock.Locker, retrier *Retrier, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:   store,
		locker:  locker,
		retrier: retrier,
		logger:  logger,
	}
}

type CreateAccountRequest struct {
	OwnerID        string
	Name           string
	Kind           domain.AccountKind
	InitialBalance decimal.Decimal
}

// UpdateAccountRequest edits account metadata. Balance, when set, resets the
// balance to that value and moves the initial balance by the same amount.
type UpdateAccountRequest struct {
	Name    *string
	Kind    *domain.AccountKind
	Balance *decimal.Decimal
}

func (s *AccountService) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*domain.Account, error) {
	log := logger.FromContext(ctx, s.logger)
	log.Info("Creating account", "owner_id", req.OwnerID, "kind", req.Kind, "initial_balance", req.InitialBalance)

	if req.InitialBalance.Abs().GreaterThan(maxInitialBalance) {
		return nil, errors.NewValidationError("initial balance exceeds maximum limit")
	}

	account, err := domain.NewAccount(req.OwnerID, req.Name, req.Kind, req.InitialBalance)
	if err != nil {
		return nil, err
	}

	if err := s.store.Accounts().CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	log.Info("Account created successfully", "account_id", account.ID)
	return account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.store.Accounts().GetAccount(ctx, id)
}

// GetOwnedAccount loads the account and checks it belongs to ownerID.
func (s *AccountService) GetOwnedAccount(ctx context.Context, id uuid.UUID, ownerID string) (*domain.Account, error) {
	account, err := s.store.Accounts().GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.OwnerID != ownerID {
		logger.FromContext(ctx, s.logger).Warn("Account access denied", "account_id", id, "owner_id", ownerID)
		return nil, errors.ErrForbidden
	}
	return account, nil
}

func (s *AccountService) ListAccounts(ctx context.Context, ownerID string) ([]*domain.Account, error) {
	return s.store.Accounts().ListAccountsByOwner(ctx, ownerID)
}

func (s *AccountService) UpdateAccount(ctx context.Context, id uuid.UUID, req *UpdateAccountRequest) (*domain.Account, error) {
	log := logger.FromContext(ctx, s.logger)
	log.Info("Updating account", "account_id", id, "balance_reset", req.Balance != nil)

	update := domain.AccountUpdate{Name: req.Name, Kind: req.Kind}
	if err := update.Validate(); err != nil {
		return nil, err
	}
	if req.Balance != nil {
		if req.Balance.Abs().GreaterThan(maxInitialBalance) {
			return nil, errors.NewValidationError("balance exceeds maximum limit")
		}
		if err := domain.CheckScale("balance", *req.Balance); err != nil {
			return nil, err
		}
	}

	var updated *domain.Account
	err := withAccountLock(ctx, s.retrier, s.locker, id, "update account", func(ctx context.Context) error {
		return s.store.WithTransaction(ctx, func(st domain.Store) error {
			account, err := st.Accounts().GetAccountForUpdate(ctx, id)
			if err != nil {
				return err
			}
			updated = account

			if update.Name != nil || update.Kind != nil {
				if updated, err = st.Accounts().UpdateAccount(ctx, id, update); err != nil {
					return err
				}
			}

			if req.Balance != nil {
				delta := req.Balance.Sub(account.Balance)
				if !delta.IsZero() {
					if updated, err = st.Accounts().RebaseBalance(ctx, id, delta); err != nil {
						return err
					}
				}
			}
			return nil
		})
	})
	if err != nil {
		log.Error("Update account failed", "account_id", id, "error", err)
		return nil, err
	}

	log.Info("Account updated", "account_id", id, "balance", updated.Balance)
	return updated, nil
}

// DeleteAccount removes the account together with every transaction posted
// against it.
func (s *AccountService) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx, s.logger)
	log.Info("Deleting account", "account_id", id)

	var removed int64
	err := withAccountLock(ctx, s.retrier, s.locker, id, "delete account", func(ctx context.Context) error {
		return s.store.WithTransaction(ctx, func(st domain.Store) error {
			if _, err := st.Accounts().GetAccountForUpdate(ctx, id); err != nil {
				return err
			}
			n, err := st.Transactions().DeleteTransactionsForAccount(ctx, id)
			if err != nil {
				return err
			}
			removed = n
			return st.Accounts().DeleteAccount(ctx, id)
		})
	})
	if err != nil {
		log.Error("Delete account failed", "account_id", id, "error", err)
		return err
	}

	log.Info("Account deleted", "account_id", id, "transactions_removed", removed)
	return nil
}
