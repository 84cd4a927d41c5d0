package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
)

const accountColumns = `id, owner_id, name, kind, initial_balance, balance, created_at, updated_at`

type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountStore {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *accountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx,
		query,
		account.ID,
		account.OwnerID,
		account.Name,
		string(account.Kind),
		account.InitialBalance.String(),
		account.Balance.String(),
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create account", "account_id", account.ID, "error", err)
		return classifyError("create account", err)
	}

	r.logger.Info("Account created successfully", "account_id", account.ID, "owner_id", account.OwnerID)
	return nil
}

func (r *accountRepository) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, r.accountError("get account", id, err)
	}
	return account, nil
}

func (r *accountRepository) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, r.accountError("get account for update", id, err)
	}
	return account, nil
}

func (r *accountRepository) ListAccountsByOwner(ctx context.Context, ownerID string) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list accounts", "owner_id", ownerID, "error", err)
		return nil, classifyError("list accounts", err)
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, classifyError("scan account", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError("list accounts", err)
	}
	return accounts, nil
}

func (r *accountRepository) UpdateAccount(ctx context.Context, id uuid.UUID, update domain.AccountUpdate) (*domain.Account, error) {
	query := `
		UPDATE accounts
		SET name = COALESCE($1::text, name),
		    kind = COALESCE($2::text, kind),
		    updated_at = $3
		WHERE id = $4
		RETURNING ` + accountColumns

	var kind interface{}
	if update.Kind != nil {
		kind = string(*update.Kind)
	}

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, update.Name, kind, time.Now().UTC(), id))
	if err != nil {
		return nil, r.accountError("update account", id, err)
	}

	r.logger.Info("Account updated", "account_id", id)
	return account, nil
}

// ApplyBalanceDelta increments the balance in place. The UPDATE takes the row
// lock, so concurrent deltas against one account are applied one after the
// other and none is lost.
func (r *accountRepository) ApplyBalanceDelta(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (*domain.Account, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $1::numeric,
		    updated_at = $2
		WHERE id = $3
		RETURNING ` + accountColumns

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, delta.String(), time.Now().UTC(), id))
	if err != nil {
		return nil, r.accountError("apply balance delta", id, err)
	}

	r.logger.Info("Account balance updated", "account_id", id, "delta", delta, "new_balance", account.Balance)
	return account, nil
}

func (r *accountRepository) RebaseBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (*domain.Account, error) {
	query := `
		UPDATE accounts
		SET initial_balance = initial_balance + $1::numeric,
		    balance = balance + $1::numeric,
		    updated_at = $2
		WHERE id = $3
		RETURNING ` + accountColumns

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, delta.String(), time.Now().UTC(), id))
	if err != nil {
		return nil, r.accountError("rebase balance", id, err)
	}

	r.logger.Info("Account balance rebased", "account_id", id, "delta", delta, "new_balance", account.Balance)
	return account, nil
}

func (r *accountRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			r.logger.Warn("Account still has transactions", "account_id", id)
			return errors.ErrConflict.WithDetails("account still has transactions")
		}
		r.logger.Error("Failed to delete account", "account_id", id, "error", err)
		return classifyError("delete account", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return classifyError("delete account", err)
	}
	if rowsAffected == 0 {
		r.logger.Warn("No account found to delete", "account_id", id)
		return errors.ErrAccountNotFound
	}

	r.logger.Info("Account deleted", "account_id", id)
	return nil
}

func (r *accountRepository) accountError(op string, id uuid.UUID, err error) error {
	if err == sql.ErrNoRows {
		r.logger.Warn("Account not found", "account_id", id)
		return errors.ErrAccountNotFound
	}
	r.logger.Error("Account query failed", "op", op, "account_id", id, "error", err)
	return classifyError(op, err)
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var account domain.Account
	var kind string

	err := row.Scan(
		&account.ID,
		&account.OwnerID,
		&account.Name,
		&kind,
		&account.InitialBalance,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Kind = domain.AccountKind(kind)
	account.CreatedAt = account.CreatedAt.UTC()
	account.UpdatedAt = account.UpdatedAt.UTC()
	return &account, nil
}
