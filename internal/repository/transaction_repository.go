package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
)

const transactionColumns = `id, account_id, type, amount, category, description, date, idempotency_key, created_at, updated_at`

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionJournal {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	// Handle optional idempotency key
	var idempotencyKey interface{}
	if tx.IdempotencyKey != nil {
		idempotencyKey = *tx.IdempotencyKey
	}

	_, err := r.db.ExecContext(ctx,
		query,
		tx.ID,
		tx.AccountID,
		string(tx.Type),
		tx.Amount.String(),
		string(tx.Category),
		tx.Description,
		tx.Date,
		idempotencyKey,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if err != nil {
		classified := classifyError("create transaction", err)
		if errors.IsNotFound(classified) {
			r.logger.Warn("Transaction references missing account", "account_id", tx.AccountID)
		} else {
			r.logger.Error("Failed to create transaction",
				"account_id", tx.AccountID,
				"amount", tx.Amount,
				"error", err)
		}
		return classified
	}

	r.logger.Info("Transaction created successfully", "transaction_id", tx.ID, "account_id", tx.AccountID)
	return nil
}

func (r *transactionRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, r.transactionError("get transaction", id, err)
	}
	return tx, nil
}

func (r *transactionRepository) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, r.transactionError("get transaction for update", id, err)
	}
	return tx, nil
}

func (r *transactionRepository) GetTransactionByIdempotencyKey(ctx context.Context, key uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE idempotency_key = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction by idempotency key", "idempotency_key", key, "error", err)
		return nil, classifyError("get transaction by idempotency key", err)
	}
	return tx, nil
}

func (r *transactionRepository) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY date DESC, created_at DESC
	`
	return r.list(ctx, query, accountID)
}

func (r *transactionRepository) ListTransactionsInRange(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date DESC, created_at DESC
	`
	return r.list(ctx, query, accountID, start.UTC(), end.UTC())
}

func (r *transactionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "error", err)
		return nil, classifyError("list transactions", err)
	}
	defer rows.Close()

	transactions := make([]*domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, classifyError("scan transaction", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError("list transactions", err)
	}
	return transactions, nil
}

func (r *transactionRepository) UpdateTransaction(ctx context.Context, id uuid.UUID, update domain.TransactionUpdate) (*domain.Transaction, error) {
	query := `
		UPDATE transactions
		SET type = COALESCE($1::text, type),
		    amount = COALESCE($2::numeric, amount),
		    category = COALESCE($3::text, category),
		    description = COALESCE($4::text, description),
		    date = COALESCE($5::timestamptz, date),
		    updated_at = $6
		WHERE id = $7
		RETURNING ` + transactionColumns

	var txType, amount, category, date interface{}
	if update.Type != nil {
		txType = string(*update.Type)
	}
	if update.Amount != nil {
		amount = update.Amount.String()
	}
	if update.Category != nil {
		category = string(*update.Category)
	}
	if update.Date != nil {
		date = update.Date.UTC()
	}

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query,
		txType, amount, category, update.Description, date, time.Now().UTC(), id))
	if err != nil {
		return nil, r.transactionError("update transaction", id, err)
	}

	r.logger.Info("Transaction updated", "transaction_id", id)
	return tx, nil
}

func (r *transactionRepository) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete transaction", "transaction_id", id, "error", err)
		return classifyError("delete transaction", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return classifyError("delete transaction", err)
	}
	if rowsAffected == 0 {
		r.logger.Warn("No transaction found to delete", "transaction_id", id)
		return errors.ErrTransactionNotFound
	}

	r.logger.Info("Transaction deleted", "transaction_id", id)
	return nil
}

func (r *transactionRepository) DeleteTransactionsForAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE account_id = $1`, accountID)
	if err != nil {
		r.logger.Error("Failed to delete account transactions", "account_id", accountID, "error", err)
		return 0, classifyError("delete account transactions", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, classifyError("delete account transactions", err)
	}

	r.logger.Info("Account transactions deleted", "account_id", accountID, "count", deleted)
	return deleted, nil
}

func (r *transactionRepository) transactionError(op string, id uuid.UUID, err error) error {
	if err == sql.ErrNoRows {
		r.logger.Warn("Transaction not found", "transaction_id", id)
		return errors.ErrTransactionNotFound
	}
	r.logger.Error("Transaction query failed", "op", op, "transaction_id", id, "error", err)
	return classifyError(op, err)
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var txType, category string
	var idempotencyKey uuid.NullUUID

	err := row.Scan(
		&tx.ID,
		&tx.AccountID,
		&txType,
		&tx.Amount,
		&category,
		&tx.Description,
		&tx.Date,
		&idempotencyKey,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Type = domain.TransactionType(txType)
	tx.Category = domain.Category(category)
	tx.Date = tx.Date.UTC()
	tx.CreatedAt = tx.CreatedAt.UTC()
	tx.UpdatedAt = tx.UpdatedAt.UTC()
	if idempotencyKey.Valid {
		key := idempotencyKey.UUID
		tx.IdempotencyKey = &key
	}
	return &tx, nil
}
