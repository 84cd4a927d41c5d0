package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"account-ledger/internal/domain"
)

// Store provides a unified interface for all repository operations with transaction support
type Store struct {
	db       DB
	executor SQLExecutor
	logger   *slog.Logger
}

var _ domain.Store = (*Store)(nil)

// NewStore creates a new Store instance
func NewStore(db DB, logger *slog.Logger) *Store {
	return &Store{
		db:       db,
		executor: db,
		logger:   logger,
	}
}

// Accounts returns an AccountStore using the current executor
func (s *Store) Accounts() domain.AccountStore {
	return NewAccountRepository(s.executor, s.logger)
}

// Transactions returns a TransactionJournal using the current executor
func (s *Store) Transactions() domain.TransactionJournal {
	return NewTransactionRepository(s.executor, s.logger)
}

func (s *Store) Ping(ctx context.Context) error {
	return classifyError("ping", s.db.PingContext(ctx))
}

// WithTransaction executes fn within a database transaction. A Store that is
// already bound to a transaction joins it instead of nesting.
func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	if _, inTx := s.executor.(*TxWrapper); inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		s.logger.Error("Failed to begin transaction", "error", err)
		return classifyError("begin transaction", err)
	}

	txStore := &Store{
		db:       s.db,
		executor: &TxWrapper{Tx: tx},
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			s.logger.Error("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		return classifyError("commit", err)
	}
	return nil
}
