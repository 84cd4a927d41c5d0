// Package memory is an in-process implementation of domain.Store. A unit of
// work runs against a private copy of the data that replaces the shared copy
// only when the work succeeds, so failed or cancelled units leave no trace.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
)

type state struct {
	accounts     map[uuid.UUID]*domain.Account
	transactions map[uuid.UUID]*domain.Transaction
}

func newState() *state {
	return &state{
		accounts:     make(map[uuid.UUID]*domain.Account),
		transactions: make(map[uuid.UUID]*domain.Transaction),
	}
}

func (s *state) clone() *state {
	cp := newState()
	for id, a := range s.accounts {
		account := *a
		cp.accounts[id] = &account
	}
	for id, t := range s.transactions {
		tx := *t
		cp.transactions[id] = &tx
	}
	return cp
}

type database struct {
	mu     sync.Mutex
	state  *state
	faults map[string]error
}

type Store struct {
	db     *database
	tx     *state
	logger *slog.Logger
}

var _ domain.Store = (*Store)(nil)

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		db: &database{
			state:  newState(),
			faults: make(map[string]error),
		},
		logger: logger,
	}
}

func (s *Store) Accounts() domain.AccountStore {
	return &accountRepository{store: s}
}

func (s *Store) Transactions() domain.TransactionJournal {
	return &transactionRepository{store: s}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.NewStoreUnavailable("ping", err)
	}
	return nil
}

// WithTransaction holds the store lock for the whole unit, so units of work
// are fully serialized.
func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	if err := ctx.Err(); err != nil {
		return errors.NewStoreUnavailable("begin transaction", err)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	txStore := &Store{
		db:     s.db,
		tx:     s.db.state.clone(),
		logger: s.logger,
	}

	if err := fn(txStore); err != nil {
		s.logger.Debug("Rolling back unit of work", "error", err)
		return err
	}

	if err := s.db.takeFault("Commit"); err != nil {
		s.logger.Error("Failed to commit unit of work", "error", err)
		return err
	}
	if err := ctx.Err(); err != nil {
		s.logger.Error("Failed to commit unit of work", "error", err)
		return errors.NewStoreUnavailable("commit", err)
	}

	s.db.state = txStore.tx
	return nil
}

// FailNext makes the next call of the named operation return err. Operation
// names are the repository method names plus "Commit".
func (s *Store) FailNext(op string, err error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.faults[op] = err
}

// takeFault must be called with db.mu held.
func (d *database) takeFault(op string) error {
	err, ok := d.faults[op]
	if !ok {
		return nil
	}
	delete(d.faults, op)
	return err
}

// run executes fn against the transaction copy when inside a unit of work, or
// against the shared state under the lock otherwise.
func (s *Store) run(ctx context.Context, op string, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return errors.NewStoreUnavailable(op, err)
	}

	if s.tx != nil {
		if err := s.db.takeFault(op); err != nil {
			return err
		}
		return fn(s.tx)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.takeFault(op); err != nil {
		return err
	}
	return fn(s.db.state)
}
