package memory

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
	"account-ledger/pkg/logger"
)

func newAccount(t *testing.T, s *Store) *domain.Account {
	t.Helper()

	account, err := domain.NewAccount("owner", "Cash", domain.AccountKindCash, decimal.NewFromInt(100))
	require.NoError(t, err)
	require.NoError(t, s.Accounts().CreateAccount(context.Background(), account))
	return account
}

func TestWithTransactionCommits(t *testing.T) {
	ctx := context.Background()
	s := NewStore(logger.Discard())
	account := newAccount(t, s)

	err := s.WithTransaction(ctx, func(st domain.Store) error {
		_, err := st.Accounts().ApplyBalanceDelta(ctx, account.ID, decimal.NewFromInt(-30))
		return err
	})
	require.NoError(t, err)

	got, err := s.Accounts().GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(70)))
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore(logger.Discard())
	account := newAccount(t, s)
	boom := stderrors.New("boom")

	err := s.WithTransaction(ctx, func(st domain.Store) error {
		tx, err := domain.NewTransaction(account.ID, domain.TransactionTypeIncome, decimal.NewFromInt(5), domain.CategoryOther, "", time.Time{})
		require.NoError(t, err)
		require.NoError(t, st.Transactions().CreateTransaction(ctx, tx))
		_, err = st.Accounts().ApplyBalanceDelta(ctx, account.ID, tx.Delta())
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Accounts().GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))

	txs, err := s.Transactions().ListTransactions(ctx, account.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestFailNextIsOneShot(t *testing.T) {
	ctx := context.Background()
	s := NewStore(logger.Discard())
	account := newAccount(t, s)

	s.FailNext("GetAccount", errors.ErrConflict)

	_, err := s.Accounts().GetAccount(ctx, account.ID)
	assert.ErrorIs(t, err, errors.ErrConflict)
	_, err = s.Accounts().GetAccount(ctx, account.ID)
	assert.NoError(t, err)
}

func TestCommitFaultDiscardsWork(t *testing.T) {
	ctx := context.Background()
	s := NewStore(logger.Discard())
	account := newAccount(t, s)

	s.FailNext("Commit", errors.ErrStoreUnavailable)
	err := s.WithTransaction(ctx, func(st domain.Store) error {
		return st.Accounts().DeleteAccount(ctx, account.ID)
	})
	assert.ErrorIs(t, err, errors.ErrStoreUnavailable)

	_, err = s.Accounts().GetAccount(ctx, account.ID)
	assert.NoError(t, err)
}

func TestReturnedEntitiesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore(logger.Discard())
	account := newAccount(t, s)

	got, err := s.Accounts().GetAccount(ctx, account.ID)
	require.NoError(t, err)
	got.Balance = decimal.NewFromInt(1)

	again, err := s.Accounts().GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(decimal.NewFromInt(100)))
}

func TestJournalConstraints(t *testing.T) {
	ctx := context.Background()
	s := NewStore(logger.Discard())
	account := newAccount(t, s)
	key := uuid.New()

	orphan, err := domain.NewTransaction(uuid.New(), domain.TransactionTypeIncome, decimal.NewFromInt(1), domain.CategoryOther, "", time.Time{})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Transactions().CreateTransaction(ctx, orphan), errors.ErrAccountNotFound)

	first, err := domain.NewTransaction(account.ID, domain.TransactionTypeIncome, decimal.NewFromInt(1), domain.CategoryOther, "", time.Time{})
	require.NoError(t, err)
	first.IdempotencyKey = &key
	require.NoError(t, s.Transactions().CreateTransaction(ctx, first))

	dup, err := domain.NewTransaction(account.ID, domain.TransactionTypeIncome, decimal.NewFromInt(1), domain.CategoryOther, "", time.Time{})
	require.NoError(t, err)
	dup.IdempotencyKey = &key
	assert.ErrorIs(t, s.Transactions().CreateTransaction(ctx, dup), errors.ErrDuplicateTransaction)

	found, err := s.Transactions().GetTransactionByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	missing, err := s.Transactions().GetTransactionByIdempotencyKey(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.ErrorIs(t, s.Accounts().DeleteAccount(ctx, account.ID), errors.ErrConflict)

	n, err := s.Transactions().DeleteTransactionsForAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.NoError(t, s.Accounts().DeleteAccount(ctx, account.ID))
}

func TestCancelledContext(t *testing.T) {
	s := NewStore(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Accounts().GetAccount(ctx, uuid.New())
	assert.ErrorIs(t, err, errors.ErrStoreUnavailable)
	assert.ErrorIs(t, s.WithTransaction(ctx, func(domain.Store) error { return nil }), errors.ErrStoreUnavailable)
}

func TestFailedUnitsAreLogged(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	s := NewStore(logger.New("debug", &buf))
	account := newAccount(t, s)

	err := s.WithTransaction(ctx, func(domain.Store) error { return errors.ErrConflict })
	require.ErrorIs(t, err, errors.ErrConflict)
	assert.Contains(t, buf.String(), "Rolling back unit of work")

	s.FailNext("Commit", errors.ErrStoreUnavailable)
	err = s.WithTransaction(ctx, func(st domain.Store) error {
		_, err := st.Accounts().GetAccount(ctx, account.ID)
		return err
	})
	require.ErrorIs(t, err, errors.ErrStoreUnavailable)
	assert.Contains(t, buf.String(), "Failed to commit unit of work")
}
