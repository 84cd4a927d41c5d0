package domain

import (
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-ledger/internal/errors"
)

func TestSignedAmount(t *testing.T) {
	amount := decimal.RequireFromString("12.34")

	assert.True(t, SignedAmount(TransactionTypeIncome, amount).Equal(amount))
	assert.True(t, SignedAmount(TransactionTypeExpense, amount).Equal(amount.Neg()))
}

func TestAccountApplyDeltaAndRebase(t *testing.T) {
	account, err := NewAccount("owner-1", "Wallet", AccountKindCash, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(account.InitialBalance))

	before := account.UpdatedAt
	time.Sleep(time.Millisecond)
	account.ApplyDelta(decimal.NewFromInt(-250))

	assert.True(t, account.Balance.Equal(decimal.NewFromInt(750)))
	assert.True(t, account.InitialBalance.Equal(decimal.NewFromInt(1000)))
	assert.True(t, account.UpdatedAt.After(before))

	account.Rebase(decimal.NewFromInt(50))
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(800)))
	assert.True(t, account.InitialBalance.Equal(decimal.NewFromInt(1050)))
}

func TestNewAccountValidation(t *testing.T) {
	_, err := NewAccount("", "Wallet", AccountKindCash, decimal.Zero)
	assert.True(t, stderrors.Is(err, errors.NewValidationError("")))

	_, err = NewAccount("owner", "Wallet", AccountKind("SAVINGS"), decimal.Zero)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidAccountKind))
}

func TestNewTransactionValidation(t *testing.T) {
	accountID := uuid.New()

	tests := []struct {
		name     string
		txType   TransactionType
		amount   decimal.Decimal
		category Category
		wantErr  error
	}{
		{"valid income", TransactionTypeIncome, decimal.NewFromInt(10), CategoryFood, nil},
		{"zero amount allowed", TransactionTypeExpense, decimal.Zero, CategoryOther, nil},
		{"negative amount", TransactionTypeExpense, decimal.NewFromInt(-1), CategoryOther, errors.ErrInvalidAmount},
		{"unknown type", TransactionType("REFUND"), decimal.NewFromInt(1), CategoryOther, errors.ErrInvalidType},
		{"unknown category", TransactionTypeIncome, decimal.NewFromInt(1), Category("TRAVEL"), errors.ErrInvalidCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := NewTransaction(accountID, tt.txType, tt.amount, tt.category, "", time.Time{})
			if tt.wantErr != nil {
				assert.Nil(t, tx)
				assert.True(t, stderrors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, accountID, tx.AccountID)
			assert.False(t, tx.Date.IsZero(), "zero date defaults to now")
		})
	}
}

func TestTransactionUpdateDistinguishesAbsentFromZero(t *testing.T) {
	zero := decimal.Zero
	assert.False(t, TransactionUpdate{}.AffectsBalance())
	assert.True(t, TransactionUpdate{Amount: &zero}.AffectsBalance())

	tx, err := NewTransaction(uuid.New(), TransactionTypeIncome, decimal.NewFromInt(100), CategoryFood, "lunch", time.Time{})
	require.NoError(t, err)

	tx.Apply(TransactionUpdate{Amount: &zero})
	assert.True(t, tx.Amount.IsZero())
	assert.Equal(t, "lunch", tx.Description)
}

func TestEnumUnmarshalRejectsUnknownValues(t *testing.T) {
	var payload struct {
		Type     TransactionType `json:"type"`
		Category Category        `json:"category"`
		Kind     AccountKind     `json:"kind"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"type":"income","category":"food","kind":"credit_card"}`), &payload))
	assert.Equal(t, TransactionTypeIncome, payload.Type)
	assert.Equal(t, CategoryFood, payload.Category)
	assert.Equal(t, AccountKindCreditCard, payload.Kind)

	err := json.Unmarshal([]byte(`{"type":"GIFT"}`), &payload)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidType))

	err = json.Unmarshal([]byte(`{"category":42}`), &payload)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidCategory))
}

func TestAmountsFinerThanStoredScaleAreRejected(t *testing.T) {
	tooFine := decimal.RequireFromString("0.00005")
	accountID := uuid.New()

	_, err := NewTransaction(accountID, TransactionTypeExpense, tooFine, CategoryOther, "", time.Time{})
	assertValidationError(t, err)

	_, err = NewAccount("owner-1", "Wallet", AccountKindCash, decimal.RequireFromString("100.12345"))
	assertValidationError(t, err)

	update := TransactionUpdate{Amount: &tooFine}
	assertValidationError(t, update.Validate())

	// Trailing zeros beyond the scale are still exact.
	tx, err := NewTransaction(accountID, TransactionTypeIncome, decimal.RequireFromString("1.500000"), CategoryOther, "", time.Time{})
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("1.5")))

	_, err = NewTransaction(accountID, TransactionTypeIncome, decimal.RequireFromString("0.0001"), CategoryOther, "", time.Time{})
	assert.NoError(t, err)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()

	var appErr *errors.AppError
	if assert.True(t, stderrors.As(err, &appErr), "expected an AppError, got %v", err) {
		assert.Equal(t, errors.ValidationFailed, appErr.Code)
	}
}
