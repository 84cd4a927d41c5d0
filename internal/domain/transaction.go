package domain

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"account-ledger/internal/errors"
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", errors.ErrInvalidType.WithDetails(s)
	}
	return t, nil
}

func (t *TransactionType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.ErrInvalidType.WithDetails(err.Error())
	}
	parsed, err := ParseTransactionType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type Category string

const (
	CategoryFood       Category = "FOOD"
	CategoryTransport  Category = "TRANSPORT"
	CategoryOther      Category = "OTHER"
	CategoryEducation  Category = "EDUCATION"
	CategoryHealthcare Category = "HEALTHCARE"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryTransport, CategoryOther, CategoryEducation, CategoryHealthcare:
		return true
	}
	return false
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", errors.ErrInvalidCategory.WithDetails(s)
	}
	return c, nil
}

func (c *Category) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.ErrInvalidCategory.WithDetails(err.Error())
	}
	parsed, err := ParseCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// SignedAmount is +amount for income and -amount for expenses.
func SignedAmount(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	if t == TransactionTypeIncome {
		return amount
	}
	return amount.Neg()
}

type Transaction struct {
	ID             uuid.UUID       `json:"id"`
	AccountID      uuid.UUID       `json:"account_id"`
	Type           TransactionType `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Category       Category        `json:"category"`
	Description    string          `json:"description,omitempty"`
	Date           time.Time       `json:"date"`
	IdempotencyKey *uuid.UUID      `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewTransaction validates the enumerated fields and the amount sign. A zero
// date means "now".
func NewTransaction(
	accountID uuid.UUID,
	txType TransactionType,
	amount decimal.Decimal,
	category Category,
	description string,
	date time.Time,
) (*Transaction, error) {
	if !txType.Valid() {
		return nil, errors.ErrInvalidType.WithDetails(string(txType))
	}
	if !category.Valid() {
		return nil, errors.ErrInvalidCategory.WithDetails(string(category))
	}
	if amount.IsNegative() {
		return nil, errors.ErrInvalidAmount.WithDetails(amount.String())
	}
	if err := CheckScale("amount", amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if date.IsZero() {
		date = now
	}

	return &Transaction{
		ID:          uuid.New(),
		AccountID:   accountID,
		Type:        txType,
		Amount:      amount,
		Category:    category,
		Description: description,
		Date:        date.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Delta is the signed effect this transaction has on its account balance.
func (t *Transaction) Delta() decimal.Decimal {
	return SignedAmount(t.Type, t.Amount)
}

// TransactionUpdate carries only the fields the caller supplied. A nil field
// means "leave unchanged"; a non-nil zero amount is a real update to zero.
type TransactionUpdate struct {
	Type        *TransactionType
	Amount      *decimal.Decimal
	Category    *Category
	Description *string
	Date        *time.Time
}

func (u TransactionUpdate) AffectsBalance() bool {
	return u.Type != nil || u.Amount != nil
}

func (u TransactionUpdate) Validate() error {
	if u.Type != nil && !u.Type.Valid() {
		return errors.ErrInvalidType.WithDetails(string(*u.Type))
	}
	if u.Category != nil && !u.Category.Valid() {
		return errors.ErrInvalidCategory.WithDetails(string(*u.Category))
	}
	if u.Amount != nil {
		if u.Amount.IsNegative() {
			return errors.ErrInvalidAmount.WithDetails(u.Amount.String())
		}
		return CheckScale("amount", *u.Amount)
	}
	return nil
}

// Apply copies the supplied fields onto t and refreshes UpdatedAt.
func (t *Transaction) Apply(u TransactionUpdate) {
	if u.Type != nil {
		t.Type = *u.Type
	}
	if u.Amount != nil {
		t.Amount = *u.Amount
	}
	if u.Category != nil {
		t.Category = *u.Category
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Date != nil {
		t.Date = u.Date.UTC()
	}
	t.UpdatedAt = time.Now().UTC()
}

// TransactionJournal is durable storage for transactions. Listings are ordered
// by date descending; date ranges are inclusive on both ends.
type TransactionJournal interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// GetTransactionForUpdate reads the row and holds it until the surrounding
	// unit of work ends.
	GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// GetTransactionByIdempotencyKey returns nil, nil when no row carries key.
	GetTransactionByIdempotencyKey(ctx context.Context, key uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID) ([]*Transaction, error)
	ListTransactionsInRange(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]*Transaction, error)
	UpdateTransaction(ctx context.Context, id uuid.UUID, update TransactionUpdate) (*Transaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	DeleteTransactionsForAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
}
