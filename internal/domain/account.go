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

type AccountKind string

const (
	AccountKindBank       AccountKind = "BANK"
	AccountKindCash       AccountKind = "CASH"
	AccountKindCreditCard AccountKind = "CREDIT_CARD"
	AccountKindDebitCard  AccountKind = "DEBIT_CARD"
)

func (k AccountKind) Valid() bool {
	switch k {
	case AccountKindBank, AccountKindCash, AccountKindCreditCard, AccountKindDebitCard:
		return true
	}
	return false
}

func ParseAccountKind(s string) (AccountKind, error) {
	k := AccountKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", errors.ErrInvalidAccountKind.WithDetails(s)
	}
	return k, nil
}

func (k *AccountKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.ErrInvalidAccountKind.WithDetails(err.Error())
	}
	parsed, err := ParseAccountKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

type Account struct {
	ID             uuid.UUID       `json:"id"`
	OwnerID        string          `json:"owner_id"`
	Name           string          `json:"name"`
	Kind           AccountKind     `json:"kind"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Balance        decimal.Decimal `json:"balance"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewAccount returns an account whose balance starts at initialBalance.
func NewAccount(ownerID, name string, kind AccountKind, initialBalance decimal.Decimal) (*Account, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, errors.NewValidationError("owner id is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.NewValidationError("account name is required")
	}
	if !kind.Valid() {
		return nil, errors.ErrInvalidAccountKind.WithDetails(string(kind))
	}
	if err := CheckScale("initial balance", initialBalance); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Account{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		Name:           name,
		Kind:           kind,
		InitialBalance: initialBalance,
		Balance:        initialBalance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ApplyDelta adds a signed amount to the balance. It knows nothing about
// transactions; every reconciliation path goes through it.
func (a *Account) ApplyDelta(delta decimal.Decimal) {
	a.Balance = a.Balance.Add(delta)
	a.UpdatedAt = time.Now().UTC()
}

// Rebase moves both the opening and the current balance, leaving the
// transaction-derived part untouched.
func (a *Account) Rebase(delta decimal.Decimal) {
	a.InitialBalance = a.InitialBalance.Add(delta)
	a.ApplyDelta(delta)
}

type AccountUpdate struct {
	Name *string
	Kind *AccountKind
}

func (u AccountUpdate) Validate() error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return errors.NewValidationError("account name must not be empty")
	}
	if u.Kind != nil && !u.Kind.Valid() {
		return errors.ErrInvalidAccountKind.WithDetails(string(*u.Kind))
	}
	return nil
}

// AccountStore is durable keyed storage for accounts. Lookups of a missing id
// return errors.ErrAccountNotFound.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	// GetAccountForUpdate reads the row and holds it until the surrounding
	// unit of work ends.
	GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	ListAccountsByOwner(ctx context.Context, ownerID string) ([]*Account, error)
	UpdateAccount(ctx context.Context, id uuid.UUID, update AccountUpdate) (*Account, error)
	// ApplyBalanceDelta adds delta to the balance atomically at the store boundary.
	ApplyBalanceDelta(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (*Account, error)
	// RebaseBalance adds delta to both initial_balance and balance atomically.
	RebaseBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (*Account, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
}
