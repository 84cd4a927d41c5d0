package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
	"account-ledger/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

type CreateAccountRequest struct {
	Name           string             `json:"name" validate:"required,max=100"`
	Kind           domain.AccountKind `json:"kind" validate:"required"`
	InitialBalance string             `json:"initial_balance" validate:"omitempty,numeric"`
}

// UpdateAccountRequest fields are optional. Balance resets the current
// balance to the given value.
type UpdateAccountRequest struct {
	Name    *string             `json:"name" validate:"omitempty,min=1,max=100"`
	Kind    *domain.AccountKind `json:"kind"`
	Balance *string             `json:"balance" validate:"omitempty,numeric"`
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	initialBalance := decimal.Zero
	if req.InitialBalance != "" {
		if initialBalance, err = parseDecimal("initial_balance", req.InitialBalance); err != nil {
			handleError(w, r, err)
			return
		}
	}

	account, err := h.accountService.CreateAccount(r.Context(), &service.CreateAccountRequest{
		OwnerID:        owner,
		Name:           req.Name,
		Kind:           req.Kind,
		InitialBalance: initialBalance,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	accounts, err := h.accountService.ListAccounts(r.Context(), owner)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, accounts)
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.ownedAccount(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.ownedAccount(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req UpdateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	update := &service.UpdateAccountRequest{Name: req.Name, Kind: req.Kind}
	if req.Balance != nil {
		balance, err := parseDecimal("balance", *req.Balance)
		if err != nil {
			handleError(w, r, err)
			return
		}
		update.Balance = &balance
	}

	updated, err := h.accountService.UpdateAccount(r.Context(), account.ID, update)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.ownedAccount(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if err := h.accountService.DeleteAccount(r.Context(), account.ID); err != nil {
		handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ownedAccount resolves {account_id} and checks the caller owns it.
func (h *AccountHandler) ownedAccount(r *http.Request) (*domain.Account, error) {
	owner, err := ownerID(r)
	if err != nil {
		return nil, err
	}
	id, err := pathUUID(r, "account_id", errors.ErrInvalidAccountID)
	if err != nil {
		return nil, err
	}
	return h.accountService.GetOwnedAccount(r.Context(), id, owner)
}
