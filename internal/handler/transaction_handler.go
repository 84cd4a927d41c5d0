package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"account-ledger/internal/domain"
	"account-ledger/internal/errors"
	"account-ledger/internal/service"
	"account-ledger/pkg/helpers"
)

// IdempotencyHeader may carry the idempotency key instead of the body field.
const IdempotencyHeader = "Idempotency-Key"

type TransactionHandler struct {
	transactionService *service.TransactionService
	accountService     *service.AccountService
}

func NewTransactionHandler(transactionService *service.TransactionService, accountService *service.AccountService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		accountService:     accountService,
	}
}

type CreateTransactionRequest struct {
	AccountID      string                 `json:"account_id" validate:"required,uuid"`
	Type           domain.TransactionType `json:"type" validate:"required"`
	Amount         string                 `json:"amount" validate:"required,numeric"`
	Category       domain.Category        `json:"category" validate:"required"`
	Description    string                 `json:"description" validate:"max=255"`
	Date           *time.Time             `json:"date"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty" validate:"omitempty,uuid"`
}

// UpdateTransactionRequest distinguishes an absent field (nil) from an
// explicit value, so "amount": "0" is applied.
type UpdateTransactionRequest struct {
	Type        *domain.TransactionType `json:"type"`
	Amount      *string                 `json:"amount" validate:"omitempty,numeric"`
	Category    *domain.Category        `json:"category"`
	Description *string                 `json:"description" validate:"omitempty,max=255"`
	Date        *time.Time              `json:"date"`
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req CreateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		handleError(w, r, errors.ErrInvalidAccountID.WithDetails(err.Error()))
		return
	}
	if _, err := h.accountService.GetOwnedAccount(r.Context(), accountID, owner); err != nil {
		handleError(w, r, err)
		return
	}

	amount, err := parseDecimal("amount", req.Amount)
	if err != nil {
		handleError(w, r, err)
		return
	}

	idempotencyKey, err := parseIdempotencyKey(r, req.IdempotencyKey)
	if err != nil {
		handleError(w, r, err)
		return
	}

	createReq := &service.CreateTransactionRequest{
		AccountID:      accountID,
		Type:           req.Type,
		Amount:         amount,
		Category:       req.Category,
		Description:    req.Description,
		Date:           helpers.ValueOr(req.Date, time.Time{}),
		IdempotencyKey: idempotencyKey,
	}

	transaction, err := h.transactionService.CreateTransaction(r.Context(), createReq)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, transaction)
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transaction, err := h.ownedTransaction(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, transaction)
}

func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	transaction, err := h.ownedTransaction(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req UpdateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	update := domain.TransactionUpdate{
		Type:        req.Type,
		Category:    req.Category,
		Description: req.Description,
		Date:        req.Date,
	}
	if req.Amount != nil {
		amount, err := parseDecimal("amount", *req.Amount)
		if err != nil {
			handleError(w, r, err)
			return
		}
		update.Amount = &amount
	}

	updated, err := h.transactionService.UpdateTransaction(r.Context(), transaction.ID, update)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	transaction, err := h.ownedTransaction(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(r.Context(), transaction.ID); err != nil {
		handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTransactions serves GET /accounts/{account_id}/transactions with
// optional start_date and end_date (RFC 3339 or YYYY-MM-DD).
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	accountID, err := pathUUID(r, "account_id", errors.ErrInvalidAccountID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if _, err := h.accountService.GetOwnedAccount(r.Context(), accountID, owner); err != nil {
		handleError(w, r, err)
		return
	}

	start, err := parseDateParam(r, "start_date", false)
	if err != nil {
		handleError(w, r, err)
		return
	}
	end, err := parseDateParam(r, "end_date", true)
	if err != nil {
		handleError(w, r, err)
		return
	}

	transactions, err := h.transactionService.ListTransactions(r.Context(), accountID, start, end)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, transactions)
}

func (h *TransactionHandler) ownedTransaction(r *http.Request) (*domain.Transaction, error) {
	owner, err := ownerID(r)
	if err != nil {
		return nil, err
	}
	id, err := pathUUID(r, "transaction_id", errors.ErrInvalidTransactionID)
	if err != nil {
		return nil, err
	}

	transaction, err := h.transactionService.GetTransaction(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if _, err := h.accountService.GetOwnedAccount(r.Context(), transaction.AccountID, owner); err != nil {
		return nil, err
	}
	return transaction, nil
}

func parseIdempotencyKey(r *http.Request, bodyKey string) (*uuid.UUID, error) {
	raw := r.Header.Get(IdempotencyHeader)
	if raw == "" {
		raw = bodyKey
	}
	if raw == "" {
		return nil, nil
	}

	key, err := uuid.Parse(raw)
	if err != nil {
		return nil, errors.NewAppError(errors.InvalidInput, "invalid idempotency key format").WithDetails(err.Error())
	}
	return &key, nil
}

// parseDateParam accepts RFC 3339 timestamps or plain dates. A plain end date
// covers the whole day.
func parseDateParam(r *http.Request, name string, endOfDay bool) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}

	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, errors.NewValidationError("invalid " + name).WithDetails("expected RFC 3339 or YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
