package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the account and transaction endpoints on router.
func RegisterRoutes(router *mux.Router, accounts *AccountHandler, transactions *TransactionHandler) {
	// Account routes
	router.HandleFunc("/accounts", accounts.CreateAccount).Methods(http.MethodPost)
	router.HandleFunc("/accounts", accounts.ListAccounts).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{account_id}", accounts.GetAccount).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{account_id}", accounts.UpdateAccount).Methods(http.MethodPatch)
	router.HandleFunc("/accounts/{account_id}", accounts.DeleteAccount).Methods(http.MethodDelete)
	router.HandleFunc("/accounts/{account_id}/transactions", transactions.ListTransactions).Methods(http.MethodGet)

	// Transaction routes
	router.HandleFunc("/transactions", transactions.CreateTransaction).Methods(http.MethodPost)
	router.HandleFunc("/transactions/{transaction_id}", transactions.GetTransaction).Methods(http.MethodGet)
	router.HandleFunc("/transactions/{transaction_id}", transactions.UpdateTransaction).Methods(http.MethodPatch)
	router.HandleFunc("/transactions/{transaction_id}", transactions.DeleteTransaction).Methods(http.MethodDelete)
}
