package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pfolio/portfolio-api/internal/api/request"
	"github.com/pfolio/portfolio-api/internal/api/response"
	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/service"
	"github.com/pfolio/portfolio-api/internal/validation"
)

// TransactionHandler serves manual transaction bookkeeping.
type TransactionHandler struct {
	transactionService *service.TransactionService
}

func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// Transactions handles GET requests to list stored transactions.
//
// Endpoint: GET /api/portfolio/transactions?symbol=&side=&sortDir=
// Response: 200 OK with array of Transaction
// Error: 400 Bad Request if a filter is invalid
// Error: 500 Internal Server Error if retrieval fails
func (h *TransactionHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, err := request.ParseTransactionFilters(q.Get("symbol"), q.Get("side"), q.Get("sortDir"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	transactions, err := h.transactionService.GetTransactions(r.Context(), *filters)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveTransactions.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, transactions)
}

// GetTransaction handles GET requests to retrieve a single transaction by ID.
//
// Endpoint: GET /api/portfolio/transactions/{uuid}
// Response: 200 OK with Transaction
// Error: 400 Bad Request if transaction ID is invalid (validated by middleware)
// Error: 404 Not Found if transaction not found
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transaction, err := h.transactionService.GetTransaction(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveTransactions)
		return
	}

	response.RespondJSON(w, http.StatusOK, transaction)
}

// CreateTransaction handles POST requests to record a transaction by hand.
//
// Endpoint: POST /api/portfolio/transactions
// Request Body: CreateTransactionRequest (symbol, side, date, quantity, pricePerShare, currency, feeAmount, feeCurrency)
// Response: 201 Created with Transaction
// Error: 400 Bad Request if validation fails, the body is invalid or a
// currency code is unsupported
// Error: 500 Internal Server Error if the insert fails
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateTransactionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateTransaction(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	transaction, err := h.transactionService.CreateTransaction(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToCreateTransaction)
		return
	}

	response.RespondJSON(w, http.StatusCreated, transaction)
}

// DeleteTransaction handles DELETE requests to remove a transaction.
//
// Endpoint: DELETE /api/portfolio/transactions/{uuid}
// Response: 204 No Content
// Error: 400 Bad Request if transaction ID is invalid (validated by middleware)
// Error: 404 Not Found if transaction not found
// Error: 500 Internal Server Error if deletion fails
func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.transactionService.DeleteTransaction(r.Context(), chi.URLParam(r, "uuid")); err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToDeleteTransaction)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
