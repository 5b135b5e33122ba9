package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Domain entity errors represent missing entities in the system.
var (
	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrStockNotFound indicates that no stock with the given symbol or ID exists.
	ErrStockNotFound = errors.New("stock not found")

	// ErrExchangeRateNotFound indicates no cached rate for a currency pair and date.
	ErrExchangeRateNotFound = errors.New("exchange rate for currency/date not found")
)

// Input errors represent values rejected before any work is done.
var (
	// ErrUnsupportedCurrency indicates a currency code that is not exactly three letters.
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// ErrInvalidDateRange indicates that a start date lies after the end date.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrUnknownFormat indicates raw input that no statement parser recognises.
	ErrUnknownFormat = errors.New("unknown statement format")

	// ErrStructuralImport is matched by every StructuralImportError.
	ErrStructuralImport = errors.New("missing required columns")

	ErrInvalidUUID = errors.New("invalid UUID format")
	ErrEmptyInput  = errors.New("input is empty")
)

// External service errors.
var (
	// ErrFxDownload is matched by every FxError.
	ErrFxDownload = errors.New("exchange rate download failed")

	// ErrMissingCredential indicates a provider that requires an API key was called without one.
	// It is a configuration error and is never retried.
	ErrMissingCredential = errors.New("missing provider credential")

	// ErrQuoteUnavailable indicates a provider confirmed it has no quote for the symbol.
	ErrQuoteUnavailable = errors.New("quote unavailable")
)

// Operation failure errors used as user-facing messages by the HTTP layer.
var (
	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")
	ErrFailedToCreateTransaction    = errors.New("failed to create transaction")
	ErrFailedToDeleteTransaction    = errors.New("failed to delete transaction")
	ErrFailedToGetHoldings          = errors.New("failed to get holdings")
	ErrFailedToGetPortfolioSummary  = errors.New("failed to get portfolio summary")
	ErrFailedToGetPortfolioHistory  = errors.New("failed to get portfolio history")
	ErrFailedToImportTransactions   = errors.New("failed to import transactions")
	ErrFailedToRetrieveExchangeRate = errors.New("failed to retrieve exchange rate")
	ErrFailedToUpdateExchangeRate   = errors.New("failed to update exchange rate")
	ErrFailedToUpdatePrices         = errors.New("failed to update prices")
)

// FxReason classifies why a rate provider could not deliver.
type FxReason string

const (
	FxMissingCredential FxReason = "missing_credential"
	FxQuotaExceeded     FxReason = "quota_exceeded"
	FxInvalidPair       FxReason = "invalid_pair"
	FxUnreachable       FxReason = "unreachable"
)

// FxError is returned by rate providers and the resolver.
type FxError struct {
	Reason   FxReason
	Provider string
	Err      error
}

func (e *FxError) Error() string {
	msg := fmt.Sprintf("fx %s", e.Reason)
	if e.Provider != "" {
		msg += " (" + e.Provider + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FxError) Unwrap() error { return e.Err }

// Is lets callers match any FxError with ErrFxDownload, and the credential
// case with ErrMissingCredential.
func (e *FxError) Is(target error) bool {
	switch target {
	case ErrFxDownload:
		return true
	case ErrMissingCredential:
		return e.Reason == FxMissingCredential
	}
	return false
}

// Retryable reports whether another attempt against the same provider may succeed.
func (e *FxError) Retryable() bool {
	return e.Reason == FxUnreachable
}

// NewFxError builds an FxError.
func NewFxError(reason FxReason, provider string, err error) *FxError {
	return &FxError{Reason: reason, Provider: provider, Err: err}
}

// StructuralImportError reports required columns absent from a tabular import.
type StructuralImportError struct {
	Missing []string
}

func (e *StructuralImportError) Error() string {
	return fmt.Sprintf("Missing required columns: %s", strings.Join(e.Missing, ", "))
}

func (e *StructuralImportError) Is(target error) bool {
	return target == ErrStructuralImport
}
