package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/pfolio/portfolio-api/internal/api/response"
	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/validation"
)

// maxBodyBytes caps JSON and multipart request bodies.
const maxBodyBytes = 10 << 20

// parseJSON decodes the request body into T. Unknown fields are rejected.
func parseJSON[T any](r *http.Request) (T, error) {
	var v T
	if r.Body == nil {
		return v, apperrors.ErrEmptyInput
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("invalid JSON: %w", err)
	}
	return v, nil
}

// errorStatus maps a service error to an HTTP status code. Upstream
// provider failures are told apart from local ones; a missing credential is
// a server misconfiguration and stays 500.
func errorStatus(err error) int {
	var verr *validation.Error
	var fxErr *apperrors.FxError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, apperrors.ErrUnsupportedCurrency),
		errors.Is(err, apperrors.ErrStructuralImport),
		errors.Is(err, apperrors.ErrUnknownFormat),
		errors.Is(err, apperrors.ErrInvalidDateRange),
		errors.Is(err, apperrors.ErrInvalidUUID),
		errors.Is(err, apperrors.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrTransactionNotFound),
		errors.Is(err, apperrors.ErrStockNotFound),
		errors.Is(err, apperrors.ErrExchangeRateNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrMissingCredential):
		return http.StatusInternalServerError
	case errors.As(err, &fxErr):
		switch fxErr.Reason {
		case apperrors.FxInvalidPair:
			return http.StatusNotFound
		case apperrors.FxQuotaExceeded:
			return http.StatusServiceUnavailable
		default:
			return http.StatusBadGateway
		}
	case errors.Is(err, apperrors.ErrQuoteUnavailable):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrFxDownload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes err with the status errorStatus picks. Client
// errors carry their own message; server errors use fallback as the message
// and the error text as details. Structural import errors list the missing
// columns as details.
func respondServiceError(w http.ResponseWriter, err error, fallback error) {
	status := errorStatus(err)

	var structural *apperrors.StructuralImportError
	if errors.As(err, &structural) {
		response.RespondError(w, status, structural.Error(), structural.Missing)
		return
	}
	if status == http.StatusInternalServerError {
		response.RespondError(w, status, fallback.Error(), err.Error())
		return
	}
	response.RespondError(w, status, err.Error(), nil)
}
