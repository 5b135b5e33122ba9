package handlers

import (
	"net/http"
	"time"

	"github.com/pfolio/portfolio-api/internal/api/request"
	"github.com/pfolio/portfolio-api/internal/api/response"
	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/service"
	"github.com/pfolio/portfolio-api/internal/validation"
)

// FxHandler handles exchange rate lookups and maintenance.
type FxHandler struct {
	fxService  *service.FxService
	backfiller service.Backfiller
}

// NewFxHandler creates a new FxHandler. backfiller records rates on
// transactions after a refresh.
func NewFxHandler(fxService *service.FxService, backfiller service.Backfiller) *FxHandler {
	return &FxHandler{
		fxService:  fxService,
		backfiller: backfiller,
	}
}

// Override handles POST requests that store a manual exchange rate.
// A manual rate is never replaced by a provider download.
//
// Endpoint: POST /api/fx/override
// Request Body: FxOverrideRequest (base, quote, date, rate)
// Response: 200 OK with ExchangeRate
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 500 Internal Server Error if the rate cannot be stored
func (h *FxHandler) Override(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.FxOverrideRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateFxOverride(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	rate, err := h.fxService.Override(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToUpdateExchangeRate)
		return
	}

	response.RespondJSON(w, http.StatusOK, rate)
}

// Rate handles GET requests for a single rate. The date defaults to today.
//
// Endpoint: GET /api/fx/rate?base=EUR&quote=USD&date=YYYY-MM-DD
// Response: 200 OK with RateLookup
// Error: 400 Bad Request if a parameter is invalid
// Error: 500 Internal Server Error if no provider can supply the rate
func (h *FxHandler) Rate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	base, quote, date := q.Get("base"), q.Get("quote"), q.Get("date")

	if err := validation.ValidateRateQuery(base, quote, date); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	rate, err := h.fxService.GetRate(r.Context(), base, quote, date)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveExchangeRate)
		return
	}

	response.RespondJSON(w, http.StatusOK, rate)
}

// Refresh handles POST requests that warm the base currency's rates for a
// day and then backfill transactions missing a rate. The date defaults to today.
//
// Endpoint: POST /api/fx/refresh?date=YYYY-MM-DD
// Response: 200 OK with FxRefreshReport
// Error: 400 Bad Request if the date is malformed
// Error: 500 Internal Server Error if a provider credential is missing
func (h *FxHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var date time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid date format", "must be in YYYY-MM-DD format")
			return
		}
		date = parsed
	}

	report, err := h.fxService.RefreshAndBackfill(r.Context(), date, h.backfiller)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToUpdateExchangeRate)
		return
	}

	response.RespondJSON(w, http.StatusOK, report)
}
