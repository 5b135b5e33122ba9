package handlers

import (
	"net/http"

	"github.com/pfolio/portfolio-api/internal/api/request"
	"github.com/pfolio/portfolio-api/internal/api/response"
	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/service"
)

// PortfolioHandler handles HTTP requests for portfolio valuation endpoints.
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
	priceService     *service.PriceService
}

// NewPortfolioHandler creates a new PortfolioHandler with the provided service dependencies.
func NewPortfolioHandler(portfolioService *service.PortfolioService, priceService *service.PriceService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
		priceService:     priceService,
	}
}

// Holdings handles GET requests for the open positions valued in the base currency.
//
// Endpoint: GET /api/portfolio/holdings
// Response: 200 OK with array of Holding
// Error: 500 Internal Server Error if valuation fails
func (h *PortfolioHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.portfolioService.GetHoldings(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetHoldings.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, holdings)
}

// Summary handles GET requests for the aggregated portfolio metrics.
//
// Endpoint: GET /api/portfolio/summary
// Response: 200 OK with PortfolioSummary
// Error: 500 Internal Server Error if valuation fails
func (h *PortfolioHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.portfolioService.GetSummary(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetPortfolioSummary.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, summary)
}

// History handles GET requests for the daily value timeline.
//
// Endpoint: GET /api/portfolio/history?startDate=YYYY-MM-DD&endDate=YYYY-MM-DD
// Response: 200 OK with array of TimelinePoint
// Error: 400 Bad Request if a date is malformed or startDate is after endDate
// Error: 500 Internal Server Error if the timeline cannot be built
func (h *PortfolioHandler) History(w http.ResponseWriter, r *http.Request) {
	filters, err := request.ParseHistoryFilters(
		r.URL.Query().Get("startDate"),
		r.URL.Query().Get("endDate"),
	)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	history, err := h.portfolioService.GetHistory(r.Context(), filters.StartDate, filters.EndDate)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToGetPortfolioHistory)
		return
	}

	response.RespondJSON(w, http.StatusOK, history)
}

// RefreshPrices handles POST requests that fetch the latest quote of every stock.
// Symbols without a quote are reported per entry and do not fail the request.
//
// Endpoint: POST /api/portfolio/prices/refresh
// Response: 200 OK with array of PriceUpdate
// Error: 500 Internal Server Error if the stocks cannot be loaded
func (h *PortfolioHandler) RefreshPrices(w http.ResponseWriter, r *http.Request) {
	updates, err := h.priceService.UpdatePrices(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToUpdatePrices.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, updates)
}
