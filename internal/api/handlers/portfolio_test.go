package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfolio/portfolio-api/internal/model"
	"github.com/pfolio/portfolio-api/internal/quote"
	"github.com/pfolio/portfolio-api/internal/testutil"
)

func TestPortfolioHandler(t *testing.T) {
	setupHandler := func(t *testing.T, quotes ...quote.Provider) (*PortfolioHandler, *sql.DB) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		ps := testutil.NewTestPortfolioService(t, db, testutil.NewStaticRates(map[string]float64{"EUR/USD": 1.1}))
		return NewPortfolioHandler(ps, testutil.NewTestPriceService(t, db, quotes...)), db
	}

	seed := func(t *testing.T, db *sql.DB) {
		t.Helper()
		aapl := testutil.NewStock().WithSymbol("AAPL").WithPrice(120, "USD").Build(t, db)
		sap := testutil.NewStock().WithSymbol("SAP").WithPrice(200, "EUR").Build(t, db)
		testutil.NewTransaction(aapl).WithQuantity(10).WithPrice(100, "USD").
			WithDate(testutil.Date(2024, 1, 2)).Build(t, db)
		testutil.NewTransaction(sap).WithQuantity(5).WithPrice(180, "EUR").
			WithDate(testutil.Date(2024, 1, 3)).Build(t, db)
	}

	t.Run("holdings are converted to the base currency", func(t *testing.T) {
		handler, db := setupHandler(t)
		seed(t, db)

		req := httptest.NewRequest(http.MethodGet, "/api/portfolio/holdings", nil)
		w := httptest.NewRecorder()

		handler.Holdings(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var holdings []model.Holding
		require.NoError(t, json.NewDecoder(w.Body).Decode(&holdings))
		require.Len(t, holdings, 2)
		for _, h := range holdings {
			assert.Equal(t, "USD", h.BaseCurrency)
			if h.Symbol == "SAP" {
				assert.InDelta(t, 1100.0, h.CurrentValueBaseCcy, 1e-9)
				assert.InDelta(t, 990.0, h.CostBasisBaseCcy, 1e-9)
			}
		}
	})

	t.Run("summary aggregates open positions", func(t *testing.T) {
		handler, db := setupHandler(t)
		seed(t, db)

		req := httptest.NewRequest(http.MethodGet, "/api/portfolio/summary", nil)
		w := httptest.NewRecorder()

		handler.Summary(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var summary model.PortfolioSummary
		require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
		assert.Equal(t, 2, summary.StockCount)
		assert.InDelta(t, 2300.0, summary.TotalValue, 1e-9)
		assert.InDelta(t, 1990.0, summary.TotalCostBasis, 1e-9)
		assert.Zero(t, summary.FxFallbackCount)
	})

	t.Run("history honours the date range", func(t *testing.T) {
		handler, db := setupHandler(t)
		seed(t, db)

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/portfolio/history",
			map[string]string{"startDate": "2024-01-01", "endDate": "2024-01-05"})
		w := httptest.NewRecorder()

		handler.History(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var points []model.TimelinePoint
		require.NoError(t, json.NewDecoder(w.Body).Decode(&points))
		require.Len(t, points, 5)
		assert.Zero(t, points[0].WithContributions)
		assert.InDelta(t, 2300.0, points[4].WithContributions, 1e-9)
	})

	// WHY: a reversed range is a client mistake and must not yield an empty chart.
	t.Run("history rejects start after end", func(t *testing.T) {
		handler, _ := setupHandler(t)

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/portfolio/history",
			map[string]string{"startDate": "2024-02-01", "endDate": "2024-01-01"})
		w := httptest.NewRecorder()

		handler.History(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("history rejects malformed dates", func(t *testing.T) {
		handler, _ := setupHandler(t)

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/portfolio/history",
			map[string]string{"startDate": "yesterday"})
		w := httptest.NewRecorder()

		handler.History(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("refresh prices reports every stock", func(t *testing.T) {
		provider := testutil.NewMockQuoteProvider("mock", map[string]quote.Quote{
			"AAPL": {Price: 130, Currency: "USD"},
		})
		handler, db := setupHandler(t, provider)
		seed(t, db)

		req := httptest.NewRequest(http.MethodPost, "/api/portfolio/prices/refresh", nil)
		w := httptest.NewRecorder()

		handler.RefreshPrices(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var updates []model.PriceUpdate
		require.NoError(t, json.NewDecoder(w.Body).Decode(&updates))
		require.Len(t, updates, 2)
		for _, u := range updates {
			if u.Symbol == "SAP" {
				assert.NotEmpty(t, u.Error)
			} else {
				assert.InDelta(t, 130.0, u.Price, 1e-9)
			}
		}
	})
}
