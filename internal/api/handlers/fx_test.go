package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfolio/portfolio-api/internal/api/request"
	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/fx"
	"github.com/pfolio/portfolio-api/internal/model"
	"github.com/pfolio/portfolio-api/internal/service"
	"github.com/pfolio/portfolio-api/internal/testutil"
)

func TestFxHandler(t *testing.T) {
	setupHandler := func(t *testing.T, providers ...fx.Provider) (*FxHandler, *sql.DB) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		fs := testutil.NewTestFxService(t, db, providers...)
		ps := testutil.NewTestPortfolioService(t, db, testutil.NewTestResolver(t, db, providers...))
		return NewFxHandler(fs, ps), db
	}

	t.Run("override stores a manual rate", func(t *testing.T) {
		handler, db := setupHandler(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/fx/override",
			request.FxOverrideRequest{Base: "EUR", Quote: "USD", Date: "2024-03-15", Rate: 1.2})
		w := httptest.NewRecorder()

		handler.Override(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var rate model.ExchangeRate
		require.NoError(t, json.NewDecoder(w.Body).Decode(&rate))
		assert.Equal(t, model.RateSourceManual, rate.Source)
		testutil.AssertRowCount(t, db, "exchange_rate", 1)
	})

	t.Run("override rejects a non-positive rate", func(t *testing.T) {
		handler, _ := setupHandler(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/fx/override",
			request.FxOverrideRequest{Base: "EUR", Quote: "USD", Date: "2024-03-15", Rate: 0})
		w := httptest.NewRecorder()

		handler.Override(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rate is served from the cache", func(t *testing.T) {
		handler, db := setupHandler(t, testutil.NewMockRateProvider(nil).MustNotBeCalled(t))
		testutil.NewExchangeRate("EUR", "USD", 1.1).WithDate(testutil.Date(2024, 1, 1)).Build(t, db)

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/fx/rate",
			map[string]string{"base": "EUR", "quote": "USD", "date": "2024-01-01"})
		w := httptest.NewRecorder()

		handler.Rate(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var lookup model.RateLookup
		require.NoError(t, json.NewDecoder(w.Body).Decode(&lookup))
		assert.InDelta(t, 1.1, lookup.Rate, 1e-9)
		assert.Equal(t, "cache", lookup.Source)
	})

	t.Run("rate rejects an unsupported code", func(t *testing.T) {
		handler, _ := setupHandler(t)

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/fx/rate",
			map[string]string{"base": "EURO", "quote": "USD"})
		w := httptest.NewRecorder()

		handler.Rate(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	// WHY: an explicit lookup must report the failure instead of answering 1.0.
	t.Run("rate fails when no provider can answer", func(t *testing.T) {
		provider := testutil.NewMockRateProvider(nil).
			WithError(apperrors.NewFxError(apperrors.FxMissingCredential, "mock", nil))
		handler, _ := setupHandler(t, provider)

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/fx/rate",
			map[string]string{"base": "EUR", "quote": "USD", "date": "2024-01-01"})
		w := httptest.NewRecorder()

		handler.Rate(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "missing_credential")
	})

	t.Run("refresh warms the day and backfills", func(t *testing.T) {
		provider := testutil.NewMockRateProvider(map[string]float64{"EUR": 0.9, "SEK": 10.5, "GBP": 0.8, "USD": 1.1})
		handler, db := setupHandler(t, provider)
		stock := testutil.NewStock().WithSymbol("SAP").Build(t, db)
		testutil.NewTransaction(stock).WithPrice(180, "EUR").WithDate(testutil.Date(2024, 5, 2)).Build(t, db)

		req := testutil.NewRequestWithQueryParams(http.MethodPost, "/api/fx/refresh",
			map[string]string{"date": "2024-05-02"})
		w := httptest.NewRecorder()

		handler.Refresh(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var report service.FxRefreshReport
		require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
		assert.Equal(t, 3, report.Rates.Resolved)
		assert.Equal(t, 1, report.Backfill.Updated)
	})

	t.Run("refresh rejects a malformed date", func(t *testing.T) {
		handler, _ := setupHandler(t)

		req := testutil.NewRequestWithQueryParams(http.MethodPost, "/api/fx/refresh",
			map[string]string{"date": "02/05/2024"})
		w := httptest.NewRecorder()

		handler.Refresh(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
