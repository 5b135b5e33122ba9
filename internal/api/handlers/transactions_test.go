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
	"github.com/pfolio/portfolio-api/internal/model"
	"github.com/pfolio/portfolio-api/internal/testutil"
)

func TestTransactionHandler_Transactions(t *testing.T) {
	setupHandler := func(t *testing.T) (*TransactionHandler, *sql.DB) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		return NewTransactionHandler(testutil.NewTestTransactionService(t, db)), db
	}

	t.Run("returns empty list when no transactions exist", func(t *testing.T) {
		handler, _ := setupHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/api/portfolio/transactions", nil)
		w := httptest.NewRecorder()

		handler.Transactions(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var transactions []model.Transaction
		require.NoError(t, json.NewDecoder(w.Body).Decode(&transactions))
		assert.Empty(t, transactions)
	})

	t.Run("filters by symbol and side", func(t *testing.T) {
		handler, db := setupHandler(t)
		aapl := testutil.NewStock().WithSymbol("AAPL").Build(t, db)
		msft := testutil.NewStock().WithSymbol("MSFT").Build(t, db)
		testutil.NewTransaction(aapl).Build(t, db)
		testutil.NewTransaction(aapl).Sell().WithQuantity(2).WithDate(testutil.Date(2024, 2, 1)).Build(t, db)
		testutil.NewTransaction(msft).Build(t, db)

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/portfolio/transactions",
			map[string]string{"symbol": "aapl", "side": "sell"})
		w := httptest.NewRecorder()

		handler.Transactions(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var transactions []model.Transaction
		require.NoError(t, json.NewDecoder(w.Body).Decode(&transactions))
		require.Len(t, transactions, 1)
		assert.Equal(t, "AAPL", transactions[0].StockSymbol)
		assert.Equal(t, model.SideSell, transactions[0].Side)
	})

	t.Run("returns 400 for an unknown side", func(t *testing.T) {
		handler, _ := setupHandler(t)

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/portfolio/transactions",
			map[string]string{"side": "hold"})
		w := httptest.NewRecorder()

		handler.Transactions(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	setupHandler := func(t *testing.T) (*TransactionHandler, *sql.DB) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		return NewTransactionHandler(testutil.NewTestTransactionService(t, db)), db
	}

	t.Run("creates a transaction and its stock", func(t *testing.T) {
		handler, db := setupHandler(t)
		fee := 1.5
		feeCurrency := "usd"

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/portfolio/transactions", request.CreateTransactionRequest{
			Symbol:        "nvda",
			Side:          "buy",
			Date:          "2024-03-01",
			Quantity:      3,
			PricePerShare: 800,
			Currency:      "usd",
			FeeAmount:     &fee,
			FeeCurrency:   &feeCurrency,
		})
		w := httptest.NewRecorder()

		handler.CreateTransaction(w, req)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var created model.Transaction
		require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
		assert.Equal(t, "NVDA", created.StockSymbol)
		assert.Equal(t, "USD", created.Currency)
		assert.NotEmpty(t, created.ID)
		testutil.AssertRowCount(t, db, "stock", 1)
		testutil.AssertRowCount(t, db, `"transaction"`, 1)
	})

	// WHY: all invalid fields are reported at once so the form can mark them.
	t.Run("returns 400 with every invalid field", func(t *testing.T) {
		handler, db := setupHandler(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/portfolio/transactions", request.CreateTransactionRequest{
			Side:          "hold",
			Date:          "01-03-2024",
			PricePerShare: -1,
			Currency:      "dollars",
		})
		w := httptest.NewRecorder()

		handler.CreateTransaction(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		for _, field := range []string{"symbol", "side", "date", "quantity", "pricePerShare", "currency"} {
			assert.Contains(t, w.Body.String(), field)
		}
		testutil.AssertRowCount(t, db, `"transaction"`, 0)
	})

	t.Run("returns 400 for malformed JSON", func(t *testing.T) {
		handler, _ := setupHandler(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/portfolio/transactions", "not an object")
		w := httptest.NewRecorder()

		handler.CreateTransaction(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	setupHandler := func(t *testing.T) (*TransactionHandler, *sql.DB) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		return NewTransactionHandler(testutil.NewTestTransactionService(t, db)), db
	}

	t.Run("deletes an existing transaction", func(t *testing.T) {
		handler, db := setupHandler(t)
		stock := testutil.NewStock().Build(t, db)
		tx := testutil.NewTransaction(stock).Build(t, db)

		req := testutil.NewRequestWithURLParams(http.MethodDelete, "/api/portfolio/transactions/"+tx.ID,
			map[string]string{"uuid": tx.ID})
		w := httptest.NewRecorder()

		handler.DeleteTransaction(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		testutil.AssertRowCount(t, db, `"transaction"`, 0)
	})

	t.Run("returns 404 for an unknown transaction", func(t *testing.T) {
		handler, _ := setupHandler(t)
		id := testutil.MakeID()

		req := testutil.NewRequestWithURLParams(http.MethodDelete, "/api/portfolio/transactions/"+id,
			map[string]string{"uuid": id})
		w := httptest.NewRecorder()

		handler.DeleteTransaction(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTransactionHandler_GetTransaction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewTransactionHandler(testutil.NewTestTransactionService(t, db))
	stock := testutil.NewStock().WithSymbol("AAPL").Build(t, db)
	tx := testutil.NewTransaction(stock).Build(t, db)

	req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/portfolio/transactions/"+tx.ID,
		map[string]string{"uuid": tx.ID})
	w := httptest.NewRecorder()

	handler.GetTransaction(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got model.Transaction
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, tx.ID, got.ID)
	assert.Equal(t, "AAPL", got.StockSymbol)
}
