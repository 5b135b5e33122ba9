package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfolio/portfolio-api/internal/api/request"
	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/model"
	"github.com/pfolio/portfolio-api/internal/testutil"
)

func TestTransactionService_CreateTransaction(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestTransactionService(t, db)

	fee := 1.5
	feeCcy := "sek"
	created, err := svc.CreateTransaction(ctx, request.CreateTransactionRequest{
		Symbol:        " volv-b ",
		Side:          "BUY",
		Date:          "2024-04-02",
		Quantity:      20,
		PricePerShare: 280.5,
		Currency:      "sek",
		FeeAmount:     &fee,
		FeeCurrency:   &feeCcy,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NotZero(t, created.Seq)
	assert.Equal(t, "VOLV-B", created.StockSymbol)
	assert.Equal(t, model.SideBuy, created.Side)
	assert.Equal(t, "SEK", created.Currency)
	assert.Equal(t, "SEK", *created.FeeCurrency)

	stored, err := svc.GetTransaction(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.StockID, stored.StockID)
	assert.Equal(t, testutil.Date(2024, 4, 2), stored.TransactionDate.UTC())

	t.Run("reuses the stock", func(t *testing.T) {
		_, err := svc.CreateTransaction(ctx, request.CreateTransactionRequest{
			Symbol: "VOLV-B", Side: "sell", Date: "2024-05-02", Quantity: 5, PricePerShare: 300, Currency: "SEK",
		})
		require.NoError(t, err)
		testutil.AssertRowCount(t, db, "stock", 1)
	})
}

func TestTransactionService_GetTransactions(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestTransactionService(t, db)

	aapl := testutil.NewStock().WithSymbol("AAPL").Build(t, db)
	msft := testutil.NewStock().WithSymbol("MSFT").Build(t, db)
	first := testutil.NewTransaction(aapl).WithDate(testutil.Date(2024, 1, 1)).Build(t, db)
	testutil.NewTransaction(msft).WithDate(testutil.Date(2024, 1, 2)).Build(t, db)
	last := testutil.NewTransaction(aapl).Sell().WithQuantity(2).WithDate(testutil.Date(2024, 1, 3)).Build(t, db)

	t.Run("all in date order", func(t *testing.T) {
		txs, err := svc.GetTransactions(ctx, request.TransactionFilters{SortDir: "asc"})
		require.NoError(t, err)
		require.Len(t, txs, 3)
		assert.Equal(t, first.ID, txs[0].ID)
	})

	t.Run("filtered and reversed", func(t *testing.T) {
		txs, err := svc.GetTransactions(ctx, request.TransactionFilters{Symbol: "AAPL", SortDir: "desc"})
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.Equal(t, last.ID, txs[0].ID)
	})

	t.Run("by side", func(t *testing.T) {
		txs, err := svc.GetTransactions(ctx, request.TransactionFilters{Side: model.SideSell})
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, last.ID, txs[0].ID)
	})
}

func TestTransactionService_DeleteTransaction(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestTransactionService(t, db)

	stock := testutil.NewStock().Build(t, db)
	tx := testutil.NewTransaction(stock).Build(t, db)

	require.NoError(t, svc.DeleteTransaction(ctx, tx.ID))
	testutil.AssertRowCount(t, db, `"transaction"`, 0)

	err := svc.DeleteTransaction(ctx, tx.ID)
	assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)
}
