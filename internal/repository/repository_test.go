package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/currency"
	"github.com/pfolio/portfolio-api/internal/model"
	"github.com/pfolio/portfolio-api/internal/repository"
	"github.com/pfolio/portfolio-api/internal/testutil"
)

// TestExchangeRateRepository tests the rate cache.
//
// WHY: a manual correction must survive every later provider download for
// the same key, while provider rows are refreshed in place.
func TestExchangeRateRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.NewExchangeRateRepository(db)
	day := testutil.Date(2024, 3, 15)

	t.Run("miss", func(t *testing.T) {
		_, err := repo.GetRate(ctx, currency.EUR, currency.USD, day)
		assert.ErrorIs(t, err, apperrors.ErrExchangeRateNotFound)
	})

	t.Run("provider rows are replaced by newer downloads", func(t *testing.T) {
		require.NoError(t, repo.UpsertProviderRates(ctx, currency.EUR, day, map[currency.Code]float64{currency.USD: 1.08, currency.SEK: 11.3}))
		require.NoError(t, repo.UpsertProviderRates(ctx, currency.EUR, day, map[currency.Code]float64{currency.USD: 1.09}))

		got, err := repo.GetRate(ctx, currency.EUR, currency.USD, day)
		require.NoError(t, err)
		assert.InDelta(t, 1.09, got.Rate, 1e-9)
		assert.Equal(t, model.RateSourceProvider, got.Source)
		assert.Equal(t, day, got.Date)
		testutil.AssertRowCount(t, db, "exchange_rate", 2)
	})

	t.Run("manual rows survive provider downloads", func(t *testing.T) {
		_, err := repo.UpsertManualRate(ctx, currency.EUR, currency.SEK, day, 11.5)
		require.NoError(t, err)
		require.NoError(t, repo.UpsertProviderRates(ctx, currency.EUR, day, map[currency.Code]float64{currency.SEK: 11.0}))

		got, err := repo.GetRate(ctx, currency.EUR, currency.SEK, day)
		require.NoError(t, err)
		assert.InDelta(t, 11.5, got.Rate, 1e-9)
		assert.Equal(t, model.RateSourceManual, got.Source)
	})

	t.Run("manual rows replace provider rows", func(t *testing.T) {
		_, err := repo.UpsertManualRate(ctx, currency.EUR, currency.USD, day, 1.2)
		require.NoError(t, err)

		got, err := repo.GetRate(ctx, currency.EUR, currency.USD, day)
		require.NoError(t, err)
		assert.InDelta(t, 1.2, got.Rate, 1e-9)
		assert.Equal(t, model.RateSourceManual, got.Source)
	})

	t.Run("seeded manual rows read back as manual", func(t *testing.T) {
		testutil.NewExchangeRate("EUR", "GBP", 0.86).WithDate(day).Manual().Build(t, db)
		require.NoError(t, repo.UpsertProviderRates(ctx, currency.EUR, day, map[currency.Code]float64{currency.GBP: 0.85}))

		got, err := repo.GetRate(ctx, currency.EUR, currency.GBP, day)
		require.NoError(t, err)
		assert.InDelta(t, 0.86, got.Rate, 1e-9)
		assert.Equal(t, model.RateSourceManual, got.Source)
	})
}

func TestStockRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.NewStockRepository(db)

	t.Run("get or create is idempotent and upper-cases", func(t *testing.T) {
		first, err := repo.GetOrCreateStock(ctx, " aapl ")
		require.NoError(t, err)
		second, err := repo.GetOrCreateStock(ctx, "AAPL")
		require.NoError(t, err)

		assert.Equal(t, "AAPL", first.Symbol)
		assert.Equal(t, first.ID, second.ID)
		testutil.AssertRowCount(t, db, "stock", 1)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		_, err := repo.GetStockBySymbol(ctx, "NOPE")
		assert.ErrorIs(t, err, apperrors.ErrStockNotFound)
	})

	t.Run("update price keeps the stored name when none is given", func(t *testing.T) {
		stock := testutil.NewStock().WithSymbol("VOLV-B").WithCompanyName("Volvo B").Build(t, db)
		at := time.Date(2024, 6, 3, 15, 30, 0, 0, time.UTC)

		require.NoError(t, repo.UpdatePrice(ctx, stock.ID, 280.5, "SEK", "", at))

		got, err := repo.GetStockBySymbol(ctx, "VOLV-B")
		require.NoError(t, err)
		require.NotNil(t, got.CurrentPrice)
		assert.InDelta(t, 280.5, *got.CurrentPrice, 1e-9)
		assert.Equal(t, "SEK", *got.PriceCurrency)
		assert.Equal(t, "Volvo B", *got.CompanyName)
		assert.Equal(t, at, got.LastUpdated.UTC())
	})

	t.Run("update price of unknown stock", func(t *testing.T) {
		err := repo.UpdatePrice(ctx, testutil.MakeID(), 1, "USD", "", time.Now())
		assert.ErrorIs(t, err, apperrors.ErrStockNotFound)
	})

	t.Run("stocks are ordered by symbol", func(t *testing.T) {
		stocks, err := repo.GetStocks(ctx)
		require.NoError(t, err)
		require.Len(t, stocks, 2)
		assert.Equal(t, "AAPL", stocks[0].Symbol)
		assert.Equal(t, "VOLV-B", stocks[1].Symbol)
	})
}

func TestTransactionRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)
	stock := testutil.NewStock().WithSymbol("SAP").Build(t, db)

	later := testutil.NewTransaction(stock).WithPrice(180, "EUR").WithDate(testutil.Date(2024, 2, 1)).Build(t, db)
	first := testutil.NewTransaction(stock).WithPrice(170, "EUR").WithDate(testutil.Date(2024, 1, 1)).Build(t, db)
	sameDay := testutil.NewTransaction(stock).Sell().WithQuantity(2).WithPrice(175, "EUR").
		WithDate(testutil.Date(2024, 1, 1)).Build(t, db)
	usd := testutil.NewTransaction(stock).WithPrice(190, "USD").WithDate(testutil.Date(2024, 3, 1)).Build(t, db)

	// WHY: cost basis replays trades in date order and same-day trades in insertion order.
	t.Run("replay order", func(t *testing.T) {
		txs, err := repo.GetTransactions(ctx)
		require.NoError(t, err)
		require.Len(t, txs, 4)
		assert.Equal(t, []string{first.ID, sameDay.ID, later.ID, usd.ID},
			[]string{txs[0].ID, txs[1].ID, txs[2].ID, txs[3].ID})
		assert.Equal(t, "SAP", txs[0].StockSymbol)
	})

	t.Run("exists matches the duplicate key", func(t *testing.T) {
		key := model.DuplicateKey{Symbol: "SAP", Side: model.SideBuy, Date: testutil.Date(2024, 1, 1), Quantity: 10, Price: 170}
		exists, err := repo.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, exists)

		key.Price = 170.5
		exists, err = repo.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	// WHY: a recorded fx error is not final; the row stays a backfill
	// candidate until a rate is stored, and storing one clears the error.
	t.Run("missing fx lists foreign trades without a rate", func(t *testing.T) {
		missing, err := repo.GetTransactionsMissingFx(ctx, "USD")
		require.NoError(t, err)
		assert.Len(t, missing, 3)

		require.NoError(t, repo.SetFxRate(ctx, first.ID, 1.09))
		require.NoError(t, repo.SetFxError(ctx, sameDay.ID, "fx unreachable"))

		missing, err = repo.GetTransactionsMissingFx(ctx, "USD")
		require.NoError(t, err)
		require.Len(t, missing, 2)
		assert.Equal(t, sameDay.ID, missing[0].ID)
		require.NotNil(t, missing[0].FxError)
		assert.Equal(t, later.ID, missing[1].ID)

		got, err := repo.GetTransaction(ctx, first.ID)
		require.NoError(t, err)
		assert.InDelta(t, 1.09, *got.FxRate, 1e-9)

		require.NoError(t, repo.SetFxRate(ctx, sameDay.ID, 1.08))
		got, err = repo.GetTransaction(ctx, sameDay.ID)
		require.NoError(t, err)
		assert.Nil(t, got.FxError)

		missing, err = repo.GetTransactionsMissingFx(ctx, "USD")
		require.NoError(t, err)
		require.Len(t, missing, 1)
		assert.Equal(t, later.ID, missing[0].ID)
	})

	t.Run("set fx rate of unknown transaction", func(t *testing.T) {
		assert.ErrorIs(t, repo.SetFxRate(ctx, testutil.MakeID(), 1), apperrors.ErrTransactionNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteTransaction(ctx, usd.ID))
		_, err := repo.GetTransaction(ctx, usd.ID)
		assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)
		assert.ErrorIs(t, repo.DeleteTransaction(ctx, usd.ID), apperrors.ErrTransactionNotFound)
	})

	t.Run("imported rate keeps a trade out of the backfill", func(t *testing.T) {
		testutil.NewTransaction(stock).WithPrice(160, "EUR").WithFxRate(1.1).
			WithDate(testutil.Date(2024, 4, 1)).Build(t, db)

		missing, err := repo.GetTransactionsMissingFx(ctx, "USD")
		require.NoError(t, err)
		require.Len(t, missing, 1)
		assert.Equal(t, later.ID, missing[0].ID)
	})
}
