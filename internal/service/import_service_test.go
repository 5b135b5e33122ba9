package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/model"
	"github.com/pfolio/portfolio-api/internal/repository"
	"github.com/pfolio/portfolio-api/internal/statement"
	"github.com/pfolio/portfolio-api/internal/testutil"
)

const tableExport = "Date,Symbol,Action,Quantity,Price,Currency\n" +
	"2024-01-15,AAPL,buy,10,150,USD\n" +
	"2024-02-01,AAPL,sell,4,170,USD\n" +
	"2024-02-05,AAPL,dividend,10,0.24,USD\n" +
	"2024-03-01,MSFT,buy,1.5,400,USD\n" +
	"2024-03-02,MSFT,buy,abc,400,USD\n"

const googleExport = `GOOG purchase
€6,720.00
14/05/2025 · 42 shares at €160.00
MSFT sale
€2,245.70
13/05/2025 · 5 shares at €449.14
Gain
10.04%, +204.95
Invested 78 days
MSFT sale
€2,245.70
13/05/2025 · 5 shares at €449.14
`

func TestImportService_Preview(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestImportService(t, db)

	t.Run("detects the format and stores nothing", func(t *testing.T) {
		preview, err := svc.Preview(googleExport)
		require.NoError(t, err)
		assert.Equal(t, statement.FormatGoogleFinanceText, preview.Format)
		assert.Len(t, preview.Rows, 3)
		testutil.AssertRowCount(t, db, `"transaction"`, 0)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := svc.Preview("hello world")
		assert.ErrorIs(t, err, apperrors.ErrUnknownFormat)
	})

	t.Run("table upload", func(t *testing.T) {
		preview, err := svc.PreviewTable(strings.NewReader(tableExport))
		require.NoError(t, err)
		assert.Equal(t, statement.FormatTabular, preview.Format)
		assert.Len(t, preview.Rows, 4)
		assert.Len(t, preview.Invalid, 1)
	})

	t.Run("table upload missing columns", func(t *testing.T) {
		_, err := svc.PreviewTable(strings.NewReader("Date,Symbol,Action,Quantity,Price\n2024-01-01,AAPL,buy,1,1\n"))
		assert.ErrorIs(t, err, apperrors.ErrStructuralImport)
	})
}

// TestImportService_Import tests persistence and duplicate detection.
//
// WHY: importing the same statement twice must insert nothing the second
// time, and rows that cannot become transactions must be reported rather
// than silently dropped.
func TestImportService_Import(t *testing.T) {
	t.Run("stores trades and counts the rest", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestImportService(t, db)

		res, err := svc.ImportTable(context.Background(), strings.NewReader(tableExport))
		require.NoError(t, err)

		assert.Equal(t, "tabular", res.Format)
		assert.Len(t, res.InsertedIDs, 2)
		assert.Equal(t, 1, res.NonTradeSkipped)
		assert.Equal(t, 0, res.DuplicatesSkipped)
		require.Len(t, res.InvalidRows, 2)
		assert.Contains(t, res.InvalidRows[1], "non-integral share count 1.5")

		testutil.AssertRowCount(t, db, `"transaction"`, 2)
		testutil.AssertRowCount(t, db, "stock", 1)

		txs, err := repository.NewTransactionRepository(db).GetTransactions(context.Background())
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.Equal(t, "AAPL", txs[0].StockSymbol)
		assert.Equal(t, model.SideBuy, txs[0].Side)
		assert.Equal(t, int64(10), txs[0].Quantity)
		assert.Equal(t, model.SideSell, txs[1].Side)
		assert.Less(t, txs[0].Seq, txs[1].Seq)
	})

	t.Run("second import inserts zero records", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestImportService(t, db)

		first, err := svc.Import(context.Background(), googleExport)
		require.NoError(t, err)
		// the two identical MSFT sales collapse within the batch
		assert.Len(t, first.InsertedIDs, 2)
		assert.Equal(t, 1, first.DuplicatesSkipped)

		second, err := svc.Import(context.Background(), googleExport)
		require.NoError(t, err)
		assert.Empty(t, second.InsertedIDs)
		assert.Equal(t, 3, second.DuplicatesSkipped)
		testutil.AssertRowCount(t, db, `"transaction"`, 2)
	})

	t.Run("structural failure stores nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestImportService(t, db)

		_, err := svc.ImportTable(context.Background(), strings.NewReader("Date,Symbol,Action,Quantity,Currency\n2024-01-01,AAPL,buy,1,USD\n"))
		var structural *apperrors.StructuralImportError
		require.ErrorAs(t, err, &structural)
		assert.Equal(t, []string{"Price"}, structural.Missing)
		testutil.AssertRowCount(t, db, "stock", 0)
	})
}
