package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pfolio/portfolio-api/internal/model"
	"github.com/pfolio/portfolio-api/internal/repository"
	"github.com/pfolio/portfolio-api/internal/statement"
)

// ImportPreview is a parsed statement that has not been stored.
type ImportPreview struct {
	Format statement.Format `json:"format"`
	statement.Result
}

// ImportService turns statement exports into stored transactions.
type ImportService struct {
	db              *sql.DB
	stockRepo       *repository.StockRepository
	transactionRepo *repository.TransactionRepository
	log             zerolog.Logger
}

// NewImportService creates a new ImportService with the provided repository dependencies.
func NewImportService(
	db *sql.DB,
	stockRepo *repository.StockRepository,
	transactionRepo *repository.TransactionRepository,
	log zerolog.Logger,
) *ImportService {
	return &ImportService{
		db:              db,
		stockRepo:       stockRepo,
		transactionRepo: transactionRepo,
		log:             log.With().Str("service", "import").Logger(),
	}
}

// Preview detects the format of raw text and parses it without storing anything.
func (s *ImportService) Preview(raw string) (ImportPreview, error) {
	format, res, err := statement.Parse(raw)
	if err != nil {
		return ImportPreview{}, err
	}
	return ImportPreview{Format: format, Result: res}, nil
}

// PreviewTable decodes and parses a delimited spreadsheet export.
func (s *ImportService) PreviewTable(r io.Reader) (ImportPreview, error) {
	table, err := statement.ReadTable(r)
	if err != nil {
		return ImportPreview{}, err
	}
	res, err := statement.ParseTable(table)
	if err != nil {
		return ImportPreview{}, err
	}
	return ImportPreview{Format: statement.FormatTabular, Result: res}, nil
}

// Import parses raw text and stores every trade row that is not already known.
func (s *ImportService) Import(ctx context.Context, raw string) (model.ImportResult, error) {
	preview, err := s.Preview(raw)
	if err != nil {
		return model.ImportResult{}, err
	}
	return s.persist(ctx, preview)
}

// ImportTable is Import for a delimited spreadsheet export.
func (s *ImportService) ImportTable(ctx context.Context, r io.Reader) (model.ImportResult, error) {
	preview, err := s.PreviewTable(r)
	if err != nil {
		return model.ImportResult{}, err
	}
	return s.persist(ctx, preview)
}

// persist stores the rows of one parse in a single SQL transaction.
//
// Dividend and interest rows are counted and skipped. A row whose
// (symbol, side, date, quantity, price) is already stored, including by an
// earlier row of the same batch, counts as a duplicate. Share counts that
// are not whole numbers cannot become transactions and are reported invalid.
func (s *ImportService) persist(ctx context.Context, preview ImportPreview) (model.ImportResult, error) {
	result := model.ImportResult{
		Format:      preview.Format.String(),
		InsertedIDs: []string{},
		InvalidRows: append([]string{}, preview.Invalid...),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.ImportResult{}, fmt.Errorf("failed to begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stockRepo := s.stockRepo.WithTx(tx)
	transactionRepo := s.transactionRepo.WithTx(tx)

	for _, row := range preview.Rows {
		if !row.Action.IsTrade() {
			result.NonTradeSkipped++
			continue
		}
		if !row.Shares.IsInteger() {
			result.InvalidRows = append(result.InvalidRows,
				fmt.Sprintf("%s %s: non-integral share count %s", row.Ticker, row.TradeDate.Format(dateLayout), row.Shares))
			continue
		}

		t := transactionFromRow(row)
		exists, err := transactionRepo.Exists(ctx, model.DuplicateKey{
			Symbol:   t.StockSymbol,
			Side:     t.Side,
			Date:     t.TransactionDate,
			Quantity: t.Quantity,
			Price:    t.PricePerShare,
		})
		if err != nil {
			return model.ImportResult{}, err
		}
		if exists {
			result.DuplicatesSkipped++
			continue
		}

		stock, err := stockRepo.GetOrCreateStock(ctx, t.StockSymbol)
		if err != nil {
			return model.ImportResult{}, err
		}
		t.StockID = stock.ID

		if err := transactionRepo.InsertTransaction(ctx, &t); err != nil {
			return model.ImportResult{}, err
		}
		result.InsertedIDs = append(result.InsertedIDs, t.ID)
	}

	if err := tx.Commit(); err != nil {
		return model.ImportResult{}, fmt.Errorf("failed to commit import: %w", err)
	}

	s.log.Info().
		Str("format", result.Format).
		Int("inserted", len(result.InsertedIDs)).
		Int("duplicates", result.DuplicatesSkipped).
		Int("non_trade", result.NonTradeSkipped).
		Int("invalid", len(result.InvalidRows)).
		Msg("statement imported")
	return result, nil
}

func transactionFromRow(row statement.Row) model.Transaction {
	side := model.SideBuy
	if row.Action == statement.ActionSale {
		side = model.SideSell
	}
	t := model.Transaction{
		StockSymbol:     strings.ToUpper(row.Ticker),
		Side:            side,
		Quantity:        row.Shares.IntPart(),
		PricePerShare:   row.Price.InexactFloat64(),
		Currency:        row.Currency.String(),
		TransactionDate: day(row.TradeDate),
	}
	if row.FeeAmount.Valid {
		fee := row.FeeAmount.Decimal.InexactFloat64()
		t.FeeAmount = &fee
		if row.FeeCurrency != nil {
			feeCurrency := row.FeeCurrency.String()
			t.FeeCurrency = &feeCurrency
		}
	}
	if row.FxRate.Valid {
		rate := row.FxRate.Decimal.InexactFloat64()
		t.FxRate = &rate
	}
	return t
}
