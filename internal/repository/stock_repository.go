package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/model"
)

// StockRepository provides data access methods for the stock table.
type StockRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewStockRepository creates a new StockRepository with the provided database connection.
func NewStockRepository(db *sql.DB) *StockRepository {
	return &StockRepository{db: db}
}

// WithTx returns a new StockRepository scoped to the provided transaction.
func (r *StockRepository) WithTx(tx *sql.Tx) *StockRepository {
	return &StockRepository{db: r.db, tx: tx}
}

func (r *StockRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const stockColumns = `id, symbol, company_name, current_price, price_currency, last_updated`

// GetStocks returns every stock ordered by symbol.
func (r *StockRepository) GetStocks(ctx context.Context) ([]model.Stock, error) {
	rows, err := r.getQuerier().QueryContext(ctx, `SELECT `+stockColumns+` FROM stock ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock table: %w", err)
	}
	defer rows.Close()

	stocks := []model.Stock{}
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		stocks = append(stocks, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock table: %w", err)
	}
	return stocks, nil
}

// GetStockBySymbol returns apperrors.ErrStockNotFound when no row matches.
func (r *StockRepository) GetStockBySymbol(ctx context.Context, symbol string) (model.Stock, error) {
	row := r.getQuerier().QueryRowContext(ctx, `SELECT `+stockColumns+` FROM stock WHERE symbol = ?`, strings.ToUpper(symbol))
	s, err := scanStock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Stock{}, apperrors.ErrStockNotFound
	}
	return s, err
}

// GetOrCreateStock returns the stock with symbol, inserting it first when absent.
func (r *StockRepository) GetOrCreateStock(ctx context.Context, symbol string) (model.Stock, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	s, err := r.GetStockBySymbol(ctx, symbol)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, apperrors.ErrStockNotFound) {
		return model.Stock{}, err
	}

	s = model.Stock{ID: uuid.New().String(), Symbol: symbol}
	if _, err := r.getQuerier().ExecContext(ctx, `INSERT INTO stock (id, symbol) VALUES (?, ?)`, s.ID, s.Symbol); err != nil {
		return model.Stock{}, fmt.Errorf("failed to insert stock: %w", err)
	}
	return s, nil
}

// UpdatePrice stores the latest quote. An empty companyName keeps the stored name.
func (r *StockRepository) UpdatePrice(ctx context.Context, stockID string, price float64, currency, companyName string, at time.Time) error {
	query := `
		UPDATE stock
		SET current_price = ?,
			price_currency = NULLIF(?, ''),
			company_name = COALESCE(NULLIF(?, ''), company_name),
			last_updated = ?
		WHERE id = ?
	`
	result, err := r.getQuerier().ExecContext(ctx, query, price, currency, companyName, at.UTC().Format(time.RFC3339), stockID)
	if err != nil {
		return fmt.Errorf("failed to update stock price: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.ErrStockNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStock(row rowScanner) (model.Stock, error) {
	var s model.Stock
	var name, ccy, updated sql.NullString
	var price sql.NullFloat64

	if err := row.Scan(&s.ID, &s.Symbol, &name, &price, &ccy, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Stock{}, err
		}
		return model.Stock{}, fmt.Errorf("failed to scan stock table results: %w", err)
	}
	s.CompanyName = nullString(name)
	s.CurrentPrice = nullFloat(price)
	s.PriceCurrency = nullString(ccy)

	var err error
	if s.LastUpdated, err = nullTime(updated); err != nil {
		return model.Stock{}, err
	}
	return s, nil
}
