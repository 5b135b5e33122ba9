package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/pfolio/portfolio-api/internal/model"
)

// StockBuilder provides a fluent interface for creating test stocks.
//
// Example usage:
//
//	// Simple creation with defaults
//	stock := testutil.NewStock().Build(t, db)
//
//	// Priced stock
//	stock := testutil.NewStock().
//	    WithSymbol("AAPL").
//	    WithPrice(190.5, "USD").
//	    Build(t, db)
type StockBuilder struct {
	ID            string
	Symbol        string
	CompanyName   *string
	CurrentPrice  *float64
	PriceCurrency *string
	LastUpdated   *time.Time
}

// NewStock creates a StockBuilder with a random symbol and no price.
func NewStock() *StockBuilder {
	return &StockBuilder{
		ID:     MakeID(),
		Symbol: MakeSymbol("TST"),
	}
}

// WithSymbol sets a custom symbol.
func (b *StockBuilder) WithSymbol(symbol string) *StockBuilder {
	b.Symbol = symbol
	return b
}

// WithCompanyName sets the display name.
func (b *StockBuilder) WithCompanyName(name string) *StockBuilder {
	b.CompanyName = &name
	return b
}

// WithPrice sets the latest price and its currency.
func (b *StockBuilder) WithPrice(price float64, currency string) *StockBuilder {
	now := time.Now().UTC().Truncate(time.Second)
	b.CurrentPrice = &price
	b.PriceCurrency = &currency
	b.LastUpdated = &now
	return b
}

// Build inserts the stock into the database.
func (b *StockBuilder) Build(t *testing.T, db *sql.DB) model.Stock {
	t.Helper()

	var lastUpdated any
	if b.LastUpdated != nil {
		lastUpdated = b.LastUpdated.Format(time.RFC3339)
	}

	query := `
		INSERT INTO stock (id, symbol, company_name, current_price, price_currency, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.Exec(query, b.ID, b.Symbol, deref(b.CompanyName), deref(b.CurrentPrice), deref(b.PriceCurrency), lastUpdated)
	if err != nil {
		t.Fatalf("Failed to create stock: %v", err)
	}

	return model.Stock{
		ID:            b.ID,
		Symbol:        b.Symbol,
		CompanyName:   b.CompanyName,
		CurrentPrice:  b.CurrentPrice,
		PriceCurrency: b.PriceCurrency,
		LastUpdated:   b.LastUpdated,
	}
}

// TransactionBuilder provides a fluent interface for creating test transactions.
//
// Example usage:
//
//	tx := testutil.NewTransaction(stock).
//	    Sell().
//	    WithQuantity(5).
//	    WithPrice(12.5, "EUR").
//	    WithFee(1, "EUR").
//	    Build(t, db)
type TransactionBuilder struct {
	ID              string
	Stock           model.Stock
	Side            string
	Quantity        int64
	PricePerShare   float64
	Currency        string
	FeeAmount       *float64
	FeeCurrency     *string
	FxRate          *float64
	TransactionDate time.Time
}

// NewTransaction creates a buy of 10 shares at 100 USD dated 2024-01-15.
func NewTransaction(stock model.Stock) *TransactionBuilder {
	return &TransactionBuilder{
		ID:              MakeID(),
		Stock:           stock,
		Side:            model.SideBuy,
		Quantity:        10,
		PricePerShare:   100,
		Currency:        "USD",
		TransactionDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

// Sell marks the transaction as a sale.
func (b *TransactionBuilder) Sell() *TransactionBuilder {
	b.Side = model.SideSell
	return b
}

// WithQuantity sets the share count.
func (b *TransactionBuilder) WithQuantity(qty int64) *TransactionBuilder {
	b.Quantity = qty
	return b
}

// WithPrice sets the price per share and the trade currency.
func (b *TransactionBuilder) WithPrice(price float64, currency string) *TransactionBuilder {
	b.PricePerShare = price
	b.Currency = currency
	return b
}

// WithFee sets the fee. An empty currency means the trade currency.
func (b *TransactionBuilder) WithFee(amount float64, currency string) *TransactionBuilder {
	b.FeeAmount = &amount
	if currency != "" {
		b.FeeCurrency = &currency
	}
	return b
}

// WithFxRate sets the informational trade-to-base rate.
func (b *TransactionBuilder) WithFxRate(rate float64) *TransactionBuilder {
	b.FxRate = &rate
	return b
}

// WithDate sets a custom date.
func (b *TransactionBuilder) WithDate(date time.Time) *TransactionBuilder {
	b.TransactionDate = date
	return b
}

// Build inserts the transaction into the database. Transactions built in
// sequence keep their insertion order for same-day tie breaks.
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	createdAt := time.Now().UTC().Truncate(time.Second)
	query := `
		INSERT INTO "transaction" (
			id, stock_id, side, quantity, price_per_share, currency,
			fee_amount, fee_currency, fx_rate, transaction_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := db.Exec(query,
		b.ID, b.Stock.ID, b.Side, b.Quantity, b.PricePerShare, b.Currency,
		deref(b.FeeAmount), deref(b.FeeCurrency), deref(b.FxRate),
		b.TransactionDate.Format("2006-01-02"), createdAt.Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("Failed to create transaction: %v", err)
	}
	seq, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read transaction rowid: %v", err)
	}

	return model.Transaction{
		ID:              b.ID,
		Seq:             seq,
		StockID:         b.Stock.ID,
		StockSymbol:     b.Stock.Symbol,
		Side:            b.Side,
		Quantity:        b.Quantity,
		PricePerShare:   b.PricePerShare,
		Currency:        b.Currency,
		FeeAmount:       b.FeeAmount,
		FeeCurrency:     b.FeeCurrency,
		FxRate:          b.FxRate,
		TransactionDate: b.TransactionDate,
		CreatedAt:       createdAt,
	}
}

// ExchangeRateBuilder provides a fluent interface for caching test rates.
//
// Example usage:
//
//	testutil.NewExchangeRate("EUR", "USD", 1.1).
//	    WithDate(date).
//	    Manual().
//	    Build(t, db)
type ExchangeRateBuilder struct {
	Base   string
	Quote  string
	Date   time.Time
	Rate   float64
	Source string
}

// NewExchangeRate creates a provider rate dated 2024-01-15.
func NewExchangeRate(base, quote string, rate float64) *ExchangeRateBuilder {
	return &ExchangeRateBuilder{
		Base:   base,
		Quote:  quote,
		Date:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Rate:   rate,
		Source: model.RateSourceProvider,
	}
}

// WithDate sets a custom date.
func (b *ExchangeRateBuilder) WithDate(date time.Time) *ExchangeRateBuilder {
	b.Date = date
	return b
}

// Manual tags the rate as an operator override.
func (b *ExchangeRateBuilder) Manual() *ExchangeRateBuilder {
	b.Source = model.RateSourceManual
	return b
}

// Build inserts the rate into the database.
func (b *ExchangeRateBuilder) Build(t *testing.T, db *sql.DB) model.ExchangeRate {
	t.Helper()

	fetchedAt := time.Now().UTC().Truncate(time.Second)
	query := `
		INSERT INTO exchange_rate (base, quote, date, rate, source, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.Exec(query, b.Base, b.Quote, b.Date.Format("2006-01-02"), b.Rate, b.Source, fetchedAt.Format(time.RFC3339))
	if err != nil {
		t.Fatalf("Failed to create exchange rate: %v", err)
	}

	return model.ExchangeRate{
		Base:      b.Base,
		Quote:     b.Quote,
		Date:      b.Date,
		Rate:      b.Rate,
		Source:    b.Source,
		FetchedAt: fetchedAt,
	}
}

// deref turns a nil pointer into a SQL NULL.
func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
