package testutil

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pfolio/portfolio-api/internal/currency"
	"github.com/pfolio/portfolio-api/internal/fx"
	"github.com/pfolio/portfolio-api/internal/quote"
	"github.com/pfolio/portfolio-api/internal/repository"
	"github.com/pfolio/portfolio-api/internal/service"
)

// TestSupportedCurrencies are the currencies test resolvers cache.
var TestSupportedCurrencies = []currency.Code{currency.USD, currency.EUR, currency.SEK, currency.GBP}

// NewTestResolver creates an fx.Resolver over the database's rate cache with
// millisecond backoff.
func NewTestResolver(t *testing.T, db *sql.DB, providers ...fx.Provider) *fx.Resolver {
	t.Helper()

	return fx.NewResolver(
		repository.NewExchangeRateRepository(db),
		providers,
		zerolog.Nop(),
		fx.Options{RetryBase: time.Millisecond, Supported: TestSupportedCurrencies},
	)
}

func NewTestPortfolioService(t *testing.T, db *sql.DB, rates service.RateResolver) *service.PortfolioService {
	t.Helper()

	return service.NewPortfolioService(
		repository.NewStockRepository(db),
		repository.NewTransactionRepository(db),
		rates,
		currency.USD,
		zerolog.Nop(),
	)
}

func NewTestImportService(t *testing.T, db *sql.DB) *service.ImportService {
	t.Helper()

	return service.NewImportService(
		db,
		repository.NewStockRepository(db),
		repository.NewTransactionRepository(db),
		zerolog.Nop(),
	)
}

func NewTestTransactionService(t *testing.T, db *sql.DB) *service.TransactionService {
	t.Helper()

	return service.NewTransactionService(
		db,
		repository.NewStockRepository(db),
		repository.NewTransactionRepository(db),
	)
}

func NewTestFxService(t *testing.T, db *sql.DB, providers ...fx.Provider) *service.FxService {
	t.Helper()

	return service.NewFxService(NewTestResolver(t, db, providers...), currency.USD, zerolog.Nop())
}

// NewTestPriceService wires a PriceService to a real quote.Service over the
// given providers, with a short cache and no effective rate limit.
func NewTestPriceService(t *testing.T, db *sql.DB, providers ...quote.Provider) *service.PriceService {
	t.Helper()

	quotes := quote.NewService(providers, cache.New(time.Minute, 10*time.Minute), rate.NewLimiter(rate.Inf, 1), zerolog.Nop())
	return service.NewPriceService(repository.NewStockRepository(db), quotes, zerolog.Nop())
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	return service.NewSystemService(db)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeSymbol generates a ticker for testing, unique enough to avoid
// collisions between builders in one database.
//
// Example usage:
//
//	symbol := testutil.MakeSymbol("AAPL")
//	// Returns: "AAPL1A2B"
func MakeSymbol(base string) string {
	if base == "" {
		base = "TEST"
	}
	return base + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
