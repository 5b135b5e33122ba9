// Package app wires configuration, storage, providers and services together
// for the server and the command line tool.
package app

import (
	"database/sql"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pfolio/portfolio-api/internal/api"
	"github.com/pfolio/portfolio-api/internal/config"
	"github.com/pfolio/portfolio-api/internal/fx"
	"github.com/pfolio/portfolio-api/internal/quote"
	"github.com/pfolio/portfolio-api/internal/repository"
	"github.com/pfolio/portfolio-api/internal/scheduler"
	"github.com/pfolio/portfolio-api/internal/service"
)

// NewRateProviders returns the exchange rate providers in fallback order.
// The Alpha Vantage daily series is only added when a key is configured,
// since a missing credential stops the resolver's provider walk.
func NewRateProviders(cfg *config.Config) []fx.Provider {
	providers := []fx.Provider{
		fx.NewDatedTableClient(fx.DatedTableConfig{
			BaseURL:    cfg.Fx.ProviderURL,
			APIKey:     cfg.Fx.APIKey,
			RequireKey: cfg.Fx.RequireKey,
			Timeout:    cfg.Fx.HTTPTimeout,
		}),
	}
	if cfg.Quote.AlphaVantageKey != "" {
		providers = append(providers, fx.NewDailySeriesClient("", cfg.Quote.AlphaVantageKey, cfg.Fx.HTTPTimeout))
	}
	return providers
}

// NewQuoteProviders returns the stock quote providers in fallback order.
func NewQuoteProviders(cfg *config.Config) []quote.Provider {
	return []quote.Provider{
		quote.NewAlphaVantageClient("", cfg.Quote.AlphaVantageKey, cfg.Fx.HTTPTimeout),
		quote.NewStooqClient("", cfg.Fx.HTTPTimeout),
		quote.NewYahooClient("", cfg.Fx.HTTPTimeout),
	}
}

// NewServices builds every service over db.
func NewServices(db *sql.DB, cfg *config.Config, log zerolog.Logger) api.Services {
	stockRepo := repository.NewStockRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	rateRepo := repository.NewExchangeRateRepository(db)

	resolver := fx.NewResolver(rateRepo, NewRateProviders(cfg), log, fx.Options{
		Attempts:  cfg.Fx.Attempts,
		RetryBase: cfg.Fx.RetryBase,
		Supported: cfg.Portfolio.SupportedCurrencies,
	})

	limit := rate.Inf
	if cfg.Quote.RateLimit > 0 {
		limit = rate.Limit(cfg.Quote.RateLimit)
	}
	quotes := quote.NewService(
		NewQuoteProviders(cfg),
		cache.New(cfg.Quote.CacheTTL, 2*cfg.Quote.CacheTTL),
		rate.NewLimiter(limit, 1),
		log,
	)

	base := cfg.Portfolio.BaseCurrency
	return api.Services{
		System:      service.NewSystemService(db),
		Import:      service.NewImportService(db, stockRepo, transactionRepo, log),
		Portfolio:   service.NewPortfolioService(stockRepo, transactionRepo, resolver, base, log),
		Transaction: service.NewTransactionService(db, stockRepo, transactionRepo),
		Price:       service.NewPriceService(stockRepo, quotes, log),
		Fx:          service.NewFxService(resolver, base, log),
	}
}

// jobTimeout bounds one scheduled run.
const jobTimeout = 10 * time.Minute

// NewScheduler registers the FX refresh and price update jobs.
func NewScheduler(svc api.Services, cfg *config.Config, log zerolog.Logger) (*scheduler.Scheduler, error) {
	s := scheduler.New(log, jobTimeout)
	if err := s.AddJob(cfg.Scheduler.FxRefresh, scheduler.NewFxRefreshJob(svc.Fx, svc.Portfolio, log)); err != nil {
		return nil, err
	}
	if err := s.AddJob(cfg.Scheduler.PriceUpdate, scheduler.NewPriceUpdateJob(svc.Price, log)); err != nil {
		return nil, err
	}
	return s, nil
}
