package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pfolio/portfolio-api/internal/model"
	"github.com/pfolio/portfolio-api/internal/quote"
	"github.com/pfolio/portfolio-api/internal/repository"
)

// QuoteSource returns the latest quote for a symbol. *quote.Service implements it.
type QuoteSource interface {
	Latest(ctx context.Context, symbol string) (quote.Quote, error)
}

// PriceService refreshes the stored latest price of every stock.
type PriceService struct {
	stockRepo *repository.StockRepository
	quotes    QuoteSource
	log       zerolog.Logger
	now       func() time.Time
}

// NewPriceService creates a new PriceService.
func NewPriceService(stockRepo *repository.StockRepository, quotes QuoteSource, log zerolog.Logger) *PriceService {
	return &PriceService{
		stockRepo: stockRepo,
		quotes:    quotes,
		log:       log.With().Str("service", "price").Logger(),
		now:       time.Now,
	}
}

// UpdatePrices fetches a quote for every stock and stores it. A symbol
// without a quote is reported in its PriceUpdate and does not stop the run.
func (s *PriceService) UpdatePrices(ctx context.Context) ([]model.PriceUpdate, error) {
	stocks, err := s.stockRepo.GetStocks(ctx)
	if err != nil {
		return nil, err
	}

	updates := make([]model.PriceUpdate, 0, len(stocks))
	var failed int
	for _, stock := range stocks {
		if err := ctx.Err(); err != nil {
			return updates, err
		}

		update := model.PriceUpdate{Symbol: stock.Symbol}
		q, err := s.quotes.Latest(ctx, stock.Symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", stock.Symbol).Msg("no quote")
			update.Error = err.Error()
			updates = append(updates, update)
			failed++
			continue
		}

		at := q.AsOf
		if at.IsZero() {
			at = s.now()
		}
		if err := s.stockRepo.UpdatePrice(ctx, stock.ID, q.Price, q.Currency, q.CompanyName, at); err != nil {
			return updates, err
		}
		update.Price = q.Price
		update.Currency = q.Currency
		update.Provider = q.Provider
		updates = append(updates, update)
	}

	s.log.Info().Int("stocks", len(stocks)).Int("failed", failed).Msg("prices updated")
	return updates, nil
}
