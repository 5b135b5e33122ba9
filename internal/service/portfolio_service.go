package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/currency"
	"github.com/pfolio/portfolio-api/internal/model"
	"github.com/pfolio/portfolio-api/internal/repository"
)

// PortfolioService values the stored transactions in the base currency.
// It coordinates the stock and transaction repositories with the cost basis
// engine and the timeline builder.
type PortfolioService struct {
	stockRepo       *repository.StockRepository
	transactionRepo *repository.TransactionRepository
	rates           RateResolver
	costBasis       *CostBasisEngine
	timeline        *TimelineBuilder
	base            currency.Code
	log             zerolog.Logger
}

// NewPortfolioService creates a new PortfolioService reporting in base.
func NewPortfolioService(
	stockRepo *repository.StockRepository,
	transactionRepo *repository.TransactionRepository,
	rates RateResolver,
	base currency.Code,
	log zerolog.Logger,
) *PortfolioService {
	return &PortfolioService{
		stockRepo:       stockRepo,
		transactionRepo: transactionRepo,
		rates:           rates,
		costBasis:       NewCostBasisEngine(rates, log),
		timeline:        NewTimelineBuilder(rates, log),
		base:            base,
		log:             log.With().Str("service", "portfolio").Logger(),
	}
}

// BaseCurrency returns the reporting currency.
func (s *PortfolioService) BaseCurrency() currency.Code {
	return s.base
}

// valuation is the cost basis result of every stock that has transactions.
type valuation struct {
	stock  model.Stock
	result model.CostBasisResult
	open   bool
}

func (s *PortfolioService) valuate(ctx context.Context) ([]valuation, error) {
	stocks, err := s.stockRepo.GetStocks(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactionRepo.GetTransactions(ctx)
	if err != nil {
		return nil, err
	}

	byStock := groupByStock(txs)
	valuations := make([]valuation, 0, len(stocks))
	for _, stock := range stocks {
		group := byStock[stock.ID]
		if len(group) == 0 {
			continue
		}
		res, open := s.costBasis.Calculate(ctx, group, s.base.String(), snapshot(stock))
		valuations = append(valuations, valuation{stock: stock, result: res, open: open})
	}
	return valuations, nil
}

// GetHoldings returns every open position, ordered by symbol. Positions
// whose net quantity is zero or negative are omitted.
func (s *PortfolioService) GetHoldings(ctx context.Context) ([]model.Holding, error) {
	valuations, err := s.valuate(ctx)
	if err != nil {
		return nil, err
	}

	holdings := []model.Holding{}
	for _, v := range valuations {
		if !v.open {
			continue
		}
		holdings = append(holdings, model.Holding{
			Stock:           v.stock,
			CostBasisResult: v.result,
			BaseCurrency:    s.base.String(),
		})
	}
	return holdings, nil
}

// GetSummary aggregates the open positions.
//
// TotalGain is value minus cost basis and NetGainAfterFees subtracts the
// fees paid on the open positions. TotalRealizedGain also includes closed
// positions. FxFallbackCount is the number of distinct transactions or
// price conversions that used a substituted rate.
func (s *PortfolioService) GetSummary(ctx context.Context) (model.PortfolioSummary, error) {
	valuations, err := s.valuate(ctx)
	if err != nil {
		return model.PortfolioSummary{}, err
	}

	summary := model.PortfolioSummary{BaseCurrency: s.base.String()}
	fallbacks := map[string]bool{}
	var value, cost, fees, realized float64
	for _, v := range valuations {
		realized += v.result.RealizedGain
		for _, f := range v.result.FxFallbacks {
			fallbacks[f] = true
		}
		if !v.open {
			continue
		}
		value += v.result.CurrentValueBaseCcy
		cost += v.result.CostBasisBaseCcy
		fees += v.result.FeesPaidBaseCcy
		summary.StockCount++
	}

	gain := value - cost
	summary.TotalValue = round(value)
	summary.TotalCostBasis = round(cost)
	summary.TotalGain = round(gain)
	if cost > 0 {
		summary.TotalGainPercent = round(gain / cost * 100)
	}
	summary.TotalFeesPaid = round(fees)
	summary.TotalRealizedGain = round(realized)
	summary.NetGainAfterFees = round(gain - fees)
	summary.FxFallbackCount = len(fallbacks)
	return summary, nil
}

// GetHistory returns the daily timeline between start and end. Either bound may be nil.
func (s *PortfolioService) GetHistory(ctx context.Context, start, end *time.Time) ([]model.TimelinePoint, error) {
	stocks, err := s.stockRepo.GetStocks(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactionRepo.GetTransactions(ctx)
	if err != nil {
		return nil, err
	}

	prices := make(map[string]PriceSnapshot, len(stocks))
	for _, stock := range stocks {
		prices[stock.ID] = snapshot(stock)
	}
	return s.timeline.Build(ctx, txs, prices, s.base.String(), start, end)
}

// BackfillResult counts the outcome of a backfill run.
type BackfillResult struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// BackfillFxRates records the trade-currency to base rate on every foreign
// currency transaction without one. A rate that cannot be resolved is stored
// as the transaction's fx_error and retried on the next run; a resolved rate
// clears it. A missing provider credential stops the run.
func (s *PortfolioService) BackfillFxRates(ctx context.Context) (BackfillResult, error) {
	txs, err := s.transactionRepo.GetTransactionsMissingFx(ctx, s.base.String())
	if err != nil {
		return BackfillResult{}, err
	}

	var result BackfillResult
	for _, t := range txs {
		rate, err := s.rates.Resolve(ctx, t.Currency, s.base.String(), t.TransactionDate).Rate()
		if err != nil {
			if errors.Is(err, apperrors.ErrMissingCredential) {
				return result, err
			}
			if err := s.transactionRepo.SetFxError(ctx, t.ID, err.Error()); err != nil {
				return result, fmt.Errorf("failed to record fx error for %s: %w", t.ID, err)
			}
			result.Failed++
			continue
		}
		if err := s.transactionRepo.SetFxRate(ctx, t.ID, rate); err != nil {
			return result, fmt.Errorf("failed to record fx rate for %s: %w", t.ID, err)
		}
		result.Updated++
	}

	if len(txs) > 0 {
		s.log.Info().Int("updated", result.Updated).Int("failed", result.Failed).Msg("fx backfill finished")
	}
	return result, nil
}

func groupByStock(txs []model.Transaction) map[string][]model.Transaction {
	grouped := make(map[string][]model.Transaction)
	for _, t := range txs {
		grouped[t.StockID] = append(grouped[t.StockID], t)
	}
	return grouped
}

func snapshot(stock model.Stock) PriceSnapshot {
	var p PriceSnapshot
	if stock.CurrentPrice != nil {
		p.Price = *stock.CurrentPrice
	}
	if stock.PriceCurrency != nil {
		p.Currency = *stock.PriceCurrency
	}
	return p
}
