package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/model"
)

// TimelineBuilder produces the day-by-day value of the portfolio.
type TimelineBuilder struct {
	rates RateResolver
	log   zerolog.Logger
	now   func() time.Time
}

// NewTimelineBuilder creates a builder that converts through rates.
func NewTimelineBuilder(rates RateResolver, log zerolog.Logger) *TimelineBuilder {
	return &TimelineBuilder{
		rates: rates,
		log:   log.With().Str("service", "timeline").Logger(),
		now:   time.Now,
	}
}

// Build returns one point per calendar day from start to end inclusive.
//
// start defaults to the earliest transaction date and end to today (UTC).
// Without transactions and without an explicit start the series is empty.
// Before a day's point is computed every transaction dated on or before
// that day is applied in (date, insertion) order.
//
// Each day is valued with the latest known price of every instrument, not a
// historical price. WithContributions is the market value of the holdings;
// MarketValueOnly subtracts the running contributions (buy cost including
// fees minus sell proceeds net of fees, each converted at its own date).
func (b *TimelineBuilder) Build(ctx context.Context, txs []model.Transaction, prices map[string]PriceSnapshot, base string, start, end *time.Time) ([]model.TimelinePoint, error) {
	ordered := make([]model.Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].TransactionDate.Equal(ordered[j].TransactionDate) {
			return ordered[i].TransactionDate.Before(ordered[j].TransactionDate)
		}
		return ordered[i].Seq < ordered[j].Seq
	})

	var from, to time.Time
	switch {
	case start != nil:
		from = day(*start)
	case len(ordered) > 0:
		from = day(ordered[0].TransactionDate)
	default:
		return []model.TimelinePoint{}, nil
	}
	to = day(b.now())
	if end != nil {
		to = day(*end)
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: start %s is after end %s", apperrors.ErrInvalidDateRange,
			from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	conv := newConverter(b.rates, b.log)
	today := day(b.now())

	// Latest price in base currency per stock, resolved lazily once.
	priceBase := map[string]float64{}
	valueOf := func(t model.Transaction) float64 {
		if v, ok := priceBase[t.StockID]; ok {
			return v
		}
		p := prices[t.StockID]
		v := 0.0
		if p.Price > 0 {
			ccy := p.Currency
			if ccy == "" {
				ccy = t.Currency
			}
			v = p.Price * conv.rate(ctx, "", ccy, base, today)
		}
		priceBase[t.StockID] = v
		return v
	}

	holdings := map[string]int64{}
	lastTx := map[string]model.Transaction{}
	contributions := 0.0
	next := 0

	points := make([]model.TimelinePoint, 0, int(to.Sub(from).Hours()/24)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		for next < len(ordered) && !day(ordered[next].TransactionDate).After(d) {
			t := ordered[next]
			next++

			feeAmount, feeCurrency := t.Fee()
			feeTrade := 0.0
			if feeAmount != 0 {
				feeTrade = feeAmount * conv.rate(ctx, t.ID, feeCurrency, t.Currency, t.TransactionDate)
			}
			gross := float64(t.Quantity) * t.PricePerShare
			toBase := conv.rate(ctx, t.ID, t.Currency, base, t.TransactionDate)

			switch t.Side {
			case model.SideBuy:
				holdings[t.StockID] += t.Quantity
				contributions += (gross + feeTrade) * toBase
			case model.SideSell:
				holdings[t.StockID] -= t.Quantity
				contributions -= (gross - feeTrade) * toBase
			}
			lastTx[t.StockID] = t
		}

		value := 0.0
		for stockID, qty := range holdings {
			if qty == 0 {
				continue
			}
			value += float64(qty) * valueOf(lastTx[stockID])
		}

		points = append(points, model.TimelinePoint{
			Date:              d,
			MarketValueOnly:   round(value - contributions),
			WithContributions: round(value),
		})
	}

	if len(conv.fallbacks) > 0 {
		b.log.Warn().Strs("fx_fallbacks", conv.fallbacks).Msg("timeline used substituted fx rates")
	}
	return points, nil
}
