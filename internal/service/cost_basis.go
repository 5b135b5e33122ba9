package service

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/pfolio/portfolio-api/internal/model"
)

// CostBasisEngine values one instrument's position from its transactions.
type CostBasisEngine struct {
	rates RateResolver
	log   zerolog.Logger
	now   func() time.Time
}

// NewCostBasisEngine creates an engine that converts through rates.
func NewCostBasisEngine(rates RateResolver, log zerolog.Logger) *CostBasisEngine {
	return &CostBasisEngine{
		rates: rates,
		log:   log.With().Str("service", "cost_basis").Logger(),
		now:   time.Now,
	}
}

// PriceSnapshot is the latest known price of an instrument.
type PriceSnapshot struct {
	Price    float64
	Currency string // empty means the trade currency of the latest transaction
}

// lot is an open purchase lot, per-unit costs include the amortized fee.
type lot struct {
	qty       int64
	unitTrade float64
	unitBase  float64
}

// Calculate computes the cost basis and gain of one instrument in base currency.
//
// Transactions are replayed in (date, insertion) order. A single buy with no
// sells is valued directly from that lot; anything else goes through FIFO
// lot matching, where sells consume the oldest lots first and the remaining
// lots make up the cost basis. Each lot's per-unit cost is
// (price + fee / quantity) converted at the lot's trade date, with the fee
// first converted from its own currency into the trade currency.
//
// FeesPaidBaseCcy sums the fees of buys and sells. RealizedGain is the sum of
// sell proceeds (net of the sell fee) minus the FIFO cost of the lots consumed.
//
// A failed FX lookup is replaced with 1.0 and the transaction is listed in
// FxFallbacks. ok is false when the net quantity is not positive; fees and
// realized gain are still filled in so closed positions can be summarized.
func (e *CostBasisEngine) Calculate(ctx context.Context, txs []model.Transaction, base string, price PriceSnapshot) (model.CostBasisResult, bool) {
	conv := newConverter(e.rates, e.log)
	res := model.CostBasisResult{}
	if len(txs) == 0 {
		return res, false
	}

	ordered := make([]model.Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].TransactionDate.Equal(ordered[j].TransactionDate) {
			return ordered[i].TransactionDate.Before(ordered[j].TransactionDate)
		}
		return ordered[i].Seq < ordered[j].Seq
	})

	var buys, sells int
	for _, t := range ordered {
		switch t.Side {
		case model.SideBuy:
			res.Quantity += t.Quantity
			buys++
		case model.SideSell:
			res.Quantity -= t.Quantity
			sells++
		}
	}

	var lots []lot
	var feesPaid, realized float64
	for _, t := range ordered {
		feeAmount, feeCurrency := t.Fee()
		if feeAmount != 0 {
			feesPaid += feeAmount * conv.rate(ctx, t.ID, feeCurrency, base, t.TransactionDate)
		}
		feeTrade := 0.0
		if feeAmount != 0 {
			feeTrade = feeAmount * conv.rate(ctx, t.ID, feeCurrency, t.Currency, t.TransactionDate)
		}
		toBase := conv.rate(ctx, t.ID, t.Currency, base, t.TransactionDate)

		switch t.Side {
		case model.SideBuy:
			if t.Quantity <= 0 {
				continue
			}
			unitTrade := t.PricePerShare + feeTrade/float64(t.Quantity)
			lots = append(lots, lot{qty: t.Quantity, unitTrade: unitTrade, unitBase: unitTrade * toBase})

		case model.SideSell:
			proceeds := (float64(t.Quantity)*t.PricePerShare - feeTrade) * toBase
			remaining := t.Quantity
			consumed := 0.0
			for remaining > 0 && len(lots) > 0 {
				take := min(remaining, lots[0].qty)
				consumed += float64(take) * lots[0].unitBase
				lots[0].qty -= take
				remaining -= take
				if lots[0].qty == 0 {
					lots = lots[1:]
				}
			}
			if remaining > 0 {
				e.log.Warn().Str("transaction_id", t.ID).Int64("unmatched", remaining).Msg("sell exceeds open lots")
			}
			realized += proceeds - consumed
		}
	}

	res.FeesPaidBaseCcy = round(feesPaid)
	res.RealizedGain = round(realized)

	if res.Quantity <= 0 {
		res.FxFallbacks = conv.fallbacks
		return res, false
	}

	var costBase, costTrade float64
	if buys == 1 && sells == 0 {
		costBase = lots[0].unitBase * float64(lots[0].qty)
		costTrade = lots[0].unitTrade * float64(lots[0].qty)
	} else {
		for _, l := range lots {
			costBase += float64(l.qty) * l.unitBase
			costTrade += float64(l.qty) * l.unitTrade
		}
	}

	qty := float64(res.Quantity)
	res.AvgCostBasis = roundPrice(costBase / qty)
	res.AvgCostOriginalCurrency = roundPrice(costTrade / qty)
	res.CostBasisBaseCcy = round(costBase)

	priceCurrency := price.Currency
	if priceCurrency == "" {
		priceCurrency = ordered[len(ordered)-1].Currency
	}
	value := 0.0
	if price.Price > 0 {
		value = qty * price.Price * conv.rate(ctx, "", priceCurrency, base, day(e.now()))
	}
	res.CurrentValueBaseCcy = round(value)

	gain := value - costBase
	res.Gain = round(gain)
	if costBase != 0 {
		res.GainPercent = round(gain / costBase * 100)
	}
	res.FxFallbacks = conv.fallbacks
	return res, true
}
