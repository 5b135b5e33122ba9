package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pfolio/portfolio-api/internal/fx"
)

// RateResolver resolves currency conversion rates. *fx.Resolver implements it.
type RateResolver interface {
	Resolve(ctx context.Context, base, quote string, date time.Time) fx.Result
}

// converter applies fail-soft conversions for one report. A failed lookup is
// replaced by 1.0, logged, and the transaction is remembered so the report
// can flag it.
type converter struct {
	rates     RateResolver
	log       zerolog.Logger
	fallbacks []string
	seen      map[string]bool
}

func newConverter(rates RateResolver, log zerolog.Logger) *converter {
	return &converter{rates: rates, log: log, seen: map[string]bool{}}
}

// rate returns the from→to rate on date. txID names the transaction the rate
// is needed for and may be empty for non-transaction conversions.
func (c *converter) rate(ctx context.Context, txID, from, to string, date time.Time) float64 {
	if from == "" || from == to {
		return 1.0
	}
	res := c.rates.Resolve(ctx, from, to, date)
	rate, ok := res.OrFallback(1.0)
	if ok {
		return rate
	}

	c.log.Warn().
		Err(res.Err).
		Str("transaction_id", txID).
		Str("pair", from+"/"+to).
		Str("date", date.Format(time.DateOnly)).
		Msg("fx rate unavailable, substituting 1.0")

	key := txID
	if key == "" {
		key = from + "/" + to
	}
	if !c.seen[key] {
		c.seen[key] = true
		c.fallbacks = append(c.fallbacks, key)
	}
	return rate
}
