package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pfolio/portfolio-api/internal/api/request"
	"github.com/pfolio/portfolio-api/internal/currency"
	"github.com/pfolio/portfolio-api/internal/fx"
	"github.com/pfolio/portfolio-api/internal/model"
)

// FxService exposes rate lookups and maintenance. Unlike valuation, lookups
// here fail hard: a rate that cannot be resolved is an error.
type FxService struct {
	resolver *fx.Resolver
	base     currency.Code
	log      zerolog.Logger
	now      func() time.Time
}

// NewFxService creates a new FxService. base is the currency refreshed by default.
func NewFxService(resolver *fx.Resolver, base currency.Code, log zerolog.Logger) *FxService {
	return &FxService{
		resolver: resolver,
		base:     base,
		log:      log.With().Str("service", "fx").Logger(),
		now:      time.Now,
	}
}

// Override stores a manual rate.
func (s *FxService) Override(ctx context.Context, req request.FxOverrideRequest) (model.ExchangeRate, error) {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return model.ExchangeRate{}, fmt.Errorf("invalid date: %w", err)
	}
	er, err := s.resolver.Override(ctx, req.Base, req.Quote, date, req.Rate)
	if err != nil {
		return model.ExchangeRate{}, err
	}
	s.log.Info().
		Str("pair", er.Base+"/"+er.Quote).
		Str("date", req.Date).
		Float64("rate", er.Rate).
		Msg("manual exchange rate stored")
	return er, nil
}

// GetRate resolves 1 base in quote on date. An empty date means today.
func (s *FxService) GetRate(ctx context.Context, base, quote, date string) (model.RateLookup, error) {
	day := s.today()
	if date != "" {
		parsed, err := time.Parse(dateLayout, date)
		if err != nil {
			return model.RateLookup{}, fmt.Errorf("invalid date: %w", err)
		}
		day = parsed
	}

	res := s.resolver.Resolve(ctx, base, quote, day)
	rate, err := res.Rate()
	if err != nil {
		return model.RateLookup{}, err
	}
	return model.RateLookup{
		Base:   res.Base.String(),
		Quote:  res.Quote.String(),
		Date:   day,
		Rate:   rate,
		Source: string(res.Source),
	}, nil
}

// Refresh makes sure the base currency's rates for date are cached.
// A zero date means today.
func (s *FxService) Refresh(ctx context.Context, date time.Time) (model.RateRefresh, error) {
	if date.IsZero() {
		date = s.today()
	}
	date = day(date)

	resolved, err := s.resolver.RefreshRates(ctx, s.base, date)
	out := model.RateRefresh{
		Base:     s.base.String(),
		Date:     date,
		Resolved: resolved,
	}
	if err != nil {
		return out, err
	}
	s.log.Info().Str("date", date.Format(dateLayout)).Int("resolved", resolved).Msg("exchange rates refreshed")
	return out, nil
}

func (s *FxService) today() time.Time {
	return day(s.now())
}

// Backfiller records rates on stored transactions. *PortfolioService implements it.
type Backfiller interface {
	BackfillFxRates(ctx context.Context) (BackfillResult, error)
}

// FxRefreshReport is the outcome of a refresh followed by a backfill.
type FxRefreshReport struct {
	Rates    model.RateRefresh `json:"rates"`
	Backfill BackfillResult    `json:"backfill"`
}

// RefreshAndBackfill refreshes the rates for date and then lets backfill
// record rates on transactions that lack one. A failed refresh skips the backfill.
func (s *FxService) RefreshAndBackfill(ctx context.Context, date time.Time, backfill Backfiller) (FxRefreshReport, error) {
	rates, err := s.Refresh(ctx, date)
	if err != nil {
		return FxRefreshReport{Rates: rates}, err
	}
	result, err := backfill.BackfillFxRates(ctx)
	return FxRefreshReport{Rates: rates, Backfill: result}, err
}
